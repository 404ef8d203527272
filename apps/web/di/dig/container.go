package dig_container

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoweb "github.com/trezcool/cace/apps/web/echo"
	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/auth"
	"github.com/trezcool/cace/core/session"
	"github.com/trezcool/cace/services/backend"
	logsvc "github.com/trezcool/cace/services/logger"
	"github.com/trezcool/cace/storage/session/inmem"
	"github.com/trezcool/cace/storage/session/redisstore"
	"github.com/trezcool/cace/storage/session/sqlxstore"
)

type StoreLoggerParam struct {
	dig.In
	Logger core.Logger `name:"storeLogger"`
}

// SessionStoreResult is the configured session store and what releases its connections.
type SessionStoreResult struct {
	dig.Out
	Store  session.Store
	Closer io.Closer `name:"sessionStoreCloser"`
}

type SessionStoreCloserParam struct {
	dig.In
	Closer io.Closer `name:"sessionStoreCloser"`
}

type ServerParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Store      session.Store
	Manager    *auth.Manager
	Backends   *backend.Factory
	Validate   *validator.Validate
	Translator ut.Translator
	Shutdown   chan os.Signal
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "WEB : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStoreLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "STORE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newSessionStore(conf *core.Config, loggerParam StoreLoggerParam) SessionStoreResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	setUp := func() (session.Store, io.Closer, error) {
		switch conf.Session.Backend {
		case core.SessionBackendMemory, "":
			return inmem.New(conf.Session.IdleTTL), nopCloser{}, nil

		case core.SessionBackendRedis:
			rdb, err := redisstore.Connect(ctx, conf.Redis.Address, conf.Redis.Password, conf.Redis.DB)
			if err != nil {
				return nil, nil, err
			}
			return redisstore.New(rdb, conf.Session.IdleTTL), rdb, nil

		case core.SessionBackendSQL:
			db, err := sqlxstore.Open(conf.Database.URL)
			if err != nil {
				return nil, nil, err
			}
			store := sqlxstore.New(db, conf.Session.IdleTTL)
			if err = store.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			return store, db, nil
		}
		return nil, nil, errors.Errorf("unknown session backend %q", conf.Session.Backend)
	}

	store, closer, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal("setting up session store", err)
	}
	loggerParam.Logger.Info("session store ready", map[string]interface{}{"backend": conf.Session.Backend})
	return SessionStoreResult{Store: store, Closer: closer}
}

func newBackendFactory(conf *core.Config, logger core.Logger) (*backend.Factory, error) {
	return backend.NewFactory(backend.Options{
		BaseURL: conf.Backend.BaseURL,
		Timeout: conf.Backend.Timeout,
		Logger:  logger,
	})
}

// newManager verifies sessions against the backend with each session's own credential.
// A 401 during verification needs no hook: the verifier signs the session out itself.
func newManager(conf *core.Config, store session.Store, backends *backend.Factory, logger core.Logger) *auth.Manager {
	return auth.NewManager(store, func(tokens session.Tokens) auth.ProfileFetcher {
		return backends.Client(tokens, nil)
	}, logger, conf.Session.IdleTTL)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func newShutdown() chan os.Signal {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newServer(p ServerParams) *echoweb.Server {
	return echoweb.NewServer(echoweb.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Store:      p.Store,
		Manager:    p.Manager,
		Backends:   p.Backends,
		Validate:   p.Validate,
		Translator: p.Translator,
		Shutdown:   p.Shutdown,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newStoreLogger, dig.Name("storeLogger")))
	must(c.Provide(newSessionStore))
	must(c.Provide(newBackendFactory))
	must(c.Provide(newManager))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newShutdown))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
