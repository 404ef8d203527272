package echoweb

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/auth"
	"github.com/trezcool/cace/core/session"
	"github.com/trezcool/cace/services/backend"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Store      session.Store
		Manager    *auth.Manager
		Backends   *backend.Factory
		Validate   *validator.Validate
		Translator ut.Translator
		// Shutdown receives OS signals; the caller registers it with signal.Notify.
		Shutdown chan os.Signal
	}

	Server struct {
		conf       *core.Config
		logger     core.Logger
		store      session.Store
		manager    *auth.Manager
		backends   *backend.Factory
		validate   *validator.Validate
		translator ut.Translator

		app      *echo.Echo
		pages    *renderer
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	shutdown := deps.Shutdown
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	s := &Server{
		conf:       deps.Conf,
		logger:     deps.Logger,
		store:      deps.Store,
		manager:    deps.Manager,
		backends:   deps.Backends,
		validate:   deps.Validate,
		translator: deps.Translator,
		app:        echo.New(),
		pages:      newRenderer(),
		errors:     make(chan error, 1),
		shutdown:   shutdown,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.Renderer = s.pages
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.Secure())
	s.app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:" + csrfField,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   s.conf.Server.SecureCookies,
		CookieSameSite: http.SameSiteLaxMode,
		Skipper:        func(ctx echo.Context) bool { return ctx.Path() == healthPath },
	}))
	s.app.Use(s.sessionMiddleware)

	s.app.GET(healthPath, health)
	s.registerAuthRoutes()

	prof := s.app.Group(auth.DashboardPath, s.guardMiddleware)
	s.registerProfessorRoutes(prof)

	adm := s.app.Group(auth.AdminDashboardPath, s.guardMiddleware, s.adminMiddleware)
	s.registerAdminRoutes(adm)
	s.registerStudentRoutes(adm.Group("/students"))
	s.registerSubjectGroupRoutes(adm.Group("/subjects-groups"))
}

// Start listens until the server is shut down. Failures are reported on Errors.
func (s *Server) Start() {
	s.logger.Info("portal listening on " + s.conf.Server.Address)
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the server to shut it down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
