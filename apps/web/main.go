// Command web serves the CACE portal.
package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"time"

	dig_container "github.com/trezcool/cace/apps/web/di/dig"
	echoweb "github.com/trezcool/cace/apps/web/echo"
	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/auth"
)

// janitorInterval is how often idle sessions are evicted and the store swept.
const janitorInterval = 10 * time.Minute

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		storeCloser dig_container.SessionStoreCloserParam,
		manager *auth.Manager,
		server *echoweb.Server,
	) {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		defer func() {
			if err := storeCloser.Closer.Close(); err != nil {
				logger.Error("Failed to close session store", err)
			}
		}()
		defer logger.Info("Application stopped")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go manager.Run(ctx, janitorInterval)

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		expvar.NewString("sessionBackend").Set(conf.Session.Backend)
		expvar.Publish("sessions", expvar.Func(func() interface{} { return manager.Len() }))

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start Portal

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
