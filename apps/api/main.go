package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	dig_container "github.com/PalomaresAndrea/gestion-planeacion-sub000/apps/api/di/dig"
	echoapi "github.com/PalomaresAndrea/gestion-planeacion-sub000/apps/api/echo"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	logsvc "github.com/PalomaresAndrea/gestion-planeacion-sub000/services/logger"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		rollbarLogger *logsvc.RollbarLogger,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		store *database.Store,
		shutdown dig_container.ShutdownChan,
		server echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		defer rollbarLogger.Close()

		dbLogger := dbLoggerParam.Logger
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()
			if err := store.Close(ctx); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.
		// /metrics - Prometheus collectors.

		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		http.Handle("/metrics", promhttp.Handler())

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start API Service

		serverErrors := make(chan error, 1)
		go func() {
			apiLogger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
			serverErrors <- server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-serverErrors:
			if err != nil && err != http.ErrServerClosed {
				apiLogger.Error(fmt.Sprintf("server error: %v", err), err)
			}

		case sig := <-shutdown:
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			if err := server.Stop(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
