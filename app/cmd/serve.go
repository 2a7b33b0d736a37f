package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"text2model/app/usecase"
	"text2model/internal/infrastructure/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the background generation worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Usecases / services
	artifactSvc := usecase.NewArtifactService(app.artifacts, app.files, logger)
	jobSvc := usecase.NewJobService(app.jobs, artifactSvc)
	configSvc := usecase.NewUserConfigService(app.configs)

	var worker *usecase.GenerationWorker
	if cfg.Worker.Enabled {
		worker = usecase.NewGenerationWorker(app.jobs, app.artifacts, app.pipeline, usecase.WorkerConfig{
			PollInterval: cfg.Worker.PollInterval,
			JobTimeout:   cfg.Worker.JobTimeout,
			Concurrency:  cfg.Worker.Concurrency,
		}, logger)
		worker.Start(ctx)
	}

	// Transport (HTTP handlers)
	handler := transport.NewGenerationHandler(jobSvc, artifactSvc, configSvc, app.pipeline, app.checks, logger)

	// Router and server
	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(corsHandler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	// OS signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case err := <-serverErrors:
		logger.Error("http server failed", "err", err)
		runErr = err
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	// Shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}

	// in-flight jobs see the canceled context, abort their backoff and are
	// recorded as failed
	cancel()
	if worker != nil {
		worker.Stop()
	}

	app.Close(shutdownCtx)
	logger.Info("service stopped")
	return runErr
}
