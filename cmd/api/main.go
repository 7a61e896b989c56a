package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/RyneJoanams/gulf-main-sub001/config"
	"github.com/RyneJoanams/gulf-main-sub001/internal/app"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := logger.NewLogger(cfg.Logging.LoggerConfig())
	lg.SetGlobal()

	zl, err := newZap(cfg.Server.Mode)
	if err != nil {
		lg.Fatal(err, "failed to create storage logger")
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(ctx, cfg, lg.ZL, zl.Sugar())
	cancel()
	if err != nil {
		lg.Fatal(err, "failed to initialize application")
	}

	// Create server
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		lg.Info("server listening", "addr", srv.Addr, "storage", cfg.Storage.Driver, "auth", cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error(err, "server forced to shutdown")
	}
	if err := a.Close(ctx); err != nil {
		lg.Error(err, "failed to release resources")
	}

	lg.Info("server exited properly")
}

func newZap(mode string) (*zap.Logger, error) {
	if mode == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
