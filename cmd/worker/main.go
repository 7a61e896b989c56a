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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/RyneJoanams/gulf-main-sub001/config"
	"github.com/RyneJoanams/gulf-main-sub001/internal/email"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/notification"
	"github.com/RyneJoanams/gulf-main-sub001/internal/worker"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/logger"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/messaging"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/messaging/redis"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/metrics"
)

// logMailer stands in for SMTP when mail is disabled.
type logMailer struct {
	logger *logger.Logger
}

func (m logMailer) Send(_ context.Context, msg email.Message) error {
	m.logger.Info("mail disabled, notification not sent", "subject", msg.Subject, "recipients", len(msg.To))
	return nil
}

func setupHealthCheck(addr string, broker *redis.RedisBroker, m *metrics.Metrics, lg *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := broker.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if m != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	healthAddr := flag.String("health-addr", ":8081", "address of the health and metrics server")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg := logger.NewLogger(cfg.Logging.LoggerConfig())
	lg.SetGlobal()

	if !cfg.Redis.Enabled {
		lg.Fatal(errors.New("redis is disabled"), "the worker needs redis.enabled to receive events")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, lg.ZL)
	if err != nil {
		lg.Fatal(err, "failed to create Redis broker")
	}
	defer broker.Close()

	var mailer email.Service = logMailer{logger: lg}
	if cfg.Mail.Enabled {
		mailer = email.NewSMTPService(email.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}
	notifier := notification.NewService(mailer, cfg.Mail.ClinicalRecipients, lg.ZL)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Metrics.Namespace, "worker")
	}

	w := worker.NewEventWorker(broker, worker.Config{Channel: cfg.Redis.Channel}, lg, m,
		notifier.Handle,
		func(_ context.Context, ev messaging.Event) error {
			lg.Debug("record event", "type", ev.Type, "id", ev.ID, "lab_number", ev.LabNumber)
			return nil
		},
	)

	// Setup health check endpoints
	health := setupHealthCheck(*healthAddr, broker, m, lg)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		lg.Info("shutting down...")
		cancel()
	}()

	if err := w.Start(ctx); err != nil {
		lg.Error(err, "worker stopped with error")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	_ = health.Shutdown(shutdownCtx)
}
