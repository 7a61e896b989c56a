// Package worker consumes record events from the broker and dispatches them
// to handlers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RyneJoanams/gulf-main-sub001/pkg/logger"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/messaging"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/metrics"
)

// Handler processes one event.
type Handler func(ctx context.Context, ev messaging.Event) error

type Config struct {
	Channel string
	// HandleTimeout bounds a single handler call.
	HandleTimeout time.Duration
}

type EventWorker struct {
	broker   messaging.Broker
	config   Config
	handlers []Handler
	logger   *logger.Logger
	metrics  *metrics.Metrics
	workerID string
}

func NewEventWorker(broker messaging.Broker, config Config, logger *logger.Logger, m *metrics.Metrics, handlers ...Handler) *EventWorker {
	if config.HandleTimeout <= 0 {
		config.HandleTimeout = 30 * time.Second
	}
	workerID := generateWorkerID()
	return &EventWorker{
		broker:   broker,
		config:   config,
		handlers: handlers,
		logger:   logger.WithFields(map[string]interface{}{"worker_id": workerID}),
		metrics:  m,
		workerID: workerID,
	}
}

// Start consumes events until ctx is cancelled or the subscription ends.
func (w *EventWorker) Start(ctx context.Context) error {
	w.logger.Info("worker started", "channel", w.config.Channel)
	err := messaging.Consume(ctx, w.broker, w.config.Channel, w.handle, func(err error) {
		w.logger.Error(err, "failed to process event")
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.logger.Info("worker stopped")
	return err
}

func (w *EventWorker) handle(ctx context.Context, ev messaging.Event) error {
	ctx, cancel := context.WithTimeout(ctx, w.config.HandleTimeout)
	defer cancel()

	var errs []error
	for _, h := range w.handlers {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		if w.metrics != nil {
			w.metrics.EventsFailed.WithLabelValues(ev.Type).Inc()
		}
		return err
	}
	if w.metrics != nil {
		w.metrics.EventsHandled.WithLabelValues(ev.Type).Inc()
	}
	w.logger.Debug("event handled", "type", ev.Type, "id", ev.ID)
	return nil
}

func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}
