// Package storage opens the configured document store and hands out typed
// collections on it.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RyneJoanams/gulf-main-sub001/config"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository/memory"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository/mongo"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository/postgres"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/metrics"
)

// Store is an open backend plus the metrics its collections report to.
type Store struct {
	repository.Backend
	metrics *metrics.Metrics
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	var backend repository.Backend
	switch cfg.Driver {
	case config.DriverMongo:
		s, err := mongo.Connect(ctx, mongo.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
			MaxPoolSize:    cfg.Mongo.MaxPoolSize,
		}, logger.Named("mongo"))
		if err != nil {
			return nil, err
		}
		backend = s
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		backend = postgres.New(db, logger.Named("postgres"))
	case config.DriverMemory:
		backend = memory.New(logger.Named("memory"))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	logger.Infow("storage opened", "driver", backend.Name())
	return &Store{Backend: backend}, nil
}

// NewMemory returns a store on a fresh in-memory backend.
func NewMemory() *Store {
	return &Store{Backend: memory.New(nil)}
}

// WithMetrics makes collections created afterwards report operation counts
// and latency to m.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	return s
}

// Collection returns the typed collection called name on s.
func Collection[T any](s *Store, name string) repository.Collection[T] {
	var c repository.Collection[T]
	switch b := s.Backend.(type) {
	case *mongo.Store:
		c = mongo.NewCollection[T](b, name)
	case *postgres.Store:
		c = postgres.NewCollection[T](b, name)
	case *memory.Store:
		c = memory.NewCollection[T](b, name)
	default:
		panic(fmt.Sprintf("storage: unsupported backend %T", s.Backend))
	}
	if s.metrics != nil {
		c = &instrumented[T]{next: c, name: name, metrics: s.metrics}
	}
	return c
}

type instrumented[T any] struct {
	next    repository.Collection[T]
	name    string
	metrics *metrics.Metrics
}

func (i *instrumented[T]) observe(op string, start time.Time, err error) {
	i.metrics.ObserveDB(i.name, op, time.Since(start).Seconds(), err)
}

func (i *instrumented[T]) Insert(ctx context.Context, doc *T) error {
	start := time.Now()
	err := i.next.Insert(ctx, doc)
	i.observe("insert", start, err)
	return err
}

func (i *instrumented[T]) Get(ctx context.Context, id string) (*T, error) {
	start := time.Now()
	doc, err := i.next.Get(ctx, id)
	i.observe("get", start, err)
	return doc, err
}

func (i *instrumented[T]) List(ctx context.Context, q repository.Query) ([]*T, error) {
	start := time.Now()
	docs, err := i.next.List(ctx, q)
	i.observe("list", start, err)
	return docs, err
}

func (i *instrumented[T]) Count(ctx context.Context, q repository.Query) (int64, error) {
	start := time.Now()
	n, err := i.next.Count(ctx, q)
	i.observe("count", start, err)
	return n, err
}

func (i *instrumented[T]) Replace(ctx context.Context, doc *T) error {
	start := time.Now()
	err := i.next.Replace(ctx, doc)
	i.observe("replace", start, err)
	return err
}

func (i *instrumented[T]) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := i.next.Delete(ctx, id)
	i.observe("delete", start, err)
	return err
}
