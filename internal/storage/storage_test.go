package storage

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyneJoanams/gulf-main-sub001/config"
	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/metrics"
)

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{Driver: config.DriverMemory}, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "sqlite"}, nil)
	assert.Error(t, err)
}

func TestInstrumentedCollection(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewMetrics("test", "")
	s := NewMemory().WithMetrics(m)
	c := Collection[model.Expense](s, model.CollectionExpenses)

	e := &model.Expense{Description: "fuel", Amount: 12}
	require.NoError(t, c.Insert(ctx, e))
	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseOperations.WithLabelValues(model.CollectionExpenses, "insert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseOperations.WithLabelValues(model.CollectionExpenses, "get", "error")))
}
