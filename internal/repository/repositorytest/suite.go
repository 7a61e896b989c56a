// Package repositorytest holds the behaviour every Collection backend must
// share, so each backend's tests can run it against a real store.
package repositorytest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
)

// Factory returns an empty collection of lab reports called name.
type Factory func(t *testing.T, name string) repository.Collection[model.LabReport]

// Run exercises CRUD and the sentinel error mapping on a fresh collection.
func Run(t *testing.T, newCollection Factory) {
	t.Run("crud", func(t *testing.T) { testCRUD(t, newCollection) })
	t.Run("not found", func(t *testing.T) { testNotFound(t, newCollection) })
	t.Run("filter and page", func(t *testing.T) { testFilterAndPage(t, newCollection) })
}

// CollectionName returns a unique collection name so runs do not collide.
func CollectionName(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

func labReport(labNumber string) *model.LabReport {
	return &model.LabReport{
		PatientRef: model.PatientRef{PatientName: "Jane Doe", LabNumber: labNumber},
		BloodTest: model.Panel{
			"haemoglobin": {Value: model.NumberReading("10.5"), Range: "12-16", Units: "g/dL"},
		},
		Serology: model.Panel{"hiv": {Value: model.TextReading("Negative")}},
	}
}

func testCRUD(t *testing.T, newCollection Factory) {
	ctx := context.Background()
	c := newCollection(t, CollectionName("reports"))

	r := labReport("LAB-1")
	require.NoError(t, c.Insert(ctx, r))
	require.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := c.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "LAB-1", got.LabNumber)
	assert.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.Equal(t, model.NumberReading("10.5"), got.BloodTest["haemoglobin"].Value)
	assert.Equal(t, model.TextReading("Negative"), got.Serology["hiv"].Value)

	err = c.Insert(ctx, &model.LabReport{Base: model.Base{ID: r.ID}, PatientRef: r.PatientRef})
	assert.True(t, errors.Is(err, repository.ErrDuplicate), "duplicate id: %v", err)

	got.SelectedReport = "full"
	require.NoError(t, c.Replace(ctx, got))
	again, err := c.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "full", again.SelectedReport)
	assert.False(t, again.UpdatedAt.Before(again.CreatedAt))

	require.NoError(t, c.Delete(ctx, r.ID))
	_, err = c.Get(ctx, r.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound), "get after delete: %v", err)
}

func testNotFound(t *testing.T, newCollection Factory) {
	ctx := context.Background()
	c := newCollection(t, CollectionName("reports"))
	missing := uuid.NewString()

	_, err := c.Get(ctx, missing)
	assert.True(t, errors.Is(err, repository.ErrNotFound), "get: %v", err)

	err = c.Replace(ctx, &model.LabReport{Base: model.Base{ID: missing}, PatientRef: model.PatientRef{PatientName: "x", LabNumber: "LAB-9"}})
	assert.True(t, errors.Is(err, repository.ErrNotFound), "replace: %v", err)

	err = c.Delete(ctx, missing)
	assert.True(t, errors.Is(err, repository.ErrNotFound), "delete: %v", err)
}

func testFilterAndPage(t *testing.T, newCollection Factory) {
	ctx := context.Background()
	c := newCollection(t, CollectionName("reports"))
	for _, ln := range []string{"LAB-1", "LAB-2", "LAB-2", "LAB-3"} {
		require.NoError(t, c.Insert(ctx, labReport(ln)))
	}

	matches, err := c.List(ctx, repository.Query{Where: map[string]any{"labNumber": "LAB-2"}})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	n, err := c.Count(ctx, repository.Query{Where: map[string]any{"labNumber": "LAB-2"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := c.List(ctx, repository.Query{SortBy: "labNumber", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "LAB-2", page[0].LabNumber)
	assert.Equal(t, "LAB-3", page[1].LabNumber)

	_, err = c.List(ctx, repository.Query{Where: map[string]any{"lab number": "x"}})
	assert.True(t, errors.Is(err, repository.ErrInvalidField), "bad field: %v", err)
}
