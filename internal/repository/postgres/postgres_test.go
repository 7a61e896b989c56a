package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
)

func TestBuildSelectDefaults(t *testing.T) {
	query, args, err := buildSelect(`"labreports"`, "doc", repository.Query{}, true)
	require.NoError(t, err)
	assert.Equal(t, `SELECT doc FROM "labreports" ORDER BY created_at DESC, id DESC`, query)
	assert.Empty(t, args)
}

func TestBuildSelectFilterSortPage(t *testing.T) {
	q := repository.Query{
		Where:  map[string]any{"patientName": "Jane", "labNumber": "LAB-1"},
		SortBy: "amountDue",
		Limit:  10,
		Offset: 20,
	}
	query, args, err := buildSelect(`"payments"`, "doc", q, true)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT doc FROM "payments" WHERE doc->>'labNumber' = $1 AND doc->>'patientName' = $2`+
			` ORDER BY doc->'amountDue' ASC NULLS FIRST, id ASC LIMIT $3 OFFSET $4`,
		query)
	assert.Equal(t, []any{"LAB-1", "Jane", 10, 20}, args)
}

func TestBuildSelectCountIgnoresPaging(t *testing.T) {
	query, args, err := buildSelect(`"payments"`, "COUNT(*)", repository.Query{Where: map[string]any{"agent": nil}}, false)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "payments" WHERE doc->>'agent' IS NULL`, query)
	assert.Empty(t, args)
}

func TestBuildSelectRejectsInjection(t *testing.T) {
	_, _, err := buildSelect(`"payments"`, "doc", repository.Query{Where: map[string]any{"x' OR '1'='1": "y"}}, true)
	assert.ErrorIs(t, err, repository.ErrInvalidField)

	_, _, err = buildSelect(`"payments"`, "doc", repository.Query{SortBy: "a desc;"}, true)
	assert.ErrorIs(t, err, repository.ErrInvalidField)
}

func TestCreateIndexSQL(t *testing.T) {
	stmt, err := createIndexSQL(repository.IndexSpec{Collection: "users", Name: "UniqueEmail", Fields: []string{"email"}, Unique: true})
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "users_uniqueemail_idx" ON "users" ((doc->>'email'))`, stmt)
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(sql.ErrNoRows), repository.ErrNotFound)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "23505", Constraint: "users_uniqueemail_idx"}), repository.ErrDuplicate)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}
