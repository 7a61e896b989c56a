// Package postgres stores documents as JSONB rows, one table per collection.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
)

const uniqueViolation = "23505"

// Store is a JSONB document store on a single database.
type Store struct {
	db     *sqlx.DB
	logger *zap.SugaredLogger
	now    func() time.Time

	mu     sync.Mutex
	tables map[string]bool
}

func New(db *sqlx.DB, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
		tables: make(map[string]bool),
	}
}

var _ repository.Backend = (*Store)(nil)

func (s *Store) Name() string { return "postgres" }

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

// EnsureSchema creates the table for collection if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context, collection string) error {
	if !repository.ValidField(collection) {
		return fmt.Errorf("%w: %q", repository.ErrInvalidField, collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[collection] {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, createTableSQL(collection)); err != nil {
		return fmt.Errorf("create table %s: %w", collection, err)
	}
	s.tables[collection] = true
	return nil
}

func createTableSQL(collection string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	doc JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, pq.QuoteIdentifier(collection))
}

func (s *Store) EnsureIndexes(ctx context.Context, specs []repository.IndexSpec) error {
	for _, spec := range specs {
		if err := s.EnsureSchema(ctx, spec.Collection); err != nil {
			return err
		}
		stmt, err := createIndexSQL(spec)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index %s on %s: %w", spec.Name, spec.Collection, err)
		}
	}
	s.logger.Infow("postgres indexes ensured", "count", len(specs))
	return nil
}

func createIndexSQL(spec repository.IndexSpec) (string, error) {
	exprs := make([]string, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		if !repository.ValidField(f) {
			return "", fmt.Errorf("%w: %q", repository.ErrInvalidField, f)
		}
		exprs = append(exprs, fmt.Sprintf("(doc->>'%s')", f))
	}
	unique := ""
	if spec.Unique {
		unique = "UNIQUE "
	}
	name := strings.ToLower(spec.Collection + "_" + spec.Name + "_idx")
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		unique, pq.QuoteIdentifier(name), pq.QuoteIdentifier(spec.Collection), strings.Join(exprs, ", ")), nil
}

type collection[T any] struct {
	store *Store
	name  string
	table string
}

// NewCollection returns the collection called name. Its table is created on
// first use.
func NewCollection[T any](s *Store, name string) repository.Collection[T] {
	return &collection[T]{store: s, name: name, table: pq.QuoteIdentifier(name)}
}

func (c *collection[T]) Insert(ctx context.Context, doc *T) error {
	if err := c.store.EnsureSchema(ctx, c.name); err != nil {
		return err
	}
	now := c.store.now().UTC()
	d := repository.AsDocument(doc)
	repository.PrepareInsert(d, now)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, doc, created_at, updated_at) VALUES ($1, $2, $3, $3)`, c.table)
	if _, err := c.store.db.ExecContext(ctx, query, d.GetID(), raw, now); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *collection[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := c.store.EnsureSchema(ctx, c.name); err != nil {
		return nil, err
	}
	var raw []byte
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, c.table)
	if err := c.store.db.GetContext(ctx, &raw, query, id); err != nil {
		return nil, mapError(err)
	}
	return c.decode(raw)
}

func (c *collection[T]) List(ctx context.Context, q repository.Query) ([]*T, error) {
	if err := c.store.EnsureSchema(ctx, c.name); err != nil {
		return nil, err
	}
	query, args, err := buildSelect(c.table, "doc", q, true)
	if err != nil {
		return nil, err
	}
	var rows [][]byte
	if err := c.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]*T, 0, len(rows))
	for _, raw := range rows {
		doc, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *collection[T]) Count(ctx context.Context, q repository.Query) (int64, error) {
	if err := c.store.EnsureSchema(ctx, c.name); err != nil {
		return 0, err
	}
	query, args, err := buildSelect(c.table, "COUNT(*)", repository.Query{Where: q.Where}, false)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := c.store.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (c *collection[T]) Replace(ctx context.Context, doc *T) error {
	if err := c.store.EnsureSchema(ctx, c.name); err != nil {
		return err
	}
	now := c.store.now().UTC()
	d := repository.AsDocument(doc)
	d.Touch(now)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}

	query := fmt.Sprintf(`UPDATE %s SET doc = $2, updated_at = $3 WHERE id = $1`, c.table)
	res, err := c.store.db.ExecContext(ctx, query, d.GetID(), raw, now)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (c *collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.store.EnsureSchema(ctx, c.name); err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, c.table)
	res, err := c.store.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (c *collection[T]) decode(raw []byte) (*T, error) {
	doc := new(T)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return doc, nil
}

// buildSelect renders a SELECT of what from table. Filter values are bound
// as text and compared with doc->>field.
func buildSelect(table, what string, q repository.Query, ordered bool) (string, []any, error) {
	var (
		sb    strings.Builder
		args  []any
		conds []string
	)
	fmt.Fprintf(&sb, "SELECT %s FROM %s", what, table)

	keys := sortedKeys(q.Where)
	for _, k := range keys {
		if !repository.ValidField(k) {
			return "", nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, k)
		}
		v := q.Where[k]
		if v == nil {
			conds = append(conds, fmt.Sprintf("doc->>'%s' IS NULL", k))
			continue
		}
		args = append(args, fmt.Sprint(v))
		conds = append(conds, fmt.Sprintf("doc->>'%s' = $%d", k, len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if ordered {
		field := q.SortField()
		if !repository.ValidField(field) {
			return "", nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, field)
		}
		dir := "ASC"
		if q.Descending() {
			dir = "DESC"
		}
		switch field {
		case "createdAt":
			fmt.Fprintf(&sb, " ORDER BY created_at %s, id %s", dir, dir)
		case "updatedAt":
			fmt.Fprintf(&sb, " ORDER BY updated_at %s, id %s", dir, dir)
		default:
			fmt.Fprintf(&sb, " ORDER BY doc->'%s' %s NULLS FIRST, id %s", field, dir, dir)
		}
		if q.Limit > 0 {
			args = append(args, q.Limit)
			fmt.Fprintf(&sb, " LIMIT $%d", len(args))
		}
		if q.Offset > 0 {
			args = append(args, q.Offset)
			fmt.Fprintf(&sb, " OFFSET $%d", len(args))
		}
	}
	return sb.String(), args, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pqErr.Constraint)
	}
	return err
}
