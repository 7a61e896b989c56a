// Package memory is an in-process document store backed by go-cache. It is
// used for local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
)

// Store holds one cache per collection.
type Store struct {
	mu          sync.Mutex
	collections map[string]*cache.Cache
	unique      map[string][][]string
	logger      *zap.SugaredLogger
	now         func() time.Time
}

func New(logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		collections: make(map[string]*cache.Cache),
		unique:      make(map[string][][]string),
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the time source used for document timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

var _ repository.Backend = (*Store)(nil)

func (s *Store) Name() string { return "memory" }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.collections {
		c.Flush()
	}
	return nil
}

// EnsureIndexes records unique indexes so inserts can enforce them. Other
// indexes have no effect.
func (s *Store) EnsureIndexes(_ context.Context, specs []repository.IndexSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, spec := range specs {
		if !spec.Unique {
			continue
		}
		s.unique[spec.Collection] = append(s.unique[spec.Collection], spec.Fields)
	}
	s.logger.Debugw("memory indexes registered", "count", len(specs))
	return nil
}

func (s *Store) items(name string) *cache.Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = cache.New(cache.NoExpiration, 0)
		s.collections[name] = c
	}
	return c
}

type collection[T any] struct {
	store *Store
	name  string
	items *cache.Cache
}

// NewCollection returns the collection called name.
func NewCollection[T any](s *Store, name string) repository.Collection[T] {
	return &collection[T]{store: s, name: name, items: s.items(name)}
}

type entry struct {
	id     string
	raw    []byte
	fields map[string]any
}

func (c *collection[T]) Insert(_ context.Context, doc *T) error {
	d := repository.AsDocument(doc)
	repository.PrepareInsert(d, c.store.now())
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.checkUnique(d.GetID(), raw); err != nil {
		return err
	}
	if err := c.items.Add(d.GetID(), raw, cache.NoExpiration); err != nil {
		return repository.ErrDuplicate
	}
	return nil
}

func (c *collection[T]) Get(_ context.Context, id string) (*T, error) {
	v, ok := c.items.Get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c.decode(v.([]byte))
}

func (c *collection[T]) List(_ context.Context, q repository.Query) ([]*T, error) {
	entries, err := c.match(q)
	if err != nil {
		return nil, err
	}

	field := q.SortField()
	desc := q.Descending()
	sort.SliceStable(entries, func(i, j int) bool {
		cmp := compare(entries[i].fields[field], entries[j].fields[field])
		if cmp == 0 {
			cmp = strings.Compare(entries[i].id, entries[j].id)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	if q.Offset > 0 {
		if q.Offset >= len(entries) {
			entries = nil
		} else {
			entries = entries[q.Offset:]
		}
	}
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}

	out := make([]*T, 0, len(entries))
	for _, e := range entries {
		doc, err := c.decode(e.raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *collection[T]) Count(_ context.Context, q repository.Query) (int64, error) {
	entries, err := c.match(repository.Query{Where: q.Where})
	if err != nil {
		return 0, err
	}
	return int64(len(entries)), nil
}

func (c *collection[T]) Replace(_ context.Context, doc *T) error {
	d := repository.AsDocument(doc)
	d.Touch(c.store.now())
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, ok := c.items.Get(d.GetID()); !ok {
		return repository.ErrNotFound
	}
	if err := c.checkUnique(d.GetID(), raw); err != nil {
		return err
	}
	if err := c.items.Replace(d.GetID(), raw, cache.NoExpiration); err != nil {
		return repository.ErrNotFound
	}
	return nil
}

func (c *collection[T]) Delete(_ context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, ok := c.items.Get(id); !ok {
		return repository.ErrNotFound
	}
	c.items.Delete(id)
	return nil
}

func (c *collection[T]) decode(raw []byte) (*T, error) {
	doc := new(T)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return doc, nil
}

func (c *collection[T]) match(q repository.Query) ([]entry, error) {
	for k := range q.Where {
		if !repository.ValidField(k) {
			return nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, k)
		}
	}
	if q.SortBy != "" && !repository.ValidField(q.SortBy) {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, q.SortBy)
	}

	var out []entry
	for id, item := range c.items.Items() {
		raw := item.Object.([]byte)
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.name, err)
		}
		if !matches(fields, q.Where) {
			continue
		}
		out = append(out, entry{id: id, raw: raw, fields: fields})
	}
	return out, nil
}

// checkUnique must be called with the store lock held.
func (c *collection[T]) checkUnique(id string, raw []byte) error {
	indexes := c.store.unique[c.name]
	if len(indexes) == 0 {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for _, keys := range indexes {
		where := make(map[string]any, len(keys))
		for _, k := range keys {
			where[k] = fields[k]
		}
		for otherID, item := range c.items.Items() {
			if otherID == id {
				continue
			}
			var other map[string]any
			if err := json.Unmarshal(item.Object.([]byte), &other); err != nil {
				return err
			}
			if matches(other, where) {
				return repository.ErrDuplicate
			}
		}
	}
	return nil
}

func matches(fields map[string]any, where map[string]any) bool {
	for k, want := range where {
		got, ok := fields[k]
		if !ok || got == nil {
			if want != nil {
				return false
			}
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// compare orders JSON values: missing first, then numbers, times and strings
// by their natural order.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	if ta, err := time.Parse(time.RFC3339Nano, sa); err == nil {
		if tb, err := time.Parse(time.RFC3339Nano, sb); err == nil {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(sa, sb)
}
