// Package mongo stores each collection in a MongoDB collection of the same
// name, keyed by a string _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
)

// Config holds connection settings.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// Store wraps a connected client and database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.SugaredLogger
	now    func() time.Time
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Infow("connected to mongo", "database", cfg.Database)
	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
		now:    time.Now,
	}, nil
}

var _ repository.Backend = (*Store)(nil)

func (s *Store) Name() string { return "mongo" }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) EnsureIndexes(ctx context.Context, specs []repository.IndexSpec) error {
	byCollection := make(map[string][]mongo.IndexModel)
	var order []string
	for _, spec := range specs {
		keys := bson.D{}
		for _, f := range spec.Fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}
		idx := options.Index().SetName(spec.Name)
		if spec.Unique {
			idx.SetUnique(true)
		}
		if _, ok := byCollection[spec.Collection]; !ok {
			order = append(order, spec.Collection)
		}
		byCollection[spec.Collection] = append(byCollection[spec.Collection], mongo.IndexModel{Keys: keys, Options: idx})
	}

	for _, name := range order {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, byCollection[name]); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
		s.logger.Debugw("indexes ensured", "collection", name, "count", len(byCollection[name]))
	}
	return nil
}

type collection[T any] struct {
	store *Store
	coll  *mongo.Collection
	name  string
}

// NewCollection returns the collection called name.
func NewCollection[T any](s *Store, name string) repository.Collection[T] {
	return &collection[T]{store: s, coll: s.db.Collection(name), name: name}
}

func (c *collection[T]) Insert(ctx context.Context, doc *T) error {
	repository.PrepareInsert(repository.AsDocument(doc), c.store.now())
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
		}
		return fmt.Errorf("insert %s: %w", c.name, err)
	}
	return nil
}

func (c *collection[T]) Get(ctx context.Context, id string) (*T, error) {
	doc := new(T)
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get %s: %w", c.name, err)
	}
	return doc, nil
}

func (c *collection[T]) List(ctx context.Context, q repository.Query) ([]*T, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}
	opts, err := findOptions(q)
	if err != nil {
		return nil, err
	}

	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	out := make([]*T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return out, nil
}

func (c *collection[T]) Count(ctx context.Context, q repository.Query) (int64, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return 0, err
	}
	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

func (c *collection[T]) Replace(ctx context.Context, doc *T) error {
	d := repository.AsDocument(doc)
	d.Touch(c.store.now())
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": d.GetID()}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
		}
		return fmt.Errorf("replace %s: %w", c.name, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c *collection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.name, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func buildFilter(q repository.Query) (bson.M, error) {
	filter := bson.M{}
	for k, v := range q.Where {
		if !repository.ValidField(k) {
			return nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, k)
		}
		filter[k] = v
	}
	return filter, nil
}

func findOptions(q repository.Query) (*options.FindOptions, error) {
	field := q.SortField()
	if !repository.ValidField(field) {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, field)
	}
	dir := 1
	if q.Descending() {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{
		{Key: field, Value: dir},
		{Key: "_id", Value: dir},
	})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	return opts, nil
}
