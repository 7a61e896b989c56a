package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when an insert collides with a unique key.
	ErrDuplicate = errors.New("duplicate document")
	// ErrInvalidField is returned for filter or sort fields that are not
	// plain identifiers.
	ErrInvalidField = errors.New("invalid field name")
)

// DefaultSort is the field lists are ordered by when none is given.
const DefaultSort = "createdAt"

// Document is implemented by every stored model.
type Document interface {
	GetID() string
	SetID(id string)
	Touch(now time.Time)
}

// Query selects, orders and pages documents. Where holds equality matches on
// JSON field names.
type Query struct {
	Where  map[string]any
	SortBy string
	Desc   bool
	Limit  int
	Offset int
}

// SortField returns SortBy or the default sort field.
func (q Query) SortField() string {
	if q.SortBy == "" {
		return DefaultSort
	}
	return q.SortBy
}

// Descending reports the sort direction. The default sort is newest first.
func (q Query) Descending() bool {
	if q.SortBy == "" {
		return true
	}
	return q.Desc
}

// IndexSpec describes a secondary index on one collection.
type IndexSpec struct {
	Collection string
	Name       string
	Fields     []string
	Unique     bool
}

// All repository interfaces in one file
type (
	// Collection stores documents of one type keyed by id.
	Collection[T any] interface {
		Insert(ctx context.Context, doc *T) error
		Get(ctx context.Context, id string) (*T, error)
		List(ctx context.Context, q Query) ([]*T, error)
		Count(ctx context.Context, q Query) (int64, error)
		Replace(ctx context.Context, doc *T) error
		Delete(ctx context.Context, id string) error
	}

	// Backend is the connection shared by all collections of a store.
	Backend interface {
		Name() string
		Ping(ctx context.Context) error
		Close(ctx context.Context) error
		EnsureIndexes(ctx context.Context, specs []IndexSpec) error
	}
)

// AsDocument returns doc as a Document. Every model embeds model.Base, so
// failure here is a programming error.
func AsDocument[T any](doc *T) Document {
	d, ok := any(doc).(Document)
	if !ok {
		panic("repository: type does not implement Document")
	}
	return d
}

// PrepareInsert assigns a new id when doc has none and stamps timestamps.
func PrepareInsert(doc Document, now time.Time) {
	if doc.GetID() == "" {
		doc.SetID(uuid.NewString())
	}
	doc.Touch(now)
}

// ValidField reports whether name can be used as a filter or sort field.
func ValidField(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// Indexes lists the secondary indexes the API relies on.
func Indexes() []IndexSpec {
	var specs []IndexSpec
	for _, c := range []string{
		model.CollectionPatients,
		model.CollectionPhlebotomies,
		model.CollectionLabReports,
		model.CollectionClinicals,
		model.CollectionRadiology,
		model.CollectionPayments,
	} {
		specs = append(specs,
			IndexSpec{Collection: c, Name: "LabNumber", Fields: []string{"labNumber"}},
			IndexSpec{Collection: c, Name: "PatientName", Fields: []string{"patientName"}},
			IndexSpec{Collection: c, Name: "CreatedAt", Fields: []string{"createdAt"}},
		)
	}
	specs = append(specs,
		IndexSpec{Collection: model.CollectionPayments, Name: "PaymentStatus", Fields: []string{"paymentStatus"}},
		IndexSpec{Collection: model.CollectionExpenses, Name: "Category", Fields: []string{"category"}},
		IndexSpec{Collection: model.CollectionExpenses, Name: "CreatedAt", Fields: []string{"createdAt"}},
		IndexSpec{Collection: model.CollectionUsers, Name: "UniqueEmail", Fields: []string{"email"}, Unique: true},
	)
	return specs
}
