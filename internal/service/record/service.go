// Package record implements create, read, update and delete over one
// document collection, with normalisation, validation and change events.
package record

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/messaging"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/metrics"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/validator"
)

// Event actions
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	publishTimeout  = 2 * time.Second
)

// MaxPage keeps (page-1)*MaxPageSize within int.
const MaxPage = math.MaxInt / MaxPageSize

// Keys a patch can never change.
var immutableKeys = map[string]bool{"_id": true, "createdAt": true, "updatedAt": true}

// PrepareFunc normalises a document and fills derived fields before it is
// validated and written.
type PrepareFunc[T any] func(ctx context.Context, doc *T) error

// Options configure a Service.
type Options[T any] struct {
	// Resource names the record in events and errors, e.g. "LAB_REPORT".
	Resource string
	// Label is the human name used in error messages, e.g. "lab report".
	Label   string
	Prepare PrepareFunc[T]
	// Protected patch keys are ignored by Update.
	Protected []string
}

// ListOptions select one page of records. Page 0 returns every match.
type ListOptions struct {
	Where    map[string]any
	Page     int
	PageSize int
	SortBy   string
	Desc     bool
}

type Service[T any] struct {
	repo      repository.Collection[T]
	validator validator.Validator
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	opts      Options[T]
	protected map[string]bool
	now       func() time.Time
}

func NewService[T any](repo repository.Collection[T], publisher messaging.Publisher, logger zerolog.Logger, opts Options[T]) *Service[T] {
	if publisher == nil {
		publisher = messaging.Nop{}
	}
	if opts.Label == "" {
		opts.Label = strings.ToLower(strings.ReplaceAll(opts.Resource, "_", " "))
	}
	protected := make(map[string]bool, len(immutableKeys)+len(opts.Protected))
	for k := range immutableKeys {
		protected[k] = true
	}
	for _, k := range opts.Protected {
		protected[k] = true
	}
	return &Service[T]{
		repo:      repo,
		validator: validator.Default(),
		publisher: publisher,
		logger:    logger.With().Str("resource", opts.Resource).Logger(),
		opts:      opts,
		protected: protected,
		now:       time.Now,
	}
}

// WithMetrics counts published and failed events on m.
func (s *Service[T]) WithMetrics(m *metrics.Metrics) *Service[T] {
	s.metrics = m
	return s
}

// Resource returns the event resource name.
func (s *Service[T]) Resource() string { return s.opts.Resource }

func (s *Service[T]) Create(ctx context.Context, doc *T) (*T, error) {
	if r, ok := any(doc).(interface{ ResetMeta() }); ok {
		r.ResetMeta()
	}
	if err := s.prepare(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, doc); err != nil {
		return nil, s.translate(err)
	}
	s.publish(ctx, ActionCreate, doc)
	return doc, nil
}

func (s *Service[T]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.translate(err)
	}
	return doc, nil
}

// List returns the matching records and the total number of matches.
func (s *Service[T]) List(ctx context.Context, opts ListOptions) ([]*T, int64, error) {
	q := repository.Query{
		Where:  opts.Where,
		SortBy: opts.SortBy,
		Desc:   opts.Desc,
	}
	if opts.Page > MaxPage {
		return nil, 0, errors.BadRequest(fmt.Sprintf("page must not exceed %d", MaxPage), nil)
	}
	if opts.Page > 0 {
		size := opts.PageSize
		if size <= 0 {
			size = DefaultPageSize
		}
		if size > MaxPageSize {
			size = MaxPageSize
		}
		q.Limit = size
		q.Offset = (opts.Page - 1) * size
	}

	items, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, s.translate(err)
	}
	if opts.Page <= 0 {
		return items, int64(len(items)), nil
	}
	total, err := s.repo.Count(ctx, q)
	if err != nil {
		return nil, 0, s.translate(err)
	}
	return items, total, nil
}

// Find returns every record whose fields equal where.
func (s *Service[T]) Find(ctx context.Context, where map[string]any) ([]*T, error) {
	items, err := s.repo.List(ctx, repository.Query{Where: where})
	if err != nil {
		return nil, s.translate(err)
	}
	return items, nil
}

// Update overlays the top-level keys of patch onto the stored record and
// writes the result. Keys absent from patch keep their stored values.
func (s *Service[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.translate(err)
	}

	merged, err := s.merge(current, patch)
	if err != nil {
		return nil, err
	}
	repository.AsDocument(merged).SetID(id)

	if err := s.prepare(ctx, merged); err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, merged); err != nil {
		return nil, s.translate(err)
	}
	s.publish(ctx, ActionUpdate, merged)
	return merged, nil
}

// Save writes doc back after the caller changed it in place. It skips
// validation and events and is meant for bookkeeping fields.
func (s *Service[T]) Save(ctx context.Context, doc *T) error {
	if err := s.repo.Replace(ctx, doc); err != nil {
		return s.translate(err)
	}
	return nil
}

func (s *Service[T]) Delete(ctx context.Context, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return s.translate(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translate(err)
	}
	s.publish(ctx, ActionDelete, doc)
	return nil
}

func (s *Service[T]) merge(current *T, patch map[string]any) (*T, error) {
	raw, err := json.Marshal(current)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("encode %s: %w", s.opts.Label, err))
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Internal(fmt.Errorf("decode %s: %w", s.opts.Label, err))
	}
	for k, v := range patch {
		if s.protected[k] {
			continue
		}
		fields[k] = v
	}

	raw, err = json.Marshal(fields)
	if err != nil {
		return nil, errors.BadRequest("invalid update", err)
	}
	merged := new(T)
	if err := json.Unmarshal(raw, merged); err != nil {
		return nil, errors.BadRequest("invalid update", typeError(err))
	}
	return merged, nil
}

func (s *Service[T]) prepare(ctx context.Context, doc *T) error {
	if s.opts.Prepare != nil {
		if err := s.opts.Prepare(ctx, doc); err != nil {
			if _, ok := errors.As(err); ok {
				return err
			}
			return errors.BadRequest(err.Error(), err)
		}
	}
	if err := s.validator.Validate(doc); err != nil {
		return errors.Validation(err)
	}
	return nil
}

func (s *Service[T]) translate(err error) error {
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.NotFound(s.opts.Label, err)
	case stderrors.Is(err, repository.ErrDuplicate):
		return errors.Conflict(s.opts.Label+" already exists", err)
	case stderrors.Is(err, repository.ErrInvalidField):
		return errors.BadRequest(err.Error(), err)
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.Internal(err)
}

// publish sends a change event. Failures are logged and never returned.
func (s *Service[T]) publish(ctx context.Context, action string, doc *T) {
	ev := messaging.Event{
		Type:     s.opts.Resource + "_" + action,
		Resource: s.opts.Resource,
		ID:       repository.AsDocument(doc).GetID(),
		At:       s.now().UTC(),
	}
	if v, ok := any(doc).(model.LabNumbered); ok {
		ev.LabNumber = v.GetLabNumber()
	}
	if v, ok := any(doc).(model.PatientNamed); ok {
		ev.PatientName = v.GetPatientName()
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event", ev.Type).Str("id", ev.ID).Msg("failed to publish event")
		if s.metrics != nil {
			s.metrics.EventsFailed.WithLabelValues(ev.Type).Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(ev.Type).Inc()
	}
}

func typeError(err error) error {
	var te *json.UnmarshalTypeError
	if stderrors.As(err, &te) && te.Field != "" {
		return fmt.Errorf("field %s must be %s, got %s", te.Field, te.Type.String(), te.Value)
	}
	return err
}
