package record

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository/memory"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/messaging"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/security"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev messaging.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

func newLabService(pub messaging.Publisher) *Service[model.LabReport] {
	repo := memory.NewCollection[model.LabReport](memory.New(nil), model.CollectionLabReports)
	return NewService(repo, pub, zerolog.Nop(), Options[model.LabReport]{
		Resource: ResourceLabReport,
		Label:    "lab report",
		Prepare:  PrepareLabReport,
	})
}

func appCode(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Code
}

func TestCreateNormalisesAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := newLabService(pub)

	r, err := svc.Create(context.Background(), &model.LabReport{
		Base:       model.Base{ID: "client-chosen"},
		PatientRef: model.PatientRef{PatientName: " Jane Doe ", LabNumber: "gm/2024/0153"},
		BloodTest:  model.Panel{"hb": {Value: model.NumberReading("10"), Range: "12-16"}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", r.ID)
	assert.Equal(t, "Jane Doe", r.PatientName)
	assert.Equal(t, "GM/2024/0153", r.LabNumber)
	assert.Equal(t, model.ResultLow, r.BloodTest["hb"].Status)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "LAB_REPORT_CREATE", ev.Type)
	assert.Equal(t, r.ID, ev.ID)
	assert.Equal(t, "GM/2024/0153", ev.LabNumber)
	assert.Equal(t, "Jane Doe", ev.PatientName)
}

func TestCreateMissingRequiredField(t *testing.T) {
	svc := newLabService(nil)
	_, err := svc.Create(context.Background(), &model.LabReport{PatientRef: model.PatientRef{PatientName: "Jane"}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation, appCode(t, err))
	assert.Contains(t, err.Error(), "labNumber is required")
}

func TestCreateRejectsBadLabNumber(t *testing.T) {
	svc := newLabService(nil)
	_, err := svc.Create(context.Background(), &model.LabReport{PatientRef: model.PatientRef{PatientName: "Jane", LabNumber: "LAB 01"}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation, appCode(t, err))
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &fakePublisher{err: stderrors.New("redis down")}
	svc := newLabService(pub)
	r, err := svc.Create(context.Background(), &model.LabReport{PatientRef: model.PatientRef{PatientName: "Jane", LabNumber: "LAB-1"}})
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), r.ID)
	assert.NoError(t, err)
}

func TestUpdateMergesOnlySubmittedFields(t *testing.T) {
	pub := &fakePublisher{}
	svc := newLabService(pub)
	ctx := context.Background()

	r, err := svc.Create(ctx, &model.LabReport{
		PatientRef:     model.PatientRef{PatientName: "Jane", LabNumber: "LAB-1"},
		SelectedReport: "full",
		Serology:       model.Panel{"hiv": {Value: model.TextReading("Negative")}},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, r.ID, map[string]any{
		"selectedReport": "partial",
		"_id":            "hijack",
		"createdAt":      "2000-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, r.ID, updated.ID)
	assert.Equal(t, "partial", updated.SelectedReport)
	assert.Equal(t, "Jane", updated.PatientName)
	assert.Equal(t, model.TextReading("Negative"), updated.Serology["hiv"].Value)
	assert.True(t, r.CreatedAt.Equal(updated.CreatedAt))

	stored, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "partial", stored.SelectedReport)
	assert.Equal(t, []string{"LAB_REPORT_CREATE", "LAB_REPORT_UPDATE"}, pub.types())
}

func TestUpdateTypeMismatch(t *testing.T) {
	svc := newLabService(nil)
	ctx := context.Background()
	r, err := svc.Create(ctx, &model.LabReport{PatientRef: model.PatientRef{PatientName: "Jane", LabNumber: "LAB-1"}})
	require.NoError(t, err)

	_, err = svc.Update(ctx, r.ID, map[string]any{"patientName": 42})
	require.Error(t, err)
	assert.Equal(t, errors.ErrBadRequest, appCode(t, err))

	_, err = svc.Update(ctx, r.ID, map[string]any{"patientName": ""})
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation, appCode(t, err))
}

func TestNotFound(t *testing.T) {
	svc := newLabService(nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "nope")
	assert.True(t, errors.IsNotFound(err))
	_, err = svc.Update(ctx, "nope", map[string]any{"selectedReport": "x"})
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(svc.Delete(ctx, "nope")))
}

func TestDeletePublishesAndRemoves(t *testing.T) {
	pub := &fakePublisher{}
	svc := newLabService(pub)
	ctx := context.Background()
	r, err := svc.Create(ctx, &model.LabReport{PatientRef: model.PatientRef{PatientName: "Jane", LabNumber: "LAB-1"}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, r.ID))
	_, err = svc.Get(ctx, r.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, "LAB_REPORT_DELETE", pub.events[1].Type)
	assert.Equal(t, "LAB-1", pub.events[1].LabNumber)
}

func TestListPaging(t *testing.T) {
	svc := newLabService(nil)
	ctx := context.Background()
	for _, ln := range []string{"LAB-1", "LAB-2", "LAB-3"} {
		_, err := svc.Create(ctx, &model.LabReport{PatientRef: model.PatientRef{PatientName: "Jane", LabNumber: ln}})
		require.NoError(t, err)
	}

	all, total, err := svc.List(ctx, ListOptions{SortBy: "labNumber"})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "LAB-1", all[0].LabNumber)

	page, total, err := svc.List(ctx, ListOptions{Page: 2, PageSize: 2, SortBy: "labNumber"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "LAB-3", page[0].LabNumber)

	found, err := svc.Find(ctx, map[string]any{"labNumber": "LAB-2"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, _, err = svc.List(ctx, ListOptions{SortBy: "bad field"})
	assert.Equal(t, errors.ErrBadRequest, appCode(t, err))

	last, total, err := svc.List(ctx, ListOptions{Page: MaxPage, PageSize: MaxPageSize})
	require.NoError(t, err)
	assert.Empty(t, last)
	assert.Equal(t, int64(3), total)

	_, _, err = svc.List(ctx, ListOptions{Page: MaxPage + 1, PageSize: 20})
	assert.Equal(t, errors.ErrBadRequest, appCode(t, err))
}

func TestPaymentDerivedOnUpdate(t *testing.T) {
	repo := memory.NewCollection[model.Payment](memory.New(nil), model.CollectionPayments)
	svc := NewService(repo, nil, zerolog.Nop(), Options[model.Payment]{Resource: ResourcePayment, Prepare: PreparePayment})
	ctx := context.Background()

	due := 500.0
	p, err := svc.Create(ctx, &model.Payment{PatientName: "Jane", AmountDue: &due})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentUnpaid, p.PaymentStatus)

	p, err = svc.Update(ctx, p.ID, map[string]any{"amountPaid": 200})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartial, p.PaymentStatus)
	assert.Equal(t, 300.0, p.Balance)

	_, err = svc.Create(ctx, &model.Payment{PatientName: "Jane"})
	assert.Equal(t, errors.ErrValidation, appCode(t, err))
}

func TestUserPasswordHandling(t *testing.T) {
	repo := memory.NewCollection[model.User](memory.New(nil), model.CollectionUsers)
	svc := NewService(repo, nil, zerolog.Nop(), Options[model.User]{
		Resource:  ResourceUser,
		Prepare:   PrepareUser(security.NewBcryptHasher(bcrypt.MinCost)),
		Protected: UserProtected,
	})
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.User{Name: "A", Email: "a@clinic.test", Department: "admin"})
	assert.Equal(t, errors.ErrBadRequest, appCode(t, err))

	_, err = svc.Create(ctx, &model.User{Name: "A", Email: "a@clinic.test", Department: "admin", Password: "short"})
	assert.Equal(t, errors.ErrBadRequest, appCode(t, err))

	u, err := svc.Create(ctx, &model.User{Name: "A", Email: " A@Clinic.test ", Department: "Admin", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "a@clinic.test", u.Email)
	assert.Empty(t, u.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("longenough")))

	oldHash := u.PasswordHash
	u, err = svc.Update(ctx, u.ID, map[string]any{"passwordHash": "forged", "name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, oldHash, u.PasswordHash)
	assert.Equal(t, "Alice", u.Name)

	u, err = svc.Update(ctx, u.ID, map[string]any{"password": "another-secret"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("another-secret")))

	_, err = svc.Create(ctx, &model.User{Name: "B", Email: "b@clinic.test", Department: "janitor", Password: "longenough"})
	assert.Equal(t, errors.ErrValidation, appCode(t, err))
}
