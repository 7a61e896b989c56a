package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository/memory"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/record"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/auth"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/security"
)

func newAuthService(t *testing.T) (*Service, *record.Service[model.User]) {
	t.Helper()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	users := record.NewService(
		memory.NewCollection[model.User](memory.New(nil), model.CollectionUsers),
		nil, zerolog.Nop(),
		record.Options[model.User]{Resource: record.ResourceUser, Prepare: record.PrepareUser(hasher), Protected: record.UserProtected},
	)
	svc := NewService(users, auth.NewJWTService("test-secret", "clinic", time.Hour), hasher, zerolog.Nop())
	return svc, users
}

func createUser(t *testing.T, users *record.Service[model.User], email string, active bool) *model.User {
	t.Helper()
	u, err := users.Create(context.Background(), &model.User{
		Name: "Staff", Email: email, Department: model.DepartmentLaboratory, Password: "correct-horse", Active: &active,
	})
	require.NoError(t, err)
	return u
}

func TestLoginSuccess(t *testing.T) {
	svc, users := newAuthService(t)
	u := createUser(t, users, "lab@clinic.test", true)

	resp, err := svc.Login(context.Background(), " LAB@clinic.test", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, u.ID, resp.User.ID)
	assert.Empty(t, resp.User.PasswordHash)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, model.DepartmentLaboratory, claims.Department)

	me, err := svc.Me(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "lab@clinic.test", me.Email)
	assert.Empty(t, me.PasswordHash)
	assert.NotNil(t, me.LastLoginAt)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, users := newAuthService(t)
	createUser(t, users, "lab@clinic.test", true)
	createUser(t, users, "gone@clinic.test", false)

	for _, tc := range []struct{ email, password string }{
		{"nobody@clinic.test", "correct-horse"},
		{"lab@clinic.test", "wrong"},
		{"gone@clinic.test", "correct-horse"},
	} {
		_, err := svc.Login(context.Background(), tc.email, tc.password)
		require.Error(t, err, tc.email)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrUnauthorized, appErr.Code)
		assert.Equal(t, "invalid credentials", appErr.Message)
	}
}

func TestLoginLockout(t *testing.T) {
	svc, users := newAuthService(t)
	createUser(t, users, "lab@clinic.test", true)
	now := time.Now()
	svc.now = func() time.Time { return now }

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := svc.Login(context.Background(), "lab@clinic.test", "wrong")
		require.Error(t, err)
	}

	_, err := svc.Login(context.Background(), "lab@clinic.test", "correct-horse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	now = now.Add(lockoutDuration + time.Second)
	_, err = svc.Login(context.Background(), "lab@clinic.test", "correct-horse")
	assert.NoError(t, err)
}

func TestLoginRehashesOnCostChange(t *testing.T) {
	svc, users := newAuthService(t)
	u := createUser(t, users, "lab@clinic.test", true)
	stronger := security.NewBcryptHasher(bcrypt.MinCost + 1)
	svc.hasher = stronger

	_, err := svc.Login(context.Background(), "lab@clinic.test", "correct-horse")
	require.NoError(t, err)

	stored, err := users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, stronger.Cost(), cost)
	assert.False(t, stronger.NeedsRehash(stored.PasswordHash))

	_, err = svc.Login(context.Background(), "lab@clinic.test", "correct-horse")
	assert.NoError(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthService(t)
	_, err := svc.ValidateToken("garbage")
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrUnauthorized, appErr.Code)
}
