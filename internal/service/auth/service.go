package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/record"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/auth"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/security"
)

var ErrInvalidCredentials = stderrors.New("invalid credentials")

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

type Service struct {
	users  *record.Service[model.User]
	jwtSvc auth.JWTService
	hasher security.PasswordHasher
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(users *record.Service[model.User], jwtSvc auth.JWTService, hasher security.PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		jwtSvc: jwtSvc,
		hasher: hasher,
		logger: logger.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}
}

func invalidCredentials() error {
	return &errors.AppError{Code: errors.ErrUnauthorized, Message: ErrInvalidCredentials.Error(), Err: ErrInvalidCredentials}
}

// Login checks email and password and issues an access token. Repeated
// failures lock the account for a while.
func (s *Service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := s.users.Find(ctx, map[string]any{"email": email})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, invalidCredentials()
	}
	user := users[0]
	now := s.now()

	if !user.IsActive() {
		return nil, invalidCredentials()
	}
	if user.IsLocked(now) {
		return nil, &errors.AppError{Code: errors.ErrUnauthorized, Message: "account is locked, please try again later"}
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= maxLoginAttempts {
			until := now.Add(lockoutDuration).UTC()
			user.LockedUntil = &until
			user.FailedLoginAttempts = 0
			s.logger.Warn().Str("user_id", user.ID).Msg("account locked after repeated failed logins")
		}
		if err := s.users.Save(ctx, user); err != nil {
			return nil, err
		}
		return nil, invalidCredentials()
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		if hash, err := s.hasher.Hash(password); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to rehash password")
		} else {
			user.PasswordHash = hash
		}
	}

	// Reset login attempts on successful login
	loginAt := now.UTC()
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &loginAt
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	token, exp, err := s.jwtSvc.GenerateAccessToken(auth.Subject{
		ID:         user.ID,
		Email:      user.Email,
		Department: user.Department,
	})
	if err != nil {
		return nil, errors.Internal(err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return &model.LoginResponse{Token: token, ExpiresAt: exp, User: user.Public()}, nil
}

// ValidateToken parses a bearer token.
func (s *Service) ValidateToken(token string) (*auth.Claims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, errors.Unauthorized(err)
	}
	return claims, nil
}

// Me returns the user a token was issued for.
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}
