package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/soukly/platform/internal/apperr"
	"github.com/soukly/platform/internal/domain"
	"github.com/soukly/platform/internal/events"
	"github.com/soukly/platform/internal/repository"
	"github.com/soukly/platform/internal/security"
)

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService authenticates verified users and manages their sessions.
type AuthService struct {
	users     repository.UserRepository
	tokens    *TokenService
	publisher events.Publisher
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *TokenService,
	publisher events.Publisher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{users: users, tokens: tokens, publisher: publisher, logger: logger}
}

// Login checks credentials and opens a session. Every credential failure
// returns the same message; the caller must not learn whether the email
// exists.
func (s *AuthService) Login(ctx context.Context, in LoginInput, client ClientInfo) (*domain.User, *TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	if in.Email == "" || in.Password == "" {
		return nil, nil, apperr.New(apperr.KindValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn comparable time so a missing account is not
			// distinguishable by latency.
			_, _ = security.VerifyPassword(dummyPasswordHash, in.Password)
			return nil, nil, errInvalidCredentials()
		}
		return nil, nil, apperr.Wrap(apperr.KindInternal, "could not load account", err)
	}

	ok, err := security.VerifyPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "could not verify credentials", err)
	}
	if !ok {
		return nil, nil, errInvalidCredentials()
	}
	if !user.Verified || user.Status != domain.UserStatusActive {
		return nil, nil, errInvalidCredentials()
	}

	pair, err := s.tokens.Issue(ctx, user.ID, client)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.TouchLastLogin(user.ID, time.Now().UTC()); err != nil {
		s.logger.WarnContext(ctx, "could not record last login", "user_id", user.ID, "error", err)
	}
	if err := s.publisher.Publish(ctx, events.TypeUserLoggedIn, user.Email, map[string]any{
		"user_id": user.ID,
	}); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			"type", events.TypeUserLoggedIn, "error", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return user, pair, nil
}

// Refresh rotates the session behind the presented refresh token.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string, client ClientInfo) (*TokenPair, error) {
	if rawRefresh == "" {
		return nil, apperr.New(apperr.KindAuth, "missing refresh token")
	}
	pair, _, err := s.tokens.Rotate(ctx, rawRefresh, client)
	return pair, err
}

func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	return s.tokens.Revoke(ctx, rawRefresh)
}

// Profile returns the account behind an authenticated request.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "account not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "could not load account", err)
	}
	return user, nil
}

func errInvalidCredentials() error {
	return apperr.New(apperr.KindAuth, "invalid email or password")
}

// dummyPasswordHash is a throwaway argon2id digest of a random string, used
// only to equalize login timing for unknown emails.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$BV0E8R2HLniiGBxAmF6D5KQbMyhZBvBdXTmqElyvBpM"
