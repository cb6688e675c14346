package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/soukly/platform/internal/apperr"
	"github.com/soukly/platform/internal/domain"
	"github.com/soukly/platform/internal/repository"
	"github.com/soukly/platform/internal/security"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// ClientInfo is recorded against each session so a user-facing "active
// sessions" view stays possible.
type ClientInfo struct {
	UserAgent string
	IP        string
}

// TokenService issues the access/refresh pair and keeps the sessions table in
// step. Only the peppered hash of the refresh token is persisted; the raw
// token exists nowhere but the cookie.
type TokenService struct {
	sessions   repository.SessionRepository
	jwt        *security.JWTManager
	pepper     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

func NewTokenService(
	sessions repository.SessionRepository,
	jwt *security.JWTManager,
	pepper string,
	accessTTL, refreshTTL time.Duration,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		sessions:   sessions,
		jwt:        jwt,
		pepper:     pepper,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

func (s *TokenService) Issue(ctx context.Context, userID uint, client ClientInfo) (*TokenPair, error) {
	access, err := s.jwt.SignAccessToken(userID, s.accessTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not sign access token", err)
	}
	refresh, err := s.jwt.SignRefreshToken(userID, s.refreshTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not sign refresh token", err)
	}

	session := &domain.Session{
		UserID:           userID,
		RefreshTokenHash: security.HashRefreshToken(refresh, s.pepper),
		UserAgent:        client.UserAgent,
		IP:               client.IP,
		ExpiresAt:        time.Now().UTC().Add(s.refreshTTL),
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not persist session", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.accessTTL,
		RefreshTTL:   s.refreshTTL,
	}, nil
}

// Rotate exchanges a valid refresh token for a fresh pair. The presented
// token's session is revoked first, so a replayed old token fails cleanly.
func (s *TokenService) Rotate(ctx context.Context, rawRefresh string, client ClientInfo) (*TokenPair, uint, error) {
	claims, err := s.jwt.ParseRefreshToken(rawRefresh)
	if err != nil {
		return nil, 0, apperr.New(apperr.KindAuth, "invalid or expired refresh token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, 0, apperr.New(apperr.KindAuth, "invalid or expired refresh token")
	}

	hash := security.HashRefreshToken(rawRefresh, s.pepper)
	if _, err := s.sessions.FindValidByHash(hash); err != nil {
		// Valid signature but no live session: either logged out or an
		// already-rotated token being replayed.
		s.logger.WarnContext(ctx, "refresh token replay or stale session", "user_id", userID)
		return nil, 0, apperr.New(apperr.KindAuth, "invalid or expired refresh token")
	}
	if err := s.sessions.RevokeByHash(hash); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "could not revoke session", err)
	}

	pair, err := s.Issue(ctx, userID, client)
	if err != nil {
		return nil, 0, err
	}
	return pair, userID, nil
}

// Revoke ends the session behind the presented refresh token. An unknown or
// malformed token is not an error; logout must be idempotent.
func (s *TokenService) Revoke(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	hash := security.HashRefreshToken(rawRefresh, s.pepper)
	if err := s.sessions.RevokeByHash(hash); err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not revoke session", err)
	}
	return nil
}

func (s *TokenService) RevokeAll(ctx context.Context, userID uint) error {
	if err := s.sessions.RevokeByUserID(userID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not revoke sessions", err)
	}
	return nil
}
