package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/soukly/platform/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists refresh sessions. Lookups only ever return live
// sessions; revoked and expired rows are invisible to callers, which is what
// makes rotation replay-safe at the storage layer.
type SessionRepository interface {
	Create(s *domain.Session) error
	FindValidByHash(hash string) (*domain.Session, error)
	RevokeByHash(hash string) error
	RevokeByUserID(userID uint) error
	CleanupExpired() (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(s *domain.Session) error {
	return r.db.Create(s).Error
}

// FindValidByHash returns the live session behind a refresh token hash.
// Revoked and expired sessions report ErrSessionNotFound, same as a hash
// that was never issued.
func (r *GormSessionRepository) FindValidByHash(hash string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.
		Where("refresh_token_hash = ?", hash).
		Where("revoked_at IS NULL").
		Where("expires_at > ?", time.Now().UTC()).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// RevokeByHash stamps revoked_at on the matching live session. Already
// revoked or unknown hashes are a no-op so logout stays idempotent.
func (r *GormSessionRepository) RevokeByHash(hash string) error {
	return r.db.Model(&domain.Session{}).
		Where("refresh_token_hash = ?", hash).
		Where("revoked_at IS NULL").
		Update("revoked_at", time.Now().UTC()).Error
}

// RevokeByUserID ends every live session a user holds across devices.
func (r *GormSessionRepository) RevokeByUserID(userID uint) error {
	return r.db.Model(&domain.Session{}).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Update("revoked_at", time.Now().UTC()).Error
}

// CleanupExpired deletes sessions past their expiry, revoked or not, and
// reports how many rows went away. Meant for a periodic sweep.
func (r *GormSessionRepository) CleanupExpired() (int64, error) {
	res := r.db.Where("expires_at <= ?", time.Now().UTC()).Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
