package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/soukly/platform/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the narrow surface the registration state machine and
// session issuer need from the credential store; the gorm implementation can
// be swapped for a fake without touching either.
type UserRepository interface {
	FindByID(id uint) (*domain.User, error)
	FindByEmail(email string) (*domain.User, error)
	Create(user *domain.User) error
	TouchLastLogin(id uint, at time.Time) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(email string) (*domain.User, error) {
	var u domain.User
	normalized := strings.TrimSpace(strings.ToLower(email))
	if err := r.db.Where("email = ?", normalized).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) Create(user *domain.User) error {
	return r.db.Create(user).Error
}

func (r *GormUserRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&domain.User{}).Where("id = ?", id).
		Update("last_login_at", at).Error
}
