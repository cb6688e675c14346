package domain

import "time"

const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	PasswordHash string    `gorm:"size:1024;not null" json:"-"`
	Verified     bool      `gorm:"not null;default:false" json:"verified"`
	Status       string    `gorm:"size:32;not null;default:active;index:idx_users_status" json:"status"`
	LastLoginAt  time.Time `json:"last_login_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicProfile strips credential material before a user record crosses the
// HTTP boundary.
type PublicProfile struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}
