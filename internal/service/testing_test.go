package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/soukly/platform/internal/domain"
	"github.com/soukly/platform/internal/mail"
	"github.com/soukly/platform/internal/otp"
	"github.com/soukly/platform/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOTPStoreForTest(t *testing.T) (otp.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return otp.NewRedisStore(client), mr
}

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	nextID  uint

	createErr error
	findErr   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*domain.User{}, nextID: 1}
}

func (f *fakeUserRepo) FindByID(id uint) (*domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) FindByEmail(email string) (*domain.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) Create(user *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byEmail[user.Email]; exists {
		return errors.New(`duplicate key value violates unique constraint "idx_users_email"`)
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now().UTC()
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserRepo) TouchLastLogin(id uint, at time.Time) error {
	u, err := f.FindByID(id)
	if err != nil {
		return err
	}
	u.LastLoginAt = at
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]*domain.Session
	nextID   uint

	createErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*domain.Session{}, nextID: 1}
}

func (f *fakeSessionRepo) Create(s *domain.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	s.ID = f.nextID
	f.nextID++
	f.sessions[s.RefreshTokenHash] = s
	return nil
}

func (f *fakeSessionRepo) FindValidByHash(hash string) (*domain.Session, error) {
	s, ok := f.sessions[hash]
	if !ok || s.RevokedAt != nil || s.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionRepo) RevokeByHash(hash string) error {
	if s, ok := f.sessions[hash]; ok && s.RevokedAt == nil {
		now := time.Now().UTC()
		s.RevokedAt = &now
	}
	return nil
}

func (f *fakeSessionRepo) RevokeByUserID(userID uint) error {
	now := time.Now().UTC()
	for _, s := range f.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeSessionRepo) CleanupExpired() (int64, error) { return 0, nil }

type fakeProductRepo struct {
	products map[uint]*domain.Product
	nextID   uint
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[uint]*domain.Product{}, nextID: 1}
}

func (f *fakeProductRepo) Create(p *domain.Product) error {
	p.ID = f.nextID
	f.nextID++
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductRepo) FindByID(id uint) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) ListPaged(req repository.PageRequest) (repository.PageResult[domain.Product], error) {
	items := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		items = append(items, *p)
	}
	return repository.PageResult[domain.Product]{Items: items, Total: int64(len(items)), Page: 1, PageSize: len(items), TotalPages: 1}, nil
}

func (f *fakeProductRepo) Update(id uint, updates map[string]any) error {
	p, ok := f.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	if v, ok := updates["name"].(string); ok {
		p.Name = v
	}
	if v, ok := updates["description"].(string); ok {
		p.Description = v
	}
	if v, ok := updates["price"].(float64); ok {
		p.Price = v
	}
	return nil
}

func (f *fakeProductRepo) DeleteByID(id uint) error {
	delete(f.products, id)
	return nil
}

type fakeSender struct {
	sent []mail.ActivationMail
	err  error
}

func (f *fakeSender) SendActivation(_ context.Context, m mail.ActivationMail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, eventType, _ string, _ any) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, eventType)
	return nil
}

func (f *fakePublisher) Close() error { return nil }
