package handler

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
	"github.com/soukly/platform/internal/security"
	"github.com/soukly/platform/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memUserRepo struct {
	byEmail map[string]*domain.User
	nextID  uint
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: map[string]*domain.User{}, nextID: 1}
}

func (m *memUserRepo) FindByID(id uint) (*domain.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUserRepo) FindByEmail(email string) (*domain.User, error) {
	u, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserRepo) Create(user *domain.User) error {
	if _, exists := m.byEmail[user.Email]; exists {
		return errors.New("UNIQUE constraint failed: users.email")
	}
	user.ID = m.nextID
	m.nextID++
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUserRepo) TouchLastLogin(id uint, at time.Time) error { return nil }

type memSessionRepo struct {
	sessions map[string]*domain.Session
	nextID   uint
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*domain.Session{}, nextID: 1}
}

func (m *memSessionRepo) Create(s *domain.Session) error {
	s.ID = m.nextID
	m.nextID++
	m.sessions[s.RefreshTokenHash] = s
	return nil
}

func (m *memSessionRepo) FindValidByHash(hash string) (*domain.Session, error) {
	s, ok := m.sessions[hash]
	if !ok || s.RevokedAt != nil || s.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessionRepo) RevokeByHash(hash string) error {
	if s, ok := m.sessions[hash]; ok && s.RevokedAt == nil {
		now := time.Now().UTC()
		s.RevokedAt = &now
	}
	return nil
}

func (m *memSessionRepo) RevokeByUserID(userID uint) error {
	now := time.Now().UTC()
	for _, s := range m.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (m *memSessionRepo) CleanupExpired() (int64, error) { return 0, nil }

type memProductRepo struct {
	products map[uint]*domain.Product
	nextID   uint
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: map[uint]*domain.Product{}, nextID: 1}
}

func (m *memProductRepo) Create(p *domain.Product) error {
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = p
	return nil
}

func (m *memProductRepo) FindByID(id uint) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *memProductRepo) ListPaged(req repository.PageRequest) (repository.PageResult[domain.Product], error) {
	items := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		items = append(items, *p)
	}
	return repository.PageResult[domain.Product]{Items: items, Total: int64(len(items)), Page: 1, PageSize: len(items), TotalPages: 1}, nil
}

func (m *memProductRepo) Update(id uint, updates map[string]any) error {
	p, ok := m.products[id]
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

func (m *memProductRepo) DeleteByID(id uint) error {
	delete(m.products, id)
	return nil
}

type capturingSender struct {
	sent []mail.ActivationMail
}

func (c *capturingSender) SendActivation(_ context.Context, m mail.ActivationMail) error {
	c.sent = append(c.sent, m)
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, any) error { return nil }
func (nopPublisher) Close() error                                       { return nil }

// testEnv wires real services over in-memory stores, the way cmd/api does
// against the real backends.
type testEnv struct {
	registration *service.RegistrationService
	auth         *service.AuthService
	catalog      *service.CatalogService
	jwt          *security.JWTManager
	cookies      *security.CookieManager
	sender       *capturingSender
	users        *memUserRepo
	redis        *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := newMemUserRepo()
	sender := &capturingSender{}
	logger := testLogger()
	jwtMgr := security.NewJWTManager("platform", "platform-api", "access-secret", "refresh-secret")

	registration := service.NewRegistrationService(users, otp.NewRedisStore(client), sender, nopPublisher{}, logger, service.RegistrationConfig{
		OTPLength:     4,
		OTPTTL:        5 * time.Minute,
		RequestMax:    5,
		RequestWindow: 15 * time.Minute,
	})
	tokens := service.NewTokenService(newMemSessionRepo(), jwtMgr, "pepper", time.Hour, 7*24*time.Hour, logger)
	auth := service.NewAuthService(users, tokens, nopPublisher{}, logger)
	catalog := service.NewCatalogService(newMemProductRepo(), nopPublisher{}, logger)

	return &testEnv{
		registration: registration,
		auth:         auth,
		catalog:      catalog,
		jwt:          jwtMgr,
		cookies:      security.NewCookieManager("", false, "strict"),
		sender:       sender,
		users:        users,
		redis:        mr,
	}
}
