// Package service holds the business rules between the HTTP handlers and the
// stores. Services validate input, own the error taxonomy, and never touch
// http.Request or http.ResponseWriter.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soukly/platform/internal/apperr"
	"github.com/soukly/platform/internal/domain"
	"github.com/soukly/platform/internal/events"
	mailer "github.com/soukly/platform/internal/mail"
	"github.com/soukly/platform/internal/otp"
	"github.com/soukly/platform/internal/repository"
	"github.com/soukly/platform/internal/security"
)

type RegistrationConfig struct {
	OTPLength     int
	OTPTTL        time.Duration
	RequestMax    int
	RequestWindow time.Duration
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegistrationService drives the request-code / verify-code flow. Nothing is
// written to the relational store until the code is verified; until then the
// whole registration lives in the OTP cache.
type RegistrationService struct {
	users     repository.UserRepository
	store     otp.Store
	sender    mailer.Sender
	publisher events.Publisher
	logger    *slog.Logger
	cfg       RegistrationConfig
}

func NewRegistrationService(
	users repository.UserRepository,
	store otp.Store,
	sender mailer.Sender,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg RegistrationConfig,
) *RegistrationService {
	return &RegistrationService{
		users:     users,
		store:     store,
		sender:    sender,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// Register validates the signup, rate-limits code requests per email, stores
// the pending registration and emails the code. Calling it again for the same
// email replaces the previous code and restarts the TTL.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) error {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if err := validateRegisterInput(in); err != nil {
		return err
	}

	if _, err := s.users.FindByEmail(in.Email); err == nil {
		return apperr.New(apperr.KindConflict, "an account with this email already exists")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return apperr.Wrap(apperr.KindInternal, "could not check existing accounts", err)
	}

	count, err := s.store.BumpRequestCount(ctx, in.Email, s.cfg.RequestWindow)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not track verification requests", err)
	}
	if count > int64(s.cfg.RequestMax) {
		return apperr.New(apperr.KindRateLimit, "too many verification codes requested, try again later")
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not process password", err)
	}

	code, err := otp.GenerateCode(s.cfg.OTPLength)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not generate verification code", err)
	}

	pending := domain.PendingRegistration{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: passwordHash,
		OTP:          code,
		IssuedAt:     time.Now().UTC(),
	}
	if err := s.store.SavePending(ctx, pending, s.cfg.OTPTTL); err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not store pending registration", err)
	}

	// Mail delivery is the one step after the pending record exists; a
	// transport failure here is an operational alert, not a caller error,
	// since the user can simply request a new code.
	if err := s.sender.SendActivation(ctx, mailer.ActivationMail{
		To:        in.Email,
		Name:      in.Name,
		Code:      code,
		ExpiresIn: s.cfg.OTPTTL,
	}); err != nil {
		s.logger.ErrorContext(ctx, "activation mail delivery failed",
			"email", in.Email, "error", err)
	}

	if err := s.publisher.Publish(ctx, events.TypeRegistrationRequested, in.Email, map[string]string{
		"email": in.Email,
	}); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			"type", events.TypeRegistrationRequested, "error", err)
	}

	return nil
}

// Verify checks the submitted code against the pending registration and, on
// match, promotes it into a verified user account. The code is single use:
// the pending record is deleted on success.
func (s *RegistrationService) Verify(ctx context.Context, email, code string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || code == "" {
		return nil, apperr.New(apperr.KindValidation, "email and code are required")
	}

	pending, err := s.store.GetPending(ctx, email)
	if err != nil {
		if errors.Is(err, otp.ErrNoPending) {
			return nil, apperr.New(apperr.KindValidation, "invalid or expired verification code")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "could not load pending registration", err)
	}

	if subtle.ConstantTimeCompare([]byte(pending.OTP), []byte(code)) != 1 {
		return nil, apperr.New(apperr.KindValidation, "invalid or expired verification code")
	}

	user := &domain.User{
		Email:        pending.Email,
		Name:         pending.Name,
		PasswordHash: pending.PasswordHash,
		Verified:     true,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(user); err != nil {
		// A concurrent verification for the same email can lose the
		// insert race on the unique index.
		if isDuplicateKey(err) {
			return nil, apperr.New(apperr.KindConflict, "an account with this email already exists")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "could not create account", err)
	}

	if err := s.store.DeletePending(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "could not delete pending registration", "email", email, "error", err)
	}
	if err := s.store.ResetRequestCount(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "could not reset request counter", "email", email, "error", err)
	}

	if err := s.publisher.Publish(ctx, events.TypeUserRegistered, user.Email, map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	}); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			"type", events.TypeUserRegistered, "error", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func validateRegisterInput(in RegisterInput) error {
	details := map[string]string{}
	if n := utf8.RuneCountInString(in.Name); n == 0 || n > 255 {
		details["name"] = "must not be empty"
	}
	if !isValidEmail(in.Email) {
		details["email"] = "must be a valid email address"
	}
	if in.Password == "" || len(in.Password) > 512 {
		details["password"] = "must not be empty"
	}
	if len(details) > 0 {
		return apperr.New(apperr.KindValidation, "invalid registration input").WithDetails(details)
	}
	return nil
}

func isValidEmail(email string) bool {
	if email == "" || len(email) > 255 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isDuplicateKey does substring matching because the sqlite and postgres
// drivers surface unique violations as different concrete types.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "23505")
}
