// Package handler translates HTTP requests into service calls. Handlers do
// no business logic; they decode, delegate and encode.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/soukly/platform/internal/http/middleware"
	"github.com/soukly/platform/internal/http/response"
	"github.com/soukly/platform/internal/observability"
	"github.com/soukly/platform/internal/security"
	"github.com/soukly/platform/internal/service"
)

type AuthHandler struct {
	registration *service.RegistrationService
	auth         *service.AuthService
	cookies      *security.CookieManager
	logger       *slog.Logger
}

func NewAuthHandler(
	registration *service.RegistrationService,
	auth *service.AuthService,
	cookies *security.CookieManager,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{registration: registration, auth: auth, cookies: cookies, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := response.DecodeJSON(r, &in); err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	if err := h.registration.Register(r.Context(), in); err != nil {
		observability.RecordRegistrationRequest(r.Context(), "rejected")
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	observability.RecordRegistrationRequest(r.Context(), "accepted")
	response.JSON(w, http.StatusCreated, map[string]string{
		"message": "verification code sent",
	})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := response.DecodeJSON(r, &in); err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	user, err := h.registration.Verify(r.Context(), in.Email, in.Code)
	if err != nil {
		observability.RecordOTPVerification(r.Context(), "failure")
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	observability.RecordOTPVerification(r.Context(), "success")
	observability.Audit(r, "user.registered", "user_id", user.ID)
	response.JSON(w, http.StatusCreated, map[string]any{
		"message": "account created",
		"user":    user.Public(),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := response.DecodeJSON(r, &in); err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	user, pair, err := h.auth.Login(r.Context(), in, clientInfo(r))
	if err != nil {
		observability.RecordLoginAttempt(r.Context(), "failure")
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	observability.RecordLoginAttempt(r.Context(), "success")
	observability.Audit(r, "user.login", "user_id", user.ID)
	h.cookies.SetTokenCookies(w, pair.AccessToken, pair.RefreshToken, pair.AccessTTL, pair.RefreshTTL)
	response.JSON(w, http.StatusOK, map[string]any{
		"message": "logged in",
		"user":    user.Public(),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := security.GetCookie(r, security.RefreshTokenCookie)
	pair, err := h.auth.Refresh(r.Context(), raw, clientInfo(r))
	if err != nil {
		observability.RecordSessionRefresh(r.Context(), "failure")
		// A dead refresh token means the session is over; leave no
		// stale cookies behind.
		h.cookies.ClearTokenCookies(w)
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	observability.RecordSessionRefresh(r.Context(), "success")
	h.cookies.SetTokenCookies(w, pair.AccessToken, pair.RefreshToken, pair.AccessTTL, pair.RefreshTTL)
	response.JSON(w, http.StatusOK, map[string]string{
		"message": "session refreshed",
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := security.GetCookie(r, security.RefreshTokenCookie)
	if err := h.auth.Logout(r.Context(), raw); err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	h.cookies.ClearTokenCookies(w)
	observability.Audit(r, "user.logout")
	response.JSON(w, http.StatusOK, map[string]string{
		"message": "logged out",
	})
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{
		UserAgent: r.UserAgent(),
		IP:        middleware.ClientIP(r),
	}
}
