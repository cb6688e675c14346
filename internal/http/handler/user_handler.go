package handler

import (
	"log/slog"
	"net/http"

	"github.com/soukly/platform/internal/apperr"
	"github.com/soukly/platform/internal/http/middleware"
	"github.com/soukly/platform/internal/http/response"
	"github.com/soukly/platform/internal/service"
)

type UserHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewUserHandler(auth *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{auth: auth, logger: logger}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(r.Context(), w, h.logger, apperr.New(apperr.KindAuth, "missing access token"))
		return
	}
	user, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		response.Error(r.Context(), w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}
