package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/soukly/platform/internal/apperr"
	"github.com/soukly/platform/internal/http/response"
	"github.com/soukly/platform/internal/security"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// Auth accepts the access token from the session cookie or, for non-browser
// clients, a bearer Authorization header. The cookie wins when both are set.
func Auth(jwtMgr *security.JWTManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, security.AccessTokenCookie)
			if raw == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					raw = strings.TrimSpace(auth[7:])
				}
			}
			if raw == "" {
				response.Error(r.Context(), w, logger, apperr.New(apperr.KindAuth, "missing access token"))
				return
			}
			claims, err := jwtMgr.ParseAccessToken(raw)
			if err != nil {
				response.Error(r.Context(), w, logger, apperr.New(apperr.KindAuth, "invalid or expired access token"))
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				response.Error(r.Context(), w, logger, apperr.New(apperr.KindAuth, "invalid or expired access token"))
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDContextKey).(uint)
	return id, ok
}
