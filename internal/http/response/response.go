// Package response is the single place JSON leaves the process. Handlers
// never build error bodies themselves; they hand the error here and the
// taxonomy decides the status.
package response

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/soukly/platform/internal/apperr"
)

type ErrorBody struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are gone; nothing left to do but note it.
		slog.Error("response encoding failed", "error", err)
	}
}

// Error translates any error into the wire shape. Internal errors are logged
// with their cause and surfaced with a generic message; taxonomy errors pass
// their message and details through.
func Error(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		logger.ErrorContext(ctx, "request failed", "error", err)
	} else {
		logger.DebugContext(ctx, "request rejected", "kind", appErr.Kind.String(), "message", appErr.Message)
	}
	JSON(w, appErr.Kind.Status(), ErrorBody{Message: appErr.Message, Details: appErr.Details})
}

// DecodeJSON reads a request body into dst with unknown fields rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}
