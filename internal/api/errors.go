package api

import (
	"errors"
	"net/http"

	"github.com/soundbite/engagement/internal/domain"
	"github.com/soundbite/engagement/internal/pkg/httputil"
	"github.com/soundbite/engagement/internal/pkg/logger"
)

// statusFor maps a service error onto an HTTP status by its domain kind.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err to the client. 4xx messages are surfaced as-is;
// anything else is logged with op and replaced by a generic message.
func respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "op", op, "path", r.URL.Path, "error", err)
		httputil.Error(w, code, "internal server error")
		return
	}
	httputil.Error(w, code, err.Error())
}
