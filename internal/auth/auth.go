// Package auth resolves the caller identity from bearer tokens.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/soundbite/engagement/internal/pkg/httputil"
	"github.com/soundbite/engagement/internal/pkg/logger"
)

// Identity is an authenticated caller.
type Identity struct {
	UserID string
}

type ctxKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity on ctx, or nil for anonymous callers.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}

// Middleware attaches an Identity when the request carries a valid bearer
// token. Requests without an Authorization header pass through anonymous.
// A header that is present but malformed or invalid gets a 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			httputil.Unauthorized(w, "malformed authorization header")
			return
		}

		id, err := a.Verify(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("bearer token rejected", "error", err, "path", r.URL.Path)
			httputil.Unauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
