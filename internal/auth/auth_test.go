package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userID  = "5f1c2b7e-3a0d-4c8e-9b61-2d4f7a9e0c13"
	otherID = "a3e9d2c4-6b1f-4f57-8d02-7c5b1e4a9f60"
)

func TestVerify_RoundTrip(t *testing.T) {
	a := NewAuthenticator("test-secret", "soundbite")
	token, err := a.Issue(userID, time.Hour)
	require.NoError(t, err)

	id, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, id.UserID)
}

func TestVerify_NormalizesSubject(t *testing.T) {
	a := NewAuthenticator("test-secret", "")
	token, err := a.Issue("5F1C2B7E-3A0D-4C8E-9B61-2D4F7A9E0C13", time.Hour)
	require.NoError(t, err)

	id, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, id.UserID)
}

func TestVerify_Rejects(t *testing.T) {
	a := NewAuthenticator("test-secret", "soundbite")

	expired, err := a.Issue(userID, -time.Minute)
	require.NoError(t, err)
	otherKey, err := NewAuthenticator("other-secret", "soundbite").Issue(userID, time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewAuthenticator("test-secret", "elsewhere").Issue(userID, time.Hour)
	require.NoError(t, err)
	noSubject, err := a.Issue("", time.Hour)
	require.NoError(t, err)
	providerSubject, err := a.Issue("auth0|abc", time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong key":    otherKey,
		"wrong issuer": otherIssuer,
		"no subject":   noSubject,
		"non-uuid sub": providerSubject,
		"garbage":      "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestMiddleware(t *testing.T) {
	a := NewAuthenticator("test-secret", "")
	valid, err := a.Issue(otherID, time.Hour)
	require.NoError(t, err)
	providerSubject, err := a.Issue("auth0|abc", time.Hour)
	require.NoError(t, err)

	var seen *Identity
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		status   int
		wantUser string
	}{
		{"anonymous", "", http.StatusNoContent, ""},
		{"valid bearer", "Bearer " + valid, http.StatusNoContent, otherID},
		{"lowercase scheme", "bearer " + valid, http.StatusNoContent, otherID},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, ""},
		{"non-uuid subject", "Bearer " + providerSubject, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/v1/rails/for_you", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.wantUser == "" {
				assert.Nil(t, seen)
			} else {
				require.NotNil(t, seen)
				assert.Equal(t, tt.wantUser, seen.UserID)
			}
		})
	}
}
