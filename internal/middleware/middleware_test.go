package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carmelita/carmelita-be/internal/auth"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/models"
)

func identityEcho(t *testing.T) (http.Handler, *Identity) {
	t.Helper()
	var seen Identity
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), &seen
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "carmelita-backend", time.Hour)
	token, err := tokens.Generate(models.User{ID: "u-1", Email: "a@b.c", Role: models.RoleUser})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "valid bearer", header: "Bearer " + token, want: "u-1"},
		{name: "lowercase scheme", header: "bearer " + token, want: "u-1"},
		{name: "no header"},
		{name: "wrong scheme", header: "Basic " + token},
		{name: "garbage token", header: "Bearer abc.def.ghi"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, seen := identityEcho(t)
			req := httptest.NewRequest(http.MethodPost, "/callable/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(tokens, logging.Discard(), next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tc.want, seen.UserID)
		})
	}
}

func TestRateLimiterPerCaller(t *testing.T) {
	rl := NewRateLimiter(1, 2, logging.Discard(), func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(remote string, userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = remote
		if userID != "" {
			req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: userID}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000", ""))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001", ""))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002", ""))

	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000", ""))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1003", "u-9"))
}

func TestLoggingSetsTraceID(t *testing.T) {
	var traceID string
	h := Logging(logging.Discard(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = logging.GetTraceID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, traceID, rec.Header().Get("X-Trace-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "given-trace")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given-trace", traceID)
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORS([]string{"https://app.carmelita.test"}, next)

	req := httptest.NewRequest(http.MethodOptions, "/callable/redeemCredits", nil)
	req.Header.Set("Origin", "https://app.carmelita.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.carmelita.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
