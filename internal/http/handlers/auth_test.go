package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carmelita/carmelita-be/internal/auth"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/models"
	"github.com/carmelita/carmelita-be/internal/storage/memory"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func postJSON(t *testing.T, mux http.Handler, path string, payload any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestRegisterAndLogin(t *testing.T) {
	store := memory.New()
	tokens := auth.NewTokenManager("secret", "carmelita-backend", time.Hour)
	mux := http.NewServeMux()
	NewAuthHandler(store, tokens, 25, logging.Discard()).Register(mux)

	rec, env := postJSON(t, mux, "/register", map[string]string{
		"email":        "Ana@Example.com",
		"password":     "s3cretpass",
		"name":         "Ana",
		"businessType": "retail",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.User
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "ana@example.com", created.Email)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.EqualValues(t, 25, created.Credits)
	assert.NotContains(t, rec.Body.String(), "s3cretpass")

	rec, env = postJSON(t, mux, "/login", map[string]string{"email": "ana@example.com", "password": "s3cretpass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, created.ID, login.User.ID)
	assert.NotNil(t, login.User.LastLogin)

	claims, err := tokens.Parse(login.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.Subject)
}

func TestRegisterErrors(t *testing.T) {
	store := memory.New()
	mux := http.NewServeMux()
	NewAuthHandler(store, auth.NewTokenManager("secret", "iss", time.Hour), 0, logging.Discard()).Register(mux)

	rec, _ := postJSON(t, mux, "/register", map[string]string{"email": "a@b.c", "password": "longenough", "name": "A"})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name    string
		payload map[string]string
		code    int
	}{
		{name: "duplicate email", payload: map[string]string{"email": "A@B.C", "password": "longenough", "name": "B"}, code: http.StatusConflict},
		{name: "short password", payload: map[string]string{"email": "x@y.z", "password": "short", "name": "X"}, code: http.StatusBadRequest},
		{name: "missing name", payload: map[string]string{"email": "x@y.z", "password": "longenough"}, code: http.StatusBadRequest},
		{name: "bad email", payload: map[string]string{"email": "nope", "password": "longenough", "name": "X"}, code: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := postJSON(t, mux, "/register", tc.payload)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.code, env.Code)
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := memory.New()
	mux := http.NewServeMux()
	NewAuthHandler(store, auth.NewTokenManager("secret", "iss", time.Hour), 0, logging.Discard()).Register(mux)
	rec, _ := postJSON(t, mux, "/register", map[string]string{"email": "a@b.c", "password": "longenough", "name": "A"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = postJSON(t, mux, "/login", map[string]string{"email": "a@b.c", "password": "wrongpassword"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = postJSON(t, mux, "/login", map[string]string{"email": "ghost@b.c", "password": "longenough"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = postJSON(t, mux, "/login", map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
