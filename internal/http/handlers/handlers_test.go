package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carmelita/carmelita-be/internal/credits"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/middleware"
	"github.com/carmelita/carmelita-be/internal/models"
	"github.com/carmelita/carmelita-be/internal/storage/memory"
)

func passthrough(h http.Handler) http.Handler { return h }

func newLedgerWithUser(t *testing.T, balance int64) (*credits.Ledger, *memory.Store, models.User) {
	t.Helper()
	store := memory.New()
	user, err := store.CreateUser(context.Background(), models.User{
		Email:   "ana@example.com",
		Name:    "Ana",
		Role:    models.RoleUser,
		Credits: balance,
	})
	require.NoError(t, err)
	return credits.NewLedger(store, logging.Discard()), store, user
}

func balanceOf(t *testing.T, store *memory.Store, userID string) int64 {
	t.Helper()
	user, err := store.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return user.Credits
}

func callableRequest(t *testing.T, path string, data any) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]any{"data": data})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, userID string) *http.Request {
	ctx := middleware.WithIdentity(req.Context(), middleware.Identity{UserID: userID, Role: models.RoleUser})
	return req.WithContext(ctx)
}

type callableResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeCallable(t *testing.T, rec *httptest.ResponseRecorder) callableResponse {
	t.Helper()
	var out callableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
