package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carmelita/carmelita-be/internal/ai"
	"github.com/carmelita/carmelita-be/internal/credits"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/models"
	"github.com/carmelita/carmelita-be/internal/storage/memory"
)

func newProfileMux(t *testing.T, balance int64) (*http.ServeMux, *memory.Store, *credits.Ledger, models.User) {
	t.Helper()
	ledger, store, user := newLedgerWithUser(t, balance)
	mux := http.NewServeMux()
	NewProfileHandler(store, ledger, testCatalog(t), logging.Discard()).Register(mux)
	return mux, store, ledger, user
}

func TestGetMe(t *testing.T) {
	mux, _, _, user := newProfileMux(t, 42)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/me", nil), user.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var got models.User
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, user.ID, got.ID)
	assert.EqualValues(t, 42, got.Credits)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfileKeepsCredits(t *testing.T) {
	mux, store, _, user := newProfileMux(t, 42)

	body, err := json.Marshal(map[string]any{
		"name":         "Ana María",
		"businessType": "services",
		"credits":      999999,
		"financialGoals": []map[string]any{
			{"id": "g1", "name": "Fondo de emergencia", "targetAmount": 1000, "currentAmount": 250, "progress": 0.25},
		},
	})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPut, "/me", bytes.NewReader(body)), user.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated, err := store.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana María", updated.Name)
	assert.Equal(t, "services", updated.BusinessType)
	require.Len(t, updated.FinancialGoals, 1)
	assert.Equal(t, "g1", updated.FinancialGoals[0].ID)
	assert.EqualValues(t, 42, updated.Credits)
}

func TestUpdateProfileValidation(t *testing.T) {
	mux, _, _, user := newProfileMux(t, 0)

	for name, payload := range map[string]string{
		"invalid json":    `{`,
		"empty name":      `{"name":"  "}`,
		"goal without id": `{"name":"Ana","financialGoals":[{"name":"x","progress":0.5}]}`,
		"progress > 1":    `{"name":"Ana","financialGoals":[{"id":"g","progress":1.5}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(payload)), user.ID))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTransactionsHistory(t *testing.T) {
	mux, _, ledger, user := newProfileMux(t, 100)
	_, err := ledger.Redeem(context.Background(), credits.Redemption{UserID: user.ID, Cost: 10, ResourceType: "TAX_CALC"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/me/transactions", nil), user.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var history []models.CreditTransaction
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, models.CreditRedemption, history[0].Type)
}

func TestPricingList(t *testing.T) {
	mux, _, _, _ := newProfileMux(t, 0)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pricing", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"basic"`)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return assert.AnError }

type fixedProbes struct{ res ai.Result }

func (f fixedProbes) Last() (ai.Result, bool) { return f.res, true }

func TestHealth(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(time.Now(), memory.New(), fixedProbes{res: ai.Result{Status: ai.StatusOK}}).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "ai")

	degraded := http.NewServeMux()
	NewHealthHandler(time.Now(), failingPinger{}, nil).Register(degraded)
	rec = httptest.NewRecorder()
	degraded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
