package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/carmelita/carmelita-be/internal/credits"
	"github.com/carmelita/carmelita-be/internal/http/respond"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/middleware"
	"github.com/carmelita/carmelita-be/internal/models"
	"github.com/carmelita/carmelita-be/internal/pricing"
	"github.com/carmelita/carmelita-be/internal/storage"
)

const historyLimit = 50

// ProfileHandler serves the caller's own user record, credit history and
// the public pricing catalog.
type ProfileHandler struct {
	store   storage.UserStore
	ledger  *credits.Ledger
	catalog *pricing.Catalog
	log     *logging.Logger
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(store storage.UserStore, ledger *credits.Ledger, catalog *pricing.Catalog, log *logging.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, ledger: ledger, catalog: catalog, log: log}
}

// Register attaches the profile routes to the mux.
func (h *ProfileHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/me", h.handleMe)
	mux.HandleFunc("/me/transactions", h.handleTransactions)
	mux.HandleFunc("/pricing", h.handlePricing)
}

func (h *ProfileHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := h.store.FindByID(r.Context(), id.UserID)
		if err != nil {
			h.userError(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, "ok", user)
	case http.MethodPut:
		var profile models.Profile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		profile.Name = strings.TrimSpace(profile.Name)
		profile.BusinessType = strings.TrimSpace(profile.BusinessType)
		if profile.Name == "" {
			respond.Error(w, http.StatusBadRequest, "name is required")
			return
		}
		for _, g := range profile.FinancialGoals {
			if strings.TrimSpace(g.ID) == "" || g.Progress < 0 || g.Progress > 1 {
				respond.Error(w, http.StatusBadRequest, "each goal needs an id and a progress between 0 and 1")
				return
			}
		}
		user, err := h.store.UpdateProfile(r.Context(), id.UserID, profile)
		if err != nil {
			h.userError(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, "profile updated", user)
	default:
		w.Header().Set("Allow", "GET, PUT")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProfileHandler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	history, err := h.ledger.History(r.Context(), id.UserID, historyLimit)
	if err != nil {
		h.log.WithContext(r.Context()).WithError(err).Error("list credit transactions failed")
		respond.Error(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if history == nil {
		history = []models.CreditTransaction{}
	}
	respond.JSON(w, http.StatusOK, "ok", history)
}

func (h *ProfileHandler) handlePricing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", h.catalog.List())
}

func (h *ProfileHandler) userError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "user not found")
		return
	}
	h.log.WithContext(r.Context()).WithError(err).Error("user lookup failed")
	respond.Error(w, http.StatusInternalServerError, "failed to load user")
}
