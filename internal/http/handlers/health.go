package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/carmelita/carmelita-be/internal/ai"
	"github.com/carmelita/carmelita-be/internal/http/respond"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeReporter exposes the most recent scheduled AI probe.
type ProbeReporter interface {
	Last() (ai.Result, bool)
}

// HealthHandler returns uptime and basic status.
type HealthHandler struct {
	startedAt time.Time
	store     Pinger
	probes    ProbeReporter
}

// NewHealthHandler creates a health endpoint handler. probes may be nil when
// no probe schedule is configured.
func NewHealthHandler(startedAt time.Time, store Pinger, probes ProbeReporter) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, store: store, probes: probes}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, code := "ok", http.StatusOK
	storeStatus := "ok"
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
		storeStatus = err.Error()
	}

	body := map[string]any{
		"status": status,
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
		"store":  storeStatus,
	}
	if h.probes != nil {
		if last, ok := h.probes.Last(); ok {
			body["ai"] = last
		}
	}
	respond.Raw(w, code, body)
}
