package handlers

import (
	"context"
	"net/http"

	"github.com/carmelita/carmelita-be/internal/ai"
	"github.com/carmelita/carmelita-be/internal/http/callable"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/models/dto"
)

// Prober runs the AI connectivity probe.
type Prober interface {
	Probe(ctx context.Context) (string, error)
}

// AIHealthHandler exposes the AI probe as a callable.
type AIHealthHandler struct {
	prober Prober
	log    *logging.Logger
}

// NewAIHealthHandler constructs the handler.
func NewAIHealthHandler(prober Prober, log *logging.Logger) *AIHealthHandler {
	return &AIHealthHandler{prober: prober, log: log}
}

// Register attaches the callable route.
func (h *AIHealthHandler) Register(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	mux.Handle("/callable/aiHealthCheck", wrap(http.HandlerFunc(h.handle)))
}

func (h *AIHealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		callable.MethodNotAllowed(w)
		return
	}
	text, err := h.prober.Probe(r.Context())
	if err != nil {
		h.log.WithContext(r.Context()).WithError(err).Error("AI health check failed")
		callable.Fail(w, callable.NewError(callable.Internal, "AI health check failed: "+err.Error()))
		return
	}
	h.log.WithContext(r.Context()).WithField("response", text).Info("AI health check succeeded")
	callable.Result(w, dto.HealthCheckResponse{
		Status:  ai.StatusOK,
		Message: "Gemini connection succeeded. Model response: " + text,
	})
}
