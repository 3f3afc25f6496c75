package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/metrics"
)

const (
	// HealthPrompt is the fixed prompt sent by the health probe.
	HealthPrompt = "What is your name? Respond only with the name 'Carmelita'."
	// ExpectedName must appear in the probe response.
	ExpectedName = "Carmelita"

	StatusOK    = "OK"
	StatusError = "ERROR"
)

var (
	// ErrNotConfigured is returned when no provider client exists.
	ErrNotConfigured = errors.New("AI provider is not configured")
	// ErrUnexpectedResponse is returned when the reply lacks ExpectedName.
	ErrUnexpectedResponse = errors.New("Gemini response was not the expected one")
)

// Prober checks that the AI provider answers as expected.
type Prober struct {
	gen     TextGenerator
	log     *logging.Logger
	timeout time.Duration
}

// NewProber creates a prober. gen may be nil when no provider is configured.
func NewProber(gen TextGenerator, log *logging.Logger) *Prober {
	return &Prober{gen: gen, log: log, timeout: 30 * time.Second}
}

// Probe sends HealthPrompt and returns the trimmed response text when it
// contains ExpectedName.
func (p *Prober) Probe(ctx context.Context) (string, error) {
	if p.gen == nil {
		metrics.SetAIProbe(false)
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.gen.GenerateText(ctx, HealthPrompt)
	if err != nil {
		metrics.SetAIProbe(false)
		p.log.WithContext(ctx).WithError(err).Error("AI health probe: provider call failed")
		return "", fmt.Errorf("provider call failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if !strings.Contains(text, ExpectedName) {
		metrics.SetAIProbe(false)
		p.log.WithContext(ctx).WithField("response", text).Error("AI health probe: unexpected response")
		return text, ErrUnexpectedResponse
	}

	metrics.SetAIProbe(true)
	p.log.WithContext(ctx).WithField("response", text).Info("AI health probe succeeded")
	return text, nil
}
