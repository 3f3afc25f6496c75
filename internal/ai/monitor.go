package ai

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Result is the outcome of one probe run.
type Result struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Monitor runs the probe on a cron schedule and keeps the latest result.
type Monitor struct {
	prober *Prober
	cron   *cron.Cron

	mu   sync.RWMutex
	last *Result
}

// NewMonitor schedules prober according to schedule (standard five-field cron
// syntax or descriptors such as "@every 10m").
func NewMonitor(prober *Prober, schedule string) (*Monitor, error) {
	m := &Monitor{prober: prober, cron: cron.New()}
	if _, err := m.cron.AddFunc(schedule, m.RunOnce); err != nil {
		return nil, err
	}
	return m, nil
}

// Start begins running the schedule in the background.
func (m *Monitor) Start() {
	m.cron.Start()
}

// Stop halts the schedule and waits for a running probe to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

// RunOnce probes immediately and records the result.
func (m *Monitor) RunOnce() {
	res := Result{Status: StatusOK, CheckedAt: time.Now().UTC()}
	text, err := m.prober.Probe(context.Background())
	if err != nil {
		res.Status = StatusError
		res.Message = "AI health check failed: " + err.Error()
	} else {
		res.Message = "Gemini connection succeeded. Model response: " + text
	}

	m.mu.Lock()
	m.last = &res
	m.mu.Unlock()
}

// Last returns the latest result, if any probe has run.
func (m *Monitor) Last() (Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Result{}, false
	}
	return *m.last, true
}
