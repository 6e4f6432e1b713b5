// Package monitor probes the query layer on a cron schedule and publishes
// the result as a gauge and a status the health endpoint reports.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"intakedash/internal/telemetry"
)

// probeTimeout bounds one health probe
const probeTimeout = 10 * time.Second

// Checker is anything with a health check
type Checker interface {
	Health(ctx context.Context) error
}

// Status is the outcome of the last probe
type Status struct {
	Up        bool      `json:"up"`
	LastCheck time.Time `json:"last_check"`
	Error     string    `json:"error,omitempty"`
}

// Monitor runs Checker on a schedule
type Monitor struct {
	checker   Checker
	schedule  string
	log       *zap.Logger
	scheduler *cron.Cron

	mu     sync.RWMutex
	status Status
}

// New validates schedule (standard five-field cron) and returns a stopped Monitor
func New(checker Checker, schedule string, log *zap.Logger) (*Monitor, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid health schedule %q: %w", schedule, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{checker: checker, schedule: schedule, log: log}, nil
}

// Check probes once and records the result
func (m *Monitor) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := m.checker.Health(ctx)

	st := Status{Up: err == nil, LastCheck: time.Now()}
	if err != nil {
		st.Error = err.Error()
		telemetry.QueryLayerUp.Set(0)
	} else {
		telemetry.QueryLayerUp.Set(1)
	}

	m.mu.Lock()
	wasUp := m.status.Up
	first := m.status.LastCheck.IsZero()
	m.status = st
	m.mu.Unlock()

	if first || wasUp != st.Up {
		if st.Up {
			m.log.Info("Query layer is up")
		} else {
			m.log.Warn("Query layer is down", zap.Error(err))
		}
	}
	return err
}

// Status returns the last probe result
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Start probes once, then on every tick of the schedule
func (m *Monitor) Start(ctx context.Context) error {
	m.Check(ctx)

	m.scheduler = cron.New()
	if _, err := m.scheduler.AddFunc(m.schedule, func() {
		m.Check(context.Background())
	}); err != nil {
		return err
	}
	m.scheduler.Start()
	m.log.Info("Health monitor started", zap.String("schedule", m.schedule))
	return nil
}

// Stop halts the schedule and waits for a running probe
func (m *Monitor) Stop() {
	if m.scheduler != nil {
		done := m.scheduler.Stop()
		<-done.Done()
	}
}
