package schedule

import (
	"context"
	"sync"
	"time"

	appLog "wodcal/internal/log"
	"wodcal/internal/metrics"
)

// ProbeStatus is a snapshot of the last readiness probe.
type ProbeStatus struct {
	Ready     bool      `json:"ready"`
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Probe checks that the upstream agenda for the current week can be
// fetched and read. It runs off the request path, typically on a cron
// schedule.
type Probe struct {
	fetcher *Fetcher
	loc     *time.Location
	now     func() time.Time

	mu     sync.RWMutex
	status ProbeStatus
}

func NewProbe(f *Fetcher, loc *time.Location) *Probe {
	return &Probe{fetcher: f, loc: loc, now: time.Now}
}

// Run fetches the current week once and records the outcome.
func (p *Probe) Run(ctx context.Context) error {
	now := p.now().In(p.loc)
	windows, err := Plan(PlanRequest{Weeks: 1, Today: now})
	if err == nil {
		_, err = p.fetcher.Fetch(ctx, windows)
	}

	p.mu.Lock()
	p.status.LastRun = now
	p.status.Ready = err == nil
	p.status.LastError = ""
	if err != nil {
		p.status.LastError = err.Error()
	}
	p.mu.Unlock()

	if err != nil {
		appLog.Warn("readiness probe failed", "err", err)
		return err
	}
	metrics.RecordProbeSuccess(now)
	appLog.Debug("readiness probe ok")
	return nil
}

func (p *Probe) Status() ProbeStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}
