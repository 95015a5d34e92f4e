// Package remotehealth checks every registered remote entry on a schedule and
// publishes the results to a gRPC health server and a JSON report.
package remotehealth

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/louisbranch/mfhost/internal/platform/timeouts"
	"github.com/louisbranch/mfhost/internal/services/host/platform/httpx"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/louisbranch/mfhost/internal/services/host/remote"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// EntryChecker fetches a fresh remote entry for a module.
type EntryChecker interface {
	CheckEntry(ctx context.Context, key registry.ModuleKey) (remote.Entry, error)
}

// Status is the last check outcome for one remote.
type Status struct {
	Module    registry.ModuleKey `json:"module"`
	Healthy   bool               `json:"healthy"`
	Version   string             `json:"version,omitempty"`
	Kind      remote.Kind        `json:"kind,omitempty"`
	Error     string             `json:"error,omitempty"`
	CheckedAt time.Time          `json:"checked_at,omitzero"`
}

// Report is the JSON body served by the monitor.
type Report struct {
	Status  string   `json:"status"`
	Remotes []Status `json:"remotes"`
}

const (
	reportOK       = "ok"
	reportDegraded = "degraded"
	reportPending  = "pending"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the delay between check rounds.
func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// WithHealthServer publishes check results to hs.
func WithHealthServer(hs *health.Server) Option {
	return func(m *Monitor) {
		m.health = hs
	}
}

// WithLogger sets the logger used for status transitions.
func WithLogger(logger *log.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Monitor tracks remote availability.
type Monitor struct {
	keys     []registry.ModuleKey
	checker  EntryChecker
	interval time.Duration
	health   *health.Server
	logger   *log.Logger
	now      func() time.Time

	mu       sync.RWMutex
	statuses map[registry.ModuleKey]Status
}

// New builds a monitor over keys. Until the first round completes every
// remote reports NOT_SERVING.
func New(keys []registry.ModuleKey, checker EntryChecker, opts ...Option) (*Monitor, error) {
	if checker == nil {
		return nil, fmt.Errorf("checker is required")
	}
	m := &Monitor{
		keys:     append([]registry.ModuleKey(nil), keys...),
		checker:  checker,
		interval: timeouts.HealthCheckInterval,
		logger:   log.Default(),
		now:      time.Now,
		statuses: make(map[registry.ModuleKey]Status, len(keys)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.health != nil {
		m.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		for _, key := range m.keys {
			m.health.SetServingStatus(string(key), grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		}
	}
	return m, nil
}

// Check runs one check round over every remote in parallel.
func (m *Monitor) Check(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, key := range m.keys {
		group.Go(func() error {
			entry, err := m.checker.CheckEntry(groupCtx, key)
			if err != nil && groupCtx.Err() != nil {
				// Shutting down; keep the last real outcome.
				return nil
			}
			m.record(key, entry, err)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Run checks immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		if err := m.Check(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) record(key registry.ModuleKey, entry remote.Entry, err error) {
	status := Status{Module: key, Healthy: err == nil, CheckedAt: m.now()}
	if err != nil {
		status.Kind = remote.KindOf(err)
		status.Error = err.Error()
	} else {
		status.Version = entry.Version
	}

	m.mu.Lock()
	previous, seen := m.statuses[key]
	m.statuses[key] = status
	m.mu.Unlock()

	if !seen || previous.Healthy != status.Healthy {
		if status.Healthy {
			m.logger.Printf("remote healthy module=%s version=%s", key, status.Version)
		} else {
			m.logger.Printf("remote unhealthy module=%s kind=%s err=%s", key, status.Kind, status.Error)
		}
	}
	if m.health != nil {
		serving := grpc_health_v1.HealthCheckResponse_NOT_SERVING
		if status.Healthy {
			serving = grpc_health_v1.HealthCheckResponse_SERVING
		}
		m.health.SetServingStatus(string(key), serving)
	}
}

// Status returns the last check outcome for key.
func (m *Monitor) Status(key registry.ModuleKey) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[key]
	return status, ok
}

// Report summarizes every remote in registry order.
func (m *Monitor) Report() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := Report{Status: reportOK, Remotes: make([]Status, 0, len(m.keys))}
	for _, key := range m.keys {
		status, ok := m.statuses[key]
		if !ok {
			report.Remotes = append(report.Remotes, Status{Module: key})
			if report.Status == reportOK {
				report.Status = reportPending
			}
			continue
		}
		report.Remotes = append(report.Remotes, status)
		if !status.Healthy {
			report.Status = reportDegraded
		}
	}
	return report
}

// ServeHTTP writes the JSON report. The host keeps serving while remotes are
// down, so the status code is always 200.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	if err := httpx.WriteJSON(w, http.StatusOK, m.Report()); err != nil {
		m.logger.Printf("write health report: %v", err)
	}
}
