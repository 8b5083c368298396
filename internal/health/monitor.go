// Package health probes the gateway's components on a fixed schedule and
// derives an aggregate status with failure-count hysteresis, so one
// transient failure never flips the published status while sustained
// degradation still surfaces quickly.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/JMAlloway/Check-sub001/internal/model"
	"github.com/JMAlloway/Check-sub001/internal/registry"
)

// Probe checks one component's liveness.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// ComponentHealth is the published per-component state.
type ComponentHealth struct {
	Status              string     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LatencyMs           int64      `json:"latency_ms"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
}

// Snapshot is the aggregate view served on /healthz.
type Snapshot struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

var (
	probeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_health_probe_duration_seconds",
		Help:    "Health probe latency by component",
		Buckets: prometheus.DefBuckets,
	}, []string{"component"})
	componentStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_component_health_status",
		Help: "Component health (1=healthy, 0.5=degraded, 0=unhealthy)",
	}, []string{"component"})
)

// Monitor runs probes on its own timer; requests never block on it, and it
// writes only the connector's health fields.
type Monitor struct {
	logger             zerolog.Logger
	probes             []Probe
	interval           time.Duration
	degradedThreshold  int
	unhealthyThreshold int

	connectorID string
	store       registry.ConnectorStore

	mu     sync.RWMutex
	states map[string]*ComponentHealth

	now func() time.Time
}

func NewMonitor(logger zerolog.Logger, connectorID string, store registry.ConnectorStore, probes []Probe, interval time.Duration, degradedThreshold, unhealthyThreshold int) *Monitor {
	m := &Monitor{
		logger:             logger.With().Str("component", "health-monitor").Logger(),
		probes:             probes,
		interval:           interval,
		degradedThreshold:  degradedThreshold,
		unhealthyThreshold: unhealthyThreshold,
		connectorID:        connectorID,
		store:              store,
		states:             make(map[string]*ComponentHealth),
		now:                time.Now,
	}
	for _, p := range m.probes {
		m.states[p.Name] = &ComponentHealth{Status: model.StatusUnknown}
	}
	return m
}

// Run probes all components at the configured interval until ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.ProbeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ProbeAll(ctx)
		}
	}
}

// ProbeAll runs every probe concurrently, applies the hysteresis state
// machine, and persists the connector's aggregate status.
func (m *Monitor) ProbeAll(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	results := make([]error, len(m.probes))
	latencies := make([]time.Duration, len(m.probes))

	g, gctx := errgroup.WithContext(probeCtx)
	for i, p := range m.probes {
		g.Go(func() error {
			start := m.now()
			results[i] = p.Check(gctx)
			latencies[i] = m.now().Sub(start)
			probeLatency.WithLabelValues(p.Name).Observe(latencies[i].Seconds())
			return nil
		})
	}
	_ = g.Wait()

	checkedAt := m.now()
	var worstLatency time.Duration
	anyFailure := false

	m.mu.Lock()
	for i, p := range m.probes {
		st := m.states[p.Name]
		st.LatencyMs = latencies[i].Milliseconds()
		ts := checkedAt
		st.LastCheckedAt = &ts
		if latencies[i] > worstLatency {
			worstLatency = latencies[i]
		}

		if results[i] != nil {
			anyFailure = true
			st.ConsecutiveFailures++
			st.LastError = results[i].Error()
			// Below the degraded threshold the previous status stands.
			if s := m.statusForFailures(st.ConsecutiveFailures); s != model.StatusHealthy {
				st.Status = s
			}
			m.logger.Warn().Str("probe", p.Name).Int("consecutive_failures", st.ConsecutiveFailures).
				Str("status", st.Status).Err(results[i]).Msg("health probe failed")
		} else {
			st.ConsecutiveFailures = 0
			st.LastError = ""
			st.Status = model.StatusHealthy
		}
		componentStatus.WithLabelValues(p.Name).Set(statusGaugeValue(st.Status))
	}
	aggregate := m.aggregateLocked()
	failures := m.worstFailuresLocked()
	m.mu.Unlock()

	update := registry.HealthUpdate{
		Status:              aggregate,
		ConsecutiveFailures: failures,
		CheckedAt:           checkedAt,
		LatencyMs:           worstLatency.Milliseconds(),
		Success:             !anyFailure,
	}
	if err := m.store.UpdateHealth(ctx, m.connectorID, update); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist health status")
	}
}

func (m *Monitor) statusForFailures(n int) string {
	switch {
	case n >= m.unhealthyThreshold:
		return model.StatusUnhealthy
	case n >= m.degradedThreshold:
		return model.StatusDegraded
	default:
		return model.StatusHealthy
	}
}

// Snapshot returns a copy of the current component states and the
// aggregate, which is the worst component status.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := Snapshot{
		Status:     m.aggregateLocked(),
		Components: make(map[string]ComponentHealth, len(m.states)),
	}
	for name, st := range m.states {
		out.Components[name] = *st
	}
	return out
}

func (m *Monitor) aggregateLocked() string {
	agg := model.StatusHealthy
	for _, st := range m.states {
		agg = model.WorstStatus(agg, st.Status)
	}
	return agg
}

func (m *Monitor) worstFailuresLocked() int {
	worst := 0
	for _, st := range m.states {
		if st.ConsecutiveFailures > worst {
			worst = st.ConsecutiveFailures
		}
	}
	return worst
}

func statusGaugeValue(status string) float64 {
	switch status {
	case model.StatusHealthy:
		return 1
	case model.StatusDegraded:
		return 0.5
	default:
		return 0
	}
}
