package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JMAlloway/Check-sub001/internal/model"
	"github.com/JMAlloway/Check-sub001/internal/registry"
)

const testConnectorID = "conn-1"

// flakyProbe fails while failing is set.
type flakyProbe struct {
	failing atomic.Bool
}

func (p *flakyProbe) check(context.Context) error {
	if p.failing.Load() {
		return errors.New("backend unreachable")
	}
	return nil
}

func newTestMonitor(t *testing.T, probes []Probe) (*Monitor, *registry.MemoryStore) {
	t.Helper()
	store := registry.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), &model.Connector{
		ID:     testConnectorID,
		Status: model.StatusUnknown,
	}))
	m := NewMonitor(zerolog.Nop(), testConnectorID, store, probes, time.Minute, 3, 6)
	return m, store
}

func TestProbeAll_HealthyComponents(t *testing.T) {
	ok := func(context.Context) error { return nil }
	m, store := newTestMonitor(t, []Probe{
		{Name: "storage", Check: ok},
		{Name: "resolver", Check: ok},
	})

	m.ProbeAll(context.Background())

	snap := m.Snapshot()
	assert.Equal(t, model.StatusHealthy, snap.Status)
	assert.Equal(t, model.StatusHealthy, snap.Components["storage"].Status)
	assert.Equal(t, 0, snap.Components["storage"].ConsecutiveFailures)

	c, err := store.Get(context.Background(), testConnectorID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusHealthy, c.Status)
	assert.NotNil(t, c.LastSuccessAt)
}

func TestProbeAll_HysteresisBelowThreshold(t *testing.T) {
	p := &flakyProbe{}
	p.failing.Store(true)
	m, _ := newTestMonitor(t, []Probe{{Name: "storage", Check: p.check}})

	// Two failures are below the degraded threshold of three; the previous
	// (unknown) status must stand rather than flip to degraded.
	m.ProbeAll(context.Background())
	m.ProbeAll(context.Background())

	snap := m.Snapshot()
	assert.Equal(t, model.StatusUnknown, snap.Components["storage"].Status)
	assert.Equal(t, 2, snap.Components["storage"].ConsecutiveFailures)
}

func TestProbeAll_DegradedAtThreshold(t *testing.T) {
	p := &flakyProbe{}
	p.failing.Store(true)
	m, store := newTestMonitor(t, []Probe{{Name: "storage", Check: p.check}})

	for i := 0; i < 3; i++ {
		m.ProbeAll(context.Background())
	}

	snap := m.Snapshot()
	assert.Equal(t, model.StatusDegraded, snap.Components["storage"].Status)
	assert.Equal(t, model.StatusDegraded, snap.Status)

	c, err := store.Get(context.Background(), testConnectorID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDegraded, c.Status)
	assert.Equal(t, 3, c.ConsecutiveFailures)
	assert.Nil(t, c.LastSuccessAt)
}

func TestProbeAll_UnhealthyAtThreshold(t *testing.T) {
	p := &flakyProbe{}
	p.failing.Store(true)
	m, _ := newTestMonitor(t, []Probe{{Name: "storage", Check: p.check}})

	for i := 0; i < 6; i++ {
		m.ProbeAll(context.Background())
	}

	snap := m.Snapshot()
	assert.Equal(t, model.StatusUnhealthy, snap.Components["storage"].Status)
	assert.Equal(t, model.StatusUnhealthy, snap.Status)
}

func TestProbeAll_SuccessResetsFailureCount(t *testing.T) {
	p := &flakyProbe{}
	p.failing.Store(true)
	m, store := newTestMonitor(t, []Probe{{Name: "storage", Check: p.check}})

	for i := 0; i < 4; i++ {
		m.ProbeAll(context.Background())
	}
	p.failing.Store(false)
	m.ProbeAll(context.Background())

	snap := m.Snapshot()
	assert.Equal(t, model.StatusHealthy, snap.Components["storage"].Status)
	assert.Equal(t, 0, snap.Components["storage"].ConsecutiveFailures)
	assert.Empty(t, snap.Components["storage"].LastError)

	c, err := store.Get(context.Background(), testConnectorID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusHealthy, c.Status)
	assert.NotNil(t, c.LastSuccessAt)
}

func TestProbeAll_AggregateIsWorstComponent(t *testing.T) {
	bad := &flakyProbe{}
	bad.failing.Store(true)
	m, _ := newTestMonitor(t, []Probe{
		{Name: "good", Check: func(context.Context) error { return nil }},
		{Name: "bad", Check: bad.check},
	})

	for i := 0; i < 3; i++ {
		m.ProbeAll(context.Background())
	}

	snap := m.Snapshot()
	assert.Equal(t, model.StatusHealthy, snap.Components["good"].Status)
	assert.Equal(t, model.StatusDegraded, snap.Components["bad"].Status)
	assert.Equal(t, model.StatusDegraded, snap.Status)
}

func TestSnapshot_BeforeFirstProbe(t *testing.T) {
	m, _ := newTestMonitor(t, []Probe{{Name: "storage", Check: func(context.Context) error { return nil }}})

	snap := m.Snapshot()
	assert.Equal(t, model.StatusUnknown, snap.Status)
	assert.Equal(t, model.StatusUnknown, snap.Components["storage"].Status)
}
