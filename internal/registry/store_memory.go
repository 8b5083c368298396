package registry

import (
	"context"
	"sync"

	"github.com/JMAlloway/Check-sub001/internal/model"
)

// MemoryStore is an in-memory ConnectorStore for tests and demo deployments.
type MemoryStore struct {
	mu         sync.RWMutex
	connectors map[string]model.Connector
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{connectors: make(map[string]model.Connector)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Connector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connectors[id]
	if !ok {
		return nil, ErrConnectorNotFound
	}
	out := c
	return &out, nil
}

func (s *MemoryStore) Create(_ context.Context, c *model.Connector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectors[c.ID] = *c
	return nil
}

func (s *MemoryStore) Update(_ context.Context, c *model.Connector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.connectors[c.ID]
	if !ok {
		return ErrConnectorNotFound
	}
	// Health fields are owned by UpdateHealth.
	next := *c
	next.Status = cur.Status
	next.ConsecutiveFailures = cur.ConsecutiveFailures
	next.LastCheckedAt = cur.LastCheckedAt
	next.LastLatencyMs = cur.LastLatencyMs
	next.LastSuccessAt = cur.LastSuccessAt
	s.connectors[c.ID] = next
	return nil
}

func (s *MemoryStore) UpdateHealth(_ context.Context, id string, u HealthUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connectors[id]
	if !ok {
		return ErrConnectorNotFound
	}
	c.Status = u.Status
	c.ConsecutiveFailures = u.ConsecutiveFailures
	checked := u.CheckedAt
	c.LastCheckedAt = &checked
	latency := u.LatencyMs
	c.LastLatencyMs = &latency
	if u.Success {
		c.LastSuccessAt = &checked
	}
	s.connectors[id] = c
	return nil
}
