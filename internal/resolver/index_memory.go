package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/JMAlloway/Check-sub001/internal/model"
)

// MemoryIndex is an in-memory ItemIndex for tests and demo deployments.
type MemoryIndex struct {
	mu    sync.RWMutex
	items map[string]model.Item
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{items: make(map[string]model.Item)}
}

func indexKey(trace string, date time.Time) string {
	return trace + "@" + date.Format("2006-01-02")
}

func (ix *MemoryIndex) Lookup(_ context.Context, trace string, date time.Time) (*model.Item, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	it, ok := ix.items[indexKey(trace, date)]
	if !ok {
		return nil, ErrItemNotFound
	}
	out := it
	return &out, nil
}

func (ix *MemoryIndex) Put(it model.Item) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.items[indexKey(it.TraceNumber, it.ItemDate)] = it
}
