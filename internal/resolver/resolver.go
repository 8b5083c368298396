// Package resolver maps logical image requests to physical storage paths
// and confines them to the configured allowlist. It performs no network
// I/O of its own.
package resolver

import (
	"context"
	"time"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
	"github.com/JMAlloway/Check-sub001/internal/model"
)

// ErrItemNotFound is returned for identifiers absent from the lookup index.
var ErrItemNotFound = apperr.New(apperr.CodeNotFound, "no item for that trace number and date")

// ItemIndex maps (trace number, date) to the physical image locations.
type ItemIndex interface {
	Lookup(ctx context.Context, trace string, date time.Time) (*model.Item, error)
}

// Resolver produces guarded ResolvedImageRequests from either resolution mode.
type Resolver struct {
	index     ItemIndex
	allowlist *Allowlist
}

func New(index ItemIndex, allowlist *Allowlist) *Resolver {
	return &Resolver{index: index, allowlist: allowlist}
}

// ResolveHandle handles the by-handle mode: the caller already knows the
// exact storage location. The allowlist check still runs unconditionally.
func (r *Resolver) ResolveHandle(path string, side model.Side) (*model.ResolvedImageRequest, error) {
	root, err := r.allowlist.Check(path)
	if err != nil {
		return nil, err
	}
	return &model.ResolvedImageRequest{
		PhysicalPath:         path,
		Side:                 side,
		AllowlistRootMatched: root,
	}, nil
}

// ResolveItem handles the by-item mode: the identifiers are resolved
// through the lookup index, then the resulting path is guarded exactly
// like an explicit handle.
func (r *Resolver) ResolveItem(ctx context.Context, trace string, date time.Time, side model.Side) (*model.ResolvedImageRequest, error) {
	item, err := r.index.Lookup(ctx, trace, date)
	if err != nil {
		return nil, err
	}
	return r.ResolveHandle(item.PathForSide(side), side)
}

// LookupItem returns index metadata without touching storage.
func (r *Resolver) LookupItem(ctx context.Context, trace string, date time.Time) (*model.Item, error) {
	return r.index.Lookup(ctx, trace, date)
}
