package model

import (
	"fmt"
	"time"
)

// Side identifies which face of a check an image shows.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// ParseSide validates a side query parameter.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideFront, SideBack:
		return Side(s), nil
	default:
		return "", fmt.Errorf("invalid side %q: must be front or back", s)
	}
}

// DecodedImage is a normalized PNG rendition of a stored check image.
type DecodedImage struct {
	PNG    []byte
	Width  int
	Height int
}

// ResolvedImageRequest is the output of path resolution, consumed by the
// allowlist guard and the storage provider. Request-scoped, never persisted.
type ResolvedImageRequest struct {
	PhysicalPath string
	Side         Side
	// AllowlistRootMatched is the configured root prefix the path fell
	// under; empty until the guard has approved the path.
	AllowlistRootMatched string
}

// Item is an entry in the lookup index mapping a trace number and date to
// the physical locations of the two image sides.
type Item struct {
	TraceNumber string    `json:"trace_number"`
	ItemDate    time.Time `json:"item_date"`
	FrontPath   string    `json:"front_path"`
	BackPath    string    `json:"back_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// PathForSide returns the stored path for the requested side.
func (it *Item) PathForSide(side Side) string {
	if side == SideBack {
		return it.BackPath
	}
	return it.FrontPath
}
