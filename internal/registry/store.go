// Package registry tracks connector records and their verification keys,
// and drives the key rotation protocol.
package registry

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
	"github.com/JMAlloway/Check-sub001/internal/model"
)

// DB is the narrow pgx surface the postgres store needs, kept small so
// tests can mock it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrConnectorNotFound is returned for unknown connector IDs.
var ErrConnectorNotFound = apperr.New(apperr.CodeNotFound, "connector not found")

// HealthUpdate carries the fields the health monitor is allowed to write.
type HealthUpdate struct {
	Status              string
	ConsecutiveFailures int
	CheckedAt           time.Time
	LatencyMs           int64
	Success             bool
}

// ConnectorStore persists connector records. All key and rotation mutation
// goes through the KeyRegistry, which serializes it.
type ConnectorStore interface {
	Get(ctx context.Context, id string) (*model.Connector, error)
	Create(ctx context.Context, c *model.Connector) error
	Update(ctx context.Context, c *model.Connector) error
	UpdateHealth(ctx context.Context, id string, u HealthUpdate) error
}
