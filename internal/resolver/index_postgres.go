package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JMAlloway/Check-sub001/internal/model"
)

// DB is the pgx surface the postgres index needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresIndex reads the bank-maintained image_index table.
type PostgresIndex struct {
	db DB
}

func NewPostgresIndex(db DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (ix *PostgresIndex) Lookup(ctx context.Context, trace string, date time.Time) (*model.Item, error) {
	var it model.Item
	err := ix.db.QueryRow(ctx, `
		SELECT trace_number, item_date, front_path, back_path, created_at
		FROM image_index WHERE trace_number = $1 AND item_date = $2`,
		trace, date).
		Scan(&it.TraceNumber, &it.ItemDate, &it.FrontPath, &it.BackPath, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("lookup item %s/%s: %w", trace, date.Format("2006-01-02"), err)
	}
	return &it, nil
}

// Upsert records an item's image locations; used by index loaders and tests.
func (ix *PostgresIndex) Upsert(ctx context.Context, it *model.Item) error {
	_, err := ix.db.Exec(ctx, `
		INSERT INTO image_index (trace_number, item_date, front_path, back_path)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trace_number, item_date) DO UPDATE SET
			front_path = EXCLUDED.front_path,
			back_path = EXCLUDED.back_path`,
		it.TraceNumber, it.ItemDate, it.FrontPath, it.BackPath)
	if err != nil {
		return fmt.Errorf("upsert item %s: %w", it.TraceNumber, err)
	}
	return nil
}
