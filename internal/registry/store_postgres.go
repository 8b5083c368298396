package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JMAlloway/Check-sub001/internal/model"
)

// PostgresStore is the production ConnectorStore.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const connectorColumns = `id, base_url, active_key_id, active_key_pem, active_key_expires_at,
	secondary_key_id, secondary_key_pem, secondary_key_expires_at,
	token_lifetime_seconds, enabled, status, consecutive_failures,
	last_checked_at, last_latency_ms, last_success_at, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Connector, error) {
	var c model.Connector
	err := s.db.QueryRow(ctx,
		`SELECT `+connectorColumns+` FROM connectors WHERE id = $1`, id,
	).Scan(&c.ID, &c.BaseURL, &c.ActiveKeyID, &c.ActiveKeyPEM, &c.ActiveKeyExpiresAt,
		&c.SecondaryKeyID, &c.SecondaryKeyPEM, &c.SecondaryKeyExpiresAt,
		&c.TokenLifetimeSeconds, &c.Enabled, &c.Status, &c.ConsecutiveFailures,
		&c.LastCheckedAt, &c.LastLatencyMs, &c.LastSuccessAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConnectorNotFound
		}
		return nil, fmt.Errorf("get connector %s: %w", id, err)
	}
	return &c, nil
}

func (s *PostgresStore) Create(ctx context.Context, c *model.Connector) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO connectors (id, base_url, active_key_id, active_key_pem, active_key_expires_at,
			token_lifetime_seconds, enabled, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.BaseURL, c.ActiveKeyID, c.ActiveKeyPEM, c.ActiveKeyExpiresAt,
		c.TokenLifetimeSeconds, c.Enabled, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create connector %s: %w", c.ID, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, c *model.Connector) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE connectors SET
			base_url = $2,
			active_key_id = $3, active_key_pem = $4, active_key_expires_at = $5,
			secondary_key_id = $6, secondary_key_pem = $7, secondary_key_expires_at = $8,
			token_lifetime_seconds = $9, enabled = $10, updated_at = $11
		WHERE id = $1`,
		c.ID, c.BaseURL,
		c.ActiveKeyID, c.ActiveKeyPEM, c.ActiveKeyExpiresAt,
		c.SecondaryKeyID, c.SecondaryKeyPEM, c.SecondaryKeyExpiresAt,
		c.TokenLifetimeSeconds, c.Enabled, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update connector %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConnectorNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateHealth(ctx context.Context, id string, u HealthUpdate) error {
	var err error
	if u.Success {
		_, err = s.db.Exec(ctx, `
			UPDATE connectors SET status = $2, consecutive_failures = $3,
				last_checked_at = $4, last_latency_ms = $5, last_success_at = $4
			WHERE id = $1`,
			id, u.Status, u.ConsecutiveFailures, u.CheckedAt, u.LatencyMs)
	} else {
		_, err = s.db.Exec(ctx, `
			UPDATE connectors SET status = $2, consecutive_failures = $3,
				last_checked_at = $4, last_latency_ms = $5
			WHERE id = $1`,
			id, u.Status, u.ConsecutiveFailures, u.CheckedAt, u.LatencyMs)
	}
	if err != nil {
		return fmt.Errorf("update connector health %s: %w", id, err)
	}
	return nil
}
