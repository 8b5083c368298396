package model

import "time"

// Rotation state constants.
const (
	RotationStable   = "stable"
	RotationRotating = "rotating"
)

// Token lifetime bounds in seconds. Lifetimes outside this range are
// rejected at registration and update time.
const (
	TokenLifetimeMin = 60
	TokenLifetimeMax = 300
)

// Rotation overlap bounds in hours.
const (
	OverlapHoursMin = 1
	OverlapHoursMax = 168
)

// Connector is a registered bank-side gateway deployment. The active key is
// the public verification key tokens are normally signed against; the
// secondary key exists only while a rotation overlap window is open.
type Connector struct {
	ID                    string     `json:"id"`
	BaseURL               string     `json:"base_url"`
	ActiveKeyID           string     `json:"active_key_id"`
	ActiveKeyPEM          string     `json:"-"`
	ActiveKeyExpiresAt    time.Time  `json:"active_key_expires_at"`
	SecondaryKeyID        *string    `json:"secondary_key_id,omitempty"`
	SecondaryKeyPEM       *string    `json:"-"`
	SecondaryKeyExpiresAt *time.Time `json:"secondary_key_expires_at,omitempty"`
	TokenLifetimeSeconds  int        `json:"token_lifetime_seconds"`
	Enabled               bool       `json:"enabled"`

	// Health fields, written only by the health monitor.
	Status              string     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	LastLatencyMs       *int64     `json:"last_latency_ms,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RotationState derives the rotation state from the presence of a secondary key.
func (c *Connector) RotationState() string {
	if c.SecondaryKeyID != nil {
		return RotationRotating
	}
	return RotationStable
}

// SecondaryUsable reports whether the secondary key may still verify tokens.
func (c *Connector) SecondaryUsable(now time.Time) bool {
	return c.SecondaryKeyID != nil && c.SecondaryKeyExpiresAt != nil && now.Before(*c.SecondaryKeyExpiresAt)
}
