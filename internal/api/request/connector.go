package request

// RegisterConnector registers this deployment with its first verification key.
type RegisterConnector struct {
	ID                   string `json:"id" validate:"required"`
	BaseURL              string `json:"base_url" validate:"omitempty,url"`
	KeyID                string `json:"key_id" validate:"required"`
	PublicKeyPEM         string `json:"public_key_pem" validate:"required"`
	KeyValidDays         int    `json:"key_valid_days" validate:"omitempty,min=1,max=3650"`
	TokenLifetimeSeconds int    `json:"token_lifetime_seconds" validate:"required,min=60,max=300"`
}

// BeginRotation installs a new verification key with an overlap window.
type BeginRotation struct {
	KeyID        string `json:"key_id" validate:"required"`
	PublicKeyPEM string `json:"public_key_pem" validate:"required"`
	OverlapHours int    `json:"overlap_hours" validate:"required,min=1,max=168"`
}

// UpdateTokenLifetime changes the lifetime policy for newly minted tokens.
type UpdateTokenLifetime struct {
	TokenLifetimeSeconds int `json:"token_lifetime_seconds" validate:"required,min=60,max=300"`
}
