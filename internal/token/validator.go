// Package token verifies inbound bearer tokens against a connector's
// registered verification keys.
package token

import (
	"context"
	"crypto/rsa"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
	"github.com/JMAlloway/Check-sub001/internal/registry"
)

// Resource describes what a token authorizes: either an explicit path
// handle or an item descriptor.
type Resource struct {
	Path  string `json:"path,omitempty"`
	Trace string `json:"trace,omitempty"`
	Date  string `json:"date,omitempty"`
	Side  string `json:"side,omitempty"`
}

// Claims are the verified contents of an access token.
type Claims struct {
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	Resource Resource `json:"resource"`
	jwt.RegisteredClaims
}

// Validator checks signatures against the active key first and, during a
// rotation overlap window, the secondary key. It holds no state of its own.
type Validator struct {
	registry *registry.KeyRegistry
}

func NewValidator(reg *registry.KeyRegistry) *Validator {
	return &Validator{registry: reg}
}

// Validate verifies signature, audience, and expiry for a raw token
// presented to the given connector. The raw token is never logged.
func (v *Validator) Validate(ctx context.Context, rawToken, connectorID string) (*Claims, error) {
	set, err := v.registry.KeySet(ctx, connectorID)
	if err != nil {
		if errors.Is(err, registry.ErrConnectorNotFound) {
			return nil, apperr.New(apperr.CodeAuth, "unknown connector")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "load verification keys", err)
	}
	if !set.Enabled {
		return nil, apperr.New(apperr.CodeAuth, "connector is disabled")
	}

	claims, err := v.parseWith(rawToken, connectorID, set.Active)
	if err != nil && set.Secondary != nil && isSignatureError(err) {
		claims, err = v.parseWith(rawToken, connectorID, set.Secondary)
	}
	if err != nil {
		return nil, toAuthError(err)
	}
	return claims, nil
}

func (v *Validator) parseWith(rawToken, connectorID string, key *rsa.PublicKey) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(rawToken, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	}, jwt.WithAudience(connectorID), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable)
}

func toAuthError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.New(apperr.CodeAuth, "token has expired")
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return apperr.New(apperr.CodeAuth, "token audience does not match this connector")
	default:
		return apperr.New(apperr.CodeAuth, "invalid token")
	}
}
