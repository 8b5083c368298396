package registry

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
	"github.com/JMAlloway/Check-sub001/internal/model"
)

// ErrRotationInProgress is returned when a rotation is started while another
// overlap window is still open.
var ErrRotationInProgress = apperr.New(apperr.CodeRotationInProgress, "key rotation already in progress")

// KeySet is the verification material for one connector at a point in time.
// A validation sees either the pre- or post-rotation set, never a partial one.
type KeySet struct {
	ConnectorID    string
	Enabled        bool
	Active         *rsa.PublicKey
	ActiveKeyID    string
	Secondary      *rsa.PublicKey
	SecondaryKeyID string
	TokenLifetime  time.Duration
}

// KeyRegistry serializes all key and rotation mutation for connectors and
// hands out consistent key sets to the token validator.
type KeyRegistry struct {
	store  ConnectorStore
	logger zerolog.Logger
	now    func() time.Time

	mu sync.RWMutex
}

func New(store ConnectorStore, logger zerolog.Logger) *KeyRegistry {
	return &KeyRegistry{
		store:  store,
		logger: logger.With().Str("component", "key-registry").Logger(),
		now:    time.Now,
	}
}

// Get returns the stored connector record.
func (r *KeyRegistry) Get(ctx context.Context, id string) (*model.Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Get(ctx, id)
}

// Register creates a connector in the stable state with one active key.
func (r *KeyRegistry) Register(ctx context.Context, id, baseURL, keyID, keyPEM string, keyExpiresAt time.Time, tokenLifetimeSeconds int) (*model.Connector, error) {
	if err := validateLifetime(tokenLifetimeSeconds); err != nil {
		return nil, err
	}
	if _, err := ParsePublicKey(keyPEM); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "invalid public key", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	c := &model.Connector{
		ID:                   id,
		BaseURL:              baseURL,
		ActiveKeyID:          keyID,
		ActiveKeyPEM:         keyPEM,
		ActiveKeyExpiresAt:   keyExpiresAt,
		TokenLifetimeSeconds: tokenLifetimeSeconds,
		Enabled:              true,
		Status:               model.StatusUnknown,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := r.store.Create(ctx, c); err != nil {
		return nil, err
	}
	r.logger.Info().Str("connector_id", id).Str("key_id", keyID).Msg("connector registered")
	return c, nil
}

// KeySet returns the current verification keys for a connector. If the
// secondary key's overlap window has lapsed, the pending rotation is
// completed here before the set is returned, so callers never verify
// against an expired secondary.
func (r *KeyRegistry) KeySet(ctx context.Context, id string) (*KeySet, error) {
	r.mu.RLock()
	c, err := r.store.Get(ctx, id)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if c.SecondaryKeyID != nil && !c.SecondaryUsable(r.now()) {
		if c, err = r.completeLapsed(ctx, id); err != nil {
			return nil, err
		}
	}

	return r.keySetFrom(c)
}

// completeLapsed promotes a lapsed secondary key under the write lock. The
// connector is re-read first: if another caller already promoted (or opened
// a fresh overlap) between the read-locked lookup and here, the current
// record is returned as-is rather than erroring.
func (r *KeyRegistry) completeLapsed(ctx context.Context, id string) (*model.Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.SecondaryKeyID == nil || c.SecondaryUsable(r.now()) {
		return c, nil
	}
	return r.promoteLocked(ctx, c)
}

func (r *KeyRegistry) keySetFrom(c *model.Connector) (*KeySet, error) {
	active, err := ParsePublicKey(c.ActiveKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("stored active key for %s: %w", c.ID, err)
	}
	set := &KeySet{
		ConnectorID:   c.ID,
		Enabled:       c.Enabled,
		Active:        active,
		ActiveKeyID:   c.ActiveKeyID,
		TokenLifetime: time.Duration(c.TokenLifetimeSeconds) * time.Second,
	}
	if c.SecondaryUsable(r.now()) {
		secondary, err := ParsePublicKey(*c.SecondaryKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("stored secondary key for %s: %w", c.ID, err)
		}
		set.Secondary = secondary
		set.SecondaryKeyID = *c.SecondaryKeyID
	}
	return set, nil
}

// BeginRotation opens an overlap window during which both the current
// active key and the incoming key verify tokens. Exactly one rotation may
// be in flight per connector.
func (r *KeyRegistry) BeginRotation(ctx context.Context, id, newKeyID, newKeyPEM string, overlapHours int) (*model.Connector, error) {
	if overlapHours < model.OverlapHoursMin || overlapHours > model.OverlapHoursMax {
		return nil, apperr.Newf(apperr.CodeInvalidInput, "overlap hours must be in [%d, %d]", model.OverlapHoursMin, model.OverlapHoursMax)
	}
	if _, err := ParsePublicKey(newKeyPEM); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "invalid public key", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.RotationState() == model.RotationRotating {
		return nil, ErrRotationInProgress
	}

	now := r.now()
	expires := now.Add(time.Duration(overlapHours) * time.Hour)
	// During the overlap the NEW key is held as secondary; promotion swaps
	// it into the active slot when the window closes.
	c.SecondaryKeyID = &newKeyID
	c.SecondaryKeyPEM = &newKeyPEM
	c.SecondaryKeyExpiresAt = &expires
	c.UpdatedAt = now
	if err := r.store.Update(ctx, c); err != nil {
		return nil, err
	}
	r.logger.Info().Str("connector_id", id).Str("new_key_id", newKeyID).
		Time("overlap_until", expires).Msg("key rotation started")
	return c, nil
}

// CompleteRotation promotes the secondary key to active and returns the
// connector to the stable state. Called explicitly by an operator or
// lazily once the overlap window has lapsed.
func (r *KeyRegistry) CompleteRotation(ctx context.Context, id string) (*model.Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.SecondaryKeyID == nil {
		return nil, apperr.New(apperr.CodeInvalidInput, "no rotation in progress")
	}
	return r.promoteLocked(ctx, c)
}

func (r *KeyRegistry) promoteLocked(ctx context.Context, c *model.Connector) (*model.Connector, error) {
	now := r.now()
	c.ActiveKeyID = *c.SecondaryKeyID
	c.ActiveKeyPEM = *c.SecondaryKeyPEM
	c.ActiveKeyExpiresAt = aYearFrom(now)
	c.SecondaryKeyID = nil
	c.SecondaryKeyPEM = nil
	c.SecondaryKeyExpiresAt = nil
	c.UpdatedAt = now
	if err := r.store.Update(ctx, c); err != nil {
		return nil, err
	}
	r.logger.Info().Str("connector_id", c.ID).Str("key_id", c.ActiveKeyID).Msg("key rotation completed")
	return c, nil
}

// CancelRotation discards the pending secondary key without promoting it.
func (r *KeyRegistry) CancelRotation(ctx context.Context, id string) (*model.Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.SecondaryKeyID == nil {
		return nil, apperr.New(apperr.CodeInvalidInput, "no rotation in progress")
	}

	dropped := *c.SecondaryKeyID
	c.SecondaryKeyID = nil
	c.SecondaryKeyPEM = nil
	c.SecondaryKeyExpiresAt = nil
	c.UpdatedAt = r.now()
	if err := r.store.Update(ctx, c); err != nil {
		return nil, err
	}
	r.logger.Info().Str("connector_id", id).Str("dropped_key_id", dropped).Msg("key rotation cancelled")
	return c, nil
}

// SetEnabled flips traffic for a connector. Disabled connectors refuse all
// requests regardless of token validity.
func (r *KeyRegistry) SetEnabled(ctx context.Context, id string, enabled bool) (*model.Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Enabled = enabled
	c.UpdatedAt = r.now()
	if err := r.store.Update(ctx, c); err != nil {
		return nil, err
	}
	r.logger.Info().Str("connector_id", id).Bool("enabled", enabled).Msg("connector toggled")
	return c, nil
}

// SetTokenLifetime updates the lifetime policy for newly minted tokens.
// In-flight tokens keep their original expiry.
func (r *KeyRegistry) SetTokenLifetime(ctx context.Context, id string, seconds int) (*model.Connector, error) {
	if err := validateLifetime(seconds); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.TokenLifetimeSeconds = seconds
	c.UpdatedAt = r.now()
	if err := r.store.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func validateLifetime(seconds int) error {
	if seconds < model.TokenLifetimeMin || seconds > model.TokenLifetimeMax {
		return apperr.Newf(apperr.CodeInvalidInput, "token lifetime must be in [%d, %d] seconds", model.TokenLifetimeMin, model.TokenLifetimeMax)
	}
	return nil
}

func aYearFrom(t time.Time) time.Time {
	return t.AddDate(1, 0, 0)
}

// ParsePublicKey decodes a PEM-encoded PKIX RSA public key.
func ParsePublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unsupported key type %T: want RSA", pub)
	}
	return rsaKey, nil
}
