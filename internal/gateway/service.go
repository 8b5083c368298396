// Package gateway composes the request pipeline: resolve, allowlist,
// cache-or-fetch, decode, serve. Authentication happens upstream in the
// API layer; auditing happens there too, on every outcome this package
// returns.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
	"github.com/JMAlloway/Check-sub001/internal/cache"
	"github.com/JMAlloway/Check-sub001/internal/imaging"
	"github.com/JMAlloway/Check-sub001/internal/model"
	"github.com/JMAlloway/Check-sub001/internal/resolver"
	"github.com/JMAlloway/Check-sub001/internal/storage"
)

type Service struct {
	logger   zerolog.Logger
	resolver *resolver.Resolver
	store    storage.Provider
	decoder  *imaging.Decoder
	cache    *cache.Cache
	// timeout bounds the resolve→fetch→decode chain per request so a hung
	// storage backend cannot exhaust server concurrency.
	timeout time.Duration
}

func NewService(logger zerolog.Logger, res *resolver.Resolver, store storage.Provider, decoder *imaging.Decoder, c *cache.Cache, timeout time.Duration) *Service {
	return &Service{
		logger:   logger.With().Str("component", "gateway").Logger(),
		resolver: res,
		store:    store,
		decoder:  decoder,
		cache:    c,
		timeout:  timeout,
	}
}

// FetchByHandle serves an image for an explicit path handle.
func (s *Service) FetchByHandle(ctx context.Context, path string, side model.Side) (*model.DecodedImage, *model.ResolvedImageRequest, bool, error) {
	resolved, err := s.resolver.ResolveHandle(path, side)
	if err != nil {
		return nil, nil, false, err
	}
	img, fromCache, err := s.fetchResolved(ctx, resolved)
	return img, resolved, fromCache, err
}

// FetchByItem serves an image for a (trace, date, side) descriptor.
func (s *Service) FetchByItem(ctx context.Context, trace string, date time.Time, side model.Side) (*model.DecodedImage, *model.ResolvedImageRequest, bool, error) {
	resolved, err := s.resolver.ResolveItem(ctx, trace, date, side)
	if err != nil {
		return nil, nil, false, err
	}
	img, fromCache, err := s.fetchResolved(ctx, resolved)
	return img, resolved, fromCache, err
}

// LookupItem returns index metadata only, no image bytes.
func (s *Service) LookupItem(ctx context.Context, trace string, date time.Time) (*model.Item, error) {
	return s.resolver.LookupItem(ctx, trace, date)
}

func (s *Service) fetchResolved(ctx context.Context, resolved *model.ResolvedImageRequest) (*model.DecodedImage, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := cache.Key{Path: resolved.PhysicalPath, Side: resolved.Side}
	img, fromCache, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (*model.DecodedImage, error) {
		raw, err := s.store.Fetch(ctx, resolved.PhysicalPath)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, err
			}
			return nil, apperr.Wrap(apperr.CodeUpstream, "storage fetch failed", err)
		}
		return s.decoder.Decode(raw)
	})
	if err != nil {
		return nil, false, err
	}
	return img, fromCache, nil
}
