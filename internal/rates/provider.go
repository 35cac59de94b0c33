package rates

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"cartera/internal/cache"
	"cartera/internal/core"
	"cartera/internal/storage"
)

const cacheKey = "current"

// Fetcher produces a fresh snapshot from the outside world.
type Fetcher interface {
	Fetch(ctx context.Context) (core.Rates, error)
}

// Source tells where a snapshot returned by Current came from.
type Source string

const (
	SourceFeed      Source = "feed"
	SourceCache     Source = "cache"
	SourceStale     Source = "stale"
	SourcePersisted Source = "persisted"
	SourceFallback  Source = "fallback"
	SourceNone      Source = "none"
)

// ProviderConfig holds the provider tuning knobs.
type ProviderConfig struct {
	TTL      time.Duration
	Fallback core.Rates
}

// Provider serves the current snapshot. It never fails: when the feed is
// unreachable it degrades to the last cached value, then the persisted
// snapshot, then the configured fallback, then zero rates.
type Provider struct {
	fetcher  Fetcher
	store    storage.Store
	cache    cache.Cache[core.Rates]
	group    singleflight.Group
	fallback core.Rates
}

// NewProvider wires a provider. fetcher and store may be nil.
func NewProvider(fetcher Fetcher, store storage.Store, cfg ProviderConfig) *Provider {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Provider{
		fetcher:  fetcher,
		store:    store,
		cache:    cache.NewLRUCache[core.Rates](1, ttl),
		fallback: cfg.Fallback,
	}
}

// WithCache replaces the snapshot cache.
func (p *Provider) WithCache(c cache.Cache[core.Rates]) *Provider {
	p.cache = c
	return p
}

// Current returns the best snapshot available right now.
func (p *Provider) Current(ctx context.Context) core.Rates {
	r, _ := p.CurrentWithSource(ctx)
	return r
}

// CurrentWithSource is Current plus where the snapshot came from.
func (p *Provider) CurrentWithSource(ctx context.Context) (core.Rates, Source) {
	if r, ok := p.cache.Get(cacheKey); ok {
		return r, SourceCache
	}

	r, err := p.Refresh(ctx)
	if err == nil {
		return r, SourceFeed
	}
	slog.WarnContext(ctx, "Rate refresh failed, degrading", "error", err)

	if r, _, ok := p.cache.GetStale(cacheKey); ok {
		return r, SourceStale
	}
	if p.store != nil {
		persisted, err := storage.LoadRates(ctx, p.store)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load persisted rates", "error", err)
		} else if persisted.Available() {
			return persisted, SourcePersisted
		}
	}
	if p.fallback.Available() {
		return p.fallback, SourceFallback
	}
	return core.Rates{}, SourceNone
}

// Refresh fetches from the feed, bypassing the cache. Concurrent callers
// share one request. A successful snapshot is cached and persisted.
func (p *Provider) Refresh(ctx context.Context) (core.Rates, error) {
	if p.fetcher == nil {
		return core.Rates{}, core.ErrRatesUnavailable
	}

	v, err, _ := p.group.Do(cacheKey, func() (any, error) {
		r, err := p.fetcher.Fetch(ctx)
		if err != nil {
			return core.Rates{}, err
		}
		p.cache.Set(cacheKey, r)
		if p.store != nil {
			if err := storage.SaveRates(ctx, p.store, r); err != nil {
				slog.ErrorContext(ctx, "Failed to persist rates", "error", err)
			}
		}
		slog.InfoContext(ctx, "Exchange rates refreshed",
			"bcv", r.BCV.String(),
			"usdt", r.USDT.String())
		return r, nil
	})
	if err != nil {
		return core.Rates{}, err
	}
	return v.(core.Rates), nil
}
