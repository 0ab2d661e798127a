package geocode

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bova-research/dcatlas/internal/resilience"
)

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
	Available() bool
}

// Cache persists geocode results (matches and non-matches) between runs.
// The checkpoint store implements it.
type Cache interface {
	GetGeocode(ctx context.Context, key string) (*Result, bool, error)
	PutGeocode(ctx context.Context, key string, r *Result) error
}

// CascadeClient tries geocode providers in order until one matches. Each
// provider is guarded by a circuit breaker: a provider that keeps failing is
// skipped until its cooldown elapses instead of being retried per address.
type CascadeClient struct {
	providers        []Provider
	cache            Cache
	batchConcurrency int

	breakerCfg resilience.BreakerConfig
	breakerMu  sync.Mutex
	breakers   map[string]*resilience.Breaker
}

// CascadeOption configures the CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCascadeCache enables result caching through the given Cache.
func WithCascadeCache(c Cache) CascadeOption {
	return func(cc *CascadeClient) { cc.cache = c }
}

// WithCascadeBatchConcurrency sets the max parallel calls for BatchGeocode.
func WithCascadeBatchConcurrency(n int) CascadeOption {
	return func(cc *CascadeClient) {
		if n > 0 {
			cc.batchConcurrency = n
		}
	}
}

// WithCascadeBreaker overrides the per-provider circuit breaker tuning.
func WithCascadeBreaker(cfg resilience.BreakerConfig) CascadeOption {
	return func(cc *CascadeClient) { cc.breakerCfg = cfg }
}

// NewCascadeClient creates a CascadeClient that tries providers in order.
func NewCascadeClient(providers []Provider, opts ...CascadeOption) *CascadeClient {
	cc := &CascadeClient{
		providers:        providers,
		batchConcurrency: 4,
		breakerCfg:       resilience.DefaultBreakerConfig(),
		breakers:         make(map[string]*resilience.Breaker),
	}
	for _, opt := range opts {
		opt(cc)
	}
	return cc
}

// breaker returns the circuit breaker for the named provider, creating one
// on first use.
func (c *CascadeClient) breaker(provider string) *resilience.Breaker {
	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()
	cb, ok := c.breakers[provider]
	if !ok {
		cb = resilience.NewBreaker(c.breakerCfg)
		c.breakers[provider] = cb
	}
	return cb
}

// Geocode implements Client by trying each provider in order.
func (c *CascadeClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	key := cacheKey(addr)

	if c.cache != nil {
		cached, ok, err := c.cache.GetGeocode(ctx, key)
		if err == nil && ok {
			return cached, nil
		}
	}

	var lastResult *Result
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		cb := c.breaker(p.Name())
		if !cb.Allow() {
			zap.L().Debug("cascade: provider circuit open, skipping",
				zap.String("provider", p.Name()),
			)
			continue
		}
		result, err := p.Geocode(ctx, addr)
		if ctx.Err() == nil {
			// A cancelled call says nothing about provider health.
			cb.Record(err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			zap.L().Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			c.store(ctx, key, result)
			return result, nil
		}
		if result != nil {
			lastResult = result
		}
	}

	// All providers missed — cache the negative result too, so reruns skip
	// the whole cascade for this address.
	noMatch := &Result{Matched: false, Source: "cascade"}
	if lastResult != nil {
		noMatch.Source = lastResult.Source
	}
	c.store(ctx, key, noMatch)
	return noMatch, nil
}

// BatchGeocode implements Client by running the cascade over many addresses
// in parallel, bounded by the configured concurrency. Results come back in
// input order. An address the cascade cannot place yields a Matched:false
// entry rather than failing the batch; only context cancellation aborts.
func (c *CascadeClient) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	results := make([]Result, len(addrs))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchConcurrency)

	for i := range addrs {
		eg.Go(func() error {
			r, err := c.Geocode(gCtx, addrs[i])
			if err != nil {
				if gCtx.Err() != nil {
					return err
				}
				results[i] = Result{Matched: false, Source: "cascade"}
				return nil //nolint:nilerr // one bad address must not sink the batch
			}
			results[i] = *r
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *CascadeClient) store(ctx context.Context, key string, r *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.PutGeocode(ctx, key, r); err != nil {
		zap.L().Warn("cascade: cache store failed", zap.Error(err))
	}
}
