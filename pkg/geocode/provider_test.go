package geocode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bova-research/dcatlas/internal/resilience"
)

// mockProvider implements Provider for testing cascade behavior.
type mockProvider struct {
	name      string
	available bool
	result    *Result
	err       error
	calls     atomic.Int32
}

func (m *mockProvider) Name() string    { return m.name }
func (m *mockProvider) Available() bool { return m.available }
func (m *mockProvider) Geocode(_ context.Context, _ AddressInput) (*Result, error) {
	m.calls.Add(1)
	return m.result, m.err
}

// memCache implements Cache in memory.
type memCache struct {
	mu      sync.Mutex
	entries map[string]*Result
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*Result)}
}

func (c *memCache) GetGeocode(_ context.Context, key string) (*Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok, nil
}

func (c *memCache) PutGeocode(_ context.Context, key string, r *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = r
	return nil
}

var testAddr = AddressInput{Street: "21715 Filigree Ct", City: "Ashburn", State: "VA", ZipCode: "20147"}

func TestCascade_FirstProviderWins(t *testing.T) {
	first := &mockProvider{name: "census", available: true, result: &Result{Matched: true, Source: "census", Latitude: 39.0}}
	second := &mockProvider{name: "google", available: true, result: &Result{Matched: true, Source: "google"}}

	c := NewCascadeClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), testAddr)

	require.NoError(t, err)
	assert.Equal(t, "census", result.Source)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestCascade_FallsThroughOnNoMatch(t *testing.T) {
	first := &mockProvider{name: "census", available: true, result: &Result{Matched: false, Source: "census"}}
	second := &mockProvider{name: "google", available: true, result: &Result{Matched: true, Source: "google", Latitude: 38.9}}

	c := NewCascadeClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), testAddr)

	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "google", result.Source)
}

func TestCascade_FallsThroughOnError(t *testing.T) {
	first := &mockProvider{name: "census", available: true, err: errors.New("boom")}
	second := &mockProvider{name: "nominatim", available: true, result: &Result{Matched: true, Source: "nominatim"}}

	c := NewCascadeClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), testAddr)

	require.NoError(t, err)
	assert.Equal(t, "nominatim", result.Source)
}

func TestCascade_SkipsUnavailable(t *testing.T) {
	google := &mockProvider{name: "google", available: false, result: &Result{Matched: true, Source: "google"}}
	nominatim := &mockProvider{name: "nominatim", available: true, result: &Result{Matched: true, Source: "nominatim"}}

	c := NewCascadeClient([]Provider{google, nominatim})
	result, err := c.Geocode(context.Background(), testAddr)

	require.NoError(t, err)
	assert.Equal(t, "nominatim", result.Source)
	assert.Equal(t, int32(0), google.calls.Load())
}

func TestCascade_AllMiss(t *testing.T) {
	first := &mockProvider{name: "census", available: true, result: &Result{Matched: false, Source: "census"}}
	second := &mockProvider{name: "google", available: true, result: &Result{Matched: false, Source: "google"}}

	c := NewCascadeClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), testAddr)

	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "google", result.Source)
}

func TestCascade_CacheHitSkipsProviders(t *testing.T) {
	cache := newMemCache()
	p := &mockProvider{name: "census", available: true, result: &Result{Matched: true, Source: "census"}}
	c := NewCascadeClient([]Provider{p}, WithCascadeCache(cache))

	_, err := c.Geocode(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.calls.Load())

	// Second call served from cache.
	result, err := c.Geocode(context.Background(), testAddr)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCascade_NegativeResultCached(t *testing.T) {
	cache := newMemCache()
	p := &mockProvider{name: "census", available: true, result: &Result{Matched: false, Source: "census"}}
	c := NewCascadeClient([]Provider{p}, WithCascadeCache(cache))

	_, err := c.Geocode(context.Background(), testAddr)
	require.NoError(t, err)

	result, err := c.Geocode(context.Background(), testAddr)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCascade_BatchGeocode(t *testing.T) {
	p := &mockProvider{name: "census", available: true, result: &Result{Matched: true, Source: "census"}}
	c := NewCascadeClient([]Provider{p}, WithCascadeBatchConcurrency(2))

	addrs := []AddressInput{
		{Street: "1 Main St", City: "Ashburn", State: "VA"},
		{Street: "2 Main St", City: "Dallas", State: "TX"},
		{Street: "3 Main St", City: "Chicago", State: "IL"},
	}
	results, err := c.BatchGeocode(context.Background(), addrs)

	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Matched)
	}
}

func TestCascade_BatchGeocodeEmpty(t *testing.T) {
	c := NewCascadeClient(nil)
	results, err := c.BatchGeocode(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestCascade_BreakerSkipsFailingProvider(t *testing.T) {
	failing := &mockProvider{name: "census", available: true, err: errors.New("boom")}
	backup := &mockProvider{name: "nominatim", available: true, result: &Result{Matched: true, Source: "nominatim"}}

	c := NewCascadeClient([]Provider{failing, backup},
		WithCascadeBreaker(resilience.BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour}),
	)

	addrs := []AddressInput{
		{Street: "1 Main St", City: "Ashburn", State: "VA"},
		{Street: "2 Main St", City: "Dallas", State: "TX"},
		{Street: "3 Main St", City: "Chicago", State: "IL"},
		{Street: "4 Main St", City: "Denver", State: "CO"},
	}
	for _, addr := range addrs {
		result, err := c.Geocode(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, "nominatim", result.Source)
	}

	// Two failures open the circuit; the remaining calls skip the provider.
	assert.Equal(t, int32(2), failing.calls.Load())
	assert.Equal(t, int32(4), backup.calls.Load())
}

func TestCascade_BreakerSuccessKeepsProviderIn(t *testing.T) {
	p := &mockProvider{name: "census", available: true, result: &Result{Matched: true, Source: "census"}}

	c := NewCascadeClient([]Provider{p},
		WithCascadeBreaker(resilience.BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour}),
	)

	for i := range 3 {
		result, err := c.Geocode(context.Background(), AddressInput{Street: string(rune('1'+i)) + " Main St", State: "VA"})
		require.NoError(t, err)
		assert.Equal(t, "census", result.Source)
	}
	assert.Equal(t, int32(3), p.calls.Load())
}

func TestCacheKey_Normalizes(t *testing.T) {
	a := cacheKey(AddressInput{Street: " 21715 Filigree Ct ", City: "ASHBURN", State: "va", ZipCode: "20147"})
	b := cacheKey(AddressInput{Street: "21715 filigree ct", City: "Ashburn", State: "VA", ZipCode: "20147"})
	c := cacheKey(AddressInput{Street: "1 Other St", City: "Ashburn", State: "VA", ZipCode: "20147"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
