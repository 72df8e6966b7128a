// ABOUTME: Tests for the tiered serving policy: inline attempt, cache tier, fallback.
// ABOUTME: Fake generator and cache isolate the policy from network and Postgres.
package intel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sableridge/watchdesk/internal/intel"
)

// fakeGen is a scripted BatchGenerator.
type fakeGen struct {
	configured bool
	articles   []intel.Article
	err        error
	delay      time.Duration
	calls      int
}

func (g *fakeGen) Configured() bool { return g.configured }

func (g *fakeGen) Generate(ctx context.Context) ([]intel.Article, error) {
	g.calls++
	if g.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, errors.Join(intel.ErrUpstreamTransport, ctx.Err())
		case <-time.After(g.delay):
		}
	}
	return g.articles, g.err
}

// fakeCache is an in-memory CacheStore.
type fakeCache struct {
	entries map[string]*intel.CacheEntry
	getErr  error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*intel.CacheEntry{}}
}

func (c *fakeCache) GetEntry(_ context.Context, key string) (*intel.CacheEntry, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[key], nil
}

func (c *fakeCache) PutEntry(_ context.Context, key string, e intel.CacheEntry) error {
	c.puts++
	c.entries[key] = &e
	return nil
}

func freshArticles(t *testing.T) []intel.Article {
	t.Helper()
	// The fallback batch is a convenient source of well-shaped articles.
	return intel.FallbackBatch()
}

func TestLatest_NoKeyAlwaysFallback(t *testing.T) {
	gen := &fakeGen{configured: false}
	svc := intel.NewService(gen, newFakeCache(), time.Second, time.Hour)

	for i := 0; i < 3; i++ {
		batch := svc.Latest(context.Background(), false)
		if batch.Source != "fallback" {
			t.Fatalf("source = %q, want fallback", batch.Source)
		}
		if len(batch.Articles) != intel.FreshBatchSize {
			t.Fatalf("got %d articles, want %d", len(batch.Articles), intel.FreshBatchSize)
		}
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times without a key", gen.calls)
	}
}

func TestLatest_FreshSuccess(t *testing.T) {
	cache := newFakeCache()
	gen := &fakeGen{configured: true, articles: freshArticles(t)}
	svc := intel.NewService(gen, cache, time.Second, time.Hour)

	batch := svc.Latest(context.Background(), false)
	if batch.Source != "ai" {
		t.Fatalf("source = %q, want ai", batch.Source)
	}
	if len(batch.Articles) != intel.FreshBatchSize {
		t.Fatalf("got %d articles", len(batch.Articles))
	}
	// The read path must never write the durable cache.
	if cache.puts != 0 {
		t.Errorf("read path wrote the durable cache %d times", cache.puts)
	}
}

func TestLatest_UpstreamFailureServesCacheTier(t *testing.T) {
	cache := newFakeCache()
	generatedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cache.entries[intel.CacheKey] = &intel.CacheEntry{
		Articles:    freshArticles(t),
		GeneratedAt: generatedAt,
		ExpiresAt:   generatedAt.Add(4 * time.Hour), // long expired: served anyway
	}
	gen := &fakeGen{configured: true, err: intel.ErrUpstreamTransport}
	svc := intel.NewService(gen, cache, time.Second, time.Hour)

	batch := svc.Latest(context.Background(), false)
	if batch.Source != "ai" {
		t.Fatalf("source = %q, want ai (cached content is AI-sourced)", batch.Source)
	}
	if !batch.GeneratedAt.Equal(generatedAt) {
		t.Errorf("generatedAt = %v, want the cache entry's %v", batch.GeneratedAt, generatedAt)
	}
}

func TestLatest_ForceSkipsCacheTier(t *testing.T) {
	cache := newFakeCache()
	cache.entries[intel.CacheKey] = &intel.CacheEntry{
		Articles:    freshArticles(t),
		GeneratedAt: time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(4 * time.Hour),
	}
	gen := &fakeGen{configured: true, err: intel.ErrUpstreamFormat}
	svc := intel.NewService(gen, cache, time.Second, time.Hour)

	batch := svc.Latest(context.Background(), true)
	if batch.Source != "fallback" {
		t.Fatalf("source = %q, want fallback when force skips the cache tier", batch.Source)
	}
}

func TestLatest_NoCacheConfigured(t *testing.T) {
	gen := &fakeGen{configured: true, err: intel.ErrUpstreamTransport}
	svc := intel.NewService(gen, nil, time.Second, time.Hour)

	batch := svc.Latest(context.Background(), false)
	if batch.Source != "fallback" {
		t.Fatalf("source = %q, want fallback", batch.Source)
	}
}

func TestLatest_SlowUpstreamBoundedByTimeout(t *testing.T) {
	gen := &fakeGen{configured: true, articles: freshArticles(t), delay: 5 * time.Second}
	svc := intel.NewService(gen, nil, 100*time.Millisecond, time.Hour)

	start := time.Now()
	batch := svc.Latest(context.Background(), false)
	elapsed := time.Since(start)

	if batch.Source != "fallback" {
		t.Fatalf("source = %q, want fallback after timeout", batch.Source)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Latest took %v; the timeout must fire and fall back, not hang", elapsed)
	}
}

func TestLatest_ShapeStableAcrossCalls(t *testing.T) {
	gen := &fakeGen{configured: true, err: intel.ErrUpstreamTransport}
	svc := intel.NewService(gen, nil, time.Second, time.Hour)

	a := svc.Latest(context.Background(), false)
	b := svc.Latest(context.Background(), false)
	if len(a.Articles) != len(b.Articles) || a.Source != b.Source {
		t.Errorf("consecutive calls differ: %d/%s vs %d/%s",
			len(a.Articles), a.Source, len(b.Articles), b.Source)
	}
}

func TestGenerateAndStore(t *testing.T) {
	cache := newFakeCache()
	gen := &fakeGen{configured: true, articles: freshArticles(t)}
	svc := intel.NewService(gen, cache, time.Second, 4*time.Hour)

	if err := svc.GenerateAndStore(context.Background()); err != nil {
		t.Fatalf("GenerateAndStore: %v", err)
	}
	entry := cache.entries[intel.CacheKey]
	if entry == nil {
		t.Fatal("no cache entry written")
	}
	if len(entry.Articles) != intel.FreshBatchSize {
		t.Errorf("stored %d articles", len(entry.Articles))
	}
	if got := entry.ExpiresAt.Sub(entry.GeneratedAt); got != 4*time.Hour {
		t.Errorf("ttl = %v, want 4h", got)
	}
}

func TestGenerateAndStore_UpstreamError(t *testing.T) {
	cache := newFakeCache()
	gen := &fakeGen{configured: true, err: intel.ErrUpstreamFormat}
	svc := intel.NewService(gen, cache, time.Second, time.Hour)

	err := svc.GenerateAndStore(context.Background())
	if !errors.Is(err, intel.ErrUpstreamFormat) {
		t.Fatalf("want ErrUpstreamFormat, got %v", err)
	}
	if cache.puts != 0 {
		t.Error("failed generation must not overwrite the cache entry")
	}
}
