// ABOUTME: Serving policy for threat-intel batches: inline attempt, cache tier, fallback.
// ABOUTME: Latest never fails; GenerateAndStore is the only durable-cache writer.
package intel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CacheKey is the fixed logical name of the single durable cache entry. The
// entry is overwritten wholesale on each regeneration, never appended.
const CacheKey = "latest"

// CacheEntry is the durable-cache document: a generated batch plus its
// lifecycle timestamps. ExpiresAt is advisory — an expired entry is still
// served; only absence or a read error triggers the bundled fallback.
type CacheEntry struct {
	Articles    []Article `json:"articles"`
	GeneratedAt time.Time `json:"generatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// CacheStore is the key-value blob store holding the durable cache entry.
// Get returns (nil, nil) when the key is absent.
type CacheStore interface {
	GetEntry(ctx context.Context, key string) (*CacheEntry, error)
	PutEntry(ctx context.Context, key string, entry CacheEntry) error
}

// BatchGenerator produces a validated fresh batch. *Generator implements it;
// tests substitute fakes.
type BatchGenerator interface {
	Generate(ctx context.Context) ([]Article, error)
	Configured() bool
}

// Batch is what the serving path hands to the HTTP layer.
type Batch struct {
	Articles    []Article
	GeneratedAt time.Time
	Source      string // "ai" or "fallback"
}

// Service implements the tiered serving policy. The read path (Latest) and
// the write path (GenerateAndStore) intentionally keep independent copies:
// Latest never persists what it fetches inline, so the CDN-cached response
// and the durable cache can diverge. CDN Cache-Control tiers are the
// consistency mechanism users actually observe — do not collapse the paths.
type Service struct {
	gen           BatchGenerator
	cache         CacheStore // nil disables the durable tier
	inlineTimeout time.Duration
	ttl           time.Duration
	log           *slog.Logger
	now           func() time.Time
}

// NewService creates a Service. cache may be nil when no blob store is
// configured; inlineTimeout bounds the synchronous upstream attempt made
// inside request handling; ttl sets CacheEntry.ExpiresAt on writes.
func NewService(gen BatchGenerator, cache CacheStore, inlineTimeout, ttl time.Duration) *Service {
	if inlineTimeout <= 0 {
		inlineTimeout = 8 * time.Second
	}
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &Service{
		gen:           gen,
		cache:         cache,
		inlineTimeout: inlineTimeout,
		ttl:           ttl,
		log:           slog.Default(),
		now:           time.Now,
	}
}

// Latest resolves a batch for serving. It cannot fail: every upstream problem
// degrades through the cache tier (unless force skips it) to the bundled
// fallback. The inline upstream attempt is bounded by the service timeout and
// cancelled on expiry so a slow provider cannot hang the request.
func (s *Service) Latest(ctx context.Context, force bool) Batch {
	if !s.gen.Configured() {
		return s.fallback()
	}

	genCtx, cancel := context.WithTimeout(ctx, s.inlineTimeout)
	defer cancel()

	articles, err := s.gen.Generate(genCtx)
	if err == nil {
		// Fresh inline result. Deliberately NOT written to the durable cache:
		// only the scheduled writer persists (see Service doc comment).
		return Batch{Articles: articles, GeneratedAt: s.now().UTC(), Source: "ai"}
	}

	s.log.WarnContext(ctx, "inline intel generation failed, degrading",
		"error", err,
		"format_error", errors.Is(err, ErrUpstreamFormat),
	)

	if !force && s.cache != nil {
		if entry, cacheErr := s.cache.GetEntry(ctx, CacheKey); cacheErr == nil && entry != nil {
			if s.now().After(entry.ExpiresAt) {
				s.log.InfoContext(ctx, "serving expired intel cache entry",
					"generated_at", entry.GeneratedAt, "expired_at", entry.ExpiresAt)
			}
			return Batch{Articles: entry.Articles, GeneratedAt: entry.GeneratedAt, Source: "ai"}
		} else if cacheErr != nil {
			s.log.WarnContext(ctx, "intel cache read failed", "error", cacheErr)
		}
	}

	return s.fallback()
}

func (s *Service) fallback() Batch {
	return Batch{Articles: FallbackBatch(), GeneratedAt: s.now().UTC(), Source: "fallback"}
}

// GenerateAndStore runs one generation cycle and overwrites the durable cache
// entry. This is the scheduled write path — the only writer of the durable
// cache. The write is a wholesale upsert; last writer wins.
func (s *Service) GenerateAndStore(ctx context.Context) error {
	articles, err := s.gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate batch: %w", err)
	}

	now := s.now().UTC()
	entry := CacheEntry{
		Articles:    articles,
		GeneratedAt: now,
		ExpiresAt:   now.Add(s.ttl),
	}

	if s.cache == nil {
		s.log.WarnContext(ctx, "no durable cache configured, discarding generated batch",
			"articles", len(articles))
		return nil
	}
	if err := s.cache.PutEntry(ctx, CacheKey, entry); err != nil {
		return fmt.Errorf("store batch: %w", err)
	}
	s.log.InfoContext(ctx, "intel cache refreshed",
		"articles", len(articles), "expires_at", entry.ExpiresAt)
	return nil
}
