// Package resultcache memoises language model results per content and
// profile context, collapsing concurrent identical requests into a single
// computation.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

// Cache outcomes reported to metrics.
const (
	ResultHit       = "hit"
	ResultMiss      = "miss"
	ResultCoalesced = "coalesced"
	ResultBypass    = "bypass"
)

// Config tunes the cache.
type Config struct {
	Enabled   bool          `env:"CACHE_ENABLED"  yaml:"enabled"`
	TTL       time.Duration `env:"CACHE_TTL"      yaml:"ttl"`
	LocalSize int           `yaml:"local_size"`
	// Backend is "memory" or "redis".
	Backend string `env:"CACHE_BACKEND" yaml:"backend"`
}

const (
	defaultTTL       = time.Hour
	defaultLocalSize = 10_000
)

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.LocalSize <= 0 {
		c.LocalSize = defaultLocalSize
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// ComputeFunc produces the value for a missing key. A non-nil error is
// returned to every waiter and the result is not stored.
type ComputeFunc func(ctx context.Context) (domain.LayerResult, error)

// Cache is safe for concurrent use.
type Cache struct {
	store     Store
	ttl       time.Duration
	group     singleflight.Group
	log       logger.Logger
	telemetry *telemetry.Provider
	now       func() time.Time
}

// New returns a Cache over store. A nil store disables caching while still
// coalescing concurrent computations.
func New(cfg Config, store Store, log logger.Logger, tp *telemetry.Provider) *Cache {
	cfg.SetDefaults()
	return &Cache{store: store, ttl: cfg.TTL, log: log, telemetry: tp, now: time.Now}
}

// TTL is the default entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Key derives the cache key for a language model result. The profile's
// generation counter is part of the key so invalidating a profile orphans
// its old entries.
func (c *Cache) Key(ctx context.Context, content domain.ContentItem, profile domain.SafetyProfile, strategy string) string {
	gen := c.generation(ctx, profile.ProfileID)

	allowed := slices.Sorted(slices.Values(profile.AllowedCategories))
	blocked := slices.Sorted(slices.Values(profile.BlockedCategories))

	h := sha256.New()
	for _, part := range []string{
		content.Text,
		string(content.ContentType),
		profile.ProfileID,
		strconv.FormatInt(gen, 10),
		string(profile.AgeCategory),
		string(profile.SafetyLevel),
		string(profile.Jurisdiction),
		fmt.Sprint(allowed),
		fmt.Sprint(blocked),
		strategy,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) generation(ctx context.Context, profileID string) int64 {
	if c.store == nil {
		return 0
	}
	gen, err := c.store.Generation(ctx, profileID)
	if err != nil {
		c.unavailable("generation", err)
		return 0
	}
	return gen
}

// InvalidateProfile retires every entry computed for profileID.
func (c *Cache) InvalidateProfile(ctx context.Context, profileID string) error {
	if c.store == nil {
		return nil
	}
	gen, err := c.store.BumpGeneration(ctx, profileID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}
	c.log.Info("Invalidated cached results for profile",
		logger.String("profile_id", profileID),
		logger.Int64("generation", gen),
	)
	return nil
}

// GetOrCompute returns the live entry for key or runs compute once for all
// concurrent callers of the same key. cached reports whether the value came
// from the store. ttl <= 0 uses the configured default. Store failures are
// logged and bypassed. A caller whose ctx ends stops waiting without
// cancelling the shared computation.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	key string,
	compute ComputeFunc,
	ttl time.Duration,
) (result domain.LayerResult, cached bool, err error) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	if e, ok := c.lookup(ctx, key); ok {
		c.telemetry.M().CacheResult(ResultHit)
		return e.Result, true, nil
	}

	// The flight outlives any single caller; compute bounds its own deadline.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// Another flight may have stored the value since the first lookup.
		if e, ok := c.lookup(flightCtx, key); ok {
			return flight{result: e.Result, cached: true}, nil
		}
		res, err := compute(flightCtx)
		if err != nil {
			return flight{result: res}, err
		}
		c.save(flightCtx, key, res, ttl)
		return flight{result: res}, nil
	})

	select {
	case <-ctx.Done():
		return domain.LayerResult{}, false, ctx.Err()
	case r := <-ch:
		f, _ := r.Val.(flight)
		switch {
		case r.Shared:
			c.telemetry.M().CacheResult(ResultCoalesced)
		case f.cached:
			c.telemetry.M().CacheResult(ResultHit)
		default:
			c.telemetry.M().CacheResult(ResultMiss)
		}
		return f.result, f.cached, r.Err
	}
}

type flight struct {
	result domain.LayerResult
	cached bool
}

func (c *Cache) lookup(ctx context.Context, key string) (Entry, bool) {
	if c.store == nil {
		return Entry{}, false
	}
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.unavailable("get", err)
		return Entry{}, false
	}
	if !ok || e.expired(c.now()) {
		return Entry{}, false
	}
	return e, true
}

func (c *Cache) save(ctx context.Context, key string, res domain.LayerResult, ttl time.Duration) {
	if c.store == nil || res.Fallback {
		return
	}
	e := Entry{Result: res, Expires: c.now().Add(ttl)}
	if err := c.store.Set(ctx, key, e, ttl); err != nil {
		c.unavailable("set", err)
	}
}

func (c *Cache) unavailable(op string, err error) {
	c.telemetry.M().CacheResult(ResultBypass)
	c.log.Warn("Result cache unavailable, bypassing",
		logger.String("op", op),
		logger.Error(fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)),
	)
}
