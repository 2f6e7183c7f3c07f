package resultcache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

// Entry is a cached layer result with its own expiry.
type Entry struct {
	Result  domain.LayerResult `json:"result"`
	Expires time.Time          `json:"expires"`
}

func (e Entry) expired(now time.Time) bool {
	return !e.Expires.IsZero() && now.After(e.Expires)
}

// Store holds entries and per-profile generation counters. Get reports a
// miss with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Generation(ctx context.Context, profileID string) (int64, error)
	BumpGeneration(ctx context.Context, profileID string) (int64, error)
}

// MemStore keeps entries in an in-process expiring LRU.
type MemStore struct {
	data *expirable.LRU[string, Entry]

	mu   sync.Mutex
	gens map[string]int64
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns a store bounded to capacity entries; maxTTL caps how
// long any entry may live.
func NewMemStore(capacity int, maxTTL time.Duration) *MemStore {
	return &MemStore{
		data: expirable.NewLRU[string, Entry](capacity, nil, maxTTL),
		gens: make(map[string]int64),
	}
}

func (s *MemStore) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := s.data.Get(key)
	return e, ok, nil
}

func (s *MemStore) Set(_ context.Context, key string, e Entry, _ time.Duration) error {
	s.data.Add(key, e)
	return nil
}

func (s *MemStore) Generation(_ context.Context, profileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[profileID], nil
}

func (s *MemStore) BumpGeneration(_ context.Context, profileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[profileID]++
	return s.gens[profileID], nil
}

// Len is the number of live entries.
func (s *MemStore) Len() int { return s.data.Len() }

// RedisStore shares entries between instances through redis, fronted by a
// TinyLFU in-process cache.
type RedisStore struct {
	rdb  *redis.Client
	data *cache.Cache
}

var _ Store = (*RedisStore)(nil)

const (
	entryPrefix      = "curation/lm/"
	generationPrefix = "curation/profile-gen/"
)

// NewRedisStore wraps an already connected client. localSize entries are
// kept in process for at most localTTL.
func NewRedisStore(rdb *redis.Client, localSize int, localTTL time.Duration) *RedisStore {
	opts := &cache.Options{Redis: rdb}
	if localSize > 0 {
		opts.LocalCache = cache.NewTinyLFU(localSize, localTTL)
	}
	return &RedisStore{rdb: rdb, data: cache.New(opts)}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var e Entry
	err := s.data.Get(ctx, entryPrefix+key, &e)
	if errors.Is(err, cache.ErrCacheMiss) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	return s.data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   entryPrefix + key,
		Value: e,
		TTL:   ttl,
	})
}

func (s *RedisStore) Generation(ctx context.Context, profileID string) (int64, error) {
	v, err := s.rdb.Get(ctx, generationPrefix+profileID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (s *RedisStore) BumpGeneration(ctx context.Context, profileID string) (int64, error) {
	return s.rdb.Incr(ctx, generationPrefix+profileID).Result()
}
