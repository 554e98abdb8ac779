package fetchcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/fetchcache/codec"
	"github.com/unkn0wn-root/fetchcache/fetch"
	"github.com/unkn0wn-root/fetchcache/payload"
	pr "github.com/unkn0wn-root/fetchcache/provider"
	"github.com/unkn0wn-root/fetchcache/refresh"
)

// SetCostFunc sizes an entry for cost-aware providers (ristretto).
type SetCostFunc func(storageKey string, raw []byte) int64

// Predicate decides whether a fetched value may be written to the cache.
type Predicate func(v payload.Value) bool

// Refresher runs stale-while-revalidate refreshes off the request path.
// Schedule must not block; it reports whether the task was accepted.
type Refresher interface {
	Schedule(t refresh.Task) bool
}

// Client composes a local tier, a shared store and a remote fetcher behind
// the caching strategies. Keys passed in are logical; the client derives the
// storage keys (namespace, sibling suffixes, local prefix) itself.
type Client interface {
	Enabled() bool
	Close(context.Context) error

	// Fetch is a plain read-through. Concurrent misses may each fetch.
	Fetch(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error)
	// FetchRaceProtected lets one caller recompute an expired entry while
	// the others keep reading the stale value for RaceGrace.
	FetchRaceProtected(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error)
	// FetchTiered checks the local tier before the shared store.
	FetchTiered(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error)
	// FetchConditional writes the fetched value only when pred accepts it.
	// A nil pred uses Options.Cacheable.
	FetchConditional(ctx context.Context, endpoint, key string, ttl time.Duration, pred Predicate) (payload.Value, error)
	// FetchWithETag always asks the origin. If-None-Match is sent only when
	// both the value and its ETag are cached.
	FetchWithETag(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error)
	// FetchWithLastModified is FetchWithETag with If-Modified-Since.
	FetchWithLastModified(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error)
	FetchSWR(ctx context.Context, endpoint, key string, freshTTL, staleTTL time.Duration) (payload.Value, error)
	// Refresh fetches endpoint and writes both halves of the freshness pair.
	Refresh(ctx context.Context, endpoint, key string, freshTTL, staleTTL time.Duration) (payload.Value, error)
	FetchWithFallback(ctx context.Context, endpoints []string, key string, ttl time.Duration) (payload.Value, error)
	// FetchBatch maps item keys to endpoints. Items that fail are absent
	// from the result.
	FetchBatch(ctx context.Context, items map[string]string, prefix string, ttl time.Duration) (map[string]payload.Value, error)
	// Warm fetches and writes unconditionally.
	Warm(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error)

	Invalidate(ctx context.Context, key string) error
	InvalidatePattern(ctx context.Context, pattern string) (int, error)

	// WithLocal returns a client sharing everything but the local tier.
	// Closing it leaves the shared resources and local alone.
	WithLocal(local pr.Provider) Client
}

// Options configure a Client. Store and Fetcher are required; the rest
// have defaults.
type Options struct {
	// Required
	Store   pr.Shared // distributed tier
	Fetcher fetch.Fetcher

	Local     pr.Provider                // process-local tier; nil => memory.Store
	Codec     codec.Codec[payload.Value] // nil => JSON
	Namespace string                     // prefixes every storage key and pattern when set

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	DefaultTTL       time.Duration // ttl <= 0 on a call => DefaultTTL; 0 => 1h
	FreshTTL         time.Duration // 0 => 5m
	StaleTTL         time.Duration // 0 => 1h
	RaceGrace        time.Duration // 0 => 10s
	LockTTL          time.Duration // recompute lock and cold-miss fetch bound; 0 => max(RaceGrace, 30s)
	BatchConcurrency int           // 0 => 8
	Cacheable        Predicate     // nil => Cacheable
	ComputeSetCost   SetCostFunc   // default len(raw)

	// Refresher overrides the built-in refresh pool.
	Refresher      Refresher
	RefreshWorkers int           // 0 => 2
	RefreshQueue   int           // 0 => 256
	RefreshTimeout time.Duration // 0 => 1m

	Disabled  bool             // every strategy becomes a direct fetch
	OwnStores bool             // Close also closes Store and Local
	Now       func() time.Time // nil => time.Now
}

func New(opts Options) (Client, error) {
	return newClient(opts)
}
