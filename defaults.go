package fetchcache

import "time"

const (
	defaultTTL            = time.Hour
	defaultFreshTTL       = 5 * time.Minute
	defaultStaleTTL       = time.Hour
	defaultRaceGrace      = 10 * time.Second
	defaultLockTTL        = 30 * time.Second // matches fetch.HTTP's default timeout
	defaultBatchParallel  = 8
	defaultRefreshWorkers = 2
	defaultRefreshQueue   = 256
	defaultRefreshTimeout = time.Minute
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// positive returns def unless v > 0.
func positive[T ~int | ~int64](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
