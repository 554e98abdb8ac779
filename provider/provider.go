// Package provider defines the storage abstraction used by fetchcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation).
//
// Two tiers consume providers. The process-local tier needs only Provider.
// The distributed tier needs Shared: on top of plain reads and writes it must
// offer an owner-checked lock (the race-grace "one winner" primitive) and
// pattern deletion.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL; ttl <= 0 means no expiry.
	// May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Locker grants a short-lived, owner-tagged lock on a key.
type Locker interface {
	// Lock sets key to token iff key does not exist, expiring after ttl.
	// Returns true when the caller now owns the lock.
	Lock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// Unlock deletes key only if it still holds token.
	Unlock(ctx context.Context, key, token string) error
}

// PatternDeleter removes every key matching a glob pattern using the
// store's native matching semantics (Redis-style: *, ?, [...], \ escapes).
type PatternDeleter interface {
	DelPattern(ctx context.Context, pattern string) (int, error)
}

// Shared is the contract of the distributed tier.
type Shared interface {
	Provider
	Locker
	PatternDeleter
}

// MultiGetter is optionally implemented by stores that can read many keys in
// one round trip. Missing keys are absent from the result.
type MultiGetter interface {
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
}
