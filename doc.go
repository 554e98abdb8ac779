// Package fetchcache caches the answers of a remote HTTP origin in a shared
// store (Redis) with an optional process-local tier in front of it.
//
// Components:
//   - Provider: byte store with TTL. provider.Shared adds a lock and
//     pattern delete (Redis, memory); local tiers only need Provider
//     (memory, Ristretto, BigCache).
//   - Fetcher: one GET against the origin, parsed into a payload.Value.
//   - Codec: payload.Value <-> []byte (JSON, CBOR, msgpack, protobuf).
//   - Refresher: background refreshes for stale-while-revalidate.
//
// Storage keys for a logical key k (after Namespace):
//
//	k                  - the value
//	k:etag             - ETag of the cached value
//	k:last_modified    - Last-Modified of the cached value
//	k:fresh, k:stale   - stale-while-revalidate pair
//	k:lock             - race-protection lock
//	local:k            - local tier copy
//	prefix:item        - batch items
//
// Strategies:
//
//	v, err := client.Fetch(ctx, "/users", "api:users", time.Minute)
//	v, err = client.FetchRaceProtected(ctx, "/users", "api:users", time.Minute)
//	v, err = client.FetchSWR(ctx, "/users", "api:users", 5*time.Minute, time.Hour)
//	v, err = client.FetchWithFallback(ctx, []string{"/a", "/b"}, "api:users", time.Minute)
//	items, _ := client.FetchBatch(ctx, map[string]string{"1": "/users/1"}, "api:user", time.Minute)
package fetchcache
