package fetchcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/fetchcache/payload"
)

func (c *client) Fetch(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error) {
	return c.readThrough(ctx, endpoint, key, ttl, nil)
}

func (c *client) FetchConditional(ctx context.Context, endpoint, key string, ttl time.Duration, pred Predicate) (payload.Value, error) {
	if pred == nil {
		pred = c.cacheable
	}
	return c.readThrough(ctx, endpoint, key, ttl, pred)
}

func (c *client) Warm(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error) {
	v, err := c.fetchBody(ctx, endpoint)
	if err != nil {
		return payload.Value{}, err
	}
	if c.enabled {
		c.writeValue(ctx, c.store, c.key(key), v, time.Time{}, c.ttl(ttl))
	}
	return v, nil
}

// readThrough serves key from the store or fetches and writes it. A nil
// pred writes every fetched value.
func (c *client) readThrough(ctx context.Context, endpoint, key string, ttl time.Duration, pred Predicate) (payload.Value, error) {
	if !c.enabled {
		return c.fetchBody(ctx, endpoint)
	}
	sk := c.key(key)
	v, e, ok, err := c.readValue(ctx, c.store, sk)
	if err != nil {
		return payload.Value{}, err
	}
	if ok && !e.Expired(c.now()) {
		return v, nil
	}

	v, err = c.fetchBody(ctx, endpoint)
	if err != nil {
		return payload.Value{}, err
	}
	if pred != nil && !pred(v) {
		c.log.Debug("fetched value not cacheable; skipping write", Fields{"key": sk, "endpoint": endpoint})
		c.hooks.WriteSkipped(sk, "predicate")
		return v, nil
	}
	c.writeValue(ctx, c.store, sk, v, time.Time{}, c.ttl(ttl))
	return v, nil
}
