package fetchcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/fetchcache/internal/keys"
	"github.com/unkn0wn-root/fetchcache/payload"
)

// FetchTiered never expires the local copy; it lives as long as the local
// provider keeps it.
func (c *client) FetchTiered(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error) {
	if !c.enabled {
		return c.fetchBody(ctx, endpoint)
	}
	lk := keys.Local(c.key(key))
	v, _, ok, err := c.readValue(ctx, c.local, lk)
	if err != nil {
		c.log.Warn("local tier read failed", Fields{"key": lk, "err": err})
		c.hooks.StoreError("get", lk, err)
	}
	if ok {
		return v, nil
	}

	v, err = c.readThrough(ctx, endpoint, key, ttl, nil)
	if err != nil {
		return payload.Value{}, err
	}
	c.writeValue(ctx, c.local, lk, v, time.Time{}, 0)
	return v, nil
}
