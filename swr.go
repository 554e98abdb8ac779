package fetchcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/fetchcache/internal/keys"
	"github.com/unkn0wn-root/fetchcache/payload"
	"github.com/unkn0wn-root/fetchcache/refresh"
)

func (c *client) FetchSWR(ctx context.Context, endpoint, key string, freshTTL, staleTTL time.Duration) (payload.Value, error) {
	if !c.enabled {
		return c.fetchBody(ctx, endpoint)
	}
	freshTTL, staleTTL = c.swrTTLs(key, freshTTL, staleTTL)
	sk := c.key(key)

	v, _, ok, err := c.readValue(ctx, c.store, keys.Fresh(sk))
	if err != nil {
		return payload.Value{}, err
	}
	if ok {
		return v, nil
	}

	v, _, ok, err = c.readValue(ctx, c.store, keys.Stale(sk))
	if err != nil {
		return payload.Value{}, err
	}
	if ok {
		c.refresher.Schedule(refresh.Task{
			Endpoint: endpoint,
			Key:      key,
			FreshTTL: freshTTL,
			StaleTTL: staleTTL,
		})
		c.hooks.StaleServed(sk, "revalidating")
		return v, nil
	}

	return c.Refresh(ctx, endpoint, key, freshTTL, staleTTL)
}

func (c *client) Refresh(ctx context.Context, endpoint, key string, freshTTL, staleTTL time.Duration) (payload.Value, error) {
	v, err := c.fetchBody(ctx, endpoint)
	if err != nil {
		return payload.Value{}, err
	}
	if !c.enabled {
		return v, nil
	}
	freshTTL, staleTTL = c.swrTTLs(key, freshTTL, staleTTL)
	sk := c.key(key)
	c.writeValue(ctx, c.store, keys.Fresh(sk), v, time.Time{}, freshTTL)
	c.writeValue(ctx, c.store, keys.Stale(sk), v, time.Time{}, staleTTL)
	return v, nil
}

// swrTTLs applies defaults and keeps the stale copy alive at least as long
// as the fresh one.
func (c *client) swrTTLs(key string, freshTTL, staleTTL time.Duration) (time.Duration, time.Duration) {
	freshTTL = positive(freshTTL, c.freshTTL)
	staleTTL = positive(staleTTL, c.staleTTL)
	if staleTTL < freshTTL {
		c.log.Warn("stale ttl below fresh ttl; raising", Fields{"key": key, "fresh_ttl": freshTTL, "stale_ttl": staleTTL})
		staleTTL = freshTTL
	}
	return freshTTL, staleTTL
}

func (c *client) runRefresh(ctx context.Context, t refresh.Task) error {
	_, err := c.Refresh(ctx, t.Endpoint, t.Key, t.FreshTTL, t.StaleTTL)
	return err
}
