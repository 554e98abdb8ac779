package fetchcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/fetchcache/payload"
)

// FetchWithFallback tries endpoints in order behind one cache key and stops
// at the first answer. Nothing is written when every endpoint fails.
func (c *client) FetchWithFallback(ctx context.Context, endpoints []string, key string, ttl time.Duration) (payload.Value, error) {
	if !c.enabled {
		return c.firstOf(ctx, endpoints)
	}
	sk := c.key(key)
	v, e, ok, err := c.readValue(ctx, c.store, sk)
	if err != nil {
		return payload.Value{}, err
	}
	if ok && !e.Expired(c.now()) {
		return v, nil
	}

	v, err = c.firstOf(ctx, endpoints)
	if err != nil {
		return payload.Value{}, err
	}
	c.writeValue(ctx, c.store, sk, v, time.Time{}, c.ttl(ttl))
	return v, nil
}

func (c *client) firstOf(ctx context.Context, endpoints []string) (payload.Value, error) {
	errs := make([]error, 0, len(endpoints))
	for _, ep := range endpoints {
		v, err := c.fetchBody(ctx, ep)
		if err == nil {
			return v, nil
		}
		c.log.Warn("endpoint failed", Fields{"endpoint": ep, "err": err})
		c.hooks.FetchFailed(ep, err)
		errs = append(errs, err)
	}
	return payload.Value{}, &AllEndpointsFailedError{
		Endpoints: append([]string(nil), endpoints...),
		Errs:      errs,
	}
}
