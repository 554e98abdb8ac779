package fetchcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/fetchcache/internal/keys"
	"github.com/unkn0wn-root/fetchcache/payload"
)

// Race-protected entries carry a soft expiry at now+ttl and live in the
// store for ttl+grace. Between the two, one caller holds <key>:lock and
// recomputes; everyone else is served the stale value. The lock lives for
// LockTTL so a slow fetch keeps it until the winner releases it.
func (c *client) FetchRaceProtected(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error) {
	if !c.enabled {
		return c.fetchBody(ctx, endpoint)
	}
	ttl = c.ttl(ttl)
	sk := c.key(key)

	v, e, ok, err := c.readValue(ctx, c.store, sk)
	if err != nil {
		return payload.Value{}, err
	}
	if ok && !e.Expired(c.now()) {
		return v, nil
	}
	if ok {
		return c.recompute(ctx, endpoint, sk, ttl, v)
	}

	// cold miss: nothing stale to serve, so callers in this process share one
	// fetch. It runs detached from whichever caller started it and each
	// caller waits on its own context.
	ch := c.flights.DoChan(sk, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lockTTL)
		defer cancel()
		v, e, ok, err := c.readValue(fctx, c.store, sk)
		if err != nil {
			return nil, err
		}
		if ok && !e.Expired(c.now()) {
			return v, nil
		}
		return c.fetchRace(fctx, endpoint, sk, ttl)
	})
	select {
	case <-ctx.Done():
		return payload.Value{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return payload.Value{}, res.Err
		}
		return res.Val.(payload.Value), nil
	}
}

func (c *client) recompute(ctx context.Context, endpoint, sk string, ttl time.Duration, stale payload.Value) (payload.Value, error) {
	lk := keys.Lock(sk)
	token := keys.Token()
	won, err := c.store.Lock(ctx, lk, token, c.lockTTL)
	if err != nil {
		c.log.Warn("race lock failed; serving stale", Fields{"key": sk, "err": err})
		c.hooks.StoreError("lock", lk, err)
		c.hooks.StaleServed(sk, "race_grace")
		return stale, nil
	}
	if !won {
		c.hooks.StaleServed(sk, "race_grace")
		return stale, nil
	}
	defer c.unlock(ctx, lk, token)

	// the previous holder may have refreshed between our read and our lock
	v, e, ok, err := c.readValue(ctx, c.store, sk)
	if err == nil && ok && !e.Expired(c.now()) {
		return v, nil
	}
	return c.fetchRace(ctx, endpoint, sk, ttl)
}

func (c *client) fetchRace(ctx context.Context, endpoint, sk string, ttl time.Duration) (payload.Value, error) {
	v, err := c.fetchBody(ctx, endpoint)
	if err != nil {
		return payload.Value{}, err
	}
	c.writeValue(ctx, c.store, sk, v, c.now().Add(ttl), ttl+c.grace)
	return v, nil
}

func (c *client) unlock(ctx context.Context, lk, token string) {
	if err := c.store.Unlock(context.WithoutCancel(ctx), lk, token); err != nil {
		c.log.Warn("race unlock failed; lock expires with grace", Fields{"key": lk, "err": err})
		c.hooks.StoreError("unlock", lk, err)
	}
}
