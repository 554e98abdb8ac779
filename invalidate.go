package fetchcache

import (
	"context"

	"github.com/unkn0wn-root/fetchcache/internal/keys"
	pr "github.com/unkn0wn-root/fetchcache/provider"
)

// Invalidate drops key from the store and the local tier. Deleting an
// absent key is not an error.
func (c *client) Invalidate(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	sk := c.key(key)
	storeErr := c.del(ctx, c.store, sk)
	localErr := c.del(ctx, c.local, keys.Local(sk))
	if storeErr != nil || localErr != nil {
		c.log.Error("invalidate failed", Fields{"key": key, "store_err": storeErr, "local_err": localErr})
		return &InvalidateError{Key: key, StoreErr: storeErr, LocalErr: localErr}
	}
	c.log.Debug("invalidated key", Fields{"key": key})
	return nil
}

// InvalidatePattern deletes every store key matching pattern using the
// store's own glob semantics, and returns how many went. Local copies are
// dropped too when the local tier can match patterns.
func (c *client) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if !c.enabled {
		return 0, nil
	}
	sp := c.key(pattern)
	n, err := c.store.DelPattern(ctx, sp)
	if err != nil {
		return n, &StoreError{Op: "del_pattern", Key: sp, Err: err}
	}
	if pd, ok := c.local.(pr.PatternDeleter); ok {
		if _, err := pd.DelPattern(ctx, keys.Local(sp)); err != nil {
			c.log.Warn("local pattern delete failed", Fields{"pattern": sp, "err": err})
			c.hooks.StoreError("del_pattern", keys.Local(sp), err)
		}
	}
	c.log.Debug("invalidated pattern", Fields{"pattern": sp, "deleted": n})
	return n, nil
}
