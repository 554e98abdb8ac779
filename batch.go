package fetchcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/fetchcache/internal/keys"
	"github.com/unkn0wn-root/fetchcache/internal/wire"
	"github.com/unkn0wn-root/fetchcache/payload"
	pr "github.com/unkn0wn-root/fetchcache/provider"
)

// FetchBatch returns every item it could serve. A failed item is logged and
// left out of the map; it never aborts the rest of the batch.
func (c *client) FetchBatch(ctx context.Context, items map[string]string, prefix string, ttl time.Duration) (map[string]payload.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]payload.Value, len(items))
	if len(items) == 0 {
		return out, nil
	}
	ttl = c.ttl(ttl)

	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sks := make(map[string]string, len(ids))
	storage := make([]string, len(ids))
	for i, id := range ids {
		sks[id] = c.key(keys.Batch(prefix, id))
		storage[i] = sks[id]
	}

	var misses []string
	if c.enabled {
		found := c.lookup(ctx, storage)
		now := c.now()
		for _, id := range ids {
			e, ok := found[sks[id]]
			if ok && !e.Expired(now) {
				if v, ok := c.decodeValue(ctx, c.store, sks[id], e); ok {
					out[id] = v
					continue
				}
			}
			misses = append(misses, id)
		}
	} else {
		misses = ids
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.batchParallel)
	for _, id := range misses {
		g.Go(func() error {
			endpoint := items[id]
			v, err := c.fetchBody(ctx, endpoint)
			if err != nil {
				c.log.Warn("batch item fetch failed", Fields{"item": id, "endpoint": endpoint, "err": err})
				c.hooks.FetchFailed(endpoint, err)
				return nil
			}
			if c.enabled {
				c.writeValue(ctx, c.store, sks[id], v, time.Time{}, ttl)
			}
			mu.Lock()
			out[id] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// lookup reads storage keys in one round trip when the store supports it.
// Read errors degrade to misses.
func (c *client) lookup(ctx context.Context, storage []string) map[string]wire.Entry {
	out := make(map[string]wire.Entry, len(storage))
	if mg, ok := c.store.(pr.MultiGetter); ok {
		raws, err := mg.GetMany(ctx, storage)
		if err != nil {
			c.log.Warn("batch lookup failed; fetching every item", Fields{"keys": len(storage), "err": err})
			c.hooks.StoreError("get_many", "", err)
			return out
		}
		for sk, raw := range raws {
			e, err := wire.Decode(raw)
			if err != nil {
				c.selfHeal(ctx, c.store, sk, "corrupt")
				continue
			}
			out[sk] = e
		}
		return out
	}

	for _, sk := range storage {
		e, ok, err := c.readEntry(ctx, c.store, sk)
		if err != nil {
			c.log.Warn("batch item lookup failed", Fields{"key": sk, "err": err})
			c.hooks.StoreError("get", sk, err)
			continue
		}
		if ok {
			out[sk] = e
		}
	}
	return out
}
