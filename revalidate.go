package fetchcache

import (
	"context"
	"net/http"
	"time"

	"github.com/unkn0wn-root/fetchcache/fetch"
	"github.com/unkn0wn-root/fetchcache/internal/keys"
	"github.com/unkn0wn-root/fetchcache/payload"
)

// validator describes one HTTP revalidation scheme.
type validator struct {
	sibling  func(string) string
	request  string // precondition header sent
	response string // header carrying the new validator
}

var (
	etagValidator = validator{
		sibling:  keys.ETag,
		request:  fetch.HeaderIfNoneMatch,
		response: fetch.HeaderETag,
	}
	lastModifiedValidator = validator{
		sibling:  keys.LastModified,
		request:  fetch.HeaderIfModifiedSince,
		response: fetch.HeaderLastModified,
	}
)

func (c *client) FetchWithETag(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error) {
	return c.revalidate(ctx, endpoint, key, ttl, etagValidator)
}

func (c *client) FetchWithLastModified(ctx context.Context, endpoint, key string, ttl time.Duration) (payload.Value, error) {
	return c.revalidate(ctx, endpoint, key, ttl, lastModifiedValidator)
}

// revalidate always asks the origin. The precondition is sent only when
// both the value and its validator are cached, so a 304 can always be
// answered from the cache.
func (c *client) revalidate(ctx context.Context, endpoint, key string, ttl time.Duration, vd validator) (payload.Value, error) {
	if !c.enabled {
		return c.fetchBody(ctx, endpoint)
	}
	ttl = c.ttl(ttl)
	sk := c.key(key)
	mk := vd.sibling(sk)

	cached, _, hasValue, err := c.readValue(ctx, c.store, sk)
	if err != nil {
		return payload.Value{}, err
	}
	tag, hasTag, err := c.readMeta(ctx, mk)
	if err != nil {
		return payload.Value{}, err
	}

	var header http.Header
	if hasValue && hasTag {
		header = http.Header{vd.request: []string{tag}}
	}
	resp, err := c.fetchResponse(ctx, endpoint, header)
	if err != nil {
		if hasValue {
			c.log.Warn("fetch failed; serving cached value", Fields{"key": sk, "endpoint": endpoint, "err": err})
			c.hooks.StaleServed(sk, "fetch_failed")
			return cached, nil
		}
		return payload.Value{}, err
	}
	if resp.NotModified() {
		if !hasValue {
			return payload.Value{}, &fetch.Error{Endpoint: endpoint, StatusCode: resp.StatusCode}
		}
		return cached, nil
	}

	c.writeValue(ctx, c.store, sk, resp.Body, time.Time{}, ttl)
	if next := resp.Header.Get(vd.response); next != "" {
		c.writeMeta(ctx, mk, next, ttl)
	} else if hasTag {
		// the old validator no longer describes the stored value
		if err := c.del(ctx, c.store, mk); err != nil {
			c.log.Warn("drop stale validator", Fields{"key": mk, "err": err})
			c.hooks.StoreError("del", mk, err)
		}
	}
	return resp.Body, nil
}
