package fetchcache

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/fetchcache/codec"
	"github.com/unkn0wn-root/fetchcache/fetch"
	"github.com/unkn0wn-root/fetchcache/internal/keys"
	"github.com/unkn0wn-root/fetchcache/internal/wire"
	"github.com/unkn0wn-root/fetchcache/payload"
	pr "github.com/unkn0wn-root/fetchcache/provider"
	"github.com/unkn0wn-root/fetchcache/provider/memory"
	"github.com/unkn0wn-root/fetchcache/refresh"
)

type client struct {
	store   pr.Shared
	local   pr.Provider
	fetcher fetch.Fetcher
	codec   codec.Codec[payload.Value]
	ns      string
	log     Logger
	hooks   Hooks
	enabled bool
	now     func() time.Time

	defaultTTL     time.Duration
	freshTTL       time.Duration
	staleTTL       time.Duration
	grace          time.Duration
	lockTTL        time.Duration
	batchParallel  int
	cacheable      Predicate
	computeSetCost SetCostFunc

	refresher Refresher
	pool      *refresh.Pool // nil when Options.Refresher was supplied
	flights   *singleflight.Group

	ownStores bool
	derived   bool
}

func newClient(opts Options) (*client, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	if opts.Fetcher == nil {
		return nil, ErrNilFetcher
	}

	c := &client{
		store:     opts.Store,
		fetcher:   opts.Fetcher,
		ns:        opts.Namespace,
		enabled:   !opts.Disabled,
		ownStores: opts.OwnStores,
		flights:   &singleflight.Group{},
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.codec = coalesce[codec.Codec[payload.Value]](opts.Codec, codec.JSON[payload.Value]{})
	c.defaultTTL = positive(opts.DefaultTTL, defaultTTL)
	c.freshTTL = positive(opts.FreshTTL, defaultFreshTTL)
	c.staleTTL = positive(opts.StaleTTL, defaultStaleTTL)
	c.grace = positive(opts.RaceGrace, defaultRaceGrace)
	c.lockTTL = positive(opts.LockTTL, max(c.grace, defaultLockTTL))
	c.batchParallel = positive(opts.BatchConcurrency, defaultBatchParallel)

	c.now = opts.Now
	if c.now == nil {
		c.now = time.Now
	}
	c.cacheable = opts.Cacheable
	if c.cacheable == nil {
		c.cacheable = Cacheable
	}
	c.computeSetCost = opts.ComputeSetCost
	if c.computeSetCost == nil {
		c.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}
	c.local = opts.Local
	if c.local == nil {
		c.local = memory.New(memory.Config{Now: c.now})
	}

	if opts.Refresher != nil {
		c.refresher = opts.Refresher
	} else {
		c.pool = refresh.New(c.runRefresh, refresh.Options{
			Workers: positive(opts.RefreshWorkers, defaultRefreshWorkers),
			Queue:   positive(opts.RefreshQueue, defaultRefreshQueue),
			Timeout: positive(opts.RefreshTimeout, defaultRefreshTimeout),
			OnError: func(t refresh.Task, err error) {
				c.log.Warn("background refresh failed", Fields{"key": t.Key, "endpoint": t.Endpoint, "err": err})
				c.hooks.RefreshFailed(t.Key, err)
			},
			OnDrop: func(t refresh.Task, reason string) {
				c.log.Debug("background refresh dropped", Fields{"key": t.Key, "reason": reason})
				c.hooks.RefreshDropped(t.Key, reason)
			},
		})
		c.refresher = c.pool
	}

	return c, nil
}

func (c *client) Enabled() bool { return c.enabled }

func (c *client) Close(ctx context.Context) error {
	if c.derived {
		return nil
	}
	var errs []error
	if c.pool != nil {
		if err := c.pool.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ownStores {
		if err := c.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := c.local.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *client) WithLocal(local pr.Provider) Client {
	cp := *c
	if local != nil {
		cp.local = local
	}
	cp.derived = true
	return &cp
}

// Cacheable is the default write predicate: it rejects objects whose
// "status" member is the string "error".
func Cacheable(v payload.Value) bool {
	st, ok := v.Get("status")
	if !ok {
		return true
	}
	s, ok := st.AsString()
	return !ok || s != "error"
}

func (c *client) key(k string) string { return keys.Namespaced(c.ns, k) }

func (c *client) ttl(ttl time.Duration) time.Duration { return positive(ttl, c.defaultTTL) }

// fetchBody runs one unconditional fetch.
func (c *client) fetchBody(ctx context.Context, endpoint string) (payload.Value, error) {
	resp, err := c.fetchResponse(ctx, endpoint, nil)
	if err != nil {
		return payload.Value{}, err
	}
	return resp.Body, nil
}

func (c *client) fetchResponse(ctx context.Context, endpoint string, header http.Header) (*fetch.Response, error) {
	resp, err := c.fetcher.Get(ctx, endpoint, header)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &fetch.Error{Endpoint: endpoint, Err: errors.New("nil response")}
	}
	return resp, nil
}

// readEntry returns the decoded envelope stored under sk. Corrupt entries
// are deleted and reported as a miss.
func (c *client) readEntry(ctx context.Context, p pr.Provider, sk string) (wire.Entry, bool, error) {
	raw, ok, err := p.Get(ctx, sk)
	if err != nil {
		return wire.Entry{}, false, &StoreError{Op: "get", Key: sk, Err: err}
	}
	if !ok {
		return wire.Entry{}, false, nil
	}
	e, err := wire.Decode(raw)
	if err != nil {
		c.selfHeal(ctx, p, sk, "corrupt")
		return wire.Entry{}, false, nil
	}
	return e, true, nil
}

// readValue reads a value entry. The entry is returned so callers can check
// its soft expiry.
func (c *client) readValue(ctx context.Context, p pr.Provider, sk string) (payload.Value, wire.Entry, bool, error) {
	e, ok, err := c.readEntry(ctx, p, sk)
	if err != nil || !ok {
		return payload.Value{}, wire.Entry{}, false, err
	}
	v, ok := c.decodeValue(ctx, p, sk, e)
	return v, e, ok, nil
}

func (c *client) decodeValue(ctx context.Context, p pr.Provider, sk string, e wire.Entry) (payload.Value, bool) {
	if e.Kind != wire.KindValue {
		c.selfHeal(ctx, p, sk, "kind_mismatch")
		return payload.Value{}, false
	}
	v, err := c.codec.Decode(e.Payload)
	if err != nil {
		c.selfHeal(ctx, p, sk, "value_decode")
		return payload.Value{}, false
	}
	return v, true
}

func (c *client) readMeta(ctx context.Context, sk string) (string, bool, error) {
	e, ok, err := c.readEntry(ctx, c.store, sk)
	if err != nil || !ok {
		return "", false, err
	}
	if e.Kind != wire.KindMeta {
		c.selfHeal(ctx, c.store, sk, "kind_mismatch")
		return "", false, nil
	}
	return string(e.Payload), true, nil
}

func (c *client) selfHeal(ctx context.Context, p pr.Provider, sk, reason string) {
	_ = p.Del(ctx, sk)
	c.hooks.SelfHeal(sk, reason)
	c.log.Debug("dropped unreadable entry", Fields{"key": sk, "reason": reason})
}

// writeValue stores v under sk. A zero softExpiry means the provider TTL is
// the only expiry. Failures are logged and reported, never returned: the
// value the origin sent is still good.
func (c *client) writeValue(ctx context.Context, p pr.Provider, sk string, v payload.Value, softExpiry time.Time, ttl time.Duration) bool {
	b, err := c.codec.Encode(v)
	if err != nil {
		c.log.Error("encode value", Fields{"key": sk, "err": err})
		c.hooks.WriteSkipped(sk, "encode_error")
		return false
	}
	return c.set(ctx, p, sk, wire.EncodeValue(softExpiry, b), ttl)
}

func (c *client) writeMeta(ctx context.Context, sk, s string, ttl time.Duration) bool {
	return c.set(ctx, c.store, sk, wire.EncodeMeta(s), ttl)
}

func (c *client) set(ctx context.Context, p pr.Provider, sk string, raw []byte, ttl time.Duration) bool {
	ok, err := p.Set(ctx, sk, raw, c.computeSetCost(sk, raw), ttl)
	if err != nil {
		c.log.Warn("cache write failed", Fields{"key": sk, "err": err})
		c.hooks.StoreError("set", sk, err)
		c.hooks.WriteSkipped(sk, "store_error")
		return false
	}
	if !ok {
		c.log.Debug("cache write rejected by provider (pressure)", Fields{"key": sk})
		c.hooks.ProviderSetRejected(sk)
		return false
	}
	return true
}

func (c *client) del(ctx context.Context, p pr.Provider, sk string) error {
	if err := p.Del(ctx, sk); err != nil {
		return &StoreError{Op: "del", Key: sk, Err: err}
	}
	return nil
}
