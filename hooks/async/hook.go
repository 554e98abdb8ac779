// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/fetchcache"
//	"github.com/unkn0wn-root/fetchcache/hooks/async"
//	"github.com/unkn0wn-root/fetchcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    StaleServedEvery: 100, // sample logs: ~every 100th stale serve
//	    FetchFailedEvery: 1,   // log every failed endpoint
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	client, _ := fetchcache.New(fetchcache.Options{
//	    Namespace: "app:prod",
//	    Store:     store,
//	    Fetcher:   fetcher,
//	    Hooks:     hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/fetchcache"
)

type Hooks struct {
	inner   fetchcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ fetchcache.Hooks = (*Hooks)(nil)

func New(inner fetchcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events. Events emitted after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped is the number of events lost to a full queue.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on closed queue after Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(k, r string)           { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)   { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) WriteSkipped(k, r string)       { h.try(func() { h.inner.WriteSkipped(k, r) }) }
func (h *Hooks) StaleServed(k, r string)        { h.try(func() { h.inner.StaleServed(k, r) }) }
func (h *Hooks) FetchFailed(ep string, e error) { h.try(func() { h.inner.FetchFailed(ep, e) }) }
func (h *Hooks) RefreshDropped(k, r string)     { h.try(func() { h.inner.RefreshDropped(k, r) }) }
func (h *Hooks) RefreshFailed(k string, e error) {
	h.try(func() { h.inner.RefreshFailed(k, e) })
}
func (h *Hooks) StoreError(op, k string, err error) {
	h.try(func() { h.inner.StoreError(op, k, err) })
}
