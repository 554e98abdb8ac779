package fetchcache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/fetchcache/codec"
	"github.com/unkn0wn-root/fetchcache/fetch/fetchtest"
	"github.com/unkn0wn-root/fetchcache/internal/wire"
	"github.com/unkn0wn-root/fetchcache/payload"
	"github.com/unkn0wn-root/fetchcache/provider/memory"
	"github.com/unkn0wn-root/fetchcache/refresh"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingRefresher struct {
	mu    sync.Mutex
	tasks []refresh.Task
}

func (r *recordingRefresher) Schedule(t refresh.Task) bool {
	r.mu.Lock()
	r.tasks = append(r.tasks, t)
	r.mu.Unlock()
	return true
}

func (r *recordingRefresher) Tasks() []refresh.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]refresh.Task(nil), r.tasks...)
}

type recordingHooks struct {
	NopHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) add(ev string) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *recordingHooks) SelfHeal(k, r string)           { h.add("self_heal:" + k + ":" + r) }
func (h *recordingHooks) WriteSkipped(k, r string)       { h.add("write_skipped:" + k + ":" + r) }
func (h *recordingHooks) StaleServed(k, r string)        { h.add("stale_served:" + k + ":" + r) }
func (h *recordingHooks) FetchFailed(ep string, _ error) { h.add("fetch_failed:" + ep) }

func (h *recordingHooks) has(ev string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.events {
		if e == ev {
			return true
		}
	}
	return false
}

// countingStore records the keys written through it.
type countingStore struct {
	*memory.Store
	mu   sync.Mutex
	sets []string
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	s.sets = append(s.sets, key)
	s.mu.Unlock()
	return s.Store.Set(ctx, key, value, cost, ttl)
}

func (s *countingStore) Sets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sets...)
}

func (s *countingStore) resetSets() {
	s.mu.Lock()
	s.sets = nil
	s.mu.Unlock()
}

type harness struct {
	t      *testing.T
	clk    *clock
	store  *countingStore
	local  *memory.Store
	origin *fetchtest.Fake
	sched  *recordingRefresher
	hooks  *recordingHooks
	c      Client
}

func newHarness(t *testing.T, mut func(*Options)) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		clk:    newClock(),
		origin: fetchtest.New(),
		sched:  &recordingRefresher{},
		hooks:  &recordingHooks{},
	}
	h.store = &countingStore{Store: memory.New(memory.Config{Now: h.clk.Now})}
	h.local = memory.New(memory.Config{Now: h.clk.Now})
	opts := Options{
		Store:     h.store,
		Local:     h.local,
		Fetcher:   h.origin,
		Hooks:     h.hooks,
		Refresher: h.sched,
		Now:       h.clk.Now,
	}
	if mut != nil {
		mut(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.c = c
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return h
}

// cached decodes the value stored under a storage key.
func (h *harness) cached(sk string) (payload.Value, bool) {
	h.t.Helper()
	raw, ok, err := h.store.Get(context.Background(), sk)
	if err != nil {
		h.t.Fatalf("store get %s: %v", sk, err)
	}
	if !ok {
		return payload.Value{}, false
	}
	e, err := wire.Decode(raw)
	if err != nil {
		h.t.Fatalf("decode envelope %s: %v", sk, err)
	}
	v, err := codec.JSON[payload.Value]{}.Decode(e.Payload)
	if err != nil {
		h.t.Fatalf("decode value %s: %v", sk, err)
	}
	return v, true
}

func (h *harness) meta(sk string) (string, bool) {
	h.t.Helper()
	raw, ok, _ := h.store.Get(context.Background(), sk)
	if !ok {
		return "", false
	}
	e, err := wire.Decode(raw)
	if err != nil {
		h.t.Fatalf("decode envelope %s: %v", sk, err)
	}
	return string(e.Payload), true
}

func doc(kv ...any) payload.Value {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return payload.MustFromAny(m)
}

func header(k, v string) http.Header {
	h := http.Header{}
	h.Set(k, v)
	return h
}

var errOriginDown = errors.New("origin down")
