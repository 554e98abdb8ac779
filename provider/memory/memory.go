// Package memory is an in-process Provider guarded by a mutex.
//
// It serves two roles: the default process-local tier, and a complete
// provider.Shared for single-process deployments and tests. Expiry is lazy:
// expired entries are dropped when touched.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tidwall/match"

	pr "github.com/unkn0wn-root/fetchcache/provider"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type Store struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

var (
	_ pr.Shared      = (*Store)(nil)
	_ pr.MultiGetter = (*Store)(nil)
)

type Config struct {
	// Now overrides the clock used for TTL bookkeeping. Defaults to time.Now.
	Now func() time.Time
}

func New(cfg Config) *Store {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{m: make(map[string]entry), now: now}
}

// live returns the entry for key if present and unexpired. Caller holds mu.
func (s *Store) live(key string, now time.Time) (entry, bool) {
	e, ok := s.m[key]
	if !ok {
		return entry{}, false
	}
	if !e.exp.IsZero() && !now.Before(e.exp) {
		return entry{}, false
	}
	return e, true
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := s.now()
	s.mu.RLock()
	e, ok := s.live(key, now)
	s.mu.RUnlock()
	if !ok {
		s.dropExpired(key, now)
		return nil, false, nil
	}
	return append([]byte(nil), e.v...), true, nil
}

func (s *Store) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	now := s.now()
	out := make(map[string][]byte, len(keys))
	s.mu.RLock()
	for _, k := range keys {
		if e, ok := s.live(k, now); ok {
			out[k] = append([]byte(nil), e.v...)
		}
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *Store) dropExpired(key string, now time.Time) {
	s.mu.Lock()
	if e, ok := s.m[key]; ok && !e.exp.IsZero() && !now.Before(e.exp) {
		delete(s.m, key)
	}
	s.mu.Unlock()
}

func (s *Store) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	e := entry{v: append([]byte(nil), value...)}
	if ttl > 0 {
		e.exp = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.m[key] = e
	s.mu.Unlock()
	return true, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Lock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key, now); ok {
		return false, nil
	}
	e := entry{v: []byte(token)}
	if ttl > 0 {
		e.exp = now.Add(ttl)
	}
	s.m[key] = e
	return true, nil
}

func (s *Store) Unlock(_ context.Context, key, token string) error {
	s.mu.Lock()
	if e, ok := s.m[key]; ok && string(e.v) == token {
		delete(s.m, key)
	}
	s.mu.Unlock()
	return nil
}

// DelPattern matches with Redis glob semantics.
func (s *Store) DelPattern(_ context.Context, pattern string) (int, error) {
	s.mu.Lock()
	n := 0
	for k := range s.m {
		if match.Match(k, pattern) {
			delete(s.m, k)
			n++
		}
	}
	s.mu.Unlock()
	return n, nil
}

// Keys returns the live keys in sorted order.
func (s *Store) Keys() []string {
	now := s.now()
	s.mu.RLock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		if _, ok := s.live(k, now); ok {
			out = append(out, k)
		}
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Clear drops every entry. Request-scoped local tiers call it at teardown.
func (s *Store) Clear() {
	s.mu.Lock()
	s.m = make(map[string]entry)
	s.mu.Unlock()
}

func (s *Store) Close(_ context.Context) error { return nil }
