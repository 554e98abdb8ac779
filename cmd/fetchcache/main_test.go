package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type env struct {
	redis *miniredis.Miniredis
	hits  atomic.Int32
}

func setup(t *testing.T) *env {
	t.Helper()
	e := &env{redis: miniredis.RunT(t)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.hits.Add(1)
		switch r.URL.Path {
		case "/users":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"users":["john","jane"]}`))
		case "/down":
			http.Error(w, "down", http.StatusBadGateway)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
		}
	}))
	t.Cleanup(srv.Close)

	t.Setenv("FETCHCACHE_BASE_URL", srv.URL)
	t.Setenv("FETCHCACHE_REDIS_ADDR", e.redis.Addr())
	return e
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, io.Discard)
	return out.String(), err
}

func TestRunBasicCachesInRedis(t *testing.T) {
	e := setup(t)

	for i := 0; i < 2; i++ {
		out, err := runCLI(t, "--strategy", "basic", "-e", "/users", "-k", "api:users")
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("output not JSON: %v: %s", err, out)
		}
		if users, _ := got["users"].([]any); len(users) != 2 {
			t.Fatalf("output = %s", out)
		}
	}
	if e.hits.Load() != 1 {
		t.Fatalf("origin hits = %d, want 1", e.hits.Load())
	}
	if !e.redis.Exists("api:users") {
		t.Fatalf("redis key missing: %v", e.redis.Keys())
	}
}

func TestRunOversizedEntryIsRefetched(t *testing.T) {
	e := setup(t)
	t.Setenv("FETCHCACHE_MAX_ENTRY_BYTES", "8")

	for i := 0; i < 2; i++ {
		if _, err := runCLI(t, "--strategy", "basic", "-e", "/users", "-k", "api:users"); err != nil {
			t.Fatalf("run: %v", err)
		}
	}
	if e.hits.Load() != 2 {
		t.Fatalf("origin hits = %d, want 2 (entry over the decode limit)", e.hits.Load())
	}
}

func TestRunCodecsAndLocalTiers(t *testing.T) {
	for _, tc := range []struct{ codec, local, logger string }{
		{"cbor", "ristretto", "zap"},
		{"msgpack", "bigcache", "logrus"},
		{"proto", "memory", "zerolog"},
	} {
		t.Run(tc.codec, func(t *testing.T) {
			setup(t)
			t.Setenv("FETCHCACHE_CODEC", tc.codec)
			t.Setenv("FETCHCACHE_LOCAL", tc.local)
			t.Setenv("FETCHCACHE_LOGGER", tc.logger)

			out, err := runCLI(t, "-s", "tiered", "-e", "/users", "-k", "u")
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if !strings.Contains(out, "jane") {
				t.Fatalf("output = %s", out)
			}
		})
	}
}

func TestRunFallbackAndInvalidatePattern(t *testing.T) {
	e := setup(t)
	t.Setenv("FETCHCACHE_NAMESPACE", "app")

	out, err := runCLI(t, "-s", "fallback", "-e", "/down", "-e", "/users", "-k", "api:users:1")
	if err != nil || !strings.Contains(out, "john") {
		t.Fatalf("fallback: %s %v", out, err)
	}
	if _, err := runCLI(t, "-s", "warm", "-e", "/posts", "-k", "api:posts:1"); err != nil {
		t.Fatalf("warm: %v", err)
	}

	out, err = runCLI(t, "-s", "invalidate-pattern", "--pattern", "api:users:*")
	if err != nil {
		t.Fatalf("invalidate-pattern: %v", err)
	}
	if !strings.Contains(out, `"deleted": 1`) {
		t.Fatalf("output = %s", out)
	}
	if e.redis.Exists("app:api:users:1") || !e.redis.Exists("app:api:posts:1") {
		t.Fatalf("keys after invalidation = %v", e.redis.Keys())
	}
}

func TestRunBatch(t *testing.T) {
	e := setup(t)

	out, err := runCLI(t, "-s", "batch", "-e", "1=/u/1", "-e", "2=/down", "--prefix", "user")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output not JSON: %s", out)
	}
	if _, ok := got["1"]; !ok || len(got) != 1 {
		t.Fatalf("batch result = %v", got)
	}
	if !e.redis.Exists("user:1") || e.redis.Exists("user:2") {
		t.Fatalf("keys = %v", e.redis.Keys())
	}
}

func TestRunErrors(t *testing.T) {
	setup(t)

	if _, err := runCLI(t, "-s", "basic", "-e", "/down", "-k", "k"); err == nil {
		t.Fatal("expected fetch error")
	}
	if _, err := runCLI(t, "-s", "nope", "-k", "k", "-e", "/x"); err == nil {
		t.Fatal("expected unknown strategy error")
	}
	if _, err := runCLI(t, "-s", "basic", "-e", "/x"); err == nil {
		t.Fatal("expected missing key error")
	}
	if _, err := runCLI(t, "-s", "batch", "-e", "bad", "--prefix", "p"); err == nil {
		t.Fatal("expected bad batch item error")
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	f, err := parseFlags([]string{"-e", "/x", "-k", "k"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if f.strategy != "basic" || f.prefix != "k" || f.ttl.String() != "1h0m0s" {
		t.Fatalf("flags = %+v", f)
	}
}
