package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/unkn0wn-root/fetchcache/internal/config"
	"github.com/unkn0wn-root/fetchcache/provider/memory"
)

type closeRecorder struct {
	*memory.Store
	closed int
	err    error
}

func (c *closeRecorder) Close(context.Context) error {
	c.closed++
	return c.err
}

func TestCloseProvidersClosesAll(t *testing.T) {
	boom := errors.New("boom")
	a := &closeRecorder{Store: memory.New(memory.Config{}), err: boom}
	b := &closeRecorder{Store: memory.New(memory.Config{})}

	err := closeProviders(context.Background(), a, nil, b)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if a.closed != 1 || b.closed != 1 {
		t.Fatalf("closed a=%d b=%d", a.closed, b.closed)
	}
}

func TestRunSlogLogsCacheEvents(t *testing.T) {
	setup(t)
	t.Setenv("FETCHCACHE_LOGGER", "slog")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-s", "fallback", "-e", "/down", "-e", "/users", "-k", "k"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr.String(), "fetchcache.fetch_failed") {
		t.Fatalf("hook event missing from log output:\n%s", stderr.String())
	}
}

func TestNewLoggerHooksOnlyForSlog(t *testing.T) {
	for _, name := range []string{"zap", "logrus", "zerolog"} {
		obs, err := newLogger(config.Config{Logger: name}, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if obs.hooks != nil || obs.logger == nil {
			t.Fatalf("%s: %+v", name, obs)
		}
		obs.flush()
	}
	obs, err := newLogger(config.Config{Logger: "slog"}, &bytes.Buffer{})
	if err != nil || obs.hooks == nil {
		t.Fatalf("slog: hooks=%v err=%v", obs.hooks, err)
	}
	obs.flush()
}
