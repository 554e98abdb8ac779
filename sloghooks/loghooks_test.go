package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRedactsKeysByDefault(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.StoreError("get", "api:users:secret", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("raw key leaked: %s", out)
	}
	if !strings.Contains(out, "fetchcache.store_error") || !strings.Contains(out, "op=get") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCustomRedactor(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{Redact: func(s string) string { return "R(" + s + ")" }})
	h.WriteSkipped("k", "predicate")
	if !strings.Contains(buf.String(), "key=R(k)") {
		t.Fatalf("redactor not used: %s", buf.String())
	}
}

func TestSampling(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{StaleServedEvery: 3})
	for i := 0; i < 9; i++ {
		h.StaleServed("k", "race_grace")
	}
	if n := strings.Count(buf.String(), "fetchcache.stale_served"); n != 3 {
		t.Fatalf("logged %d of 9, want 3", n)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.SelfHeal("k", "corrupt")
	h.FetchFailed("/x", errors.New("x"))
	h.RefreshDropped("k", "queue_full")
}
