package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/fetchcache"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("cache write failed", fetchcache.Fields{"key": "k", "err": errors.New("boom")})
	l.Debug("dropped", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.Message != "cache write failed" {
		t.Fatalf("entry = %+v", e)
	}
	ctx := e.ContextMap()
	if ctx["key"] != "k" || ctx["err"] != "boom" || ctx["component"] != "fetchcache" {
		t.Fatalf("context = %v", ctx)
	}
}

func TestNilZapIsNop(t *testing.T) {
	New(nil).Error("x", fetchcache.Fields{"a": 1})
}
