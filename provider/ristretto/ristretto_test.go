package ristretto

import (
	"context"
	"testing"
)

func TestSyncSetIsReadable(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64, Sync: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(ctx)

	if ok, err := p.Set(ctx, "local:k", []byte(`{"id":1}`), 0, 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "local:k")
	if err != nil || !ok || string(b) != `{"id":1}` {
		t.Fatalf("Get: %q ok=%v err=%v", b, ok, err)
	}
	_ = p.Del(ctx, "local:k")
	if _, ok, _ := p.Get(ctx, "local:k"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64, Sync: true, Metrics: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(ctx)

	_, _ = p.Set(ctx, "local:k", []byte("v"), 0, 0)
	_, _, _ = p.Get(ctx, "local:k")
	_, _, _ = p.Get(ctx, "local:missing")
	m := p.Metrics()
	if m == nil || m.Hits() != 1 || m.Misses() != 1 {
		t.Fatalf("metrics = %v", m)
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for zero config")
	}
}
