package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/fetchcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	StaleServedEvery uint64
	SelfHealEvery    uint64
	FetchFailedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	staleCtr    atomic.Uint64
	selfHealCtr atomic.Uint64
	fetchCtr    atomic.Uint64
}

var _ fetchcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("fetchcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("fetchcache.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) WriteSkipped(storageKey, reason string) {
	if h.l == nil {
		return
	}
	h.l.Debug("fetchcache.write_skipped",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) StaleServed(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.StaleServedEvery, &h.staleCtr) {
		return
	}
	h.l.Info("fetchcache.stale_served",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) FetchFailed(endpoint string, err error) {
	if h.l == nil || !sample(h.opts.FetchFailedEvery, &h.fetchCtr) {
		return
	}
	h.l.Warn("fetchcache.fetch_failed",
		"endpoint", endpoint,
		"err", err)
}

func (h *Hooks) RefreshDropped(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("fetchcache.refresh_dropped",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) RefreshFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("fetchcache.refresh_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) StoreError(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("fetchcache.store_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}
