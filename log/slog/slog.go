//go:build go1.21

package slog

import (
	"context"
	stdslog "log/slog"

	"github.com/unkn0wn-root/fetchcache"
	"github.com/unkn0wn-root/fetchcache/log"
)

var _ fetchcache.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New wraps l, defaulting to slog.Default, with a "component" attribute.
func New(l *stdslog.Logger) Logger {
	if l == nil {
		l = stdslog.Default()
	}
	return Logger{L: l.With(stdslog.String("component", "fetchcache"))}
}

func (s Logger) Debug(msg string, f fetchcache.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f fetchcache.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f fetchcache.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f fetchcache.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(level stdslog.Level, msg string, f fetchcache.Fields) {
	ctx := context.Background()
	if !s.L.Enabled(ctx, level) {
		return
	}
	s.L.LogAttrs(ctx, level, msg, attrs(f)...)
}

func attrs(f fetchcache.Fields) []stdslog.Attr {
	keys := log.SortedKeys(f)
	if keys == nil {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(keys))
	for _, k := range keys {
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}
