package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/fetchcache"
	"github.com/unkn0wn-root/fetchcache/log"
)

var _ fetchcache.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New wraps l with the "component" field set. A nil l logs nowhere.
func New(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{L: l.With(zap.String("component", "fetchcache"))}
}

func (z ZapLogger) Debug(msg string, f fetchcache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f fetchcache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f fetchcache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f fetchcache.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f fetchcache.Fields) []zap.Field {
	keys := log.SortedKeys(f)
	if keys == nil {
		return nil
	}
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
