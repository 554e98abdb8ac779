package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/fetchcache"
	"github.com/unkn0wn-root/fetchcache/log"
)

var _ fetchcache.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "fetchcache").Logger()}
}

func (z Logger) Debug(msg string, f fetchcache.Fields) { emit(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f fetchcache.Fields)  { emit(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f fetchcache.Fields)  { emit(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f fetchcache.Fields) { emit(z.L.Error(), msg, f) }

// emit is a no-op when the level is disabled (e == nil).
func emit(e *zerolog.Event, msg string, f fetchcache.Fields) {
	if e == nil {
		return
	}
	for _, k := range log.SortedKeys(f) {
		switch v := f[k].(type) {
		case error:
			e = e.AnErr(k, v)
		default:
			e = e.Interface(k, v)
		}
	}
	e.Msg(msg)
}
