package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdslog "log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/fetchcache"
	asynchook "github.com/unkn0wn-root/fetchcache/hooks/async"
	"github.com/unkn0wn-root/fetchcache/internal/config"
	logrusadapter "github.com/unkn0wn-root/fetchcache/log/logrus"
	slogadapter "github.com/unkn0wn-root/fetchcache/log/slog"
	zapadapter "github.com/unkn0wn-root/fetchcache/log/zap"
	zerologadapter "github.com/unkn0wn-root/fetchcache/log/zerolog"
	pr "github.com/unkn0wn-root/fetchcache/provider"
	"github.com/unkn0wn-root/fetchcache/provider/bigcache"
	"github.com/unkn0wn-root/fetchcache/provider/memory"
	"github.com/unkn0wn-root/fetchcache/provider/ristretto"
	"github.com/unkn0wn-root/fetchcache/sloghooks"
)

func newLocal(name string) (pr.Provider, error) {
	switch strings.ToLower(name) {
	case "", "memory":
		return memory.New(memory.Config{}), nil
	case "ristretto":
		return ristretto.New(ristretto.Config{
			NumCounters: 100_000,
			MaxCost:     64 << 20,
			BufferItems: 64,
			Sync:        true,
		})
	case "bigcache":
		return bigcache.New(bigcache.Config{LifeWindow: time.Hour})
	default:
		return nil, fmt.Errorf("unknown local tier %q", name)
	}
}

// observability is the logger and hooks handed to the client. flush drains
// queued hook events and buffered log output; call it after the client is
// closed.
type observability struct {
	logger fetchcache.Logger
	hooks  fetchcache.Hooks // nil => the client's NopHooks
	flush  func()
}

// newLogger builds the adapter named by cfg.Logger writing to w. With slog
// the cache events are logged too, through sloghooks behind an async queue.
func newLogger(cfg config.Config, w io.Writer) (observability, error) {
	nop := func() {}
	switch strings.ToLower(cfg.Logger) {
	case "", "slog":
		level := stdslog.LevelInfo
		if cfg.Debug {
			level = stdslog.LevelDebug
		}
		l := stdslog.New(stdslog.NewJSONHandler(w, &stdslog.HandlerOptions{Level: level}))
		hooks := asynchook.New(sloghooks.New(l, sloghooks.Options{
			StaleServedEvery: 100,
			FetchFailedEvery: 1,
		}), 1, 1024)
		return observability{logger: slogadapter.New(l), hooks: hooks, flush: hooks.Close}, nil
	case "zap":
		level := zapcore.InfoLevel
		if cfg.Debug {
			level = zapcore.DebugLevel
		}
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			level,
		)
		l := zap.New(core)
		return observability{logger: zapadapter.New(l), flush: func() { _ = l.Sync() }}, nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})
		if cfg.Debug {
			l.SetLevel(logrus.DebugLevel)
		}
		return observability{logger: logrusadapter.New(l), flush: nop}, nil
	case "zerolog":
		level := zerolog.InfoLevel
		if cfg.Debug {
			level = zerolog.DebugLevel
		}
		l := zerolog.New(w).Level(level).With().Timestamp().Logger()
		return observability{logger: zerologadapter.New(l), flush: nop}, nil
	default:
		return observability{}, fmt.Errorf("unknown logger %q", cfg.Logger)
	}
}

// closeProviders closes every provider and joins the failures.
func closeProviders(ctx context.Context, ps ...pr.Provider) error {
	var errs []error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
