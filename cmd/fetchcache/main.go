// Command fetchcache runs one caching strategy against a remote origin and a
// Redis store, then prints the result as JSON.
//
// Settings come from FETCHCACHE_* environment variables; flags select the
// strategy and its arguments:
//
//	fetchcache --strategy swr --endpoint /users --key api:users --fresh-ttl 1m
//	fetchcache --strategy fallback -e /primary -e /mirror --key api:users
//	fetchcache --strategy batch -e 1=/users/1 -e 2=/users/2 --prefix api:user
//	fetchcache --strategy invalidate-pattern --pattern 'api:users:*'
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/fetchcache"
	"github.com/unkn0wn-root/fetchcache/codec"
	"github.com/unkn0wn-root/fetchcache/fetch"
	"github.com/unkn0wn-root/fetchcache/internal/config"
	"github.com/unkn0wn-root/fetchcache/internal/otel"
	"github.com/unkn0wn-root/fetchcache/payload"
	redisprovider "github.com/unkn0wn-root/fetchcache/provider/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "fetchcache:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	shutdown, err := otel.Setup(ctx, "fetchcache", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()

	obs, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer obs.flush()

	client, err := newClient(cfg, obs)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Timeout)
		defer cancel()
		if err := client.Close(cctx); err != nil {
			obs.logger.Warn("close", fetchcache.Fields{"err": err})
		}
	}()

	out, err := execute(ctx, client, f)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newClient(cfg config.Config, obs observability) (fetchcache.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	store, err := redisprovider.New(redisprovider.Config{Client: rdb, CloseClient: true})
	if err != nil {
		return nil, err
	}
	local, err := newLocal(cfg.Local)
	if err != nil {
		_ = closeProviders(context.Background(), store)
		return nil, err
	}
	cdc, err := codec.ForName(cfg.Codec)
	if err != nil {
		_ = closeProviders(context.Background(), store, local)
		return nil, err
	}
	if cfg.MaxEntryBytes > 0 {
		cdc = codec.Limit[payload.Value]{Inner: cdc, MaxDecode: cfg.MaxEntryBytes}
	}

	client, err := fetchcache.New(fetchcache.Options{
		Store:          store,
		Local:          local,
		Fetcher:        fetch.NewHTTP(fetch.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}),
		Codec:          cdc,
		Namespace:      cfg.Namespace,
		Logger:         obs.logger,
		Hooks:          obs.hooks,
		OwnStores:      true,
		LockTTL:        cfg.Timeout,
		RefreshTimeout: cfg.Timeout,
	})
	if err != nil {
		_ = closeProviders(context.Background(), store, local)
		return nil, err
	}
	return client, nil
}

func execute(ctx context.Context, c fetchcache.Client, f cliFlags) (any, error) {
	ep := f.endpoint()
	switch f.strategy {
	case "basic":
		return c.Fetch(ctx, ep, f.key, f.ttl)
	case "race":
		return c.FetchRaceProtected(ctx, ep, f.key, f.ttl)
	case "tiered":
		return c.FetchTiered(ctx, ep, f.key, f.ttl)
	case "conditional":
		return c.FetchConditional(ctx, ep, f.key, f.ttl, nil)
	case "etag":
		return c.FetchWithETag(ctx, ep, f.key, f.ttl)
	case "last-modified":
		return c.FetchWithLastModified(ctx, ep, f.key, f.ttl)
	case "swr":
		return c.FetchSWR(ctx, ep, f.key, f.freshTTL, f.staleTTL)
	case "fallback":
		return c.FetchWithFallback(ctx, f.endpoints, f.key, f.ttl)
	case "batch":
		items, err := f.batchItems()
		if err != nil {
			return nil, err
		}
		return c.FetchBatch(ctx, items, f.prefix, f.ttl)
	case "warm":
		return c.Warm(ctx, ep, f.key, f.ttl)
	case "invalidate":
		if err := c.Invalidate(ctx, f.key); err != nil {
			return nil, err
		}
		return map[string]any{"invalidated": f.key}, nil
	case "invalidate-pattern":
		n, err := c.InvalidatePattern(ctx, f.pattern)
		if err != nil {
			return nil, err
		}
		return map[string]any{"pattern": f.pattern, "deleted": n}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", f.strategy)
	}
}
