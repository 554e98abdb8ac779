package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var strategies = []string{
	"basic", "race", "tiered", "conditional", "etag", "last-modified",
	"swr", "fallback", "batch", "warm", "invalidate", "invalidate-pattern",
}

type cliFlags struct {
	strategy  string
	endpoints []string
	key       string
	prefix    string
	pattern   string
	ttl       time.Duration
	freshTTL  time.Duration
	staleTTL  time.Duration
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, error) {
	var f cliFlags
	fs := pflag.NewFlagSet("fetchcache", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&f.strategy, "strategy", "s", "basic", "one of: "+strings.Join(strategies, ", "))
	fs.StringArrayVarP(&f.endpoints, "endpoint", "e", nil, "origin endpoint; repeat for fallback, item=endpoint for batch")
	fs.StringVarP(&f.key, "key", "k", "", "cache key")
	fs.StringVar(&f.prefix, "prefix", "", "batch key prefix (defaults to --key)")
	fs.StringVar(&f.pattern, "pattern", "", "glob for invalidate-pattern")
	fs.DurationVar(&f.ttl, "ttl", time.Hour, "entry ttl")
	fs.DurationVar(&f.freshTTL, "fresh-ttl", 5*time.Minute, "stale-while-revalidate fresh ttl")
	fs.DurationVar(&f.staleTTL, "stale-ttl", time.Hour, "stale-while-revalidate stale ttl")
	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	if f.prefix == "" {
		f.prefix = f.key
	}
	return f, f.validate()
}

func (f cliFlags) validate() error {
	known := false
	for _, s := range strategies {
		if s == f.strategy {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown strategy %q", f.strategy)
	}
	switch f.strategy {
	case "invalidate-pattern":
		if f.pattern == "" {
			return errors.New("--pattern is required")
		}
		return nil
	case "batch":
		if f.prefix == "" {
			return errors.New("--prefix or --key is required")
		}
	default:
		if f.key == "" {
			return errors.New("--key is required")
		}
	}
	if f.strategy != "invalidate" && len(f.endpoints) == 0 {
		return errors.New("at least one --endpoint is required")
	}
	return nil
}

func (f cliFlags) endpoint() string {
	if len(f.endpoints) == 0 {
		return ""
	}
	return f.endpoints[0]
}

// batchItems parses item=endpoint pairs.
func (f cliFlags) batchItems() (map[string]string, error) {
	items := make(map[string]string, len(f.endpoints))
	for _, e := range f.endpoints {
		id, ep, ok := strings.Cut(e, "=")
		if !ok || id == "" || ep == "" {
			return nil, fmt.Errorf("batch endpoint %q: want item=endpoint", e)
		}
		items[id] = ep
	}
	return items, nil
}
