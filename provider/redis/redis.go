package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/fetchcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

const defaultScanCount = 500

// unlockScript deletes KEYS[1] only while it still holds the caller's token.
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	scanCount   int64
}

var (
	_ pr.Shared      = (*Redis)(nil)
	_ pr.MultiGetter = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool  // set true only if this provider exclusively owns the client
	ScanCount   int64 // SCAN COUNT hint for DelPattern; 0 => 500
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	sc := cfg.ScanCount
	if sc <= 0 {
		sc = defaultScanCount
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient, scanCount: sc}, nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

// GetMany uses MGET; cluster clients fall back to a pipeline of GETs since
// the keys may live in different slots.
func (p *Redis) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	if _, ok := p.rdb.(*goredis.ClusterClient); ok {
		cmds := make([]*goredis.StringCmd, len(keys))
		_, err := p.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
			for i, k := range keys {
				cmds[i] = pipe.Get(ctx, k)
			}
			return nil
		})
		if err != nil && err != goredis.Nil {
			return nil, err
		}
		for i, cmd := range cmds {
			b, err := cmd.Bytes()
			if err == goredis.Nil {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[keys[i]] = b
		}
		return out, nil
	}

	vals, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
		case string:
			out[keys[i]] = []byte(vv)
		case []byte:
			out[keys[i]] = vv
		}
	}
	return out, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // treat non-positive TTLs as "no expiry" per provider contract
	}
	if err := p.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

func (p *Redis) Lock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return p.rdb.SetNX(ctx, key, token, ttl).Result()
}

func (p *Redis) Unlock(ctx context.Context, key, token string) error {
	err := unlockScript.Run(ctx, p.rdb, []string{key}, token).Err()
	if err == goredis.Nil {
		return nil
	}
	return err
}

// DelPattern walks the keyspace with SCAN MATCH and deletes matches in
// batches. On a cluster every master is scanned.
func (p *Redis) DelPattern(ctx context.Context, pattern string) (int, error) {
	if cc, ok := p.rdb.(*goredis.ClusterClient); ok {
		var total atomic.Int64
		err := cc.ForEachMaster(ctx, func(ctx context.Context, c *goredis.Client) error {
			n, err := p.scanDel(ctx, c, pattern)
			total.Add(int64(n))
			return err
		})
		return int(total.Load()), err
	}
	return p.scanDel(ctx, p.rdb, pattern)
}

func (p *Redis) scanDel(ctx context.Context, c goredis.Cmdable, pattern string) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := c.Scan(ctx, cursor, pattern, p.scanCount).Result()
		if err != nil {
			return total, err
		}
		if len(keys) > 0 {
			n, err := delKeys(ctx, c, keys)
			total += n
			if err != nil {
				return total, err
			}
		}
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

// delKeys issues one DEL per key in a pipeline so a batch never spans slots.
func delKeys(ctx context.Context, c goredis.Cmdable, keys []string) (int, error) {
	cmds := make([]*goredis.IntCmd, len(keys))
	_, err := c.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.Del(ctx, k)
		}
		return nil
	})
	n := 0
	for _, cmd := range cmds {
		n += int(cmd.Val())
	}
	return n, err
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
