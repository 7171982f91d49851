// Package redis implements backend.Backend on top of go-redis.
//
// Each entry is a hash with two fields: "v" (payload) and "ver" (version).
// Conditional writes and deletes run as Lua scripts, so the version check and
// the mutation are a single atomic step on the server. A newly created entry
// starts at a random version and increments from there, so a key that is
// deleted and recreated does not hand out versions an old reader still holds.
package redis

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/cassession/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

const (
	fieldValue   = "v"
	fieldVersion = "ver"

	// seeds stay well inside the exact integer range of Lua numbers
	maxSeed = 1 << 48
)

// KEYS[1]=key ARGV[1]=payload ARGV[2]=version ARGV[3]=ttl ms ARGV[4]=seed
// returns new version, 0 on mismatch, -1 when a conditional write finds no entry.
var casSetScript = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ver')
if ARGV[2] ~= '0' then
	if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
	if cur ~= ARGV[2] then return 0 end
end
local nv
if cur then
	nv = redis.call('HINCRBY', KEYS[1], 'ver', 1)
else
	nv = redis.call('HINCRBY', KEYS[1], 'ver', ARGV[4])
end
redis.call('HSET', KEYS[1], 'v', ARGV[1])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
else
	redis.call('PERSIST', KEYS[1])
end
return nv
`)

// KEYS[1]=key ARGV[1]=version
// returns 1 on delete, 0 on mismatch, -1 when missing.
var casDelScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if ARGV[1] ~= '0' and redis.call('HGET', KEYS[1], 'ver') ~= ARGV[1] then return 0 end
redis.call('DEL', KEYS[1])
return 1
`)

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ backend.Backend = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (b *Redis) Get(ctx context.Context, key string) ([]byte, uint64, bool, error) {
	vals, err := b.rdb.HMGet(ctx, key, fieldValue, fieldVersion).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis hmget: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil {
		return nil, 0, false, nil // miss
	}
	raw, err := asBytes(vals[0])
	if err != nil {
		return nil, 0, false, err
	}
	if vals[1] == nil {
		// value without version: foreign writer or partially migrated entry
		return raw, 0, true, nil
	}
	s, err := asBytes(vals[1])
	if err != nil {
		return nil, 0, false, err
	}
	ver, err := strconv.ParseUint(string(s), 10, 64)
	if err != nil {
		return raw, 0, true, nil
	}
	return raw, ver, true, nil
}

func (b *Redis) CompareAndSet(ctx context.Context, key string, value []byte, version uint64, ttl time.Duration) (uint64, error) {
	if ttl < 0 {
		ttl = 0
	}
	seed := rand.Uint64N(maxSeed-1) + 1
	res, err := casSetScript.Run(ctx, b.rdb, []string{key},
		value,
		strconv.FormatUint(version, 10),
		ttl.Milliseconds(),
		seed,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis cas set: %w", err)
	}
	switch {
	case res > 0:
		return uint64(res), nil
	case res == 0:
		return 0, backend.ErrConflict
	default:
		return 0, backend.ErrNotFound
	}
}

func (b *Redis) CompareAndDelete(ctx context.Context, key string, version uint64) error {
	res, err := casDelScript.Run(ctx, b.rdb, []string{key}, strconv.FormatUint(version, 10)).Int64()
	if err != nil {
		return fmt.Errorf("redis cas del: %w", err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return backend.ErrConflict
	default:
		return backend.ErrNotFound
	}
}

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (b *Redis) Close(context.Context) error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func asBytes(v any) ([]byte, error) {
	switch vv := v.(type) {
	case string:
		return []byte(vv), nil
	case []byte:
		return vv, nil
	default:
		return nil, fmt.Errorf("redis backend: unexpected reply type %T", v)
	}
}
