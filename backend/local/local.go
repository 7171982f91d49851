// Package local implements backend.Backend for a single process on top of any
// provider.Provider byte store.
//
// Versions come from a genstore.GenStore; entries are stored as wire frames
// carrying the version they were written at. A read is a hit only when the
// frame's version still matches the counter, so entries left behind by a lost
// race or a foreign writer self-heal on read. Compare-and-mutate runs under a
// lock stripe chosen by key hash.
//
// The lock is process-local: two processes sharing one provider do not get
// linearized writes. Use backend/redis when sessions are shared across replicas.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/cassession/backend"
	gen "github.com/unkn0wn-root/cassession/genstore"
	"github.com/unkn0wn-root/cassession/internal/wire"
	pr "github.com/unkn0wn-root/cassession/provider"
)

const (
	stripes             = 256
	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

type SetCostFunc func(key string, raw []byte) int64

type Options struct {
	Provider pr.Provider // required

	GenStore        gen.GenStore  // nil => LocalGenStore
	CleanupInterval time.Duration // LocalGenStore sweep; 0 => 1h
	GenRetention    time.Duration // LocalGenStore retention; 0 => 30d
	ComputeSetCost  SetCostFunc   // default 1
}

type Local struct {
	provider pr.Provider
	gen      gen.GenStore
	cost     SetCostFunc
	locks    [stripes]sync.Mutex
}

var _ backend.Backend = (*Local)(nil)

func New(opts Options) (*Local, error) {
	if opts.Provider == nil {
		return nil, errors.New("local backend: provider is required")
	}
	b := &Local{provider: opts.Provider, gen: opts.GenStore, cost: opts.ComputeSetCost}
	if b.gen == nil {
		sweep := opts.CleanupInterval
		if sweep == 0 {
			sweep = defaultSweep
		}
		retention := opts.GenRetention
		if retention == 0 {
			retention = defaultGenRetention
		}
		b.gen = gen.NewLocalGenStore(sweep, retention)
	}
	if b.cost == nil {
		b.cost = func(string, []byte) int64 { return 1 }
	}
	return b, nil
}

func (b *Local) lock(key string) *sync.Mutex {
	return &b.locks[xxhash.Sum64String(key)%stripes]
}

func (b *Local) Get(ctx context.Context, key string) ([]byte, uint64, bool, error) {
	mu := b.lock(key)
	mu.Lock()
	defer mu.Unlock()

	payload, ver, ok, err := b.current(ctx, key)
	if err != nil || !ok {
		return nil, 0, false, err
	}
	// copy out: the frame may alias provider memory
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, ver, true, nil
}

func (b *Local) CompareAndSet(ctx context.Context, key string, value []byte, version uint64, ttl time.Duration) (uint64, error) {
	mu := b.lock(key)
	mu.Lock()
	defer mu.Unlock()

	_, cur, ok, err := b.current(ctx, key)
	if err != nil {
		return 0, err
	}
	if version != 0 {
		if !ok {
			return 0, backend.ErrNotFound
		}
		if cur != version {
			return 0, backend.ErrConflict
		}
	}

	// the counter moves only once the provider holds the new frame, so a
	// rejected write leaves the previous entry readable
	g, err := b.gen.Snapshot(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("local backend: version snapshot: %w", err)
	}
	next := g + 1
	if err := b.store(ctx, key, next, value, ttl); err != nil {
		return 0, err
	}
	bumped, err := b.gen.Bump(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("local backend: version bump: %w", err)
	}
	if bumped != next {
		// a shared GenStore moved underneath us; restamp the frame
		if err := b.store(ctx, key, bumped, value, ttl); err != nil {
			return 0, err
		}
	}
	return bumped, nil
}

func (b *Local) store(ctx context.Context, key string, ver uint64, value []byte, ttl time.Duration) error {
	frame := wire.EncodeEntry(ver, value)
	stored, err := b.provider.Set(ctx, key, frame, b.cost(key, frame), ttl)
	if err != nil {
		return err
	}
	if !stored {
		return backend.ErrRejected
	}
	return nil
}

func (b *Local) CompareAndDelete(ctx context.Context, key string, version uint64) error {
	mu := b.lock(key)
	mu.Lock()
	defer mu.Unlock()

	_, cur, ok, err := b.current(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return backend.ErrNotFound
	}
	if version != 0 && cur != version {
		return backend.ErrConflict
	}
	if _, err := b.gen.Bump(ctx, key); err != nil {
		return fmt.Errorf("local backend: version bump: %w", err)
	}
	return b.provider.Del(ctx, key)
}

func (b *Local) Close(ctx context.Context) error {
	// Close gen store first (best effort)
	if b.gen != nil {
		_ = b.gen.Close(ctx)
	}
	return b.provider.Close(ctx)
}

// current must be called with the key's stripe held. A corrupt frame or one
// whose version lags the counter is deleted and reported as a miss.
func (b *Local) current(ctx context.Context, key string) ([]byte, uint64, bool, error) {
	raw, ok, err := b.provider.Get(ctx, key)
	if err != nil || !ok {
		return nil, 0, false, err
	}
	ver, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		_ = b.provider.Del(ctx, key) // self-heal corrupt
		return nil, 0, false, nil
	}
	g, err := b.gen.Snapshot(ctx, key)
	if err != nil {
		return nil, 0, false, fmt.Errorf("local backend: version snapshot: %w", err)
	}
	if ver != g {
		_ = b.provider.Del(ctx, key)
		return nil, 0, false, nil
	}
	return payload, ver, true, nil
}
