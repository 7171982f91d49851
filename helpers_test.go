package cassession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/cassession/backend"
	c "github.com/unkn0wn-root/cassession/codec"
)

type memEntry struct {
	v   []byte
	ver uint64
	ttl time.Duration
}

// memBackend is a versioned in-memory backend. Versions come from one
// counter, so the first write after newMemBackend(6) gets version 7.
type memBackend struct {
	mu  sync.Mutex
	m   map[string]memEntry
	seq uint64

	gets, sets, dels int
	failGet, failSet error
}

var _ backend.Backend = (*memBackend)(nil)

func newMemBackend(seq uint64) *memBackend {
	return &memBackend{m: make(map[string]memEntry), seq: seq}
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, uint64, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	if b.failGet != nil {
		return nil, 0, false, b.failGet
	}
	e, ok := b.m[key]
	if !ok {
		return nil, 0, false, nil
	}
	return append([]byte(nil), e.v...), e.ver, true, nil
}

func (b *memBackend) CompareAndSet(_ context.Context, key string, value []byte, version uint64, ttl time.Duration) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sets++
	if b.failSet != nil {
		return 0, b.failSet
	}
	e, ok := b.m[key]
	if version != 0 {
		if !ok {
			return 0, backend.ErrNotFound
		}
		if e.ver != version {
			return 0, backend.ErrConflict
		}
	}
	b.seq++
	b.m[key] = memEntry{v: append([]byte(nil), value...), ver: b.seq, ttl: ttl}
	return b.seq, nil
}

func (b *memBackend) CompareAndDelete(_ context.Context, key string, version uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dels++
	e, ok := b.m[key]
	if !ok {
		return backend.ErrNotFound
	}
	if version != 0 && e.ver != version {
		return backend.ErrConflict
	}
	delete(b.m, key)
	return nil
}

func (b *memBackend) Close(context.Context) error { return nil }

// put stores raw bytes at an explicit version, bypassing CAS.
func (b *memBackend) put(key string, raw []byte, ver uint64) {
	b.mu.Lock()
	b.m[key] = memEntry{v: raw, ver: ver}
	b.mu.Unlock()
}

func (b *memBackend) raw(key string) ([]byte, uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.m[key]
	return e.v, e.ver, ok
}

func (b *memBackend) counts() (gets, sets, dels int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets, b.sets, b.dels
}

// seqIDs hands out "abc", then "id-1", "id-2", ...
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n == 1 {
		return "abc", nil
	}
	return fmt.Sprintf("id-%d", g.n-1), nil
}

type anomaly struct {
	key, reason string
	token       Token
}

type recHooks struct {
	mu        sync.Mutex
	events    []Event
	anomalies []anomaly
}

func (h *recHooks) CacheOp(ev Event) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *recHooks) SessionAnomaly(key, reason string, tok Token) {
	h.mu.Lock()
	h.anomalies = append(h.anomalies, anomaly{key, reason, tok})
	h.mu.Unlock()
}

type recNotifier struct {
	msgs []string
	fn   func()
}

func (n *recNotifier) Notify(_ context.Context, msg string) {
	n.msgs = append(n.msgs, msg)
	if n.fn != nil {
		n.fn()
	}
}

type fixture struct {
	be       *memBackend
	cache    *CasCache[Data]
	store    *Store
	hooks    *recHooks
	notifier *recNotifier
}

func newFixture(t *testing.T, mutate func(*CacheOptions[Data], *StoreOptions)) *fixture {
	t.Helper()
	f := &fixture{be: newMemBackend(6), hooks: &recHooks{}, notifier: &recNotifier{}}
	copts := CacheOptions[Data]{Backend: f.be, Codec: c.JSON[Data]{}, Hooks: f.hooks}
	sopts := StoreOptions{IDGenerator: &seqIDs{}, Notifier: f.notifier, Hooks: f.hooks}
	if mutate != nil {
		mutate(&copts, &sopts)
	}
	cache, err := NewCasCache(copts)
	if err != nil {
		t.Fatalf("NewCasCache: %v", err)
	}
	sopts.Cache = cache
	store, err := NewStore(sopts)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	f.cache, f.store = cache, store
	return f
}

var errBoom = errors.New("boom")
