// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    CacheOpEvery: 100, // sample: ~every 100th cache op
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := cassession.NewCasCache(cassession.CacheOptions[cassession.Data]{
//	    Backend: be,
//	    Codec:   codec.JSON[cassession.Data]{},
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/cassession"
)

// Hooks forwards events to inner from a fixed worker pool. When the queue is
// full events are dropped and counted, so a slow sink never stalls a request.
type Hooks struct {
	inner   cassession.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ cassession.Hooks = (*Hooks)(nil)

func New(inner cassession.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) CacheOp(ev cassession.Event) { h.try(func() { h.inner.CacheOp(ev) }) }
func (h *Hooks) SessionAnomaly(k, r string, tok cassession.Token) {
	h.try(func() { h.inner.SessionAnomaly(k, r, tok) })
}
