package cassession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/cassession/backend"
	c "github.com/unkn0wn-root/cassession/codec"
	"github.com/unkn0wn-root/cassession/internal/util"
)

// CasCache is a typed, namespaced view over a versioned Backend.
// Safe for concurrent use.
type CasCache[V any] struct {
	ns         string
	backend    backend.Backend
	codec      c.Codec[V]
	log        Logger
	hooks      Hooks
	enabled    bool
	strict     bool
	defaultTTL time.Duration
}

var _ Cache[Data] = (*CasCache[Data])(nil)

func NewCasCache[V any](opts CacheOptions[V]) (*CasCache[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("cassession: backend is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("cassession: codec is required")
	}

	cc := &CasCache[V]{
		ns:      opts.Namespace,
		backend: opts.Backend,
		codec:   opts.Codec,
		log:     opts.Logger,
		hooks:   opts.Hooks,
		enabled: !opts.Disabled,
		strict:  opts.Strict,
	}
	if cc.log == nil {
		cc.log = NopLogger{}
	}
	if cc.hooks == nil {
		cc.hooks = NopHooks{}
	}
	cc.defaultTTL = coalesce(opts.DefaultTTL, DefaultSessionTTL)
	return cc, nil
}

func (cc *CasCache[V]) Enabled() bool             { return cc.enabled }
func (cc *CasCache[V]) Strict() bool              { return cc.strict }
func (cc *CasCache[V]) DefaultTTL() time.Duration { return cc.defaultTTL }

func (cc *CasCache[V]) Close(ctx context.Context) error {
	return cc.backend.Close(ctx)
}

func (cc *CasCache[V]) ReadWithToken(ctx context.Context, key string) (V, Token, bool, error) {
	var zero V
	k := util.StorageKey(cc.ns, key)
	if !cc.enabled {
		cc.hooks.CacheOp(Event{Op: OpRead, Key: k, Err: ErrDisabled})
		return zero, Unconditional, false, nil
	}
	start := time.Now()

	raw, ver, ok, err := cc.backend.Get(ctx, k)
	if err != nil {
		cc.hooks.CacheOp(Event{Op: OpRead, Key: k, Err: err, Elapsed: time.Since(start)})
		cc.log.Error("read_cas failed", Fields{"key": k, "err": err})
		if cc.strict {
			return zero, Unconditional, false, &TransportError{Op: OpRead, Key: k, Err: err}
		}
		return zero, Unconditional, false, nil
	}
	if !ok {
		cc.hooks.CacheOp(Event{Op: OpRead, Key: k, Elapsed: time.Since(start)})
		cc.log.Debug("read_cas miss", Fields{"key": k})
		return zero, Unconditional, false, nil
	}

	v, err := cc.codec.Decode(raw)
	if err != nil {
		// undecodable entry reads as a miss; the next write replaces it
		cc.hooks.CacheOp(Event{Op: OpRead, Key: k, Err: err, Elapsed: time.Since(start)})
		cc.log.Warn("read_cas decode failed", Fields{"key": k, "err": err})
		return zero, Unconditional, false, nil
	}

	tok := Token(ver)
	cc.hooks.CacheOp(Event{Op: OpRead, Key: k, Hit: true, NewToken: tok, Elapsed: time.Since(start)})
	cc.log.Debug("read_cas hit", Fields{"key": k, "new_cas": tok})
	return v, tok, true, nil
}

func (cc *CasCache[V]) WriteWithToken(ctx context.Context, key string, v V, token Token, ttl time.Duration) (Token, error) {
	k := util.StorageKey(cc.ns, key)
	if !cc.enabled {
		cc.hooks.CacheOp(Event{Op: OpWrite, Key: k, OldToken: token, Err: ErrDisabled})
		return Unconditional, ErrDisabled
	}
	switch {
	case ttl == 0:
		ttl = cc.defaultTTL
	case ttl < 0:
		ttl = 0 // no expiry
	}
	start := time.Now()

	payload, err := cc.codec.Encode(v)
	if err != nil {
		cc.hooks.CacheOp(Event{Op: OpWrite, Key: k, OldToken: token, Err: err, Elapsed: time.Since(start)})
		return Unconditional, fmt.Errorf("cassession: encode %q: %w", k, err)
	}

	ver, err := cc.backend.CompareAndSet(ctx, k, payload, uint64(token), ttl)
	if err != nil {
		cc.hooks.CacheOp(Event{Op: OpWrite, Key: k, OldToken: token, Err: err, Elapsed: time.Since(start)})
		cc.log.Debug("write_cas rejected", Fields{"key": k, "old_cas": token, "err": err})
		return Unconditional, cc.classify(OpWrite, k, token, err)
	}

	tok := Token(ver)
	cc.hooks.CacheOp(Event{Op: OpWrite, Key: k, Hit: true, OldToken: token, NewToken: tok, Elapsed: time.Since(start)})
	cc.log.Debug("write_cas ok", Fields{"key": k, "old_cas": token, "new_cas": tok})
	return tok, nil
}

func (cc *CasCache[V]) DeleteWithToken(ctx context.Context, key string, token Token) error {
	k := util.StorageKey(cc.ns, key)
	if !cc.enabled {
		cc.hooks.CacheOp(Event{Op: OpDelete, Key: k, OldToken: token, Err: ErrDisabled})
		return ErrDisabled
	}
	start := time.Now()

	if err := cc.backend.CompareAndDelete(ctx, k, uint64(token)); err != nil {
		cc.hooks.CacheOp(Event{Op: OpDelete, Key: k, OldToken: token, Err: err, Elapsed: time.Since(start)})
		cc.log.Debug("delete_cas rejected", Fields{"key": k, "old_cas": token, "err": err})
		return cc.classify(OpDelete, k, token, err)
	}

	cc.hooks.CacheOp(Event{Op: OpDelete, Key: k, Hit: true, OldToken: token, Elapsed: time.Since(start)})
	cc.log.Debug("delete_cas ok", Fields{"key": k, "old_cas": token})
	return nil
}

func (cc *CasCache[V]) classify(op Op, key string, token Token, err error) error {
	if errors.Is(err, backend.ErrConflict) || errors.Is(err, backend.ErrNotFound) {
		return &ConflictError{Op: op, Key: key, Token: token, Err: err}
	}
	cc.log.Error(string(op)+" failed", Fields{"key": key, "err": err})
	return &TransportError{Op: op, Key: key, Err: err}
}
