package cassession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unkn0wn-root/cassession/backend"
	c "github.com/unkn0wn-root/cassession/codec"
)

func TestNewCasCacheRequiresBackendAndCodec(t *testing.T) {
	if _, err := NewCasCache(CacheOptions[Data]{Codec: c.JSON[Data]{}}); err == nil {
		t.Fatalf("expected error without backend")
	}
	if _, err := NewCasCache(CacheOptions[Data]{Backend: newMemBackend(0)}); err == nil {
		t.Fatalf("expected error without codec")
	}
}

func TestCasCache_ReadWriteFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *CacheOptions[Data], _ *StoreOptions) { o.Namespace = "app" })

	if _, tok, ok, err := f.cache.ReadWithToken(ctx, "k"); err != nil || ok || tok != Unconditional {
		t.Fatalf("expected miss, ok=%v tok=%d err=%v", ok, tok, err)
	}

	t1, err := f.cache.WriteWithToken(ctx, "k", Data{"a": "x"}, Unconditional, 0)
	if err != nil || t1 != 7 {
		t.Fatalf("write: tok=%d err=%v", t1, err)
	}
	if _, ver, ok := f.be.raw("app:k"); !ok || ver != 7 {
		t.Fatalf("namespaced key not stored, ok=%v ver=%d", ok, ver)
	}

	v, tok, ok, err := f.cache.ReadWithToken(ctx, "k")
	if err != nil || !ok || tok != t1 || v["a"] != "x" {
		t.Fatalf("read: v=%v tok=%d ok=%v err=%v", v, tok, ok, err)
	}

	t2, err := f.cache.WriteWithToken(ctx, "k", Data{"a": "y"}, t1, 0)
	if err != nil || t2 == t1 {
		t.Fatalf("cas write: tok=%d err=%v", t2, err)
	}

	_, err = f.cache.WriteWithToken(ctx, "k", Data{"a": "stale"}, t1, 0)
	var ce *ConflictError
	if !errors.As(err, &ce) || !errors.Is(err, backend.ErrConflict) {
		t.Fatalf("expected ConflictError(ErrConflict), got %v", err)
	}
	if ce.Token != t1 || ce.Op != OpWrite || ce.Key != "app:k" {
		t.Fatalf("unexpected conflict detail: %+v", ce)
	}

	if err := f.cache.DeleteWithToken(ctx, "k", t1); !errors.Is(err, backend.ErrConflict) {
		t.Fatalf("stale delete: expected ErrConflict, got %v", err)
	}
	if err := f.cache.DeleteWithToken(ctx, "k", t2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.cache.DeleteWithToken(ctx, "k", t2); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("delete missing: expected ErrNotFound, got %v", err)
	}
}

func TestCasCache_ConditionalWriteOnMissingKeyConflicts(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.cache.WriteWithToken(context.Background(), "gone", Data{"a": 1}, 9, 0)
	var ce *ConflictError
	if !errors.As(err, &ce) || !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected ConflictError(ErrNotFound), got %v", err)
	}
}

func TestCasCache_ReadFailSoftAndStrict(t *testing.T) {
	ctx := context.Background()

	soft := newFixture(t, nil)
	soft.be.failGet = errBoom
	if _, _, ok, err := soft.cache.ReadWithToken(ctx, "k"); err != nil || ok {
		t.Fatalf("fail-soft read: ok=%v err=%v", ok, err)
	}

	strict := newFixture(t, func(o *CacheOptions[Data], _ *StoreOptions) { o.Strict = true })
	strict.be.failGet = errBoom
	_, _, _, err := strict.cache.ReadWithToken(ctx, "k")
	var te *TransportError
	if !errors.As(err, &te) || !errors.Is(err, errBoom) || te.Op != OpRead {
		t.Fatalf("strict read: expected TransportError, got %v", err)
	}
}

func TestCasCache_WriteTransportError(t *testing.T) {
	f := newFixture(t, nil)
	f.be.failSet = errBoom
	_, err := f.cache.WriteWithToken(context.Background(), "k", Data{"a": 1}, 0, 0)
	var te *TransportError
	if !errors.As(err, &te) || !errors.Is(err, errBoom) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestCasCache_UndecodableEntryIsMiss(t *testing.T) {
	f := newFixture(t, nil)
	f.be.put("k", []byte("{not json"), 3)
	if _, _, ok, err := f.cache.ReadWithToken(context.Background(), "k"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
}

func TestCasCache_Disabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *CacheOptions[Data], _ *StoreOptions) { o.Disabled = true })
	f.be.put("k", []byte(`{"a":1}`), 3)

	if _, _, ok, err := f.cache.ReadWithToken(ctx, "k"); err != nil || ok {
		t.Fatalf("disabled read should miss, ok=%v err=%v", ok, err)
	}
	if _, err := f.cache.WriteWithToken(ctx, "k", Data{"a": 2}, 3, 0); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if err := f.cache.DeleteWithToken(ctx, "k", 3); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if gets, sets, dels := f.be.counts(); gets+sets+dels != 0 {
		t.Fatalf("disabled cache reached the backend: %d/%d/%d", gets, sets, dels)
	}
	// each short-circuit still reports to hooks
	if len(f.hooks.events) != 3 {
		t.Fatalf("events=%d want 3", len(f.hooks.events))
	}
	for i, op := range []Op{OpRead, OpWrite, OpDelete} {
		ev := f.hooks.events[i]
		if ev.Op != op || ev.Key != "k" || ev.Hit || !errors.Is(ev.Err, ErrDisabled) {
			t.Fatalf("event %d: %+v", i, ev)
		}
	}
}

func TestCasCache_TTL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *CacheOptions[Data], _ *StoreOptions) { o.DefaultTTL = time.Hour })

	if _, err := f.cache.WriteWithToken(ctx, "a", Data{"x": 1}, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cache.WriteWithToken(ctx, "b", Data{"x": 1}, 0, time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cache.WriteWithToken(ctx, "c", Data{"x": 1}, 0, -1); err != nil {
		t.Fatal(err)
	}
	cases := map[string]time.Duration{"a": time.Hour, "b": time.Minute, "c": 0}
	for k, want := range cases {
		f.be.mu.Lock()
		got := f.be.m[k].ttl
		f.be.mu.Unlock()
		if got != want {
			t.Fatalf("%s: ttl=%v want %v", k, got, want)
		}
	}
	if f.cache.DefaultTTL() != time.Hour {
		t.Fatalf("DefaultTTL=%v", f.cache.DefaultTTL())
	}
}

func TestCasCache_EmitsEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	tok, _ := f.cache.WriteWithToken(ctx, "k", Data{"a": 1}, 0, 0)
	_, _, _, _ = f.cache.ReadWithToken(ctx, "k")
	_, _, _, _ = f.cache.ReadWithToken(ctx, "missing")
	_, _ = f.cache.WriteWithToken(ctx, "k", Data{"a": 2}, tok+10, 0)
	_ = f.cache.DeleteWithToken(ctx, "k", tok)

	want := []Event{
		{Op: OpWrite, Key: "k", Hit: true, OldToken: 0, NewToken: tok},
		{Op: OpRead, Key: "k", Hit: true, NewToken: tok},
		{Op: OpRead, Key: "missing"},
		{Op: OpWrite, Key: "k", OldToken: tok + 10},
		{Op: OpDelete, Key: "k", Hit: true, OldToken: tok},
	}
	if len(f.hooks.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(f.hooks.events), len(want))
	}
	for i, w := range want {
		g := f.hooks.events[i]
		if g.Op != w.Op || g.Key != w.Key || g.Hit != w.Hit || g.OldToken != w.OldToken || g.NewToken != w.NewToken {
			t.Fatalf("event %d: got %+v want %+v", i, g, w)
		}
	}
	if f.hooks.events[3].Err == nil {
		t.Fatalf("rejected write event must carry the error")
	}
}
