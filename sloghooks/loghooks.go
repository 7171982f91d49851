package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/cassession"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	CacheOpEvery uint64
	AnomalyEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix: session keys embed the id.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	opCtr      atomic.Uint64
	anomalyCtr atomic.Uint64
}

var _ cassession.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

// CacheOp logs failed operations at warn, everything else at debug (sampled).
func (h *Hooks) CacheOp(ev cassession.Event) {
	if h.l == nil {
		return
	}
	if ev.Err != nil {
		h.l.Warn("cassession.cache_op_failed",
			"op", string(ev.Op),
			"key", h.redact(ev.Key),
			"old_cas", uint64(ev.OldToken),
			"err", ev.Err)
		return
	}
	if !sample(h.opts.CacheOpEvery, &h.opCtr) {
		return
	}
	h.l.Debug("cassession.cache_op",
		"op", string(ev.Op),
		"key", h.redact(ev.Key),
		"hit", ev.Hit,
		"old_cas", uint64(ev.OldToken),
		"new_cas", uint64(ev.NewToken),
		"elapsed", ev.Elapsed)
}

func (h *Hooks) SessionAnomaly(storageKey, reason string, token cassession.Token) {
	if h.l == nil || !sample(h.opts.AnomalyEvery, &h.anomalyCtr) {
		return
	}
	h.l.Warn("cassession.session_anomaly",
		"key", h.redact(storageKey),
		"reason", reason,
		"cas", uint64(token))
}
