// Package promhooks exports CasCache events and session anomalies as
// Prometheus metrics.
package promhooks

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/cassession"
	"github.com/unkn0wn-root/cassession/backend"
)

// Outcome label values.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type Options struct {
	Namespace  string                // metric name prefix; "" => "cassession"
	Registerer prometheus.Registerer // nil => prometheus.DefaultRegisterer
	Buckets    []float64             // nil => prometheus.DefBuckets
}

type Hooks struct {
	ops       *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	anomalies *prometheus.CounterVec
}

var _ cassession.Hooks = (*Hooks)(nil)

// New registers the collectors; it panics on duplicate registration like promauto.
func New(opts Options) *Hooks {
	ns := opts.Namespace
	if ns == "" {
		ns = "cassession"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := opts.Buckets
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	f := promauto.With(reg)

	return &Hooks{
		ops: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_ops_total",
				Help:      "CAS cache operations by op and outcome",
			},
			[]string{"op", "outcome"}, // op: read_cas, write_cas, delete_cas
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "cache_op_duration_seconds",
				Help:      "CAS cache operation latency",
				Buckets:   buckets,
			},
			[]string{"op"},
		),
		anomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "session_anomalies_total",
				Help:      "Dropped writes, failed deletes and tokenless reads",
			},
			[]string{"reason"},
		),
	}
}

func (h *Hooks) CacheOp(ev cassession.Event) {
	op := string(ev.Op)
	h.ops.WithLabelValues(op, outcome(ev)).Inc()
	h.latency.WithLabelValues(op).Observe(ev.Elapsed.Seconds())
}

func (h *Hooks) SessionAnomaly(_, reason string, _ cassession.Token) {
	h.anomalies.WithLabelValues(reason).Inc()
}

func outcome(ev cassession.Event) string {
	switch {
	case errors.Is(ev.Err, backend.ErrConflict):
		return OutcomeConflict
	case errors.Is(ev.Err, backend.ErrNotFound):
		return OutcomeNotFound
	case ev.Err != nil:
		return OutcomeError
	case ev.Op == cassession.OpRead && ev.Hit:
		return OutcomeHit
	case ev.Op == cassession.OpRead:
		return OutcomeMiss
	default:
		return OutcomeOK
	}
}
