// Package metrics wires the topology engine's Prometheus instrumentation,
// grounded on the teacher's pkg/api/metrics.go: one struct of vectors
// built with promauto, registered once at construction.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram the topology engine emits.
type Metrics struct {
	updatesStarted   *prometheus.CounterVec // by op kind: split, merge, rewrite, update_key
	updatesCompleted *prometheus.CounterVec
	updatesRestarted *prometheus.CounterVec
	reparentings     prometheus.Counter
	publishLatency   *prometheus.HistogramVec // by mode: node, root
	journalPinAge    prometheus.Histogram
	reserveNodesUsed prometheus.Gauge
	gcLockWaits      prometheus.Counter
}

// New creates and registers the engine's metrics against reg. Passing a
// fresh *prometheus.Registry (rather than the global default) lets tests
// construct independent Metrics instances without collector-already-
// registered panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		updatesStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "btreefs_topology_updates_started_total",
				Help: "Total number of topology updates started, by operation kind.",
			},
			[]string{"op"},
		),
		updatesCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "btreefs_topology_updates_completed_total",
				Help: "Total number of topology updates whose operation finished, counted before publication, by operation kind.",
			},
			[]string{"op"},
		),
		updatesRestarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "btreefs_topology_updates_restarted_total",
				Help: "Total number of Restart returns, by operation kind.",
			},
			[]string{"op"},
		),
		reparentings: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "btreefs_topology_reparentings_total",
				Help: "Total number of updates reparented onto another in-flight update.",
			},
		),
		publishLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "btreefs_topology_publish_latency_seconds",
				Help:    "Time from Update.start to publication, by mode.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		journalPinAge: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "btreefs_journal_pin_age_seconds",
				Help:    "Time a journal pin was held before being dropped.",
				Buckets: prometheus.DefBuckets,
			},
		),
		reserveNodesUsed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "btreefs_reserve_nodes_in_use",
				Help: "Number of preallocated reserve nodes currently owned by in-flight updates.",
			},
		),
		gcLockWaits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "btreefs_gc_lock_waits_total",
				Help: "Total number of times a topology op parked waiting for the GC read lock.",
			},
		),
	}
}

// OpKind names the four topology algorithms plus the root-alloc entry
// point, for metric label values.
type OpKind string

const (
	OpSplit      OpKind = "split"
	OpMerge      OpKind = "merge"
	OpRewrite    OpKind = "rewrite"
	OpUpdateKey  OpKind = "update_key"
	OpRootAlloc  OpKind = "root_alloc"
)

func (m *Metrics) Started(op OpKind)   { m.updatesStarted.WithLabelValues(string(op)).Inc() }
func (m *Metrics) Completed(op OpKind) { m.updatesCompleted.WithLabelValues(string(op)).Inc() }
func (m *Metrics) Restarted(op OpKind) { m.updatesRestarted.WithLabelValues(string(op)).Inc() }
func (m *Metrics) Reparented()         { m.reparentings.Inc() }
func (m *Metrics) GCLockWait()         { m.gcLockWaits.Inc() }

func (m *Metrics) ObservePublishLatency(mode string, seconds float64) {
	m.publishLatency.WithLabelValues(mode).Observe(seconds)
}

func (m *Metrics) ObserveJournalPinAge(seconds float64) { m.journalPinAge.Observe(seconds) }

func (m *Metrics) SetReserveNodesInUse(n int) { m.reserveNodesUsed.Set(float64(n)) }
