// Package metrics exposes the state-store metric bundle spec.md section
// 4.1 calls for ("open time, lock wait time and contention count, index
// load/rebuild times, entries loaded vs rebuilt, bytes read/written for
// log and index, insert count, insert collisions, write times/bytes")
// as a side channel that plays no role in correctness, grounded on the
// prometheus/client_golang collectors jinterlante1206-AleutianLocal and
// aretw0-trellis wire into their long-lived components.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics is the metric bundle a store.Store variant reports
// through. A nil *StoreMetrics is a valid no-op value so unit tests
// never need a registry.
type StoreMetrics struct {
	OpenSeconds          prometheus.Histogram
	LockWaitSeconds      prometheus.Histogram
	LockContentionTotal  prometheus.Counter
	IndexLoadSeconds     prometheus.Histogram
	IndexRebuildSeconds  prometheus.Histogram
	EntriesLoadedTotal   prometheus.Counter
	EntriesRebuiltTotal  prometheus.Counter
	LogBytesTotal        *prometheus.CounterVec // label "direction" in {read,write}
	IndexBytesTotal      *prometheus.CounterVec // label "direction" in {read,write}
	InsertTotal          prometheus.Counter
	InsertCollisionTotal prometheus.Counter
	WriteSeconds         prometheus.Histogram
}

// NewStoreMetrics registers a fresh StoreMetrics bundle under reg,
// namespaced "cspx_store_*". Pass a dedicated prometheus.Registry per
// store instance in tests to avoid duplicate-registration panics; the
// long-lived cmd/cspx-demo process instead shares prometheus.DefaultRegisterer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		OpenSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cspx_store_open_seconds",
			Help: "Time spent in Store.Open, including lock acquisition and index load/rebuild.",
		}),
		LockWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cspx_store_lock_wait_seconds",
			Help: "Time spent waiting to acquire state.lock.",
		}),
		LockContentionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cspx_store_lock_contention_total",
			Help: "Number of times Open found state.lock already held.",
		}),
		IndexLoadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cspx_store_index_load_seconds",
			Help: "Time spent loading a valid state.idx.",
		}),
		IndexRebuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cspx_store_index_rebuild_seconds",
			Help: "Time spent rebuilding state.idx from state.log.",
		}),
		EntriesLoadedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cspx_store_entries_loaded_total",
			Help: "Entries populated from a valid state.idx.",
		}),
		EntriesRebuiltTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cspx_store_entries_rebuilt_total",
			Help: "Entries recovered by rescanning state.log.",
		}),
		LogBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cspx_store_log_bytes_total",
			Help: "Bytes read from or written to state.log.",
		}, []string{"direction"}),
		IndexBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cspx_store_index_bytes_total",
			Help: "Bytes read from or written to state.idx.",
		}, []string{"direction"}),
		InsertTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cspx_store_insert_total",
			Help: "Insert calls, regardless of outcome.",
		}),
		InsertCollisionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cspx_store_insert_collision_total",
			Help: "Insert calls for a state already present.",
		}),
		WriteSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cspx_store_write_seconds",
			Help: "Time spent appending a record to state.log and updating state.idx.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.OpenSeconds, m.LockWaitSeconds, m.LockContentionTotal,
			m.IndexLoadSeconds, m.IndexRebuildSeconds,
			m.EntriesLoadedTotal, m.EntriesRebuiltTotal,
			m.LogBytesTotal, m.IndexBytesTotal,
			m.InsertTotal, m.InsertCollisionTotal, m.WriteSeconds,
		)
	}
	return m
}

// ObserveOpen records time spent in Store.Open.
func (m *StoreMetrics) ObserveOpen(seconds float64) {
	if m == nil {
		return
	}
	m.OpenSeconds.Observe(seconds)
}

// ObserveLockWait records time spent acquiring state.lock.
func (m *StoreMetrics) ObserveLockWait(seconds float64, contended bool) {
	if m == nil {
		return
	}
	m.LockWaitSeconds.Observe(seconds)
	if contended {
		m.LockContentionTotal.Inc()
	}
}

// ObserveIndexLoad records a successful state.idx load.
func (m *StoreMetrics) ObserveIndexLoad(seconds float64, entries int) {
	if m == nil {
		return
	}
	m.IndexLoadSeconds.Observe(seconds)
	m.EntriesLoadedTotal.Add(float64(entries))
}

// ObserveIndexRebuild records a state.idx rebuild from state.log.
func (m *StoreMetrics) ObserveIndexRebuild(seconds float64, entries int) {
	if m == nil {
		return
	}
	m.IndexRebuildSeconds.Observe(seconds)
	m.EntriesRebuiltTotal.Add(float64(entries))
}

// AddLogBytes records bytes moved through state.log.
func (m *StoreMetrics) AddLogBytes(direction string, n int) {
	if m == nil {
		return
	}
	m.LogBytesTotal.WithLabelValues(direction).Add(float64(n))
}

// AddIndexBytes records bytes moved through state.idx.
func (m *StoreMetrics) AddIndexBytes(direction string, n int) {
	if m == nil {
		return
	}
	m.IndexBytesTotal.WithLabelValues(direction).Add(float64(n))
}

// ObserveInsert records an Insert call and whether it hit a collision.
func (m *StoreMetrics) ObserveInsert(collision bool) {
	if m == nil {
		return
	}
	m.InsertTotal.Inc()
	if collision {
		m.InsertCollisionTotal.Inc()
	}
}

// ObserveWrite records time spent appending a record and updating the index.
func (m *StoreMetrics) ObserveWrite(seconds float64) {
	if m == nil {
		return
	}
	m.WriteSeconds.Observe(seconds)
}
