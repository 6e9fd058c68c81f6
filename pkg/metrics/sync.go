package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records remote cart synchronization outcomes.
type SyncMetrics struct {
	syncSuccess   prometheus.Counter
	syncFailure   prometheus.Counter
	writeFailure  prometheus.Counter
	staleDiscard  prometheus.Counter
	writeDuration prometheus.Histogram
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	syncSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_success_total",
		Help: "Successful remote cart reconciliations on sign-in.",
	})
	syncFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_failure_total",
		Help: "Failed remote cart reconciliations on sign-in.",
	})
	writeFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_remote_write_failure_total",
		Help: "Remote cart writes that failed after an optimistic local commit.",
	})
	staleDiscard := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_stale_read_discard_total",
		Help: "Remote cart reads discarded because the session identity changed mid-flight.",
	})
	writeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_remote_write_duration_seconds",
		Help:    "Duration of remote cart writes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(syncSuccess, syncFailure, writeFailure, staleDiscard, writeDuration)
	return &SyncMetrics{
		syncSuccess:   syncSuccess,
		syncFailure:   syncFailure,
		writeFailure:  writeFailure,
		staleDiscard:  staleDiscard,
		writeDuration: writeDuration,
	}
}

// IncSyncSuccess counts a completed sign-in reconciliation.
func (m *SyncMetrics) IncSyncSuccess() {
	if m == nil || m.syncSuccess == nil {
		return
	}
	m.syncSuccess.Inc()
}

// IncSyncFailure counts a failed sign-in reconciliation.
func (m *SyncMetrics) IncSyncFailure() {
	if m == nil || m.syncFailure == nil {
		return
	}
	m.syncFailure.Inc()
}

// IncWriteFailure counts a failed remote write.
func (m *SyncMetrics) IncWriteFailure() {
	if m == nil || m.writeFailure == nil {
		return
	}
	m.writeFailure.Inc()
}

// IncStaleDiscard counts a discarded stale remote read.
func (m *SyncMetrics) IncStaleDiscard() {
	if m == nil || m.staleDiscard == nil {
		return
	}
	m.staleDiscard.Inc()
}

// ObserveWriteDuration records how long a remote write took.
func (m *SyncMetrics) ObserveWriteDuration(duration time.Duration) {
	if m == nil || m.writeDuration == nil {
		return
	}
	m.writeDuration.Observe(duration.Seconds())
}
