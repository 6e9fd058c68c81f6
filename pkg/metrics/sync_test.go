package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncMetricsRegistersAndCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.IncSyncSuccess()
	m.IncSyncSuccess()
	m.IncSyncFailure()
	m.IncWriteFailure()
	m.IncStaleDiscard()
	m.ObserveWriteDuration(25 * time.Millisecond)

	if got := testutil.ToFloat64(m.syncSuccess); got != 2 {
		t.Fatalf("expected 2 sync successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.syncFailure); got != 1 {
		t.Fatalf("expected 1 sync failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.writeFailure); got != 1 {
		t.Fatalf("expected 1 write failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.staleDiscard); got != 1 {
		t.Fatalf("expected 1 stale discard, got %v", got)
	}
}

func TestSyncMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *SyncMetrics
	m.IncSyncSuccess()
	m.IncSyncFailure()
	m.IncWriteFailure()
	m.IncStaleDiscard()
	m.ObserveWriteDuration(time.Second)

	empty := NewSyncMetrics(nil)
	empty.IncSyncSuccess()
}
