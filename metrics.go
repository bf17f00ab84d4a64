package routefilter

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting filter metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordAccept is called after each manager Accept; accepted reports
	// the outcome, rejectedBy names the rejecting filter (empty on accept).
	RecordAccept(duration time.Duration, accepted bool, rejectedBy string)

	// RecordLNS is called when a candidate triggers LNS mode.
	RecordLNS()

	// RecordSynchronize is called after each manager Synchronize.
	RecordSynchronize(duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

// RecordAccept implements MetricsCollector.
func (NoopMetricsCollector) RecordAccept(time.Duration, bool, string) {}

// RecordLNS implements MetricsCollector.
func (NoopMetricsCollector) RecordLNS() {}

// RecordSynchronize implements MetricsCollector.
func (NoopMetricsCollector) RecordSynchronize(time.Duration) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AcceptCount      atomic.Int64
	RejectCount      atomic.Int64
	AcceptTotalNanos atomic.Int64
	LNSCount         atomic.Int64
	SynchronizeCount atomic.Int64
	SyncTotalNanos   atomic.Int64
}

// RecordAccept implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAccept(duration time.Duration, accepted bool, _ string) {
	if accepted {
		b.AcceptCount.Add(1)
	} else {
		b.RejectCount.Add(1)
	}
	b.AcceptTotalNanos.Add(duration.Nanoseconds())
}

// RecordLNS implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLNS() {
	b.LNSCount.Add(1)
}

// RecordSynchronize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSynchronize(duration time.Duration) {
	b.SynchronizeCount.Add(1)
	b.SyncTotalNanos.Add(duration.Nanoseconds())
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AcceptCount      int64
	RejectCount      int64
	AcceptAvgNanos   int64
	LNSCount         int64
	SynchronizeCount int64
	SyncAvgNanos     int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	stats := BasicMetricsStats{
		AcceptCount:      b.AcceptCount.Load(),
		RejectCount:      b.RejectCount.Load(),
		LNSCount:         b.LNSCount.Load(),
		SynchronizeCount: b.SynchronizeCount.Load(),
	}
	if total := stats.AcceptCount + stats.RejectCount; total > 0 {
		stats.AcceptAvgNanos = b.AcceptTotalNanos.Load() / total
	}
	if stats.SynchronizeCount > 0 {
		stats.SyncAvgNanos = b.SyncTotalNanos.Load() / stats.SynchronizeCount
	}
	return stats
}
