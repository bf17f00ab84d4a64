package routefilter

import (
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
)

// FilterEvent pairs a filter with its evaluation priority.
type FilterEvent struct {
	Filter   Filter
	Priority Priority
}

// FilterManager drives a set of filters in priority order: Relax hints
// first, then Accept with the objective bound tightened by the contributions
// already accumulated, stopping at the first rejection.
type FilterManager struct {
	events  []FilterEvent
	logger  *Logger
	metrics MetricsCollector

	logSampler *rate.Sometimes

	accepts int64
	rejects int64
	lnsHits int64

	acceptedObjectiveValue     int64
	synchronizedObjectiveValue int64
}

// ManagerOptions configures a FilterManager.
type ManagerOptions struct {
	// Logger receives sampled accept statistics and rejection debug logs.
	Logger *Logger
	// MetricsCollector receives per-call metrics.
	MetricsCollector MetricsCollector
	// LogSampleInterval bounds how often accept statistics are logged.
	LogSampleInterval time.Duration
}

// NewFilterManager returns a manager over events; evaluation order is by
// ascending priority, stable within a priority.
func NewFilterManager(events []FilterEvent, optFns ...func(*ManagerOptions)) *FilterManager {
	opts := ManagerOptions{
		Logger:            NoopLogger(),
		MetricsCollector:  NoopMetricsCollector{},
		LogSampleInterval: time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	sorted := append([]FilterEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &FilterManager{
		events:     sorted,
		logger:     opts.Logger,
		metrics:    opts.MetricsCollector,
		logSampler: &rate.Sometimes{Interval: opts.LogSampleInterval},
	}
}

// Filters returns the managed filters in evaluation order.
func (m *FilterManager) Filters() []FilterEvent { return m.events }

// Accept evaluates the candidate against all filters in priority order.
func (m *FilterManager) Accept(delta, deltaDelta *routing.Assignment, objectiveMin, objectiveMax int64) bool {
	start := time.Now()
	for _, event := range m.events {
		event.Filter.Relax(delta)
	}
	var accumulated int64
	for _, event := range m.events {
		remaining := satmath.Sub(objectiveMax, accumulated)
		if !event.Filter.Accept(delta, deltaDelta, objectiveMin, remaining) {
			m.rejects++
			m.acceptedObjectiveValue = satmath.MaxInt64
			m.metrics.RecordAccept(time.Since(start), false, event.Filter.Name())
			m.logger.LogReject(event.Filter.Name(), len(delta.Elements()))
			m.maybeLogStats()
			return false
		}
		accumulated = satmath.Add(accumulated, event.Filter.AcceptedObjectiveValue())
	}
	m.accepts++
	m.acceptedObjectiveValue = accumulated
	m.metrics.RecordAccept(time.Since(start), true, "")
	m.maybeLogStats()
	return true
}

func (m *FilterManager) maybeLogStats() {
	m.logSampler.Do(func() {
		m.logger.LogAcceptStats(m.accepts, m.rejects, m.lnsHits)
	})
}

// RecordLNS notes that the engine switched the current candidate to LNS.
func (m *FilterManager) RecordLNS() {
	m.lnsHits++
	m.metrics.RecordLNS()
}

// Revert drops all filters' tentative state.
func (m *FilterManager) Revert() {
	for _, event := range m.events {
		event.Filter.Revert()
	}
}

// Synchronize commits the solution into all filters and accumulates their
// synchronized objective values.
func (m *FilterManager) Synchronize(assignment, delta *routing.Assignment) {
	start := time.Now()
	var total int64
	for _, event := range m.events {
		event.Filter.Synchronize(assignment, delta)
		total = satmath.Add(total, event.Filter.SynchronizedObjectiveValue())
	}
	m.synchronizedObjectiveValue = total
	m.metrics.RecordSynchronize(time.Since(start))
	m.logger.LogSynchronize(total)
}

// AcceptedObjectiveValue returns the accumulated bound of the last accepted
// candidate.
func (m *FilterManager) AcceptedObjectiveValue() int64 { return m.acceptedObjectiveValue }

// SynchronizedObjectiveValue returns the accumulated committed objective.
func (m *FilterManager) SynchronizedObjectiveValue() int64 { return m.synchronizedObjectiveValue }
