package routefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
)

// stubFilter scripts Accept outcomes and records call order.
type stubFilter struct {
	BaseFilter
	accept       bool
	cost         int64
	seenMax      []int64
	relaxCalls   int
	revertCalls  int
	syncCalls    int
	calls        *[]string
}

func newStubFilter(name string, accept bool, cost int64, calls *[]string) *stubFilter {
	return &stubFilter{BaseFilter: NewBaseFilter(name), accept: accept, cost: cost, calls: calls}
}

func (f *stubFilter) Relax(*routing.Assignment) { f.relaxCalls++ }

func (f *stubFilter) Revert() { f.revertCalls++ }

func (f *stubFilter) Accept(_, _ *routing.Assignment, _, objectiveMax int64) bool {
	*f.calls = append(*f.calls, f.Name())
	f.seenMax = append(f.seenMax, objectiveMax)
	return f.accept
}

func (f *stubFilter) Synchronize(_, _ *routing.Assignment) { f.syncCalls++ }

func (f *stubFilter) AcceptedObjectiveValue() int64 { return f.cost }

func (f *stubFilter) SynchronizedObjectiveValue() int64 { return f.cost }

func TestFilterManagerPriorityOrder(t *testing.T) {
	var calls []string
	cheap := newStubFilter("cheap", true, 10, &calls)
	expensive := newStubFilter("expensive", true, 5, &calls)
	m := NewFilterManager([]FilterEvent{
		{Filter: expensive, Priority: PriorityGlobalLP},
		{Filter: cheap, Priority: PriorityLightweight},
	})

	delta := routing.NewAssignment().Add(0, 1)
	require.True(t, m.Accept(delta, nil, 0, 100))
	assert.Equal(t, []string{"cheap", "expensive"}, calls)
	assert.Equal(t, int64(15), m.AcceptedObjectiveValue())
	// The objective bound passed down is tightened by earlier
	// contributions.
	assert.Equal(t, []int64{90}, expensive.seenMax)
	assert.Equal(t, 1, cheap.relaxCalls)
	assert.Equal(t, 1, expensive.relaxCalls)
}

func TestFilterManagerShortCircuit(t *testing.T) {
	var calls []string
	rejecting := newStubFilter("rejecting", false, 0, &calls)
	never := newStubFilter("never", true, 0, &calls)
	m := NewFilterManager([]FilterEvent{
		{Filter: rejecting, Priority: PriorityLightweight},
		{Filter: never, Priority: PriorityGlobalLP},
	})

	delta := routing.NewAssignment().Add(0, 1)
	require.False(t, m.Accept(delta, nil, 0, 100))
	assert.Equal(t, []string{"rejecting"}, calls)
	assert.Equal(t, int64(satmath.MaxInt64), m.AcceptedObjectiveValue())
}

func TestFilterManagerSynchronizeAndRevert(t *testing.T) {
	var calls []string
	a := newStubFilter("a", true, 7, &calls)
	b := newStubFilter("b", true, 3, &calls)
	m := NewFilterManager([]FilterEvent{
		{Filter: a, Priority: PriorityLightweight},
		{Filter: b, Priority: PriorityLightweight},
	})

	m.Synchronize(routing.NewAssignment(), routing.NewAssignment())
	assert.Equal(t, 1, a.syncCalls)
	assert.Equal(t, 1, b.syncCalls)
	assert.Equal(t, int64(10), m.SynchronizedObjectiveValue())

	m.Revert()
	assert.Equal(t, 1, a.revertCalls)
	assert.Equal(t, 1, b.revertCalls)
}

func TestFilterManagerMetrics(t *testing.T) {
	var calls []string
	rejecting := newStubFilter("rejecting", false, 0, &calls)
	metrics := &BasicMetricsCollector{}
	m := NewFilterManager(
		[]FilterEvent{{Filter: rejecting, Priority: PriorityLightweight}},
		func(o *ManagerOptions) { o.MetricsCollector = metrics },
	)

	delta := routing.NewAssignment().Add(0, 1)
	m.Accept(delta, nil, 0, 100)
	m.RecordLNS()
	m.Synchronize(routing.NewAssignment(), routing.NewAssignment())

	stats := metrics.GetStats()
	assert.Equal(t, int64(0), stats.AcceptCount)
	assert.Equal(t, int64(1), stats.RejectCount)
	assert.Equal(t, int64(1), stats.LNSCount)
	assert.Equal(t, int64(1), stats.SynchronizeCount)
}
