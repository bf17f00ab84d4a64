package routefilter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
	"github.com/hupe1980/routefilter/sched"
)

// cumulTestModel has regular nodes 0 (a), 1 (b), 2 (c) and one vehicle.
func cumulTestModel() (*routing.Model, *routing.Dimension) {
	m := routing.NewModel(3, 1)
	transits := map[[2]int]int64{
		{3, 0}: 10, // start -> a
		{0, 1}: 20, // a -> b
		{0, 2}: 200, // a -> c
		{2, 1}: 0,  // c -> b
		{1, 4}: 20, // b -> end
	}
	d := m.AddDimension("time", func(from, to int) int64 {
		return transits[[2]int{from, to}]
	}, 100)
	d.SetCumulRange(0, 0, 30)
	d.SetCumulRange(1, 0, 50)
	return m, d
}

func TestPathCumulFilterHardBounds(t *testing.T) {
	m, _ := cumulTestModel()
	f := NewPathCumulFilter(m, m.Dimensions()[0])
	synchronize(f, m, [][]int{{0, 1}})

	// Inserting c between a and b pushes the cumul to 210, above b's
	// capacity window.
	delta := routing.NewAssignment().Add(0, 2).Add(2, 1)
	assert.False(t, f.Accept(delta, nil, 0, satmath.MaxInt64))

	// Removing b keeps the path feasible.
	delta = routing.NewAssignment().Add(0, int64(m.End(0))).Add(1, 1)
	assert.True(t, f.Accept(delta, nil, 0, satmath.MaxInt64))
}

func TestPathCumulFilterSoftUpperBoundCost(t *testing.T) {
	m := routing.NewModel(2, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 10 }, 1000)
	d.SetCumulSoftUpperBound(1, 5, 2)
	f := NewPathCumulFilter(m, d)
	// Cumuls: node 0 at 10, node 1 at 20; soft bound 5 on node 1 costs
	// (20-5)*2 = 30.
	synchronize(f, m, [][]int{{0, 1}})
	assert.Equal(t, int64(30), f.SynchronizedObjectiveValue())

	// Dropping node 1 removes the whole soft cost.
	delta := routing.NewAssignment().Add(0, int64(m.End(0))).Add(1, 1)
	require.True(t, f.Accept(delta, nil, 0, satmath.MaxInt64))
	assert.Equal(t, int64(0), f.AcceptedObjectiveValue())

	// The bound also filters: a candidate keeping node 1 has cost 30.
	delta = routing.NewAssignment().Add(0, 1)
	assert.False(t, f.Accept(delta, nil, 0, 29))
	assert.True(t, f.Accept(delta, nil, 0, 30))
}

func TestPathCumulFilterSpanUpperBound(t *testing.T) {
	m := routing.NewModel(2, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 10 }, 1000)
	d.SetSpanUpperBound(0, 15)
	f := NewPathCumulFilter(m, d)
	synchronize(f, m, [][]int{{0}})

	// Three arcs of transit 10 exceed the span bound of 15.
	delta := routing.NewAssignment().Add(0, 1).Add(1, int64(m.End(0)))
	assert.False(t, f.Accept(delta, nil, 0, satmath.MaxInt64))

	// A single arc fits.
	delta = routing.NewAssignment().Add(m.Start(0), int64(m.End(0))).Add(0, 0)
	assert.True(t, f.Accept(delta, nil, 0, satmath.MaxInt64))
}

func TestPathCumulFilterGlobalSpanCost(t *testing.T) {
	m := routing.NewModel(2, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 10 }, 1000)
	d.SetGlobalSpanCostCoefficient(2)
	f := NewPathCumulFilter(m, d)
	synchronize(f, m, [][]int{{0}})
	// Span start 0 to end 20, coefficient 2.
	assert.Equal(t, int64(40), f.SynchronizedObjectiveValue())

	// Adding node 1 extends the span to 30.
	delta := routing.NewAssignment().Add(0, 1).Add(1, int64(m.End(0)))
	require.True(t, f.Accept(delta, nil, 0, satmath.MaxInt64))
	assert.Equal(t, int64(60), f.AcceptedObjectiveValue())

	// The span bound filters against the objective max.
	assert.False(t, f.Accept(delta, nil, 0, 59))
}

func TestPathCumulFilterPrecedence(t *testing.T) {
	m := routing.NewModel(2, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 10 }, 1000)
	d.SetCumulRange(1, 0, 22)
	d.AddNodePrecedence(0, 1, 10)
	f := NewPathCumulFilter(m, d)
	// Order 0, 1: cumul(0) = 10, cumul(1) max 22 >= 10 + 10.
	synchronize(f, m, [][]int{{0, 1}})

	// Reversed order: cumul(0) min is 20, cumul(1) max is 22 < 20 + 10.
	delta := routing.NewAssignment().
		Add(m.Start(0), 1).
		Add(1, 0).
		Add(0, int64(m.End(0)))
	assert.False(t, f.Accept(delta, nil, 0, satmath.MaxInt64))

	// Keeping the order is fine.
	delta = routing.NewAssignment().Add(0, 1)
	assert.True(t, f.Accept(delta, nil, 0, satmath.MaxInt64))
}

func TestPathCumulFilterInterbreakLimits(t *testing.T) {
	m := routing.NewModel(2, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 10 }, 1000)
	d.SetSpanUpperBound(0, 35)
	d.AddInterbreakLimit(0, routing.InterbreakLimit{MaxInterbreak: 5, MinBreakDuration: 100})
	f := NewPathCumulFilter(m, d)
	synchronize(f, m, [][]int{{0}})

	// Total transit 30 needs 5 breaks of 100, far above the allowed slack.
	delta := routing.NewAssignment().Add(0, 1).Add(1, int64(m.End(0)))
	assert.False(t, f.Accept(delta, nil, 0, satmath.MaxInt64))
}

func TestPathCumulFilterMandatoryBreakSlack(t *testing.T) {
	m := routing.NewModel(2, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 10 }, 1000)
	d.SetCumulRange(m.End(0), 0, 40)
	d.SetSpanUpperBound(0, 25)
	// A mandatory break inside the route's mandatory interval needs more
	// slack than the span bound allows.
	d.AddBreak(0, routing.Break{
		StartMin: 0, StartMax: 5,
		EndMin: 15, EndMax: 20,
		DurationMin:     10,
		MustBePerformed: true,
	})
	f := NewPathCumulFilter(m, d)
	synchronize(f, m, [][]int{{0}})

	delta := routing.NewAssignment().Add(0, 1).Add(1, int64(m.End(0)))
	// Transit 30 > span bound 25 already rejects; relax the bound to test
	// the break contribution alone.
	d.SetSpanUpperBound(0, 32)
	assert.False(t, f.Accept(delta, nil, 0, satmath.MaxInt64))
}

func TestPathCumulFilterOptimizerInfeasibleRejects(t *testing.T) {
	m := routing.NewModel(2, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 10 }, 1000)
	d.SetCumulRange(1, 0, 100)
	d.SetSpanCostCoefficient(0, 1)
	d.SetCumulSoftUpperBound(1, 5, 2)
	infeasible := sched.RouteOptimizerFunc(
		func(_ context.Context, _ int, _ func(int) int, _ *int64) sched.Status {
			return sched.StatusInfeasible
		})
	f := NewPathCumulFilter(m, d, func(o *PathCumulFilterOptions) {
		o.MayUseOptimizers = true
		o.LPOptimizer = infeasible
		o.MPOptimizer = infeasible
	})
	require.True(t, f.UsesDimensionOptimizers())
	synchronize(f, m, [][]int{{0}})

	delta := routing.NewAssignment().Add(0, 1).Add(1, int64(m.End(0)))
	assert.False(t, f.Accept(delta, nil, 0, satmath.MaxInt64))
}

func TestPathCumulFilterOptimizerTightensBound(t *testing.T) {
	m := routing.NewModel(2, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 10 }, 1000)
	d.SetCumulRange(1, 0, 100)
	d.SetSpanCostCoefficient(0, 1)
	d.SetCumulSoftUpperBound(1, 5, 2)
	costly := sched.RouteOptimizerFunc(
		func(_ context.Context, _ int, _ func(int) int, cost *int64) sched.Status {
			if cost != nil {
				*cost = 500
			}
			return sched.StatusOptimal
		})
	f := NewPathCumulFilter(m, d, func(o *PathCumulFilterOptions) {
		o.MayUseOptimizers = true
		o.LPOptimizer = costly
		o.MPOptimizer = costly
	})
	synchronize(f, m, [][]int{{0}})

	delta := routing.NewAssignment().Add(0, 1).Add(1, int64(m.End(0)))
	require.True(t, f.Accept(delta, nil, 0, satmath.MaxInt64))
	assert.GreaterOrEqual(t, f.AcceptedObjectiveValue(), int64(500))
	assert.False(t, f.Accept(delta, nil, 0, 499))
}

func TestPathCumulFilterLNS(t *testing.T) {
	m, _ := cumulTestModel()
	f := NewPathCumulFilter(m, m.Dimensions()[0])
	synchronize(f, m, [][]int{{0, 1}})

	delta := routing.NewAssignment().AddRange(0, 1, 2)
	assert.True(t, f.Accept(delta, nil, 0, 0))
	assert.Equal(t, int64(0), f.AcceptedObjectiveValue())
}
