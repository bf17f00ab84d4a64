package routefilter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routefilter/pathstate"
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/sched"
)

func optimizerStub(status sched.Status, cost int64) sched.RouteOptimizerFunc {
	return func(_ context.Context, _ int, _ func(int) int, out *int64) sched.Status {
		if out != nil {
			*out = cost
		}
		return status
	}
}

func globalOptimizerStub(status sched.Status, cost int64) sched.GlobalOptimizerFunc {
	return func(_ context.Context, _ func(int) int, out *int64) sched.Status {
		if out != nil {
			*out = cost
		}
		return status
	}
}

func TestAppendLightWeightDimensionFilters(t *testing.T) {
	m := routing.NewModel(3, 1)
	m.AddDimension("load", func(from, to int) int64 { return 1 }, 10)
	state := pathstate.New(m.NumIndices(), []int{m.Start(0)}, []int{m.End(0)})

	events := AppendLightWeightDimensionFilters(state, m.Dimensions(), nil)
	require.Len(t, events, 1)
	assert.Equal(t, PriorityLightweight, events[0].Priority)
	assert.Equal(t, "DimensionFilter(load)", events[0].Filter.Name())
}

func TestAppendDimensionCumulFiltersPlain(t *testing.T) {
	m := routing.NewModel(3, 1)
	d := m.AddDimension("load", func(from, to int) int64 { return 1 }, 10)
	d.SetCumulRange(0, 1, 5)

	events, err := AppendDimensionCumulFilters(m.Dimensions(), DimensionFilterConfig{
		FilterObjectiveCost: true,
	}, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, PriorityLightweight, events[0].Priority)
	assert.Equal(t, "PathCumulFilter(load)", events[0].Filter.Name())
}

func TestAppendDimensionCumulFiltersChainFallback(t *testing.T) {
	m := routing.NewModel(3, 1)
	m.AddDimension("load", func(from, to int) int64 { return 1 }, 10)

	// No costs and no path constraints: only the chain filter, when asked.
	events, err := AppendDimensionCumulFilters(m.Dimensions(), DimensionFilterConfig{
		UseChainCumulFilter: true,
	}, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ChainCumulFilter(load)", events[0].Filter.Name())

	events, err = AppendDimensionCumulFilters(m.Dimensions(), DimensionFilterConfig{}, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAppendDimensionCumulFiltersOptimizerPriority(t *testing.T) {
	m := routing.NewModel(3, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 1 }, 1000)
	d.SetCumulRange(1, 0, 100)
	d.SetSpanCostCoefficient(0, 1)
	d.SetCumulSoftUpperBound(1, 5, 2)

	lp := optimizerStub(sched.StatusOptimal, 0)
	config := DimensionFilterConfig{
		FilterObjectiveCost: true,
		LPOptimizer:         func(*routing.Dimension) sched.RouteOptimizer { return lp },
		MPOptimizer:         func(*routing.Dimension) sched.RouteOptimizer { return lp },
	}
	events, err := AppendDimensionCumulFilters(m.Dimensions(), config, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, PriorityPathCumulWithOptimizer, events[0].Priority)

	// disable_scheduling forces priority-0 path filters only.
	config.DisableScheduling = true
	events, err = AppendDimensionCumulFilters(m.Dimensions(), config, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, PriorityLightweight, events[0].Priority)
}

func TestAppendDimensionCumulFiltersGlobalLP(t *testing.T) {
	m := routing.NewModel(3, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 1 }, 1000)
	d.SetGlobalSpanCostCoefficient(3)

	lp := optimizerStub(sched.StatusOptimal, 0)
	global := globalOptimizerStub(sched.StatusOptimal, 0)
	events, err := AppendDimensionCumulFilters(m.Dimensions(), DimensionFilterConfig{
		FilterObjectiveCost: true,
		LPOptimizer:         func(*routing.Dimension) sched.RouteOptimizer { return lp },
		MPOptimizer:         func(*routing.Dimension) sched.RouteOptimizer { return lp },
		GlobalLPOptimizer:   func(*routing.Dimension) sched.GlobalOptimizer { return global },
		GlobalMPOptimizer:   func(*routing.Dimension) sched.GlobalOptimizer { return global },
	}, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, PriorityLightweight, events[0].Priority)
	assert.Equal(t, PriorityGlobalLP, events[1].Priority)
	// The path filter does not propagate its cost when the global LP does.
	pathFilter, ok := events[0].Filter.(*PathCumulFilter)
	require.True(t, ok)
	assert.Equal(t, int64(0), pathFilter.SynchronizedObjectiveValue())
}

func TestAppendDimensionCumulFiltersPropagator(t *testing.T) {
	m := routing.NewModel(3, 1)
	d := m.AddDimension("time", func(from, to int) int64 { return 1 }, 1000)
	d.AddNodePrecedence(0, 1, 5)

	// Precedences without a global LP need a bounds propagator.
	_, err := AppendDimensionCumulFilters(m.Dimensions(), DimensionFilterConfig{}, nil)
	var missing *ErrMissingPropagator
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "time", missing.Dimension)

	events, err := AppendDimensionCumulFilters(m.Dimensions(), DimensionFilterConfig{
		BoundsPropagator: func(*routing.Dimension) CumulBoundsPropagator {
			return func(next func(int) int, _ int64) bool { return true }
		},
	}, nil)
	require.NoError(t, err)
	var priorities []Priority
	for _, event := range events {
		priorities = append(priorities, event.Priority)
	}
	assert.Contains(t, priorities, PriorityCumulBoundsPropagator)
}
