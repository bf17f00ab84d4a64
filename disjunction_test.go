package routefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routefilter/routing"
)

func TestNodeDisjunctionFilterCardinality(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddDisjunction(routing.Disjunction{Nodes: []int{3, 4, 5}, MaxCardinality: 1, Penalty: 7})
	f := NewNodeDisjunctionFilter(m, true)
	// Node 3 active; 4 and 5 inactive: no violation, zero cost.
	synchronize(f, m, [][]int{{3}})
	assert.Equal(t, int64(0), f.SynchronizedObjectiveValue())

	// Activating node 4 exceeds the max cardinality.
	delta := routing.NewAssignment().Add(4, int64(m.End(0)))
	assert.False(t, f.Accept(delta, nil, 0, 1000))
}

func TestNodeDisjunctionFilterPenaltyCost(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddDisjunction(routing.Disjunction{Nodes: []int{3, 4}, MaxCardinality: 1, Penalty: 7})
	f := NewNodeDisjunctionFilter(m, true)
	synchronize(f, m, [][]int{{3}})
	require.Equal(t, int64(0), f.SynchronizedObjectiveValue())

	// Deactivating node 3 misses one active node: one unit of violation.
	delta := routing.NewAssignment().Add(3, 3).Add(m.Start(0), int64(m.End(0)))
	require.True(t, f.Accept(delta, nil, 0, 1000))
	assert.Equal(t, int64(7), f.AcceptedObjectiveValue())

	// The penalty bound rejects when above the objective max.
	assert.False(t, f.Accept(delta, nil, 0, 6))
}

func TestNodeDisjunctionFilterMandatory(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddDisjunction(routing.Disjunction{Nodes: []int{3}, MaxCardinality: 1, Penalty: -1})
	f := NewNodeDisjunctionFilter(m, true)
	synchronize(f, m, [][]int{{3}})

	delta := routing.NewAssignment().Add(3, 3).Add(m.Start(0), int64(m.End(0)))
	assert.False(t, f.Accept(delta, nil, 0, 1000))
}

func TestNodeDisjunctionFilterPenalizeOnce(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddDisjunction(routing.Disjunction{
		Nodes:               []int{2, 3, 4},
		MaxCardinality:      2,
		Penalty:             10,
		PenaltyCostBehavior: routing.PenalizeOnce,
	})
	f := NewNodeDisjunctionFilter(m, true)
	synchronize(f, m, [][]int{{2, 3}})
	require.Equal(t, int64(0), f.SynchronizedObjectiveValue())

	// Two missing actives still cost a single penalty unit.
	delta := routing.NewAssignment().Add(2, 2).Add(3, 3).Add(m.Start(0), int64(m.End(0)))
	require.True(t, f.Accept(delta, nil, 0, 1000))
	assert.Equal(t, int64(10), f.AcceptedObjectiveValue())
}

// Increasing the inactive count never decreases the penalty.
func TestNodeDisjunctionFilterCostMonotone(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddDisjunction(routing.Disjunction{Nodes: []int{1, 2, 3}, MaxCardinality: 2, Penalty: 5})
	f := NewNodeDisjunctionFilter(m, true)
	synchronize(f, m, [][]int{{1, 2}})

	previous := int64(0)
	// Deactivate 2, then also 1: penalties must not decrease.
	deltas := []*routing.Assignment{
		routing.NewAssignment().Add(2, 2).Add(1, 3),
		routing.NewAssignment().Add(2, 2).Add(1, 1).Add(m.Start(0), int64(m.End(0))),
	}
	for _, delta := range deltas {
		require.True(t, f.Accept(delta, nil, 0, 1000))
		cost := f.AcceptedObjectiveValue()
		assert.GreaterOrEqual(t, cost, previous)
		previous = cost
	}
}

func TestNodeDisjunctionFilterLNS(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddDisjunction(routing.Disjunction{Nodes: []int{3, 4}, MaxCardinality: 1, Penalty: 7})
	f := NewNodeDisjunctionFilter(m, true)
	synchronize(f, m, [][]int{{3}})

	delta := routing.NewAssignment().AddRange(3, 3, int64(m.End(0)))
	assert.True(t, f.Accept(delta, nil, 0, 0))
	assert.Equal(t, int64(0), f.AcceptedObjectiveValue())
}
