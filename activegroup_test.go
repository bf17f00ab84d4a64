package routefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routefilter/routing"
)

func TestActiveNodeGroupFilter(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddSameActivityGroup([]int{0, 1, 2})
	f := NewActiveNodeGroupFilter(m)
	// All three group nodes active: fine.
	synchronize(f, m, [][]int{{0, 1, 2}})

	// Deactivating a single group node breaks the all-or-nothing rule.
	delta := routing.NewAssignment().Add(2, 2).Add(1, int64(m.End(0)))
	assert.False(t, f.Accept(delta, nil, 0, 0))

	// Deactivating all of them is fine.
	delta = routing.NewAssignment().
		Add(0, 0).Add(1, 1).Add(2, 2).
		Add(m.Start(0), int64(m.End(0)))
	assert.True(t, f.Accept(delta, nil, 0, 0))
}

func TestActiveNodeGroupFilterUnknownCounts(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddSameActivityGroup([]int{0, 1})
	f := NewActiveNodeGroupFilter(m)
	synchronize(f, m, [][]int{{0, 1}})

	// One active, one unbound: the group can still be completed.
	delta := routing.NewAssignment().AddRange(1, 1, int64(m.End(0)))
	assert.True(t, f.Accept(delta, nil, 0, 0))
}

func TestActiveNodeGroupFilterRevertsBetweenCandidates(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddSameActivityGroup([]int{0, 1, 2})
	f := NewActiveNodeGroupFilter(m)
	synchronize(f, m, [][]int{{0, 1, 2}})

	bad := routing.NewAssignment().Add(2, 2).Add(1, int64(m.End(0)))
	require.False(t, f.Accept(bad, nil, 0, 0))
	// The rejected candidate leaves no trace for the next one.
	good := routing.NewAssignment().Add(0, 2).Add(2, 1).Add(1, int64(m.End(0)))
	assert.True(t, f.Accept(good, nil, 0, 0))
}
