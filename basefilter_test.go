package routefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routefilter/routing"
)

func TestBasePathFilterSynchronizeRanks(t *testing.T) {
	m := routing.NewModel(6, 2)
	f := newRecordingPathFilter(m)
	synchronize(f, m, [][]int{{0, 1, 2}, {3}})

	assert.ElementsMatch(t, []int{m.Start(0), m.Start(1)}, f.syncedStarts)
	assert.Equal(t, 0, f.Rank(m.Start(0)))
	assert.Equal(t, 1, f.Rank(0))
	assert.Equal(t, 2, f.Rank(1))
	assert.Equal(t, 3, f.Rank(2))
	assert.Equal(t, 4, f.Rank(m.End(0)))
	assert.Equal(t, 1, f.Rank(3))
	// Ranks are monotone along each committed path.
	for _, path := range []int{0, 1} {
		node := m.Start(path)
		prev := -1
		for node < m.Size() {
			require.Greater(t, f.Rank(node), prev)
			prev = f.Rank(node)
			node = f.Value(node)
		}
		require.Greater(t, f.Rank(node), prev)
	}
}

func TestBasePathFilterChainWindow(t *testing.T) {
	m := routing.NewModel(6, 2)
	f := newRecordingPathFilter(m)
	synchronize(f, m, [][]int{{0, 1, 2}, {3}})

	// Swap node 1 out of path 0 into path 1: touches arcs around 1 on path
	// 0, and the arc 3 -> 1 on path 1.
	delta := routing.NewAssignment().
		Add(0, 2).            // 0 -> 2, skipping 1
		Add(3, 1).            // 3 -> 1
		Add(1, int64(m.End(1))) // 1 -> end of vehicle 1

	require.True(t, f.Accept(delta, nil, 0, 0))
	require.Len(t, f.acceptPathCalls, 2)

	windows := map[int][2]int{}
	for _, call := range f.acceptPathCalls {
		windows[call[0]] = [2]int{call[1], call[2]}
	}
	// Path 0: touched nodes are 0, 2 (target of new arc) and 1 (still
	// ranked on path 0). The window spans min and max rank among them.
	window0 := windows[m.Start(0)]
	assert.Equal(t, 0, window0[0])
	assert.Equal(t, 2, window0[1])
	// Path 1: node 3 is touched, and the end is touched via 1 -> end.
	window1 := windows[m.Start(1)]
	assert.Equal(t, 3, window1[0])
	assert.Equal(t, m.End(1), window1[1])

	// Each window's lower bound ranks no later than its upper bound.
	for _, call := range f.acceptPathCalls {
		require.LessOrEqual(t, f.Rank(call[1]), f.Rank(call[2]))
	}
	assert.Equal(t, 1, f.initializeCalls)
	assert.Equal(t, 1, f.finalizeCalls)
}

func TestBasePathFilterStartTouchedWindow(t *testing.T) {
	m := routing.NewModel(6, 1)
	f := newRecordingPathFilter(m)
	synchronize(f, m, [][]int{{0, 1, 2}})

	// Touching the start pins the window's chain start to the start.
	delta := routing.NewAssignment().Add(m.Start(0), 1).Add(0, 0)
	require.True(t, f.Accept(delta, nil, 0, 0))
	require.Len(t, f.acceptPathCalls, 1)
	assert.Equal(t, m.Start(0), f.acceptPathCalls[0][1])
}

func TestBasePathFilterLNS(t *testing.T) {
	m := routing.NewModel(4, 1)
	f := newRecordingPathFilter(m)
	synchronize(f, m, [][]int{{0, 1}})

	delta := routing.NewAssignment().AddRange(0, 1, 2)
	assert.True(t, f.Accept(delta, nil, 0, 0))
	assert.True(t, f.LNSDetected())
	assert.Empty(t, f.acceptPathCalls)
	assert.Equal(t, int64(0), f.AcceptedObjectiveValue())
}

func TestBasePathFilterGetNext(t *testing.T) {
	m := routing.NewModel(4, 1)
	f := newRecordingPathFilter(m)
	synchronize(f, m, [][]int{{0, 1}})

	delta := routing.NewAssignment().Add(0, 2)
	require.True(t, f.Accept(delta, nil, 0, 0))
	assert.Equal(t, 2, f.GetNext(0))
	assert.Equal(t, m.End(0), f.GetNext(1))

	// The next candidate's delta leaves no trace of the previous one.
	delta2 := routing.NewAssignment().Add(1, 3)
	require.True(t, f.Accept(delta2, nil, 0, 0))
	assert.Equal(t, 1, f.GetNext(0))
	assert.Equal(t, 3, f.GetNext(1))
}

func TestBasePathFilterIncrementalSynchronize(t *testing.T) {
	m := routing.NewModel(6, 2)
	f := newRecordingPathFilter(m)
	synchronize(f, m, [][]int{{0, 1}, {2}})

	// Commit moving node 2 off path 1 via an incremental synchronize.
	delta := routing.NewAssignment().Add(m.Start(1), int64(m.End(1))).Add(2, 2)
	f.syncedStarts = nil
	f.Synchronize(fullAssignment(m, [][]int{{0, 1}, {}}), delta)

	assert.Equal(t, []int{m.Start(1)}, f.syncedStarts)
	assert.Contains(t, f.NewSynchronizedUnperformedNodes(), 2)
	assert.Equal(t, 1, f.Rank(m.End(1)))
}

func TestBasePathFilterAcceptPathRejection(t *testing.T) {
	m := routing.NewModel(6, 2)
	f := newRecordingPathFilter(m)
	synchronize(f, m, [][]int{{0}, {1}})

	f.rejectPathStart = m.Start(1)
	delta := routing.NewAssignment().Add(0, 2).Add(2, int64(m.End(0))).Add(1, 3).Add(3, int64(m.End(1)))
	assert.False(t, f.Accept(delta, nil, 0, 0))
	assert.Equal(t, 0, f.finalizeCalls)
}
