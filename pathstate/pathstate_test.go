package pathstate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestState returns a state over 8 nodes: regular nodes 0..3, path 0 from
// start 4 to end 6, path 1 from start 5 to end 7.
func newTestState() *PathState {
	return New(8, []int{4, 5}, []int{6, 7})
}

func pathNodes(s *PathState, path int) []int {
	var nodes []int
	for node := range s.Nodes(path) {
		nodes = append(nodes, node)
	}
	return nodes
}

// singleNodeChains builds a candidate chain list visiting the given nodes,
// one committed node per chain.
func singleNodeChains(s *PathState, nodes ...int) []ChainBounds {
	var chains []ChainBounds
	for _, node := range nodes {
		i := s.CommittedIndex(node)
		chains = append(chains, ChainBounds{Begin: i, End: i + 1})
	}
	return chains
}

func checkIndexConsistency(t *testing.T, s *PathState, numNodes int) {
	t.Helper()
	seen := make(map[int]bool)
	for node := 0; node < numNodes; node++ {
		i := s.CommittedIndex(node)
		require.False(t, seen[i], "node %d shares committed index %d", node, i)
		seen[i] = true
	}
}

func TestInitialState(t *testing.T) {
	s := newTestState()
	assert.Equal(t, 8, s.NumNodes())
	assert.Equal(t, 2, s.NumPaths())
	assert.Equal(t, 4, s.Start(0))
	assert.Equal(t, 6, s.End(0))
	assert.Equal(t, []int{4, 6}, pathNodes(s, 0))
	assert.Equal(t, []int{5, 7}, pathNodes(s, 1))
	for node := 0; node < 4; node++ {
		assert.Equal(t, -1, s.Path(node), "node %d should be a loop", node)
	}
	assert.Equal(t, 0, s.Path(4))
	assert.Equal(t, 1, s.Path(7))
	checkIndexConsistency(t, s, 8)
}

func TestChangePathCommit(t *testing.T) {
	s := newTestState()
	s.ChangePath(0, singleNodeChains(s, 4, 0, 1, 6))
	assert.Equal(t, []int{0}, s.ChangedPaths())
	assert.Equal(t, []int{4, 0, 1, 6}, pathNodes(s, 0))

	s.Commit()
	assert.Empty(t, s.ChangedPaths())
	assert.Equal(t, []int{4, 0, 1, 6}, pathNodes(s, 0))
	assert.Equal(t, 0, s.Path(0))
	assert.Equal(t, 0, s.Path(1))
	assert.Equal(t, -1, s.Path(2))
	checkIndexConsistency(t, s, 8)

	// Committed chain of path 0 is contiguous.
	bounds := s.CommittedPathRange(0)
	assert.Equal(t, 4, bounds.End-bounds.Begin)
}

func TestChangePathRevert(t *testing.T) {
	s := newTestState()
	s.ChangePath(0, singleNodeChains(s, 4, 2, 6))
	s.Revert()
	assert.Equal(t, []int{4, 6}, pathNodes(s, 0))
	assert.Empty(t, s.ChangedPaths())
	assert.Empty(t, s.ChangedLoops())
}

func TestChangeLoops(t *testing.T) {
	s := newTestState()
	s.ChangePath(0, singleNodeChains(s, 4, 0, 6))
	s.Commit()

	// Remove node 0 from path 0 again.
	s.ChangePath(0, singleNodeChains(s, 4, 6))
	s.ChangeLoops([]int{0})
	assert.Equal(t, []int{0}, s.ChangedLoops())
	s.Commit()
	assert.Equal(t, -1, s.Path(0))
	assert.Equal(t, []int{4, 6}, pathNodes(s, 0))

	// ChangeLoops skips nodes that already are loops.
	s.ChangeLoops([]int{2})
	assert.Empty(t, s.ChangedLoops())
	s.Revert()
}

func TestChainReuse(t *testing.T) {
	s := newTestState()
	s.ChangePath(0, singleNodeChains(s, 4, 0, 1, 2, 6))
	s.Commit()

	// Splice [0, 1] after 2 by reusing the committed chain of path 0.
	bounds := s.CommittedPathRange(0)
	chains := []ChainBounds{
		{Begin: bounds.Begin, End: bounds.Begin + 1},     // 4
		{Begin: bounds.Begin + 3, End: bounds.Begin + 4}, // 2
		{Begin: bounds.Begin + 1, End: bounds.Begin + 3}, // 0, 1
		{Begin: bounds.Begin + 4, End: bounds.Begin + 5}, // 6
	}
	s.ChangePath(0, chains)
	assert.Equal(t, []int{4, 2, 0, 1, 6}, pathNodes(s, 0))

	var chainLens []int
	for chain := range s.Chains(0) {
		chainLens = append(chainLens, chain.NumNodes())
	}
	assert.Equal(t, []int{1, 1, 2, 1}, chainLens)

	s.Commit()
	assert.Equal(t, []int{4, 2, 0, 1, 6}, pathNodes(s, 0))
	checkIndexConsistency(t, s, 8)
}

func TestSetInvalid(t *testing.T) {
	s := newTestState()
	assert.False(t, s.IsInvalid())
	s.SetInvalid()
	assert.True(t, s.IsInvalid())
	// Sticky until Revert.
	s.Revert()
	assert.False(t, s.IsInvalid())
}

func TestCommitOnInvalidPanics(t *testing.T) {
	s := newTestState()
	s.SetInvalid()
	assert.Panics(t, func() { s.Commit() })
}

func TestChainViews(t *testing.T) {
	s := newTestState()
	s.ChangePath(0, singleNodeChains(s, 4, 3, 6))
	s.Commit()
	for chain := range s.Chains(0) {
		assert.Equal(t, 4, chain.First())
		assert.Equal(t, 6, chain.Last())
		assert.Equal(t, []int{4, 3, 6}, chain.Nodes())
		assert.Equal(t, []int{3, 6}, chain.WithoutFirstNode())
	}
}

// Churn until full commits trigger, verifying state against a plain oracle.
func TestCommitChurn(t *testing.T) {
	const numNodes = 10
	starts := []int{6, 7}
	ends := []int{8, 9}
	s := New(numNodes, starts, ends)
	rng := rand.New(rand.NewSource(42))

	oracle := [][]int{{6, 8}, {7, 9}}
	onPath := make([]int, numNodes)
	for i := range onPath {
		onPath[i] = -1
	}
	onPath[6], onPath[8] = 0, 0
	onPath[7], onPath[9] = 1, 1

	for round := 0; round < 60; round++ {
		path := rng.Intn(2)
		// Move a random regular node onto path, or drop all its regular nodes.
		var want []int
		var loops []int
		if rng.Intn(4) == 0 {
			want = []int{starts[path], ends[path]}
			for _, node := range oracle[path][1 : len(oracle[path])-1] {
				loops = append(loops, node)
				onPath[node] = -1
			}
		} else {
			node := rng.Intn(6)
			if onPath[node] != -1 {
				continue
			}
			onPath[node] = path
			want = append([]int{}, oracle[path][:len(oracle[path])-1]...)
			want = append(want, node, ends[path])
		}
		s.ChangePath(path, singleNodeChains(s, want...))
		s.ChangeLoops(loops)
		s.Commit()
		oracle[path] = want

		for p := 0; p < 2; p++ {
			require.Equal(t, oracle[p], pathNodes(s, p), "round %d path %d", round, p)
		}
		for node := 0; node < numNodes; node++ {
			require.Equal(t, onPath[node], s.Path(node), "round %d node %d", round, node)
		}
		checkIndexConsistency(t, s, numNodes)
	}
}
