package routefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routefilter/pathstate"
)

func TestPathEnergyCostCheckerSingleArc(t *testing.T) {
	// One path start 0 -> end 1, force 5 at the start, distance 10,
	// threshold 3, unit costs 1 below and 2 above.
	state := pathstate.New(2, []int{0}, []int{1})
	forces := []int64{5, 0}
	checker := NewPathEnergyCostChecker(state, PathEnergyCostCheckerConfig{
		ForceStartMin:    []int64{0},
		ForceEndMin:      []int64{0},
		ForceClass:       []int{0},
		ForcePerClass:    []ForceEvaluator{func(node int) int64 { return forces[node] }},
		DistanceClass:    []int{0},
		DistancePerClass: []DistanceEvaluator{func(from, to int) int64 { return 10 }},
		PathEnergyCost: []EnergyCost{{
			Threshold:                 3,
			CostPerUnitBelowThreshold: 1,
			CostPerUnitAboveThreshold: 2,
		}},
		PathHasCostWhenEmpty: []bool{true},
	})

	// Energy below threshold: min(3, 5) * 10 = 30; above: (5-3) * 10 = 20;
	// total cost 30*1 + 20*2 = 70.
	assert.Equal(t, int64(70), checker.CommittedCost())
	assert.True(t, checker.Check())
	assert.Equal(t, int64(70), checker.AcceptedCost())
}

func TestPathEnergyCostCheckerEmptyPathExemption(t *testing.T) {
	state := pathstate.New(2, []int{0}, []int{1})
	checker := NewPathEnergyCostChecker(state, PathEnergyCostCheckerConfig{
		ForceStartMin:    []int64{0},
		ForceEndMin:      []int64{0},
		ForceClass:       []int{0},
		ForcePerClass:    []ForceEvaluator{func(node int) int64 { return 5 }},
		DistanceClass:    []int{0},
		DistancePerClass: []DistanceEvaluator{func(from, to int) int64 { return 10 }},
		PathEnergyCost: []EnergyCost{{
			Threshold:                 3,
			CostPerUnitBelowThreshold: 1,
			CostPerUnitAboveThreshold: 2,
		}},
		PathHasCostWhenEmpty: []bool{false},
	})
	assert.Equal(t, int64(0), checker.CommittedCost())
}

func TestPathEnergyCostCheckerChangedPath(t *testing.T) {
	// Nodes: 0 regular, 1 start, 2 end.
	state := pathstate.New(3, []int{1}, []int{2})
	forces := []int64{3, 2, 0}
	distances := map[[2]int]int64{
		{1, 0}: 4,
		{0, 2}: 6,
		{1, 2}: 10,
	}
	checker := NewPathEnergyCostChecker(state, PathEnergyCostCheckerConfig{
		ForceStartMin: []int64{0},
		ForceEndMin:   []int64{0},
		ForceClass:    []int{0},
		ForcePerClass: []ForceEvaluator{func(node int) int64 { return forces[node] }},
		DistanceClass: []int{0},
		DistancePerClass: []DistanceEvaluator{func(from, to int) int64 {
			return distances[[2]int{from, to}]
		}},
		PathEnergyCost: []EnergyCost{{
			Threshold:                 4,
			CostPerUnitBelowThreshold: 1,
			CostPerUnitAboveThreshold: 1,
		}},
		PathHasCostWhenEmpty: []bool{true},
	})

	// Committed: 1 -> 2, force 2 over distance 10, all below threshold 4:
	// cost 20.
	require.Equal(t, int64(20), checker.CommittedCost())

	// Candidate: 1 -> 0 -> 2. Running force: 2 on arc (1,0), then 2+3=5 on
	// arc (0,2). Energy below: 2*4 + 4*6 = 32; above: 0*4 + 1*6 = 6;
	// cost 38.
	chains := []pathstate.ChainBounds{}
	for _, node := range []int{1, 0, 2} {
		i := state.CommittedIndex(node)
		chains = append(chains, pathstate.ChainBounds{Begin: i, End: i + 1})
	}
	state.ChangePath(0, chains)
	require.True(t, checker.Check())
	assert.Equal(t, int64(38), checker.AcceptedCost())

	// Committing promotes the candidate cost; checker first, state second.
	checker.Commit()
	state.Commit()
	assert.Equal(t, int64(38), checker.CommittedCost())

	// With no changed path, Check reports the new committed cost.
	require.True(t, checker.Check())
	assert.Equal(t, int64(38), checker.AcceptedCost())
}
