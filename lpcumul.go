package routefilter

import (
	"context"

	"github.com/hupe1980/routefilter/revertible"
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
	"github.com/hupe1980/routefilter/sched"
)

// CumulBoundsPropagator propagates cumul bounds of a dimension over the
// candidate successor function; false means a bound became empty.
type CumulBoundsPropagator func(next func(int) int, cumulOffset int64) bool

// CumulBoundsPropagatorFilter runs a dimension's bounds propagation on every
// candidate (priority 2).
type CumulBoundsPropagatorFilter struct {
	BaseFilter
	nexts        syncedNexts
	propagate    CumulBoundsPropagator
	cumulOffset  int64
	deltaTouched *revertible.SparseBitset
	deltaNexts   []int
}

// NewCumulBoundsPropagatorFilter returns a filter delegating to propagate.
func NewCumulBoundsPropagatorFilter(model *routing.Model, dimensionName string, propagate CumulBoundsPropagator, cumulOffset int64) *CumulBoundsPropagatorFilter {
	return &CumulBoundsPropagatorFilter{
		BaseFilter:   NewBaseFilter("CumulBoundsPropagatorFilter(" + dimensionName + ")"),
		nexts:        newSyncedNexts(model.Size()),
		propagate:    propagate,
		cumulOffset:  cumulOffset,
		deltaTouched: revertible.NewSparseBitset(model.Size()),
		deltaNexts:   make([]int, model.Size()),
	}
}

// Accept implements Filter.
func (f *CumulBoundsPropagatorFilter) Accept(delta, _ *routing.Assignment, _, _ int64) bool {
	f.deltaTouched.ClearAll()
	for _, element := range delta.Elements() {
		index := element.Index
		if index < 0 || index >= f.nexts.size() {
			continue
		}
		if !element.Bound() {
			// LNS detected.
			return true
		}
		f.deltaTouched.Set(index)
		f.deltaNexts[index] = int(element.Value())
	}
	next := func(index int) int {
		if f.deltaTouched.Test(index) {
			return f.deltaNexts[index]
		}
		return f.nexts.value(index)
	}
	return f.propagate(next, f.cumulOffset)
}

// Synchronize implements Filter.
func (f *CumulBoundsPropagatorFilter) Synchronize(assignment, delta *routing.Assignment) {
	f.nexts.synchronize(assignment, delta)
}

// LPCumulFilter filters a dimension with a global LP over all routes at
// once (priority 4), escalating to the MIP on relaxed results.
type LPCumulFilter struct {
	BaseFilter
	model               *routing.Model
	nexts               syncedNexts
	lpOptimizer         sched.GlobalOptimizer
	mpOptimizer         sched.GlobalOptimizer
	filterObjectiveCost bool

	synchronizedCostWithoutTransit int64
	deltaCostWithoutTransit        int64
	deltaTouched                   *revertible.SparseBitset
	deltaNexts                     []int
	ctx                            context.Context
}

// NewLPCumulFilter returns a global LP filter for the dimension named
// dimensionName.
func NewLPCumulFilter(model *routing.Model, dimensionName string, lpOptimizer, mpOptimizer sched.GlobalOptimizer, filterObjectiveCost bool) *LPCumulFilter {
	return &LPCumulFilter{
		BaseFilter:                     NewBaseFilter("LPCumulFilter(" + dimensionName + ")"),
		model:                          model,
		nexts:                          newSyncedNexts(model.Size()),
		lpOptimizer:                    lpOptimizer,
		mpOptimizer:                    mpOptimizer,
		filterObjectiveCost:            filterObjectiveCost,
		synchronizedCostWithoutTransit: -1,
		deltaCostWithoutTransit:        -1,
		deltaTouched:                   revertible.NewSparseBitset(model.Size()),
		deltaNexts:                     make([]int, model.Size()),
		ctx:                            context.Background(),
	}
}

// Accept implements Filter.
func (f *LPCumulFilter) Accept(delta, _ *routing.Assignment, _, objectiveMax int64) bool {
	f.deltaTouched.ClearAll()
	for _, element := range delta.Elements() {
		index := element.Index
		if index < 0 || index >= f.nexts.size() {
			continue
		}
		if !element.Bound() {
			// LNS detected.
			f.deltaCostWithoutTransit = 0
			return true
		}
		f.deltaTouched.Set(index)
		f.deltaNexts[index] = int(element.Value())
	}
	next := func(index int) int {
		if f.deltaTouched.Test(index) {
			return f.deltaNexts[index]
		}
		return f.nexts.value(index)
	}

	if !f.filterObjectiveCost {
		// Only feasibility matters; skip the cost computation.
		f.deltaCostWithoutTransit = 0
		status := f.lpOptimizer.ComputeCumulCost(f.ctx, next, nil)
		if status == sched.StatusOptimal {
			return true
		}
		return status == sched.StatusRelaxedOptimalOnly &&
			f.mpOptimizer.ComputeCumulCost(f.ctx, next, nil) == sched.StatusOptimal
	}

	status := f.lpOptimizer.ComputeCumulCost(f.ctx, next, &f.deltaCostWithoutTransit)
	if status == sched.StatusInfeasible {
		f.deltaCostWithoutTransit = satmath.MaxInt64
		return false
	}
	if f.deltaCostWithoutTransit > objectiveMax {
		return false
	}
	if status == sched.StatusRelaxedOptimalOnly &&
		f.mpOptimizer.ComputeCumulCost(f.ctx, next, &f.deltaCostWithoutTransit) != sched.StatusOptimal {
		f.deltaCostWithoutTransit = satmath.MaxInt64
		return false
	}
	return f.deltaCostWithoutTransit <= objectiveMax
}

// AcceptedObjectiveValue implements Filter.
func (f *LPCumulFilter) AcceptedObjectiveValue() int64 { return f.deltaCostWithoutTransit }

// Synchronize implements Filter.
func (f *LPCumulFilter) Synchronize(assignment, delta *routing.Assignment) {
	f.nexts.synchronize(assignment, delta)
	next := func(index int) int {
		if f.nexts.isSynced(index) {
			return f.nexts.value(index)
		}
		if f.model.IsStart(index) {
			return f.model.End(f.model.VehicleIndex(index))
		}
		return index
	}
	if !f.filterObjectiveCost {
		f.synchronizedCostWithoutTransit = 0
		if f.lpOptimizer.ComputeCumulCost(f.ctx, next, nil) == sched.StatusRelaxedOptimalOnly {
			f.mpOptimizer.ComputeCumulCost(f.ctx, next, nil)
		}
		return
	}
	status := f.lpOptimizer.ComputeCumulCost(f.ctx, next, &f.synchronizedCostWithoutTransit)
	if status == sched.StatusInfeasible {
		// Only happens on LP timeout; don't cache a bogus cost.
		f.synchronizedCostWithoutTransit = 0
	}
	if status == sched.StatusRelaxedOptimalOnly {
		if f.mpOptimizer.ComputeCumulCost(f.ctx, next, &f.synchronizedCostWithoutTransit) !=
			sched.StatusOptimal {
			f.synchronizedCostWithoutTransit = 0
		}
	}
}

// SynchronizedObjectiveValue implements Filter.
func (f *LPCumulFilter) SynchronizedObjectiveValue() int64 {
	return f.synchronizedCostWithoutTransit
}

// SolutionCheck verifies a full candidate assignment against the solver's
// own constraint propagation.
type SolutionCheck func(assignment *routing.Assignment) bool

// CPFeasibilityFilter keeps an internal copy of the committed next values
// and verifies assignment-plus-delta with a solver-supplied check. Unused
// routes are deactivated so they are not restored.
type CPFeasibilityFilter struct {
	BaseFilter
	model *routing.Model
	check SolutionCheck

	values      []int64
	known       []bool
	deactivated []bool

	tempValues      []int64
	tempKnown       []bool
	tempDeactivated []bool
}

// NewCPFeasibilityFilter returns a filter delegating to check.
func NewCPFeasibilityFilter(model *routing.Model, check SolutionCheck) *CPFeasibilityFilter {
	size := model.Size()
	return &CPFeasibilityFilter{
		BaseFilter:      NewBaseFilter("CPFeasibilityFilter"),
		model:           model,
		check:           check,
		values:          make([]int64, size),
		known:           make([]bool, size),
		deactivated:     make([]bool, size),
		tempValues:      make([]int64, size),
		tempKnown:       make([]bool, size),
		tempDeactivated: make([]bool, size),
	}
}

func (f *CPFeasibilityFilter) addDelta(delta *routing.Assignment, values []int64, known, deactivated []bool) {
	for _, element := range delta.Elements() {
		index := element.Index
		if index < 0 || index >= len(values) || !element.Bound() {
			continue
		}
		value := element.Value()
		values[index] = value
		known[index] = true
		if f.model.IsStart(index) {
			// Unused routes are not restored.
			deactivated[index] = f.model.IsEnd(int(value))
		}
	}
}

func (f *CPFeasibilityFilter) buildAssignment(values []int64, known, deactivated []bool) *routing.Assignment {
	assignment := routing.NewAssignment()
	for index := range values {
		if !known[index] {
			continue
		}
		if deactivated[index] {
			assignment.AddDeactivated(index)
			continue
		}
		assignment.Add(index, values[index])
	}
	return assignment
}

// Accept implements Filter.
func (f *CPFeasibilityFilter) Accept(delta, _ *routing.Assignment, _, _ int64) bool {
	copy(f.tempValues, f.values)
	copy(f.tempKnown, f.known)
	copy(f.tempDeactivated, f.deactivated)
	f.addDelta(delta, f.tempValues, f.tempKnown, f.tempDeactivated)
	return f.check(f.buildAssignment(f.tempValues, f.tempKnown, f.tempDeactivated))
}

// Synchronize implements Filter.
func (f *CPFeasibilityFilter) Synchronize(assignment, delta *routing.Assignment) {
	if delta.Empty() {
		f.addDelta(assignment, f.values, f.known, f.deactivated)
		return
	}
	f.addDelta(delta, f.values, f.known, f.deactivated)
}
