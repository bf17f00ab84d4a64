package routefilter

import (
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
)

// ChainCumulFilter is the O(delta) variant of the cumul dimension filter: it
// only rechecks the chain window of each touched path, using cumul minima
// propagated at synchronization. It supports dimensions without cumul costs
// and with unconstrained intermediate cumuls except the overall capacity and
// the path end bound.
type ChainCumulFilter struct {
	*BasePathFilter
	NoopPathHooks

	dimension *routing.Dimension

	currentPathCumulMins         []int64
	currentMaxOfPathEndCumulMins []int64
	oldNexts                     []int
	oldVehicles                  []int
	currentTransits              []int64
	pathNodes                    []int
}

// NewChainCumulFilter returns a chain-incremental feasibility filter for
// dimension.
func NewChainCumulFilter(model *routing.Model, dimension *routing.Dimension) *ChainCumulFilter {
	n := model.NumIndices()
	f := &ChainCumulFilter{
		dimension:                    dimension,
		currentPathCumulMins:         make([]int64, n),
		currentMaxOfPathEndCumulMins: make([]int64, n),
		oldNexts:                     make([]int, model.Size()),
		oldVehicles:                  make([]int, model.Size()),
		currentTransits:              make([]int64, model.Size()),
	}
	for i := range f.oldNexts {
		f.oldNexts[i] = unassigned
		f.oldVehicles[i] = unassigned
	}
	f.BasePathFilter = NewBasePathFilter("ChainCumulFilter("+dimension.Name()+")", model, f)
	return f
}

// OnSynchronizePathFromStart implements PathFilterHooks: it propagates cumul
// minima along the path and records, for each node, the maximum cumul min
// from the node to the path end.
func (f *ChainCumulFilter) OnSynchronizePathFromStart(start int) {
	vehicle := f.Model().VehicleIndex(start)
	evaluator := f.dimension.TransitEvaluator(vehicle)
	f.pathNodes = f.pathNodes[:0]
	node := start
	cumul := f.dimension.CumulInterval(node).Min
	for node < f.Size() {
		f.pathNodes = append(f.pathNodes, node)
		f.currentPathCumulMins[node] = cumul
		next := f.Value(node)
		if next != f.oldNexts[node] || vehicle != f.oldVehicles[node] {
			f.oldNexts[node] = next
			f.oldVehicles[node] = vehicle
			f.currentTransits[node] = evaluator(node, next)
		}
		satmath.AddTo(f.currentTransits[node], &cumul)
		cumul = max(f.dimension.CumulInterval(next).Min, cumul)
		node = next
	}
	f.pathNodes = append(f.pathNodes, node)
	f.currentPathCumulMins[node] = cumul
	maxCumuls := cumul
	for i := len(f.pathNodes) - 1; i >= 0; i-- {
		node := f.pathNodes[i]
		maxCumuls = max(maxCumuls, f.currentPathCumulMins[node])
		f.currentMaxOfPathEndCumulMins[node] = maxCumuls
	}
}

// AcceptPath implements PathFilterHooks in O(chain window).
func (f *ChainCumulFilter) AcceptPath(pathStart, chainStart, chainEnd int) bool {
	vehicle := f.Model().VehicleIndex(pathStart)
	evaluator := f.dimension.TransitEvaluator(vehicle)
	capacity := f.dimension.Capacity(vehicle)
	node := chainStart
	cumul := f.currentPathCumulMins[node]
	for node != chainEnd {
		next := f.GetNext(node)
		if f.IsVarSynced(node) && next == f.Value(node) && vehicle == f.oldVehicles[node] {
			satmath.AddTo(f.currentTransits[node], &cumul)
		} else {
			satmath.AddTo(evaluator(node, next), &cumul)
		}
		cumul = max(f.dimension.CumulInterval(next).Min, cumul)
		if cumul > capacity {
			return false
		}
		node = next
	}
	end := f.Model().End(vehicle)
	endCumulDelta := satmath.Sub(f.currentPathCumulMins[end], f.currentPathCumulMins[node])
	afterChainCumulDelta := satmath.Sub(f.currentMaxOfPathEndCumulMins[node],
		f.currentPathCumulMins[node])
	return satmath.Add(cumul, afterChainCumulDelta) <= capacity &&
		satmath.Add(cumul, endCumulDelta) <= f.dimension.CumulInterval(end).Max
}
