package routefilter

import (
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
)

// VehicleAmortizedCostFilter tracks per-vehicle amortized costs: a non-empty
// route contributes linearFactor - quadraticFactor * routeLength^2, with the
// linear part entering and leaving the objective on empty transitions. Route
// lengths are updated from chain windows in O(chain).
type VehicleAmortizedCostFilter struct {
	*BasePathFilter
	NoopPathHooks

	currentVehicleCost  int64
	deltaVehicleCost    int64
	currentRouteLengths []int
}

// NewVehicleAmortizedCostFilter returns a filter over the model's amortized
// cost factors.
func NewVehicleAmortizedCostFilter(model *routing.Model) *VehicleAmortizedCostFilter {
	f := &VehicleAmortizedCostFilter{
		currentRouteLengths: make([]int, model.Size()),
	}
	for i := range f.currentRouteLengths {
		f.currentRouteLengths[i] = unassigned
	}
	f.BasePathFilter = NewBasePathFilter("VehicleAmortizedCostFilter", model, f)
	return f
}

// SynchronizedObjectiveValue implements Filter.
func (f *VehicleAmortizedCostFilter) SynchronizedObjectiveValue() int64 {
	return f.currentVehicleCost
}

// AcceptedObjectiveValue implements Filter.
func (f *VehicleAmortizedCostFilter) AcceptedObjectiveValue() int64 {
	if f.LNSDetected() {
		return 0
	}
	return f.deltaVehicleCost
}

// OnSynchronizePathFromStart implements PathFilterHooks.
func (f *VehicleAmortizedCostFilter) OnSynchronizePathFromStart(start int) {
	end := f.Model().End(f.Model().VehicleIndex(start))
	f.currentRouteLengths[start] = f.Rank(end) - 1
}

// OnAfterSynchronizePaths implements PathFilterHooks.
func (f *VehicleAmortizedCostFilter) OnAfterSynchronizePaths() {
	f.currentVehicleCost = 0
	model := f.Model()
	for vehicle := 0; vehicle < model.NumVehicles(); vehicle++ {
		start := model.Start(vehicle)
		if !f.IsVarSynced(start) {
			return
		}
		routeLength := f.currentRouteLengths[start]
		if routeLength == 0 {
			// The path is empty.
			continue
		}
		lengthCost := satmath.Mul(model.AmortizedQuadraticCostFactor(vehicle),
			int64(routeLength)*int64(routeLength))
		satmath.AddTo(satmath.Sub(model.AmortizedLinearCostFactor(vehicle), lengthCost),
			&f.currentVehicleCost)
	}
}

// InitializeAcceptPath implements PathFilterHooks.
func (f *VehicleAmortizedCostFilter) InitializeAcceptPath() bool {
	f.deltaVehicleCost = f.currentVehicleCost
	return true
}

// AcceptPath implements PathFilterHooks.
func (f *VehicleAmortizedCostFilter) AcceptPath(pathStart, chainStart, chainEnd int) bool {
	// Replace the nodes previously between chainStart and chainEnd by the
	// candidate's chain to get the new route length.
	previousChainNodes := f.Rank(chainEnd) - 1 - f.Rank(chainStart)
	newChainNodes := 0
	for node := f.GetNext(chainStart); node != chainEnd; node = f.GetNext(node) {
		newChainNodes++
	}

	previousRouteLength := f.currentRouteLengths[pathStart]
	newRouteLength := previousRouteLength - previousChainNodes + newChainNodes
	vehicle := f.Model().VehicleIndex(pathStart)

	if previousRouteLength == 0 {
		// The route was empty and no longer is.
		satmath.AddTo(f.Model().AmortizedLinearCostFactor(vehicle), &f.deltaVehicleCost)
	} else if newRouteLength == 0 {
		// The route is now empty.
		f.deltaVehicleCost = satmath.Sub(f.deltaVehicleCost,
			f.Model().AmortizedLinearCostFactor(vehicle))
	}

	quadratic := f.Model().AmortizedQuadraticCostFactor(vehicle)
	satmath.AddTo(satmath.Mul(quadratic, int64(previousRouteLength)*int64(previousRouteLength)),
		&f.deltaVehicleCost)
	f.deltaVehicleCost = satmath.Sub(f.deltaVehicleCost,
		satmath.Mul(quadratic, int64(newRouteLength)*int64(newRouteLength)))
	return true
}

// FinalizeAcceptPath implements PathFilterHooks.
func (f *VehicleAmortizedCostFilter) FinalizeAcceptPath(_, objectiveMax int64) bool {
	return f.deltaVehicleCost <= objectiveMax
}
