package routefilter

import (
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
)

// RouteConstraintFilter evaluates a user-provided route cost function on
// every touched path; a missing cost rejects the candidate, a returned cost
// replaces the path's contribution to the tracked objective.
type RouteConstraintFilter struct {
	*BasePathFilter
	NoopPathHooks

	currentVehicleCost  int64
	deltaVehicleCost    int64
	currentVehicleCosts []int64
	route               []int
}

// NewRouteConstraintFilter returns a filter over the model's route cost
// callback.
func NewRouteConstraintFilter(model *routing.Model) *RouteConstraintFilter {
	f := &RouteConstraintFilter{
		currentVehicleCosts: make([]int64, model.NumVehicles()),
	}
	f.BasePathFilter = NewBasePathFilter("RouteConstraintFilter", model, f)
	return f
}

// SynchronizedObjectiveValue implements Filter.
func (f *RouteConstraintFilter) SynchronizedObjectiveValue() int64 { return f.currentVehicleCost }

// AcceptedObjectiveValue implements Filter.
func (f *RouteConstraintFilter) AcceptedObjectiveValue() int64 {
	if f.LNSDetected() {
		return 0
	}
	return f.deltaVehicleCost
}

// OnSynchronizePathFromStart implements PathFilterHooks.
func (f *RouteConstraintFilter) OnSynchronizePathFromStart(start int) {
	f.route = f.route[:0]
	node := start
	for node < f.Size() {
		f.route = append(f.route, node)
		node = f.Value(node)
	}
	f.route = append(f.route, node)
	cost, _ := f.Model().RouteCost(f.route)
	f.currentVehicleCosts[f.Model().VehicleIndex(start)] = cost
}

// OnAfterSynchronizePaths implements PathFilterHooks.
func (f *RouteConstraintFilter) OnAfterSynchronizePaths() {
	f.currentVehicleCost = 0
	for vehicle := 0; vehicle < f.Model().NumVehicles(); vehicle++ {
		if !f.IsVarSynced(f.Model().Start(vehicle)) {
			return
		}
		satmath.AddTo(f.currentVehicleCosts[vehicle], &f.currentVehicleCost)
	}
}

// InitializeAcceptPath implements PathFilterHooks.
func (f *RouteConstraintFilter) InitializeAcceptPath() bool {
	f.deltaVehicleCost = f.currentVehicleCost
	return true
}

// AcceptPath implements PathFilterHooks.
func (f *RouteConstraintFilter) AcceptPath(pathStart, _, _ int) bool {
	f.deltaVehicleCost = satmath.Sub(f.deltaVehicleCost,
		f.currentVehicleCosts[f.Model().VehicleIndex(pathStart)])
	f.route = f.route[:0]
	node := pathStart
	for node < f.Size() {
		f.route = append(f.route, node)
		node = f.GetNext(node)
	}
	f.route = append(f.route, node)
	cost, ok := f.Model().RouteCost(f.route)
	if !ok {
		return false
	}
	satmath.AddTo(cost, &f.deltaVehicleCost)
	return true
}

// FinalizeAcceptPath implements PathFilterHooks.
func (f *RouteConstraintFilter) FinalizeAcceptPath(_, objectiveMax int64) bool {
	return f.deltaVehicleCost <= objectiveMax
}
