package routefilter

import (
	"github.com/hupe1980/routefilter/revertible"
	"github.com/hupe1980/routefilter/routing"
)

// VehicleVarFilter rejects candidates placing a node on a vehicle outside
// the node's allowed-vehicle set. Only the chain window of each touched path
// is rechecked. The filter disables itself when no node restricts its
// vehicles.
type VehicleVarFilter struct {
	*BasePathFilter
	NoopPathHooks

	touched *revertible.SparseBitset
}

// NewVehicleVarFilter returns a filter over the model's allowed-vehicle
// sets.
func NewVehicleVarFilter(model *routing.Model) *VehicleVarFilter {
	f := &VehicleVarFilter{
		touched: revertible.NewSparseBitset(model.Size()),
	}
	f.BasePathFilter = NewBasePathFilter("VehicleVarFilter", model, f)
	return f
}

// DisableFiltering implements PathFilterHooks.
func (f *VehicleVarFilter) DisableFiltering() bool {
	return !f.Model().HasVehicleRestrictions()
}

// AcceptPath implements PathFilterHooks.
func (f *VehicleVarFilter) AcceptPath(pathStart, chainStart, chainEnd int) bool {
	f.touched.SparseClearAll()
	vehicle := f.Model().VehicleIndex(pathStart)
	node := chainStart
	for node != chainEnd {
		if f.touched.Test(node) || !f.Model().VehicleAllowed(node, vehicle) {
			return false
		}
		f.touched.Set(node)
		node = f.GetNext(node)
	}
	return f.Model().VehicleAllowed(node, vehicle)
}
