package routefilter

import "github.com/hupe1980/routefilter/routing"

// MaxActiveVehiclesFilter rejects candidates using more vehicles than the
// model's active-vehicle cap. A vehicle is active when its start does not
// point directly at its end. O(delta) per Accept.
type MaxActiveVehiclesFilter struct {
	BaseFilter
	model          *routing.Model
	nexts          syncedNexts
	isActive       []bool
	activeVehicles int
}

// NewMaxActiveVehiclesFilter returns a filter over the model's vehicles.
func NewMaxActiveVehiclesFilter(model *routing.Model) *MaxActiveVehiclesFilter {
	return &MaxActiveVehiclesFilter{
		BaseFilter: NewBaseFilter("MaxActiveVehiclesFilter"),
		model:      model,
		nexts:      newSyncedNexts(model.Size()),
		isActive:   make([]bool, model.NumVehicles()),
	}
}

// Accept implements Filter.
func (f *MaxActiveVehiclesFilter) Accept(delta, _ *routing.Assignment, _, _ int64) bool {
	current := f.activeVehicles
	for _, element := range delta.Elements() {
		index := element.Index
		if index < 0 || index >= f.nexts.size() || !f.model.IsStart(index) {
			continue
		}
		if !element.Bound() {
			// LNS detected.
			return true
		}
		vehicle := f.model.VehicleIndex(index)
		isActive := int(element.Value()) != f.model.End(vehicle)
		if isActive && !f.isActive[vehicle] {
			current++
		} else if !isActive && f.isActive[vehicle] {
			current--
		}
	}
	return current <= f.model.MaxActiveVehicles()
}

// Synchronize implements Filter.
func (f *MaxActiveVehiclesFilter) Synchronize(assignment, delta *routing.Assignment) {
	f.nexts.synchronize(assignment, delta)
	f.activeVehicles = 0
	for v := 0; v < f.model.NumVehicles(); v++ {
		start := f.model.Start(v)
		if f.nexts.isSynced(start) && f.nexts.value(start) != f.model.End(v) {
			f.isActive[v] = true
			f.activeVehicles++
		} else {
			f.isActive[v] = false
		}
	}
}
