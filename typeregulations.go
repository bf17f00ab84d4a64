package routefilter

import "github.com/hupe1980/routefilter/routing"

// TypeRegulationsFilter enforces visit-type regulations per vehicle: hard
// type incompatibilities are counted incrementally from chain windows;
// temporal incompatibilities and type requirements are delegated to the
// model's installed checkers.
type TypeRegulationsFilter struct {
	*BasePathFilter
	NoopPathHooks

	// hardTypeCounts[vehicle][type] counts nodes of the type on the
	// vehicle's synchronized route.
	hardTypeCounts [][]int
}

// NewTypeRegulationsFilter returns a filter over the model's visit types.
func NewTypeRegulationsFilter(model *routing.Model) *TypeRegulationsFilter {
	f := &TypeRegulationsFilter{}
	if model.HasHardTypeIncompatibilities() {
		f.hardTypeCounts = make([][]int, model.NumVehicles())
		for v := range f.hardTypeCounts {
			f.hardTypeCounts[v] = make([]int, model.NumVisitTypes())
		}
	}
	f.BasePathFilter = NewBasePathFilter("TypeRegulationsFilter", model, f)
	return f
}

func (f *TypeRegulationsFilter) countedType(node int) int {
	t := f.Model().VisitType(node)
	if t == unassigned || f.Model().VisitTypePolicy(node) == routing.AddedTypeRemovedFromVehicle {
		return unassigned
	}
	return t
}

// OnSynchronizePathFromStart implements PathFilterHooks.
func (f *TypeRegulationsFilter) OnSynchronizePathFromStart(start int) {
	if !f.Model().HasHardTypeIncompatibilities() {
		return
	}
	counts := f.hardTypeCounts[f.Model().VehicleIndex(start)]
	for i := range counts {
		counts[i] = 0
	}
	for node := start; node < f.Size(); node = f.Value(node) {
		if t := f.countedType(node); t != unassigned {
			counts[t]++
		}
	}
}

func (f *TypeRegulationsFilter) hardIncompatibilitiesRespected(vehicle, chainStart, chainEnd int) bool {
	if !f.Model().HasHardTypeIncompatibilities() {
		return true
	}
	previousCounts := f.hardTypeCounts[vehicle]
	newCounts := make(map[int]int)
	typesToCheck := make(map[int]struct{})

	lookup := func(t int) int {
		if count, ok := newCounts[t]; ok {
			return count
		}
		return previousCounts[t]
	}

	// Count types of the candidate chain.
	for node := f.GetNext(chainStart); node != chainEnd; node = f.GetNext(node) {
		if t := f.countedType(node); t != unassigned {
			count := lookup(t)
			if count == 0 {
				// New type on the route; check its incompatibilities below.
				typesToCheck[t] = struct{}{}
			}
			newCounts[t] = count + 1
		}
	}
	// Remove types of the nodes no longer on the route.
	if f.IsVarSynced(chainStart) {
		for node := f.Value(chainStart); node != chainEnd; node = f.Value(node) {
			if t := f.countedType(node); t != unassigned {
				newCounts[t] = lookup(t) - 1
			}
		}
	}

	for t := range typesToCheck {
		for _, incompatible := range f.Model().HardTypeIncompatibilitiesOfType(t) {
			if lookup(incompatible) > 0 {
				return false
			}
		}
	}
	return true
}

// AcceptPath implements PathFilterHooks.
func (f *TypeRegulationsFilter) AcceptPath(pathStart, chainStart, chainEnd int) bool {
	vehicle := f.Model().VehicleIndex(pathStart)
	next := func(node int) int { return f.GetNext(node) }
	return f.hardIncompatibilitiesRespected(vehicle, chainStart, chainEnd) &&
		f.Model().CheckTemporalIncompatibilities(vehicle, next) &&
		f.Model().CheckRequirements(vehicle, next)
}
