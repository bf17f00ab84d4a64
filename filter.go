// Package routefilter provides incremental local-search filters for vehicle
// routing solvers. A search engine proposes a delta over next variables for
// each candidate neighbor; filters decide quickly whether the neighbor is
// feasible and bound its objective. Work per call is proportional to the
// delta size wherever possible, never to route or model size.
package routefilter

import "github.com/hupe1980/routefilter/routing"

// Priority orders filter evaluation; lower priorities run first so cheap
// filters can cut candidates before expensive ones run.
type Priority int

const (
	// PriorityLightweight is for chain and path cumul filters without
	// optimizers.
	PriorityLightweight Priority = 0
	// PriorityPathCumulWithOptimizer is for path cumul filters with an
	// embedded LP/MIP optimizer.
	PriorityPathCumulWithOptimizer Priority = 1
	// PriorityCumulBoundsPropagator is for cumul-bounds propagation filters.
	PriorityCumulBoundsPropagator Priority = 2
	// PriorityResourceAssignment is for resource assignment filters.
	PriorityResourceAssignment Priority = 3
	// PriorityGlobalLP is for global LP cumul filters.
	PriorityGlobalLP Priority = 4
)

// Filter is the common contract of all local-search filters.
//
// Accept reports whether the candidate neighbor described by delta is
// acceptable and its objective bound is at most objectiveMax. Accept must
// not mutate committed state; tentative state is dropped implicitly when the
// next candidate arrives or explicitly via Revert. When the delta contains
// an unbound variable (large-neighborhood search), filters accept
// immediately and contribute a zero objective.
//
// Synchronize commits the given solution; on incremental synchronization the
// delta carries the changed variables.
type Filter interface {
	// Name identifies the filter in logs.
	Name() string
	// Relax is a hint that delta is about to be evaluated; it is legal to
	// no-op.
	Relax(delta *routing.Assignment)
	// Accept decides the candidate neighbor.
	Accept(delta, deltaDelta *routing.Assignment, objectiveMin, objectiveMax int64) bool
	// Synchronize commits the accepted solution.
	Synchronize(assignment, delta *routing.Assignment)
	// Revert drops tentative state of an abandoned candidate.
	Revert()
	// AcceptedObjectiveValue returns the filter's contribution to the last
	// accepted candidate's objective; 0 during LNS.
	AcceptedObjectiveValue() int64
	// SynchronizedObjectiveValue returns the filter's contribution to the
	// committed solution's objective.
	SynchronizedObjectiveValue() int64
}

// BaseFilter provides default no-op implementations of the optional parts
// of Filter; concrete filters embed it and override what they need.
type BaseFilter struct {
	name string
}

// NewBaseFilter returns a BaseFilter with the given name.
func NewBaseFilter(name string) BaseFilter { return BaseFilter{name: name} }

// Name implements Filter.
func (f *BaseFilter) Name() string { return f.name }

// Relax implements Filter as a no-op.
func (f *BaseFilter) Relax(*routing.Assignment) {}

// Revert implements Filter as a no-op.
func (f *BaseFilter) Revert() {}

// AcceptedObjectiveValue implements Filter with a zero contribution.
func (f *BaseFilter) AcceptedObjectiveValue() int64 { return 0 }

// SynchronizedObjectiveValue implements Filter with a zero contribution.
func (f *BaseFilter) SynchronizedObjectiveValue() int64 { return 0 }

var (
	_ Filter = (*BasePathFilter)(nil)
	_ Filter = (*MaxActiveVehiclesFilter)(nil)
	_ Filter = (*ActiveNodeGroupFilter)(nil)
	_ Filter = (*NodeDisjunctionFilter)(nil)
	_ Filter = (*PickupDeliveryFilter)(nil)
	_ Filter = (*VehicleVarFilter)(nil)
	_ Filter = (*RouteConstraintFilter)(nil)
	_ Filter = (*VehicleAmortizedCostFilter)(nil)
	_ Filter = (*TypeRegulationsFilter)(nil)
	_ Filter = (*ChainCumulFilter)(nil)
	_ Filter = (*PathCumulFilter)(nil)
	_ Filter = (*DimensionFilter)(nil)
	_ Filter = (*PathEnergyCostFilter)(nil)
	_ Filter = (*PathStateFilter)(nil)
	_ Filter = (*CumulBoundsPropagatorFilter)(nil)
	_ Filter = (*LPCumulFilter)(nil)
	_ Filter = (*CPFeasibilityFilter)(nil)
)
