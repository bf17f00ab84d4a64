package routing

import (
	"sort"

	"github.com/hupe1980/routefilter/satmath"
)

// Transit evaluates the dimension quantity added when traversing the arc
// (from, to).
type Transit func(from, to int) int64

// UnaryTransit evaluates a transit that only depends on the tail node.
type UnaryTransit func(from int) int64

// SoftBound is a bound whose violation costs Coefficient per unit instead of
// rejecting the solution. A zero coefficient disables the bound.
type SoftBound struct {
	Bound       int64
	Coefficient int64
}

// BoundCost pairs a bound with a violation cost.
type BoundCost struct {
	Bound int64
	Cost  int64
}

// NodePrecedence requires cumul(SecondNode) >= cumul(FirstNode) + Offset
// when both nodes are performed.
type NodePrecedence struct {
	FirstNode  int
	SecondNode int
	Offset     int64
}

// Break is a vehicle interruption with a time window and minimum duration.
type Break struct {
	StartMin        int64
	StartMax        int64
	EndMin          int64
	EndMax          int64
	DurationMin     int64
	MustBePerformed bool
}

// InterbreakLimit bounds the dimension quantity a vehicle may accumulate
// between two breaks of at least MinBreakDuration.
type InterbreakLimit struct {
	MaxInterbreak    int64
	MinBreakDuration int64
}

// Dimension is an additive quantity (time, load, distance) accumulated along
// paths, with per-node cumul intervals, per-arc transits and slacks, and
// per-vehicle capacities and costs.
type Dimension struct {
	name  string
	model *Model

	classEvaluators      []Transit
	classUnaryEvaluators []UnaryTransit
	vehicleClass         []int

	cumuls []Interval
	slacks []Interval

	capacities []int64

	globalSpanCostCoefficient int64
	spanCostCoefficients      []int64
	slackCostCoefficients     []int64
	spanUpperBounds           []int64

	softUpperBounds    []SoftBound
	softLowerBounds    []SoftBound
	hasSoftUpperBounds bool
	hasSoftLowerBounds bool

	piecewiseCosts    []*PiecewiseLinearFunction
	hasPiecewiseCosts bool

	precedences []NodePrecedence

	pairLimits    map[[3]int]int64
	hasPairLimits bool

	forbiddenIntervals [][]Interval

	breaks          [][]Break
	interbreaks     [][]InterbreakLimit
	hasBreaks       bool
	breakConstraint bool

	softSpanUpperBounds          []BoundCost
	quadraticSoftSpanUpperBounds []BoundCost
}

// AddDimension registers a dimension on the model with a single transit
// class shared by all vehicles and a uniform capacity.
func (m *Model) AddDimension(name string, transit Transit, capacity int64) *Dimension {
	d := &Dimension{
		name:            name,
		model:           m,
		classEvaluators: []Transit{transit},
		classUnaryEvaluators: []UnaryTransit{nil},
		vehicleClass:    make([]int, m.numVehicles),
	}
	n := m.NumIndices()
	d.cumuls = make([]Interval, n)
	d.slacks = make([]Interval, n)
	for i := range d.cumuls {
		d.cumuls[i] = Interval{Min: 0, Max: satmath.MaxInt64}
	}
	d.capacities = make([]int64, m.numVehicles)
	for v := range d.capacities {
		d.capacities[v] = capacity
	}
	d.spanCostCoefficients = make([]int64, m.numVehicles)
	d.slackCostCoefficients = make([]int64, m.numVehicles)
	d.spanUpperBounds = make([]int64, m.numVehicles)
	for v := range d.spanUpperBounds {
		d.spanUpperBounds[v] = satmath.MaxInt64
	}
	d.softUpperBounds = make([]SoftBound, n)
	d.softLowerBounds = make([]SoftBound, n)
	d.piecewiseCosts = make([]*PiecewiseLinearFunction, n)
	d.forbiddenIntervals = make([][]Interval, n)
	d.breaks = make([][]Break, m.numVehicles)
	d.interbreaks = make([][]InterbreakLimit, m.numVehicles)
	m.dimensions = append(m.dimensions, d)
	return d
}

// Name returns the dimension name.
func (d *Dimension) Name() string { return d.name }

// Model returns the owning model.
func (d *Dimension) Model() *Model { return d.model }

// SetVehicleTransits replaces the transit evaluators with one evaluator per
// vehicle class and a vehicle-to-class mapping.
func (d *Dimension) SetVehicleTransits(classEvaluators []Transit, vehicleClass []int) {
	d.classEvaluators = classEvaluators
	d.vehicleClass = vehicleClass
	d.classUnaryEvaluators = make([]UnaryTransit, len(classEvaluators))
}

// SetClassUnaryTransit installs an optional unary evaluator for a class.
func (d *Dimension) SetClassUnaryTransit(class int, transit UnaryTransit) {
	d.classUnaryEvaluators[class] = transit
}

// NumClasses returns the number of vehicle classes.
func (d *Dimension) NumClasses() int { return len(d.classEvaluators) }

// VehicleClass returns the class of vehicle.
func (d *Dimension) VehicleClass(vehicle int) int { return d.vehicleClass[vehicle] }

// ClassEvaluator returns the transit evaluator of a class.
func (d *Dimension) ClassEvaluator(class int) Transit { return d.classEvaluators[class] }

// ClassUnaryEvaluator returns the unary evaluator of a class, nil if none.
func (d *Dimension) ClassUnaryEvaluator(class int) UnaryTransit {
	return d.classUnaryEvaluators[class]
}

// TransitEvaluator returns the transit evaluator used by vehicle.
func (d *Dimension) TransitEvaluator(vehicle int) Transit {
	return d.classEvaluators[d.vehicleClass[vehicle]]
}

// SetCumulRange bounds node's cumul to [min, max].
func (d *Dimension) SetCumulRange(node int, min, max int64) {
	d.cumuls[node] = Interval{Min: min, Max: max}
}

// CumulInterval returns node's cumul interval.
func (d *Dimension) CumulInterval(node int) Interval { return d.cumuls[node] }

// SetSlackRange bounds node's slack to [min, max].
func (d *Dimension) SetSlackRange(node int, min, max int64) {
	d.slacks[node] = Interval{Min: min, Max: max}
}

// SlackInterval returns node's slack interval.
func (d *Dimension) SlackInterval(node int) Interval { return d.slacks[node] }

// SetCapacity sets a vehicle's capacity.
func (d *Dimension) SetCapacity(vehicle int, capacity int64) {
	d.capacities[vehicle] = capacity
}

// Capacity returns a vehicle's capacity.
func (d *Dimension) Capacity(vehicle int) int64 { return d.capacities[vehicle] }

// SetGlobalSpanCostCoefficient sets the coefficient G of the global span
// cost G * (maxEnd - minStart).
func (d *Dimension) SetGlobalSpanCostCoefficient(c int64) { d.globalSpanCostCoefficient = c }

// GlobalSpanCostCoefficient returns the global span cost coefficient.
func (d *Dimension) GlobalSpanCostCoefficient() int64 { return d.globalSpanCostCoefficient }

// SetSpanCostCoefficient sets a vehicle's span cost coefficient.
func (d *Dimension) SetSpanCostCoefficient(vehicle int, c int64) {
	d.spanCostCoefficients[vehicle] = c
}

// SpanCostCoefficient returns a vehicle's span cost coefficient.
func (d *Dimension) SpanCostCoefficient(vehicle int) int64 { return d.spanCostCoefficients[vehicle] }

// SpanCostCoefficients returns all vehicles' span cost coefficients.
func (d *Dimension) SpanCostCoefficients() []int64 { return d.spanCostCoefficients }

// SetSlackCostCoefficient sets a vehicle's slack cost coefficient.
func (d *Dimension) SetSlackCostCoefficient(vehicle int, c int64) {
	d.slackCostCoefficients[vehicle] = c
}

// SlackCostCoefficients returns all vehicles' slack cost coefficients.
func (d *Dimension) SlackCostCoefficients() []int64 { return d.slackCostCoefficients }

// SetSpanUpperBound hard-bounds a vehicle's span.
func (d *Dimension) SetSpanUpperBound(vehicle int, bound int64) {
	d.spanUpperBounds[vehicle] = bound
}

// SpanUpperBound returns a vehicle's span upper bound.
func (d *Dimension) SpanUpperBound(vehicle int) int64 { return d.spanUpperBounds[vehicle] }

// SpanUpperBounds returns all vehicles' span upper bounds.
func (d *Dimension) SpanUpperBounds() []int64 { return d.spanUpperBounds }

// SetCumulSoftUpperBound makes exceeding bound at node cost coefficient per
// unit.
func (d *Dimension) SetCumulSoftUpperBound(node int, bound, coefficient int64) {
	d.softUpperBounds[node] = SoftBound{Bound: bound, Coefficient: coefficient}
	d.hasSoftUpperBounds = d.hasSoftUpperBounds || coefficient != 0
}

// CumulSoftUpperBound returns node's soft upper bound.
func (d *Dimension) CumulSoftUpperBound(node int) SoftBound { return d.softUpperBounds[node] }

// HasCumulSoftUpperBounds reports whether any node has a soft upper bound.
func (d *Dimension) HasCumulSoftUpperBounds() bool { return d.hasSoftUpperBounds }

// SetCumulSoftLowerBound makes staying below bound at node cost coefficient
// per unit.
func (d *Dimension) SetCumulSoftLowerBound(node int, bound, coefficient int64) {
	d.softLowerBounds[node] = SoftBound{Bound: bound, Coefficient: coefficient}
	d.hasSoftLowerBounds = d.hasSoftLowerBounds || coefficient != 0
}

// CumulSoftLowerBound returns node's soft lower bound.
func (d *Dimension) CumulSoftLowerBound(node int) SoftBound { return d.softLowerBounds[node] }

// HasCumulSoftLowerBounds reports whether any node has a soft lower bound.
func (d *Dimension) HasCumulSoftLowerBounds() bool { return d.hasSoftLowerBounds }

// SetCumulPiecewiseLinearCost attaches a piecewise-linear cumul cost to node.
func (d *Dimension) SetCumulPiecewiseLinearCost(node int, f *PiecewiseLinearFunction) {
	d.piecewiseCosts[node] = f
	d.hasPiecewiseCosts = d.hasPiecewiseCosts || f != nil
}

// CumulPiecewiseLinearCost returns node's piecewise cost, nil if none.
func (d *Dimension) CumulPiecewiseLinearCost(node int) *PiecewiseLinearFunction {
	return d.piecewiseCosts[node]
}

// HasCumulPiecewiseLinearCosts reports whether any node has a piecewise
// cost.
func (d *Dimension) HasCumulPiecewiseLinearCosts() bool { return d.hasPiecewiseCosts }

// AddNodePrecedence requires cumul(second) >= cumul(first) + offset when
// both are performed.
func (d *Dimension) AddNodePrecedence(first, second int, offset int64) {
	d.precedences = append(d.precedences, NodePrecedence{
		FirstNode:  first,
		SecondNode: second,
		Offset:     offset,
	})
}

// NodePrecedences returns all registered precedences.
func (d *Dimension) NodePrecedences() []NodePrecedence { return d.precedences }

// SetPickupToDeliveryLimit bounds cumul(delivery) - cumul(pickup) for one
// alternative combination of a pair.
func (d *Dimension) SetPickupToDeliveryLimit(pair, pickupAlt, deliveryAlt int, limit int64) {
	if d.pairLimits == nil {
		d.pairLimits = make(map[[3]int]int64)
	}
	d.pairLimits[[3]int{pair, pickupAlt, deliveryAlt}] = limit
	d.hasPairLimits = true
}

// HasPickupToDeliveryLimits reports whether any pair limit is set.
func (d *Dimension) HasPickupToDeliveryLimits() bool { return d.hasPairLimits }

// PickupToDeliveryLimit returns the limit for one alternative combination,
// unlimited when unset.
func (d *Dimension) PickupToDeliveryLimit(pair, pickupAlt, deliveryAlt int) int64 {
	if limit, ok := d.pairLimits[[3]int{pair, pickupAlt, deliveryAlt}]; ok {
		return limit
	}
	return satmath.MaxInt64
}

// AddForbiddenInterval forbids node's cumul from taking values in
// [min, max]. Intervals are kept sorted by Min.
func (d *Dimension) AddForbiddenInterval(node int, min, max int64) {
	intervals := append(d.forbiddenIntervals[node], Interval{Min: min, Max: max})
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Min < intervals[j].Min })
	d.forbiddenIntervals[node] = intervals
}

// HasForbiddenIntervals reports whether any node has forbidden intervals.
func (d *Dimension) HasForbiddenIntervals() bool {
	for _, intervals := range d.forbiddenIntervals {
		if len(intervals) > 0 {
			return true
		}
	}
	return false
}

// FirstPossibleGreaterOrEqual returns the smallest value >= v that is not
// inside a forbidden interval of node.
func (d *Dimension) FirstPossibleGreaterOrEqual(node int, v int64) int64 {
	for _, interval := range d.forbiddenIntervals[node] {
		if v < interval.Min {
			return v
		}
		if v <= interval.Max {
			v = satmath.Add(interval.Max, 1)
		}
	}
	return v
}

// LastPossibleLessOrEqual returns the largest value <= v that is not inside
// a forbidden interval of node.
func (d *Dimension) LastPossibleLessOrEqual(node int, v int64) int64 {
	intervals := d.forbiddenIntervals[node]
	for i := len(intervals) - 1; i >= 0; i-- {
		if v > intervals[i].Max {
			return v
		}
		if v >= intervals[i].Min {
			v = satmath.Sub(intervals[i].Min, 1)
		}
	}
	return v
}

// AddBreak attaches a break to vehicle.
func (d *Dimension) AddBreak(vehicle int, br Break) {
	d.breaks[vehicle] = append(d.breaks[vehicle], br)
	d.hasBreaks = true
	d.breakConstraint = true
}

// AddInterbreakLimit attaches an interbreak limit to vehicle.
func (d *Dimension) AddInterbreakLimit(vehicle int, limit InterbreakLimit) {
	d.interbreaks[vehicle] = append(d.interbreaks[vehicle], limit)
	d.breakConstraint = true
}

// HasBreakConstraints reports whether any vehicle has breaks or interbreak
// limits.
func (d *Dimension) HasBreakConstraints() bool { return d.breakConstraint }

// BreaksOfVehicle returns a vehicle's breaks.
func (d *Dimension) BreaksOfVehicle(vehicle int) []Break { return d.breaks[vehicle] }

// InterbreakLimitsOfVehicle returns a vehicle's interbreak limits.
func (d *Dimension) InterbreakLimitsOfVehicle(vehicle int) []InterbreakLimit {
	return d.interbreaks[vehicle]
}

// SetSoftSpanUpperBound attaches a linear soft span bound to vehicle.
func (d *Dimension) SetSoftSpanUpperBound(vehicle int, bc BoundCost) {
	if d.softSpanUpperBounds == nil {
		d.softSpanUpperBounds = make([]BoundCost, d.model.numVehicles)
		for v := range d.softSpanUpperBounds {
			d.softSpanUpperBounds[v] = BoundCost{Bound: satmath.MaxInt64}
		}
	}
	d.softSpanUpperBounds[vehicle] = bc
}

// HasSoftSpanUpperBounds reports whether any vehicle has a soft span bound.
func (d *Dimension) HasSoftSpanUpperBounds() bool { return d.softSpanUpperBounds != nil }

// SoftSpanUpperBound returns a vehicle's soft span bound.
func (d *Dimension) SoftSpanUpperBound(vehicle int) BoundCost {
	return d.softSpanUpperBounds[vehicle]
}

// SetQuadraticCostSoftSpanUpperBound attaches a quadratic soft span bound to
// vehicle.
func (d *Dimension) SetQuadraticCostSoftSpanUpperBound(vehicle int, bc BoundCost) {
	if d.quadraticSoftSpanUpperBounds == nil {
		d.quadraticSoftSpanUpperBounds = make([]BoundCost, d.model.numVehicles)
		for v := range d.quadraticSoftSpanUpperBounds {
			d.quadraticSoftSpanUpperBounds[v] = BoundCost{Bound: satmath.MaxInt64}
		}
	}
	d.quadraticSoftSpanUpperBounds[vehicle] = bc
}

// HasQuadraticCostSoftSpanUpperBounds reports whether any vehicle has a
// quadratic soft span bound.
func (d *Dimension) HasQuadraticCostSoftSpanUpperBounds() bool {
	return d.quadraticSoftSpanUpperBounds != nil
}

// QuadraticCostSoftSpanUpperBound returns a vehicle's quadratic soft span
// bound.
func (d *Dimension) QuadraticCostSoftSpanUpperBound(vehicle int) BoundCost {
	return d.quadraticSoftSpanUpperBounds[vehicle]
}
