package routefilter

import (
	"github.com/hupe1980/routefilter/pathstate"
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
	"github.com/hupe1980/routefilter/sched"
)

// DimensionHasCumulCost reports whether any cumul-related cost is attached
// to the dimension.
func DimensionHasCumulCost(dimension *routing.Dimension) bool {
	if dimension.GlobalSpanCostCoefficient() != 0 {
		return true
	}
	if dimension.HasSoftSpanUpperBounds() || dimension.HasQuadraticCostSoftSpanUpperBounds() {
		return true
	}
	for _, coefficient := range dimension.SpanCostCoefficients() {
		if coefficient != 0 {
			return true
		}
	}
	for _, coefficient := range dimension.SlackCostCoefficients() {
		if coefficient != 0 {
			return true
		}
	}
	return dimension.HasCumulSoftUpperBounds() || dimension.HasCumulSoftLowerBounds() ||
		dimension.HasCumulPiecewiseLinearCosts()
}

// DimensionHasPathCumulConstraint reports whether any per-path cumul
// constraint is attached to the dimension.
func DimensionHasPathCumulConstraint(dimension *routing.Dimension) bool {
	if dimension.HasBreakConstraints() || dimension.HasPickupToDeliveryLimits() {
		return true
	}
	for _, bound := range dimension.SpanUpperBounds() {
		if bound != satmath.MaxInt64 {
			return true
		}
	}
	model := dimension.Model()
	for i := 0; i < model.NumIndices(); i++ {
		if dimension.SlackInterval(i).Min > 0 {
			return true
		}
		cumul := dimension.CumulInterval(i)
		if cumul.Min > 0 && cumul.Max < satmath.MaxInt64 && !model.IsEnd(i) {
			return true
		}
	}
	return dimension.HasForbiddenIntervals()
}

// AppendLightWeightDimensionFilters appends one DimensionChecker-backed
// filter per dimension, all reading the shared path state.
func AppendLightWeightDimensionFilters(state *pathstate.PathState, dimensions []*routing.Dimension, events []FilterEvent) []FilterEvent {
	for _, dimension := range dimensions {
		model := dimension.Model()
		numVehicles := model.NumVehicles()
		pathCapacity := make([]routing.Interval, numVehicles)
		pathClass := make([]int, numVehicles)
		for v := 0; v < numVehicles; v++ {
			pathCapacity[v] = routing.Interval{Min: 0, Max: dimension.Capacity(v)}
			pathClass[v] = dimension.VehicleClass(v)
		}
		// One demand evaluator per vehicle class; ends have no slack, so
		// transits out of them are zero.
		numSlacks := model.Size()
		demands := make([]DemandEvaluator, dimension.NumClasses())
		for class := 0; class < dimension.NumClasses(); class++ {
			if unary := dimension.ClassUnaryEvaluator(class); unary != nil {
				demands[class] = func(from, _ int) routing.Interval {
					if from >= numSlacks {
						return routing.Interval{}
					}
					minTransit := unary(from)
					return routing.Interval{
						Min: minTransit,
						Max: satmath.Add(minTransit, dimension.SlackInterval(from).Max),
					}
				}
				continue
			}
			evaluator := dimension.ClassEvaluator(class)
			demands[class] = func(from, to int) routing.Interval {
				if from >= numSlacks {
					return routing.Interval{}
				}
				minTransit := evaluator(from, to)
				return routing.Interval{
					Min: minTransit,
					Max: satmath.Add(minTransit, dimension.SlackInterval(from).Max),
				}
			}
		}
		nodeCapacity := make([]routing.Interval, model.NumIndices())
		for node := range nodeCapacity {
			nodeCapacity[node] = dimension.CumulInterval(node)
		}
		checker := NewDimensionChecker(state, pathCapacity, pathClass, demands, nodeCapacity,
			DefaultMinRangeSizeForRIQ)
		events = append(events, FilterEvent{
			Filter:   NewDimensionFilter(checker, dimension.Name()),
			Priority: PriorityLightweight,
		})
	}
	return events
}

// DimensionFilterConfig selects the cumul filters built for each dimension.
type DimensionFilterConfig struct {
	// FilterObjectiveCost makes cost-bearing filters compare against the
	// objective bound.
	FilterObjectiveCost bool
	// UseChainCumulFilter installs ChainCumulFilter for dimensions without
	// cumul costs or constraints.
	UseChainCumulFilter bool
	// DisableScheduling turns all LP/MIP optimizers off, forcing priority
	// 0/1 path filters only.
	DisableScheduling bool

	// LPOptimizer and MPOptimizer provide per-route optimizers of a
	// dimension; nil entries disable refinement.
	LPOptimizer func(*routing.Dimension) sched.RouteOptimizer
	MPOptimizer func(*routing.Dimension) sched.RouteOptimizer
	// GlobalLPOptimizer and GlobalMPOptimizer provide all-routes optimizers
	// of a dimension.
	GlobalLPOptimizer func(*routing.Dimension) sched.GlobalOptimizer
	GlobalMPOptimizer func(*routing.Dimension) sched.GlobalOptimizer
	// BoundsPropagator provides a dimension's cumul-bounds propagation.
	BoundsPropagator func(*routing.Dimension) CumulBoundsPropagator
}

func (c *DimensionFilterConfig) routeOptimizers(dimension *routing.Dimension) (lp, mp sched.RouteOptimizer) {
	if c.DisableScheduling {
		return nil, nil
	}
	if c.LPOptimizer != nil {
		lp = c.LPOptimizer(dimension)
	}
	if c.MPOptimizer != nil {
		mp = c.MPOptimizer(dimension)
	}
	return lp, mp
}

// AppendDimensionCumulFilters appends the cumul filters of every dimension.
// Filter priority grows with filtering complexity: dimensions without
// cumul costs or constraints get a ChainCumulFilter (priority 0); with
// costs or constraints a PathCumulFilter (priority 0, or 1 when it embeds an
// optimizer); precedences get a bounds propagator (priority 2) unless a
// global LP filter (priority 4) subsumes them.
func AppendDimensionCumulFilters(dimensions []*routing.Dimension, config DimensionFilterConfig, events []FilterEvent) ([]FilterEvent, error) {
	hasDimensionOptimizers := !config.DisableScheduling &&
		config.LPOptimizer != nil && config.MPOptimizer != nil
	for _, dimension := range dimensions {
		model := dimension.Model()
		hasCumulCost := DimensionHasCumulCost(dimension)
		usePathCumulFilter := hasCumulCost || DimensionHasPathCumulConstraint(dimension)

		canUseCumulBoundsPropagator := !dimension.HasBreakConstraints() &&
			(!config.FilterObjectiveCost || !hasCumulCost)
		hasPrecedences := len(dimension.NodePrecedences()) > 0
		useGlobalLP := hasDimensionOptimizers &&
			config.GlobalLPOptimizer != nil && config.GlobalMPOptimizer != nil &&
			((hasPrecedences && !canUseCumulBoundsPropagator) ||
				(config.FilterObjectiveCost && dimension.GlobalSpanCostCoefficient() > 0))
		useCumulBoundsPropagator := hasPrecedences && !useGlobalLP

		if usePathCumulFilter {
			lp, mp := config.routeOptimizers(dimension)
			// The per-path filter is always installed to cut bad decisions
			// early; its cost is not propagated when the global LP filter
			// already propagates it.
			filter := NewPathCumulFilter(model, dimension, func(o *PathCumulFilterOptions) {
				o.PropagateOwnObjectiveValue = !useGlobalLP
				o.FilterObjectiveCost = config.FilterObjectiveCost
				o.MayUseOptimizers = hasDimensionOptimizers
				o.LPOptimizer = lp
				o.MPOptimizer = mp
			})
			priority := PriorityLightweight
			if filter.UsesDimensionOptimizers() {
				priority = PriorityPathCumulWithOptimizer
			}
			events = append(events, FilterEvent{Filter: filter, Priority: priority})
		} else if config.UseChainCumulFilter {
			events = append(events, FilterEvent{
				Filter:   NewChainCumulFilter(model, dimension),
				Priority: PriorityLightweight,
			})
		}

		if useCumulBoundsPropagator {
			if config.BoundsPropagator == nil {
				return nil, &ErrMissingPropagator{Dimension: dimension.Name()}
			}
			events = append(events, FilterEvent{
				Filter: NewCumulBoundsPropagatorFilter(model, dimension.Name(),
					config.BoundsPropagator(dimension), 0),
				Priority: PriorityCumulBoundsPropagator,
			})
		}

		if useGlobalLP {
			lp := config.GlobalLPOptimizer(dimension)
			mp := config.GlobalMPOptimizer(dimension)
			if lp == nil || mp == nil {
				return nil, ErrMissingOptimizer
			}
			events = append(events, FilterEvent{
				Filter: NewLPCumulFilter(model, dimension.Name(), lp, mp,
					config.FilterObjectiveCost),
				Priority: PriorityGlobalLP,
			})
		}
	}
	return events, nil
}
