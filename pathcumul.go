package routefilter

import (
	"context"

	"github.com/hupe1980/routefilter/revertible"
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
	"github.com/hupe1980/routefilter/sched"
)

// pathTransits caches node sequences and transit values of paths. Nodes are
// pushed in path order.
type pathTransits struct {
	// paths[r][i] is the ith node on path r; transits[r][i] is the transit
	// between nodes i and i+1 of path r.
	paths    [][]int
	transits [][]int64
}

func (p *pathTransits) Clear() {
	p.paths = p.paths[:0]
	p.transits = p.transits[:0]
}

func (p *pathTransits) ClearPath(path int) {
	p.paths[path] = p.paths[path][:0]
	p.transits[path] = p.transits[path][:0]
}

func (p *pathTransits) AddPaths(numPaths int) int {
	firstPath := len(p.paths)
	for i := 0; i < numPaths; i++ {
		p.paths = append(p.paths, nil)
		p.transits = append(p.transits, nil)
	}
	return firstPath
}

func (p *pathTransits) PushTransit(path, node, next int, transit int64) {
	p.transits[path] = append(p.transits[path], transit)
	if len(p.paths[path]) == 0 {
		p.paths[path] = append(p.paths[path], node)
	}
	p.paths[path] = append(p.paths[path], next)
}

func (p *pathTransits) NumPaths() int { return len(p.paths) }

func (p *pathTransits) PathSize(path int) int { return len(p.paths[path]) }

func (p *pathTransits) Node(path, position int) int { return p.paths[path][position] }

func (p *pathTransits) Transit(path, position int) int64 { return p.transits[path][position] }

// supportedPathCumul stores the best path cumul value of a solution, the
// path supporting it, and the per-path values.
type supportedPathCumul struct {
	cumulValue        int64
	cumulValueSupport int
	pathValues        []int64
}

// PathCumulFilterOptions configures a PathCumulFilter.
type PathCumulFilterOptions struct {
	// PropagateOwnObjectiveValue exposes the filter's cost through the
	// objective accessors; disable it when a global LP filter already
	// propagates the dimension cost.
	PropagateOwnObjectiveValue bool
	// FilterObjectiveCost compares computed costs against the objective
	// bound; without it only feasibility is filtered.
	FilterObjectiveCost bool
	// MayUseOptimizers allows LP/MIP refinement when optimizers are set.
	MayUseOptimizers bool
	// LPOptimizer and MPOptimizer refine route costs; both must be set for
	// refinement to run.
	LPOptimizer sched.RouteOptimizer
	MPOptimizer sched.RouteOptimizer
	// SweepParallelism bounds the synchronize-time optimizer sweep; zero
	// means unbounded.
	SweepParallelism int
}

// PathCumulFilter incrementally filters a cumul dimension: hard cumul and
// capacity bounds, span and slack costs, soft and piecewise cumul costs,
// break-induced slack lower bounds, pickup-to-delivery limits, node
// precedences and the global span cost, with optional LP/MIP refinement.
type PathCumulFilter struct {
	*BasePathFilter
	NoopPathHooks

	dimension *routing.Dimension

	vehicleSpanUpperBounds     []int64
	hasVehicleSpanUpperBounds  bool
	totalCurrentCumulCostValue int64
	synchronizedObjectiveValue int64
	acceptedObjectiveValue     int64
	// currentCumulCostValues maps path starts to the committed path cost.
	currentCumulCostValues   map[int]int64
	cumulCostDelta           int64
	deltaPathCumulCostValues []int64
	globalSpanCostCoefficient int64

	vehicleTotalSlackCostCoefficients          []int64
	hasNonzeroVehicleTotalSlackCostCoefficients bool

	nodeIndexToPrecedences [][]routing.NodePrecedence

	currentMinStart         supportedPathCumul
	currentMaxEnd           supportedPathCumul
	currentPathTransits     pathTransits
	currentMinMaxNodeCumuls [][2]int64

	deltaPathTransits pathTransits
	deltaMaxEndCumul  int64
	deltaNodesWithPrecedencesAndChangedCumul *revertible.SparseBitset
	nodeWithPrecedenceToDeltaMinMaxCumuls    map[int][2]int64
	deltaPaths                               map[int]struct{}

	lpOptimizer sched.RouteOptimizer
	mpOptimizer sched.RouteOptimizer

	filterObjectiveCost        bool
	mayUseOptimizers           bool
	propagateOwnObjectiveValue bool
	sweepParallelism           int

	minPathCumuls []int64
	ctx           context.Context
}

// NewPathCumulFilter returns a filter for dimension on model.
func NewPathCumulFilter(model *routing.Model, dimension *routing.Dimension, optFns ...func(*PathCumulFilterOptions)) *PathCumulFilter {
	opts := PathCumulFilterOptions{
		PropagateOwnObjectiveValue: true,
		FilterObjectiveCost:        true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	f := &PathCumulFilter{
		dimension:                 dimension,
		currentCumulCostValues:    make(map[int]int64),
		deltaPathCumulCostValues:  make([]int64, model.NumVehicles()),
		globalSpanCostCoefficient: dimension.GlobalSpanCostCoefficient(),
		deltaNodesWithPrecedencesAndChangedCumul: revertible.NewSparseBitset(model.Size()),
		nodeWithPrecedenceToDeltaMinMaxCumuls:    make(map[int][2]int64),
		deltaPaths:                               make(map[int]struct{}),
		lpOptimizer:                              opts.LPOptimizer,
		mpOptimizer:                              opts.MPOptimizer,
		filterObjectiveCost:                      opts.FilterObjectiveCost,
		mayUseOptimizers:                         opts.MayUseOptimizers,
		propagateOwnObjectiveValue:               opts.PropagateOwnObjectiveValue,
		sweepParallelism:                         opts.SweepParallelism,
		ctx:                                      context.Background(),
	}
	for v := range f.deltaPathCumulCostValues {
		f.deltaPathCumulCostValues[v] = satmath.MinInt64
	}

	f.vehicleSpanUpperBounds = dimension.SpanUpperBounds()
	for _, bound := range f.vehicleSpanUpperBounds {
		if bound != satmath.MaxInt64 {
			f.hasVehicleSpanUpperBounds = true
			break
		}
	}

	f.vehicleTotalSlackCostCoefficients = make([]int64, model.NumVehicles())
	for v := range f.vehicleTotalSlackCostCoefficients {
		total := satmath.Add(dimension.SpanCostCoefficients()[v], dimension.SlackCostCoefficients()[v])
		f.vehicleTotalSlackCostCoefficients[v] = total
		if total != 0 {
			f.hasNonzeroVehicleTotalSlackCostCoefficients = true
		}
	}
	// Without hard cumul bounds, slacks are unconstrained and span/slack
	// costs reduce to transit costs, which arc cost filters already track.
	// The global span filter is unaffected.
	hasCumulHardBounds := false
	for i := 0; i < model.NumIndices(); i++ {
		if dimension.SlackInterval(i).Min > 0 {
			hasCumulHardBounds = true
			break
		}
		cumul := dimension.CumulInterval(i)
		if cumul.Min > 0 || cumul.Max < satmath.MaxInt64 {
			hasCumulHardBounds = true
			break
		}
	}
	if !hasCumulHardBounds {
		for v := range f.vehicleTotalSlackCostCoefficients {
			f.vehicleTotalSlackCostCoefficients[v] = 0
		}
		f.hasNonzeroVehicleTotalSlackCostCoefficients = false
	}

	if precedences := dimension.NodePrecedences(); len(precedences) > 0 {
		f.nodeIndexToPrecedences = make([][]routing.NodePrecedence, model.NumIndices())
		for _, precedence := range precedences {
			f.nodeIndexToPrecedences[precedence.FirstNode] =
				append(f.nodeIndexToPrecedences[precedence.FirstNode], precedence)
			f.nodeIndexToPrecedences[precedence.SecondNode] =
				append(f.nodeIndexToPrecedences[precedence.SecondNode], precedence)
		}
		f.currentMinMaxNodeCumuls = make([][2]int64, model.NumIndices())
		for i := range f.currentMinMaxNodeCumuls {
			f.currentMinMaxNodeCumuls[i] = [2]int64{-1, -1}
		}
	}

	f.BasePathFilter = NewBasePathFilter("PathCumulFilter("+dimension.Name()+")", model, f)
	return f
}

// SynchronizedObjectiveValue implements Filter.
func (f *PathCumulFilter) SynchronizedObjectiveValue() int64 {
	if !f.propagateOwnObjectiveValue {
		return 0
	}
	return f.synchronizedObjectiveValue
}

// AcceptedObjectiveValue implements Filter.
func (f *PathCumulFilter) AcceptedObjectiveValue() int64 {
	if f.LNSDetected() || !f.propagateOwnObjectiveValue {
		return 0
	}
	return f.acceptedObjectiveValue
}

// UsesDimensionOptimizers reports whether any vehicle's filtering involves
// the LP/MIP optimizers.
func (f *PathCumulFilter) UsesDimensionOptimizers() bool {
	if !f.mayUseOptimizers {
		return false
	}
	for vehicle := 0; vehicle < f.Model().NumVehicles(); vehicle++ {
		if f.filterWithOptimizerForVehicle(vehicle) {
			return true
		}
	}
	return false
}

func (f *PathCumulFilter) filterSpanCost() bool { return f.globalSpanCostCoefficient != 0 }

func (f *PathCumulFilter) filterSlackCost() bool {
	return f.hasNonzeroVehicleTotalSlackCostCoefficients || f.hasVehicleSpanUpperBounds
}

func (f *PathCumulFilter) filterBreakCost(vehicle int) bool {
	return f.dimension.HasBreakConstraints() &&
		(len(f.dimension.BreaksOfVehicle(vehicle)) > 0 ||
			len(f.dimension.InterbreakLimitsOfVehicle(vehicle)) > 0)
}

func (f *PathCumulFilter) filterCumulSoftBounds() bool {
	return f.dimension.HasCumulSoftUpperBounds()
}

func (f *PathCumulFilter) filterCumulSoftLowerBounds() bool {
	return f.dimension.HasCumulSoftLowerBounds()
}

func (f *PathCumulFilter) filterCumulPiecewiseLinearCosts() bool {
	return f.dimension.HasCumulPiecewiseLinearCosts()
}

func (f *PathCumulFilter) filterPrecedences() bool { return f.nodeIndexToPrecedences != nil }

func (f *PathCumulFilter) filterSoftSpanCost() bool { return f.dimension.HasSoftSpanUpperBounds() }

func (f *PathCumulFilter) filterSoftSpanCostOfVehicle(vehicle int) bool {
	return f.dimension.HasSoftSpanUpperBounds() &&
		f.dimension.SoftSpanUpperBound(vehicle).Cost > 0
}

func (f *PathCumulFilter) filterSoftSpanQuadraticCost() bool {
	return f.dimension.HasQuadraticCostSoftSpanUpperBounds()
}

func (f *PathCumulFilter) filterSoftSpanQuadraticCostOfVehicle(vehicle int) bool {
	return f.dimension.HasQuadraticCostSoftSpanUpperBounds() &&
		f.dimension.QuadraticCostSoftSpanUpperBound(vehicle).Cost > 0
}

// filterWithOptimizerForVehicle decides whether the LP/MIP optimizer should
// refine this vehicle's cost: it takes at least two interacting linear
// constraints to beat the hand-rolled bound, and without breaks the
// optimizer only pays off when costs actually filter.
func (f *PathCumulFilter) filterWithOptimizerForVehicle(vehicle int) bool {
	if !f.mayUseOptimizers || f.lpOptimizer == nil || f.mpOptimizer == nil ||
		f.filterCumulPiecewiseLinearCosts() {
		return false
	}
	numLinearConstraints := 0
	if f.dimension.SpanCostCoefficients()[vehicle] > 0 ||
		f.dimension.SlackCostCoefficients()[vehicle] > 0 {
		numLinearConstraints++
	}
	if f.filterSoftSpanCostOfVehicle(vehicle) {
		numLinearConstraints++
	}
	if f.filterCumulSoftLowerBounds() {
		numLinearConstraints++
	}
	if f.filterCumulSoftBounds() {
		numLinearConstraints++
	}
	if f.vehicleSpanUpperBounds[vehicle] < satmath.MaxInt64 {
		numLinearConstraints++
	}
	hasBreaks := f.filterBreakCost(vehicle)
	if hasBreaks {
		numLinearConstraints++
	}
	return numLinearConstraints >= 2 && (hasBreaks || f.filterObjectiveCost)
}

func (f *PathCumulFilter) cumulSoftCost(node int, cumul int64) int64 {
	if !f.filterCumulSoftBounds() {
		return 0
	}
	bound := f.dimension.CumulSoftUpperBound(node)
	if bound.Coefficient > 0 && bound.Bound < cumul {
		return satmath.Mul(satmath.Sub(cumul, bound.Bound), bound.Coefficient)
	}
	return 0
}

func (f *PathCumulFilter) cumulPiecewiseLinearCost(node int, cumul int64) int64 {
	if !f.filterCumulPiecewiseLinearCosts() {
		return 0
	}
	if cost := f.dimension.CumulPiecewiseLinearCost(node); cost != nil {
		return cost.Value(cumul)
	}
	return 0
}

func (f *PathCumulFilter) cumulSoftLowerBoundCost(node int, cumul int64) int64 {
	if !f.filterCumulSoftLowerBounds() {
		return 0
	}
	bound := f.dimension.CumulSoftLowerBound(node)
	if bound.Coefficient > 0 && bound.Bound > cumul {
		return satmath.Mul(satmath.Sub(bound.Bound, cumul), bound.Coefficient)
	}
	return 0
}

// pathCumulSoftLowerBoundCost walks backwards from the path end with the
// maximum cumul, accumulating soft lower bound costs.
func (f *PathCumulFilter) pathCumulSoftLowerBoundCost(transits *pathTransits, path int) int64 {
	node := transits.Node(path, transits.PathSize(path)-1)
	cumul := f.dimension.CumulInterval(node).Max
	cost := f.cumulSoftLowerBoundCost(node, cumul)
	for i := transits.PathSize(path) - 2; i >= 0; i-- {
		node = transits.Node(path, i)
		cumul = satmath.Sub(cumul, transits.Transit(path, i))
		cumul = min(f.dimension.CumulInterval(node).Max, cumul)
		satmath.AddTo(f.cumulSoftLowerBoundCost(node, cumul), &cost)
	}
	return cost
}

func (f *PathCumulFilter) initializeSupportedPathCumul(supported *supportedPathCumul, defaultValue int64) {
	supported.cumulValue = defaultValue
	supported.cumulValueSupport = -1
	supported.pathValues = supported.pathValues[:0]
	for i := 0; i < f.NumPaths(); i++ {
		supported.pathValues = append(supported.pathValues, defaultValue)
	}
}

func (f *PathCumulFilter) filtersAnyCumulData() bool {
	return f.filterSpanCost() || f.filterCumulSoftBounds() || f.filterSlackCost() ||
		f.filterCumulSoftLowerBounds() || f.filterCumulPiecewiseLinearCosts() ||
		f.filterPrecedences() || f.filterSoftSpanCost() || f.filterSoftSpanQuadraticCost()
}

// OnBeforeSynchronizePaths implements PathFilterHooks: it recomputes the
// committed per-path costs, min/max cumuls and the supported global span.
func (f *PathCumulFilter) OnBeforeSynchronizePaths() {
	f.totalCurrentCumulCostValue = 0
	f.cumulCostDelta = 0
	clear(f.currentCumulCostValues)
	if f.HasAnySyncedPath() && f.filtersAnyCumulData() {
		f.initializeSupportedPathCumul(&f.currentMinStart, satmath.MaxInt64)
		f.initializeSupportedPathCumul(&f.currentMaxEnd, satmath.MinInt64)
		f.currentPathTransits.Clear()
		f.currentPathTransits.AddPaths(f.NumPaths())
		var optimizerVehicles []int
		// For each path, compute the minimum end cumul and keep the max.
		for r := 0; r < f.NumPaths(); r++ {
			if !f.IsVarSynced(f.Start(r)) {
				continue
			}
			vehicle := r
			evaluator := f.dimension.TransitEvaluator(vehicle)
			node := f.Start(r)
			cumul := f.dimension.CumulInterval(node).Min
			f.minPathCumuls = f.minPathCumuls[:0]
			f.minPathCumuls = append(f.minPathCumuls, cumul)

			cost := satmath.Add(f.cumulSoftCost(node, cumul), f.cumulPiecewiseLinearCost(node, cumul))

			var totalTransit int64
			numRouteArcs := 0
			for node < f.Size() {
				next := f.Value(node)
				numRouteArcs++
				transit := evaluator(node, next)
				satmath.AddTo(transit, &totalTransit)
				transitSlack := satmath.Add(transit, f.dimension.SlackInterval(node).Min)
				f.currentPathTransits.PushTransit(r, node, next, transitSlack)
				satmath.AddTo(transitSlack, &cumul)
				cumul = f.dimension.FirstPossibleGreaterOrEqual(next, cumul)
				cumul = max(f.dimension.CumulInterval(next).Min, cumul)
				f.minPathCumuls = append(f.minPathCumuls, cumul)
				node = next
				satmath.AddTo(f.cumulSoftCost(node, cumul), &cost)
				satmath.AddTo(f.cumulPiecewiseLinearCost(node, cumul), &cost)
			}
			if f.filterPrecedences() {
				f.storeMinMaxCumulOfNodesOnPath(r, f.minPathCumuls, false)
			}
			if numRouteArcs == 1 && !f.Model().IsVehicleUsedWhenEmpty(vehicle) {
				// Empty route (single start->end arc), not costed.
				f.currentCumulCostValues[f.Start(r)] = 0
				f.currentPathTransits.ClearPath(r)
				continue
			}
			if f.filterSlackCost() || f.filterSoftSpanCost() || f.filterSoftSpanQuadraticCost() {
				start := f.computePathMaxStartFromEndCumul(&f.currentPathTransits, r, f.Start(r), cumul)
				spanLowerBound := satmath.Sub(cumul, start)
				if f.filterSlackCost() {
					satmath.AddTo(
						satmath.Mul(f.vehicleTotalSlackCostCoefficients[vehicle],
							satmath.Sub(spanLowerBound, totalTransit)),
						&cost)
				}
				if f.filterSoftSpanCost() {
					boundCost := f.dimension.SoftSpanUpperBound(vehicle)
					if boundCost.Bound < spanLowerBound {
						violation := satmath.Sub(spanLowerBound, boundCost.Bound)
						satmath.AddTo(satmath.Mul(boundCost.Cost, violation), &cost)
					}
				}
				if f.filterSoftSpanQuadraticCost() {
					boundCost := f.dimension.QuadraticCostSoftSpanUpperBound(vehicle)
					if boundCost.Bound < spanLowerBound {
						violation := satmath.Sub(spanLowerBound, boundCost.Bound)
						satmath.AddTo(satmath.Mul(boundCost.Cost, satmath.Mul(violation, violation)), &cost)
					}
				}
			}
			if f.filterCumulSoftLowerBounds() {
				satmath.AddTo(f.pathCumulSoftLowerBoundCost(&f.currentPathTransits, r), &cost)
			}
			if f.filterWithOptimizerForVehicle(vehicle) {
				optimizerVehicles = append(optimizerVehicles, vehicle)
			}
			f.currentCumulCostValues[f.Start(r)] = cost
			f.currentMaxEnd.pathValues[r] = cumul
			if f.currentMaxEnd.cumulValue < cumul {
				f.currentMaxEnd.cumulValue = cumul
				f.currentMaxEnd.cumulValueSupport = r
			}
		}
		f.refineSynchronizedCostsWithOptimizers(optimizerVehicles)
		for _, cost := range f.currentCumulCostValues {
			satmath.AddTo(cost, &f.totalCurrentCumulCostValue)
		}
		if f.filterPrecedences() {
			// Reset min/max cumuls of newly unperformed nodes.
			for _, node := range f.NewSynchronizedUnperformedNodes() {
				f.currentMinMaxNodeCumuls[node] = [2]int64{-1, -1}
			}
		}
		// From the max of path end cumul mins, compute each path's maximum
		// start cumul and keep the min.
		for r := 0; r < f.NumPaths(); r++ {
			if !f.IsVarSynced(f.Start(r)) {
				continue
			}
			start := f.computePathMaxStartFromEndCumul(&f.currentPathTransits, r, f.Start(r),
				f.currentMaxEnd.cumulValue)
			f.currentMinStart.pathValues[r] = start
			if f.currentMinStart.cumulValue > start {
				f.currentMinStart.cumulValue = start
				f.currentMinStart.cumulValueSupport = r
			}
		}
	}
	f.deltaMaxEndCumul = satmath.MinInt64
	f.synchronizedObjectiveValue = satmath.Add(f.totalCurrentCumulCostValue,
		satmath.Mul(f.globalSpanCostCoefficient,
			satmath.Sub(f.currentMaxEnd.cumulValue, f.currentMinStart.cumulValue)))
}

// refineSynchronizedCostsWithOptimizers sweeps the LP optimizer over the
// given vehicles with bounded parallelism, escalating to the MIP optimizer
// for relaxed results, breaks and quadratic span costs, and keeps the max of
// the walked and optimized costs per path.
func (f *PathCumulFilter) refineSynchronizedCostsWithOptimizers(vehicles []int) {
	if len(vehicles) == 0 {
		return
	}
	next := func(node int) int { return f.Value(node) }
	var lpVehicles, mpVehicles []int
	for _, vehicle := range vehicles {
		if f.filterSoftSpanQuadraticCostOfVehicle(vehicle) || f.filterBreakCost(vehicle) {
			mpVehicles = append(mpVehicles, vehicle)
		} else {
			lpVehicles = append(lpVehicles, vehicle)
		}
	}
	merge := func(vehicle int, cost int64, status sched.Status) {
		if status == sched.StatusInfeasible {
			// Only admissible on LP timeout; the committed cost stays.
			return
		}
		start := f.Start(vehicle)
		if cost > f.currentCumulCostValues[start] {
			f.currentCumulCostValues[start] = cost
		}
	}
	results := sched.SweepRouteCosts(f.ctx, f.lpOptimizer, lpVehicles, next, f.sweepParallelism)
	for _, result := range results {
		if result.Status == sched.StatusRelaxedOptimalOnly {
			mpVehicles = append(mpVehicles, result.Vehicle)
			continue
		}
		if f.filterObjectiveCost {
			merge(result.Vehicle, result.Cost, result.Status)
		}
	}
	results = sched.SweepRouteCosts(f.ctx, f.mpOptimizer, mpVehicles, next, f.sweepParallelism)
	for _, result := range results {
		if f.filterObjectiveCost {
			merge(result.Vehicle, result.Cost, result.Status)
		}
	}
}

// InitializeAcceptPath implements PathFilterHooks.
func (f *PathCumulFilter) InitializeAcceptPath() bool {
	f.cumulCostDelta = f.totalCurrentCumulCostValue
	clear(f.nodeWithPrecedenceToDeltaMinMaxCumuls)
	f.deltaMaxEndCumul = satmath.MinInt64
	clear(f.deltaPaths)
	f.deltaPathTransits.Clear()
	f.deltaNodesWithPrecedencesAndChangedCumul.ClearAll()
	return true
}

// AcceptPath implements PathFilterHooks.
func (f *PathCumulFilter) AcceptPath(pathStart, _, _ int) bool {
	node := pathStart
	cumul := f.dimension.CumulInterval(node).Min
	var cumulCostDelta, totalTransit int64
	path := f.deltaPathTransits.AddPaths(1)
	vehicle := f.Model().VehicleIndex(pathStart)
	capacity := f.dimension.Capacity(vehicle)
	evaluator := f.dimension.TransitEvaluator(vehicle)
	filterVehicleCosts := !f.Model().IsEnd(f.GetNext(node)) ||
		f.Model().IsVehicleUsedWhenEmpty(vehicle)
	if filterVehicleCosts {
		cumulCostDelta = satmath.Add(f.cumulSoftCost(node, cumul),
			f.cumulPiecewiseLinearCost(node, cumul))
	}
	f.minPathCumuls = f.minPathCumuls[:0]
	f.minPathCumuls = append(f.minPathCumuls, cumul)
	// Scan the path start to end, checking hard cumul bounds and caching
	// node sequences and transits for span cost filtering below.
	for node < f.Size() {
		next := f.GetNext(node)
		transit := evaluator(node, next)
		satmath.AddTo(transit, &totalTransit)
		transitSlack := satmath.Add(transit, f.dimension.SlackInterval(node).Min)
		f.deltaPathTransits.PushTransit(path, node, next, transitSlack)
		satmath.AddTo(transitSlack, &cumul)
		cumul = f.dimension.FirstPossibleGreaterOrEqual(next, cumul)
		if cumul > min(capacity, f.dimension.CumulInterval(next).Max) {
			return false
		}
		cumul = max(f.dimension.CumulInterval(next).Min, cumul)
		f.minPathCumuls = append(f.minPathCumuls, cumul)
		node = next
		if filterVehicleCosts {
			satmath.AddTo(f.cumulSoftCost(node, cumul), &cumulCostDelta)
			satmath.AddTo(f.cumulPiecewiseLinearCost(node, cumul), &cumulCostDelta)
		}
	}
	minEnd := cumul

	if !f.pickupToDeliveryLimitsRespected(path, f.minPathCumuls) {
		return false
	}
	if f.filterSlackCost() || f.filterBreakCost(vehicle) ||
		f.filterSoftSpanCostOfVehicle(vehicle) || f.filterSoftSpanQuadraticCostOfVehicle(vehicle) {
		slackMax := int64(satmath.MaxInt64)
		if f.vehicleSpanUpperBounds[vehicle] < satmath.MaxInt64 {
			slackMax = min(slackMax, satmath.Sub(f.vehicleSpanUpperBounds[vehicle], totalTransit))
		}
		maxStartFromMinEnd := f.computePathMaxStartFromEndCumul(&f.deltaPathTransits, path, pathStart, minEnd)
		spanLowerBound := satmath.Sub(minEnd, maxStartFromMinEnd)
		minTotalSlack := satmath.Sub(spanLowerBound, totalTransit)
		if minTotalSlack > slackMax {
			return false
		}

		if f.dimension.HasBreakConstraints() {
			for _, limit := range f.dimension.InterbreakLimitsOfVehicle(vehicle) {
				// Minimal number of breaks given the total transit:
				// i breaks for i*limit + 1 <= total transit <= (i+1)*limit.
				if limit.MaxInterbreak == 0 || totalTransit == 0 {
					continue
				}
				numBreaksLB := (totalTransit - 1) / limit.MaxInterbreak
				slackLB := satmath.Mul(numBreaksLB, limit.MinBreakDuration)
				if slackLB > slackMax {
					return false
				}
				minTotalSlack = max(minTotalSlack, slackLB)
			}
			// Breaks that must happen during the mandatory interval
			// [maxStart, minEnd) bound the in-route break time from below.
			var minTotalBreak int64
			maxPathEnd := f.dimension.CumulInterval(f.Model().End(vehicle)).Max
			maxStart := f.computePathMaxStartFromEndCumul(&f.deltaPathTransits, path, pathStart, maxPathEnd)
			for _, br := range f.dimension.BreaksOfVehicle(vehicle) {
				if !br.MustBePerformed {
					continue
				}
				if maxStart < br.EndMin && br.StartMax < minEnd {
					satmath.AddTo(br.DurationMin, &minTotalBreak)
				}
			}
			if minTotalBreak > slackMax {
				return false
			}
			minTotalSlack = max(minTotalSlack, minTotalBreak)
		}
		if filterVehicleCosts {
			satmath.AddTo(satmath.Mul(f.vehicleTotalSlackCostCoefficients[vehicle], minTotalSlack),
				&cumulCostDelta)
			spanLowerBound := satmath.Add(totalTransit, minTotalSlack)
			if f.filterSoftSpanCost() {
				boundCost := f.dimension.SoftSpanUpperBound(vehicle)
				if boundCost.Bound < spanLowerBound {
					violation := satmath.Sub(spanLowerBound, boundCost.Bound)
					satmath.AddTo(satmath.Mul(boundCost.Cost, violation), &cumulCostDelta)
				}
			}
			if f.filterSoftSpanQuadraticCost() {
				boundCost := f.dimension.QuadraticCostSoftSpanUpperBound(vehicle)
				if boundCost.Bound < spanLowerBound {
					violation := satmath.Sub(spanLowerBound, boundCost.Bound)
					satmath.AddTo(satmath.Mul(boundCost.Cost, satmath.Mul(violation, violation)),
						&cumulCostDelta)
				}
			}
		}
		if satmath.Add(totalTransit, minTotalSlack) > f.vehicleSpanUpperBounds[vehicle] {
			return false
		}
	}
	if f.filterCumulSoftLowerBounds() && filterVehicleCosts {
		satmath.AddTo(f.pathCumulSoftLowerBoundCost(&f.deltaPathTransits, path), &cumulCostDelta)
	}
	if f.filterPrecedences() {
		f.storeMinMaxCumulOfNodesOnPath(path, f.minPathCumuls, true)
	}
	if !filterVehicleCosts {
		// This route's costs don't count; drop its buffered data.
		cumulCostDelta = 0
		f.deltaPathTransits.ClearPath(path)
	}
	if f.filterSpanCost() || f.filterCumulSoftBounds() || f.filterSlackCost() ||
		f.filterCumulSoftLowerBounds() || f.filterCumulPiecewiseLinearCosts() ||
		f.filterSoftSpanCostOfVehicle(vehicle) || f.filterSoftSpanQuadraticCostOfVehicle(vehicle) {
		f.deltaPaths[vehicle] = struct{}{}
		f.deltaPathCumulCostValues[vehicle] = cumulCostDelta
		cumulCostDelta = satmath.Sub(cumulCostDelta, f.currentCumulCostValues[pathStart])
		if filterVehicleCosts {
			f.deltaMaxEndCumul = max(f.deltaMaxEndCumul, minEnd)
		}
	}
	satmath.AddTo(cumulCostDelta, &f.cumulCostDelta)
	return true
}

// FinalizeAcceptPath implements PathFilterHooks.
func (f *PathCumulFilter) FinalizeAcceptPath(_, objectiveMax int64) bool {
	if !f.filtersAnyCumulData() {
		return true
	}
	if f.filterPrecedences() && !f.precedencesRespected() {
		return false
	}
	newMaxEnd := f.deltaMaxEndCumul
	newMinStart := int64(satmath.MaxInt64)
	if f.filterSpanCost() {
		if newMaxEnd < f.currentMaxEnd.cumulValue {
			// The delta's max end is lower than the committed one; if the
			// supporting path changed, all paths must be rechecked.
			if _, changed := f.deltaPaths[f.currentMaxEnd.cumulValueSupport]; !changed {
				newMaxEnd = f.currentMaxEnd.cumulValue
			} else {
				for i, value := range f.currentMaxEnd.pathValues {
					if _, inDelta := f.deltaPaths[i]; value > newMaxEnd && !inDelta {
						newMaxEnd = value
					}
				}
			}
		}
		// Compute the min start from the delta paths, then from unchanged
		// paths if the max end changed.
		touchedStarts := f.TouchedPathStarts()
		for r := 0; r < f.deltaPathTransits.NumPaths(); r++ {
			newMinStart = min(newMinStart,
				f.computePathMaxStartFromEndCumul(&f.deltaPathTransits, r, touchedStarts[r], newMaxEnd))
		}
		if newMaxEnd != f.currentMaxEnd.cumulValue {
			for r := 0; r < f.NumPaths(); r++ {
				if _, inDelta := f.deltaPaths[r]; inDelta {
					continue
				}
				newMinStart = min(newMinStart,
					f.computePathMaxStartFromEndCumul(&f.currentPathTransits, r, f.Start(r), newMaxEnd))
			}
		} else if newMinStart > f.currentMinStart.cumulValue {
			if _, changed := f.deltaPaths[f.currentMinStart.cumulValueSupport]; !changed {
				newMinStart = f.currentMinStart.cumulValue
			} else {
				for i, value := range f.currentMinStart.pathValues {
					if _, inDelta := f.deltaPaths[i]; value < newMinStart && !inDelta {
						newMinStart = value
					}
				}
			}
		}
	}

	// Objective filtering, escalating to the LP and MIP when needed.
	f.acceptedObjectiveValue = satmath.Add(f.cumulCostDelta,
		satmath.Mul(f.globalSpanCostCoefficient, satmath.Sub(newMaxEnd, newMinStart)))

	if f.mayUseOptimizers && f.lpOptimizer != nil && f.acceptedObjectiveValue <= objectiveMax {
		touched := f.TouchedPathStarts()
		pathDeltaCostValues := make([]int64, len(touched))
		requiresMP := make([]bool, len(touched))
		next := func(node int) int { return f.GetNext(node) }
		for i, start := range touched {
			vehicle := f.Model().VehicleIndex(start)
			if !f.filterWithOptimizerForVehicle(vehicle) {
				continue
			}
			var pathDeltaCostWithLP int64
			costPtr := &pathDeltaCostWithLP
			if !f.filterObjectiveCost {
				costPtr = nil
			}
			status := f.lpOptimizer.ComputeRouteCumulCost(f.ctx, vehicle, next, costPtr)
			if status == sched.StatusInfeasible {
				return false
			}
			pathCostDiffWithLP := satmath.Sub(pathDeltaCostWithLP, f.deltaPathCumulCostValues[vehicle])
			if pathCostDiffWithLP > 0 {
				pathDeltaCostValues[i] = pathDeltaCostWithLP
				satmath.AddTo(pathCostDiffWithLP, &f.acceptedObjectiveValue)
				if f.acceptedObjectiveValue > objectiveMax {
					return false
				}
			} else {
				pathDeltaCostValues[i] = f.deltaPathCumulCostValues[vehicle]
			}
			requiresMP[i] = f.filterBreakCost(vehicle) ||
				f.filterSoftSpanQuadraticCostOfVehicle(vehicle) ||
				status == sched.StatusRelaxedOptimalOnly
		}
		for i, start := range touched {
			if !requiresMP[i] {
				continue
			}
			vehicle := f.Model().VehicleIndex(start)
			var pathDeltaCostWithMP int64
			costPtr := &pathDeltaCostWithMP
			if !f.filterObjectiveCost {
				costPtr = nil
			}
			if f.mpOptimizer.ComputeRouteCumulCost(f.ctx, vehicle, next, costPtr) ==
				sched.StatusInfeasible {
				return false
			}
			pathCostDiffWithMP := satmath.Sub(pathDeltaCostWithMP, pathDeltaCostValues[i])
			if pathCostDiffWithMP > 0 {
				satmath.AddTo(pathCostDiffWithMP, &f.acceptedObjectiveValue)
				if f.acceptedObjectiveValue > objectiveMax {
					return false
				}
			}
		}
	}

	return f.acceptedObjectiveValue <= objectiveMax
}

// precedencesRespected verifies, for every delta node whose cumul changed,
// that max(cumul(second)) >= min(cumul(first)) + offset for each of its
// precedences with both sides performed.
func (f *PathCumulFilter) precedencesRespected() bool {
	for _, node := range f.deltaNodesWithPrecedencesAndChangedCumul.PositionsSetAtLeastOnce() {
		nodeMinMax, ok := f.nodeWithPrecedenceToDeltaMinMaxCumuls[node]
		if !ok {
			nodeMinMax = [2]int64{-1, -1}
		}
		for _, precedence := range f.nodeIndexToPrecedences[node] {
			nodeIsFirst := precedence.FirstNode == node
			otherNode := precedence.SecondNode
			if !nodeIsFirst {
				otherNode = precedence.FirstNode
			}
			if next := f.GetNext(otherNode); next == unassigned || next == otherNode {
				// The other node is unperformed, the precedence is inactive.
				continue
			}
			otherMinMax, ok := f.nodeWithPrecedenceToDeltaMinMaxCumuls[otherNode]
			if !ok {
				otherMinMax = f.currentMinMaxNodeCumuls[otherNode]
			}
			firstMinCumul := nodeMinMax[0]
			secondMaxCumul := otherMinMax[1]
			if !nodeIsFirst {
				firstMinCumul = otherMinMax[0]
				secondMaxCumul = nodeMinMax[1]
			}
			if secondMaxCumul < firstMinCumul+precedence.Offset {
				return false
			}
		}
	}
	return true
}

// pickupToDeliveryLimitsRespected walks path backwards with the maximum
// cumul, remembering each visited delivery's minimum cumul; a pickup of the
// same pair whose max cumul is too far from it rejects.
func (f *PathCumulFilter) pickupToDeliveryLimitsRespected(path int, minPathCumuls []int64) bool {
	if !f.dimension.HasPickupToDeliveryLimits() {
		return true
	}
	numPairs := len(f.Model().PickupDeliveryPairs())
	visitedDeliveryPerPair := make([][2]int64, numPairs)
	for i := range visitedDeliveryPerPair {
		visitedDeliveryPerPair[i] = [2]int64{-1, -1}
	}
	transits := &f.deltaPathTransits
	maxCumul := minPathCumuls[len(minPathCumuls)-1]
	for i := transits.PathSize(path) - 2; i >= 0; i-- {
		node := transits.Node(path, i)
		maxCumul = satmath.Sub(maxCumul, transits.Transit(path, i))
		maxCumul = min(f.dimension.CumulInterval(node).Max, maxCumul)

		if f.Model().IsPickup(node) {
			position, _ := f.Model().PickupPosition(node)
			deliveryAlt := visitedDeliveryPerPair[position.Pair][0]
			if deliveryAlt < 0 {
				// No delivery visited after this pickup.
				continue
			}
			limit := f.dimension.PickupToDeliveryLimit(position.Pair, position.Alternative, int(deliveryAlt))
			if satmath.Sub(visitedDeliveryPerPair[position.Pair][1], maxCumul) > limit {
				return false
			}
		} else if f.Model().IsDelivery(node) {
			position, _ := f.Model().DeliveryPosition(node)
			visitedDeliveryPerPair[position.Pair] = [2]int64{int64(position.Alternative), minPathCumuls[i]}
		}
	}
	return true
}

// storeMinMaxCumulOfNodesOnPath records, for every node of the path with a
// precedence, its minimum and maximum cumul. In delta mode, nodes whose
// values changed against the committed state are marked for the finalize
// check.
func (f *PathCumulFilter) storeMinMaxCumulOfNodesOnPath(path int, minPathCumuls []int64, isDelta bool) {
	transits := &f.currentPathTransits
	if isDelta {
		transits = &f.deltaPathTransits
	}
	pathSize := transits.PathSize(path)
	maxCumul := f.dimension.CumulInterval(transits.Node(path, pathSize-1)).Max
	for i := pathSize - 1; i >= 0; i-- {
		node := transits.Node(path, i)
		if i < pathSize-1 {
			maxCumul = satmath.Sub(maxCumul, transits.Transit(path, i))
			maxCumul = min(f.dimension.CumulInterval(node).Max, maxCumul)
		}
		if isDelta && len(f.nodeIndexToPrecedences[node]) == 0 {
			// The delta map only tracks nodes with precedences.
			continue
		}
		minMax := [2]int64{minPathCumuls[i], maxCumul}
		if isDelta {
			f.nodeWithPrecedenceToDeltaMinMaxCumuls[node] = minMax
			if !f.Model().IsEnd(node) && minMax != f.currentMinMaxNodeCumuls[node] {
				f.deltaNodesWithPrecedencesAndChangedCumul.Set(node)
			}
		} else {
			f.currentMinMaxNodeCumuls[node] = minMax
		}
	}
}

// computePathMaxStartFromEndCumul walks backwards from minEndCumul without
// jumping over forbidden intervals (the result lower-bounds the span), while
// concurrently walking from the path end's max cumul with jumps, and
// returns the lower of the two starts.
func (f *PathCumulFilter) computePathMaxStartFromEndCumul(transits *pathTransits, path, pathStart int, minEndCumul int64) int64 {
	cumulFromMinEnd := minEndCumul
	cumulFromMaxEnd := f.dimension.CumulInterval(
		f.Model().End(f.Model().VehicleIndex(pathStart))).Max
	for i := transits.PathSize(path) - 2; i >= 0; i-- {
		transit := transits.Transit(path, i)
		node := transits.Node(path, i)
		cumulFromMinEnd = min(f.dimension.CumulInterval(node).Max, satmath.Sub(cumulFromMinEnd, transit))
		cumulFromMaxEnd = f.dimension.LastPossibleLessOrEqual(node, satmath.Sub(cumulFromMaxEnd, transit))
	}
	return min(cumulFromMinEnd, cumulFromMaxEnd)
}
