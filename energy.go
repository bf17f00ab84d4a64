package routefilter

import (
	"github.com/hupe1980/routefilter/pathstate"
	"github.com/hupe1980/routefilter/rangequery"
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
)

// EnergyCost is a two-piece linear cost on the force integrated over
// distance: units below Threshold cost CostPerUnitBelowThreshold, units
// above cost CostPerUnitAboveThreshold.
type EnergyCost struct {
	Threshold                 int64
	CostPerUnitBelowThreshold int64
	CostPerUnitAboveThreshold int64
}

// ForceEvaluator returns the signed force a node adds to the running total.
type ForceEvaluator func(node int) int64

// DistanceEvaluator returns the distance of an arc.
type DistanceEvaluator func(from, to int) int64

// PathEnergyCostChecker computes battery-like energy costs per path: a
// running force accumulated node by node, integrated against arc distances,
// with separate unit costs below and above a force threshold. Committed
// paths carry a force range-minimum table and weighted wavelet trees so
// reused chains cost O(log) instead of O(length).
type PathEnergyCostChecker struct {
	pathState *pathstate.PathState

	forceStartMin        []int64
	forceEndMin          []int64
	forceClass           []int
	distanceClass        []int
	forcePerClass        []ForceEvaluator
	distancePerClass     []DistanceEvaluator
	pathEnergyCost       []EnergyCost
	pathHasCostWhenEmpty []bool

	maxRangeQuerySize int
	forceRMQ          rangequery.RangeMinimumQuery
	energyQuery       rangequery.WeightedWaveletTree
	distanceQuery     rangequery.WeightedWaveletTree

	forceRMQIndexOfNode       []int
	thresholdQueryIndexOfNode []int
	cachedForce               []int64
	cachedDistance            []int64

	committedTotalCost int64
	committedPathCost  []int64
	acceptedTotalCost  int64
}

// PathEnergyCostCheckerConfig carries the per-path and per-class data of a
// PathEnergyCostChecker.
type PathEnergyCostCheckerConfig struct {
	ForceStartMin        []int64
	ForceEndMin          []int64
	ForceClass           []int
	ForcePerClass        []ForceEvaluator
	DistanceClass        []int
	DistancePerClass     []DistanceEvaluator
	PathEnergyCost       []EnergyCost
	PathHasCostWhenEmpty []bool
}

// NewPathEnergyCostChecker returns a checker over state.
func NewPathEnergyCostChecker(state *pathstate.PathState, config PathEnergyCostCheckerConfig) *PathEnergyCostChecker {
	numNodes := state.NumNodes()
	c := &PathEnergyCostChecker{
		pathState:                 state,
		forceStartMin:             config.ForceStartMin,
		forceEndMin:               config.ForceEndMin,
		forceClass:                config.ForceClass,
		distanceClass:             config.DistanceClass,
		forcePerClass:             config.ForcePerClass,
		distancePerClass:          config.DistancePerClass,
		pathEnergyCost:            config.PathEnergyCost,
		pathHasCostWhenEmpty:      config.PathHasCostWhenEmpty,
		maxRangeQuerySize:         4 * numNodes,
		forceRMQIndexOfNode:       make([]int, numNodes),
		thresholdQueryIndexOfNode: make([]int, numNodes),
		cachedForce:               make([]int64, numNodes),
		cachedDistance:            make([]int64, numNodes),
	}
	c.fullCacheAndPrecompute()
	c.committedPathCost = make([]int64, state.NumPaths())
	for path := 0; path < state.NumPaths(); path++ {
		c.committedPathCost[path] = c.computePathCost(path)
		satmath.AddTo(c.committedPathCost[path], &c.committedTotalCost)
	}
	c.acceptedTotalCost = c.committedTotalCost
	return c
}

// AcceptedCost returns the total cost of the last checked candidate.
func (c *PathEnergyCostChecker) AcceptedCost() int64 { return c.acceptedTotalCost }

// CommittedCost returns the total cost of the committed state.
func (c *PathEnergyCostChecker) CommittedCost() int64 { return c.committedTotalCost }

// Check recomputes the cost of all changed paths; false when the cost
// saturates.
func (c *PathEnergyCostChecker) Check() bool {
	if c.pathState.IsInvalid() {
		return true
	}
	c.acceptedTotalCost = c.committedTotalCost
	for _, path := range c.pathState.ChangedPaths() {
		c.acceptedTotalCost = satmath.Sub(c.acceptedTotalCost, c.committedPathCost[path])
		satmath.AddTo(c.computePathCost(path), &c.acceptedTotalCost)
		if c.acceptedTotalCost == satmath.MaxInt64 {
			return false
		}
	}
	return true
}

// Commit refreshes committed costs and extends or rebuilds the range query
// structures, mirroring the path state's incremental/full choice. It reads the
// candidate chains, so it must run before the path state's own Commit.
func (c *PathEnergyCostChecker) Commit() {
	changeSize := len(c.pathState.ChangedPaths())
	for _, path := range c.pathState.ChangedPaths() {
		for chain := range c.pathState.Chains(path) {
			changeSize += chain.NumNodes()
		}
		c.committedTotalCost = satmath.Sub(c.committedTotalCost, c.committedPathCost[path])
		c.committedPathCost[path] = c.computePathCost(path)
		satmath.AddTo(c.committedPathCost[path], &c.committedTotalCost)
	}

	if c.forceRMQ.TableSize()+changeSize <= c.maxRangeQuerySize {
		c.incrementalCacheAndPrecompute()
	} else {
		c.fullCacheAndPrecompute()
	}
}

func (c *PathEnergyCostChecker) incrementalCacheAndPrecompute() {
	for _, path := range c.pathState.ChangedPaths() {
		c.cacheAndPrecomputeRangeQueriesOfPath(path)
	}
}

func (c *PathEnergyCostChecker) fullCacheAndPrecompute() {
	c.forceRMQ.Clear()
	c.energyQuery.Clear()
	c.distanceQuery.Clear()
	for path := 0; path < c.pathState.NumPaths(); path++ {
		c.cacheAndPrecomputeRangeQueriesOfPath(path)
	}
}

// cacheAndPrecomputeRangeQueriesOfPath caches force and distance values of
// path and precomputes its force RMQ and energy/distance threshold queries,
// keyed on the running force with the path start at zero.
func (c *PathEnergyCostChecker) cacheAndPrecomputeRangeQueriesOfPath(path int) {
	forceEvaluator := c.forcePerClass[c.forceClass[path]]
	distanceEvaluator := c.distancePerClass[c.distanceClass[path]]
	forceIndex := c.forceRMQ.TableSize()
	thresholdIndex := c.energyQuery.TreeSize()
	var totalForce int64

	prevNode := c.pathState.Start(path)
	for node := range c.pathState.Nodes(path) {
		if prevNode != node {
			distance := distanceEvaluator(prevNode, node)
			c.cachedDistance[prevNode] = distance
			c.energyQuery.PushBack(totalForce, totalForce*distance)
			c.distanceQuery.PushBack(totalForce, distance)
			prevNode = node
		}
		c.thresholdQueryIndexOfNode[node] = thresholdIndex
		thresholdIndex++
		c.forceRMQ.PushBack(totalForce)
		c.forceRMQIndexOfNode[node] = forceIndex
		forceIndex++
		force := forceEvaluator(node)
		c.cachedForce[node] = force
		totalForce += force
	}
	c.forceRMQ.MakeTableFromNewElements()
	c.energyQuery.MakeTreeFromNewElements()
	c.distanceQuery.MakeTreeFromNewElements()
}

func (c *PathEnergyCostChecker) computePathCost(path int) int64 {
	pathForceClass := c.forceClass[path]
	forceEvaluator := c.forcePerClass[pathForceClass]

	// First pass: find the minimal running force and the total force, to
	// derive the mandatory start offset.
	totalForce := c.forceStartMin[path]
	minForce := totalForce
	numPathNodes := 0
	prevNode := c.pathState.Start(path)
	for chain := range c.pathState.Chains(path) {
		numPathNodes += chain.NumNodes()
		if chain.First() != prevNode {
			satmath.AddTo(forceEvaluator(prevNode), &totalForce)
			minForce = min(minForce, totalForce)
			prevNode = chain.First()
		}

		chainPath := c.pathState.Path(chain.First())
		chainForceClass := -1
		if chainPath != -1 {
			chainForceClass = c.forceClass[chainPath]
		}
		forceIsCached := chainForceClass == pathForceClass
		if forceIsCached && chain.NumNodes() >= 2 {
			firstIndex := c.forceRMQIndexOfNode[chain.First()]
			lastIndex := c.forceRMQIndexOfNode[chain.Last()]
			// Running force totals at the first, last and lowest node of
			// the chain.
			firstTotalForce := c.forceRMQ.Array()[firstIndex]
			lastTotalForce := c.forceRMQ.Array()[lastIndex]
			minTotalForce := c.forceRMQ.RangeMinimum(firstIndex, lastIndex)
			minForce = min(minForce, totalForce-firstTotalForce+minTotalForce)
			satmath.AddTo(lastTotalForce-firstTotalForce, &totalForce)
			prevNode = chain.Last()
		} else {
			for _, node := range chain.WithoutFirstNode() {
				var force int64
				if forceIsCached {
					force = c.cachedForce[prevNode]
				} else {
					force = forceEvaluator(prevNode)
				}
				satmath.AddTo(force, &totalForce)
				minForce = min(minForce, totalForce)
				prevNode = node
			}
		}
	}
	if numPathNodes == 2 && !c.pathHasCostWhenEmpty[path] {
		return 0
	}
	// The force is offset to be >= forceStartMin at the start, >= 0 at all
	// intermediate nodes and >= forceEndMin at the end.
	totalForce = max(0, satmath.Opp(minForce), satmath.Sub(c.forceEndMin[path], totalForce))
	satmath.AddTo(c.forceStartMin[path], &totalForce)

	// Second pass: integrate energy below and above the threshold.
	pathDistanceClass := c.distanceClass[path]
	distanceEvaluator := c.distancePerClass[pathDistanceClass]
	cost := c.pathEnergyCost[path]
	var energyBelow, energyAbove int64
	prevNode = c.pathState.Start(path)
	for chain := range c.pathState.Chains(path) {
		if chain.First() != prevNode {
			distance := distanceEvaluator(prevNode, chain.First())
			satmath.AddTo(forceEvaluator(prevNode), &totalForce)
			satmath.AddTo(satmath.Mul(min(cost.Threshold, totalForce), distance), &energyBelow)
			forceAbove := max(0, satmath.Sub(totalForce, cost.Threshold))
			satmath.AddTo(satmath.Mul(forceAbove, distance), &energyAbove)
			prevNode = chain.First()
		}

		chainPath := c.pathState.Path(chain.First())
		chainForceClass, chainDistanceClass := -1, -1
		if chainPath != -1 {
			chainForceClass = c.forceClass[chainPath]
			chainDistanceClass = c.distanceClass[chainPath]
		}
		forceIsCached := chainForceClass == pathForceClass
		distanceIsCached := chainDistanceClass == pathDistanceClass

		if forceIsCached && distanceIsCached && chain.NumNodes() >= 2 {
			firstIndex := c.thresholdQueryIndexOfNode[chain.First()]
			lastIndex := c.thresholdQueryIndexOfNode[chain.Last()]

			zeroTotalEnergy := c.energyQuery.RangeSumWithThreshold(satmath.MinInt64, firstIndex, lastIndex)
			totalDistance := c.distanceQuery.RangeSumWithThreshold(satmath.MinInt64, firstIndex, lastIndex)

			// zero values assume the force at the chain's first node is
			// zero. The candidate's total force there differs in general,
			// so queries are offset to zeroThreshold: transitions above the
			// actual threshold in the candidate are exactly transitions
			// above zeroThreshold in the zero frame.
			zeroTotalForceFirst := c.forceRMQ.Array()[c.forceRMQIndexOfNode[chain.First()]]
			zeroThreshold := satmath.Sub(cost.Threshold, satmath.Sub(totalForce, zeroTotalForceFirst))
			zeroHighEnergy := c.energyQuery.RangeSumWithThreshold(zeroThreshold, firstIndex, lastIndex)
			zeroHighDistance := c.distanceQuery.RangeSumWithThreshold(zeroThreshold, firstIndex, lastIndex)
			// Energy above the threshold only accrues during high
			// transitions, so it derives from high energy, high distance
			// and the threshold.
			zeroEnergyAbove := satmath.Sub(zeroHighEnergy, satmath.Mul(zeroHighDistance, zeroThreshold))
			satmath.AddTo(zeroEnergyAbove, &energyAbove)
			satmath.AddTo(satmath.Add(
				satmath.Sub(zeroTotalEnergy, zeroEnergyAbove),
				satmath.Mul(totalDistance, satmath.Sub(cost.Threshold, zeroThreshold)),
			), &energyBelow)
			zeroTotalForceLast := c.forceRMQ.Array()[c.forceRMQIndexOfNode[chain.Last()]]
			satmath.AddTo(satmath.Sub(zeroTotalForceLast, zeroTotalForceFirst), &totalForce)
			prevNode = chain.Last()
		} else {
			for _, node := range chain.WithoutFirstNode() {
				var force int64
				if forceIsCached {
					force = c.cachedForce[prevNode]
				} else {
					force = forceEvaluator(prevNode)
				}
				var distance int64
				if distanceIsCached {
					distance = c.cachedDistance[prevNode]
				} else {
					distance = distanceEvaluator(prevNode, node)
				}
				satmath.AddTo(force, &totalForce)
				satmath.AddTo(satmath.Mul(min(cost.Threshold, totalForce), distance), &energyBelow)
				forceAbove := max(0, satmath.Sub(totalForce, cost.Threshold))
				satmath.AddTo(satmath.Mul(forceAbove, distance), &energyAbove)
				prevNode = node
			}
		}
	}

	return satmath.Add(
		satmath.Mul(energyBelow, cost.CostPerUnitBelowThreshold),
		satmath.Mul(energyAbove, cost.CostPerUnitAboveThreshold),
	)
}

// PathEnergyCostFilter adapts a PathEnergyCostChecker to the Filter
// contract.
type PathEnergyCostFilter struct {
	BaseFilter
	checker *PathEnergyCostChecker
}

// NewPathEnergyCostFilter wraps checker into a filter named after the
// energy dimension.
func NewPathEnergyCostFilter(checker *PathEnergyCostChecker, energyName string) *PathEnergyCostFilter {
	return &PathEnergyCostFilter{
		BaseFilter: NewBaseFilter("PathEnergyCostFilter(" + energyName + ")"),
		checker:    checker,
	}
}

// Accept implements Filter.
func (f *PathEnergyCostFilter) Accept(_, _ *routing.Assignment, objectiveMin, objectiveMax int64) bool {
	if objectiveMax > satmath.MaxInt64/2 {
		return true
	}
	if !f.checker.Check() {
		return false
	}
	cost := f.checker.AcceptedCost()
	return objectiveMin <= cost && cost <= objectiveMax
}

// Synchronize implements Filter.
func (f *PathEnergyCostFilter) Synchronize(_, _ *routing.Assignment) {
	f.checker.Commit()
}

// AcceptedObjectiveValue implements Filter.
func (f *PathEnergyCostFilter) AcceptedObjectiveValue() int64 { return f.checker.AcceptedCost() }

// SynchronizedObjectiveValue implements Filter.
func (f *PathEnergyCostFilter) SynchronizedObjectiveValue() int64 { return f.checker.CommittedCost() }
