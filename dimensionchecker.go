package routefilter

import (
	"math/bits"

	"github.com/hupe1980/routefilter/pathstate"
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
)

// extendedInterval is an interval augmented with infinity counts, so that
// sums and deltas stay associative when transits are unbounded: a bound that
// went through k infinities is only finite again after k opposite steps.
type extendedInterval struct {
	min    int64
	max    int64
	negInf int
	posInf int
}

func toExtended(i routing.Interval) extendedInterval {
	isNegInf := i.Min == satmath.MinInt64
	isPosInf := i.Max == satmath.MaxInt64
	e := extendedInterval{min: i.Min, max: i.Max}
	if isNegInf {
		e.min = 0
		e.negInf = 1
	}
	if isPosInf {
		e.max = 0
		e.posInf = 1
	}
	return e
}

func toExtendedSlice(intervals []routing.Interval) []extendedInterval {
	extended := make([]extendedInterval, 0, len(intervals))
	for _, i := range intervals {
		extended = append(extended, toExtended(i))
	}
	return extended
}

func (i extendedInterval) boundedMin() int64 {
	if i.negInf != 0 {
		return satmath.MinInt64
	}
	return i.min
}

func (i extendedInterval) boundedMax() int64 {
	if i.posInf != 0 {
		return satmath.MaxInt64
	}
	return i.max
}

func (i extendedInterval) isEmpty() bool { return i.boundedMin() > i.boundedMax() }

func eIntersect(i1, i2 extendedInterval) extendedInterval {
	return extendedInterval{
		min:    max(i1.boundedMin(), i2.boundedMin()),
		max:    min(i1.boundedMax(), i2.boundedMax()),
		negInf: min(i1.negInf, i2.negInf),
		posInf: min(i1.posInf, i2.posInf),
	}
}

func eAdd(i1, i2 extendedInterval) extendedInterval {
	return extendedInterval{
		min:    satmath.Add(i1.min, i2.min),
		max:    satmath.Add(i1.max, i2.max),
		negInf: i1.negInf + i2.negInf,
		posInf: i1.posInf + i2.posInf,
	}
}

func eSub(i1, i2 extendedInterval) extendedInterval {
	return extendedInterval{
		min:    satmath.Sub(i1.min, i2.max),
		max:    satmath.Sub(i1.max, i2.min),
		negInf: i1.negInf + i2.posInf,
		posInf: i1.posInf + i2.negInf,
	}
}

// eDelta returns the interval delta such that from + delta = to; this is
// not the same as to + (-from).
func eDelta(from, to extendedInterval) extendedInterval {
	return extendedInterval{
		min:    satmath.Sub(to.min, from.min),
		max:    satmath.Sub(to.max, from.max),
		negInf: to.negInf - from.negInf,
		posInf: to.posInf - from.posInf,
	}
}

// DemandEvaluator returns the transit interval of an arc; the range comes
// from slack variables.
type DemandEvaluator func(from, to int) routing.Interval

// DefaultMinRangeSizeForRIQ is the chain length above which Check switches
// from node-by-node traversal to range intersection queries.
const DefaultMinRangeSizeForRIQ = 4

// riqNode summarizes a window of a committed path for the range intersection
// query: the tightest cumul sets reaching the window's first and last nodes,
// the intersection of all transit prefix sums, and the prefix sums at the
// window boundaries.
type riqNode struct {
	cumulsToFst  extendedInterval
	tightestTsum extendedInterval
	cumulsToLst  extendedInterval
	tsumAtFst    extendedInterval
	tsumAtLst    extendedInterval
}

// DimensionChecker answers "is this additive dimension feasible on the
// candidate path state?" in time proportional to the changed chains. Chains
// reused verbatim from a committed path of the same class are traversed in
// O(log chain) with a range intersection query built at commit time.
type DimensionChecker struct {
	pathState          *pathstate.PathState
	pathCapacity       []extendedInterval
	pathClass          []int
	demandPerClass     []DemandEvaluator
	nodeCapacity       []extendedInterval
	index              []int
	cachedDemand       []extendedInterval
	riq                [][]riqNode
	maxRIQLayerSize    int
	minRangeSizeForRIQ int
}

// NewDimensionChecker returns a checker over state. pathCapacity and
// pathClass have one entry per path, demandPerClass one evaluator per path
// class, nodeCapacity one interval per node.
func NewDimensionChecker(
	state *pathstate.PathState,
	pathCapacity []routing.Interval,
	pathClass []int,
	demandPerClass []DemandEvaluator,
	nodeCapacity []routing.Interval,
	minRangeSizeForRIQ int,
) *DimensionChecker {
	if len(pathCapacity) != state.NumPaths() || len(pathClass) != state.NumPaths() {
		panic("routefilter: dimension checker path data size mismatch")
	}
	if len(nodeCapacity) != state.NumNodes() {
		panic("routefilter: dimension checker node capacity size mismatch")
	}
	c := &DimensionChecker{
		pathState:          state,
		pathCapacity:       toExtendedSlice(pathCapacity),
		pathClass:          pathClass,
		demandPerClass:     demandPerClass,
		nodeCapacity:       toExtendedSlice(nodeCapacity),
		index:              make([]int, state.NumNodes()),
		cachedDemand:       make([]extendedInterval, state.NumNodes()),
		maxRIQLayerSize:    max(16, 4*state.NumNodes()),
		minRangeSizeForRIQ: minRangeSizeForRIQ,
	}
	c.riq = make([][]riqNode, mostSignificantBit(state.NumNodes())+1)
	c.fullCommit()
	return c
}

func mostSignificantBit(x int) int {
	if x <= 0 {
		return 0
	}
	return bits.Len(uint(x)) - 1
}

// Check reports whether every changed path admits a feasible cumul sequence.
// While the path state is invalid, Check accepts; another filter rejects the
// candidate.
func (c *DimensionChecker) Check() bool {
	if c.pathState.IsInvalid() {
		return true
	}
	for _, path := range c.pathState.ChangedPaths() {
		pathCapacity := c.pathCapacity[path]
		pathClass := c.pathClass[path]
		// Except before the first chain, cumul is the nonempty reachable set
		// at the last node of the previous chain.
		prevNode := c.pathState.Start(path)
		cumul := eIntersect(c.nodeCapacity[prevNode], pathCapacity)
		if cumul.isEmpty() {
			return false
		}
		for chain := range c.pathState.Chains(path) {
			firstNode := chain.First()
			lastNode := chain.Last()

			if prevNode != firstNode {
				// Transit from the previous chain to this chain's first node.
				demand := toExtended(c.demandPerClass[pathClass](prevNode, firstNode))
				cumul = eAdd(cumul, demand)
				cumul = eIntersect(cumul, pathCapacity)
				cumul = eIntersect(cumul, c.nodeCapacity[firstNode])
				if cumul.isEmpty() {
					return false
				}
				prevNode = firstNode
			}

			firstIndex := c.index[firstNode]
			lastIndex := c.index[lastNode]
			chainPath := c.pathState.Path(firstNode)
			chainPathClass := -1
			if chainPath != -1 {
				chainPathClass = c.pathClass[chainPath]
			}
			chainIsCached := chainPathClass == pathClass
			if lastIndex-firstIndex > c.minRangeSizeForRIQ && chainIsCached {
				cumul = c.updateCumulUsingChainRIQ(firstIndex, lastIndex, pathCapacity, cumul)
				if cumul.isEmpty() {
					return false
				}
				prevNode = lastNode
			} else {
				for _, node := range chain.WithoutFirstNode() {
					var demand extendedInterval
					if chainIsCached {
						demand = c.cachedDemand[prevNode]
					} else {
						demand = toExtended(c.demandPerClass[pathClass](prevNode, node))
					}
					cumul = eAdd(cumul, demand)
					cumul = eIntersect(cumul, c.nodeCapacity[node])
					cumul = eIntersect(cumul, pathCapacity)
					if cumul.isEmpty() {
						return false
					}
					prevNode = node
				}
			}
		}
	}
	return true
}

// Commit rebuilds or extends the range query tables, mirroring the path
// state's incremental/full commit choice. It reads the candidate chains, so
// it must run before the path state's own Commit.
func (c *DimensionChecker) Commit() {
	currentLayerSize := len(c.riq[0])
	changeSize := len(c.pathState.ChangedPaths())
	for _, path := range c.pathState.ChangedPaths() {
		for chain := range c.pathState.Chains(path) {
			changeSize += chain.NumNodes()
		}
	}
	if currentLayerSize+changeSize <= c.maxRIQLayerSize {
		c.incrementalCommit()
	} else {
		c.fullCommit()
	}
}

func (c *DimensionChecker) incrementalCommit() {
	for _, path := range c.pathState.ChangedPaths() {
		beginIndex := len(c.riq[0])
		c.appendPathDemandsToSums(path)
		c.updateRIQStructure(beginIndex, len(c.riq[0]))
	}
}

func (c *DimensionChecker) fullCommit() {
	for layer := range c.riq {
		c.riq[layer] = c.riq[layer][:0]
	}
	for path := 0; path < c.pathState.NumPaths(); path++ {
		beginIndex := len(c.riq[0])
		c.appendPathDemandsToSums(path)
		c.updateRIQStructure(beginIndex, len(c.riq[0]))
	}
}

// appendPathDemandsToSums pushes layer-0 data for all nodes of path: the
// node capacity and the prefix sum of demands from the path start.
func (c *DimensionChecker) appendPathDemandsToSums(path int) {
	pathClass := c.pathClass[path]
	var demandSum extendedInterval
	prev := c.pathState.Start(path)
	index := len(c.riq[0])
	for node := range c.pathState.Nodes(path) {
		var demand extendedInterval
		if prev != node {
			demand = toExtended(c.demandPerClass[pathClass](prev, node))
		}
		demandSum = eAdd(demandSum, demand)
		c.cachedDemand[prev] = demand
		prev = node
		c.index[node] = index
		index++
		c.riq[0] = append(c.riq[0], riqNode{
			cumulsToFst:  c.nodeCapacity[node],
			tightestTsum: demandSum,
			cumulsToLst:  c.nodeCapacity[node],
			tsumAtFst:    demandSum,
			tsumAtLst:    demandSum,
		})
	}
	c.cachedDemand[c.pathState.End(path)] = extendedInterval{}
}

// updateRIQStructure builds the upper layers over the freshly appended
// layer-0 range [beginIndex, endIndex). Layer l entries merge a forward
// half-window F and a last half-window L of layer l-1.
func (c *DimensionChecker) updateRIQStructure(beginIndex, endIndex int) {
	maxLayer := mostSignificantBit(endIndex - beginIndex - 1)
	for layer, halfWindow := 1, 1; layer <= maxLayer; layer, halfWindow = layer+1, halfWindow*2 {
		for len(c.riq[layer]) < endIndex {
			c.riq[layer] = append(c.riq[layer], riqNode{})
		}
		for i := beginIndex + 2*halfWindow - 1; i < endIndex; i++ {
			// riq[layer][i] covers (i - 2*halfWindow, i]: the F-window
			// (i - 2*halfWindow, i - halfWindow] and the L-window
			// (i - halfWindow, i] of the layer below.
			fw := c.riq[layer-1][i-halfWindow]
			lw := c.riq[layer-1][i]
			lstToLst := eDelta(fw.tsumAtLst, lw.tsumAtLst)
			fstToFst := eDelta(fw.tsumAtFst, lw.tsumAtFst)
			c.riq[layer][i] = riqNode{
				cumulsToFst:  eIntersect(fw.cumulsToFst, eSub(lw.cumulsToFst, fstToFst)),
				tightestTsum: eIntersect(fw.tightestTsum, lw.tightestTsum),
				cumulsToLst:  eIntersect(eAdd(fw.cumulsToLst, lstToLst), lw.cumulsToLst),
				tsumAtFst:    fw.tsumAtFst,
				tsumAtLst:    lw.tsumAtLst,
			}
		}
	}
}

// updateCumulUsingChainRIQ transports the reachable cumul set from the node
// at firstIndex to the node at lastIndex in one step, decomposing the range
// into the F window [firstIndex, firstIndex+window) and the L window
// (lastIndex-window, lastIndex].
func (c *DimensionChecker) updateCumulUsingChainRIQ(
	firstIndex, lastIndex int,
	pathCapacity, cumul extendedInterval,
) extendedInterval {
	layer := mostSignificantBit(lastIndex - firstIndex)
	window := 1 << layer
	fw := c.riq[layer][firstIndex+window-1]
	lw := c.riq[layer][lastIndex]

	// Cumul values able to reach the last node.
	cumul = eIntersect(cumul, fw.cumulsToFst)
	cumul = eIntersect(cumul, eSub(lw.cumulsToFst, eDelta(fw.tsumAtFst, lw.tsumAtFst)))
	cumul = eIntersect(cumul,
		eSub(pathCapacity, eDelta(fw.tsumAtFst, eIntersect(fw.tightestTsum, lw.tightestTsum))))
	// Emptiness must be checked before widening by the transit.
	if cumul.isEmpty() {
		return cumul
	}
	// Transit to the last node.
	cumul = eAdd(cumul, eDelta(fw.tsumAtFst, lw.tsumAtLst))
	// Cumul values reachable from the first node.
	cumul = eIntersect(cumul, eAdd(fw.cumulsToLst, eDelta(fw.tsumAtLst, lw.tsumAtLst)))
	cumul = eIntersect(cumul, lw.cumulsToLst)
	return cumul
}

// DimensionFilter adapts a DimensionChecker to the Filter contract.
type DimensionFilter struct {
	BaseFilter
	checker *DimensionChecker
}

// NewDimensionFilter wraps checker into a filter named after the dimension.
func NewDimensionFilter(checker *DimensionChecker, dimensionName string) *DimensionFilter {
	return &DimensionFilter{
		BaseFilter: NewBaseFilter("DimensionFilter(" + dimensionName + ")"),
		checker:    checker,
	}
}

// Accept implements Filter.
func (f *DimensionFilter) Accept(_, _ *routing.Assignment, _, _ int64) bool {
	return f.checker.Check()
}

// Synchronize implements Filter.
func (f *DimensionFilter) Synchronize(_, _ *routing.Assignment) {
	f.checker.Commit()
}
