package routefilter

import (
	"math"
	"sort"

	"github.com/hupe1980/routefilter/pathstate"
	"github.com/hupe1980/routefilter/routing"
)

// PathStateFilter owns a PathState: at Relax it translates the delta's
// changed arcs into per-path chain lists and plays them into the state; at
// Synchronize it replays the change sequence and commits. Accept always
// passes, the state is read by the checkers layered on it.
//
// Register this filter after the checker filters reading its state: its
// Synchronize commits the state, which clears the changed-path lists those
// checkers commit from. Relax order does not matter, the manager relaxes
// every filter before any Accept.
type PathStateFilter struct {
	BaseFilter
	state       *pathstate.PathState
	numNextVars int

	changedPaths   []int
	pathHasChanged []bool
	changedArcs    [][2]int
	changedLoops   []int

	tailHeadIndices []tailHeadIndices
	arcsByTail      []indexArc
	arcsByHead      []indexArc
	nextArc         []int
	pathChains      []pathstate.ChainBounds

	nodeIsAssigned []bool
	loops          []int
}

type tailHeadIndices struct {
	tailIndex int
	headIndex int
}

type indexArc struct {
	index int
	arc   int
}

// NewPathStateFilter returns a filter owning state, reading next variables
// for the first numNextVars nodes.
func NewPathStateFilter(state *pathstate.PathState, numNextVars int) *PathStateFilter {
	return &PathStateFilter{
		BaseFilter:     NewBaseFilter("PathStateFilter"),
		state:          state,
		numNextVars:    numNextVars,
		pathHasChanged: make([]bool, state.NumPaths()),
	}
}

// State returns the owned path state.
func (f *PathStateFilter) State() *pathstate.PathState { return f.state }

// Relax implements Filter: it reverts the previous candidate and applies the
// new delta to the path state.
func (f *PathStateFilter) Relax(delta *routing.Assignment) {
	f.state.Revert()
	f.changedArcs = f.changedArcs[:0]
	for _, element := range delta.Elements() {
		node := element.Index
		if node < 0 || node >= f.numNextVars {
			continue
		}
		if !element.Bound() {
			f.state.Revert()
			f.state.SetInvalid()
			return
		}
		f.changedArcs = append(f.changedArcs, [2]int{node, int(element.Value())})
	}
	f.cutChains()
}

// Accept implements Filter.
func (f *PathStateFilter) Accept(_, _ *routing.Assignment, _, _ int64) bool { return true }

// Synchronize implements Filter. The search engine does not guarantee that a
// commit matches the previous Relax, so the change sequence is replayed.
func (f *PathStateFilter) Synchronize(assignment, delta *routing.Assignment) {
	f.state.Revert()
	if delta.Empty() {
		f.Relax(assignment)
	} else {
		f.Relax(delta)
	}
	f.state.Commit()
}

// Revert implements Filter.
func (f *PathStateFilter) Revert() { f.state.Revert() }

// Reset sets all paths to empty start->end paths and all other nodes to
// loops, then commits.
func (f *PathStateFilter) Reset() {
	f.state.Revert()
	numNodes := f.state.NumNodes()
	if f.nodeIsAssigned == nil {
		f.nodeIsAssigned = make([]bool, numNodes)
	}
	for i := range f.nodeIsAssigned {
		f.nodeIsAssigned[i] = false
	}
	f.loops = f.loops[:0]
	for path := 0; path < f.state.NumPaths(); path++ {
		bounds := f.state.CommittedPathRange(path)
		f.state.ChangePath(path, []pathstate.ChainBounds{
			{Begin: bounds.Begin, End: bounds.Begin + 1},
			{Begin: bounds.End - 1, End: bounds.End},
		})
		f.nodeIsAssigned[f.state.Start(path)] = true
		f.nodeIsAssigned[f.state.End(path)] = true
	}
	for node := 0; node < numNodes; node++ {
		if !f.nodeIsAssigned[node] {
			f.loops = append(f.loops, node)
		}
	}
	f.state.ChangeLoops(f.loops)
	f.state.Commit()
}

// cutChains filters out unchanged arcs, collects new loops and changed
// paths, and translates the remaining arcs into chain lists.
func (f *PathStateFilter) cutChains() {
	for _, path := range f.changedPaths {
		f.pathHasChanged[path] = false
	}
	f.changedPaths = f.changedPaths[:0]
	f.tailHeadIndices = f.tailHeadIndices[:0]
	f.changedLoops = f.changedLoops[:0]
	numChangedArcs := 0
	for _, arc := range f.changedArcs {
		node, next := arc[0], arc[1]
		nodeIndex := f.state.CommittedIndex(node)
		nextIndex := f.state.CommittedIndex(next)
		nodePath := f.state.Path(node)
		if next != node && (nextIndex != nodeIndex+1 || nodePath == -1) {
			// New arc.
			f.tailHeadIndices = append(f.tailHeadIndices,
				tailHeadIndices{tailIndex: nodeIndex, headIndex: nextIndex})
			f.changedArcs[numChangedArcs] = [2]int{node, next}
			numChangedArcs++
			if nodePath != -1 && !f.pathHasChanged[nodePath] {
				f.pathHasChanged[nodePath] = true
				f.changedPaths = append(f.changedPaths, nodePath)
			}
		} else if node == next && nodePath != -1 {
			// New loop.
			f.changedLoops = append(f.changedLoops, node)
		}
	}
	f.changedArcs = f.changedArcs[:numChangedArcs]

	f.state.ChangeLoops(f.changedLoops)
	if len(f.tailHeadIndices)+len(f.changedPaths) <= 8 {
		f.makeChainsWithSelectionAlgorithm()
	} else {
		f.makeChainsWithGenericAlgorithm()
	}
}

// makeChainsWithSelectionAlgorithm is O(changes^2), best for small change
// sets: for each path, repeatedly pick the smallest unvisited tail index at
// or after the current position.
func (f *PathStateFilter) makeChainsWithSelectionAlgorithm() {
	numVisited := 0
	numChangedArcs := len(f.tailHeadIndices)
	for _, path := range f.changedPaths {
		f.pathChains = f.pathChains[:0]
		bounds := f.state.CommittedPathRange(path)
		currentIndex := bounds.Begin
		for {
			selectedArc := -1
			selectedTailIndex := math.MaxInt
			for i := numVisited; i < numChangedArcs; i++ {
				tailIndex := f.tailHeadIndices[i].tailIndex
				if currentIndex <= tailIndex && tailIndex < selectedTailIndex {
					selectedArc = i
					selectedTailIndex = tailIndex
				}
			}
			if bounds.Begin <= currentIndex && currentIndex < bounds.End &&
				bounds.End <= selectedTailIndex {
				f.pathChains = append(f.pathChains,
					pathstate.ChainBounds{Begin: currentIndex, End: bounds.End})
				break
			}
			f.pathChains = append(f.pathChains,
				pathstate.ChainBounds{Begin: currentIndex, End: selectedTailIndex + 1})
			currentIndex = f.tailHeadIndices[selectedArc].headIndex
			f.tailHeadIndices[numVisited], f.tailHeadIndices[selectedArc] =
				f.tailHeadIndices[selectedArc], f.tailHeadIndices[numVisited]
			numVisited++
		}
		f.state.ChangePath(path, f.pathChains)
	}
}

// makeChainsWithGenericAlgorithm is O(sort(changes)): adding a fake end ->
// start arc per changed path, every chain runs from an arc head to an arc
// tail, and sorting heads and tails by index aligns each chain with its
// successor arc.
func (f *PathStateFilter) makeChainsWithGenericAlgorithm() {
	for _, path := range f.changedPaths {
		bounds := f.state.CommittedPathRange(path)
		f.tailHeadIndices = append(f.tailHeadIndices,
			tailHeadIndices{tailIndex: bounds.End - 1, headIndex: bounds.Begin})
	}

	numArcIndices := len(f.tailHeadIndices)
	f.arcsByTail = f.arcsByTail[:0]
	f.arcsByHead = f.arcsByHead[:0]
	for i := 0; i < numArcIndices; i++ {
		f.arcsByTail = append(f.arcsByTail, indexArc{index: f.tailHeadIndices[i].tailIndex, arc: i})
		f.arcsByHead = append(f.arcsByHead, indexArc{index: f.tailHeadIndices[i].headIndex, arc: i})
	}
	sort.Slice(f.arcsByTail, func(i, j int) bool { return f.arcsByTail[i].index < f.arcsByTail[j].index })
	sort.Slice(f.arcsByHead, func(i, j int) bool { return f.arcsByHead[i].index < f.arcsByHead[j].index })
	f.nextArc = f.nextArc[:0]
	for len(f.nextArc) < numArcIndices {
		f.nextArc = append(f.nextArc, 0)
	}
	for i := 0; i < numArcIndices; i++ {
		f.nextArc[f.arcsByHead[i].arc] = f.arcsByTail[i].arc
	}

	firstFakeArc := numArcIndices - len(f.changedPaths)
	for fakeArc := firstFakeArc; fakeArc < numArcIndices; fakeArc++ {
		f.pathChains = f.pathChains[:0]
		arc := fakeArc
		for {
			chainBegin := f.tailHeadIndices[arc].headIndex
			arc = f.nextArc[arc]
			chainEnd := f.tailHeadIndices[arc].tailIndex + 1
			f.pathChains = append(f.pathChains,
				pathstate.ChainBounds{Begin: chainBegin, End: chainEnd})
			if arc == fakeArc {
				break
			}
		}
		path := f.changedPaths[fakeArc-firstFakeArc]
		f.state.ChangePath(path, f.pathChains)
	}
}
