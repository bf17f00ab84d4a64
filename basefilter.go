package routefilter

import (
	"github.com/hupe1980/routefilter/revertible"
	"github.com/hupe1980/routefilter/routing"
)

const unassigned = routing.Unassigned

// PathFilterHooks is the per-filter behavior plugged into the BasePathFilter
// skeleton. Embed NoopPathHooks to get empty defaults.
type PathFilterHooks interface {
	// OnSynchronizePathFromStart is called for each synchronized path, after
	// its ranks are up to date.
	OnSynchronizePathFromStart(start int)
	// OnBeforeSynchronizePaths is called before any path is synchronized.
	OnBeforeSynchronizePaths()
	// OnAfterSynchronizePaths is called after all paths are synchronized.
	OnAfterSynchronizePaths()
	// InitializeAcceptPath resets per-candidate state; false rejects.
	InitializeAcceptPath() bool
	// AcceptPath checks one touched path; the chain window
	// [chainStart, chainEnd] contains all touched arcs of the path.
	AcceptPath(pathStart, chainStart, chainEnd int) bool
	// FinalizeAcceptPath concludes the candidate after all touched paths
	// were accepted.
	FinalizeAcceptPath(objectiveMin, objectiveMax int64) bool
	// DisableFiltering is evaluated on the first synchronization; a true
	// return disables the filter permanently.
	DisableFiltering() bool
}

// NoopPathHooks provides default empty implementations of PathFilterHooks.
type NoopPathHooks struct{}

// OnSynchronizePathFromStart implements PathFilterHooks.
func (NoopPathHooks) OnSynchronizePathFromStart(int) {}

// OnBeforeSynchronizePaths implements PathFilterHooks.
func (NoopPathHooks) OnBeforeSynchronizePaths() {}

// OnAfterSynchronizePaths implements PathFilterHooks.
func (NoopPathHooks) OnAfterSynchronizePaths() {}

// InitializeAcceptPath implements PathFilterHooks.
func (NoopPathHooks) InitializeAcceptPath() bool { return true }

// AcceptPath implements PathFilterHooks.
func (NoopPathHooks) AcceptPath(int, int, int) bool { return true }

// FinalizeAcceptPath implements PathFilterHooks.
func (NoopPathHooks) FinalizeAcceptPath(int64, int64) bool { return true }

// DisableFiltering implements PathFilterHooks.
func (NoopPathHooks) DisableFiltering() bool { return false }

type filterStatus int

const (
	statusUnknown filterStatus = iota
	statusEnabled
	statusDisabled
)

// BasePathFilter is the reusable path-filter skeleton: it decomposes a delta
// into touched paths with per-path chain windows and drives the hooks. Each
// touched path gets exactly one AcceptPath call per Accept, the chain window
// contains all touched arcs of that path, and ranks are monotone along every
// committed path.
type BasePathFilter struct {
	BaseFilter
	model *routing.Model
	nexts syncedNexts
	hooks PathFilterHooks

	// nodePathStarts maps node -> start of its committed path, unassigned
	// for nodes off any path.
	nodePathStarts []int
	newSyncedUnperformed *revertible.SparseBitset

	// Per-candidate scratch.
	newNexts     []int
	deltaTouched []int
	touchedPaths *revertible.SparseBitset
	// touchedChains maps path start -> [chainStart, chainEnd].
	touchedChains [][2]int

	ranks      []int
	ranksValid bool
	status     filterStatus
	lns        bool
}

// NewBasePathFilter returns a skeleton over the model's next variables,
// dispatching to hooks.
func NewBasePathFilter(name string, model *routing.Model, hooks PathFilterHooks) *BasePathFilter {
	size := model.Size()
	domain := model.NumIndices()
	f := &BasePathFilter{
		BaseFilter:           NewBaseFilter(name),
		model:                model,
		nexts:                newSyncedNexts(size),
		hooks:                hooks,
		nodePathStarts:       make([]int, domain),
		newSyncedUnperformed: revertible.NewSparseBitset(size),
		newNexts:             make([]int, size),
		touchedPaths:         revertible.NewSparseBitset(size),
		touchedChains:        make([][2]int, size),
		ranks:                make([]int, domain),
	}
	for i := range f.nodePathStarts {
		f.nodePathStarts[i] = unassigned
		f.ranks[i] = unassigned
	}
	for i := range f.newNexts {
		f.newNexts[i] = unassigned
		f.touchedChains[i] = [2]int{unassigned, unassigned}
	}
	return f
}

// Model returns the routing model.
func (f *BasePathFilter) Model() *routing.Model { return f.model }

// Size returns the number of next variables.
func (f *BasePathFilter) Size() int { return f.nexts.size() }

// NumPaths returns the number of paths (one per vehicle).
func (f *BasePathFilter) NumPaths() int { return f.model.NumVehicles() }

// Start returns the start node of path.
func (f *BasePathFilter) Start(path int) int { return f.model.Start(path) }

// End returns the end node of path.
func (f *BasePathFilter) End(path int) int { return f.model.End(path) }

// Value returns the committed next of node.
func (f *BasePathFilter) Value(node int) int { return f.nexts.value(node) }

// IsVarSynced reports whether node's next variable is bound in the committed
// solution.
func (f *BasePathFilter) IsVarSynced(node int) bool { return f.nexts.isSynced(node) }

// GetNext returns the candidate next of node: the delta value if node is
// touched, the committed value otherwise, unassigned when neither is bound.
func (f *BasePathFilter) GetNext(node int) int {
	if f.newNexts[node] != unassigned {
		return f.newNexts[node]
	}
	if !f.nexts.isSynced(node) {
		return unassigned
	}
	return f.nexts.value(node)
}

// Rank returns node's position on its committed path.
func (f *BasePathFilter) Rank(node int) int { return f.ranks[node] }

// IsDisabled reports whether the filter disabled itself.
func (f *BasePathFilter) IsDisabled() bool { return f.status == statusDisabled }

// LNSDetected reports whether the last Accept saw an unbound variable.
func (f *BasePathFilter) LNSDetected() bool { return f.lns }

// TouchedPathStarts returns the starts of paths touched by the last Accept.
func (f *BasePathFilter) TouchedPathStarts() []int {
	return f.touchedPaths.PositionsSetAtLeastOnce()
}

// PathStartTouched reports whether the path starting at start was touched by
// the last Accept.
func (f *BasePathFilter) PathStartTouched(start int) bool { return f.touchedPaths.Test(start) }

// NewSynchronizedUnperformedNodes returns the nodes that became unperformed
// during the last synchronization.
func (f *BasePathFilter) NewSynchronizedUnperformedNodes() []int {
	return f.newSyncedUnperformed.PositionsSetAtLeastOnce()
}

// HasAnySyncedPath reports whether at least one path start is synced.
func (f *BasePathFilter) HasAnySyncedPath() bool {
	for path := 0; path < f.NumPaths(); path++ {
		if f.nexts.isSynced(f.model.Start(path)) {
			return true
		}
	}
	return false
}

// Accept implements Filter.
func (f *BasePathFilter) Accept(delta, _ *routing.Assignment, objectiveMin, objectiveMax int64) bool {
	if f.IsDisabled() {
		return true
	}
	f.lns = false
	for _, touched := range f.deltaTouched {
		f.newNexts[touched] = unassigned
	}
	f.deltaTouched = f.deltaTouched[:0]
	// Determine touched paths and their chain windows: a node is touched if
	// it is an element of the delta or an element of the delta points to it.
	// The window bounds are the min- and max-rank touched nodes that stayed
	// on the path.
	for _, start := range f.touchedPaths.PositionsSetAtLeastOnce() {
		f.touchedChains[start] = [2]int{unassigned, unassigned}
	}
	f.touchedPaths.SparseClearAll()

	updateWindow := func(index int) {
		start := f.nodePathStarts[index]
		if start == unassigned {
			return
		}
		f.touchedPaths.Set(start)
		window := &f.touchedChains[start]
		if window[0] == unassigned || f.model.IsStart(index) || f.ranks[index] < f.ranks[window[0]] {
			window[0] = index
		}
		if window[1] == unassigned || f.model.IsEnd(index) || f.ranks[index] > f.ranks[window[1]] {
			window[1] = index
		}
	}

	for _, element := range delta.Elements() {
		index := element.Index
		if index < 0 || index >= f.nexts.size() {
			continue
		}
		if !element.Bound() {
			f.lns = true
			return true
		}
		f.newNexts[index] = int(element.Value())
		f.deltaTouched = append(f.deltaTouched, index)
		updateWindow(index)
		updateWindow(f.newNexts[index])
	}
	if !f.hooks.InitializeAcceptPath() {
		return false
	}
	for _, start := range f.touchedPaths.PositionsSetAtLeastOnce() {
		window := f.touchedChains[start]
		if !f.hooks.AcceptPath(start, window[0], window[1]) {
			return false
		}
	}
	// FinalizeAcceptPath only runs when every touched path was accepted.
	return f.hooks.FinalizeAcceptPath(objectiveMin, objectiveMax)
}

// Synchronize implements Filter.
func (f *BasePathFilter) Synchronize(assignment, delta *routing.Assignment) {
	f.nexts.synchronize(assignment, delta)
	if f.status == statusUnknown {
		if f.hooks.DisableFiltering() {
			f.status = statusDisabled
		} else {
			f.status = statusEnabled
		}
	}
	if f.IsDisabled() {
		return
	}
	f.newSyncedUnperformed.ClearAll()
	if delta.Empty() || !f.ranksValid {
		f.synchronizeFullAssignment()
		return
	}
	f.touchedPaths.SparseClearAll()
	for _, element := range delta.Elements() {
		index := element.Index
		if index < 0 || index >= f.nexts.size() {
			continue
		}
		start := f.nodePathStarts[index]
		if start == unassigned {
			continue
		}
		f.touchedPaths.Set(start)
		if f.nexts.isSynced(index) && f.nexts.value(index) == index {
			// Node newly unperformed; its previous start was assigned.
			f.newSyncedUnperformed.Set(index)
			f.nodePathStarts[index] = unassigned
		}
	}
	for _, touched := range f.deltaTouched {
		f.newNexts[touched] = unassigned
	}
	f.deltaTouched = f.deltaTouched[:0]
	f.hooks.OnBeforeSynchronizePaths()
	for _, start := range f.touchedPaths.PositionsSetAtLeastOnce() {
		node := start
		for node < f.nexts.size() {
			f.nodePathStarts[node] = start
			node = f.nexts.value(node)
		}
		f.nodePathStarts[node] = start
		f.updatePathRanksFromStart(start)
		f.hooks.OnSynchronizePathFromStart(start)
	}
	f.hooks.OnAfterSynchronizePaths()
}

func (f *BasePathFilter) synchronizeFullAssignment() {
	for index := 0; index < f.nexts.size(); index++ {
		if f.nexts.isSynced(index) && f.nexts.value(index) == index &&
			f.nodePathStarts[index] != unassigned {
			// Node was performed before and is now unperformed.
			f.newSyncedUnperformed.Set(index)
		}
	}
	for i := range f.nodePathStarts {
		f.nodePathStarts[i] = unassigned
	}
	size := f.nexts.size()
	for path := 0; path < f.NumPaths(); path++ {
		start := f.Start(path)
		f.nodePathStarts[start] = start
		if f.nexts.isSynced(start) {
			next := f.nexts.value(start)
			for next < size {
				node := next
				f.nodePathStarts[node] = start
				next = f.nexts.value(node)
			}
			f.nodePathStarts[next] = start
		}
		f.nodePathStarts[f.End(path)] = start
	}
	for _, touched := range f.deltaTouched {
		f.newNexts[touched] = unassigned
	}
	f.deltaTouched = f.deltaTouched[:0]
	f.hooks.OnBeforeSynchronizePaths()
	f.updateAllRanks()
	f.hooks.OnAfterSynchronizePaths()
}

func (f *BasePathFilter) updateAllRanks() {
	for i := range f.ranks {
		f.ranks[i] = unassigned
	}
	for path := 0; path < f.NumPaths(); path++ {
		start := f.Start(path)
		if !f.nexts.isSynced(start) {
			continue
		}
		f.updatePathRanksFromStart(start)
		f.hooks.OnSynchronizePathFromStart(start)
	}
	f.ranksValid = true
}

func (f *BasePathFilter) updatePathRanksFromStart(start int) {
	rank := 0
	node := start
	for node < f.nexts.size() {
		f.ranks[node] = rank
		rank++
		node = f.nexts.value(node)
	}
	f.ranks[node] = rank
}
