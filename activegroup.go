package routefilter

import (
	"github.com/hupe1980/routefilter/revertible"
	"github.com/hupe1980/routefilter/routing"
)

type activityCounts struct {
	active  int
	unknown int
}

// ActiveNodeGroupFilter enforces groups of nodes that must be all active or
// all inactive. Per group it tracks how many nodes are active and how many
// are unbound; a candidate passes iff each group's active count is zero or
// can still reach the group size.
type ActiveNodeGroupFilter struct {
	BaseFilter
	model  *routing.Model
	nexts  syncedNexts
	counts *revertible.Vector[activityCounts]
	// nodeIsActive and nodeIsUnknown describe node state at the last
	// synchronization.
	nodeIsActive  []bool
	nodeIsUnknown []bool
}

// NewActiveNodeGroupFilter returns a filter over the model's same-activity
// groups.
func NewActiveNodeGroupFilter(model *routing.Model) *ActiveNodeGroupFilter {
	return &ActiveNodeGroupFilter{
		BaseFilter:    NewBaseFilter("ActiveNodeGroupFilter"),
		model:         model,
		nexts:         newSyncedNexts(model.Size()),
		counts:        revertible.NewVector(model.NumSameActivityGroups(), activityCounts{}),
		nodeIsActive:  make([]bool, model.Size()),
		nodeIsUnknown: make([]bool, model.Size()),
	}
}

// Accept implements Filter.
func (f *ActiveNodeGroupFilter) Accept(delta, _ *routing.Assignment, _, _ int64) bool {
	f.counts.Revert()
	for _, element := range delta.Elements() {
		index := element.Index
		if index < 0 || index >= f.nexts.size() {
			continue
		}
		group := f.model.SameActivityGroupOfNode(index)
		if group == unassigned {
			continue
		}
		counts := f.counts.Get(group)
		// Replace the node's old contribution by its new one.
		if f.nodeIsUnknown[index] {
			counts.unknown--
		}
		if f.nodeIsActive[index] {
			counts.active--
		}
		if !element.Bound() {
			counts.unknown++
		} else if int(element.Value()) != index {
			counts.active++
		}
		f.counts.Set(group, counts)
	}
	for _, group := range f.counts.ChangedIndices() {
		counts := f.counts.Get(group)
		if counts.active == 0 {
			continue
		}
		groupSize := len(f.model.SameActivityNodesOfGroup(group))
		// The group is respected iff the group size lies within
		// [active, active+unknown].
		if counts.active <= groupSize && groupSize <= counts.active+counts.unknown {
			continue
		}
		return false
	}
	return true
}

// Synchronize implements Filter.
func (f *ActiveNodeGroupFilter) Synchronize(assignment, delta *routing.Assignment) {
	f.nexts.synchronize(assignment, delta)
	f.counts.Revert()
	for group := 0; group < f.model.NumSameActivityGroups(); group++ {
		counts := activityCounts{}
		for _, node := range f.model.SameActivityNodesOfGroup(group) {
			if f.nexts.isSynced(node) {
				isActive := f.nexts.value(node) != node
				f.nodeIsActive[node] = isActive
				f.nodeIsUnknown[node] = false
				if isActive {
					counts.active++
				}
			} else {
				counts.unknown++
				f.nodeIsUnknown[node] = true
				f.nodeIsActive[node] = false
			}
		}
		f.counts.Set(group, counts)
	}
	f.counts.Commit()
}
