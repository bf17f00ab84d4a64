package routefilter

import (
	"github.com/hupe1980/routefilter/revertible"
	"github.com/hupe1980/routefilter/routing"
	"github.com/hupe1980/routefilter/satmath"
)

type disjunctionCounts struct {
	active   int
	inactive int
}

// NodeDisjunctionFilter enforces disjunction cardinalities and, when
// filterCost is set, maintains the penalty cost of missing active nodes as a
// lower bound on the candidate objective. Mandatory disjunctions (negative
// penalty) reject on any violation.
type NodeDisjunctionFilter struct {
	BaseFilter
	model      *routing.Model
	nexts      syncedNexts
	counts     *revertible.Vector[disjunctionCounts]
	filterCost bool
	mandatory  bool

	synchronizedObjectiveValue int64
	acceptedObjectiveValue     int64
}

// NewNodeDisjunctionFilter returns a filter over the model's disjunctions.
func NewNodeDisjunctionFilter(model *routing.Model, filterCost bool) *NodeDisjunctionFilter {
	return &NodeDisjunctionFilter{
		BaseFilter:                 NewBaseFilter("NodeDisjunctionFilter"),
		model:                      model,
		nexts:                      newSyncedNexts(model.Size()),
		counts:                     revertible.NewVector(model.NumDisjunctions(), disjunctionCounts{}),
		filterCost:                 filterCost,
		mandatory:                  model.HasMandatoryDisjunctions(),
		synchronizedObjectiveValue: satmath.MinInt64,
		acceptedObjectiveValue:     satmath.MinInt64,
	}
}

// SynchronizedObjectiveValue implements Filter.
func (f *NodeDisjunctionFilter) SynchronizedObjectiveValue() int64 {
	return f.synchronizedObjectiveValue
}

// AcceptedObjectiveValue implements Filter.
func (f *NodeDisjunctionFilter) AcceptedObjectiveValue() int64 {
	return f.acceptedObjectiveValue
}

// Accept implements Filter.
func (f *NodeDisjunctionFilter) Accept(delta, _ *routing.Assignment, _, objectiveMax int64) bool {
	f.counts.Revert()
	lnsDetected := false
	// Update the active/inactive counts of each modified disjunction.
	for _, element := range delta.Elements() {
		node := element.Index
		if node < 0 || node >= f.nexts.size() {
			continue
		}
		lnsDetected = lnsDetected || !element.Bound()
		isSynced := f.nexts.isSynced(node)
		wasActive := isSynced && f.nexts.value(node) != node
		isActive := int64(node) < element.Min || element.Max < int64(node)
		activeDelta, inactiveDelta := 0, 0
		if isSynced {
			if wasActive {
				activeDelta--
			} else {
				inactiveDelta--
			}
		}
		if isActive {
			activeDelta++
		} else {
			inactiveDelta++
		}
		// Neutral changes leave all counts alone.
		if activeDelta == 0 && inactiveDelta == 0 {
			continue
		}
		for _, disjunction := range f.model.DisjunctionsOfNode(node) {
			counts := f.counts.Get(disjunction)
			counts.active += activeDelta
			counts.inactive += inactiveDelta
			f.counts.Set(disjunction, counts)
		}
	}
	// Cardinality check.
	for _, index := range f.counts.ChangedIndices() {
		if f.counts.Get(index).active > f.model.Disjunction(index).MaxCardinality {
			return false
		}
	}
	if lnsDetected || (!f.filterCost && !f.mandatory) {
		f.acceptedObjectiveValue = 0
		return true
	}
	// Update penalty costs of the changed disjunctions.
	f.acceptedObjectiveValue = f.synchronizedObjectiveValue
	for _, index := range f.counts.ChangedIndices() {
		oldInactives := f.counts.GetCommitted(index).inactive
		newInactives := f.counts.Get(index).inactive
		if oldInactives == newInactives {
			continue
		}
		disjunction := f.model.Disjunction(index)
		if disjunction.Penalty == 0 {
			continue
		}
		maxInactives := len(disjunction.Nodes) - disjunction.MaxCardinality
		newViolation := max(0, newInactives-maxInactives)
		oldViolation := max(0, oldInactives-maxInactives)
		// Mandatory disjunctions admit no violation at all.
		if disjunction.Penalty < 0 && newViolation > 0 {
			return false
		}
		if disjunction.PenaltyCostBehavior == routing.PenalizeOnce {
			newViolation = min(1, newViolation)
			oldViolation = min(1, oldViolation)
		}
		satmath.AddTo(
			satmath.Mul(disjunction.Penalty, int64(newViolation-oldViolation)),
			&f.acceptedObjectiveValue,
		)
	}
	// Only compare against the max: the value is a lower bound.
	return f.acceptedObjectiveValue <= objectiveMax
}

// Synchronize implements Filter.
func (f *NodeDisjunctionFilter) Synchronize(assignment, delta *routing.Assignment) {
	f.nexts.synchronize(assignment, delta)
	f.synchronizedObjectiveValue = 0
	f.counts.Revert()
	for index := 0; index < f.model.NumDisjunctions(); index++ {
		disjunction := f.model.Disjunction(index)
		counts := disjunctionCounts{}
		for _, node := range disjunction.Nodes {
			if !f.nexts.isSynced(node) {
				continue
			}
			if f.nexts.value(node) != node {
				counts.active++
			} else {
				counts.inactive++
			}
		}
		f.counts.Set(index, counts)
		if !f.filterCost {
			continue
		}
		violation := counts.inactive - (len(disjunction.Nodes) - disjunction.MaxCardinality)
		if violation > 0 && disjunction.Penalty > 0 {
			if disjunction.PenaltyCostBehavior == routing.PenalizeOnce {
				violation = min(1, violation)
			}
			satmath.AddTo(
				satmath.Mul(disjunction.Penalty, int64(violation)),
				&f.synchronizedObjectiveValue,
			)
		}
	}
	f.counts.Commit()
	f.acceptedObjectiveValue = f.synchronizedObjectiveValue
}
