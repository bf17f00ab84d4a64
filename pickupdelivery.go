package routefilter

import (
	"github.com/hupe1980/routefilter/revertible"
	"github.com/hupe1980/routefilter/routing"
)

// PickupDeliveryFilter checks pickup-before-delivery on every touched path,
// under each vehicle's visiting discipline: no order, LIFO (stack) or FIFO
// (queue). Alternatives are respected and sub-cycles rejected.
type PickupDeliveryFilter struct {
	*BasePathFilter
	NoopPathHooks

	pairFirsts  []int
	pairSeconds []int
	pairs       []routing.PickupDeliveryPair
	visited     *revertible.SparseBitset
	deque       []int
}

// NewPickupDeliveryFilter returns a filter over the model's pickup and
// delivery pairs.
func NewPickupDeliveryFilter(model *routing.Model) *PickupDeliveryFilter {
	f := &PickupDeliveryFilter{
		pairFirsts:  make([]int, model.NumIndices()),
		pairSeconds: make([]int, model.NumIndices()),
		pairs:       model.PickupDeliveryPairs(),
		visited:     revertible.NewSparseBitset(model.Size()),
	}
	for i := range f.pairFirsts {
		f.pairFirsts[i] = unassigned
		f.pairSeconds[i] = unassigned
	}
	for i, pair := range f.pairs {
		for _, first := range pair.PickupAlternatives {
			f.pairFirsts[first] = i
		}
		for _, second := range pair.DeliveryAlternatives {
			f.pairSeconds[second] = i
		}
	}
	f.BasePathFilter = NewBasePathFilter("PickupDeliveryFilter", model, f)
	return f
}

// AcceptPath implements PathFilterHooks.
func (f *PickupDeliveryFilter) AcceptPath(pathStart, _, _ int) bool {
	switch f.Model().PickupDeliveryPolicyOfVehicle(f.Model().VehicleIndex(pathStart)) {
	case routing.PickupDeliveryLIFO:
		return f.acceptPathOrdered(pathStart, true)
	case routing.PickupDeliveryFIFO:
		return f.acceptPathOrdered(pathStart, false)
	default:
		return f.acceptPathDefault(pathStart)
	}
}

func (f *PickupDeliveryFilter) acceptPathDefault(pathStart int) bool {
	f.visited.SparseClearAll()
	node := pathStart
	pathLength := 1
	for node < f.Size() {
		// Detect sub-cycles: the path cannot be longer than the model.
		if pathLength > f.Size() {
			return false
		}
		if pair := f.pairFirsts[node]; pair != unassigned {
			// Checking pair firsts is redundant with the pair-seconds check
			// below, but cuts infeasible paths earlier.
			for _, second := range f.pairs[pair].DeliveryAlternatives {
				if f.visited.Test(second) {
					return false
				}
			}
		}
		if pair := f.pairSeconds[node]; pair != unassigned {
			foundFirst := false
			someSynced := false
			for _, first := range f.pairs[pair].PickupAlternatives {
				if f.visited.Test(first) {
					foundFirst = true
					break
				}
				if f.IsVarSynced(first) {
					someSynced = true
				}
			}
			if !foundFirst && someSynced {
				return false
			}
		}
		f.visited.Set(node)
		next := f.GetNext(node)
		if next == unassigned {
			// LNS detected; the path was fine up to here.
			return true
		}
		node = next
		pathLength++
	}
	for _, node := range f.visited.PositionsSetAtLeastOnce() {
		pair := f.pairFirsts[node]
		if pair == unassigned {
			continue
		}
		foundSecond := false
		someSynced := false
		for _, second := range f.pairs[pair].DeliveryAlternatives {
			if f.visited.Test(second) {
				foundSecond = true
				break
			}
			if f.IsVarSynced(second) {
				someSynced = true
			}
		}
		if !foundSecond && someSynced {
			return false
		}
	}
	return true
}

func (f *PickupDeliveryFilter) acceptPathOrdered(pathStart int, lifo bool) bool {
	f.deque = f.deque[:0]
	node := pathStart
	pathLength := 1
	for node < f.Size() {
		if pathLength > f.Size() {
			return false
		}
		if f.pairFirsts[node] != unassigned {
			if lifo {
				f.deque = append(f.deque, node)
			} else {
				f.deque = append([]int{node}, f.deque...)
			}
		}
		if pair := f.pairSeconds[node]; pair != unassigned {
			foundFirst := false
			someSynced := false
			for _, first := range f.pairs[pair].PickupAlternatives {
				if len(f.deque) > 0 && f.deque[len(f.deque)-1] == first {
					foundFirst = true
					break
				}
				if f.IsVarSynced(first) {
					someSynced = true
				}
			}
			if !foundFirst && someSynced {
				return false
			}
			if len(f.deque) > 0 {
				f.deque = f.deque[:len(f.deque)-1]
			}
		}
		next := f.GetNext(node)
		if next == unassigned {
			// LNS detected; the path was fine up to here.
			return true
		}
		node = next
		pathLength++
	}
	for len(f.deque) > 0 {
		pair := f.pairFirsts[f.deque[len(f.deque)-1]]
		for _, second := range f.pairs[pair].DeliveryAlternatives {
			if f.IsVarSynced(second) {
				return false
			}
		}
		f.deque = f.deque[:len(f.deque)-1]
	}
	return true
}
