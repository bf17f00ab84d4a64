package routefilter

import "github.com/hupe1980/routefilter/routing"

// syncedNexts is the committed snapshot of the next variables. A variable is
// synced when the last synchronized solution bound it.
type syncedNexts struct {
	values []int
	synced []bool
}

func newSyncedNexts(size int) syncedNexts {
	return syncedNexts{
		values: make([]int, size),
		synced: make([]bool, size),
	}
}

func (s *syncedNexts) size() int { return len(s.values) }

func (s *syncedNexts) value(i int) int { return s.values[i] }

func (s *syncedNexts) isSynced(i int) bool { return s.synced[i] }

func (s *syncedNexts) apply(a *routing.Assignment) {
	for _, element := range a.Elements() {
		if element.Index < 0 || element.Index >= len(s.values) {
			continue
		}
		if element.Deactivated || !element.Bound() {
			s.synced[element.Index] = false
			continue
		}
		s.values[element.Index] = int(element.Value())
		s.synced[element.Index] = true
	}
}

// synchronize updates the snapshot: a non-empty delta patches the changed
// variables only, otherwise the full assignment is reloaded.
func (s *syncedNexts) synchronize(assignment, delta *routing.Assignment) {
	if !delta.Empty() {
		s.apply(delta)
		return
	}
	for i := range s.synced {
		s.synced[i] = false
	}
	s.apply(assignment)
}
