// Package revertible provides the small committable containers that back
// every filter's incremental state: a vector with revertible per-index edits
// and a bitset with sparse clearing. A candidate neighbor mutates state
// through these containers only, so an abandoned neighbor costs O(delta) to
// undo.
package revertible

// Vector is an array of values with a committed snapshot and a set of
// tentative per-index edits. Reads prefer the tentative value; Commit
// promotes edits to the snapshot and Revert drops them.
type Vector[T any] struct {
	committed []T
	current   []T
	changed   []int
	isChanged []bool
}

// NewVector returns a Vector of n elements, all set to initial, committed.
func NewVector[T any](n int, initial T) *Vector[T] {
	v := &Vector[T]{
		committed: make([]T, n),
		current:   make([]T, n),
		isChanged: make([]bool, n),
	}
	for i := range v.committed {
		v.committed[i] = initial
		v.current[i] = initial
	}
	return v
}

// Len returns the number of elements.
func (v *Vector[T]) Len() int { return len(v.current) }

// Get returns the tentative value at i, or the committed one if unchanged.
func (v *Vector[T]) Get(i int) T { return v.current[i] }

// GetCommitted returns the committed value at i, ignoring tentative edits.
func (v *Vector[T]) GetCommitted(i int) T { return v.committed[i] }

// Set records a tentative edit at i.
func (v *Vector[T]) Set(i int, value T) {
	if !v.isChanged[i] {
		v.isChanged[i] = true
		v.changed = append(v.changed, i)
	}
	v.current[i] = value
}

// ChangedIndices returns the indices edited since the last Commit or Revert,
// each listed once, in first-edit order.
func (v *Vector[T]) ChangedIndices() []int { return v.changed }

// Commit promotes all tentative edits into the committed snapshot.
func (v *Vector[T]) Commit() {
	for _, i := range v.changed {
		v.committed[i] = v.current[i]
		v.isChanged[i] = false
	}
	v.changed = v.changed[:0]
}

// Revert drops all tentative edits.
func (v *Vector[T]) Revert() {
	for _, i := range v.changed {
		v.current[i] = v.committed[i]
		v.isChanged[i] = false
	}
	v.changed = v.changed[:0]
}
