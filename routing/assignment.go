package routing

// Element is one next-variable entry of an assignment or delta. The value is
// a domain [Min, Max]; a bound element has Min == Max. An unbound element in
// a delta signals large-neighborhood search.
type Element struct {
	Index       int
	Min         int64
	Max         int64
	Deactivated bool
}

// Bound reports whether the element's domain is a single value.
func (e Element) Bound() bool { return e.Min == e.Max }

// Value returns the element's value; meaningful only when Bound.
func (e Element) Value() int64 { return e.Min }

// Assignment is a sparse set of next-variable values: either a full solution
// snapshot or the delta a search engine proposes for one candidate neighbor.
type Assignment struct {
	elements []Element
}

// NewAssignment returns an empty assignment.
func NewAssignment() *Assignment { return &Assignment{} }

// Add appends a bound element.
func (a *Assignment) Add(index int, value int64) *Assignment {
	a.elements = append(a.elements, Element{Index: index, Min: value, Max: value})
	return a
}

// AddRange appends an element with domain [min, max]. Deltas with unbound
// elements put filters in LNS mode.
func (a *Assignment) AddRange(index int, min, max int64) *Assignment {
	a.elements = append(a.elements, Element{Index: index, Min: min, Max: max})
	return a
}

// AddDeactivated appends a deactivated element; the variable is treated as
// unassigned by synchronization.
func (a *Assignment) AddDeactivated(index int) *Assignment {
	a.elements = append(a.elements, Element{Index: index, Deactivated: true})
	return a
}

// Elements returns the assignment's elements in insertion order.
func (a *Assignment) Elements() []Element {
	if a == nil {
		return nil
	}
	return a.elements
}

// Empty reports whether the assignment has no elements.
func (a *Assignment) Empty() bool { return a == nil || len(a.elements) == 0 }

// Clear removes all elements.
func (a *Assignment) Clear() { a.elements = a.elements[:0] }
