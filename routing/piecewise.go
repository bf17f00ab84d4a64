package routing

import (
	"sort"

	"github.com/hupe1980/routefilter/satmath"
)

// PiecewiseSegment is one linear piece: for x >= Start the value is
// Value + Slope * (x - Start), until the next segment takes over.
type PiecewiseSegment struct {
	Start int64
	Value int64
	Slope int64
}

// PiecewiseLinearFunction is a right-continuous piecewise-linear function
// used for cumul-dependent node costs. Left of the first segment the
// function evaluates to the first segment's value at its start.
type PiecewiseLinearFunction struct {
	segments []PiecewiseSegment
}

// NewPiecewiseLinearFunction builds a function from segments; segments are
// sorted by start.
func NewPiecewiseLinearFunction(segments []PiecewiseSegment) *PiecewiseLinearFunction {
	if len(segments) == 0 {
		panic("routing: piecewise linear function needs at least one segment")
	}
	sorted := append([]PiecewiseSegment(nil), segments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &PiecewiseLinearFunction{segments: sorted}
}

// Value evaluates the function at x with saturating arithmetic.
func (f *PiecewiseLinearFunction) Value(x int64) int64 {
	i := sort.Search(len(f.segments), func(i int) bool { return f.segments[i].Start > x })
	if i == 0 {
		return f.segments[0].Value
	}
	seg := f.segments[i-1]
	return satmath.Add(seg.Value, satmath.Mul(seg.Slope, satmath.Sub(x, seg.Start)))
}
