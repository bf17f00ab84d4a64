package revertible

import "github.com/bits-and-blooms/bitset"

// SparseBitset is a fixed-universe bitset that remembers which positions
// were set since the last clear, so clearing costs O(touched) instead of
// O(universe). PositionsSetAtLeastOnce keeps a position even if it was
// cleared again in between, matching the scratch-set usage in filters.
type SparseBitset struct {
	bits    *bitset.BitSet
	touched []int
}

// NewSparseBitset returns an empty bitset over the universe [0, n).
func NewSparseBitset(n int) *SparseBitset {
	return &SparseBitset{bits: bitset.New(uint(n))}
}

// Set sets bit i.
func (s *SparseBitset) Set(i int) {
	if !s.bits.Test(uint(i)) {
		s.bits.Set(uint(i))
		s.touched = append(s.touched, i)
	}
}

// Test reports whether bit i is set.
func (s *SparseBitset) Test(i int) bool { return s.bits.Test(uint(i)) }

// Clear clears bit i. The position stays in PositionsSetAtLeastOnce.
func (s *SparseBitset) Clear(i int) { s.bits.Clear(uint(i)) }

// PositionsSetAtLeastOnce returns every position set since the last
// SparseClearAll or ClearAll, in first-set order.
func (s *SparseBitset) PositionsSetAtLeastOnce() []int { return s.touched }

// SparseClearAll clears only the touched positions and forgets them.
func (s *SparseBitset) SparseClearAll() {
	for _, i := range s.touched {
		s.bits.Clear(uint(i))
	}
	s.touched = s.touched[:0]
}

// ClearAll clears the whole universe and forgets touched positions.
func (s *SparseBitset) ClearAll() {
	s.bits.ClearAll()
	s.touched = s.touched[:0]
}
