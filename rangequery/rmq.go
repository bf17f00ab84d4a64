// Package rangequery provides the append-only range-query structures used by
// path cost checkers: a sparse-table range-minimum query and a weighted
// wavelet tree answering range sums restricted to heights above a threshold.
//
// Both structures grow in batches: values for one path are appended, then
// the table (or subtree) for that batch is built in one call. Queries never
// span two batches, which keeps incremental extension cheap.
package rangequery

import "math/bits"

// RangeMinimumQuery answers min-queries over an append-only sequence of
// int64 values in O(1) after O(n log n) preprocessing per batch.
type RangeMinimumQuery struct {
	values []int64
	layers [][]int64
	// tableSize is the number of values covered by built tables.
	tableSize int
}

// PushBack appends a value to the pending batch.
func (q *RangeMinimumQuery) PushBack(v int64) {
	q.values = append(q.values, v)
}

// TableSize returns the number of values whose table has been built.
func (q *RangeMinimumQuery) TableSize() int { return q.tableSize }

// Array returns the underlying value sequence, including pending values.
func (q *RangeMinimumQuery) Array() []int64 { return q.values }

// Clear removes all values and tables.
func (q *RangeMinimumQuery) Clear() {
	q.values = q.values[:0]
	q.layers = q.layers[:0]
	q.tableSize = 0
}

// MakeTableFromNewElements builds the sparse table for values appended since
// the last call. Queries must not straddle the batch boundary.
func (q *RangeMinimumQuery) MakeTableFromNewElements() {
	begin, end := q.tableSize, len(q.values)
	if begin >= end {
		return
	}
	batch := end - begin
	numLayers := bits.Len(uint(batch)) // layer l covers windows of 2^l values
	for len(q.layers) < numLayers {
		q.layers = append(q.layers, nil)
	}
	for l := 0; l < numLayers; l++ {
		for len(q.layers[l]) < end {
			q.layers[l] = append(q.layers[l], 0)
		}
	}
	copy(q.layers[0][begin:end], q.values[begin:end])
	for l := 1; l < numLayers; l++ {
		half := 1 << (l - 1)
		for i := begin; i+2*half <= end; i++ {
			q.layers[l][i] = min(q.layers[l-1][i], q.layers[l-1][i+half])
		}
	}
	q.tableSize = end
}

// RangeMinimum returns the minimum of values[first..last], both inclusive.
// The range must lie within a single batch.
func (q *RangeMinimumQuery) RangeMinimum(first, last int) int64 {
	if first > last {
		panic("rangequery: reversed range")
	}
	k := bits.Len(uint(last-first+1)) - 1
	return min(q.layers[k][first], q.layers[k][last-(1<<k)+1])
}
