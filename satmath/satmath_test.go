package satmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    int64
		want    int64
	}{
		{name: "plain", a: 2, b: 3, want: 5},
		{name: "negative", a: -2, b: -3, want: -5},
		{name: "overflow", a: MaxInt64, b: 1, want: MaxInt64},
		{name: "overflow both", a: MaxInt64, b: MaxInt64, want: MaxInt64},
		{name: "underflow", a: MinInt64, b: -1, want: MinInt64},
		{name: "cancel", a: MaxInt64, b: MinInt64, want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Add(tt.a, tt.b))
		})
	}
}

func TestSub(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want int64
	}{
		{name: "plain", a: 5, b: 3, want: 2},
		{name: "underflow", a: MinInt64, b: 1, want: MinInt64},
		{name: "overflow", a: MaxInt64, b: -1, want: MaxInt64},
		{name: "sub min", a: 0, b: MinInt64, want: MaxInt64},
		{name: "min minus min", a: MinInt64, b: MinInt64, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sub(tt.a, tt.b))
		})
	}
}

func TestMul(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want int64
	}{
		{name: "plain", a: 6, b: 7, want: 42},
		{name: "zero", a: 0, b: MaxInt64, want: 0},
		{name: "overflow", a: MaxInt64, b: 2, want: MaxInt64},
		{name: "underflow", a: MaxInt64, b: -2, want: MinInt64},
		{name: "neg neg overflow", a: MinInt64, b: -1, want: MaxInt64},
		{name: "neg pos underflow", a: MinInt64, b: 2, want: MinInt64},
		{name: "neg neg plain", a: -3, b: -4, want: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mul(tt.a, tt.b))
		})
	}
}

func TestOpp(t *testing.T) {
	assert.Equal(t, int64(-5), Opp(5))
	assert.Equal(t, int64(MaxInt64), Opp(MinInt64))
	assert.Equal(t, int64(MinInt64+1), Opp(MaxInt64))
}

// Saturation never wraps: for non-negative inputs the sum is non-negative.
func TestAddNeverWraps(t *testing.T) {
	values := []int64{0, 1, 1 << 31, 1 << 62, MaxInt64 - 1, MaxInt64}
	for _, a := range values {
		for _, b := range values {
			s := Add(a, b)
			assert.GreaterOrEqual(t, s, int64(0), "Add(%d, %d)", a, b)
		}
	}
}

func TestAddTo(t *testing.T) {
	acc := int64(10)
	AddTo(5, &acc)
	assert.Equal(t, int64(15), acc)
	AddTo(MaxInt64, &acc)
	assert.Equal(t, int64(MaxInt64), acc)
}
