package routefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/routefilter/routing"
)

func TestVehicleVarFilter(t *testing.T) {
	m := routing.NewModel(4, 2)
	m.SetAllowedVehicles(0, 0)
	m.SetAllowedVehicles(1, 1)
	f := NewVehicleVarFilter(m)
	synchronize(f, m, [][]int{{0}, {1}})

	// Moving node 1 onto vehicle 0 violates its restriction.
	delta := routing.NewAssignment().
		Add(0, 1).
		Add(1, int64(m.End(0))).
		Add(m.Start(1), int64(m.End(1)))
	assert.False(t, f.Accept(delta, nil, 0, 0))

	// Moving unrestricted node 2 onto vehicle 0 is fine.
	delta = routing.NewAssignment().Add(0, 2).Add(2, int64(m.End(0)))
	assert.True(t, f.Accept(delta, nil, 0, 0))
}

func TestVehicleVarFilterDisablesWithoutRestrictions(t *testing.T) {
	m := routing.NewModel(4, 2)
	f := NewVehicleVarFilter(m)
	synchronize(f, m, [][]int{{0}, {1}})
	assert.True(t, f.IsDisabled())

	delta := routing.NewAssignment().Add(0, 1).Add(1, int64(m.End(0)))
	assert.True(t, f.Accept(delta, nil, 0, 0))
}
