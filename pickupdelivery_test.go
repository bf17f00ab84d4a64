package routefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/routefilter/routing"
)

func pairModel(policy routing.PickupDeliveryPolicy) *routing.Model {
	m := routing.NewModel(6, 1)
	m.AddPickupAndDelivery(routing.PickupDeliveryPair{
		PickupAlternatives:   []int{1},
		DeliveryAlternatives: []int{2},
	})
	m.AddPickupAndDelivery(routing.PickupDeliveryPair{
		PickupAlternatives:   []int{3},
		DeliveryAlternatives: []int{4},
	})
	m.SetPickupDeliveryPolicy(0, policy)
	return m
}

func acceptRoute(f *PickupDeliveryFilter, m *routing.Model, route []int) bool {
	// Propose the route as a delta over the committed empty path.
	delta := routing.NewAssignment()
	prev := m.Start(0)
	for _, node := range route {
		delta.Add(prev, int64(node))
		prev = node
	}
	delta.Add(prev, int64(m.End(0)))
	return f.Accept(delta, nil, 0, 0)
}

func TestPickupDeliveryFilterLIFO(t *testing.T) {
	m := pairModel(routing.PickupDeliveryLIFO)
	f := NewPickupDeliveryFilter(m)
	synchronize(f, m, [][]int{{}})

	// Pairs (1 -> 2) and (3 -> 4): nested order is LIFO-feasible,
	// interleaved is not.
	assert.True(t, acceptRoute(f, m, []int{1, 3, 4, 2}))
	assert.False(t, acceptRoute(f, m, []int{1, 3, 2, 4}))
	assert.True(t, acceptRoute(f, m, []int{1, 2, 3, 4}))
	assert.False(t, acceptRoute(f, m, []int{2, 1}))
}

func TestPickupDeliveryFilterFIFO(t *testing.T) {
	m := pairModel(routing.PickupDeliveryFIFO)
	f := NewPickupDeliveryFilter(m)
	synchronize(f, m, [][]int{{}})

	assert.True(t, acceptRoute(f, m, []int{1, 3, 2, 4}))
	assert.False(t, acceptRoute(f, m, []int{1, 3, 4, 2}))
	assert.True(t, acceptRoute(f, m, []int{1, 2, 3, 4}))
}

func TestPickupDeliveryFilterNoOrder(t *testing.T) {
	m := pairModel(routing.PickupDeliveryNoOrder)
	f := NewPickupDeliveryFilter(m)
	synchronize(f, m, [][]int{{}})

	assert.True(t, acceptRoute(f, m, []int{1, 3, 4, 2}))
	assert.True(t, acceptRoute(f, m, []int{1, 3, 2, 4}))
	// Delivery before its pickup is never feasible.
	assert.False(t, acceptRoute(f, m, []int{2, 1}))
}

func TestPickupDeliveryFilterAlternatives(t *testing.T) {
	m := routing.NewModel(6, 1)
	m.AddPickupAndDelivery(routing.PickupDeliveryPair{
		PickupAlternatives:   []int{1, 2},
		DeliveryAlternatives: []int{3},
	})
	f := NewPickupDeliveryFilter(m)
	synchronize(f, m, [][]int{{}})

	// Either pickup alternative satisfies the delivery.
	assert.True(t, acceptRoute(f, m, []int{2, 3}))
	assert.True(t, acceptRoute(f, m, []int{1, 3}))
	assert.False(t, acceptRoute(f, m, []int{3, 1}))
}

func TestPickupDeliveryFilterMissingDelivery(t *testing.T) {
	m := pairModel(routing.PickupDeliveryNoOrder)
	f := NewPickupDeliveryFilter(m)
	synchronize(f, m, [][]int{{}})

	// Pickup 1 without its delivery 2 (which is synced inactive): reject.
	assert.False(t, acceptRoute(f, m, []int{1}))
}
