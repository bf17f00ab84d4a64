// Package routing describes the static side of a vehicle routing problem as
// seen by local-search filters: node topology (vehicle starts and ends, next
// variables), disjunctions, activity groups, pickup/delivery pairs, visit
// types, vehicle restrictions, and additive dimensions. Filters hold a
// read-only reference to a Model; nothing in this package is mutated during
// search.
package routing

import "github.com/RoaringBitmap/roaring/v2"

// Unassigned marks an index or value that is not bound to anything.
const Unassigned = -1

// Interval is an inclusive range of int64 values.
type Interval struct {
	Min int64
	Max int64
}

// PenaltyCostBehavior selects how a disjunction's violation converts into a
// penalty cost.
type PenaltyCostBehavior int

const (
	// PenalizePerInactive multiplies the penalty by the number of missing
	// active nodes.
	PenalizePerInactive PenaltyCostBehavior = iota
	// PenalizeOnce clamps the violation to {0, 1}.
	PenalizeOnce
)

// Disjunction is a set of nodes of which at most MaxCardinality may be
// active. A positive penalty makes missing actives a soft cost; a negative
// penalty marks the disjunction mandatory.
type Disjunction struct {
	Nodes               []int
	MaxCardinality      int
	Penalty             int64
	PenaltyCostBehavior PenaltyCostBehavior
}

// PickupDeliveryPolicy is a vehicle's visiting discipline for pickup and
// delivery pairs.
type PickupDeliveryPolicy int

const (
	// PickupDeliveryNoOrder only requires each delivery to follow one of its
	// pair's pickups.
	PickupDeliveryNoOrder PickupDeliveryPolicy = iota
	// PickupDeliveryLIFO requires deliveries in reverse order of pickups.
	PickupDeliveryLIFO
	// PickupDeliveryFIFO requires deliveries in order of pickups.
	PickupDeliveryFIFO
)

// PickupDeliveryPair is a pickup/delivery request with alternative nodes for
// each side; exactly one alternative of each side is visited when the pair
// is performed.
type PickupDeliveryPair struct {
	PickupAlternatives   []int
	DeliveryAlternatives []int
}

// PairPosition locates a node inside a pickup/delivery pair.
type PairPosition struct {
	Pair        int
	Alternative int
}

// VisitTypePolicy says how a node's visit type counts toward type
// regulations on its vehicle.
type VisitTypePolicy int

const (
	// TypeAddedToVehicle counts the node's type on the vehicle.
	TypeAddedToVehicle VisitTypePolicy = iota
	// AddedTypeRemovedFromVehicle does not count the type.
	AddedTypeRemovedFromVehicle
)

// RouteCheck verifies one vehicle's route, reading successors through next.
type RouteCheck func(vehicle int, next func(int) int) bool

// Model is the read-only routing topology shared by all filters.
//
// Indices: regular nodes occupy [0, numNodes), vehicle starts
// [numNodes, numNodes+V), vehicle ends [numNodes+V, numNodes+2V). Next
// variables exist for the first numNodes+V indices.
type Model struct {
	numNodes    int
	numVehicles int

	maxActiveVehicles int
	usedWhenEmpty     []bool

	disjunctions       []Disjunction
	nodeDisjunctions   [][]int
	activityGroups     [][]int
	nodeActivityGroup  []int
	pairs              []PickupDeliveryPair
	pickupPositions    []PairPosition
	deliveryPositions  []PairPosition
	vehiclePolicies    []PickupDeliveryPolicy
	allowedVehicles    []*roaring.Bitmap
	amortizedLinear    []int64
	amortizedQuadratic []int64
	hasAmortizedCosts  bool

	numVisitTypes         int
	visitTypes            []int
	visitTypePolicies     []VisitTypePolicy
	hardTypeIncompat      [][]int
	temporalIncompatCheck RouteCheck
	requirementCheck      RouteCheck

	routeCost func(route []int) (int64, bool)

	dimensions []*Dimension
}

// NewModel returns a model with numNodes regular nodes and numVehicles
// vehicles, no side constraints.
func NewModel(numNodes, numVehicles int) *Model {
	m := &Model{
		numNodes:          numNodes,
		numVehicles:       numVehicles,
		maxActiveVehicles: numVehicles,
		usedWhenEmpty:     make([]bool, numVehicles),
		vehiclePolicies:   make([]PickupDeliveryPolicy, numVehicles),
	}
	n := m.NumIndices()
	m.nodeDisjunctions = make([][]int, n)
	m.nodeActivityGroup = make([]int, n)
	for i := range m.nodeActivityGroup {
		m.nodeActivityGroup[i] = Unassigned
	}
	m.pickupPositions = make([]PairPosition, n)
	m.deliveryPositions = make([]PairPosition, n)
	for i := 0; i < n; i++ {
		m.pickupPositions[i] = PairPosition{Pair: Unassigned}
		m.deliveryPositions[i] = PairPosition{Pair: Unassigned}
	}
	m.allowedVehicles = make([]*roaring.Bitmap, n)
	m.amortizedLinear = make([]int64, numVehicles)
	m.amortizedQuadratic = make([]int64, numVehicles)
	m.visitTypes = make([]int, n)
	for i := range m.visitTypes {
		m.visitTypes[i] = Unassigned
	}
	m.visitTypePolicies = make([]VisitTypePolicy, n)
	return m
}

// Size returns the number of next variables (regular nodes plus starts).
func (m *Model) Size() int { return m.numNodes + m.numVehicles }

// NumVehicles returns the number of vehicles.
func (m *Model) NumVehicles() int { return m.numVehicles }

// NumIndices returns the total number of node indices, ends included.
func (m *Model) NumIndices() int { return m.numNodes + 2*m.numVehicles }

// Start returns the start node of vehicle.
func (m *Model) Start(vehicle int) int { return m.numNodes + vehicle }

// End returns the end node of vehicle.
func (m *Model) End(vehicle int) int { return m.numNodes + m.numVehicles + vehicle }

// IsStart reports whether index is a vehicle start.
func (m *Model) IsStart(index int) bool {
	return index >= m.numNodes && index < m.numNodes+m.numVehicles
}

// IsEnd reports whether index is a vehicle end.
func (m *Model) IsEnd(index int) bool { return index >= m.numNodes+m.numVehicles }

// VehicleIndex returns the vehicle owning a start or end index, or
// Unassigned for regular nodes.
func (m *Model) VehicleIndex(index int) int {
	switch {
	case m.IsStart(index):
		return index - m.numNodes
	case m.IsEnd(index):
		return index - m.numNodes - m.numVehicles
	default:
		return Unassigned
	}
}

// SetMaxActiveVehicles caps the number of vehicles serving at least one node.
func (m *Model) SetMaxActiveVehicles(n int) { m.maxActiveVehicles = n }

// MaxActiveVehicles returns the active-vehicle cap.
func (m *Model) MaxActiveVehicles() int { return m.maxActiveVehicles }

// SetVehicleUsedWhenEmpty declares that vehicle incurs costs even with an
// empty route.
func (m *Model) SetVehicleUsedWhenEmpty(vehicle int, used bool) {
	m.usedWhenEmpty[vehicle] = used
}

// IsVehicleUsedWhenEmpty reports whether vehicle incurs costs when empty.
func (m *Model) IsVehicleUsedWhenEmpty(vehicle int) bool { return m.usedWhenEmpty[vehicle] }

// AddDisjunction registers a disjunction and returns its index.
func (m *Model) AddDisjunction(d Disjunction) int {
	index := len(m.disjunctions)
	m.disjunctions = append(m.disjunctions, d)
	for _, node := range d.Nodes {
		m.nodeDisjunctions[node] = append(m.nodeDisjunctions[node], index)
	}
	return index
}

// NumDisjunctions returns the number of registered disjunctions.
func (m *Model) NumDisjunctions() int { return len(m.disjunctions) }

// Disjunction returns the disjunction at index.
func (m *Model) Disjunction(index int) Disjunction { return m.disjunctions[index] }

// DisjunctionsOfNode returns the indices of disjunctions containing node.
func (m *Model) DisjunctionsOfNode(node int) []int { return m.nodeDisjunctions[node] }

// HasMandatoryDisjunctions reports whether any disjunction has a negative
// penalty.
func (m *Model) HasMandatoryDisjunctions() bool {
	for _, d := range m.disjunctions {
		if d.Penalty < 0 {
			return true
		}
	}
	return false
}

// AddSameActivityGroup registers a group of nodes that must be all active or
// all inactive, and returns the group index.
func (m *Model) AddSameActivityGroup(nodes []int) int {
	index := len(m.activityGroups)
	m.activityGroups = append(m.activityGroups, nodes)
	for _, node := range nodes {
		m.nodeActivityGroup[node] = index
	}
	return index
}

// NumSameActivityGroups returns the number of activity groups.
func (m *Model) NumSameActivityGroups() int { return len(m.activityGroups) }

// SameActivityGroupOfNode returns node's activity group, or Unassigned.
func (m *Model) SameActivityGroupOfNode(node int) int { return m.nodeActivityGroup[node] }

// SameActivityNodesOfGroup returns the nodes of a group.
func (m *Model) SameActivityNodesOfGroup(group int) []int { return m.activityGroups[group] }

// AddPickupAndDelivery registers a pickup/delivery pair and returns its
// index.
func (m *Model) AddPickupAndDelivery(pair PickupDeliveryPair) int {
	index := len(m.pairs)
	m.pairs = append(m.pairs, pair)
	for alt, node := range pair.PickupAlternatives {
		m.pickupPositions[node] = PairPosition{Pair: index, Alternative: alt}
	}
	for alt, node := range pair.DeliveryAlternatives {
		m.deliveryPositions[node] = PairPosition{Pair: index, Alternative: alt}
	}
	return index
}

// PickupDeliveryPairs returns all registered pairs.
func (m *Model) PickupDeliveryPairs() []PickupDeliveryPair { return m.pairs }

// IsPickup reports whether node is a pickup alternative of some pair.
func (m *Model) IsPickup(node int) bool { return m.pickupPositions[node].Pair != Unassigned }

// IsDelivery reports whether node is a delivery alternative of some pair.
func (m *Model) IsDelivery(node int) bool { return m.deliveryPositions[node].Pair != Unassigned }

// PickupPosition returns node's position among pickup alternatives.
func (m *Model) PickupPosition(node int) (PairPosition, bool) {
	p := m.pickupPositions[node]
	return p, p.Pair != Unassigned
}

// DeliveryPosition returns node's position among delivery alternatives.
func (m *Model) DeliveryPosition(node int) (PairPosition, bool) {
	p := m.deliveryPositions[node]
	return p, p.Pair != Unassigned
}

// SetPickupDeliveryPolicy sets a vehicle's visiting discipline.
func (m *Model) SetPickupDeliveryPolicy(vehicle int, policy PickupDeliveryPolicy) {
	m.vehiclePolicies[vehicle] = policy
}

// PickupDeliveryPolicyOfVehicle returns a vehicle's visiting discipline.
func (m *Model) PickupDeliveryPolicyOfVehicle(vehicle int) PickupDeliveryPolicy {
	return m.vehiclePolicies[vehicle]
}

// SetAllowedVehicles restricts node to the given vehicles. Without a
// restriction every vehicle is allowed.
func (m *Model) SetAllowedVehicles(node int, vehicles ...int) {
	bm := roaring.New()
	for _, v := range vehicles {
		bm.Add(uint32(v))
	}
	m.allowedVehicles[node] = bm
}

// AllowedVehicles returns node's allowed-vehicle set, nil if unconstrained.
func (m *Model) AllowedVehicles(node int) *roaring.Bitmap { return m.allowedVehicles[node] }

// VehicleAllowed reports whether vehicle may serve node.
func (m *Model) VehicleAllowed(node, vehicle int) bool {
	bm := m.allowedVehicles[node]
	return bm == nil || bm.Contains(uint32(vehicle))
}

// HasVehicleRestrictions reports whether any node restricts its vehicles.
func (m *Model) HasVehicleRestrictions() bool {
	for _, bm := range m.allowedVehicles {
		if bm != nil {
			return true
		}
	}
	return false
}

// SetAmortizedCostFactors sets a vehicle's amortized cost factors; the
// vehicle contributes linear - quadratic * routeLength^2 when non-empty.
func (m *Model) SetAmortizedCostFactors(vehicle int, linear, quadratic int64) {
	m.amortizedLinear[vehicle] = linear
	m.amortizedQuadratic[vehicle] = quadratic
	m.hasAmortizedCosts = true
}

// HasAmortizedCosts reports whether any vehicle has amortized cost factors.
func (m *Model) HasAmortizedCosts() bool { return m.hasAmortizedCosts }

// AmortizedLinearCostFactor returns a vehicle's linear amortized factor.
func (m *Model) AmortizedLinearCostFactor(vehicle int) int64 { return m.amortizedLinear[vehicle] }

// AmortizedQuadraticCostFactor returns a vehicle's quadratic amortized
// factor.
func (m *Model) AmortizedQuadraticCostFactor(vehicle int) int64 {
	return m.amortizedQuadratic[vehicle]
}

// SetVisitType assigns a visit type and counting policy to node.
func (m *Model) SetVisitType(node, visitType int, policy VisitTypePolicy) {
	m.visitTypes[node] = visitType
	m.visitTypePolicies[node] = policy
	if visitType >= m.numVisitTypes {
		m.numVisitTypes = visitType + 1
	}
}

// VisitType returns node's visit type, or Unassigned.
func (m *Model) VisitType(node int) int { return m.visitTypes[node] }

// VisitTypePolicy returns node's type counting policy.
func (m *Model) VisitTypePolicy(node int) VisitTypePolicy { return m.visitTypePolicies[node] }

// NumVisitTypes returns the number of distinct visit types.
func (m *Model) NumVisitTypes() int { return m.numVisitTypes }

// AddHardTypeIncompatibility forbids type1 and type2 on the same vehicle.
func (m *Model) AddHardTypeIncompatibility(type1, type2 int) {
	for len(m.hardTypeIncompat) < m.numVisitTypes {
		m.hardTypeIncompat = append(m.hardTypeIncompat, nil)
	}
	m.hardTypeIncompat[type1] = append(m.hardTypeIncompat[type1], type2)
	m.hardTypeIncompat[type2] = append(m.hardTypeIncompat[type2], type1)
}

// HasHardTypeIncompatibilities reports whether any pair of types is
// incompatible.
func (m *Model) HasHardTypeIncompatibilities() bool {
	for _, incompat := range m.hardTypeIncompat {
		if len(incompat) > 0 {
			return true
		}
	}
	return false
}

// HardTypeIncompatibilitiesOfType returns the types incompatible with t.
func (m *Model) HardTypeIncompatibilitiesOfType(t int) []int {
	if t >= len(m.hardTypeIncompat) {
		return nil
	}
	return m.hardTypeIncompat[t]
}

// SetTemporalIncompatibilityChecker installs the model's temporal type
// incompatibility check.
func (m *Model) SetTemporalIncompatibilityChecker(check RouteCheck) {
	m.temporalIncompatCheck = check
}

// CheckTemporalIncompatibilities runs the installed temporal check, true if
// none is installed.
func (m *Model) CheckTemporalIncompatibilities(vehicle int, next func(int) int) bool {
	if m.temporalIncompatCheck == nil {
		return true
	}
	return m.temporalIncompatCheck(vehicle, next)
}

// SetRequirementChecker installs the model's type requirement check.
func (m *Model) SetRequirementChecker(check RouteCheck) { m.requirementCheck = check }

// CheckRequirements runs the installed requirement check, true if none is
// installed.
func (m *Model) CheckRequirements(vehicle int, next func(int) int) bool {
	if m.requirementCheck == nil {
		return true
	}
	return m.requirementCheck(vehicle, next)
}

// SetRouteCostCallback installs a per-route cost function; a false return
// marks the route infeasible.
func (m *Model) SetRouteCostCallback(fn func(route []int) (int64, bool)) { m.routeCost = fn }

// HasRouteCostCallback reports whether a route cost function is installed.
func (m *Model) HasRouteCostCallback() bool { return m.routeCost != nil }

// RouteCost evaluates the installed route cost function.
func (m *Model) RouteCost(route []int) (int64, bool) {
	if m.routeCost == nil {
		return 0, true
	}
	return m.routeCost(route)
}

// Dimensions returns the model's dimensions in registration order.
func (m *Model) Dimensions() []*Dimension { return m.dimensions }
