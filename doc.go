// Package routefilter implements incremental local-search filters for
// vehicle routing solvers.
//
// A local-search engine explores candidate neighbors by reassigning a few
// per-node successor ("next") variables at a time. Filters decide, fast,
// whether such a candidate is feasible under the problem's constraints, and
// bound its objective so the engine can discard dominated candidates without
// evaluating them fully. Since filters run on every candidate, their cost
// per call is the contract: O(size of delta) wherever possible, never
// O(route length) and never O(model size).
//
// The package is organized in layers:
//
//   - BasePathFilter, the reusable skeleton that decomposes a delta into
//     touched paths with per-path chain windows;
//   - pathstate.PathState and DimensionChecker, a committable chain
//     representation of all routes paired with a range-intersection-query
//     feasibility check for additive dimensions;
//   - PathCumulFilter, the incremental cost and feasibility filter for a
//     cumul dimension (hard and soft bounds, span and slack costs, breaks,
//     pickup-to-delivery limits, precedences, optional LP/MIP refinement);
//   - PathEnergyCostChecker, threshold energy costs backed by a weighted
//     wavelet tree and a force range-minimum query;
//   - a catalog of specialized filters (disjunctions, activity groups,
//     vehicle restrictions, pickup/delivery order, visit types, amortized
//     vehicle costs) and the FilterManager gluing them together in priority
//     order.
//
// All cost arithmetic saturates (package satmath): an overflow never makes
// an infeasible candidate look acceptable. All candidate-scoped state lives
// in revertible containers (package revertible), so abandoning a candidate
// costs O(delta).
package routefilter
