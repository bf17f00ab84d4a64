package sched

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DeadlineFacade wraps a RouteOptimizer with a per-call time limit. The
// wrapped call runs in its own goroutine; if the deadline expires first, the
// facade returns StatusInfeasible, which callers already treat as a soft
// rejection. The abandoned call keeps the context cancellation to observe.
type DeadlineFacade struct {
	inner   RouteOptimizer
	timeout time.Duration
}

// NewDeadlineFacade returns a facade enforcing timeout per call. A zero
// timeout disables the deadline.
func NewDeadlineFacade(inner RouteOptimizer, timeout time.Duration) *DeadlineFacade {
	return &DeadlineFacade{inner: inner, timeout: timeout}
}

type routeResult struct {
	cost   int64
	status Status
}

// ComputeRouteCumulCost implements RouteOptimizer.
func (f *DeadlineFacade) ComputeRouteCumulCost(ctx context.Context, vehicle int, next func(int) int, cost *int64) Status {
	if f.timeout <= 0 {
		return f.inner.ComputeRouteCumulCost(ctx, vehicle, next, cost)
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	results := make(chan routeResult, 1)
	go func() {
		var c int64
		status := f.inner.ComputeRouteCumulCost(ctx, vehicle, next, &c)
		results <- routeResult{cost: c, status: status}
	}()

	select {
	case r := <-results:
		if cost != nil {
			*cost = r.cost
		}
		return r.status
	case <-ctx.Done():
		return StatusInfeasible
	}
}

// RouteCosts is the result of a SweepRouteCosts call for one vehicle.
type RouteCosts struct {
	Vehicle int
	Cost    int64
	Status  Status
}

// SweepRouteCosts evaluates the optimizer on several vehicles with bounded
// parallelism. It is meant for synchronize-time sweeps where all routes of a
// committed solution are re-costed; Accept-time calls stay sequential. next
// must be safe for concurrent reads.
func SweepRouteCosts(ctx context.Context, opt RouteOptimizer, vehicles []int, next func(int) int, parallelism int) []RouteCosts {
	results := make([]RouteCosts, len(vehicles))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, vehicle := range vehicles {
		g.Go(func() error {
			var cost int64
			status := opt.ComputeRouteCumulCost(ctx, vehicle, next, &cost)
			results[i] = RouteCosts{Vehicle: vehicle, Cost: cost, Status: status}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // Workers never return errors.
	return results
}
