package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is the unit of work the driver runs for one file pair. A
// returned error aborts only that pair; the driver reports it and
// continues with the rest, matching spec.md §7's "fatal errors abort
// the current translation unit only" propagation rule.
type Task func(pair Pair) error

// Result pairs one Pair with the error (if any) its Task produced.
type Result struct {
	Pair Pair
	Err  error
}

// Run processes every pair through task using a bounded worker pool
// (golang.org/x/sync/errgroup with SetLimit), the parallel analogue of
// the original's single-threaded foreach_file_pair. workers <= 0 means
// unbounded.
//
// Unlike errgroup's usual first-error-cancels-everything use, a task
// failure here is recorded in the returned Results rather than
// cancelling the group, since each file pair is an independent
// translation unit.
func Run(ctx context.Context, pairs []Pair, workers int, task Task) []Result {
	results := make([]Result, len(pairs))
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = Result{Pair: pair, Err: ctx.Err()}
				return nil
			default:
			}
			results[i] = Result{Pair: pair, Err: task(pair)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
