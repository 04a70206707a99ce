// Package fanout runs I/O-bound lookups over a bounded worker pool.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result pairs an item's outcome with its error. A failed item never cancels
// its siblings.
type Result[R any] struct {
	Value R
	Err   error
}

// Map calls fn for every item with at most limit calls in flight and returns
// the results in the order of items, regardless of completion order.
// A limit below 1 is treated as 1.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result[R]{Err: err}
				return nil
			}
			v, err := fn(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}

	// Workers report failures through results, so Wait never returns an error.
	_ = g.Wait()
	return results
}
