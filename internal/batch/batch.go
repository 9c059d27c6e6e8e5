// Package batch runs independent per-item work with bounded concurrency.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds fan-out when the caller passes a non-positive limit.
const DefaultConcurrency = 4

// Outcome is the result of one item. Index is 1-based in input order.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

// Run applies fn to every item with at most limit calls in flight. Item
// failures are recorded on their Outcome and never cancel siblings; outcomes
// are returned in input order. A cancelled context stops scheduling and marks
// unstarted items with the context error.
func Run[I, T any](ctx context.Context, items []I, limit int, fn func(context.Context, I) (T, error)) []Outcome[T] {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	outcomes := make([]Outcome[T], len(items))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		outcomes[i].Index = i + 1
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}
		g.Go(func() error {
			value, err := fn(ctx, item)
			outcomes[i].Value = value
			outcomes[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Summary counts successes and failures across outcomes.
type Summary struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Summarize tallies outcomes.
func Summarize[T any](outcomes []Outcome[T]) Summary {
	var s Summary
	for _, o := range outcomes {
		if o.Err != nil {
			s.Failed++
			continue
		}
		s.Success++
	}
	return s
}
