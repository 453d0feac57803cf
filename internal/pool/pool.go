// Package pool bounds the number of concurrent detail-page scrapes
// within one arena pass.
package pool

import "sync"

// Result pairs one task's output with its failure, in submission order.
type Result[T any] struct {
	Value T
	Err   error
}

// Map runs fn over items with at most limit goroutines in flight.
// Results are returned in submission order regardless of completion
// order, and a failing task never cancels its siblings: all tasks
// settle, and callers collect the per-item errors afterwards.
func Map[In, Out any](items []In, limit int, fn func(In) (Out, error)) []Result[Out] {
	if limit < 1 {
		limit = 1
	}

	results := make([]Result[Out], len(items))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item In) {
			defer wg.Done()
			defer func() { <-sem }()
			v, err := fn(item)
			results[i] = Result[Out]{Value: v, Err: err}
		}(i, item)
	}

	wg.Wait()
	return results
}
