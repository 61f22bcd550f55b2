package snapshot

import (
	"context"
	"runtime"
	"sync"
)

// runPool calls task for every index in [0, n) on a bounded set of workers
// and returns the successful results in index order. A task reports failure
// by returning false; other tasks are unaffected. Cancelling ctx stops
// dispatching new indices.
func runPool[T any](ctx context.Context, workers, n int, task func(i int) (T, bool)) []T {
	if n == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	type result struct {
		index int
		value T
	}

	work := make(chan int, n)
	results := make(chan result, n)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				if v, ok := task(idx); ok {
					results <- result{index: idx, value: v}
				}
			}
		}()
	}

dispatch:
	for i := range n {
		select {
		case <-ctx.Done():
			break dispatch
		case work <- i:
		}
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]T, n)
	valid := make([]bool, n)
	for r := range results {
		indexed[r.index] = r.value
		valid[r.index] = true
	}

	var out []T
	for i, ok := range valid {
		if ok {
			out = append(out, indexed[i])
		}
	}
	return out
}
