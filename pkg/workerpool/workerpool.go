// Package workerpool provides bounded concurrent processing utilities.
package workerpool

import (
	"context"
	"sync"
)

// Map runs fn for every item with at most workerCount concurrent calls and
// returns the results in input order. Items are independent: an error from one
// item is stored next to its result and does not stop the others. Only context
// cancellation stops the pool; unprocessed items then carry the context error.
func Map[T, R any](
	ctx context.Context,
	workerCount int,
	items []T,
	fn func(context.Context, T) (R, error),
) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	done := make([]bool, len(items))

	run(ctx, workerCount, len(items), func(ctx context.Context, i int) {
		results[i], errs[i] = fn(ctx, items[i])
		done[i] = true
	})

	if err := ctx.Err(); err != nil {
		for i := range items {
			if !done[i] {
				errs[i] = err
			}
		}
	}
	return results, errs
}

// run feeds indexes 0..n-1 to workerCount workers until all are handled or ctx is done.
func run(ctx context.Context, workerCount, n int, handle func(context.Context, int)) {
	if workerCount < 1 {
		workerCount = 1
	}

	tasks := make(chan int, workerCount)
	wg := sync.WaitGroup{}
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case i, ok := <-tasks:
					if !ok {
						return
					}
					handle(ctx, i)
				}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case tasks <- i:
			}
		}
	}()

	wg.Wait()
}
