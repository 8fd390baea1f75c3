package concurrency

import (
	"context"
	"sync"
)

// ParallelOptions configures a worker pool.
type ParallelOptions struct {
	// MaxWorkers caps the number of goroutines (<= 0 means DefaultWorkers).
	MaxWorkers int
}

const DefaultWorkers = 4

func DefaultOptions() ParallelOptions {
	return ParallelOptions{MaxWorkers: DefaultWorkers}
}

// ProcessParallel runs itemFunc for every item on a bounded pool and returns
// the results in input order. Items not started before ctx is done keep the
// zero value of R and report ctx.Err().
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) ([]R, []error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultWorkers
	}
	if maxWorkers > len(items) {
		maxWorkers = len(items)
	}

	type result struct {
		index int
		value R
		err   error
	}

	jobs := make(chan int, len(items))
	results := make(chan result, len(items))

	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{index: i, err: err}
					continue
				}
				v, err := itemFunc(ctx, i, items[i])
				results <- result{index: i, value: v, err: err}
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]R, len(items))
	var errs []error
	for res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
		}
		out[res.index] = res.value
	}
	return out, errs
}
