// Package workerpool runs work items on a bounded set of goroutines.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ProcessEach runs process for every item on at most workerCount goroutines.
// A failing item does not stop the others; all errors are joined and returned
// once every item has been handled. A panic in process is recovered and
// reported as that item's error.
func ProcessEach[T any](
	ctx context.Context,
	workerCount int,
	items []T,
	process func(context.Context, T) error,
) error {
	if workerCount <= 0 {
		workerCount = 1
	}

	tasks := make(chan T, workerCount)
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				if err := safeCall(ctx, item, process); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

	feed(ctx, items, tasks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func safeCall[T any](ctx context.Context, item T, process func(context.Context, T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return process(ctx, item)
}

func feed[T any](ctx context.Context, items []T, tasks chan<- T) {
	defer close(tasks)
	for _, item := range items {
		select {
		case <-ctx.Done():
			return
		case tasks <- item:
		}
	}
}
