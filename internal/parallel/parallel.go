package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of a parallel task.
type Result struct {
	Name    string
	OK      bool
	Err     error
	Elapsed time.Duration
}

// Task is a function that runs in parallel.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Run executes tasks in parallel with the given concurrency limit.
// Returns results in the order tasks were submitted.
func Run(ctx context.Context, tasks []Task, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 4
	}

	results := make([]Result, len(tasks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			start := time.Now()
			err := task.Fn(gctx)

			mu.Lock()
			results[i] = Result{Name: task.Name, OK: err == nil, Err: err, Elapsed: time.Since(start)}
			mu.Unlock()

			return nil // never fail the group; collect results instead
		})
	}

	_ = g.Wait()
	return results
}

// Errors combines the failures of results into one error, nil when all
// tasks succeeded.
func Errors(results []Result) error {
	var err error
	for _, r := range results {
		if r.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return err
}

// Failed returns the names of the tasks that failed.
func Failed(results []Result) []string {
	var names []string
	for _, r := range results {
		if !r.OK {
			names = append(names, r.Name)
		}
	}
	return names
}
