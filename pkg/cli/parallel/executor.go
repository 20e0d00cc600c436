// Package parallel provides bounded-concurrency execution of independent tasks.
package parallel

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// minConcurrency is the minimum number of concurrent tasks.
	minConcurrency = 2
	// maxConcurrencyCap caps concurrency to avoid overwhelming the container daemon.
	maxConcurrencyCap = 8
)

// DefaultMaxConcurrency returns the default maximum concurrency based on available CPUs.
func DefaultMaxConcurrency() int64 {
	numCPU := int64(runtime.NumCPU())

	return min(max(numCPU, minConcurrency), maxConcurrencyCap)
}

// Executor provides controlled parallel execution of tasks.
type Executor struct {
	maxConcurrency int64
}

// NewExecutor creates a new parallel executor with the specified max concurrency.
// If maxConcurrency <= 0, DefaultMaxConcurrency() is used.
func NewExecutor(maxConcurrency int64) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency()
	}

	return &Executor{maxConcurrency: maxConcurrency}
}

// Task represents a unit of work that can be executed in parallel.
type Task func(ctx context.Context) error

// Execute runs all tasks concurrently with controlled parallelism.
// It returns the first error encountered, canceling remaining tasks.
func (executor *Executor) Execute(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	if len(tasks) == 1 {
		return tasks[0](ctx)
	}

	sem := semaphore.NewWeighted(executor.maxConcurrency)
	group, groupCtx := errgroup.WithContext(ctx)

	for _, task := range tasks {
		group.Go(func() error {
			acquireErr := sem.Acquire(groupCtx, 1)
			if acquireErr != nil {
				return fmt.Errorf("acquire semaphore: %w", acquireErr)
			}

			defer sem.Release(1)

			return task(groupCtx)
		})
	}

	waitErr := group.Wait()
	if waitErr != nil {
		return fmt.Errorf("parallel execution: %w", waitErr)
	}

	return nil
}

// ExecuteAll runs every task to completion regardless of individual failures
// and returns the errors encountered, in no particular order. Unlike Execute,
// a failing task does not cancel its siblings; callers aggregate the returned
// errors after all tasks have been attempted.
func (executor *Executor) ExecuteAll(ctx context.Context, tasks ...Task) []error {
	if len(tasks) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(executor.maxConcurrency)

	var (
		waitGroup sync.WaitGroup
		mu        sync.Mutex
		errs      []error
	)

	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()

		errs = append(errs, err)
	}

	for _, task := range tasks {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			acquireErr := sem.Acquire(ctx, 1)
			if acquireErr != nil {
				record(fmt.Errorf("acquire semaphore: %w", acquireErr))

				return
			}

			defer sem.Release(1)

			taskErr := task(ctx)
			if taskErr != nil {
				record(taskErr)
			}
		}()
	}

	waitGroup.Wait()

	return errs
}

// SyncWriter is a thread-safe writer that serializes writes from multiple goroutines.
type SyncWriter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewSyncWriter creates a new synchronized writer wrapping the given writer.
func NewSyncWriter(writer io.Writer) *SyncWriter {
	return &SyncWriter{writer: writer}
}

// Write writes data to the underlying writer with synchronization.
func (syncWriter *SyncWriter) Write(data []byte) (int, error) {
	syncWriter.mu.Lock()
	defer syncWriter.mu.Unlock()

	written, writeErr := syncWriter.writer.Write(data)
	if writeErr != nil {
		return written, fmt.Errorf("sync write: %w", writeErr)
	}

	return written, nil
}
