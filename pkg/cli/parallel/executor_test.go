package parallel_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-dev/flotilla/pkg/cli/parallel"
)

var errTask = errors.New("task failed")

func TestExecuteRunsAllTasks(t *testing.T) {
	t.Parallel()

	executor := parallel.NewExecutor(4)

	var counter atomic.Int64

	tasks := make([]parallel.Task, 10)
	for i := range tasks {
		tasks[i] = func(_ context.Context) error {
			counter.Add(1)

			return nil
		}
	}

	err := executor.Execute(context.Background(), tasks...)

	require.NoError(t, err)
	assert.Equal(t, int64(10), counter.Load())
}

func TestExecuteReturnsFirstError(t *testing.T) {
	t.Parallel()

	executor := parallel.NewExecutor(2)

	err := executor.Execute(context.Background(),
		func(_ context.Context) error { return nil },
		func(_ context.Context) error { return errTask },
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, errTask)
}

func TestExecuteNoTasks(t *testing.T) {
	t.Parallel()

	executor := parallel.NewExecutor(0)

	assert.NoError(t, executor.Execute(context.Background()))
}

func TestExecuteAllCollectsEveryError(t *testing.T) {
	t.Parallel()

	executor := parallel.NewExecutor(2)

	var completed atomic.Int64

	errFirst := errors.New("first")
	errSecond := errors.New("second")

	tasks := []parallel.Task{
		func(_ context.Context) error { completed.Add(1); return errFirst },
		func(_ context.Context) error { completed.Add(1); return nil },
		func(_ context.Context) error { completed.Add(1); return errSecond },
		func(_ context.Context) error { completed.Add(1); return nil },
	}

	errs := executor.ExecuteAll(context.Background(), tasks...)

	// Every task ran despite the failures.
	assert.Equal(t, int64(4), completed.Load())
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errors.Join(errs...), errFirst)
	assert.ErrorIs(t, errors.Join(errs...), errSecond)
}

func TestExecuteAllRespectsConcurrencyBound(t *testing.T) {
	t.Parallel()

	const bound = 3

	executor := parallel.NewExecutor(bound)

	var current, peak atomic.Int64

	tasks := make([]parallel.Task, 20)
	for i := range tasks {
		tasks[i] = func(_ context.Context) error {
			running := current.Add(1)
			for {
				observed := peak.Load()
				if running <= observed || peak.CompareAndSwap(observed, running) {
					break
				}
			}

			current.Add(-1)

			return nil
		}
	}

	errs := executor.ExecuteAll(context.Background(), tasks...)

	assert.Empty(t, errs)
	assert.LessOrEqual(t, peak.Load(), int64(bound))
}

func TestExecuteAllNoTasks(t *testing.T) {
	t.Parallel()

	executor := parallel.NewExecutor(1)

	assert.Nil(t, executor.ExecuteAll(context.Background()))
}
