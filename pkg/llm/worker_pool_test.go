package llm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProcess_ResultsInSubmissionOrder(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 4}, zap.NewNop())

	items := make([]WorkItem[int], 4)
	for i := range items {
		delay := time.Duration(4-i) * 5 * time.Millisecond
		n := i
		items[i] = WorkItem[int]{
			ID: fmt.Sprintf("item-%d", i),
			Execute: func(ctx context.Context) (int, error) {
				time.Sleep(delay)
				return n * 10, nil
			},
		}
	}

	results := Process(context.Background(), pool, items, nil)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("item-%d", i), r.ID)
		assert.Equal(t, i*10, r.Result)
		assert.NoError(t, r.Err)
	}
}

func TestProcess_FailuresDoNotAbortBatch(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())
	boom := errors.New("task failed")

	items := []WorkItem[string]{
		{ID: "a", Execute: func(ctx context.Context) (string, error) { return "ok", nil }},
		{ID: "b", Execute: func(ctx context.Context) (string, error) { return "", boom }},
		{ID: "c", Execute: func(ctx context.Context) (string, error) { return "ok", nil }},
	}

	results := Process(context.Background(), pool, items, nil)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
}

func TestProcess_RespectsConcurrencyLimit(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	var current, peak int32
	items := make([]WorkItem[struct{}], 6)
	for i := range items {
		items[i] = WorkItem[struct{}]{Execute: func(ctx context.Context) (struct{}, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return struct{}{}, nil
		}}
	}

	var progress int32
	Process(context.Background(), pool, items, func(completed, total int) {
		atomic.AddInt32(&progress, 1)
		assert.Equal(t, 6, total)
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Equal(t, int32(6), atomic.LoadInt32(&progress))
}

func TestProcess_Empty(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{}, zap.NewNop())
	assert.Nil(t, Process[int](context.Background(), pool, nil, nil))
	assert.Equal(t, 8, pool.MaxConcurrent())
}
