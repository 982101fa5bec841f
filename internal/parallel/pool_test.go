package parallel

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(4)
	var done atomic.Int64
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.Submit(ctx, func() { done.Add(1) }))
	}
	pool.Close()
	assert.Equal(t, int64(100), done.Load())
}

func TestPool_SubmitAfterClose(t *testing.T) {
	pool := NewPool(1)
	pool.Close()
	err := pool.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrPoolShutdown)
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	pool := NewPool(2)
	require.NoError(t, pool.Submit(context.Background(), func() {}))
	pool.Close()
	pool.Close()
}

func TestPool_DefaultWorkerCount(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()
	assert.Positive(t, pool.Workers())
}
