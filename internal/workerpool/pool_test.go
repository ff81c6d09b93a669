package workerpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/internal/workerpool"
	"github.com/aretw0/wayfarer/pkg/domain"
)

func TestPool_RunsJobs(t *testing.T) {
	p := workerpool.New(4, 16)
	var n atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		require.NoError(t, p.Submit("count", func(context.Context) {
			defer wg.Done()
			n.Add(1)
		}))
	}
	wg.Wait()
	require.NoError(t, p.Close(context.Background()))
	assert.EqualValues(t, 10, n.Load())
	assert.EqualValues(t, 10, p.Stats().Completed)
}

func TestPool_SaturatedQueueRejects(t *testing.T) {
	p := workerpool.New(1, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, p.Submit("blocker", func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Submit("queued", func(context.Context) {}))

	err := p.Submit("overflow", func(context.Context) {})
	assert.ErrorIs(t, err, domain.ErrPoolSaturated)

	close(release)
	require.NoError(t, p.Close(context.Background()))
}

func TestPool_ClosedRejects(t *testing.T) {
	p := workerpool.New(1, 1)
	require.NoError(t, p.Close(context.Background()))
	assert.ErrorIs(t, p.Submit("late", func(context.Context) {}), domain.ErrPoolClosed)
	assert.NoError(t, p.Close(context.Background()), "second close is a no-op")
}

func TestPool_CloseDrainsQueue(t *testing.T) {
	p := workerpool.New(1, 8)
	var n atomic.Int32
	for range 5 {
		require.NoError(t, p.Submit("slow", func(context.Context) {
			time.Sleep(5 * time.Millisecond)
			n.Add(1)
		}))
	}
	require.NoError(t, p.Close(context.Background()))
	assert.EqualValues(t, 5, n.Load())
}

func TestPool_CloseTimeoutCancelsJobs(t *testing.T) {
	p := workerpool.New(1, 1)
	started := make(chan struct{})
	require.NoError(t, p.Submit("stuck", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)
}

func TestPool_RecoversPanics(t *testing.T) {
	p := workerpool.New(1, 2)
	done := make(chan struct{})
	require.NoError(t, p.Submit("boom", func(context.Context) { panic("boom") }))
	require.NoError(t, p.Submit("after", func(context.Context) { close(done) }))
	<-done
	require.NoError(t, p.Close(context.Background()))
	assert.EqualValues(t, 1, p.Stats().Panics)
}
