package vfslock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/filetree/vfscore/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseSerializes(t *testing.T) {
	l := New()
	ctx := context.Background()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			release, err := l.Acquire(ctx)
			require.NoError(t, err)
			defer release()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Len(t, order, n)
}

func TestAcquireRespectsFIFOOrder(t *testing.T) {
	l := New()
	ctx := context.Background()

	release0, err := l.Acquire(ctx)
	require.NoError(t, err)

	done := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		go func(i int) {
			release, err := l.Acquire(ctx)
			if err != nil {
				return
			}
			done <- i
			release()
		}(i)
		time.Sleep(10 * time.Millisecond) // ensure arrival order
	}

	release0()

	var got []int
	for i := 0; i < 3; i++ {
		got = append(got, <-done)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestAcquireTimesOutAsEdeadlk(t *testing.T) {
	l := New(WithTimeout(20 * time.Millisecond))
	ctx := context.Background()

	release, err := l.Acquire(ctx)
	require.NoError(t, err)
	defer release()

	_, err = l.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, fs.Is(err, fs.EDEADLK))
}

func TestTryAcquireFailsWhenHeld(t *testing.T) {
	l := New()

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = l.TryAcquire()
	require.Error(t, err)
	assert.True(t, fs.Is(err, fs.EBUSY))
}

func TestTryAcquireSucceedsWhenFree(t *testing.T) {
	l := New()

	release, err := l.TryAcquire()
	require.NoError(t, err)
	release()

	release, err = l.TryAcquire()
	require.NoError(t, err)
	release()
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	l := New(WithTimeout(time.Second))

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	cctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.Acquire(cctx)
	assert.ErrorIs(t, err, context.Canceled)
}
