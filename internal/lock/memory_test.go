package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseExclusion runs workers that each take the project lock and check
// that nobody else holds it.
func exerciseExclusion(t *testing.T, l Locker) {
	t.Helper()
	const workers = 8

	var held atomic.Int32
	var overlaps atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "p")
			if !assert.NoError(t, err) {
				return
			}
			if held.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(5 * time.Millisecond)
			held.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
}

func TestMemory_MutualExclusion(t *testing.T) {
	exerciseExclusion(t, NewMemory())
}

func TestMemory_ProjectsAreIndependent(t *testing.T) {
	l := NewMemory()

	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestMemory_HonoursContext(t *testing.T) {
	l := NewMemory()

	unlock, err := l.Lock(context.Background(), "p")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op

	again, err := l.Lock(context.Background(), "p")
	require.NoError(t, err)
	again()
}

func TestNop(t *testing.T) {
	unlock, err := Nop{}.Lock(context.Background(), "p")
	require.NoError(t, err)
	unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Nop{}.Lock(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
}
