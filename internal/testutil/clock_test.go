package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtEpoch(t *testing.T) {
	clock := NewClock()
	assert.Equal(t, Epoch, clock.Peek())
	assert.Equal(t, Epoch, clock.Now())
}

func TestClock_AdvancesByStep(t *testing.T) {
	clock := NewClock()

	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, time.Second, second.Sub(first))
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Peek())
}

func TestClock_Reset(t *testing.T) {
	clock := NewClock()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestClock_ThreadSafe(t *testing.T) {
	clock := NewClock()
	const workers = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := clock.Now()
			mu.Lock()
			seen[now] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Every call observed a distinct instant.
	assert.Len(t, seen, workers)
}
