package deque

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeque_OwnerPushPopIsLIFO(t *testing.T) {
	d := New[int]()
	for i := 0; i < 5; i++ {
		v := i
		d.Push(&v)
	}
	for i := 4; i >= 0; i-- {
		item, ok := d.Pop()
		require.True(t, ok)
		assert.Equal(t, i, *item)
	}
	_, ok := d.Pop()
	assert.False(t, ok)
}

func TestDeque_StealIsFIFO(t *testing.T) {
	d := New[int]()
	for i := 0; i < 5; i++ {
		v := i
		d.Push(&v)
	}
	for i := 0; i < 5; i++ {
		item, ok := d.Steal()
		require.True(t, ok)
		assert.Equal(t, i, *item)
	}
	_, ok := d.Steal()
	assert.False(t, ok)
}

func TestDeque_GrowsPastInitialCapacity(t *testing.T) {
	d := New[int]()
	const n = initialCapacity * 3
	for i := 0; i < n; i++ {
		v := i
		d.Push(&v)
	}
	assert.Equal(t, n, d.Size())
	for i := n - 1; i >= 0; i-- {
		item, ok := d.Pop()
		require.True(t, ok)
		assert.Equal(t, i, *item)
	}
	assert.True(t, d.IsEmpty())
}

func TestDeque_StealWithTimeoutRespectsBound(t *testing.T) {
	d := New[int]()
	d.foreignLock.Lock()
	defer d.foreignLock.Unlock()

	start := time.Now()
	_, ok := d.StealWithTimeout(20 * time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

// TestDeque_ConcurrentOwnerAndStealers has one owner goroutine continuously
// pushing and popping while several stealers race to drain the deque; every
// item must be observed by exactly one side.
func TestDeque_ConcurrentOwnerAndStealers(t *testing.T) {
	d := New[int]()
	const total = 20000

	seen := make([]int32, total)
	var ownerPopped, stolen int64

	var ownerWG sync.WaitGroup
	ownerWG.Add(1)
	go func() {
		defer ownerWG.Done()
		pushed := 0
		for pushed < total {
			v := pushed
			d.Push(&v)
			pushed++
			if pushed%3 == 0 {
				if item, ok := d.Pop(); ok {
					atomic.AddInt32(&seen[*item], 1)
					atomic.AddInt64(&ownerPopped, 1)
				}
			}
		}
		for {
			item, ok := d.Pop()
			if !ok {
				return
			}
			atomic.AddInt32(&seen[*item], 1)
			atomic.AddInt64(&ownerPopped, 1)
		}
	}()

	const stealers = 4
	stop := make(chan struct{})
	var stealersWG sync.WaitGroup
	stealersWG.Add(stealers)
	for i := 0; i < stealers; i++ {
		go func() {
			defer stealersWG.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if item, ok := d.StealWithTimeout(time.Millisecond); ok {
					atomic.AddInt32(&seen[*item], 1)
					atomic.AddInt64(&stolen, 1)
				}
			}
		}()
	}

	ownerWG.Wait()
	close(stop)
	stealersWG.Wait()

	var missing, duplicated int
	for _, c := range seen {
		switch {
		case c == 0:
			missing++
		case c > 1:
			duplicated++
		}
	}
	assert.Zero(t, missing, "items never observed by owner or a stealer")
	assert.Zero(t, duplicated, "items observed more than once")
	t.Logf("owner popped %d, stealers took %d", ownerPopped, stolen)
}
