package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Serializes(t *testing.T) {
	l := NewMemoryLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "doctor-1", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, unlock())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxInside)
}

func TestMemoryLocker_RespectsContext(t *testing.T) {
	l := NewMemoryLocker()
	unlock, err := l.Lock(context.Background(), "doctor-1", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "doctor-1", time.Second)
	assert.ErrorIs(t, err, ErrLockBusy)

	other, err := l.Lock(context.Background(), "doctor-2", time.Second)
	require.NoError(t, err, "different keys do not contend")
	require.NoError(t, other())

	require.NoError(t, unlock())
	require.NoError(t, unlock(), "release is idempotent")
	again, err := l.Lock(context.Background(), "doctor-1", time.Second)
	require.NoError(t, err)
	require.NoError(t, again())
}
