package utils

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2)

	var running, peak, done int32
	for i := 0; i < 8; i++ {
		pool.Submit(func() error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			atomic.AddInt32(&done, 1)
			return nil
		})
	}

	assert.NoError(t, pool.Wait())
	assert.Equal(t, int32(8), done)
	assert.LessOrEqual(t, peak, int32(2))
}

func TestWorkerPoolCollectsErrors(t *testing.T) {
	pool := NewWorkerPool(3)
	errA, errB := errors.New("csv"), errors.New("sqlite")

	pool.Submit(func() error { return errA })
	pool.Submit(func() error { return nil })
	pool.Submit(func() error { return errB })

	err := pool.Wait()
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	pool.Submit(func() error { return nil })
	assert.NoError(t, pool.Wait(), "errors are reset after Wait")
}

func TestWorkerPoolClampsSize(t *testing.T) {
	pool := NewWorkerPool(0)
	ran := false
	pool.Submit(func() error { ran = true; return nil })
	assert.NoError(t, pool.Wait())
	assert.True(t, ran)
}
