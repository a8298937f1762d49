package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow(t *testing.T) {
	t.Run("allows requests within burst", func(t *testing.T) {
		limiter := New(10.0, 10)

		for i := 0; i < 10; i++ {
			assert.True(t, limiter.Allow(), "Request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow(), "11th request should be denied")
	})

	t.Run("refills tokens over time", func(t *testing.T) {
		limiter := New(100.0, 1)

		assert.True(t, limiter.Allow())
		assert.False(t, limiter.Allow())

		time.Sleep(30 * time.Millisecond)
		assert.True(t, limiter.Allow(), "Should allow after refill")
	})
}

func TestNewWithInterval(t *testing.T) {
	limiter := NewWithInterval(1, time.Hour)

	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "one event per interval")
}

func TestAllowN(t *testing.T) {
	limiter := New(10.0, 10)

	assert.True(t, limiter.AllowN(5))
	assert.True(t, limiter.AllowN(5))
	assert.False(t, limiter.AllowN(1))
	assert.False(t, New(5.0, 10).AllowN(15), "more than burst is never allowed")
}

func TestWait(t *testing.T) {
	t.Run("waits for refill", func(t *testing.T) {
		limiter := New(50.0, 1)
		require.True(t, limiter.Allow())

		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("gives up when context is done", func(t *testing.T) {
		limiter := NewWithInterval(1, time.Hour)
		require.True(t, limiter.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.Error(t, limiter.Wait(ctx))
	})

	t.Run("waits for n tokens", func(t *testing.T) {
		limiter := New(50.0, 10)
		require.True(t, limiter.AllowN(10))

		start := time.Now()
		require.NoError(t, limiter.WaitN(context.Background(), 10))
		assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
	})
}

func TestConcurrency(t *testing.T) {
	limiter := New(1000.0, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if limiter.Allow() {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, allowed, 1000)
	assert.Less(t, allowed, 2000)
}
