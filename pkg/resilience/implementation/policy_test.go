package implementation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jt828/wolam/pkg/resilience"
	"github.com/jt828/wolam/pkg/resilience/implementation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds on first attempt", func(t *testing.T) {
		p := implementation.NewPolicy("test", resilience.WithMaxRetries(3), resilience.WithInterval(time.Millisecond))
		callCount := 0

		err := p.Do(ctx, func(ctx context.Context) error {
			callCount++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, callCount)
	})

	t.Run("succeeds after retries", func(t *testing.T) {
		p := implementation.NewPolicy("test",
			resilience.WithMaxRetries(3),
			resilience.WithInterval(time.Millisecond),
			resilience.WithRetryable(func(err error) bool { return true }),
		)
		callCount := 0

		err := p.Do(ctx, func(ctx context.Context) error {
			callCount++
			if callCount < 3 {
				return errors.New("transient error")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, callCount)
	})

	t.Run("returns error after max retries exhausted", func(t *testing.T) {
		p := implementation.NewPolicy("test",
			resilience.WithMaxRetries(2),
			resilience.WithInterval(time.Millisecond),
			resilience.WithRetryable(func(err error) bool { return true }),
		)
		callCount := 0
		persistentErr := errors.New("persistent error")

		err := p.Do(ctx, func(ctx context.Context) error {
			callCount++
			return persistentErr
		})

		assert.ErrorIs(t, err, persistentErr)
		// initial attempt + 2 retries = 3 calls
		assert.Equal(t, 3, callCount)
	})

	t.Run("non-retryable error fails immediately", func(t *testing.T) {
		p := implementation.NewPolicy("test",
			resilience.WithMaxRetries(3),
			resilience.WithInterval(time.Millisecond),
			resilience.WithRetryable(func(err error) bool { return false }),
		)
		callCount := 0

		err := p.Do(ctx, func(ctx context.Context) error {
			callCount++
			return errors.New("fatal error")
		})

		assert.ErrorContains(t, err, "fatal error")
		assert.Equal(t, 1, callCount)
	})

	t.Run("each call gets a fresh retry budget", func(t *testing.T) {
		p := implementation.NewPolicy("test",
			resilience.WithMaxRetries(1),
			resilience.WithInterval(time.Millisecond),
			resilience.WithTripAfter(100),
		)

		for i := 0; i < 3; i++ {
			calls := 0
			_ = p.Do(ctx, func(ctx context.Context) error {
				calls++
				return errors.New("fail")
			})
			assert.Equal(t, 2, calls)
		}
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		p := implementation.NewPolicy("test",
			resilience.WithMaxRetries(10),
			resilience.WithInterval(50*time.Millisecond),
		)
		cctx, cancel := context.WithCancel(ctx)
		callCount := 0

		err := p.Do(cctx, func(ctx context.Context) error {
			callCount++
			cancel()
			return errors.New("transient")
		})

		assert.Error(t, err)
		assert.Equal(t, 1, callCount)
	})
}

func TestPolicy_Breaker(t *testing.T) {
	ctx := context.Background()

	t.Run("initial state is closed", func(t *testing.T) {
		p := implementation.NewPolicy("test")
		assert.Equal(t, resilience.Closed, p.State())
	})

	t.Run("opens after reaching failure threshold", func(t *testing.T) {
		var transitions []resilience.State
		p := implementation.NewPolicy("test",
			resilience.WithRetryable(func(err error) bool { return false }),
			resilience.WithTripAfter(3),
			resilience.WithStateChange(func(name string, from, to resilience.State) {
				transitions = append(transitions, to)
			}),
		)

		opErr := errors.New("fail")
		for i := 0; i < 3; i++ {
			_ = p.Do(ctx, func(ctx context.Context) error { return opErr })
		}

		assert.Equal(t, resilience.Open, p.State())
		assert.Equal(t, []resilience.State{resilience.Open}, transitions)

		err := p.Do(ctx, func(ctx context.Context) error {
			t.Fatal("should not be called when circuit is open")
			return nil
		})
		assert.Error(t, err)
	})

	t.Run("state transitions to half-open after timeout", func(t *testing.T) {
		p := implementation.NewPolicy("test",
			resilience.WithRetryable(func(err error) bool { return false }),
			resilience.WithTripAfter(1),
			resilience.WithOpenTimeout(time.Millisecond),
		)

		_ = p.Do(ctx, func(ctx context.Context) error { return errors.New("fail") })
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, resilience.HalfOpen, p.State())
		assert.Equal(t, "half-open", p.State().String())
	})
}
