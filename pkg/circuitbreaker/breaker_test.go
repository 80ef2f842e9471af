package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	t.Run("trips after threshold failures in the window", func(t *testing.T) {
		cb := NewCircuitBreaker(true, 3, time.Minute, time.Hour, nil)

		assert.False(t, cb.RecordFailure())
		assert.False(t, cb.RecordFailure())
		assert.True(t, cb.RecordFailure())
		assert.True(t, cb.IsOpen())
	})

	t.Run("stays closed below the threshold", func(t *testing.T) {
		cb := NewCircuitBreaker(true, 3, time.Minute, time.Hour, nil)

		cb.RecordFailure()
		cb.RecordFailure()
		assert.False(t, cb.IsOpen())
	})

	t.Run("disabled breaker never opens", func(t *testing.T) {
		cb := NewCircuitBreaker(false, 1, time.Minute, time.Hour, nil)

		assert.False(t, cb.RecordFailure())
		assert.False(t, cb.IsOpen())
		assert.False(t, cb.IsEnabled())
	})

	t.Run("closes again after the reset timeout", func(t *testing.T) {
		cb := NewCircuitBreaker(true, 1, time.Minute, time.Millisecond, nil)

		cb.RecordFailure()
		time.Sleep(5 * time.Millisecond)
		assert.False(t, cb.IsOpen())
	})

	t.Run("manual reset closes the circuit", func(t *testing.T) {
		cb := NewCircuitBreaker(true, 1, time.Minute, time.Hour, nil)

		cb.RecordFailure()
		assert.True(t, cb.IsOpen())
		cb.Reset()
		assert.False(t, cb.IsOpen())

		count, _, _, _ := cb.GetState()
		assert.Zero(t, count)
	})
}
