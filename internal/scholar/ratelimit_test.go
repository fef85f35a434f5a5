package scholar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowLimiter_Allow(t *testing.T) {
	t.Run("admits up to the minute quota", func(t *testing.T) {
		w := NewWindowLimiter(3, 100)

		for i := 0; i < 3; i++ {
			assert.True(t, w.Allow(), "request %d within quota", i+1)
		}
		assert.False(t, w.Allow(), "request beyond minute quota should fail fast")
	})

	t.Run("admits again once the minute window clears", func(t *testing.T) {
		current := time.Now()
		w := NewWindowLimiter(2, 100)
		w.now = func() time.Time { return current }

		require.True(t, w.Allow())
		require.True(t, w.Allow())
		require.False(t, w.Allow())

		current = current.Add(61 * time.Second)
		assert.True(t, w.Allow(), "window should clear after a minute passes")
	})

	t.Run("hourly quota binds across minutes", func(t *testing.T) {
		current := time.Now()
		w := NewWindowLimiter(2, 4)
		w.now = func() time.Time { return current }

		require.True(t, w.Allow())
		require.True(t, w.Allow())

		current = current.Add(2 * time.Minute)
		require.True(t, w.Allow())
		require.True(t, w.Allow())

		current = current.Add(2 * time.Minute)
		assert.False(t, w.Allow(), "hourly quota of 4 is exhausted")

		current = current.Add(time.Hour)
		assert.True(t, w.Allow(), "hour window should eventually clear")
	})
}

func TestWindowLimiter_Remaining(t *testing.T) {
	current := time.Now()
	w := NewWindowLimiter(5, 10)
	w.now = func() time.Time { return current }

	minute, hour := w.Remaining()
	assert.Equal(t, 5, minute)
	assert.Equal(t, 10, hour)

	require.True(t, w.Allow())
	require.True(t, w.Allow())

	minute, hour = w.Remaining()
	assert.Equal(t, 3, minute)
	assert.Equal(t, 8, hour)

	current = current.Add(2 * time.Minute)
	minute, hour = w.Remaining()
	assert.Equal(t, 5, minute, "minute window should have cleared")
	assert.Equal(t, 8, hour, "hour window should still count both requests")
}

func TestWindowLimiter_RetryAfter(t *testing.T) {
	current := time.Now()
	w := NewWindowLimiter(1, 10)
	w.now = func() time.Time { return current }

	assert.Equal(t, time.Duration(0), w.RetryAfter(), "empty limiter admits immediately")

	require.True(t, w.Allow())
	wait := w.RetryAfter()
	assert.Greater(t, wait, 59*time.Second)
	assert.LessOrEqual(t, wait, time.Minute)
}
