package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameLimiter(t *testing.T) {
	rl := NewFrameLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(), "frame %d within limit", i)
	}
	assert.False(t, rl.Allow(), "fourth frame in the window is blocked")
}

func TestFrameLimiterWindowSlides(t *testing.T) {
	rl := NewFrameLimiter(2, 20*time.Millisecond)

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.Allow(), "old attempts age out of the window")
}

func TestFrameLimiterDisabled(t *testing.T) {
	rl := NewFrameLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow())
	}
}
