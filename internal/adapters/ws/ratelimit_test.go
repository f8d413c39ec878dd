package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientLimiter_BurstThenThrottle(t *testing.T) {
	l := NewClientLimiter(1, 3)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client-1"), "request %d should pass within burst", i)
	}
	assert.False(t, l.Allow("client-1"), "burst exhausted, request must be throttled")
}

func TestClientLimiter_ClientsAreIndependent(t *testing.T) {
	l := NewClientLimiter(1, 1)
	defer l.Stop()

	assert.True(t, l.Allow("client-1"))
	assert.False(t, l.Allow("client-1"))
	assert.True(t, l.Allow("client-2"))
}

func TestClientLimiter_StopIsIdempotent(t *testing.T) {
	l := NewClientLimiter(1, 1)
	l.Stop()
	l.Stop()
}
