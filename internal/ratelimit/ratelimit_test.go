package ratelimit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpnsentinel/vpnsentinel/internal/ratelimit"
)

func TestLimiter_AllowsExactlyConfiguredBurstThenBlocks(t *testing.T) {
	l := ratelimit.New(30)

	for i := 0; i < 30; i++ {
		allowed, _ := l.Allow("203.0.113.9")
		require.Truef(t, allowed, "request %d should be allowed within the burst", i+1)
	}

	allowed, retryAfter := l.Allow("203.0.113.9")
	assert.False(t, allowed, "the 31st request within the window must be rejected")
	assert.Greater(t, retryAfter.Seconds(), 0.0)
}

func TestLimiter_TracksIPsIndependently(t *testing.T) {
	l := ratelimit.New(1)

	allowed, _ := l.Allow("198.51.100.1")
	assert.True(t, allowed)

	allowed, _ = l.Allow("198.51.100.2")
	assert.True(t, allowed, "a different source IP must have its own budget")
}
