// Package testutil provides shared test utilities.
// These helpers keep channel waits bounded so a broken test fails instead of hanging.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for most async test operations.
	DefaultTestTimeout = 2 * time.Second

	// QuietPeriod is how long AssertNoReceive watches a channel.
	QuietPeriod = 50 * time.Millisecond
)

// Receive returns the next value from ch or fails the test after timeout.
func Receive[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed while waiting for a value")
		return v
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for a value", "after %v", timeout)
	}
	var zero T
	return zero
}

// AssertNoReceive fails the test if ch yields a value within wait.
func AssertNoReceive[T any](t *testing.T, ch <-chan T, wait time.Duration) {
	t.Helper()
	select {
	case v, ok := <-ch:
		if ok {
			require.Failf(t, "unexpected value", "%+v", v)
		}
	case <-time.After(wait):
	}
}
