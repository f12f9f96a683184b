package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("mail-provider")
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
	assert.Equal(t, "mail-provider", b.Name())
}

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	b := New("mail-provider", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		useFallback, change := b.RecordFailure()
		assert.False(t, useFallback)
		assert.False(t, change.Opened)
	}

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())
}

func TestBreakerFailureWhileOpenReportsNoTransition(t *testing.T) {
	b := New("mail-provider", WithFailureThreshold(1))
	b.RecordFailure()

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened)
}

func TestBreakerClosesAtSuccessThreshold(t *testing.T) {
	b := New("mail-provider", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)
	assert.True(t, b.IsOpen())

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreakerSuccessClearsFailureStreak(t *testing.T) {
	b := New("mail-provider", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen(), "streak restarted after the success")

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreakerFailureClearsSuccessStreak(t *testing.T) {
	b := New("mail-provider", WithFailureThreshold(1), WithSuccessThreshold(3))
	b.RecordFailure()

	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()

	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.IsOpen(), "streak restarted after the failure")
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestBreakerAllowsOneProbePerCooldown(t *testing.T) {
	now := time.Now()
	b := New("mail-provider", WithFailureThreshold(1), WithCooldown(time.Minute))
	b.now = func() time.Time { return now }

	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(61 * time.Second)
	assert.True(t, b.Allow(), "cooldown elapsed, one probe goes through")
	assert.False(t, b.Allow(), "second caller in the same window waits")

	now = now.Add(61 * time.Second)
	assert.True(t, b.Allow())
}

func TestBreakerProbeOutcomes(t *testing.T) {
	now := time.Now()
	b := New("mail-provider", WithFailureThreshold(1), WithCooldown(time.Minute))
	b.now = func() time.Time { return now }
	b.RecordFailure()

	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())

	// A failed probe restarts the cooldown from the failure.
	b.RecordFailure()
	now = now.Add(30 * time.Second)
	assert.False(t, b.Allow())
	now = now.Add(31 * time.Second)
	assert.True(t, b.Allow())

	// A successful probe closes the circuit outright.
	_, change := b.RecordSuccess()
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
	assert.True(t, b.Allow(), "closed circuit allows every caller")
}

func TestBreakerReset(t *testing.T) {
	b := New("mail-provider", WithFailureThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}
