package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerDisabledByDefault(t *testing.T) {
	b := NewBreaker(BreakerConfig{})

	for i := 0; i < 100; i++ {
		b.RecordTransientFailure()
	}
	assert.True(t, b.Allow())
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerOpensOnFailureStreak(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3})

	b.RecordTransientFailure()
	b.RecordTransientFailure()
	assert.True(t, b.Allow())

	b.RecordTransientFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3})

	b.RecordTransientFailure()
	b.RecordTransientFailure()
	b.RecordSuccess()
	b.RecordTransientFailure()
	b.RecordTransientFailure()

	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})

	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordTransientFailure()
	assert.False(t, b.Allow())

	// Reset timeout elapses: exactly one probe is admitted.
	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())
	assert.False(t, b.Allow())

	// A successful probe closes the circuit.
	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})

	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordTransientFailure()
	b.RecordTransientFailure()
	assert.Equal(t, BreakerOpen, b.State())

	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())

	// Single failed probe reopens regardless of the streak threshold.
	b.RecordTransientFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}
