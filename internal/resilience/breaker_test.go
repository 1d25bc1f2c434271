package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Breaker_OpensAfterThresholdAndFailsFast(t *testing.T) {

	breaker := NewBreaker(3, time.Minute, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := breaker.Do(func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	invoked := false
	err := breaker.Do(func() error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, invoked)
	assert.True(t, breaker.State().Open)
}

func Test_Breaker_ClosesAfterCooldown(t *testing.T) {

	breaker := NewBreaker(2, time.Minute, 30*time.Millisecond)
	boom := errors.New("boom")

	_ = breaker.Do(func() error { return boom })
	_ = breaker.Do(func() error { return boom })
	assert.ErrorIs(t, breaker.Do(func() error { return nil }), ErrCircuitOpen)

	time.Sleep(50 * time.Millisecond)

	invoked := false
	err := breaker.Do(func() error {
		invoked = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, invoked)
	assert.False(t, breaker.State().Open)
}

func Test_Breaker_SuccessResetsFailureStreak(t *testing.T) {

	breaker := NewBreaker(3, time.Minute, time.Minute)
	boom := errors.New("boom")

	_ = breaker.Do(func() error { return boom })
	_ = breaker.Do(func() error { return boom })
	_ = breaker.Do(func() error { return nil })
	_ = breaker.Do(func() error { return boom })
	_ = breaker.Do(func() error { return boom })

	assert.False(t, breaker.State().Open)
}

func Test_Breaker_OldFailuresOutsideWindowDoNotCount(t *testing.T) {

	breaker := NewBreaker(3, 20*time.Millisecond, time.Minute)
	boom := errors.New("boom")

	_ = breaker.Do(func() error { return boom })
	_ = breaker.Do(func() error { return boom })

	time.Sleep(40 * time.Millisecond)

	_ = breaker.Do(func() error { return boom })
	assert.False(t, breaker.State().Open)
}
