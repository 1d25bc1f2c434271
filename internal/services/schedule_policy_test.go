package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func kyivPolicy(t *testing.T) SchedulePolicy {
	t.Helper()
	location, err := time.LoadLocation("Europe/Kyiv")
	assert.NoError(t, err)

	return SchedulePolicy{
		Location:     location,
		NightStart:   23,
		NightEnd:     7,
		PeakStart:    17,
		PeakEnd:      21,
		BaseInterval: time.Hour,
		PeakInterval: 30 * time.Minute,
	}
}

func at(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	location, _ := time.LoadLocation("Europe/Kyiv")
	return time.Date(2026, 8, 20, hour, minute, 0, 0, location)
}

func Test_SchedulePolicy_NightWindowDelaysToWindowEnd(t *testing.T) {

	policy := kyivPolicy(t)

	cases := []struct {
		now      time.Time
		expected time.Duration
	}{
		{at(t, 23, 0), 8 * time.Hour},
		{at(t, 23, 30), 7*time.Hour + 30*time.Minute},
		{at(t, 2, 0), 5 * time.Hour},
		{at(t, 6, 45), 15 * time.Minute},
	}

	for _, tc := range cases {
		t.Run(tc.now.Format("15:04"), func(t *testing.T) {
			delay := policy.DelayUntilNext(tc.now)
			assert.Equal(t, tc.expected, delay)
			assert.Equal(t, 7, tc.now.Add(delay).In(policy.Location).Hour())
		})
	}
}

func Test_SchedulePolicy_FixedCadences(t *testing.T) {

	policy := kyivPolicy(t)

	for hour := 0; hour < 24; hour++ {
		now := at(t, hour, 15)
		delay := policy.DelayUntilNext(now)

		switch {
		case hour >= 23 || hour < 7:
			assert.Greater(t, delay, time.Duration(0), fmt.Sprintf("hour %d", hour))
		case hour >= 17 && hour < 21:
			assert.Equal(t, 30*time.Minute, delay, fmt.Sprintf("hour %d", hour))
		default:
			assert.Equal(t, time.Hour, delay, fmt.Sprintf("hour %d", hour))
		}
	}
}

func Test_SchedulePolicy_UTCInputConvertsToLocalZone(t *testing.T) {

	policy := kyivPolicy(t)

	// 21:00 UTC is midnight in Kyiv during summer time: inside the night window
	now := time.Date(2026, 8, 20, 21, 0, 0, 0, time.UTC)
	delay := policy.DelayUntilNext(now)
	assert.Equal(t, 7*time.Hour, delay)
}

func Test_SchedulePolicy_EmptyWindowNeverMatches(t *testing.T) {

	policy := kyivPolicy(t)
	policy.PeakStart, policy.PeakEnd = 0, 0

	assert.Equal(t, time.Hour, policy.DelayUntilNext(at(t, 18, 0)))
}
