package services

import (
	"time"
)

// SchedulePolicy maps the current market-local time to the delay before the
// next fetch cycle. It is a pure function of the clock so the timing rules
// stay testable apart from any timer mechanism.
//
// Windows are [start, end) hours and may wrap midnight. Inside the night
// window no fetching happens and the delay lands exactly at the window end;
// inside the peak window the shorter peak cadence applies; everywhere else
// the base cadence does.
type SchedulePolicy struct {
	Location     *time.Location
	NightStart   int
	NightEnd     int
	PeakStart    int
	PeakEnd      int
	BaseInterval time.Duration
	PeakInterval time.Duration
}

func (p SchedulePolicy) DelayUntilNext(now time.Time) time.Duration {
	local := now.In(p.Location)
	hour := local.Hour()

	if hourInWindow(hour, p.NightStart, p.NightEnd) {
		return delayUntilHour(local, p.NightEnd)
	}
	if hourInWindow(hour, p.PeakStart, p.PeakEnd) {
		return p.PeakInterval
	}
	return p.BaseInterval
}

func hourInWindow(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func delayUntilHour(local time.Time, hour int) time.Duration {
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, local.Location())
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}
