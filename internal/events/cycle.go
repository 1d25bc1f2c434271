package events

import "time"

var CycleCompletedTopic = "CycleCompletedEvent"

// CycleCompleted is published on the bus after a fetch cycle aggregates,
// mainly for the operator digest in the bot.
type CycleCompleted struct {
	CycleID  string
	Groups   int
	Found    int
	Stored   int
	Notified int
	Duration time.Duration
}
