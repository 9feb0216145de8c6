// Package lineup resolves which item of a channel's looping schedule is on
// the air at a given wall-clock instant, and follows redirect items across
// channels.
//
// All times are epoch milliseconds. A channel's lineup is anchored at its
// StartTime and loops modulo its Duration, so the airing position is fully
// deterministic: elapsedInLoop = (now - startTime) mod duration.
package lineup

import (
	"errors"
	"time"
)

const (
	// SlackMs is the tolerance used for boundary smoothing, duration
	// mismatch detection and cooldown fuzzing.
	SlackMs int64 = 9900

	// startSnapMs is the threshold under which a mid-item join is snapped
	// back to the item start. Encoders and container probes routinely lose
	// the first few seconds on a mid-file seek; clients prefer starting
	// fresh.
	startSnapMs int64 = 30000
)

// Sentinel errors for lineup resolution.
var (
	// ErrLineupEmpty indicates the channel has no lineup items.
	ErrLineupEmpty = errors.New("lineup is empty")

	// ErrLineupDurationMismatch indicates the summed item durations diverge
	// from the channel duration by more than the slack tolerance.
	ErrLineupDurationMismatch = errors.New("lineup durations diverge from channel duration")
)

// Clock supplies the current time in epoch milliseconds. The resolver takes
// an explicit instant so callers can re-resolve at shifted times; Clock is
// what the stream controller uses to obtain that instant.
type Clock interface {
	NowMs() int64
}

type systemClock struct{}

func (systemClock) NowMs() int64 {
	return time.Now().UnixMilli()
}

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

// FixedClock returns a Clock pinned to the given instant, for tests.
func FixedClock(ms int64) Clock {
	return fixedClock(ms)
}

type fixedClock int64

func (c fixedClock) NowMs() int64 {
	return int64(c)
}
