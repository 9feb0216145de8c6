package lineup

import (
	"fmt"

	"github.com/jmylchreest/castarr/internal/models"
)

// Resolved is the outcome of locating the airing item for one instant.
type Resolved struct {
	// Item is the airing lineup item. For pre-start instants this is a
	// synthetic offline item not present in the stored lineup.
	Item models.LineupItem

	// Index is the item's position in the lineup, or -1 for the synthetic
	// pre-start offline item.
	Index int

	// TimeIntoItemMs is how far into the item playback should join, after
	// start snapping.
	TimeIntoItemMs int64

	// BeginningOffsetMs is how many milliseconds of the logical program had
	// elapsed before the join when the start was snapped to zero.
	BeginningOffsetMs int64
}

// RemainingMs returns how much of the item is left to play from the join
// point. The beginning offset counts as elapsed program time.
func (r *Resolved) RemainingMs() int64 {
	return r.Item.DurationMs - r.TimeIntoItemMs - r.BeginningOffsetMs
}

// Resolve locates the lineup item airing on the channel at nowMs.
//
// Before the channel's start time it returns a synthetic offline item
// covering the wait. Otherwise it walks the lineup at
// (nowMs - startTime) mod duration, smooths joins that would land within
// SlackMs of an item's end onto the next item, and snaps near-start joins
// back to the item start recording the skipped time as BeginningOffsetMs.
func Resolve(channel *models.Channel, items []models.LineupItem, nowMs int64) (*Resolved, error) {
	if nowMs < channel.StartTime {
		return &Resolved{
			Item: models.LineupItem{
				ChannelID:  channel.ID,
				Type:       models.LineupOffline,
				DurationMs: channel.StartTime - nowMs,
			},
			Index: -1,
		}, nil
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("channel %d: %w", channel.Number, ErrLineupEmpty)
	}

	var total int64
	for i := range items {
		total += items[i].DurationMs
	}
	// Guard the modulo below: a stored channel can carry a zero duration
	// when its lineup was never written.
	if channel.Duration <= 0 || total <= 0 {
		return nil, fmt.Errorf("channel %d: sum %dms vs duration %dms: %w",
			channel.Number, total, channel.Duration, ErrLineupDurationMismatch)
	}
	if diff := total - channel.Duration; diff > SlackMs || diff < -SlackMs {
		return nil, fmt.Errorf("channel %d: sum %dms vs duration %dms: %w",
			channel.Number, total, channel.Duration, ErrLineupDurationMismatch)
	}

	elapsed := (nowMs - channel.StartTime) % channel.Duration
	// The channel duration may exceed the item sum by up to SlackMs; fold
	// the overhang back into the lineup.
	if elapsed >= total {
		elapsed %= total
	}

	index := 0
	var accumulated int64
	for i := range items {
		if accumulated+items[i].DurationMs > elapsed {
			index = i
			break
		}
		accumulated += items[i].DurationMs
	}
	timeInto := elapsed - accumulated

	// Boundary smoothing: do not hand the client an item with less than
	// ten seconds left.
	item := items[index]
	if item.DurationMs > 2*SlackMs && timeInto > item.DurationMs-SlackMs {
		index = (index + 1) % len(items)
		item = items[index]
		timeInto = 0
	}

	resolved := &Resolved{
		Item:           item,
		Index:          index,
		TimeIntoItemMs: timeInto,
	}
	if timeInto > 0 && timeInto < startSnapMs {
		resolved.BeginningOffsetMs = timeInto
		resolved.TimeIntoItemMs = 0
	}
	return resolved, nil
}
