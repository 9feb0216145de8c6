package lineup

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/castarr/internal/models"
)

// ChannelLoader loads a channel and its lineup for redirect hops. Implemented
// by the repository store.
type ChannelLoader interface {
	ChannelAndLineup(ctx context.Context, id models.ID) (*models.Channel, []models.LineupItem, error)
}

// CycleError reports a redirect loop between channels. It is surfaced to the
// client as an in-stream offline item, never as an HTTP error.
type CycleError struct {
	// Path is the chain of channel IDs visited, ending with the repeated one.
	Path []models.ID
}

// Error implements the error interface. The text carries every channel ID in
// the cycle so the offline screen names both ends of the loop.
func (e *CycleError) Error() string {
	ids := make([]string, len(e.Path))
	for i, id := range e.Path {
		ids[i] = id.String()
	}
	return "redirect cycle: " + strings.Join(ids, " -> ")
}

// Walked is the outcome of following redirect items to a playable one.
type Walked struct {
	// Channel is the channel the final item belongs to. Equal to the
	// starting channel when no redirect was followed.
	Channel *models.Channel

	// Lineup is the final channel's lineup.
	Lineup []models.LineupItem

	// Resolved is the final non-redirect resolution.
	Resolved *Resolved

	// StreamDurationMs is how long the final item may play, clamped so the
	// client leaves each redirected channel no later than the redirect item
	// that sent it there would have ended.
	StreamDurationMs int64

	// Hops is the number of redirects followed.
	Hops int
}

// Walker follows redirect lineup items across channels.
type Walker struct {
	loader ChannelLoader
}

// NewWalker creates a redirect walker over the given loader.
func NewWalker(loader ChannelLoader) *Walker {
	return &Walker{loader: loader}
}

// Walk re-resolves through redirect items until a playable item is reached.
// Termination is guaranteed: each hop must reach a channel not yet visited,
// so the walk takes at most as many hops as there are channels before either
// finishing or returning a CycleError.
func (w *Walker) Walk(ctx context.Context, channel *models.Channel, items []models.LineupItem, resolved *Resolved, nowMs int64) (*Walked, error) {
	visited := []models.ID{channel.ID}
	// boundsMs holds the remaining play time of each redirect item, from
	// outermost to innermost hop.
	var boundsMs []int64
	hops := 0

	for resolved.Item.Type == models.LineupRedirect {
		target := *resolved.Item.RedirectChannelID
		for _, seen := range visited {
			if seen == target {
				return nil, &CycleError{Path: append(visited, target)}
			}
		}
		boundsMs = append(boundsMs, resolved.RemainingMs())

		next, nextItems, err := w.loader.ChannelAndLineup(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("loading redirect target %s: %w", target, err)
		}

		nextResolved, err := Resolve(next, nextItems, nowMs)
		if err != nil {
			return nil, fmt.Errorf("resolving redirect target %d: %w", next.Number, err)
		}

		visited = append(visited, target)
		channel, items, resolved = next, nextItems, nextResolved
		hops++
	}

	streamDuration := resolved.RemainingMs()
	for i := len(boundsMs) - 1; i >= 0; i-- {
		if bound := boundsMs[i] + resolved.BeginningOffsetMs; bound < streamDuration {
			streamDuration = bound
		}
	}

	return &Walked{
		Channel:          channel,
		Lineup:           items,
		Resolved:         resolved,
		StreamDurationMs: streamDuration,
		Hops:             hops,
	}, nil
}
