// Package filler selects clips to pad offline gaps in a channel's schedule.
//
// Selection is a two-level weighted lottery: first a filler collection is
// drawn proportionally to its weight among those off cooldown, then a clip
// within it is drawn weighted by recency and duration among those that fit
// the remaining gap and respect the channel's repeat cooldown.
package filler

import (
	"math/rand/v2"

	"github.com/jmylchreest/castarr/internal/lineup"
	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/playback"
)

const (
	// neverPlayedAgeMs is the assumed age of a clip that has never been
	// played, old enough to clear any sane cooldown.
	neverPlayedAgeMs int64 = 7 * 24 * 60 * 60 * 1000

	// maxRecencyMs caps the recency contribution to the clip weight.
	maxRecencyMs int64 = 5 * 60 * 60 * 1000

	// firstJoinReserveMs is kept unshuffled at the clip tail on first joins
	// so the splice into the next program stays clean.
	firstJoinReserveMs int64 = 15000
)

// Request carries the inputs for one filler selection.
type Request struct {
	// Channel supplies the repeat cooldown, offline mode and fallback.
	Channel *models.Channel

	// Collections are the channel's filler collections with shows and clips
	// preloaded.
	Collections []models.FillerCollection

	// Fallback is the channel's static fallback clip for clip offline mode,
	// or nil.
	Fallback *models.FillerClip

	// RemainingMs is the offline gap left to fill.
	RemainingMs int64

	// FirstJoin marks a fresh tune-in; the chosen clip gets a shuffled
	// start so every join does not land on the same opener.
	FirstJoin bool

	// NowMs is the selection instant in epoch milliseconds.
	NowMs int64
}

// Result is the outcome of one filler selection.
type Result struct {
	// Clip is the selected filler clip, or nil when nothing is eligible.
	Clip *models.FillerClip

	// ShowID is the filler show the clip came from, for cooldown records.
	ShowID models.ID

	// StartMs is how far into the clip playback should start.
	StartMs int64

	// MinimumWaitMs is the shortest time until some currently-ineligible
	// candidate clears its cooldown. Valid only when HasWait is true; when
	// Clip is nil the caller shortens the offline gap to it so the next
	// resolve attempt has candidates.
	MinimumWaitMs int64

	// HasWait reports whether any cooldown shortfall was recorded.
	HasWait bool
}

// Picker runs the filler lottery against the playback cache.
type Picker struct {
	cache *playback.Cache
	rng   *rand.Rand
}

// NewPicker creates a picker. rng may be nil, in which case the shared
// global source is used; tests inject a seeded source.
func NewPicker(cache *playback.Cache, rng *rand.Rand) *Picker {
	return &Picker{cache: cache, rng: rng}
}

func (p *Picker) float64() float64 {
	if p.rng != nil {
		return p.rng.Float64()
	}
	return rand.Float64()
}

func (p *Picker) int64n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	if p.rng != nil {
		return p.rng.Int64N(n)
	}
	return rand.Int64N(n)
}

// Pick selects a filler clip for the request. When the lottery yields
// nothing and the channel uses clip offline mode with a static fallback, the
// fallback is returned instead.
func (p *Picker) Pick(req *Request) *Result {
	res := &Result{}

	collection := p.pickCollection(req, res)
	if collection != nil {
		if clip := p.pickClip(req, collection, res); clip != nil {
			res.Clip = clip
			res.ShowID = collection.FillerShowID
			if req.FirstJoin {
				res.StartMs = p.shuffleStart(clip.DurationMs, req.RemainingMs)
			}
			return res
		}
	}

	if req.Channel.OfflineMode == models.OfflineModeClip && req.Fallback != nil {
		res.Clip = req.Fallback
		return res
	}

	return res
}

// pickCollection runs the collection-level lottery over collections off
// cooldown. Shortfalls of cooling-down collections feed the minimum wait.
func (p *Picker) pickCollection(req *Request, res *Result) *models.FillerCollection {
	var (
		selected *models.FillerCollection
		total    int64
	)
	for i := range req.Collections {
		c := &req.Collections[i]
		if c.Show == nil || len(c.Show.Clips) == 0 {
			continue
		}

		since := neverPlayedAgeMs
		if at, ok := p.cache.LastPlayedFiller(req.Channel.Number, c.FillerShowID); ok {
			since = req.NowMs - at
		}
		if since < c.CooldownMs {
			res.noteWait(c.CooldownMs - since)
			continue
		}

		w := int64(c.Weight)
		total += w
		if p.float64() < float64(w)/float64(total) {
			selected = c
		}
	}
	return selected
}

// pickClip runs the clip-level lottery within the chosen collection.
func (p *Picker) pickClip(req *Request, collection *models.FillerCollection, res *Result) *models.FillerClip {
	cooldown := req.Channel.FillerRepeatCooldown
	fit := req.RemainingMs + lineup.SlackMs

	var (
		selected *models.FillerClip
		total    int64
	)
	for i := range collection.Show.Clips {
		clip := &collection.Show.Clips[i]
		if clip.DurationMs > fit {
			continue
		}

		since := neverPlayedAgeMs
		if at, ok := p.cache.LastPlayedItem(req.Channel.Number, clipKey(clip)); ok {
			since = req.NowMs - at
		}
		if since < cooldown-lineup.SlackMs {
			// The clip is cooling down; if it would still fit once the
			// cooldown clears, waiting for it is an option.
			shortfall := cooldown - lineup.SlackMs - since
			if clip.DurationMs+shortfall <= fit {
				res.noteWait(shortfall)
			}
			continue
		}

		w := clipWeight(since, clip.DurationMs)
		total += w
		if p.float64() < float64(w)/float64(total) {
			selected = clip
		}
	}
	return selected
}

// shuffleStart picks a random start offset leaving enough of the clip to
// cover the gap plus the splice reserve.
func (p *Picker) shuffleStart(clipDurationMs, remainingMs int64) int64 {
	bound := clipDurationMs - remainingMs - firstJoinReserveMs - lineup.SlackMs
	if bound <= 0 {
		return 0
	}
	return p.int64n(bound)
}

func (r *Result) noteWait(waitMs int64) {
	if !r.HasWait || waitMs < r.MinimumWaitMs {
		r.MinimumWaitMs = waitMs
		r.HasWait = true
	}
}

// clipKey is the playback-cache key of a filler clip.
func clipKey(clip *models.FillerClip) string {
	return "filler|" + clip.ID.String()
}

// ClipKey exposes the playback-cache key of a clip for record keeping by the
// stream controller.
func ClipKey(clip *models.FillerClip) string {
	return clipKey(clip)
}
