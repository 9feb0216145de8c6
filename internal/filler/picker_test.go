package filler

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/castarr/internal/lineup"
	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/playback"
)

func seededPicker(cache *playback.Cache) *Picker {
	return NewPicker(cache, rand.New(rand.NewPCG(1, 2)))
}

func fillerChannel() *models.Channel {
	return &models.Channel{
		BaseModel:            models.BaseModel{ID: models.NewID()},
		Number:               7,
		Name:                 "test",
		FillerRepeatCooldown: 30 * 60 * 1000,
	}
}

func collection(weight int, cooldownMs int64, clipDurations ...int64) models.FillerCollection {
	show := &models.FillerShow{
		BaseModel: models.BaseModel{ID: models.NewID()},
		Name:      "bumpers",
	}
	for i, d := range clipDurations {
		show.Clips = append(show.Clips, models.FillerClip{
			BaseModel:    models.BaseModel{ID: models.NewID()},
			FillerShowID: show.ID,
			Position:     i,
			DurationMs:   d,
		})
	}
	return models.FillerCollection{
		BaseModel:    models.BaseModel{ID: models.NewID()},
		FillerShowID: show.ID,
		Weight:       weight,
		CooldownMs:   cooldownMs,
		Show:         show,
	}
}

func TestPickSingleNeverPlayedClip(t *testing.T) {
	// One collection, one 30s clip never played, 300s gap: the clip wins.
	cache := playback.NewCache()
	p := seededPicker(cache)

	coll := collection(1, 0, 30_000)
	res := p.Pick(&Request{
		Channel:     fillerChannel(),
		Collections: []models.FillerCollection{coll},
		RemainingMs: 300_000,
		NowMs:       1_000_000,
	})

	require.NotNil(t, res.Clip)
	assert.Equal(t, coll.Show.Clips[0].ID, res.Clip.ID)
	assert.Equal(t, coll.FillerShowID, res.ShowID)
	assert.EqualValues(t, 0, res.StartMs)
}

func TestPickFitsGap(t *testing.T) {
	// Clips longer than the gap plus slack are never returned.
	cache := playback.NewCache()
	p := seededPicker(cache)
	ch := fillerChannel()

	coll := collection(1, 0, 120_000, 20_000, 600_000)
	for range 50 {
		res := p.Pick(&Request{
			Channel:     ch,
			Collections: []models.FillerCollection{coll},
			RemainingMs: 60_000,
			NowMs:       1_000_000,
		})
		require.NotNil(t, res.Clip)
		assert.LessOrEqual(t, res.Clip.DurationMs, int64(60_000)+lineup.SlackMs)
	}
}

func TestPickRespectsClipCooldown(t *testing.T) {
	cache := playback.NewCache()
	p := seededPicker(cache)
	ch := fillerChannel()

	coll := collection(1, 0, 30_000)
	clip := &coll.Show.Clips[0]

	now := int64(10_000_000)
	cache.RecordItem(ch.Number, ClipKey(clip), now-1000)

	// The gap is long enough that waiting out the cooldown would still let
	// the clip fit, so the shortfall feeds the minimum wait.
	res := p.Pick(&Request{
		Channel:     ch,
		Collections: []models.FillerCollection{coll},
		RemainingMs: 3_600_000,
		NowMs:       now,
	})

	assert.Nil(t, res.Clip)
	require.True(t, res.HasWait)
	// Shortfall until the repeat cooldown (less slack) clears.
	assert.EqualValues(t, ch.FillerRepeatCooldown-lineup.SlackMs-1000, res.MinimumWaitMs)
}

func TestPickCooldownExpired(t *testing.T) {
	cache := playback.NewCache()
	p := seededPicker(cache)
	ch := fillerChannel()

	coll := collection(1, 0, 30_000)
	clip := &coll.Show.Clips[0]

	now := int64(100_000_000)
	cache.RecordItem(ch.Number, ClipKey(clip), now-ch.FillerRepeatCooldown)

	res := p.Pick(&Request{
		Channel:     ch,
		Collections: []models.FillerCollection{coll},
		RemainingMs: 300_000,
		NowMs:       now,
	})
	require.NotNil(t, res.Clip)
}

func TestPickCollectionCooldownGate(t *testing.T) {
	cache := playback.NewCache()
	p := seededPicker(cache)
	ch := fillerChannel()

	coolingDown := collection(1, 3_600_000, 30_000)
	ready := collection(1, 0, 45_000)

	now := int64(50_000_000)
	cache.RecordFiller(ch.Number, coolingDown.FillerShowID, now-60_000)

	for range 20 {
		res := p.Pick(&Request{
			Channel:     ch,
			Collections: []models.FillerCollection{coolingDown, ready},
			RemainingMs: 300_000,
			NowMs:       now,
		})
		require.NotNil(t, res.Clip)
		assert.Equal(t, ready.FillerShowID, res.ShowID)
	}
}

func TestPickCollectionWeights(t *testing.T) {
	// A weight-9 collection should win the lottery far more often than a
	// weight-1 one.
	cache := playback.NewCache()
	p := seededPicker(cache)
	ch := fillerChannel()

	heavy := collection(9, 0, 30_000)
	light := collection(1, 0, 30_000)

	heavyWins := 0
	const rounds = 2000
	for range rounds {
		res := p.Pick(&Request{
			Channel:     ch,
			Collections: []models.FillerCollection{light, heavy},
			RemainingMs: 300_000,
			NowMs:       1_000_000,
		})
		require.NotNil(t, res.Clip)
		if res.ShowID == heavy.FillerShowID {
			heavyWins++
		}
	}
	assert.Greater(t, heavyWins, rounds*8/10)
	assert.Less(t, heavyWins, rounds*97/100)
}

func TestPickFallbackClip(t *testing.T) {
	cache := playback.NewCache()
	p := seededPicker(cache)

	ch := fillerChannel()
	ch.OfflineMode = models.OfflineModeClip
	fallback := &models.FillerClip{
		BaseModel:  models.BaseModel{ID: models.NewID()},
		DurationMs: 60_000,
	}

	res := p.Pick(&Request{
		Channel:     ch,
		Fallback:    fallback,
		RemainingMs: 300_000,
		NowMs:       1_000_000,
	})
	require.NotNil(t, res.Clip)
	assert.Equal(t, fallback.ID, res.Clip.ID)
}

func TestPickNothingEligible(t *testing.T) {
	cache := playback.NewCache()
	p := seededPicker(cache)

	res := p.Pick(&Request{
		Channel:     fillerChannel(),
		RemainingMs: 300_000,
		NowMs:       1_000_000,
	})
	assert.Nil(t, res.Clip)
	assert.False(t, res.HasWait)
}

func TestPickFirstJoinShuffle(t *testing.T) {
	cache := playback.NewCache()
	p := seededPicker(cache)
	ch := fillerChannel()

	// A 10-minute clip against a 60s gap leaves plenty of shuffle room.
	coll := collection(1, 0, 600_000)

	sawNonZero := false
	for range 50 {
		res := p.Pick(&Request{
			Channel:     ch,
			Collections: []models.FillerCollection{coll},
			RemainingMs: 60_000,
			FirstJoin:   true,
			NowMs:       1_000_000,
		})
		require.NotNil(t, res.Clip)
		assert.GreaterOrEqual(t, res.StartMs, int64(0))
		assert.LessOrEqual(t, res.StartMs, 600_000-60_000-firstJoinReserveMs-lineup.SlackMs)
		if res.StartMs > 0 {
			sawNonZero = true
		}
	}
	assert.True(t, sawNonZero)
}

func TestPickFirstJoinShortClipStartsAtZero(t *testing.T) {
	cache := playback.NewCache()
	p := seededPicker(cache)

	coll := collection(1, 0, 30_000)
	res := p.Pick(&Request{
		Channel:     fillerChannel(),
		Collections: []models.FillerCollection{coll},
		RemainingMs: 300_000,
		FirstJoin:   true,
		NowMs:       1_000_000,
	})
	require.NotNil(t, res.Clip)
	assert.EqualValues(t, 0, res.StartMs)
}

func TestWeightFormulas(t *testing.T) {
	// Pinned values keep the integer weight formulas honest.
	assert.EqualValues(t, 7, durationWeight(30_000))
	assert.EqualValues(t, 902, recencyWeight(maxRecencyMs))

	// Longer unseen time never weighs less.
	assert.GreaterOrEqual(t,
		clipWeight(2*60*60*1000, 30_000),
		clipWeight(60*60*1000, 30_000))

	// The recency cap flattens everything past five hours.
	assert.Equal(t,
		clipWeight(maxRecencyMs, 30_000),
		clipWeight(neverPlayedAgeMs, 30_000))
}
