package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/castarr/internal/lineup"
	"github.com/jmylchreest/castarr/internal/models"
)

const guideAnchorMs = 1_700_000_000_000

type fakeGuideStore struct {
	channels []*models.Channel
	lineups  map[models.ID][]models.LineupItem
}

func (s *fakeGuideStore) GetAll(_ context.Context, includeStealth bool) ([]*models.Channel, error) {
	if includeStealth {
		return s.channels, nil
	}
	var out []*models.Channel
	for _, ch := range s.channels {
		if !ch.Stealth {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (s *fakeGuideStore) GetLineup(_ context.Context, id models.ID) ([]models.LineupItem, error) {
	return s.lineups[id], nil
}

func guideFixture() (*fakeGuideStore, *models.Channel) {
	ch := &models.Channel{
		Number:    1,
		Name:      "Retro TV",
		StartTime: guideAnchorMs,
		Duration:  3_600_000,
	}
	ch.ID = models.NewID()
	ch.Icon.URL = "http://assets/retro.png"

	prog := &models.Program{
		Type:       models.ProgramEpisode,
		DurationMs: 1_800_000,
		Title:      "Space Patrol",
		Season:     1,
		Episode:    3,
		Summary:    "The crew lands.",
	}
	store := &fakeGuideStore{
		channels: []*models.Channel{ch},
		lineups: map[models.ID][]models.LineupItem{
			ch.ID: {
				{ChannelID: ch.ID, Position: 0, Type: models.LineupContent, Program: prog, DurationMs: 1_800_000},
				{ChannelID: ch.ID, Position: 1, Type: models.LineupOffline, DurationMs: 1_800_000},
			},
		},
	}
	return store, ch
}

func TestGuideRefresh(t *testing.T) {
	store, _ := guideFixture()
	svc := NewGuideService(store, lineup.FixedClock(guideAnchorMs), "http://host:8080", discardLogger())
	svc.SetWindow(2 * time.Hour)

	data, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `<channel id="castarr.1">`)
	assert.Contains(t, out, `<display-name>Retro TV</display-name>`)
	assert.Contains(t, out, "http://host:8080/video?channel=1")
	assert.Contains(t, out, `<title lang="en">Space Patrol</title>`)
	assert.Contains(t, out, `<episode-num system="onscreen">S01E03</episode-num>`)
	assert.Contains(t, out, `<title lang="en">Offline</title>`)
	// A 2 h window over a 1 h lineup of two 30 m items yields 4 blocks.
	assert.Equal(t, 4, strings.Count(out, "<programme "))
	assert.True(t, strings.HasSuffix(out, "</tv>\n"))
}

func TestGuideAlignsToCurrentItem(t *testing.T) {
	store, _ := guideFixture()
	// 40 minutes into the cycle the offline item is airing, 10 minutes in.
	now := int64(guideAnchorMs + 40*60*1000)
	svc := NewGuideService(store, lineup.FixedClock(now), "http://host:8080", discardLogger())
	svc.SetWindow(time.Hour)

	data, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	blockStart := time.UnixMilli(guideAnchorMs + 30*60*1000)
	assert.Contains(t, string(data), fmt.Sprintf(`start="%s"`, blockStart.UTC().Format("20060102150405 +0000")))
}

func TestGuideExcludesStealthChannels(t *testing.T) {
	store, _ := guideFixture()
	hidden := &models.Channel{Number: 2, Name: "Hidden", StartTime: guideAnchorMs, Duration: 60_000, Stealth: true}
	hidden.ID = models.NewID()
	store.channels = append(store.channels, hidden)

	svc := NewGuideService(store, lineup.FixedClock(guideAnchorMs), "http://host:8080", discardLogger())
	data, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, string(data), "castarr.2")
}

func TestGuidePreStartChannelShowsOffAir(t *testing.T) {
	store, ch := guideFixture()
	ch.StartTime = guideAnchorMs + 30*60*1000 // starts in half an hour

	svc := NewGuideService(store, lineup.FixedClock(guideAnchorMs), "http://host:8080", discardLogger())
	svc.SetWindow(2 * time.Hour)

	data, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `<title lang="en">Off Air</title>`)
	assert.Contains(t, out, `<title lang="en">Space Patrol</title>`)
}

func TestGuideEmptyLineupIsOffAir(t *testing.T) {
	store, ch := guideFixture()
	store.lineups[ch.ID] = nil

	svc := NewGuideService(store, lineup.FixedClock(guideAnchorMs), "http://host:8080", discardLogger())
	data, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `<title lang="en">Off Air</title>`)
	assert.Equal(t, 1, strings.Count(out, "<programme "))
}

func TestGuideXMLCaches(t *testing.T) {
	store, _ := guideFixture()
	svc := NewGuideService(store, lineup.FixedClock(guideAnchorMs), "http://host:8080", discardLogger())

	first, err := svc.XML(context.Background())
	require.NoError(t, err)

	// Mutating the store does not change the cached document until Refresh.
	store.channels[0].Name = "Renamed"
	second, err := svc.XML(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	refreshed, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(refreshed), "Renamed")
}

func TestGuideChannelID(t *testing.T) {
	assert.Equal(t, "castarr.42", GuideChannelID(42))
}
