package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/castarr/internal/lineup"
	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/service"
)

type fakeGuideStore struct {
	channels []*models.Channel
	lineups  map[models.ID][]models.LineupItem
}

func (f *fakeGuideStore) GetAll(_ context.Context, includeStealth bool) ([]*models.Channel, error) {
	visible := make([]*models.Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		if includeStealth || !ch.Stealth {
			visible = append(visible, ch)
		}
	}
	return visible, nil
}

func (f *fakeGuideStore) GetLineup(_ context.Context, channelID models.ID) ([]models.LineupItem, error) {
	return f.lineups[channelID], nil
}

func TestXMLTVEndpoint(t *testing.T) {
	ch := retroChannel(3)
	store := &fakeGuideStore{
		channels: []*models.Channel{ch},
		lineups: map[models.ID][]models.LineupItem{
			ch.ID: {
				{
					ChannelID:  ch.ID,
					Type:       models.LineupContent,
					DurationMs: ch.Duration,
					Program:    &models.Program{Title: "Night Flight"},
				},
			},
		},
	}
	guide := service.NewGuideService(store, lineup.FixedClock(ch.StartTime), "http://example.com", discardLogger())

	router := chi.NewRouter()
	NewGuideHandler(guide, nil).WithLogger(discardLogger()).RegisterChiRoutes(router)

	rec := get(t, router, "/xmltv.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")

	body := rec.Body.String()
	assert.Contains(t, body, "<tv")
	assert.Contains(t, body, `id="castarr.3"`)
	assert.Contains(t, body, "Night Flight")
	assert.Contains(t, body, "/video?channel=3")
}

func TestXMLTVEmptyLineupShowsOffAir(t *testing.T) {
	ch := retroChannel(3)
	store := &fakeGuideStore{channels: []*models.Channel{ch}}
	guide := service.NewGuideService(store, lineup.FixedClock(ch.StartTime), "http://example.com", discardLogger())

	router := chi.NewRouter()
	NewGuideHandler(guide, nil).WithLogger(discardLogger()).RegisterChiRoutes(router)

	rec := get(t, router, "/xmltv.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Off Air")
}

func TestIconEndpoint(t *testing.T) {
	dir := t.TempDir()
	icons, err := service.NewIconCache(dir, nil, discardLogger())
	require.NoError(t, err)

	key := icons.Key("http://example.com/icon.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".png"), []byte("png-bytes"), 0o644))

	// Reopen so the pre-placed file gets indexed.
	icons, err = service.NewIconCache(dir, nil, discardLogger())
	require.NoError(t, err)

	router := chi.NewRouter()
	guide := service.NewGuideService(&fakeGuideStore{}, lineup.FixedClock(0), "http://example.com", discardLogger())
	NewGuideHandler(guide, icons).WithLogger(discardLogger()).RegisterChiRoutes(router)

	rec := get(t, router, "/icons/"+key+".png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "png-bytes", rec.Body.String())

	missing := strings.Repeat("0", 16)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/icons/"+missing+".png").Code)
}
