package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/castarr/internal/ffmpeg"
	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/stream"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeChannelStore implements stream.Store over in-memory channels.
type fakeChannelStore struct {
	byNumber map[int]*models.Channel
	byID     map[models.ID]*models.Channel
	settings *models.FFmpegSettings
}

func newFakeChannelStore(channels ...*models.Channel) *fakeChannelStore {
	s := &fakeChannelStore{
		byNumber: make(map[int]*models.Channel),
		byID:     make(map[models.ID]*models.Channel),
		settings: models.DefaultFFmpegSettings(),
	}
	for _, ch := range channels {
		s.byNumber[ch.Number] = ch
		s.byID[ch.ID] = ch
	}
	return s
}

func (s *fakeChannelStore) ChannelByNumber(_ context.Context, number int) (*models.Channel, error) {
	return s.byNumber[number], nil
}

func (s *fakeChannelStore) ChannelByID(_ context.Context, id models.ID) (*models.Channel, error) {
	return s.byID[id], nil
}

func (s *fakeChannelStore) ChannelAndLineup(_ context.Context, id models.ID) (*models.Channel, []models.LineupItem, error) {
	ch := s.byID[id]
	if ch == nil {
		return nil, nil, fmt.Errorf("channel %s not found", id)
	}
	return ch, nil, nil
}

func (s *fakeChannelStore) Lineup(context.Context, models.ID) ([]models.LineupItem, error) {
	return nil, nil
}

func (s *fakeChannelStore) FillerCollections(context.Context, models.ID) ([]models.FillerCollection, error) {
	return nil, nil
}

func (s *fakeChannelStore) FillerClip(context.Context, models.ID) (*models.FillerClip, error) {
	return nil, nil
}

func (s *fakeChannelStore) FFmpegSettings(context.Context) (*models.FFmpegSettings, error) {
	return s.settings, nil
}

// Get makes the fake double as a SettingsReader.
func (s *fakeChannelStore) Get(context.Context) (*models.FFmpegSettings, error) {
	return s.settings, nil
}

type stubDetector struct{}

func (stubDetector) Detect(context.Context) (*ffmpeg.BinaryInfo, error) {
	return &ffmpeg.BinaryInfo{FFmpegPath: "/usr/bin/ffmpeg"}, nil
}

func streamTestRouter(t *testing.T, store *fakeChannelStore) *chi.Mux {
	t.Helper()
	controller := stream.NewController(stream.ControllerConfig{
		Store:    store,
		Detector: stubDetector{},
		Sessions: stream.NewRegistry(3, time.Minute),
		Logger:   discardLogger(),
	})

	handler := NewStreamHandler(controller, store, t.TempDir()).WithLogger(discardLogger())
	router := chi.NewRouter()
	handler.RegisterChiRoutes(router)
	return router
}

func retroChannel(number int) *models.Channel {
	return &models.Channel{
		BaseModel: models.BaseModel{ID: models.NewID()},
		Number:    number,
		Name:      "Retro TV",
		StartTime: 1_700_000_000_000,
		Duration:  3_600_000,
	}
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPlaylistEndpoint(t *testing.T) {
	router := streamTestRouter(t, newFakeChannelStore(retroChannel(5)))

	rec := get(t, router, "/playlist?channel=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "ffconcat version 1.0\n"))
	assert.Contains(t, body, "/stream?channel=5")
	assert.Contains(t, body, "first=0")
	// Auto-play keeps a second entry for gapless reopen.
	assert.Equal(t, 2, strings.Count(body, "file '"))
}

func TestPlaylistSingleEntryWhenAutoPlayOff(t *testing.T) {
	store := newFakeChannelStore(retroChannel(5))
	store.settings.EnableAutoPlay = false
	router := streamTestRouter(t, store)

	rec := get(t, router, "/playlist?channel=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "file '"))
}

func TestPlaylistErrors(t *testing.T) {
	router := streamTestRouter(t, newFakeChannelStore(retroChannel(5)))

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/playlist").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/playlist?channel=99").Code)
}

func TestPlaylistForwardsAudioOnly(t *testing.T) {
	router := streamTestRouter(t, newFakeChannelStore(retroChannel(5)))

	rec := get(t, router, "/playlist?channel=5&audioOnly=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "audioOnly=1")
}

func TestM3U8Endpoint(t *testing.T) {
	router := streamTestRouter(t, newFakeChannelStore(retroChannel(5)))

	rec := get(t, router, "/m3u8?channel=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/x-mpegURL")

	body := rec.Body.String()
	assert.Contains(t, body, "#EXT-X-STREAM-INF")
	assert.Contains(t, body, "BANDWIDTH=10000000")
	assert.Contains(t, body, "/video?channel=5")
}

func TestM3U8UsesChannelBitrateOverride(t *testing.T) {
	ch := retroChannel(5)
	ch.VideoBitrate = 4500
	router := streamTestRouter(t, newFakeChannelStore(ch))

	rec := get(t, router, "/m3u8?channel=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BANDWIDTH=4500000")
}

func TestMediaPlayerM3U(t *testing.T) {
	ch := retroChannel(7)
	ch.GroupTitle = "Classics"
	ch.Icon.URL = "http://example.com/icon.png"
	router := streamTestRouter(t, newFakeChannelStore(ch))

	rec := get(t, router, "/media-player/7.m3u")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "video/x-mpegurl")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "#EXTM3U\n"))
	assert.Contains(t, body, `tvg-id="castarr.7"`)
	assert.Contains(t, body, `tvg-chno="7"`)
	assert.Contains(t, body, `group-title="Classics"`)
	assert.Contains(t, body, "/video?channel=7")
}

func TestMediaPlayerM3UFastUsesHLS(t *testing.T) {
	router := streamTestRouter(t, newFakeChannelStore(retroChannel(7)))

	rec := get(t, router, "/media-player/7.m3u?fast=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/m3u8?channel=7")
	assert.NotContains(t, rec.Body.String(), "/video?channel=7")
}

func TestMediaPlayerRadioM3U(t *testing.T) {
	router := streamTestRouter(t, newFakeChannelStore(retroChannel(7)))

	rec := get(t, router, "/media-player/radio/7.m3u")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/radio?channel=7")
}

func TestMediaPlayerM3UUnknownChannel(t *testing.T) {
	router := streamTestRouter(t, newFakeChannelStore())
	assert.Equal(t, http.StatusNotFound, get(t, router, "/media-player/9.m3u").Code)
}

func TestStreamRejectsInvalidSession(t *testing.T) {
	router := streamTestRouter(t, newFakeChannelStore(retroChannel(5)))
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/stream?channel=5&session=abc").Code)
}

func TestStreamErrorsBeforeHeaders(t *testing.T) {
	router := streamTestRouter(t, newFakeChannelStore(retroChannel(5)))

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/stream").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/stream?channel=42").Code)
}

func TestBaseURLHonorsForwardingHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://internal:8000/playlist", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "tv.example.com")
	assert.Equal(t, "https://tv.example.com", baseURL(req))

	plain := httptest.NewRequest(http.MethodGet, "http://internal:8000/playlist", nil)
	assert.Equal(t, "http://internal:8000", baseURL(plain))
}
