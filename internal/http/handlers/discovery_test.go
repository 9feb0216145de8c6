package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/castarr/internal/models"
)

type fakeChannelLister struct {
	channels []*models.Channel
}

func (f *fakeChannelLister) GetAll(_ context.Context, includeStealth bool) ([]*models.Channel, error) {
	if includeStealth {
		return f.channels, nil
	}
	visible := make([]*models.Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		if !ch.Stealth {
			visible = append(visible, ch)
		}
	}
	return visible, nil
}

func discoveryTestRouter(channels ...*models.Channel) *chi.Mux {
	handler := NewDiscoveryHandler(&fakeChannelLister{channels: channels}).
		WithLogger(discardLogger())
	router := chi.NewRouter()
	handler.RegisterChiRoutes(router)
	return router
}

func TestDiscoverJSON(t *testing.T) {
	router := discoveryTestRouter()

	rec := get(t, router, "/discover.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var resp discoverResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "castarr", resp.FriendlyName)
	assert.Equal(t, "castarr01", resp.DeviceID)
	assert.Equal(t, "hdhomeruntc_atsc", resp.FirmwareName)
	assert.Equal(t, 2, resp.TunerCount)
	assert.Equal(t, "http://example.com", resp.BaseURL)
	assert.Equal(t, "http://example.com/lineup.json", resp.LineupURL)
}

func TestDiscoverJSONTunerCountOverride(t *testing.T) {
	handler := NewDiscoveryHandler(&fakeChannelLister{}).WithTunerCount(6)
	router := chi.NewRouter()
	handler.RegisterChiRoutes(router)

	rec := get(t, router, "/discover.json")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp discoverResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.TunerCount)
}

func TestLineupJSONExcludesStealth(t *testing.T) {
	visible := retroChannel(1)
	hidden := retroChannel(2)
	hidden.Name = "Hidden"
	hidden.Stealth = true
	router := discoveryTestRouter(visible, hidden)

	rec := get(t, router, "/lineup.json")
	require.Equal(t, http.StatusOK, rec.Code)

	var lineup []lineupEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lineup))
	require.Len(t, lineup, 1)
	assert.Equal(t, "1", lineup[0].GuideNumber)
	assert.Equal(t, "Retro TV", lineup[0].GuideName)
	assert.Equal(t, "http://example.com/video?channel=1", lineup[0].URL)
}

func TestLineupJSONEmpty(t *testing.T) {
	router := discoveryTestRouter()

	rec := get(t, router, "/lineup.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestLineupStatusJSON(t *testing.T) {
	router := discoveryTestRouter()

	rec := get(t, router, "/lineup_status.json")
	require.Equal(t, http.StatusOK, rec.Code)

	var status lineupStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 0, status.ScanInProgress)
	assert.Equal(t, 1, status.ScanPossible)
	assert.Equal(t, "Cable", status.Source)
	assert.Equal(t, []string{"Cable"}, status.SourceList)
}

func TestDeviceXML(t *testing.T) {
	router := discoveryTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/device.xml", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "tv.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")

	body := rec.Body.String()
	assert.Contains(t, body, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, body, "urn:schemas-upnp-org:device-1-0")
	assert.Contains(t, body, "<friendlyName>castarr</friendlyName>")
	assert.Contains(t, body, "<URLBase>https://tv.example.com</URLBase>")
	assert.Contains(t, body, "<UDN>uuid:castarr01</UDN>")
}
