package handlers

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/version"
)

// ChannelLister is the channel read surface the discovery and guide handlers
// need. Satisfied by repository.ChannelRepository.
type ChannelLister interface {
	GetAll(ctx context.Context, includeStealth bool) ([]*models.Channel, error)
}

// DiscoveryHandler emulates an HDHomeRun tuner so DVR software (Plex, Jellyfin,
// Emby) can discover castarr and record its channels like an antenna feed.
// These are raw chi handlers: the clients expect the exact HDHomeRun payload
// shapes, not an OpenAPI-described JSON API.
type DiscoveryHandler struct {
	channels   ChannelLister
	deviceID   string
	tunerCount int
	logger     *slog.Logger
}

// NewDiscoveryHandler creates a new discovery handler.
func NewDiscoveryHandler(channels ChannelLister) *DiscoveryHandler {
	return &DiscoveryHandler{
		channels:   channels,
		deviceID:   "castarr01",
		tunerCount: 2,
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *DiscoveryHandler) WithLogger(logger *slog.Logger) *DiscoveryHandler {
	h.logger = logger
	return h
}

// WithTunerCount sets the advertised simultaneous-stream capacity.
func (h *DiscoveryHandler) WithTunerCount(count int) *DiscoveryHandler {
	if count > 0 {
		h.tunerCount = count
	}
	return h
}

// RegisterChiRoutes registers the HDHomeRun discovery routes.
func (h *DiscoveryHandler) RegisterChiRoutes(router chi.Router) {
	router.Get("/device.xml", h.handleDeviceXML)
	router.Get("/discover.json", h.handleDiscover)
	router.Get("/lineup_status.json", h.handleLineupStatus)
	router.Get("/lineup.json", h.handleLineup)
}

// deviceDescription is the UPnP device description served at /device.xml.
type deviceDescription struct {
	XMLName     xml.Name          `xml:"root"`
	Xmlns       string            `xml:"xmlns,attr"`
	SpecVersion deviceSpecVersion `xml:"specVersion"`
	URLBase     string            `xml:"URLBase"`
	Device      deviceInfo        `xml:"device"`
}

type deviceSpecVersion struct {
	Major int `xml:"major"`
	Minor int `xml:"minor"`
}

type deviceInfo struct {
	DeviceType   string `xml:"deviceType"`
	FriendlyName string `xml:"friendlyName"`
	Manufacturer string `xml:"manufacturer"`
	ModelName    string `xml:"modelName"`
	ModelNumber  string `xml:"modelNumber"`
	SerialNumber string `xml:"serialNumber"`
	UDN          string `xml:"UDN"`
}

// discoverResponse is the HDHomeRun discovery payload.
type discoverResponse struct {
	FriendlyName    string `json:"FriendlyName"`
	Manufacturer    string `json:"Manufacturer"`
	ModelNumber     string `json:"ModelNumber"`
	FirmwareName    string `json:"FirmwareName"`
	FirmwareVersion string `json:"FirmwareVersion"`
	DeviceID        string `json:"DeviceID"`
	DeviceAuth      string `json:"DeviceAuth"`
	TunerCount      int    `json:"TunerCount"`
	BaseURL         string `json:"BaseURL"`
	LineupURL       string `json:"LineupURL"`
}

// lineupStatusResponse reports an already-scanned cable source, which stops
// DVR clients from offering a channel scan.
type lineupStatusResponse struct {
	ScanInProgress int      `json:"ScanInProgress"`
	ScanPossible   int      `json:"ScanPossible"`
	Source         string   `json:"Source"`
	SourceList     []string `json:"SourceList"`
}

// lineupEntry is one channel in the HDHomeRun lineup payload.
type lineupEntry struct {
	GuideNumber string `json:"GuideNumber"`
	GuideName   string `json:"GuideName"`
	URL         string `json:"URL"`
}

func (h *DiscoveryHandler) handleDeviceXML(w http.ResponseWriter, r *http.Request) {
	desc := deviceDescription{
		Xmlns:       "urn:schemas-upnp-org:device-1-0",
		SpecVersion: deviceSpecVersion{Major: 1},
		URLBase:     baseURL(r),
		Device: deviceInfo{
			DeviceType:   "urn:schemas-upnp-org:device:MediaServer:1",
			FriendlyName: version.ApplicationName,
			Manufacturer: "Silicondust",
			ModelName:    "HDTC-2US",
			ModelNumber:  "HDTC-2US",
			SerialNumber: h.deviceID,
			UDN:          "uuid:" + h.deviceID,
		},
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	fmt.Fprint(w, xml.Header)
	if err := xml.NewEncoder(w).Encode(desc); err != nil {
		h.logger.Warn("writing device description", slog.Any("error", err))
	}
}

func (h *DiscoveryHandler) handleDiscover(w http.ResponseWriter, r *http.Request) {
	base := baseURL(r)
	writeJSON(w, h.logger, discoverResponse{
		FriendlyName:    version.ApplicationName,
		Manufacturer:    "Silicondust",
		ModelNumber:     "HDTC-2US",
		FirmwareName:    "hdhomeruntc_atsc",
		FirmwareVersion: "20170930",
		DeviceID:        h.deviceID,
		DeviceAuth:      version.ApplicationName,
		TunerCount:      h.tunerCount,
		BaseURL:         base,
		LineupURL:       base + "/lineup.json",
	})
}

func (h *DiscoveryHandler) handleLineupStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, lineupStatusResponse{
		ScanPossible: 1,
		Source:       "Cable",
		SourceList:   []string{"Cable"},
	})
}

func (h *DiscoveryHandler) handleLineup(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channels.GetAll(r.Context(), false)
	if err != nil {
		h.logger.Error("loading lineup channels", slog.Any("error", err))
		http.Error(w, "loading channels", http.StatusInternalServerError)
		return
	}

	base := baseURL(r)
	lineup := make([]lineupEntry, 0, len(channels))
	for _, ch := range channels {
		lineup = append(lineup, lineupEntry{
			GuideNumber: strconv.Itoa(ch.Number),
			GuideName:   ch.Name,
			URL:         base + "/video?channel=" + strconv.Itoa(ch.Number),
		})
	}
	writeJSON(w, h.logger, lineup)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing json response", slog.Any("error", err))
	}
}
