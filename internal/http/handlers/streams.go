// Package handlers provides HTTP API handlers for castarr.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/service"
	"github.com/jmylchreest/castarr/internal/stream"
	"github.com/jmylchreest/castarr/pkg/m3u"
)

// manifestWait bounds how long /stream?m3u8=1 waits for the encoder to write
// the first HLS manifest before giving up.
const manifestWait = 10 * time.Second

// SettingsReader is the read side of the settings repository.
type SettingsReader interface {
	Get(ctx context.Context) (*models.FFmpegSettings, error)
}

// StreamHandler serves the client-facing streaming endpoints. These are raw
// chi handlers: status and headers must be withheld until the pipeline is
// known-good, which the OpenAPI layer cannot do, so routes are registered on
// the router directly with documentation-only OpenAPI registration alongside.
type StreamHandler struct {
	controller *stream.Controller
	settings   SettingsReader
	segmentDir string
	logger     *slog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(controller *stream.Controller, settings SettingsReader, segmentDir string) *StreamHandler {
	return &StreamHandler{
		controller: controller,
		settings:   settings,
		segmentDir: segmentDir,
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *StreamHandler) WithLogger(logger *slog.Logger) *StreamHandler {
	h.logger = logger
	return h
}

// RegisterChiRoutes registers the streaming routes as raw chi handlers.
func (h *StreamHandler) RegisterChiRoutes(router chi.Router) {
	router.Get("/setup", h.handleSetup)
	router.Get("/video", h.handleVideo)
	router.Get("/radio", h.handleRadio)
	router.Get("/stream", h.handleStream)
	router.Get("/playlist", h.handlePlaylist)
	router.Get("/m3u8", h.handleM3U8)
	router.Get("/media-player/{number}.m3u", h.handleMediaPlayerM3U)
	router.Get("/media-player/radio/{number}.m3u", h.handleMediaPlayerRadioM3U)
	if h.segmentDir != "" {
		router.Handle("/hls/*", http.StripPrefix("/hls/", http.FileServer(http.Dir(h.segmentDir))))
	}
}

// Register adds documentation-only OpenAPI operations for the streaming
// endpoints. The actual handling happens in the raw chi handlers: Huma's
// StreamResponse commits HTTP 200 before Body runs, which would break the
// withhold-headers-until-known-good contract.
func (h *StreamHandler) Register(api huma.API) {
	streaming := func(opID, path, summary, desc string) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      "GET",
			Path:        path,
			Summary:     summary,
			Description: desc,
			Tags:        []string{"Streaming"},
			Responses: map[string]*huma.Response{
				"200": {
					Description: "Live stream content",
					Headers: map[string]*huma.Param{
						"Content-Type": {Description: "video/mp2t unless stated otherwise"},
					},
				},
				"400": {Description: "Missing channel parameter"},
				"404": {Description: "Unknown channel"},
				"500": {Description: "Encoder unavailable or resolution failed"},
			},
			SkipValidateBody: true,
		}, h.docsOnly)
	}

	streaming("streamSetup", "/setup",
		"Setup screen stream",
		"Encoded MPEG-TS stream shown before any channel is configured.")
	streaming("streamVideo", "/video",
		"Continuous channel stream",
		"Infinite MPEG-TS stream for a channel, stitched server-side from the concat playlist. Query: channel.")
	streaming("streamRadio", "/radio",
		"Continuous audio-only channel stream",
		"Audio-only variant of /video. Query: channel.")
	streaming("streamItem", "/stream",
		"Single lineup item stream",
		"One encoded lineup item; concat clients reopen this URL between items. Query: channel, session, first, audioOnly, hls, m3u8.")
	streaming("streamPlaylist", "/playlist",
		"Concat playlist",
		"ffconcat manifest whose entries point back at /stream. Query: channel, audioOnly, hls.")
	streaming("streamM3U8", "/m3u8",
		"HLS multivariant playlist",
		"Single-rendition multivariant playlist for HLS players. Query: channel.")
	streaming("mediaPlayerM3U", "/media-player/{number}.m3u",
		"Media player playlist",
		"One-channel M3U for media players, pointing at /video (or /m3u8 with fast=1).")
	streaming("mediaPlayerRadioM3U", "/media-player/radio/{number}.m3u",
		"Media player radio playlist",
		"One-channel M3U pointing at the audio-only /radio stream.")
}

// docsOnly exists for OpenAPI generation; chi matches the real routes first.
func (h *StreamHandler) docsOnly(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	return nil, huma.Error500InternalServerError("this endpoint is handled by raw chi handlers", nil)
}

// streamError maps the controller's sentinel errors to HTTP statuses.
func (h *StreamHandler) streamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, stream.ErrChannelRequired):
		http.Error(w, "channel is required", http.StatusBadRequest)
	case errors.Is(err, stream.ErrChannelNotFound):
		http.Error(w, "channel not found", http.StatusNotFound)
	case errors.Is(err, stream.ErrEncoderMissing):
		http.Error(w, "ffmpeg not found; configure the encoder binary path", http.StatusInternalServerError)
	default:
		h.logger.Error("stream request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		http.Error(w, "stream resolution failed", http.StatusInternalServerError)
	}
}

func (h *StreamHandler) handleSetup(w http.ResponseWriter, r *http.Request) {
	play, err := h.controller.PrepareSetup(r.Context())
	if err != nil {
		h.streamError(w, r, err)
		return
	}
	h.serve(w, r, play)
}

func (h *StreamHandler) handleVideo(w http.ResponseWriter, r *http.Request) {
	h.serveConcat(w, r, false)
}

func (h *StreamHandler) handleRadio(w http.ResponseWriter, r *http.Request) {
	h.serveConcat(w, r, true)
}

func (h *StreamHandler) serveConcat(w http.ResponseWriter, r *http.Request, audioOnly bool) {
	play, err := h.controller.PrepareConcat(r.Context(), r.URL.Query().Get("channel"), baseURL(r), audioOnly)
	if err != nil {
		h.streamError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "video/mp2t")
	if err := h.controller.ServeConcat(r.Context(), play, w); err != nil {
		// Headers are long gone; the disconnect is all we can log.
		h.logger.Warn("concat stream ended with error",
			slog.Int("channel", play.Channel.Number),
			slog.Any("error", err))
	}
}

func (h *StreamHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &stream.Request{
		Channel:   q.Get("channel"),
		First:     q.Get("first"),
		AudioOnly: boolParam(q.Get("audioOnly")),
		HLS:       boolParam(q.Get("hls")),
	}
	if s := q.Get("session"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			http.Error(w, "invalid session", http.StatusBadRequest)
			return
		}
		req.SessionID = id
	}
	wantManifest := boolParam(q.Get("m3u8"))
	if wantManifest {
		req.HLS = true
	}

	play, err := h.controller.Prepare(r.Context(), req)
	if err != nil {
		h.streamError(w, r, err)
		return
	}

	if wantManifest {
		h.serveHLSManifest(w, r, play, req.SessionID)
		return
	}
	h.serve(w, r, play)
}

// serve streams a prepared play, committing headers only after Prepare
// succeeded.
func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, play *stream.Play) {
	w.Header().Set("Content-Type", "video/mp2t")
	if err := h.controller.Serve(r.Context(), play, w); err != nil {
		h.logger.Warn("stream item ended with error",
			slog.Int("channel", play.Channel.Number),
			slog.String("kind", string(play.Kind)),
			slog.Any("error", err))
	}
}

// serveHLSManifest starts the encoder in segment mode and returns the media
// playlist once the encoder has written it. The encoder keeps running after
// this response so the player can fetch segments under /hls/{session}/.
func (h *StreamHandler) serveHLSManifest(w http.ResponseWriter, r *http.Request, play *stream.Play, sessionID int64) {
	// Detached from the request: the manifest response returning must not
	// kill the segment writer.
	go func() {
		if err := h.controller.Serve(context.WithoutCancel(r.Context()), play, io.Discard); err != nil {
			h.logger.Warn("hls segment writer ended with error",
				slog.Int("channel", play.Channel.Number),
				slog.Any("error", err))
		}
	}()

	manifest := filepath.Join(h.segmentDir, strconv.FormatInt(sessionID, 10), "stream.m3u8")
	deadline := time.Now().Add(manifestWait)
	for {
		if _, err := os.Stat(manifest); err == nil {
			break
		}
		if time.Now().After(deadline) || r.Context().Err() != nil {
			http.Error(w, "hls manifest not ready", http.StatusGatewayTimeout)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	w.Header().Set("Content-Type", "application/x-mpegURL")
	http.ServeFile(w, r, manifest)
}

func (h *StreamHandler) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ch, err := h.controller.Channel(r.Context(), q.Get("channel"))
	if err != nil {
		h.streamError(w, r, err)
		return
	}

	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.streamError(w, r, err)
		return
	}
	if settings == nil {
		settings = models.DefaultFFmpegSettings()
	}

	sess := h.controller.Sessions().Open(ch.Number, time.Now())
	manifest := stream.ConcatManifest(baseURL(r), ch.Number, sess.ID, stream.ManifestOptions{
		AudioOnly:   boolParam(q.Get("audioOnly")),
		HLS:         boolParam(q.Get("hls")),
		SingleEntry: !settings.EnableAutoPlay,
	})

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, manifest)
}

func (h *StreamHandler) handleM3U8(w http.ResponseWriter, r *http.Request) {
	ch, err := h.controller.Channel(r.Context(), r.URL.Query().Get("channel"))
	if err != nil {
		h.streamError(w, r, err)
		return
	}

	bandwidth := 0
	if settings, err := h.settings.Get(r.Context()); err == nil && settings != nil {
		bandwidth = settings.VideoBitrate
	}
	if ch.VideoBitrate > 0 {
		bandwidth = ch.VideoBitrate
	}

	mediaURL := baseURL(r) + "/video?channel=" + strconv.Itoa(ch.Number)
	data, err := stream.MultivariantPlaylist(mediaURL, bandwidth)
	if err != nil {
		h.streamError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-mpegURL")
	w.Write(data)
}

func (h *StreamHandler) handleMediaPlayerM3U(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	ch, err := h.controller.Channel(r.Context(), number)
	if err != nil {
		h.streamError(w, r, err)
		return
	}

	streamPath := "/video?channel=" + strconv.Itoa(ch.Number)
	if boolParam(r.URL.Query().Get("fast")) {
		streamPath = "/m3u8?channel=" + strconv.Itoa(ch.Number)
	}
	h.writeChannelM3U(w, r, ch, streamPath)
}

func (h *StreamHandler) handleMediaPlayerRadioM3U(w http.ResponseWriter, r *http.Request) {
	ch, err := h.controller.Channel(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.streamError(w, r, err)
		return
	}
	h.writeChannelM3U(w, r, ch, "/radio?channel="+strconv.Itoa(ch.Number))
}

func (h *StreamHandler) writeChannelM3U(w http.ResponseWriter, r *http.Request, ch *models.Channel, streamPath string) {
	w.Header().Set("Content-Type", "video/x-mpegurl")

	writer := m3u.NewWriter(w)
	if err := writer.WriteEntry(&m3u.Entry{
		TvgID:         service.GuideChannelID(ch.Number),
		TvgName:       ch.Name,
		TvgLogo:       ch.Icon.URL,
		GroupTitle:    ch.GroupTitle,
		ChannelNumber: ch.Number,
		Title:         ch.Name,
		URL:           baseURL(r) + streamPath,
	}); err != nil {
		h.logger.Warn("writing media player playlist", slog.Any("error", err))
	}
}

// boolParam treats "1" and "true" as set, matching concat URLs the server
// itself generates.
func boolParam(v string) bool {
	return v == "1" || v == "true"
}

// baseURL reconstructs the externally reachable server root from the
// request, honoring reverse-proxy forwarding headers.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return (&url.URL{Scheme: scheme, Host: host}).String()
}
