package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/castarr/internal/service"
)

// GuideHandler serves the XMLTV guide and the cached channel icons. Raw chi
// handlers: DVR clients fetch these as plain files.
type GuideHandler struct {
	guide  *service.GuideService
	icons  *service.IconCache
	logger *slog.Logger
}

// NewGuideHandler creates a new guide handler. icons may be nil when the icon
// cache is disabled.
func NewGuideHandler(guide *service.GuideService, icons *service.IconCache) *GuideHandler {
	return &GuideHandler{
		guide:  guide,
		icons:  icons,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *GuideHandler) WithLogger(logger *slog.Logger) *GuideHandler {
	h.logger = logger
	return h
}

// RegisterChiRoutes registers the guide and icon routes.
func (h *GuideHandler) RegisterChiRoutes(router chi.Router) {
	router.Get("/xmltv.xml", h.handleXMLTV)
	if h.icons != nil {
		router.Get("/icons/{key}.png", h.handleIcon)
	}
}

func (h *GuideHandler) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	data, err := h.guide.XML(r.Context())
	if err != nil {
		h.logger.Error("building guide", slog.Any("error", err))
		http.Error(w, "building guide", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write(data)
}

func (h *GuideHandler) handleIcon(w http.ResponseWriter, r *http.Request) {
	path, ok := h.icons.PathByKey(chi.URLParam(r, "key"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
