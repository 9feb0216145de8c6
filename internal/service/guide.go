package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/castarr/internal/lineup"
	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/pkg/xmltv"
)

// Guide defaults.
const (
	// DefaultGuideWindow is how far ahead programme blocks are generated.
	DefaultGuideWindow = 12 * time.Hour

	// maxProgrammesPerChannel bounds pathological lineups of very short items.
	maxProgrammesPerChannel = 1000
)

// GuideStore is the read surface the guide builder needs. Satisfied by
// repository.ChannelRepository.
type GuideStore interface {
	GetAll(ctx context.Context, includeStealth bool) ([]*models.Channel, error)
	GetLineup(ctx context.Context, channelID models.ID) ([]models.LineupItem, error)
}

// GuideService generates the XMLTV guide from channels and their lineups.
// The rendered document is cached between scheduled refreshes.
type GuideService struct {
	store   GuideStore
	clock   lineup.Clock
	logger  *slog.Logger
	baseURL string
	window  time.Duration

	mu          sync.RWMutex
	cached      []byte
	generatedAt time.Time
}

// NewGuideService creates a GuideService. baseURL is the externally reachable
// server root used in channel stream URLs (no trailing slash).
func NewGuideService(store GuideStore, clock lineup.Clock, baseURL string, logger *slog.Logger) *GuideService {
	if clock == nil {
		clock = lineup.SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GuideService{
		store:   store,
		clock:   clock,
		logger:  logger,
		baseURL: baseURL,
		window:  DefaultGuideWindow,
	}
}

// SetWindow overrides the guide look-ahead window.
func (s *GuideService) SetWindow(window time.Duration) {
	if window > 0 {
		s.window = window
	}
}

// XML returns the rendered guide, generating it on first use.
func (s *GuideService) XML(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return s.Refresh(ctx)
}

// GeneratedAt returns when the cached guide was built.
func (s *GuideService) GeneratedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generatedAt
}

// Refresh rebuilds the guide and replaces the cached document.
func (s *GuideService) Refresh(ctx context.Context) ([]byte, error) {
	start := time.Now()

	channels, err := s.store.GetAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}

	nowMs := s.clock.NowMs()
	horizonMs := nowMs + s.window.Milliseconds()

	var buf bytes.Buffer
	w := xmltv.NewWriter(&buf)

	for _, ch := range channels {
		if err := w.WriteChannel(&xmltv.Channel{
			ID:          GuideChannelID(ch.Number),
			DisplayName: ch.Name,
			Icon:        ch.Icon.URL,
			URL:         fmt.Sprintf("%s/video?channel=%d", s.baseURL, ch.Number),
		}); err != nil {
			return nil, fmt.Errorf("writing guide channel %d: %w", ch.Number, err)
		}
	}

	total := 0
	for _, ch := range channels {
		items, err := s.store.GetLineup(ctx, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("loading lineup for channel %d: %w", ch.Number, err)
		}
		progs := s.programmesFor(ch, items, nowMs, horizonMs)
		for _, p := range progs {
			if err := w.WriteProgramme(p); err != nil {
				return nil, fmt.Errorf("writing programme for channel %d: %w", ch.Number, err)
			}
		}
		total += len(progs)
	}

	if err := w.WriteFooter(); err != nil {
		return nil, fmt.Errorf("closing guide: %w", err)
	}

	data := buf.Bytes()
	s.mu.Lock()
	s.cached = data
	s.generatedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("guide refreshed",
		slog.Int("channels", len(channels)),
		slog.Int("programmes", total),
		slog.Duration("took", time.Since(start)))
	return data, nil
}

// programmesFor walks a channel's repeating lineup from nowMs to horizonMs.
func (s *GuideService) programmesFor(ch *models.Channel, items []models.LineupItem, nowMs, horizonMs int64) []*xmltv.Programme {
	id := GuideChannelID(ch.Number)

	var totalMs int64
	for _, item := range items {
		totalMs += item.DurationMs
	}
	if len(items) == 0 || ch.Duration <= 0 || totalMs <= 0 {
		return []*xmltv.Programme{offAirProgramme(id, nowMs, horizonMs)}
	}

	cursorMs := nowMs
	var progs []*xmltv.Programme

	// Channels that have not started yet show Off Air until their start.
	if nowMs < ch.StartTime {
		if ch.StartTime >= horizonMs {
			return []*xmltv.Programme{offAirProgramme(id, nowMs, horizonMs)}
		}
		progs = append(progs, offAirProgramme(id, nowMs, ch.StartTime))
		cursorMs = ch.StartTime
	}

	elapsed := (cursorMs - ch.StartTime) % ch.Duration
	idx := 0
	for _, item := range items {
		if elapsed < item.DurationMs {
			break
		}
		elapsed -= item.DurationMs
		idx++
	}
	if idx >= len(items) {
		// Σ durations diverged from channel.Duration; clamp to the last item.
		idx = len(items) - 1
		elapsed = 0
	}

	blockStart := cursorMs - elapsed
	for blockStart < horizonMs && len(progs) < maxProgrammesPerChannel {
		item := items[idx]
		if item.DurationMs > 0 {
			p := programmeForItem(&item, id)
			p.Start = time.UnixMilli(blockStart)
			p.Stop = time.UnixMilli(blockStart + item.DurationMs)
			progs = append(progs, p)
			blockStart += item.DurationMs
		}
		idx = (idx + 1) % len(items)
	}
	return progs
}

// programmeForItem maps one lineup item to a programme block.
func programmeForItem(item *models.LineupItem, channelID string) *xmltv.Programme {
	p := &xmltv.Programme{Channel: channelID}

	switch {
	case item.Type == models.LineupContent && item.Program != nil:
		prog := item.Program
		p.Title = prog.Title
		if p.Title == "" {
			p.Title = "Program"
		}
		p.Description = prog.Summary
		p.Icon = prog.Icon
		p.Rating = prog.Rating
		if prog.Season > 0 || prog.Episode > 0 {
			p.EpisodeNum = fmt.Sprintf("S%02dE%02d", prog.Season, prog.Episode)
		}
	case item.Type == models.LineupRedirect:
		p.Title = "Simulcast"
	default:
		p.Title = "Offline"
	}
	return p
}

func offAirProgramme(channelID string, startMs, stopMs int64) *xmltv.Programme {
	return &xmltv.Programme{
		Start:   time.UnixMilli(startMs),
		Stop:    time.UnixMilli(stopMs),
		Channel: channelID,
		Title:   "Off Air",
	}
}

// GuideChannelID is the XMLTV channel id for a channel number, shared with
// the M3U tvg-id attribute.
func GuideChannelID(number int) string {
	return fmt.Sprintf("castarr.%d", number)
}
