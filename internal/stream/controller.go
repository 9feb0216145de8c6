package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmylchreest/castarr/internal/encoder"
	"github.com/jmylchreest/castarr/internal/ffmpeg"
	"github.com/jmylchreest/castarr/internal/filler"
	"github.com/jmylchreest/castarr/internal/lineup"
	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/observability"
	"github.com/jmylchreest/castarr/internal/playback"
	"github.com/jmylchreest/castarr/pkg/format"
)

// BinaryLocator finds the ffmpeg executable. Implemented by the binary
// detector.
type BinaryLocator interface {
	Detect(ctx context.Context) (*ffmpeg.BinaryInfo, error)
}

// Prober inspects a media source. Implemented by the ffprobe wrapper.
type Prober interface {
	Probe(ctx context.Context, url string) (*ffmpeg.ProbeStats, error)
}

// Request is one parsed /stream call.
type Request struct {
	// Channel is the channel number or UUID from the query.
	Channel string

	// SessionID correlates concat reopens; 0 means no session tracking.
	SessionID int64

	// First is the raw first query value: "0" injects the loading slot.
	First string

	AudioOnly bool
	HLS       bool
}

// PlayKind classifies what a prepared play will put on the air.
type PlayKind string

// Play kinds.
const (
	PlayContent PlayKind = "content"
	PlayFiller  PlayKind = "filler"
	PlayOffline PlayKind = "offline"
	PlayError   PlayKind = "error"
	PlayLoading PlayKind = "loading"
)

// Play is a fully prepared stream item: the encoder plan plus everything
// Serve needs to run it.
type Play struct {
	Channel    *models.Channel
	Session    *Session
	Plan       *encoder.Plan
	Input      *encoder.PlanInput
	FFmpegPath string
	Kind       PlayKind
	Title      string
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Store    Store
	Cache    *playback.Cache
	Picker   *filler.Picker
	Detector BinaryLocator
	Prober   Prober
	Sessions *Registry

	// Clock defaults to the system clock; tests pin it.
	Clock lineup.Clock

	// SegmentDir receives per-session HLS artifacts.
	SegmentDir string

	// DefaultOfflinePicture backs channels without their own offline image.
	DefaultOfflinePicture string

	Logger *slog.Logger
}

// Controller is the top-level stream request orchestrator: it resolves the
// airing item through redirects and filler, builds the encoder plan, and
// pumps encoder output to the client.
type Controller struct {
	store      Store
	cache      *playback.Cache
	picker     *filler.Picker
	walker     *lineup.Walker
	detector   BinaryLocator
	prober     Prober
	sessions   *Registry
	clock      lineup.Clock
	segmentDir string
	defaultPic string
	logger     *slog.Logger
}

// NewController creates a stream controller.
func NewController(cfg ControllerConfig) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = lineup.SystemClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:      cfg.Store,
		cache:      cfg.Cache,
		picker:     cfg.Picker,
		walker:     lineup.NewWalker(cfg.Store),
		detector:   cfg.Detector,
		prober:     cfg.Prober,
		sessions:   cfg.Sessions,
		clock:      clock,
		segmentDir: cfg.SegmentDir,
		defaultPic: cfg.DefaultOfflinePicture,
		logger:     observability.WithComponent(logger, "stream"),
	}
}

// Sessions exposes the session registry for the HTTP layer.
func (c *Controller) Sessions() *Registry { return c.sessions }

// playCtx carries per-request state through the resolve helpers.
type playCtx struct {
	req        *Request
	channel    *models.Channel
	settings   *models.FFmpegSettings
	session    *Session
	ffmpegPath string
	logger     *slog.Logger
}

// Prepare resolves the airing item for the request and builds its encoder
// plan. Redirect cycles and throttling come back as in-stream offline plays,
// never as errors; errors here map to HTTP failures.
func (c *Controller) Prepare(ctx context.Context, req *Request) (*Play, error) {
	defer func(start time.Time) {
		observability.ResolveDuration.Observe(time.Since(start).Seconds())
	}(time.Now())

	ch, err := c.Channel(ctx, req.Channel)
	if err != nil {
		return nil, err
	}

	info, err := c.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderMissing, err)
	}

	settings, err := c.store.FFmpegSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading encoder settings: %w", err)
	}
	if settings == nil {
		settings = models.DefaultFFmpegSettings()
	}

	var sess *Session
	if req.SessionID > 0 && c.sessions != nil {
		sess = c.sessions.Ensure(req.SessionID, ch.Number, time.Now())
	}

	p := &playCtx{
		req:        req,
		channel:    ch,
		settings:   settings,
		session:    sess,
		ffmpegPath: info.FFmpegPath,
		logger:     observability.WithChannel(c.logger, ch.Number),
	}
	if sess != nil {
		p.logger = observability.WithSession(p.logger, sess.ID)
	}

	// The tiny loading slot stabilizes the first concat splice.
	if req.First == "0" {
		return c.offlinePlay(p, loadingMs, PlayLoading)
	}

	if sess != nil && sess.Throttled(time.Now()) {
		observability.SessionAttemptsTotal.WithLabelValues("throttled").Inc()
		p.logger.Warn("session throttled", slog.Int64("session", sess.ID))
		return c.errorPlay(p, throttleMs, p.channel.Name, throttleText)
	}

	return c.resolvePlay(ctx, p, ch, c.clock.NowMs(), 0)
}

// resolvePlay locates the airing item at nowMs and dispatches on its type.
// depth counts short-offline skip recursion.
func (c *Controller) resolvePlay(ctx context.Context, p *playCtx, ch *models.Channel, nowMs int64, depth int) (*Play, error) {
	items, err := c.store.Lineup(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("loading lineup: %w", err)
	}

	resolved, err := lineup.Resolve(ch, items, nowMs)
	if err != nil {
		return nil, err
	}

	walked, err := c.walker.Walk(ctx, ch, items, resolved, nowMs)
	if err != nil {
		var cycle *lineup.CycleError
		if errors.As(err, &cycle) {
			// The stream must keep playing: the cycle becomes a short
			// in-stream offline slot naming the loop.
			p.logger.Warn("redirect cycle", slog.String("path", cycle.Error()))
			return c.errorPlay(p, redirectErrorMs, p.channel.Name, cycle.Error())
		}
		return nil, err
	}
	if walked.Hops > 0 {
		p.logger.Debug("redirect walked",
			slog.Int("hops", walked.Hops),
			slog.Int("target", walked.Channel.Number))
	}

	if walked.Resolved.Item.Type == models.LineupContent {
		return c.contentPlay(ctx, p, walked, nowMs)
	}
	return c.offlineOrFiller(ctx, p, walked, nowMs, depth)
}

// contentPlay prepares a real program.
func (c *Controller) contentPlay(ctx context.Context, p *playCtx, walked *lineup.Walked, nowMs int64) (*Play, error) {
	target, res := walked.Channel, walked.Resolved
	prog := res.Item.Program
	if prog == nil || prog.FilePath == "" {
		p.logger.Error("content item has no playable source",
			slog.String("item", res.Item.ID.String()))
		return c.errorPlay(p, walked.StreamDurationMs, target.Name, "no playable source")
	}

	c.cache.RecordItem(target.Number, prog.Key(), nowMs)

	input := &encoder.PlanInput{
		Settings:   p.settings,
		Channel:    target,
		SourceURL:  prog.FilePath,
		Probe:      c.probe(ctx, prog.FilePath, p.logger),
		SeekMs:     res.TimeIntoItemMs,
		DurationMs: walked.StreamDurationMs,
		AudioOnly:  p.req.AudioOnly,
		Title:      prog.Title,
	}
	c.applyWatermark(input, target, false)
	return c.finish(p, input, PlayContent, prog.Title)
}

// offlineOrFiller handles a resolved offline slot: permanent-offline
// substitution, short-gap skipping, the filler lottery, and the capped
// offline screen as last resort.
func (c *Controller) offlineOrFiller(ctx context.Context, p *playCtx, walked *lineup.Walked, nowMs int64, depth int) (*Play, error) {
	target := walked.Channel
	remaining := walked.StreamDurationMs

	// A lineup that is a single offline slot is off the air for good.
	// Filler still gets first claim on the gap; the stretch only matters
	// when the lottery comes up empty, where it keeps the offline screen
	// from re-resolving every ten minutes.
	permanent := walked.Resolved.Index >= 0 && len(walked.Lineup) == 1 &&
		walked.Lineup[0].Type == models.LineupOffline
	if permanent {
		remaining = permanentOfflineMs
	}

	// A gap too short to fill is skipped: re-resolve just past its end so
	// the client joins the next item cleanly.
	if remaining <= lineup.SlackMs+1 && depth < maxSkipDepth {
		c.cache.ClearChannel(target.Number)
		return c.resolvePlay(ctx, p, p.channel, nowMs+remaining+1, depth+1)
	}

	collections, err := c.store.FillerCollections(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("loading filler collections: %w", err)
	}
	var fallback *models.FillerClip
	if target.OfflineMode == models.OfflineModeClip && target.FallbackClipID != nil {
		fallback, err = c.store.FillerClip(ctx, *target.FallbackClipID)
		if err != nil {
			return nil, fmt.Errorf("loading fallback clip: %w", err)
		}
	}

	pick := c.picker.Pick(&filler.Request{
		Channel:     target,
		Collections: collections,
		Fallback:    fallback,
		RemainingMs: remaining,
		FirstJoin:   p.req.First != "0" && depth == 0,
		NowMs:       nowMs,
	})
	if pick.Clip != nil {
		return c.fillerPlay(ctx, p, target, pick, remaining, nowMs)
	}

	// Nothing eligible. Shorten the gap to the soonest cooldown expiry so
	// the next resolve has candidates, and cap it regardless: the schedule
	// may change under us.
	if pick.HasWait && pick.MinimumWaitMs > 0 && pick.MinimumWaitMs < remaining {
		remaining = pick.MinimumWaitMs
	}
	if permanent && !pick.HasWait {
		return c.offlinePlay(p, permanentOfflineMs, PlayOffline)
	}
	if remaining > fallbackCapMs {
		remaining = fallbackCapMs
	}
	return c.offlinePlay(p, remaining, PlayOffline)
}

// fillerPlay prepares a picked filler clip.
func (c *Controller) fillerPlay(ctx context.Context, p *playCtx, target *models.Channel, pick *filler.Result, remaining, nowMs int64) (*Play, error) {
	clip := pick.Clip

	c.cache.RecordItem(target.Number, filler.ClipKey(clip), nowMs)
	if !pick.ShowID.IsZero() {
		c.cache.RecordFiller(target.Number, pick.ShowID, nowMs)
	}
	p.logger.Debug("filler picked",
		slog.String("clip", clip.ID.String()),
		slog.Int64("start_ms", pick.StartMs),
		slog.Int64("remaining_ms", remaining))

	durationMs := clip.DurationMs - pick.StartMs
	if max := remaining + lineup.SlackMs; durationMs > max {
		durationMs = max
	}

	input := &encoder.PlanInput{
		Settings:   p.settings,
		Channel:    target,
		SourceURL:  clip.FilePath,
		Probe:      c.probe(ctx, clip.FilePath, p.logger),
		SeekMs:     pick.StartMs,
		DurationMs: durationMs,
		AudioOnly:  p.req.AudioOnly,
		Title:      clip.Title,
	}
	c.applyWatermark(input, target, true)
	return c.finish(p, input, PlayFiller, clip.Title)
}

// offlinePlay prepares a synthetic offline slot: the channel's offline
// picture with its soundtrack, or silence.
func (c *Controller) offlinePlay(p *playCtx, durationMs int64, kind PlayKind) (*Play, error) {
	input := &encoder.PlanInput{
		Settings:      p.settings,
		Channel:       p.channel,
		Offline:       true,
		PictureURL:    c.offlinePicture(p.channel),
		SoundtrackURL: p.channel.OfflineSoundtrack,
		DurationMs:    durationMs,
		AudioOnly:     p.req.AudioOnly,
	}
	return c.finish(p, input, kind, p.channel.Name)
}

// errorPlay prepares a synthetic error slot using the configured error
// screen. A kill screen fails the request from BuildPlan.
func (c *Controller) errorPlay(p *playCtx, durationMs int64, title, detail string) (*Play, error) {
	input := &encoder.PlanInput{
		Settings:   p.settings,
		Channel:    p.channel,
		PictureURL: c.offlinePicture(p.channel),
		Title:      title,
		Subtitle:   detail,
		DurationMs: durationMs,
		AudioOnly:  p.req.AudioOnly,
	}
	return c.finish(p, input, PlayError, title)
}

// finish applies the output target and builds the encoder plan.
func (c *Controller) finish(p *playCtx, input *encoder.PlanInput, kind PlayKind, title string) (*Play, error) {
	if p.req.HLS {
		input.Output = encoder.OutputHLS
		input.SegmentDir = filepath.Join(c.segmentDir, strconv.FormatInt(p.req.SessionID, 10))
	}
	plan, err := encoder.BuildPlan(input)
	if err != nil {
		return nil, err
	}
	return &Play{
		Channel:    p.channel,
		Session:    p.session,
		Plan:       plan,
		Input:      input,
		FFmpegPath: p.ffmpegPath,
		Kind:       kind,
		Title:      title,
	}, nil
}

// Serve spawns the encoder for a prepared play and pumps its stdout to w
// until the item ends or ctx is canceled. Client disconnect cancels ctx,
// which kills the encoder.
func (c *Controller) Serve(ctx context.Context, play *Play, w io.Writer) error {
	logger := observability.WithChannel(c.logger, play.Channel.Number)
	if play.Session != nil {
		logger = observability.WithSession(logger, play.Session.ID)
	}

	if play.Input.Output == encoder.OutputHLS && play.Input.SegmentDir != "" {
		if err := os.MkdirAll(play.Input.SegmentDir, 0o755); err != nil {
			return fmt.Errorf("creating segment dir: %w", err)
		}
	}

	proc := encoder.NewProcess(play.FFmpegPath, play.Plan.Args, logger)
	out, err := proc.Start()
	if err != nil {
		if play.Session != nil {
			play.Session.RecordFailure(time.Now())
		}
		return err
	}

	stop := context.AfterFunc(ctx, proc.Kill)
	defer stop()

	mw := &meteredWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		mw.f = f
	}
	_, copyErr := io.Copy(mw, out)

	status := proc.Wait()
	if play.Session != nil {
		if status.BytesOut > 0 {
			play.Session.RecordSuccess(time.Now())
		} else {
			play.Session.RecordFailure(time.Now())
		}
	}
	logger.Info("stream item finished",
		slog.String("kind", string(play.Kind)),
		slog.String("outcome", string(status.Outcome)),
		slog.String("sent", format.Bytes(status.BytesOut)))

	switch status.Outcome {
	case encoder.OutcomeEnd, encoder.OutcomeKilled:
		return nil
	default:
		if copyErr != nil && !errors.Is(copyErr, context.Canceled) {
			return fmt.Errorf("streaming encoder output: %w", copyErr)
		}
		return fmt.Errorf("encoder exited with code %d", status.ExitCode)
	}
}

// Channel resolves a channel query value for the HTTP layer, mapping empty
// and unknown values to the sentinel errors.
func (c *Controller) Channel(ctx context.Context, key string) (*models.Channel, error) {
	if key == "" {
		return nil, ErrChannelRequired
	}
	ch, err := c.lookupChannel(ctx, key)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, key)
	}
	return ch, nil
}

// PrepareSetup builds the stream served before any channel exists: the error
// screen encoded with the "no channels configured" text.
func (c *Controller) PrepareSetup(ctx context.Context) (*Play, error) {
	info, err := c.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderMissing, err)
	}
	settings, err := c.store.FFmpegSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading encoder settings: %w", err)
	}
	if settings == nil {
		settings = models.DefaultFFmpegSettings()
	}

	p := &playCtx{
		req:        &Request{},
		channel:    &models.Channel{Name: "castarr"},
		settings:   settings,
		ffmpegPath: info.FFmpegPath,
		logger:     c.logger,
	}
	return c.errorPlay(p, fallbackCapMs, "castarr", "no channels configured")
}

// lookupChannel resolves a channel query value, number first then UUID.
func (c *Controller) lookupChannel(ctx context.Context, key string) (*models.Channel, error) {
	if number, err := strconv.Atoi(key); err == nil {
		ch, err := c.store.ChannelByNumber(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("looking up channel %d: %w", number, err)
		}
		return ch, nil
	}
	id, err := models.ParseID(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, key)
	}
	ch, err := c.store.ChannelByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up channel %s: %w", key, err)
	}
	return ch, nil
}

// probe inspects a source; failures degrade to a forced transcode rather
// than failing the stream.
func (c *Controller) probe(ctx context.Context, url string, logger *slog.Logger) *ffmpeg.ProbeStats {
	if c.prober == nil || url == "" {
		return nil
	}
	stats, err := c.prober.Probe(ctx, url)
	if err != nil {
		logger.Warn("probe failed, forcing transcode", slog.String("error", err.Error()))
		return nil
	}
	return stats
}

// applyWatermark attaches the channel watermark unless it is disabled, has
// no image, or the item is filler on a channel that suppresses overlays.
func (c *Controller) applyWatermark(input *encoder.PlanInput, ch *models.Channel, isFiller bool) {
	if !ch.Watermark.Enabled {
		return
	}
	if isFiller && ch.DisableFillerOverlay {
		return
	}
	url := ch.Watermark.URL
	if url == "" {
		url = ch.Icon.URL
	}
	if url == "" {
		return
	}
	input.Watermark = &ch.Watermark
	input.WatermarkURL = url
}

func (c *Controller) offlinePicture(ch *models.Channel) string {
	if ch != nil && ch.OfflinePicture != "" {
		return ch.OfflinePicture
	}
	return c.defaultPic
}

// meteredWriter counts delivered bytes and flushes the response after every
// chunk so the transport stream reaches the player promptly.
type meteredWriter struct {
	w io.Writer
	f http.Flusher
}

func (m *meteredWriter) Write(p []byte) (int, error) {
	n, err := m.w.Write(p)
	if n > 0 {
		observability.StreamBytesTotal.Add(float64(n))
	}
	if m.f != nil {
		m.f.Flush()
	}
	return n, err
}
