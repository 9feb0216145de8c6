package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jmylchreest/castarr/internal/encoder"
	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/observability"
	"github.com/jmylchreest/castarr/pkg/format"
)

// ConcatPlay is a prepared server-side concat consumer: one long-lived ffmpeg
// reading the channel's /playlist manifest and copying it to the client as a
// continuous transport stream.
type ConcatPlay struct {
	Channel    *models.Channel
	Args       []string
	FFmpegPath string
}

// PrepareConcat builds the concat consumer for /video and /radio. baseURL is
// the externally reachable server root the consumer fetches /playlist from.
func (c *Controller) PrepareConcat(ctx context.Context, channelKey, baseURL string, audioOnly bool) (*ConcatPlay, error) {
	ch, err := c.Channel(ctx, channelKey)
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

	return &ConcatPlay{
		Channel:    ch,
		Args:       concatConsumerArgs(ch, settings, playlistURL(baseURL, ch.Number, audioOnly), audioOnly),
		FFmpegPath: info.FFmpegPath,
	}, nil
}

// ServeConcat runs a prepared concat consumer, pumping its output to w until
// the client disconnects. The consumer loops the two-entry manifest forever,
// so a normal exit only happens on kill.
func (c *Controller) ServeConcat(ctx context.Context, play *ConcatPlay, w io.Writer) error {
	logger := observability.WithChannel(c.logger, play.Channel.Number)

	proc := encoder.NewProcess(play.FFmpegPath, play.Args, logger)
	out, err := proc.Start()
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, proc.Kill)
	defer stop()

	started := time.Now()
	mw := &meteredWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		mw.f = f
	}
	_, copyErr := io.Copy(mw, out)

	status := proc.Wait()
	logger.Info("concat stream finished",
		slog.String("outcome", string(status.Outcome)),
		slog.String("sent", format.Bytes(status.BytesOut)),
		slog.Duration("duration", time.Since(started)))

	switch status.Outcome {
	case encoder.OutcomeEnd, encoder.OutcomeKilled:
		return nil
	default:
		if copyErr != nil {
			return fmt.Errorf("streaming concat output: %w", copyErr)
		}
		return fmt.Errorf("concat consumer exited with code %d", status.ExitCode)
	}
}

// playlistURL is the manifest location the concat consumer reads.
func playlistURL(baseURL string, channelNumber int, audioOnly bool) string {
	q := url.Values{}
	q.Set("channel", strconv.Itoa(channelNumber))
	if audioOnly {
		q.Set("audioOnly", "1")
	}
	return trimBase(baseURL) + "/playlist?" + q.Encode()
}

func trimBase(baseURL string) string {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return baseURL
}

// concatConsumerArgs builds the arglist for the long-lived concat ffmpeg.
// It never transcodes: each /stream item is already normalized, so the
// consumer stitches them with a codec copy and restamped timestamps.
func concatConsumerArgs(ch *models.Channel, s *models.FFmpegSettings, manifestURL string, audioOnly bool) []string {
	logLevel := s.LogLevel
	if logLevel == "" {
		logLevel = "error"
	}
	muxDelay := strconv.Itoa(s.ConcatMuxDelay)

	args := []string{
		"-hide_banner",
		"-loglevel", logLevel,
		"-threads", "1",
		"-fflags", "+genpts+discardcorrupt+igndts",
		"-re",
		"-stream_loop", "-1",
		"-f", "concat",
		"-safe", "0",
		"-protocol_whitelist", "file,http,tcp,https,tls",
		"-probesize", "32",
		"-i", manifestURL,
	}
	if audioOnly {
		args = append(args, "-map", "0:a")
	} else {
		args = append(args, "-map", "0:v?", "-map", "0:a?")
	}
	args = append(args,
		"-c", "copy",
		"-muxdelay", muxDelay,
		"-muxpreload", muxDelay,
		"-metadata", "service_provider=castarr",
		"-metadata", "service_name="+ch.Name,
		"-f", "mpegts",
		"pipe:1",
	)
	return args
}
