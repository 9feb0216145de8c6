package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/castarr/internal/mpegts"
)

// ScanType describes how a video stream's frames are stored.
type ScanType string

const (
	ScanProgressive ScanType = "progressive"
	ScanInterlaced  ScanType = "interlaced"
	ScanUnknown     ScanType = "unknown"
)

// ProbeStats is the distilled result of probing a media URL: just the fields
// the encoder planner needs to decide between copy and transcode.
type ProbeStats struct {
	VideoCodec string
	Width      int
	Height     int
	SARNum     int
	SARDen     int
	FPS        float64
	Scan       ScanType

	AudioCodec string
	// AudioIndex is the absolute stream index of the chosen audio stream,
	// -1 when the input has no audio.
	AudioIndex int

	DurationMs int64
}

// HasVideo reports whether a video stream was found.
func (s *ProbeStats) HasVideo() bool { return s.VideoCodec != "" }

// HasAudio reports whether an audio stream was found.
func (s *ProbeStats) HasAudio() bool { return s.AudioIndex >= 0 }

// ffprobe JSON output structures (subset).
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Index              int    `json:"index"`
	CodecType          string `json:"codec_type"`
	CodecName          string `json:"codec_name"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	SampleAspectRatio  string `json:"sample_aspect_ratio"`
	RFrameRate         string `json:"r_frame_rate"`
	AvgFrameRate       string `json:"avg_frame_rate"`
	FieldOrder         string `json:"field_order"`
	Duration           string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Prober runs ffprobe against media URLs.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber creates a prober for the given ffprobe binary.
func NewProber(ffprobePath string) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     30 * time.Second,
	}
}

// WithTimeout sets the per-probe timeout.
func (p *Prober) WithTimeout(timeout time.Duration) *Prober {
	p.timeout = timeout
	return p
}

// Probe inspects the media at url and returns its stream stats. Without an
// ffprobe binary, local transport streams are still inspected through their
// program tables; everything else fails and the caller forces a transcode.
func (p *Prober) Probe(ctx context.Context, url string) (*ProbeStats, error) {
	if p.ffprobePath == "" {
		return p.probeTransportStream(ctx, url)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		url,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", url, err)
	}

	return parseProbeOutput(output)
}

// probeTransportStream reads the PAT/PMT of a local .ts file. The tables
// carry codecs but no frame geometry, so the planner still transcodes video;
// a matching audio codec can at least be copied.
func (p *Prober) probeTransportStream(ctx context.Context, url string) (*ProbeStats, error) {
	if strings.Contains(url, "://") || !strings.HasSuffix(strings.ToLower(url), ".ts") {
		return nil, fmt.Errorf("ffprobe not available")
	}
	f, err := os.Open(url)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", url, err)
	}
	defer f.Close()

	info, err := mpegts.Inspect(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", url, err)
	}

	stats := &ProbeStats{
		SARNum:     1,
		SARDen:     1,
		Scan:       ScanUnknown,
		AudioIndex: -1,
	}
	// info.Streams holds every PMT elementary stream in table order, which
	// is the order ffmpeg's mpegts demuxer creates streams in, so the slice
	// position is the absolute index -map expects.
	for i, s := range info.Streams {
		switch {
		case s.Video && !stats.HasVideo():
			stats.VideoCodec = s.Codec
		case !s.Video && s.Codec != "" && !stats.HasAudio():
			stats.AudioCodec = s.Codec
			stats.AudioIndex = i
		}
	}
	return stats, nil
}

// parseProbeOutput turns raw ffprobe JSON into ProbeStats. The first video
// stream and the first audio stream win; extra streams are ignored.
func parseProbeOutput(data []byte) (*ProbeStats, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	stats := &ProbeStats{
		SARNum:     1,
		SARDen:     1,
		Scan:       ScanUnknown,
		AudioIndex: -1,
	}

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if stats.HasVideo() {
				continue
			}
			stats.VideoCodec = s.CodecName
			stats.Width = s.Width
			stats.Height = s.Height
			if num, den, ok := parseRatio(s.SampleAspectRatio, ":"); ok && num > 0 && den > 0 {
				stats.SARNum = num
				stats.SARDen = den
			}
			stats.FPS = parseFrameRate(s.RFrameRate)
			if stats.FPS == 0 {
				stats.FPS = parseFrameRate(s.AvgFrameRate)
			}
			stats.Scan = parseFieldOrder(s.FieldOrder)
		case "audio":
			if stats.HasAudio() {
				continue
			}
			stats.AudioCodec = s.CodecName
			stats.AudioIndex = s.Index
		}
		// Containers without a format-level duration (raw streams) still
		// report one per stream.
		if stats.DurationMs == 0 {
			stats.DurationMs = parseDurationMs(s.Duration)
		}
	}

	if d := parseDurationMs(out.Format.Duration); d > 0 {
		stats.DurationMs = d
	}

	return stats, nil
}

// parseRatio parses "16:11" style ratio strings.
func parseRatio(s, sep string) (num, den int, ok bool) {
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	num, err1 := strconv.Atoi(parts[0])
	den, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return num, den, true
}

// parseFrameRate parses ffprobe's fractional frame rates like "30000/1001".
func parseFrameRate(s string) float64 {
	num, den, ok := parseRatio(s, "/")
	if !ok || den == 0 || num == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func parseFieldOrder(fieldOrder string) ScanType {
	switch fieldOrder {
	case "progressive":
		return ScanProgressive
	case "tt", "bb", "tb", "bt":
		return ScanInterlaced
	default:
		return ScanUnknown
	}
}

func parseDurationMs(s string) int64 {
	if s == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return int64(math.Round(secs * 1000))
}
