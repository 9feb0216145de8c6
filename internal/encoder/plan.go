package encoder

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/jmylchreest/castarr/internal/codec"
	"github.com/jmylchreest/castarr/internal/ffmpeg"
	"github.com/jmylchreest/castarr/internal/models"
)

// fpsEpsilon avoids capping sources that sit on the limit through float
// noise (29.970000001 vs a 29.97 cap).
const fpsEpsilon = 0.01

// clampedVolumePercent bounds synthetic tones so error slots never blast the
// listener.
const clampedVolumePercent = 70

// PlanInput is everything the plan builder needs for one lineup item.
// Building is pure: no I/O, no clock, no randomness.
type PlanInput struct {
	// Settings is the global encoder configuration.
	Settings *models.FFmpegSettings

	// Channel supplies per-channel transcoding overrides; may be nil for
	// channel-less streams like /setup.
	Channel *models.Channel

	// SourceURL is the backing file or URL. Empty means the item has no real
	// input and a synthetic screen is generated.
	SourceURL string

	// Probe holds the source's probe stats. nil forces a transcode since
	// nothing is known about the stream.
	Probe *ffmpeg.ProbeStats

	// SeekMs seeks this far into the source before playing.
	SeekMs int64

	// DurationMs bounds the output; 0 plays to the source's end.
	DurationMs int64

	// Offline marks a synthetic slot as scheduled offline rather than an
	// error; offline slots always use the picture screen and may carry a
	// looping soundtrack.
	Offline bool

	// PictureURL is the still image for picture screens.
	PictureURL string

	// Title and Subtitle are rendered by the text screen.
	Title    string
	Subtitle string

	// AudioOnly omits the video stream entirely.
	AudioOnly bool

	// Watermark is the channel overlay; nil disables it. WatermarkURL is the
	// resolved overlay image location.
	Watermark    *models.Watermark
	WatermarkURL string

	// SoundtrackURL loops under offline synthetic video.
	SoundtrackURL string

	// Output selects the muxer; zero value means MPEG-TS on stdout.
	Output Output

	// SegmentDir receives HLS/DASH artifacts.
	SegmentDir string
}

// Plan is a built encoder invocation.
type Plan struct {
	// Args is the complete ffmpeg argument list, exclusive of the binary.
	Args []string

	// TranscodeVideo and TranscodeAudio report the copy-vs-encode decisions,
	// for logging and metrics.
	TranscodeVideo bool
	TranscodeAudio bool
}

// BuildPlan translates a resolved item into an ffmpeg argument list. The
// output is byte-identical for identical inputs.
func BuildPlan(in *PlanInput) (*Plan, error) {
	s := in.Settings
	synthetic := in.SourceURL == ""

	var screen models.ErrorScreen
	if synthetic {
		if in.Offline {
			screen = models.ErrorScreenPic
		} else {
			screen = s.ErrorScreen
			if screen == "" {
				screen = models.ErrorScreenPic
			}
			if screen == models.ErrorScreenKill {
				return nil, ErrKillScreen
			}
		}
		// A picture screen without a picture degrades to the text screen.
		if screen == models.ErrorScreenPic && in.PictureURL == "" {
			screen = models.ErrorScreenText
		}
	}

	wantW, wantH, err := resolveTargetResolution(in.Channel, s)
	if err != nil {
		return nil, err
	}

	effVol := s.VolumePercent
	if effVol <= 0 {
		effVol = 100
	}

	wm := in.Watermark
	wmEnabled := wm != nil && wm.Enabled && in.WatermarkURL != "" && !in.AudioOnly

	// Copy-vs-transcode decisions.
	var (
		transVideo bool
		transAudio bool
		fpsCap     bool
		deint      bool
		needScale  bool
		padEven    bool
	)
	switch {
	case synthetic:
		// Synthetic screens are generated, there is nothing to copy.
		transVideo, transAudio = true, true
	case !s.EnableTranscoding:
		// Everything is a codec copy, filters included.
		wmEnabled = false
	case in.Probe == nil:
		transVideo, transAudio = true, true
	default:
		p := in.Probe
		if s.NormalizeVideoCodec && !codec.VideoMatch(p.VideoCodec, s.VideoEncoder) {
			transVideo = true
		}
		if s.MaxFPS > 0 && p.FPS > s.MaxFPS+fpsEpsilon {
			fpsCap = true
			transVideo = true
		}
		if p.Scan == ffmpeg.ScanInterlaced && s.DeinterlaceFilter != "" && s.DeinterlaceFilter != "none" {
			deint = true
			transVideo = true
		}
		if s.NormalizeResolution && !sourceFits(p, wantW, wantH) {
			needScale = true
			transVideo = true
		}
		if wmEnabled {
			transVideo = true
		}
		if transVideo && !s.NormalizeResolution && (p.Width%2 == 1 || p.Height%2 == 1) {
			padEven = true
		}
		if p.HasAudio() {
			if s.NormalizeAudioCodec && !codec.AudioMatch(p.AudioCodec, s.AudioEncoder) {
				transAudio = true
			}
			// Channel/sample-rate conformance is a transcode trigger of its
			// own, independent of codec normalization.
			if s.NormalizeAudio {
				transAudio = true
			}
			if effVol != 100 {
				transAudio = true
			}
			if s.APad && !in.AudioOnly {
				transAudio = true
			}
		}
	}

	// Inputs accumulate in order; indexes feed the filter graph pads.
	type inputSpec struct {
		flags []string
		url   string
	}
	var inputs []inputSpec
	addInput := func(url string, flags ...string) int {
		inputs = append(inputs, inputSpec{flags: flags, url: url})
		return len(inputs) - 1
	}

	g := &filterGraph{}

	// The real source is always input 0.
	if !synthetic {
		contentFlags := []string{}
		if in.SeekMs > 0 {
			contentFlags = append(contentFlags, "-ss", secondsArg(in.SeekMs))
		}
		contentFlags = append(contentFlags, "-re")
		addInput(in.SourceURL, contentFlags...)
	}

	// Video chain.
	if !in.AudioOnly {
		if synthetic {
			switch screen {
			case models.ErrorScreenPic:
				idx := addInput(in.PictureURL)
				g.setVideoInput(fmt.Sprintf("%d:v", idx))
				g.videoFilter("format=yuv420p")
				g.videoFilter(fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=1", wantW, wantH))
				g.videoFilter(fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", wantW, wantH))
				g.videoFilter("loop=loop=-1:size=1:start=0")
			case models.ErrorScreenStatic:
				g.videoSource(fmt.Sprintf("nullsrc=s=%dx%d", wantW, wantH))
				g.videoFilter("geq=random(1)*255:128:128")
			case models.ErrorScreenTestsrc:
				g.videoSource(fmt.Sprintf("testsrc=size=%dx%d", wantW, wantH))
			case models.ErrorScreenText:
				g.videoSource(fmt.Sprintf("color=c=black:s=%dx%d", wantW, wantH))
				titleSize := ceilDiv(wantH, 22)
				subSize := ceilDiv(wantH, 33)
				g.videoFilter(fmt.Sprintf(
					"drawtext=fontcolor=white:fontsize=%d:text='%s':x=(w-text_w)/2:y=(h-text_h)/2-%d",
					titleSize, escapeDrawtext(in.Title), titleSize))
				if in.Subtitle != "" {
					g.videoFilter(fmt.Sprintf(
						"drawtext=fontcolor=white:fontsize=%d:text='%s':x=(w-text_w)/2:y=(h-text_h)/2+%d",
						subSize, escapeDrawtext(in.Subtitle), subSize))
				}
			}
			g.videoFilter("realtime")
		} else {
			g.setVideoInput("0:v:0")

			if transVideo {
				if fpsCap {
					g.videoFilter("fps=" + formatFPS(s.MaxFPS))
				}
				if deint {
					g.videoFilter(s.DeinterlaceFilter)
				}
				if needScale {
					p := in.Probe
					cw, ch := fitResolution(p.Width, p.Height, p.SARNum, p.SARDen, wantW, wantH)
					g.videoFilter(fmt.Sprintf("scale=%d:%d", cw, ch))
					if cw != wantW || ch != wantH {
						g.videoFilter(fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", wantW, wantH))
					}
					g.videoFilter("setsar=1")
				} else if padEven {
					g.videoFilter("pad=ceil(iw/2)*2:ceil(ih/2)*2")
				}
			}
		}

		if wmEnabled && transVideo {
			frameW, frameH := wantW, wantH
			if !synthetic && !needScale && in.Probe != nil && in.Probe.Width > 0 {
				frameW, frameH = in.Probe.Width, in.Probe.Height
			}
			var wmFlags []string
			if wm.Animated {
				wmFlags = append(wmFlags, "-ignore_loop", "0")
			}
			wmIdx := addInput(in.WatermarkURL, wmFlags...)
			wmPad := fmt.Sprintf("%d:v", wmIdx)
			if !wm.FixedSize {
				wmWidth := roundPercent(frameW, wm.WidthPercent)
				wmPad = g.filterInto(wmPad, fmt.Sprintf("scale=%d:-1", wmWidth))
			}
			g.videoOverlay(wmPad, overlayFilter(wm, frameW, frameH))
		}
	}

	// Audio chain.
	if synthetic {
		switch {
		case in.Offline && in.SoundtrackURL != "":
			idx := addInput(in.SoundtrackURL)
			g.setAudioInput(fmt.Sprintf("%d:a", idx))
			g.audioFilter("aloop=loop=-1:size=2147483647")
		case !in.Offline && s.ErrorAudio == models.ErrorAudioSine:
			g.audioSource("sine=f=440:duration=" + secondsArg(in.DurationMs))
			if effVol > clampedVolumePercent {
				effVol = clampedVolumePercent
			}
		case !in.Offline && (s.ErrorAudio == models.ErrorAudioWhiteNoise || in.AudioOnly):
			g.audioSource("aevalsrc=random(0):duration=" + secondsArg(in.DurationMs))
			if effVol > clampedVolumePercent {
				effVol = clampedVolumePercent
			}
		default:
			g.audioSource("aevalsrc=0:duration=" + secondsArg(in.DurationMs))
		}
		if effVol != 100 {
			g.audioFilter("volume=" + formatVolume(effVol))
		}
	} else if p := in.Probe; p != nil {
		if p.HasAudio() {
			g.setAudioInput(fmt.Sprintf("0:%d", p.AudioIndex))
			if transAudio {
				if effVol != 100 {
					g.audioFilter("volume=" + formatVolume(effVol))
				}
				if s.APad && !in.AudioOnly {
					g.audioFilter(fmt.Sprintf("apad=whole_dur=%dms", in.DurationMs))
				}
			}
		}
	} else {
		// Unprobed source: map audio if present, no filters since nothing is
		// known about the stream layout.
		g.setAudioInput("0:a:0?")
	}

	// Assemble.
	logLevel := s.LogLevel
	if logLevel == "" {
		logLevel = "error"
	}
	args := []string{"-hide_banner", "-loglevel", logLevel, "-nostats"}
	for _, inp := range inputs {
		args = append(args, inp.flags...)
		args = append(args, "-i", inp.url)
	}
	if !g.empty() {
		args = append(args, "-filter_complex", g.String())
	}
	if g.hasVideo() {
		args = append(args, "-map", g.videoMap())
	}
	if g.hasAudio() {
		args = append(args, "-map", g.audioMap())
	}

	if g.hasVideo() {
		if transVideo {
			args = append(args, "-c:v", s.VideoEncoder)
			if screen == models.ErrorScreenPic && codec.SupportsStillimageTune(s.VideoEncoder) {
				args = append(args, "-tune", "stillimage")
			}
			vb, vbuf := resolveVideoBitrate(in.Channel, s)
			args = append(args,
				"-b:v", strconv.Itoa(vb)+"k",
				"-maxrate:v", strconv.Itoa(vb)+"k",
				"-bufsize:v", strconv.Itoa(vbuf)+"k")
		} else {
			args = append(args, "-c:v", "copy")
		}
	}
	if g.hasAudio() {
		if transAudio {
			args = append(args, "-c:a", s.AudioEncoder,
				"-b:a", strconv.Itoa(s.AudioBitrate)+"k",
				"-bufsize:a", strconv.Itoa(s.AudioBufSize)+"k")
			if s.NormalizeAudio {
				args = append(args,
					"-ac", strconv.Itoa(s.AudioChannels),
					"-ar", strconv.Itoa(s.AudioSampleRate*1000))
			}
		} else {
			args = append(args, "-c:a", "copy")
		}
	}

	if in.DurationMs > 0 {
		args = append(args, "-t", secondsArg(in.DurationMs))
	}

	switch in.Output {
	case OutputHLS:
		args = append(args,
			"-f", "hls",
			"-hls_time", strconv.Itoa(s.HLSTime),
			"-hls_list_size", strconv.Itoa(s.HLSListSize),
			"-hls_delete_threshold", strconv.Itoa(s.HLSDeleteThreshold),
			"-hls_flags", "delete_segments+independent_segments",
			"-hls_segment_filename", filepath.Join(in.SegmentDir, "segment%05d.ts"),
			filepath.Join(in.SegmentDir, "stream.m3u8"))
	case OutputDASH:
		args = append(args,
			"-f", "dash",
			"-seg_duration", strconv.Itoa(s.DASHSegDuration),
			"-frag_duration", strconv.Itoa(s.DASHFragDuration),
			filepath.Join(in.SegmentDir, "stream.mpd"))
	default:
		args = append(args, "-muxdelay", "0", "-muxpreload", "0", "-f", "mpegts", "pipe:1")
	}

	return &Plan{
		Args:           args,
		TranscodeVideo: transVideo,
		TranscodeAudio: transAudio,
	}, nil
}

// overlayFilter builds the watermark overlay expression from the anchored
// corner and percentage margins.
func overlayFilter(wm *models.Watermark, frameW, frameH int) string {
	mx := roundPercent(frameW, wm.HorizontalMarginPercent)
	my := roundPercent(frameH, wm.VerticalMarginPercent)

	var x, y string
	switch wm.Position {
	case models.WatermarkTopLeft:
		x = strconv.Itoa(mx)
		y = strconv.Itoa(my)
	case models.WatermarkTopRight:
		x = fmt.Sprintf("main_w-overlay_w-%d", mx)
		y = strconv.Itoa(my)
	case models.WatermarkBottomLeft:
		x = strconv.Itoa(mx)
		y = fmt.Sprintf("main_h-overlay_h-%d", my)
	default: // bottom-right
		x = fmt.Sprintf("main_w-overlay_w-%d", mx)
		y = fmt.Sprintf("main_h-overlay_h-%d", my)
	}

	filter := "overlay="
	if wm.Animated {
		filter += "shortest=1:"
	}
	filter += "x=" + x + ":y=" + y
	if wm.DurationSeconds > 0 {
		filter += fmt.Sprintf(":enable='between(t,0,%d)'", wm.DurationSeconds)
	}
	return filter
}

// resolveTargetResolution applies the channel override over the global
// setting.
func resolveTargetResolution(ch *models.Channel, s *models.FFmpegSettings) (w, h int, err error) {
	res := s.TargetResolution
	if ch != nil && ch.TargetResolution != "" {
		res = ch.TargetResolution
	}
	if res == "" {
		return 1920, 1080, nil
	}
	return parseResolution(res)
}

// resolveVideoBitrate applies channel overrides over the global bitrate and
// buffer size, in kbps.
func resolveVideoBitrate(ch *models.Channel, s *models.FFmpegSettings) (bitrate, bufSize int) {
	bitrate, bufSize = s.VideoBitrate, s.VideoBufSize
	if ch != nil {
		if ch.VideoBitrate > 0 {
			bitrate = ch.VideoBitrate
		}
		if ch.VideoBufSize > 0 {
			bufSize = ch.VideoBufSize
		}
	}
	return bitrate, bufSize
}

// sourceFits reports whether the probed frame already matches the target
// with square pixels.
func sourceFits(p *ffmpeg.ProbeStats, wantW, wantH int) bool {
	return p.Width == wantW && p.Height == wantH && p.SARNum == p.SARDen
}

// secondsArg formats a millisecond duration as an ffmpeg seconds argument.
func secondsArg(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

func formatVolume(percent int) string {
	return strconv.FormatFloat(float64(percent)/100, 'f', 2, 64)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func roundPercent(base int, percent float64) int {
	v := float64(base) * percent / 100
	return int(v + 0.5)
}
