package encoder

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/castarr/internal/ffmpeg"
	"github.com/jmylchreest/castarr/internal/models"
)

func compatibleProbe() *ffmpeg.ProbeStats {
	return &ffmpeg.ProbeStats{
		VideoCodec: "h264",
		Width:      1920,
		Height:     1080,
		SARNum:     1,
		SARDen:     1,
		FPS:        23.976,
		Scan:       ffmpeg.ScanProgressive,
		AudioCodec: "aac",
		AudioIndex: 1,
	}
}

func palDVDProbe() *ffmpeg.ProbeStats {
	return &ffmpeg.ProbeStats{
		VideoCodec: "mpeg2video",
		Width:      720,
		Height:     576,
		SARNum:     16,
		SARDen:     11,
		FPS:        25,
		Scan:       ffmpeg.ScanInterlaced,
		AudioCodec: "ac3",
		AudioIndex: 1,
	}
}

func TestBuildPlanCopyGolden(t *testing.T) {
	// A source matching the configured encoders and target frame end-to-end
	// is a pure copy with no filter graph.
	plan, err := BuildPlan(&PlanInput{
		Settings:   models.DefaultFFmpegSettings(),
		SourceURL:  "http://media/item.mp4",
		Probe:      compatibleProbe(),
		SeekMs:     120_000,
		DurationMs: 600_000,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error", "-nostats",
		"-ss", "120.000", "-re", "-i", "http://media/item.mp4",
		"-map", "0:v:0",
		"-map", "0:1",
		"-c:v", "copy",
		"-c:a", "copy",
		"-t", "600.000",
		"-muxdelay", "0", "-muxpreload", "0", "-f", "mpegts", "pipe:1",
	}, plan.Args)
	assert.False(t, plan.TranscodeVideo)
	assert.False(t, plan.TranscodeAudio)
}

func TestBuildPlanTranscodeInterlacedAnamorphic(t *testing.T) {
	// PAL DVD material: codec mismatch, interlaced, anamorphic. The chain is
	// deinterlace, scale-fit, pad, setsar.
	plan, err := BuildPlan(&PlanInput{
		Settings:   models.DefaultFFmpegSettings(),
		SourceURL:  "file:///media/dvd.mpg",
		Probe:      palDVDProbe(),
		DurationMs: 300_000,
	})
	require.NoError(t, err)
	require.True(t, plan.TranscodeVideo)
	require.True(t, plan.TranscodeAudio)

	fc := filterComplexOf(t, plan.Args)
	assert.Contains(t, fc, "yadif")
	assert.Contains(t, fc, "scale=1920:1056")
	assert.Contains(t, fc, "pad=1920:1080:(ow-iw)/2:(oh-ih)/2")
	assert.Contains(t, fc, "setsar=1")

	assert.Contains(t, plan.Args, "libx264")
	assert.Contains(t, plan.Args, "aac")
	assertWellFormed(t, plan.Args)
}

func TestBuildPlanFPSCap(t *testing.T) {
	s := models.DefaultFFmpegSettings()
	s.MaxFPS = 30
	p := compatibleProbe()
	p.FPS = 59.94

	plan, err := BuildPlan(&PlanInput{
		Settings:   s,
		SourceURL:  "http://media/sports.ts",
		Probe:      p,
		DurationMs: 60_000,
	})
	require.NoError(t, err)
	assert.Contains(t, filterComplexOf(t, plan.Args), "fps=30")
	assertWellFormed(t, plan.Args)
}

func TestBuildPlanTranscodingDisabled(t *testing.T) {
	// With transcoding disabled everything is a copy, even a mismatched
	// interlaced source.
	s := models.DefaultFFmpegSettings()
	s.EnableTranscoding = false

	plan, err := BuildPlan(&PlanInput{
		Settings:   s,
		SourceURL:  "file:///media/dvd.mpg",
		Probe:      palDVDProbe(),
		DurationMs: 300_000,
	})
	require.NoError(t, err)
	assert.False(t, plan.TranscodeVideo)
	assert.NotContains(t, plan.Args, "-filter_complex")
	assert.Contains(t, plan.Args, "copy")
}

func TestBuildPlanOfflinePicture(t *testing.T) {
	plan, err := BuildPlan(&PlanInput{
		Settings:   models.DefaultFFmpegSettings(),
		Offline:    true,
		PictureURL: "/data/offline.png",
		DurationMs: 60_000,
	})
	require.NoError(t, err)

	fc := filterComplexOf(t, plan.Args)
	assert.Contains(t, fc, "format=yuv420p")
	assert.Contains(t, fc, "scale=1920:1080:force_original_aspect_ratio=1")
	assert.Contains(t, fc, "loop=loop=-1:size=1:start=0")
	assert.Contains(t, fc, "realtime")
	assert.Contains(t, fc, "aevalsrc=0:duration=60.000")

	// stillimage tune for the default libx264 encoder.
	assert.Contains(t, plan.Args, "-tune")
	assert.Contains(t, plan.Args, "stillimage")
	assertWellFormed(t, plan.Args)
}

func TestBuildPlanOfflineSoundtrack(t *testing.T) {
	plan, err := BuildPlan(&PlanInput{
		Settings:      models.DefaultFFmpegSettings(),
		Offline:       true,
		PictureURL:    "/data/offline.png",
		SoundtrackURL: "/data/lofi.mp3",
		DurationMs:    300_000,
	})
	require.NoError(t, err)

	fc := filterComplexOf(t, plan.Args)
	assert.Contains(t, fc, "aloop=loop=-1:size=2147483647")
	assert.Contains(t, plan.Args, "/data/lofi.mp3")
	assertWellFormed(t, plan.Args)
}

func TestBuildPlanErrorScreens(t *testing.T) {
	tests := []struct {
		screen models.ErrorScreen
		want   string
	}{
		{models.ErrorScreenStatic, "geq=random(1)*255:128:128"},
		{models.ErrorScreenTestsrc, "testsrc=size=1920x1080"},
		{models.ErrorScreenText, "drawtext"},
	}
	for _, tt := range tests {
		t.Run(string(tt.screen), func(t *testing.T) {
			s := models.DefaultFFmpegSettings()
			s.ErrorScreen = tt.screen

			plan, err := BuildPlan(&PlanInput{
				Settings:   s,
				Title:      "Channel 5",
				Subtitle:   "redirect cycle: a -> b -> a",
				DurationMs: 60_000,
			})
			require.NoError(t, err)
			assert.Contains(t, filterComplexOf(t, plan.Args), tt.want)
			assertWellFormed(t, plan.Args)
		})
	}
}

func TestBuildPlanKillScreen(t *testing.T) {
	s := models.DefaultFFmpegSettings()
	s.ErrorScreen = models.ErrorScreenKill

	_, err := BuildPlan(&PlanInput{Settings: s, DurationMs: 60_000})
	assert.ErrorIs(t, err, ErrKillScreen)
}

func TestBuildPlanSineClampsVolume(t *testing.T) {
	s := models.DefaultFFmpegSettings()
	s.ErrorScreen = models.ErrorScreenText
	s.ErrorAudio = models.ErrorAudioSine

	plan, err := BuildPlan(&PlanInput{
		Settings:   s,
		Title:      "oops",
		DurationMs: 60_000,
	})
	require.NoError(t, err)

	fc := filterComplexOf(t, plan.Args)
	assert.Contains(t, fc, "sine=f=440:duration=60.000")
	assert.Contains(t, fc, "volume=0.70")
	assertWellFormed(t, plan.Args)
}

func TestBuildPlanWatermark(t *testing.T) {
	wm := &models.Watermark{
		Enabled:                 true,
		WidthPercent:            10,
		HorizontalMarginPercent: 2,
		VerticalMarginPercent:   3,
		Position:                models.WatermarkBottomRight,
		DurationSeconds:         60,
	}

	plan, err := BuildPlan(&PlanInput{
		Settings:     models.DefaultFFmpegSettings(),
		SourceURL:    "file:///media/dvd.mpg",
		Probe:        palDVDProbe(),
		DurationMs:   300_000,
		Watermark:    wm,
		WatermarkURL: "/cache/wm.png",
	})
	require.NoError(t, err)

	fc := filterComplexOf(t, plan.Args)
	assert.Contains(t, fc, "scale=192:-1")
	assert.Contains(t, fc, "overlay=x=main_w-overlay_w-38:y=main_h-overlay_h-32:enable='between(t,0,60)'")
	assert.Contains(t, plan.Args, "/cache/wm.png")
	assertWellFormed(t, plan.Args)
}

func TestBuildPlanAnimatedWatermarkFlags(t *testing.T) {
	wm := &models.Watermark{
		Enabled:   true,
		Position:  models.WatermarkTopLeft,
		FixedSize: true,
		Animated:  true,
	}

	plan, err := BuildPlan(&PlanInput{
		Settings:     models.DefaultFFmpegSettings(),
		SourceURL:    "file:///media/dvd.mpg",
		Probe:        palDVDProbe(),
		DurationMs:   300_000,
		Watermark:    wm,
		WatermarkURL: "/cache/wm.gif",
	})
	require.NoError(t, err)

	joined := strings.Join(plan.Args, " ")
	assert.Contains(t, joined, "-ignore_loop 0 -i /cache/wm.gif")
	assert.Contains(t, filterComplexOf(t, plan.Args), "overlay=shortest=1:x=0:y=0")
	assertWellFormed(t, plan.Args)
}

func TestBuildPlanAudioOnly(t *testing.T) {
	plan, err := BuildPlan(&PlanInput{
		Settings:   models.DefaultFFmpegSettings(),
		SourceURL:  "http://media/track.mp3",
		Probe:      &ffmpeg.ProbeStats{AudioCodec: "aac", AudioIndex: 0},
		DurationMs: 180_000,
		AudioOnly:  true,
	})
	require.NoError(t, err)

	joined := strings.Join(plan.Args, " ")
	assert.NotContains(t, joined, "-map 0:v")
	assert.Contains(t, joined, "-map 0:0")
	assert.NotContains(t, joined, "-c:v")
}

func TestBuildPlanNormalizeAudioIndependentTrigger(t *testing.T) {
	// Channel/sample-rate conformance forces an audio transcode even when
	// codec normalization is off and the codec matches.
	s := models.DefaultFFmpegSettings()
	s.NormalizeAudioCodec = false
	s.NormalizeAudio = true

	plan, err := BuildPlan(&PlanInput{
		Settings:   s,
		SourceURL:  "http://media/item.mp4",
		Probe:      compatibleProbe(),
		DurationMs: 60_000,
	})
	require.NoError(t, err)
	assert.True(t, plan.TranscodeAudio)

	joined := strings.Join(plan.Args, " ")
	assert.Contains(t, joined, "-ac 2 -ar 48000")
}

func TestBuildPlanAPad(t *testing.T) {
	s := models.DefaultFFmpegSettings()
	s.APad = true

	plan, err := BuildPlan(&PlanInput{
		Settings:   s,
		SourceURL:  "http://media/item.mp4",
		Probe:      compatibleProbe(),
		DurationMs: 90_000,
	})
	require.NoError(t, err)
	assert.Contains(t, filterComplexOf(t, plan.Args), "apad=whole_dur=90000ms")
	assertWellFormed(t, plan.Args)
}

func TestBuildPlanHLSOutput(t *testing.T) {
	s := models.DefaultFFmpegSettings()
	s.HLSDeleteThreshold = 6

	plan, err := BuildPlan(&PlanInput{
		Settings:   s,
		SourceURL:  "http://media/item.mp4",
		Probe:      compatibleProbe(),
		DurationMs: 60_000,
		Output:     OutputHLS,
		SegmentDir: "/data/segments/42",
	})
	require.NoError(t, err)

	joined := strings.Join(plan.Args, " ")
	assert.Contains(t, joined, "-f hls")
	// The configured delete threshold is authoritative.
	assert.Contains(t, joined, "-hls_delete_threshold 6")
	assert.Contains(t, joined, "/data/segments/42/stream.m3u8")
}

func TestBuildPlanChannelOverrides(t *testing.T) {
	ch := &models.Channel{
		TargetResolution: "1280x720",
		VideoBitrate:     4000,
		VideoBufSize:     1000,
	}

	plan, err := BuildPlan(&PlanInput{
		Settings:   models.DefaultFFmpegSettings(),
		Channel:    ch,
		SourceURL:  "file:///media/dvd.mpg",
		Probe:      palDVDProbe(),
		DurationMs: 60_000,
	})
	require.NoError(t, err)

	joined := strings.Join(plan.Args, " ")
	assert.Contains(t, joined, "-b:v 4000k")
	assert.Contains(t, joined, "-bufsize:v 1000k")
	assert.Contains(t, filterComplexOf(t, plan.Args), "pad=1280:720")
}

func TestBuildPlanDeterminism(t *testing.T) {
	inputs := []*PlanInput{
		{Settings: models.DefaultFFmpegSettings(), SourceURL: "u", Probe: palDVDProbe(), DurationMs: 60_000},
		{Settings: models.DefaultFFmpegSettings(), Offline: true, PictureURL: "p.png", DurationMs: 60_000},
		{Settings: models.DefaultFFmpegSettings(), Title: "t", Subtitle: "s", DurationMs: 60_000},
	}
	for _, in := range inputs {
		a, err := BuildPlan(in)
		require.NoError(t, err)
		b, err := BuildPlan(in)
		require.NoError(t, err)
		assert.Equal(t, a.Args, b.Args)
	}
}

// filterComplexOf extracts the -filter_complex value from an arglist.
func filterComplexOf(t *testing.T, args []string) string {
	t.Helper()
	for i, a := range args {
		if a == "-filter_complex" {
			require.Less(t, i+1, len(args))
			return args[i+1]
		}
	}
	t.Fatal("no -filter_complex in args")
	return ""
}

var padRef = regexp.MustCompile(`\[([vaw]\d+)\]`)

// assertWellFormed checks the filter graph contract: the expression never
// begins with a separator and every generated pad is defined exactly once
// and consumed exactly once (in the graph or by a -map).
func assertWellFormed(t *testing.T, args []string) {
	t.Helper()
	fc := filterComplexOf(t, args)
	require.NotEmpty(t, fc)
	assert.NotEqual(t, byte(';'), fc[0])

	refs := map[string]int{}
	for _, m := range padRef.FindAllStringSubmatch(fc, -1) {
		refs[m[1]]++
	}
	for _, a := range args {
		if len(a) > 2 && a[0] == '[' && a[len(a)-1] == ']' {
			refs[a[1:len(a)-1]]++
		}
	}
	for pad, n := range refs {
		assert.Equal(t, 2, n, "pad %s referenced %d times", pad, n)
	}
}
