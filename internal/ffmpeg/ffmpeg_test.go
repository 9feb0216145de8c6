package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"streams": [
			{
				"index": 0,
				"codec_type": "video",
				"codec_name": "h264",
				"width": 1920,
				"height": 1080,
				"sample_aspect_ratio": "1:1",
				"r_frame_rate": "30000/1001",
				"field_order": "progressive"
			},
			{
				"index": 1,
				"codec_type": "audio",
				"codec_name": "aac"
			},
			{
				"index": 2,
				"codec_type": "audio",
				"codec_name": "ac3"
			}
		],
		"format": {"duration": "1425.600000"}
	}`)

	stats, err := parseProbeOutput(data)
	require.NoError(t, err)

	assert.Equal(t, "h264", stats.VideoCodec)
	assert.Equal(t, 1920, stats.Width)
	assert.Equal(t, 1080, stats.Height)
	assert.Equal(t, 1, stats.SARNum)
	assert.Equal(t, 1, stats.SARDen)
	assert.InDelta(t, 29.97, stats.FPS, 0.01)
	assert.Equal(t, ScanProgressive, stats.Scan)

	// First audio stream wins.
	assert.Equal(t, "aac", stats.AudioCodec)
	assert.Equal(t, 1, stats.AudioIndex)
	assert.True(t, stats.HasAudio())

	assert.EqualValues(t, 1425600, stats.DurationMs)
}

func TestParseProbeOutputInterlacedAnamorphic(t *testing.T) {
	data := []byte(`{
		"streams": [
			{
				"index": 0,
				"codec_type": "video",
				"codec_name": "mpeg2video",
				"width": 720,
				"height": 576,
				"sample_aspect_ratio": "16:11",
				"r_frame_rate": "25/1",
				"field_order": "tt"
			}
		],
		"format": {}
	}`)

	stats, err := parseProbeOutput(data)
	require.NoError(t, err)

	assert.Equal(t, 16, stats.SARNum)
	assert.Equal(t, 11, stats.SARDen)
	assert.Equal(t, ScanInterlaced, stats.Scan)
	assert.False(t, stats.HasAudio())
	assert.Equal(t, -1, stats.AudioIndex)
}

func TestParseProbeOutputNoVideo(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"index": 0, "codec_type": "audio", "codec_name": "mp3"}
		],
		"format": {"duration": "212.3"}
	}`)

	stats, err := parseProbeOutput(data)
	require.NoError(t, err)
	assert.False(t, stats.HasVideo())
	assert.True(t, stats.HasAudio())
	assert.Equal(t, "mp3", stats.AudioCodec)
	assert.EqualValues(t, 212300, stats.DurationMs)
}

func TestParseProbeOutputStreamDurationFallback(t *testing.T) {
	// Raw streams carry no format-level duration; the per-stream value is
	// the only one available.
	data := []byte(`{
		"streams": [
			{
				"index": 0,
				"codec_type": "video",
				"codec_name": "h264",
				"width": 1280,
				"height": 720,
				"r_frame_rate": "25/1",
				"duration": "30.000000"
			}
		],
		"format": {}
	}`)

	stats, err := parseProbeOutput(data)
	require.NoError(t, err)
	assert.EqualValues(t, 30_000, stats.DurationMs)

	// A format-level duration still wins over the stream values.
	data = []byte(`{
		"streams": [
			{"index": 0, "codec_type": "video", "codec_name": "h264", "duration": "29.5"}
		],
		"format": {"duration": "30.0"}
	}`)
	stats, err = parseProbeOutput(data)
	require.NoError(t, err)
	assert.EqualValues(t, 30_000, stats.DurationMs)
}

func TestParseProbeOutputMalformed(t *testing.T) {
	_, err := parseProbeOutput([]byte("not json"))
	assert.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 25.0, parseFrameRate("25/1"), 0.001)
	assert.InDelta(t, 23.976, parseFrameRate("24000/1001"), 0.001)
	assert.Zero(t, parseFrameRate("0/0"))
	assert.Zero(t, parseFrameRate("garbage"))
}

func TestHasEncoder(t *testing.T) {
	info := &BinaryInfo{Encoders: []string{"libx264", "aac", "mpeg2video"}}
	assert.True(t, info.HasEncoder("libx264"))
	assert.False(t, info.HasEncoder("hevc_nvenc"))
}
