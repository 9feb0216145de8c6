package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectVideo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  VideoFamily
	}{
		{name: "probe h264", input: "h264", want: VideoH264},
		{name: "encoder libx264", input: "libx264", want: VideoH264},
		{name: "videotoolbox", input: "h264_videotoolbox", want: VideoH264},
		{name: "probe hevc", input: "hevc", want: VideoH265},
		{name: "encoder libx265", input: "libx265", want: VideoH265},
		{name: "hevc nvenc", input: "hevc_nvenc", want: VideoH265},
		{name: "probe mpeg2video", input: "mpeg2video", want: VideoMPEG2},
		{name: "mpeg2", input: "mpeg2", want: VideoMPEG2},
		{name: "vp9 unknown", input: "vp9", want: VideoUnknown},
		{name: "mpeg4 unknown", input: "mpeg4", want: VideoUnknown},
		{name: "empty", input: "", want: VideoUnknown},
		{name: "case insensitive", input: "LIBX264", want: VideoH264},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectVideo(tt.input))
		})
	}
}

func TestDetectAudio(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  AudioFamily
	}{
		{name: "aac", input: "aac", want: AudioAAC},
		{name: "mp3 probe", input: "mp3", want: AudioMP3},
		{name: "lame encoder", input: "libmp3lame", want: AudioMP3},
		{name: "ac3", input: "ac3", want: AudioAC3},
		{name: "eac3 folds into ac3", input: "eac3", want: AudioAC3},
		{name: "flac", input: "flac", want: AudioFLAC},
		{name: "dts unknown", input: "dts", want: AudioUnknown},
		{name: "empty", input: "", want: AudioUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectAudio(tt.input))
		})
	}
}

func TestVideoMatch(t *testing.T) {
	assert.True(t, VideoMatch("h264", "libx264"))
	assert.True(t, VideoMatch("hevc", "libx265"))
	assert.True(t, VideoMatch("mpeg2video", "mpeg2video"))
	assert.False(t, VideoMatch("h264", "libx265"), "cross-family never copies")
	assert.False(t, VideoMatch("mpeg4", "libx264"), "unknown probe forces transcode")
	assert.False(t, VideoMatch("vp9", "vp9"), "unknown pairs never match even when equal")
}

func TestAudioMatch(t *testing.T) {
	assert.True(t, AudioMatch("aac", "aac"))
	assert.True(t, AudioMatch("mp3", "libmp3lame"))
	assert.False(t, AudioMatch("aac", "ac3"))
	assert.False(t, AudioMatch("dts", "dts"), "unknown pairs never match")
}

func TestSupportsStillimageTune(t *testing.T) {
	assert.True(t, SupportsStillimageTune("libx264"))
	assert.True(t, SupportsStillimageTune("mpeg2video"))
	assert.True(t, SupportsStillimageTune("h264_videotoolbox"))
	assert.False(t, SupportsStillimageTune("libx265"))
	assert.False(t, SupportsStillimageTune("h264_nvenc"))
}
