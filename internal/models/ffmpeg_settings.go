package models

import (
	"gorm.io/gorm"
)

// ErrorScreen selects the synthetic video generated when an item has no
// playable input.
type ErrorScreen string

// Error screen constants.
const (
	// ErrorScreenPic loops a still image.
	ErrorScreenPic ErrorScreen = "pic"
	// ErrorScreenStatic renders analog-style noise.
	ErrorScreenStatic ErrorScreen = "static"
	// ErrorScreenTestsrc renders the ffmpeg test pattern.
	ErrorScreenTestsrc ErrorScreen = "testsrc"
	// ErrorScreenText renders the error text on a black background.
	ErrorScreenText ErrorScreen = "text"
	// ErrorScreenKill fails the request instead of generating video.
	ErrorScreenKill ErrorScreen = "kill"
)

// ErrorAudio selects the synthetic audio paired with an error screen.
type ErrorAudio string

// Error audio constants.
const (
	ErrorAudioSilent     ErrorAudio = "silent"
	ErrorAudioSine       ErrorAudio = "sine"
	ErrorAudioWhiteNoise ErrorAudio = "whitenoise"
)

// FFmpegSettings is the singleton row holding global encoder configuration.
// Channel transcoding overrides take precedence over the matching fields here.
type FFmpegSettings struct {
	BaseModel

	// BinaryPath is the explicit ffmpeg executable path; empty means discover.
	BinaryPath string `gorm:"size:4096" json:"binary_path,omitempty"`

	// ProbePath is the explicit ffprobe executable path; empty means discover.
	ProbePath string `gorm:"size:4096" json:"probe_path,omitempty"`

	// LogLevel is passed to ffmpeg -loglevel.
	LogLevel string `gorm:"size:20;default:'error'" json:"log_level"`

	// EnableTranscoding gates all transcode decisions; when false every
	// stream is a codec copy.
	EnableTranscoding bool `gorm:"default:true" json:"enable_transcoding"`

	// MaxFPS caps the output frame rate; sources above it get an fps filter.
	MaxFPS float64 `gorm:"default:60" json:"max_fps"`

	// DeinterlaceFilter is applied to interlaced sources; "none" disables it.
	DeinterlaceFilter string `gorm:"size:50;default:'yadif'" json:"deinterlace_filter"`

	// TargetResolution is the output frame size as "WxH".
	TargetResolution string `gorm:"size:20;default:'1920x1080'" json:"target_resolution"`

	// VideoBitrate is the target video bitrate in kbps.
	VideoBitrate int `gorm:"default:10000" json:"video_bitrate"`

	// VideoBufSize is the video rate-control buffer in kbps.
	VideoBufSize int `gorm:"default:2000" json:"video_buf_size"`

	// AudioChannels is the output channel count when normalizing audio.
	AudioChannels int `gorm:"default:2" json:"audio_channels"`

	// AudioSampleRate is the output sample rate in kHz when normalizing audio.
	AudioSampleRate int `gorm:"default:48" json:"audio_sample_rate"`

	// AudioBitrate is the target audio bitrate in kbps.
	AudioBitrate int `gorm:"default:192" json:"audio_bitrate"`

	// AudioBufSize is the audio rate-control buffer in kbps.
	AudioBufSize int `gorm:"default:50" json:"audio_buf_size"`

	// NormalizeVideoCodec transcodes video whose codec family differs from
	// the configured encoder.
	NormalizeVideoCodec bool `gorm:"default:true" json:"normalize_video_codec"`

	// NormalizeAudioCodec transcodes audio whose codec family differs from
	// the configured encoder.
	NormalizeAudioCodec bool `gorm:"default:true" json:"normalize_audio_codec"`

	// NormalizeResolution scales and pads sources to TargetResolution.
	NormalizeResolution bool `gorm:"default:true" json:"normalize_resolution"`

	// NormalizeAudio conforms channel count and sample rate. This is an
	// independent transcode trigger: it forces an audio transcode even when
	// NormalizeAudioCodec is off.
	NormalizeAudio bool `gorm:"default:false" json:"normalize_audio"`

	// VideoEncoder is the ffmpeg video encoder name.
	VideoEncoder string `gorm:"size:50;default:'libx264'" json:"video_encoder"`

	// AudioEncoder is the ffmpeg audio encoder name.
	AudioEncoder string `gorm:"size:50;default:'aac'" json:"audio_encoder"`

	// ErrorScreen selects the synthetic video for error/offline slots.
	ErrorScreen ErrorScreen `gorm:"size:20;default:'pic'" json:"error_screen"`

	// ErrorAudio selects the synthetic audio for error slots.
	ErrorAudio ErrorAudio `gorm:"size:20;default:'silent'" json:"error_audio"`

	// APad pads audio to the full item duration.
	APad bool `gorm:"default:false" json:"apad"`

	// VolumePercent scales output volume; 100 is unity.
	VolumePercent int `gorm:"default:100" json:"volume_percent"`

	// HLSTime is the HLS segment duration in seconds.
	HLSTime int `gorm:"default:2" json:"hls_time"`

	// HLSListSize is the number of segments kept in the HLS playlist.
	HLSListSize int `gorm:"default:5" json:"hls_list_size"`

	// HLSDeleteThreshold is how many unreferenced segments are kept before
	// deletion.
	HLSDeleteThreshold int `gorm:"default:3" json:"hls_delete_threshold"`

	// DASHSegDuration is the DASH segment duration in seconds.
	DASHSegDuration int `gorm:"default:2" json:"dash_seg_duration"`

	// DASHFragDuration is the DASH fragment duration in seconds.
	DASHFragDuration int `gorm:"default:1" json:"dash_frag_duration"`

	// EnableAutoPlay keeps two entries in the concat playlist so the client
	// muxer reopens the stream URL without a gap.
	EnableAutoPlay bool `gorm:"default:true" json:"enable_auto_play"`

	// ConcatMuxDelay is passed to -muxdelay on concat consumers, in seconds.
	ConcatMuxDelay int `gorm:"default:0" json:"concat_mux_delay"`
}

// TableName returns the table name for FFmpegSettings.
func (FFmpegSettings) TableName() string {
	return "ffmpeg_settings"
}

// Validate performs basic validation on the settings.
func (s *FFmpegSettings) Validate() error {
	switch s.ErrorScreen {
	case "", ErrorScreenPic, ErrorScreenStatic, ErrorScreenTestsrc, ErrorScreenText, ErrorScreenKill:
	default:
		return ErrValidation{Field: "error_screen", Message: "unknown error screen"}
	}
	switch s.ErrorAudio {
	case "", ErrorAudioSilent, ErrorAudioSine, ErrorAudioWhiteNoise:
	default:
		return ErrValidation{Field: "error_audio", Message: "unknown error audio"}
	}
	if s.VolumePercent < 0 {
		return ErrValidation{Field: "volume_percent", Message: "must be non-negative"}
	}
	if s.HLSDeleteThreshold < 1 {
		return ErrValidation{Field: "hls_delete_threshold", Message: "must be at least 1"}
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the settings and generates the ID.
func (s *FFmpegSettings) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// DefaultFFmpegSettings returns settings with all defaults applied, used to
// seed the singleton row on first boot.
func DefaultFFmpegSettings() *FFmpegSettings {
	return &FFmpegSettings{
		LogLevel:            "error",
		EnableTranscoding:   true,
		MaxFPS:              60,
		DeinterlaceFilter:   "yadif",
		TargetResolution:    "1920x1080",
		VideoBitrate:        10000,
		VideoBufSize:        2000,
		AudioChannels:       2,
		AudioSampleRate:     48,
		AudioBitrate:        192,
		AudioBufSize:        50,
		NormalizeVideoCodec: true,
		NormalizeAudioCodec: true,
		NormalizeResolution: true,
		VideoEncoder:        "libx264",
		AudioEncoder:        "aac",
		ErrorScreen:         ErrorScreenPic,
		ErrorAudio:          ErrorAudioSilent,
		VolumePercent:       100,
		HLSTime:             2,
		HLSListSize:         5,
		HLSDeleteThreshold:  3,
		DASHSegDuration:     2,
		DASHFragDuration:    1,
		EnableAutoPlay:      true,
	}
}
