package models

import (
	"gorm.io/gorm"
)

// OfflineMode selects what a channel shows during offline gaps when no
// filler clip is eligible.
type OfflineMode string

// Offline mode constants.
const (
	// OfflineModeClip plays the channel's static fallback clip.
	OfflineModeClip OfflineMode = "clip"
	// OfflineModePic loops the channel's offline picture.
	OfflineModePic OfflineMode = "pic"
)

// WatermarkPosition identifies the corner a watermark is anchored to.
type WatermarkPosition string

// Watermark position constants.
const (
	WatermarkTopLeft     WatermarkPosition = "top-left"
	WatermarkTopRight    WatermarkPosition = "top-right"
	WatermarkBottomLeft  WatermarkPosition = "bottom-left"
	WatermarkBottomRight WatermarkPosition = "bottom-right"
)

// Watermark describes an overlay image burned into a channel's output.
// Percentages are relative to the output frame.
type Watermark struct {
	Enabled bool `gorm:"default:false" json:"enabled"`

	// URL is the watermark image location. When empty the channel icon is used.
	URL string `gorm:"size:2048" json:"url,omitempty"`

	// WidthPercent is the overlay width as a percentage of the frame width.
	WidthPercent float64 `gorm:"default:10" json:"width_percent"`

	// VerticalMarginPercent is the margin from the anchored horizontal edge.
	VerticalMarginPercent float64 `gorm:"default:0" json:"vertical_margin_percent"`

	// HorizontalMarginPercent is the margin from the anchored vertical edge.
	HorizontalMarginPercent float64 `gorm:"default:0" json:"horizontal_margin_percent"`

	// Position is the corner the overlay is anchored to.
	Position WatermarkPosition `gorm:"size:20;default:'bottom-right'" json:"position"`

	// DurationSeconds limits how long the overlay is shown; 0 means forever.
	DurationSeconds int `gorm:"default:0" json:"duration_seconds"`

	// FixedSize skips scaling the overlay to WidthPercent.
	FixedSize bool `gorm:"default:false" json:"fixed_size"`

	// Animated marks the overlay as an animated image (GIF/APNG), which
	// needs -ignore_loop 0 on the encoder input.
	Animated bool `gorm:"default:false" json:"animated"`
}

// Validate checks the watermark position.
func (w *Watermark) Validate() error {
	switch w.Position {
	case "", WatermarkTopLeft, WatermarkTopRight, WatermarkBottomLeft, WatermarkBottomRight:
		return nil
	}
	return ErrInvalidWatermarkPosition
}

// ChannelIcon describes the channel's guide icon.
type ChannelIcon struct {
	URL             string `gorm:"size:2048" json:"url,omitempty"`
	Width           int    `gorm:"default:0" json:"width,omitempty"`
	DurationSeconds int    `gorm:"default:0" json:"duration_seconds,omitempty"`
	Position        string `gorm:"size:20" json:"position,omitempty"`
}

// Channel represents a virtual broadcast channel: an ordered, looping lineup
// of programs anchored at StartTime and served as an always-on live stream.
type Channel struct {
	BaseModel

	// Number is the small integer used in stream URLs and M3U playlists.
	Number int `gorm:"not null;uniqueIndex" json:"number"`

	// Name is the human-readable channel name.
	Name string `gorm:"not null;size:512" json:"name"`

	// GroupTitle is the category shown in guides and playlists.
	GroupTitle string `gorm:"size:255" json:"group_title,omitempty"`

	// StartTime is the lineup anchor in epoch milliseconds. Fixed at channel
	// creation; the wall-clock position of the lineup is
	// (now - StartTime) mod Duration.
	StartTime int64 `gorm:"not null" json:"start_time"`

	// Duration is the total lineup length in milliseconds. The lineup loops
	// modulo this value, and the sum of lineup item durations must equal it.
	Duration int64 `gorm:"not null;default:0" json:"duration"`

	// Icon is the guide icon descriptor.
	Icon ChannelIcon `gorm:"embedded;embeddedPrefix:icon_" json:"icon"`

	// Watermark is the overlay burned into the output.
	Watermark Watermark `gorm:"embedded;embeddedPrefix:watermark_" json:"watermark"`

	// OfflineMode selects clip or picture behavior for offline gaps.
	OfflineMode OfflineMode `gorm:"size:10;default:'pic'" json:"offline_mode"`

	// OfflinePicture is the image looped in pic mode; empty uses the default.
	OfflinePicture string `gorm:"size:2048" json:"offline_picture,omitempty"`

	// OfflineSoundtrack is an optional audio URL looped under offline video.
	OfflineSoundtrack string `gorm:"size:2048" json:"offline_soundtrack,omitempty"`

	// FallbackClipID is the static fallback program played in clip mode when
	// the filler lottery returns nothing.
	FallbackClipID *ID `gorm:"type:varchar(36)" json:"fallback_clip_id,omitempty"`

	// TargetResolution overrides the global transcode resolution ("1920x1080").
	TargetResolution string `gorm:"size:20" json:"target_resolution,omitempty"`

	// VideoBitrate overrides the global video bitrate in kbps.
	VideoBitrate int `gorm:"default:0" json:"video_bitrate,omitempty"`

	// VideoBufSize overrides the global video buffer size in kbps.
	VideoBufSize int `gorm:"default:0" json:"video_buf_size,omitempty"`

	// Stealth hides the channel from guides, playlists and discovery.
	Stealth bool `gorm:"default:false" json:"stealth"`

	// DisableFillerOverlay suppresses the watermark on filler clips.
	DisableFillerOverlay bool `gorm:"default:false" json:"disable_filler_overlay"`

	// FillerRepeatCooldown is the per-clip repeat cooldown in milliseconds.
	FillerRepeatCooldown int64 `gorm:"default:1800000" json:"filler_repeat_cooldown"`

	// FillerCollections are the weighted filler show references.
	FillerCollections []FillerCollection `gorm:"foreignKey:ChannelID" json:"filler_collections,omitempty"`

	// Lineup is the ordered item sequence. Loaded on demand.
	Lineup []LineupItem `gorm:"foreignKey:ChannelID" json:"lineup,omitempty"`
}

// TableName returns the table name for Channel.
func (Channel) TableName() string {
	return "channels"
}

// Validate performs basic validation on the channel.
func (c *Channel) Validate() error {
	if c.Number <= 0 {
		return ErrChannelNumberRequired
	}
	if c.Name == "" {
		return ErrNameRequired
	}
	if c.StartTime <= 0 {
		return ErrStartTimeRequired
	}
	if c.Duration < 0 {
		return ErrNegativeChannelDuration
	}
	switch c.OfflineMode {
	case "", OfflineModeClip, OfflineModePic:
	default:
		return ErrInvalidOfflineMode
	}
	if c.FillerRepeatCooldown < 0 {
		return ErrNegativeCooldown
	}
	return c.Watermark.Validate()
}

// ValidateLineup checks the attached lineup: every item needs a positive
// duration and the durations must sum to the channel duration.
func (c *Channel) ValidateLineup() error {
	var total int64
	for i := range c.Lineup {
		if c.Lineup[i].DurationMs <= 0 {
			return ErrDurationNotPositive
		}
		total += c.Lineup[i].DurationMs
	}
	if total != c.Duration {
		return ErrLineupDurationMismatch
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the channel and generates its ID.
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}

// BeforeUpdate is a GORM hook that validates the channel before update.
func (c *Channel) BeforeUpdate(tx *gorm.DB) error {
	return c.Validate()
}
