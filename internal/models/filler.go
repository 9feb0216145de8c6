package models

import (
	"gorm.io/gorm"
)

// FillerShow owns an ordered set of filler clips used to pad offline gaps.
type FillerShow struct {
	BaseModel

	// Name is the human-readable show name.
	Name string `gorm:"not null;size:512" json:"name"`

	// Clips are the show's clips, ordered by position.
	Clips []FillerClip `gorm:"foreignKey:FillerShowID" json:"clips,omitempty"`
}

// TableName returns the table name for FillerShow.
func (FillerShow) TableName() string {
	return "filler_shows"
}

// Validate performs basic validation on the filler show.
func (s *FillerShow) Validate() error {
	if s.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the show and generates its ID.
func (s *FillerShow) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// FillerClip is a program-shaped short clip belonging to a filler show.
type FillerClip struct {
	BaseModel

	// FillerShowID is the owning show.
	FillerShowID ID `gorm:"type:varchar(36);not null;index" json:"filler_show_id"`

	// Position orders clips within the show.
	Position int `gorm:"not null;default:0" json:"position"`

	// DurationMs is the clip runtime in milliseconds.
	DurationMs int64 `gorm:"not null" json:"duration_ms"`

	Title string `gorm:"size:512" json:"title,omitempty"`
	Icon  string `gorm:"size:2048" json:"icon,omitempty"`

	// FilePath is the backing file or URL the encoder reads from.
	FilePath string `gorm:"size:4096" json:"file_path,omitempty"`
}

// TableName returns the table name for FillerClip.
func (FillerClip) TableName() string {
	return "filler_clips"
}

// Validate performs basic validation on the filler clip.
func (c *FillerClip) Validate() error {
	if c.FillerShowID.IsZero() {
		return ErrNameRequired
	}
	if c.DurationMs <= 0 {
		return ErrDurationNotPositive
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the clip and generates its ID.
func (c *FillerClip) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}

// FillerCollection is a weighted reference from a channel to a filler show
// with a per-channel selection cooldown.
type FillerCollection struct {
	BaseModel

	// ChannelID is the referencing channel.
	ChannelID ID `gorm:"type:varchar(36);not null;index:idx_filler_coll,unique" json:"channel_id"`

	// FillerShowID is the referenced show.
	FillerShowID ID `gorm:"type:varchar(36);not null;index:idx_filler_coll,unique" json:"filler_show_id"`

	// Weight biases the collection lottery; higher is picked more often.
	Weight int `gorm:"not null;default:1" json:"weight"`

	// CooldownMs is how long after a pick the collection is ineligible.
	CooldownMs int64 `gorm:"not null;default:0" json:"cooldown_ms"`

	// Show is the referenced filler show, preloaded for selection.
	Show *FillerShow `gorm:"foreignKey:FillerShowID" json:"show,omitempty"`
}

// TableName returns the table name for FillerCollection.
func (FillerCollection) TableName() string {
	return "filler_collections"
}

// Validate performs basic validation on the filler collection.
func (fc *FillerCollection) Validate() error {
	if fc.Weight <= 0 {
		return ErrWeightNotPositive
	}
	if fc.CooldownMs < 0 {
		return ErrNegativeCooldown
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the collection and generates its ID.
func (fc *FillerCollection) BeforeCreate(tx *gorm.DB) error {
	if err := fc.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return fc.Validate()
}
