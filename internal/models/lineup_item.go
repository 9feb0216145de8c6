package models

import (
	"gorm.io/gorm"
)

// LineupItemType discriminates lineup item records.
type LineupItemType string

// Lineup item type constants.
const (
	// LineupContent plays a program.
	LineupContent LineupItemType = "content"
	// LineupRedirect delegates playback to another channel for the item's
	// duration.
	LineupRedirect LineupItemType = "redirect"
	// LineupOffline is a gap filled by the filler picker or an offline screen.
	LineupOffline LineupItemType = "offline"
)

// LineupItem is one entry in a channel's ordered, looping schedule.
type LineupItem struct {
	BaseModel

	// ChannelID is the owning channel.
	ChannelID ID `gorm:"type:varchar(36);not null;index:idx_lineup_channel_pos,unique" json:"channel_id"`

	// Position orders items within the lineup, starting at 0.
	Position int `gorm:"not null;index:idx_lineup_channel_pos,unique" json:"position"`

	// Type discriminates the record.
	Type LineupItemType `gorm:"not null;size:10" json:"type"`

	// ProgramID references the program for content items.
	ProgramID *ID `gorm:"type:varchar(36)" json:"program_id,omitempty"`

	// RedirectChannelID references the target channel for redirect items.
	RedirectChannelID *ID `gorm:"type:varchar(36)" json:"redirect_channel_id,omitempty"`

	// DurationMs is how long the item occupies in the lineup.
	DurationMs int64 `gorm:"not null" json:"duration_ms"`

	// Program is the resolved content program, preloaded with the lineup.
	Program *Program `gorm:"foreignKey:ProgramID" json:"program,omitempty"`
}

// TableName returns the table name for LineupItem.
func (LineupItem) TableName() string {
	return "lineup_items"
}

// Validate performs basic validation on the lineup item.
func (i *LineupItem) Validate() error {
	if i.ChannelID.IsZero() {
		return ErrChannelNumberRequired
	}
	if i.DurationMs <= 0 {
		return ErrDurationNotPositive
	}
	switch i.Type {
	case LineupContent:
		if i.ProgramID == nil || i.ProgramID.IsZero() {
			return ErrProgramIDRequired
		}
	case LineupRedirect:
		if i.RedirectChannelID == nil || i.RedirectChannelID.IsZero() {
			return ErrRedirectChannelRequired
		}
	case LineupOffline:
	default:
		return ErrInvalidLineupItemType
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the item and generates its ID.
func (i *LineupItem) BeforeCreate(tx *gorm.DB) error {
	if err := i.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return i.Validate()
}
