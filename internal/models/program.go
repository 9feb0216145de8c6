package models

import (
	"gorm.io/gorm"
)

// ProgramType classifies a content program.
type ProgramType string

// Program type constants.
const (
	ProgramMovie   ProgramType = "movie"
	ProgramEpisode ProgramType = "episode"
	ProgramTrack   ProgramType = "track"
)

// Program is a content item furnished by an upstream media source. It is
// uniquely keyed by (SourceType, ExternalSourceID, ExternalKey) across all
// programs; lineup items reference it by ID.
type Program struct {
	BaseModel

	// Type classifies the program.
	Type ProgramType `gorm:"not null;size:10" json:"type"`

	// SourceType names the upstream media source kind (e.g. "plex", "local").
	SourceType string `gorm:"not null;size:50;uniqueIndex:idx_program_key" json:"source_type"`

	// ExternalSourceID identifies the upstream server instance.
	ExternalSourceID string `gorm:"not null;size:255;uniqueIndex:idx_program_key" json:"external_source_id"`

	// ExternalKey identifies the item within the upstream source.
	ExternalKey string `gorm:"not null;size:255;uniqueIndex:idx_program_key" json:"external_key"`

	// DurationMs is the program runtime in milliseconds.
	DurationMs int64 `gorm:"not null" json:"duration_ms"`

	Title   string `gorm:"size:512" json:"title,omitempty"`
	Season  int    `gorm:"default:0" json:"season,omitempty"`
	Episode int    `gorm:"default:0" json:"episode,omitempty"`
	Year    int    `gorm:"default:0" json:"year,omitempty"`
	Rating  string `gorm:"size:20" json:"rating,omitempty"`
	Icon    string `gorm:"size:2048" json:"icon,omitempty"`
	Summary string `gorm:"type:text" json:"summary,omitempty"`

	// FilePath is the backing file or URL the encoder reads from.
	FilePath string `gorm:"size:4096" json:"file_path,omitempty"`
}

// TableName returns the table name for Program.
func (Program) TableName() string {
	return "programs"
}

// Key returns the unique composite key of the program.
func (p *Program) Key() string {
	return p.SourceType + "|" + p.ExternalSourceID + "|" + p.ExternalKey
}

// Validate performs basic validation on the program.
func (p *Program) Validate() error {
	switch p.Type {
	case ProgramMovie, ProgramEpisode, ProgramTrack:
	default:
		return ErrInvalidProgramType
	}
	if p.SourceType == "" || p.ExternalSourceID == "" || p.ExternalKey == "" {
		return ErrExternalKeyRequired
	}
	if p.DurationMs <= 0 {
		return ErrDurationNotPositive
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the program and generates its ID.
func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return p.Validate()
}
