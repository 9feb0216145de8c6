// Package repository defines data access interfaces for castarr entities.
// All database access goes through these interfaces; lookups return
// (nil, nil) when the entity does not exist.
package repository

import (
	"context"

	"github.com/jmylchreest/castarr/internal/models"
)

// ChannelRepository defines operations for channel and lineup persistence.
type ChannelRepository interface {
	// Create creates a new channel.
	Create(ctx context.Context, channel *models.Channel) error
	// GetByID retrieves a channel by ID.
	GetByID(ctx context.Context, id models.ID) (*models.Channel, error)
	// GetByNumber retrieves a channel by its stream number.
	GetByNumber(ctx context.Context, number int) (*models.Channel, error)
	// GetAll retrieves all channels ordered by number. Stealth channels are
	// included only when includeStealth is set.
	GetAll(ctx context.Context, includeStealth bool) ([]*models.Channel, error)
	// Update updates an existing channel.
	Update(ctx context.Context, channel *models.Channel) error
	// Delete deletes a channel and its lineup.
	Delete(ctx context.Context, id models.ID) error
	// GetLineup retrieves the channel's lineup ordered by position, with
	// programs preloaded.
	GetLineup(ctx context.Context, channelID models.ID) ([]models.LineupItem, error)
	// ReplaceLineup atomically swaps the channel's lineup and updates the
	// channel duration to the summed item durations.
	ReplaceLineup(ctx context.Context, channelID models.ID, items []models.LineupItem) error
}

// ProgramRepository defines operations for program persistence.
type ProgramRepository interface {
	// Create creates a new program.
	Create(ctx context.Context, program *models.Program) error
	// GetByID retrieves a program by ID.
	GetByID(ctx context.Context, id models.ID) (*models.Program, error)
	// GetByKey retrieves a program by its composite source key.
	GetByKey(ctx context.Context, sourceType, externalSourceID, externalKey string) (*models.Program, error)
	// Upsert creates or updates a program keyed by its composite source key.
	Upsert(ctx context.Context, program *models.Program) error
	// GetAll retrieves all programs.
	GetAll(ctx context.Context) ([]*models.Program, error)
	// Delete deletes a program by ID.
	Delete(ctx context.Context, id models.ID) error
}

// FillerRepository defines operations for filler shows, clips and the
// channel collections referencing them.
type FillerRepository interface {
	// CreateShow creates a filler show, including any attached clips.
	CreateShow(ctx context.Context, show *models.FillerShow) error
	// GetShow retrieves a show with its clips preloaded.
	GetShow(ctx context.Context, id models.ID) (*models.FillerShow, error)
	// GetAllShows retrieves all shows with clips preloaded.
	GetAllShows(ctx context.Context) ([]*models.FillerShow, error)
	// DeleteShow deletes a show and its clips.
	DeleteShow(ctx context.Context, id models.ID) error
	// CreateClip adds a clip to a show.
	CreateClip(ctx context.Context, clip *models.FillerClip) error
	// GetClip retrieves a clip by ID.
	GetClip(ctx context.Context, id models.ID) (*models.FillerClip, error)
	// DeleteClip deletes a clip by ID.
	DeleteClip(ctx context.Context, id models.ID) error
	// GetCollections retrieves a channel's collections with shows and clips
	// preloaded.
	GetCollections(ctx context.Context, channelID models.ID) ([]models.FillerCollection, error)
	// SetCollections atomically replaces a channel's collections.
	SetCollections(ctx context.Context, channelID models.ID, collections []models.FillerCollection) error
}

// SettingsRepository defines operations for the encoder settings singleton.
type SettingsRepository interface {
	// Get retrieves the settings singleton.
	Get(ctx context.Context) (*models.FFmpegSettings, error)
	// Save creates or updates the settings singleton.
	Save(ctx context.Context, settings *models.FFmpegSettings) error
}

// PlaybackRepository defines operations for persisted playback records.
type PlaybackRepository interface {
	// UpsertBatch writes records, keeping the newest timestamp per key.
	UpsertBatch(ctx context.Context, records []models.PlaybackRecord) error
	// GetAll retrieves every record, for cache warm start.
	GetAll(ctx context.Context) ([]models.PlaybackRecord, error)
	// PruneOlderThan deletes records last played before cutoffMs and returns
	// how many were removed.
	PruneOlderThan(ctx context.Context, cutoffMs int64) (int64, error)
}
