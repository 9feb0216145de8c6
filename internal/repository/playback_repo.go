package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jmylchreest/castarr/internal/models"
)

// playbackRepo implements PlaybackRepository using GORM.
type playbackRepo struct {
	db *gorm.DB
}

// NewPlaybackRepository creates a new PlaybackRepository.
func NewPlaybackRepository(db *gorm.DB) *playbackRepo {
	return &playbackRepo{db: db}
}

// UpsertBatch writes records keyed by (channel, kind, key).
func (r *playbackRepo) UpsertBatch(ctx context.Context, records []models.PlaybackRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "channel_number"}, {Name: "kind"}, {Name: "key"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"last_played_at", "updated_at"}),
	}).CreateInBatches(&records, 200).Error; err != nil {
		return fmt.Errorf("upserting playback records: %w", err)
	}
	return nil
}

// GetAll retrieves every record, for cache warm start.
func (r *playbackRepo) GetAll(ctx context.Context) ([]models.PlaybackRecord, error) {
	var records []models.PlaybackRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("getting playback records: %w", err)
	}
	return records, nil
}

// PruneOlderThan deletes records last played before cutoffMs.
func (r *playbackRepo) PruneOlderThan(ctx context.Context, cutoffMs int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("last_played_at < ?", cutoffMs).
		Delete(&models.PlaybackRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning playback records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

var _ PlaybackRepository = (*playbackRepo)(nil)
