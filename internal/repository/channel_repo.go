package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jmylchreest/castarr/internal/models"
)

// channelRepo implements ChannelRepository using GORM.
type channelRepo struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(db *gorm.DB) *channelRepo {
	return &channelRepo{db: db}
}

// Create creates a new channel.
func (r *channelRepo) Create(ctx context.Context, channel *models.Channel) error {
	if err := r.db.WithContext(ctx).Create(channel).Error; err != nil {
		return fmt.Errorf("creating channel: %w", err)
	}
	return nil
}

// GetByID retrieves a channel by ID.
func (r *channelRepo) GetByID(ctx context.Context, id models.ID) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting channel by ID: %w", err)
	}
	return &channel, nil
}

// GetByNumber retrieves a channel by its stream number.
func (r *channelRepo) GetByNumber(ctx context.Context, number int) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting channel by number: %w", err)
	}
	return &channel, nil
}

// GetAll retrieves all channels ordered by number.
func (r *channelRepo) GetAll(ctx context.Context, includeStealth bool) ([]*models.Channel, error) {
	var channels []*models.Channel
	q := r.db.WithContext(ctx).Order("number ASC")
	if !includeStealth {
		q = q.Where("stealth = ?", false)
	}
	if err := q.Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting channels: %w", err)
	}
	return channels, nil
}

// Update updates an existing channel.
func (r *channelRepo) Update(ctx context.Context, channel *models.Channel) error {
	if err := r.db.WithContext(ctx).Save(channel).Error; err != nil {
		return fmt.Errorf("updating channel: %w", err)
	}
	return nil
}

// Delete deletes a channel and its lineup.
func (r *channelRepo) Delete(ctx context.Context, id models.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", id).Delete(&models.LineupItem{}).Error; err != nil {
			return fmt.Errorf("deleting lineup: %w", err)
		}
		if err := tx.Where("channel_id = ?", id).Delete(&models.FillerCollection{}).Error; err != nil {
			return fmt.Errorf("deleting filler collections: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Channel{}).Error; err != nil {
			return fmt.Errorf("deleting channel: %w", err)
		}
		return nil
	})
}

// GetLineup retrieves the channel's lineup ordered by position.
func (r *channelRepo) GetLineup(ctx context.Context, channelID models.ID) ([]models.LineupItem, error) {
	var items []models.LineupItem
	if err := r.db.WithContext(ctx).
		Preload("Program").
		Where("channel_id = ?", channelID).
		Order("position ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("getting lineup: %w", err)
	}
	return items, nil
}

// ReplaceLineup atomically swaps the channel's lineup and keeps the channel
// duration equal to the summed item durations.
func (r *channelRepo) ReplaceLineup(ctx context.Context, channelID models.ID, items []models.LineupItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", channelID).Delete(&models.LineupItem{}).Error; err != nil {
			return fmt.Errorf("clearing lineup: %w", err)
		}

		var total int64
		for i := range items {
			items[i].ChannelID = channelID
			items[i].Position = i
			total += items[i].DurationMs
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("creating lineup: %w", err)
			}
		}

		// UpdateColumn skips the channel validation hooks, which need the
		// full record.
		if err := tx.Model(&models.Channel{}).
			Where("id = ?", channelID).
			UpdateColumn("duration", total).Error; err != nil {
			return fmt.Errorf("updating channel duration: %w", err)
		}
		return nil
	})
}

var _ ChannelRepository = (*channelRepo)(nil)
