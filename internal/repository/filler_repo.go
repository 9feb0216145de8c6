package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jmylchreest/castarr/internal/models"
)

// fillerRepo implements FillerRepository using GORM.
type fillerRepo struct {
	db *gorm.DB
}

// NewFillerRepository creates a new FillerRepository.
func NewFillerRepository(db *gorm.DB) *fillerRepo {
	return &fillerRepo{db: db}
}

// CreateShow creates a filler show, including any attached clips.
func (r *fillerRepo) CreateShow(ctx context.Context, show *models.FillerShow) error {
	if err := r.db.WithContext(ctx).Create(show).Error; err != nil {
		return fmt.Errorf("creating filler show: %w", err)
	}
	return nil
}

// GetShow retrieves a show with its clips preloaded.
func (r *fillerRepo) GetShow(ctx context.Context, id models.ID) (*models.FillerShow, error) {
	var show models.FillerShow
	if err := r.db.WithContext(ctx).
		Preload("Clips", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&show).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting filler show: %w", err)
	}
	return &show, nil
}

// GetAllShows retrieves all shows with clips preloaded.
func (r *fillerRepo) GetAllShows(ctx context.Context) ([]*models.FillerShow, error) {
	var shows []*models.FillerShow
	if err := r.db.WithContext(ctx).
		Preload("Clips", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("name ASC").
		Find(&shows).Error; err != nil {
		return nil, fmt.Errorf("getting filler shows: %w", err)
	}
	return shows, nil
}

// DeleteShow deletes a show, its clips and any collections referencing it.
func (r *fillerRepo) DeleteShow(ctx context.Context, id models.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("filler_show_id = ?", id).Delete(&models.FillerCollection{}).Error; err != nil {
			return fmt.Errorf("deleting collections: %w", err)
		}
		if err := tx.Where("filler_show_id = ?", id).Delete(&models.FillerClip{}).Error; err != nil {
			return fmt.Errorf("deleting clips: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.FillerShow{}).Error; err != nil {
			return fmt.Errorf("deleting show: %w", err)
		}
		return nil
	})
}

// CreateClip adds a clip to a show.
func (r *fillerRepo) CreateClip(ctx context.Context, clip *models.FillerClip) error {
	if err := r.db.WithContext(ctx).Create(clip).Error; err != nil {
		return fmt.Errorf("creating filler clip: %w", err)
	}
	return nil
}

// GetClip retrieves a clip by ID.
func (r *fillerRepo) GetClip(ctx context.Context, id models.ID) (*models.FillerClip, error) {
	var clip models.FillerClip
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&clip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting filler clip: %w", err)
	}
	return &clip, nil
}

// DeleteClip deletes a clip by ID.
func (r *fillerRepo) DeleteClip(ctx context.Context, id models.ID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FillerClip{}).Error; err != nil {
		return fmt.Errorf("deleting filler clip: %w", err)
	}
	return nil
}

// GetCollections retrieves a channel's collections with shows and clips
// preloaded, ready for the filler lottery.
func (r *fillerRepo) GetCollections(ctx context.Context, channelID models.ID) ([]models.FillerCollection, error) {
	var collections []models.FillerCollection
	if err := r.db.WithContext(ctx).
		Preload("Show").
		Preload("Show.Clips", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("channel_id = ?", channelID).
		Find(&collections).Error; err != nil {
		return nil, fmt.Errorf("getting filler collections: %w", err)
	}
	return collections, nil
}

// SetCollections atomically replaces a channel's collections.
func (r *fillerRepo) SetCollections(ctx context.Context, channelID models.ID, collections []models.FillerCollection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", channelID).Delete(&models.FillerCollection{}).Error; err != nil {
			return fmt.Errorf("clearing collections: %w", err)
		}
		for i := range collections {
			collections[i].ChannelID = channelID
			collections[i].Show = nil
		}
		if len(collections) > 0 {
			if err := tx.Create(&collections).Error; err != nil {
				return fmt.Errorf("creating collections: %w", err)
			}
		}
		return nil
	})
}

var _ FillerRepository = (*fillerRepo)(nil)
