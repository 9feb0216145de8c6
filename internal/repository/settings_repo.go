package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jmylchreest/castarr/internal/models"
)

// settingsRepo implements SettingsRepository using GORM. The encoder settings
// are a singleton row; Save updates the existing row when one exists.
type settingsRepo struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *gorm.DB) *settingsRepo {
	return &settingsRepo{db: db}
}

// Get retrieves the settings singleton.
func (r *settingsRepo) Get(ctx context.Context) (*models.FFmpegSettings, error) {
	var settings models.FFmpegSettings
	if err := r.db.WithContext(ctx).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting encoder settings: %w", err)
	}
	return &settings, nil
}

// Save creates or updates the settings singleton.
func (r *settingsRepo) Save(ctx context.Context, settings *models.FFmpegSettings) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FFmpegSettings
		err := tx.First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(settings).Error; err != nil {
				return fmt.Errorf("creating encoder settings: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("loading encoder settings: %w", err)
		default:
			settings.ID = existing.ID
			if err := tx.Save(settings).Error; err != nil {
				return fmt.Errorf("updating encoder settings: %w", err)
			}
			return nil
		}
	})
}

var _ SettingsRepository = (*settingsRepo)(nil)
