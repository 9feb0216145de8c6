package migrations

import (
	"gorm.io/gorm"

	"github.com/jmylchreest/castarr/internal/models"
)

// AllMigrations returns all registered migrations in order.
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
		migration002DefaultSettings(),
	}
}

// migration001Schema creates all tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create all database tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.Program{},
				&models.Channel{},
				&models.LineupItem{},
				&models.FillerShow{},
				&models.FillerClip{},
				&models.FillerCollection{},
				&models.FFmpegSettings{},
				&models.PlaybackRecord{},
			)
		},
		Down: func(tx *gorm.DB) error {
			tables := []string{
				"playback_records",
				"ffmpeg_settings",
				"filler_collections",
				"filler_clips",
				"filler_shows",
				"lineup_items",
				"channels",
				"programs",
			}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

// migration002DefaultSettings seeds the encoder settings singleton so a fresh
// install can stream without touching the settings API first.
func migration002DefaultSettings() Migration {
	return Migration{
		Version:     "002",
		Description: "Seed default encoder settings",
		Up: func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.FFmpegSettings{}).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
			return tx.Create(models.DefaultFFmpegSettings()).Error
		},
		Down: func(tx *gorm.DB) error {
			return tx.Where("1 = 1").Delete(&models.FFmpegSettings{}).Error
		},
	}
}
