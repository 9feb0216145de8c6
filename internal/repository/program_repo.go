package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jmylchreest/castarr/internal/models"
)

// programRepo implements ProgramRepository using GORM.
type programRepo struct {
	db *gorm.DB
}

// NewProgramRepository creates a new ProgramRepository.
func NewProgramRepository(db *gorm.DB) *programRepo {
	return &programRepo{db: db}
}

// Create creates a new program.
func (r *programRepo) Create(ctx context.Context, program *models.Program) error {
	if err := r.db.WithContext(ctx).Create(program).Error; err != nil {
		return fmt.Errorf("creating program: %w", err)
	}
	return nil
}

// GetByID retrieves a program by ID.
func (r *programRepo) GetByID(ctx context.Context, id models.ID) (*models.Program, error) {
	var program models.Program
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&program).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting program by ID: %w", err)
	}
	return &program, nil
}

// GetByKey retrieves a program by its composite source key.
func (r *programRepo) GetByKey(ctx context.Context, sourceType, externalSourceID, externalKey string) (*models.Program, error) {
	var program models.Program
	if err := r.db.WithContext(ctx).
		Where("source_type = ? AND external_source_id = ? AND external_key = ?",
			sourceType, externalSourceID, externalKey).
		First(&program).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting program by key: %w", err)
	}
	return &program, nil
}

// Upsert creates or updates a program keyed by its composite source key.
func (r *programRepo) Upsert(ctx context.Context, program *models.Program) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_type"}, {Name: "external_source_id"}, {Name: "external_key"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"type", "duration_ms", "title", "season", "episode", "year",
			"rating", "icon", "summary", "file_path", "updated_at",
		}),
	}).Create(program).Error; err != nil {
		return fmt.Errorf("upserting program: %w", err)
	}
	return nil
}

// GetAll retrieves all programs.
func (r *programRepo) GetAll(ctx context.Context) ([]*models.Program, error) {
	var programs []*models.Program
	if err := r.db.WithContext(ctx).Find(&programs).Error; err != nil {
		return nil, fmt.Errorf("getting programs: %w", err)
	}
	return programs, nil
}

// Delete deletes a program by ID.
func (r *programRepo) Delete(ctx context.Context, id models.ID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Program{}).Error; err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	return nil
}

var _ ProgramRepository = (*programRepo)(nil)
