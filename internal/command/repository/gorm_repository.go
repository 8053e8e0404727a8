package repository

import (
	"errors"
	"time"

	"voicecmd-backend/internal/command/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormRunRepository implements RunRepository using GORM
type gormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GORM-based RunRepository
func NewGormRunRepository(db *gorm.DB) RunRepository {
	return &gormRunRepository{db: db}
}

func (r *gormRunRepository) Create(run *domain.CommandRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now()
	}
	return r.db.Create(run).Error
}

func (r *gormRunRepository) FindByID(id string) (*domain.CommandRun, error) {
	var run domain.CommandRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *gormRunRepository) FindByUserID(userID string, limit, offset int) ([]*domain.CommandRun, int64, error) {
	var runs []*domain.CommandRun
	var total int64

	query := r.db.Model(&domain.CommandRun{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
