package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/navid-fn/skywatch/internal/storage/models"
)

type MovementRepository interface {
	GetLatestMovements(ctx context.Context, limit int) ([]models.Movement, error)
	GetMovementsCount(ctx context.Context, movementType string) (int64, error)
	GetMovementCountGroupByType(ctx context.Context) (map[string]int64, error)
}

type gormMovementRepository struct {
	db *gorm.DB
}

func NewGormMovementRepository(db *gorm.DB) MovementRepository {
	return &gormMovementRepository{db: db}
}

func (r *gormMovementRepository) GetLatestMovements(ctx context.Context, limit int) ([]models.Movement, error) {
	var movements []models.Movement
	err := r.db.WithContext(ctx).Order("capture_time desc").Limit(limit).Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *gormMovementRepository) GetMovementsCount(ctx context.Context, movementType string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Movement{})
	if movementType != "" {
		query = query.Where("movement_type = ?", movementType)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *gormMovementRepository) GetMovementCountGroupByType(ctx context.Context) (map[string]int64, error) {
	type typeCount struct {
		MovementType string
		Count        int64
	}
	var rows []typeCount
	err := r.db.WithContext(ctx).Model(&models.Movement{}).
		Select("movement_type, count(*) as count").
		Group("movement_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.MovementType] = row.Count
	}
	return result, nil
}
