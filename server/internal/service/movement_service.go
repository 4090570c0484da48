package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/navid-fn/skywatch/internal/models"
	"github.com/navid-fn/skywatch/internal/storage/models"
	"github.com/navid-fn/skywatch/server/internal/repository"
)

const (
	DefaultLatestLimit = 10
	MaxLatestLimit     = 500
)

var ErrInvalidMovementType = errors.New("invalid movement type")

type MovementsService struct {
	repo repository.MovementRepository
}

func NewMovementsService(repo repository.MovementRepository) *MovementsService {
	return &MovementsService{
		repo: repo,
	}
}

// GetLatestMovements clamps limit to [1, MaxLatestLimit]; zero means the default.
func (s *MovementsService) GetLatestMovements(ctx context.Context, limit int) ([]models.Movement, error) {
	switch {
	case limit <= 0:
		limit = DefaultLatestLimit
	case limit > MaxLatestLimit:
		limit = MaxLatestLimit
	}
	return s.repo.GetLatestMovements(ctx, limit)
}

// GetCount counts every stored movement, or only ARRIVAL or DEPARTURE.
func (s *MovementsService) GetCount(ctx context.Context, movementType string) (int64, error) {
	movementType = strings.ToUpper(movementType)
	switch domain.MovementType(movementType) {
	case "", domain.Arrival, domain.Departure:
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMovementType, movementType)
	}
	return s.repo.GetMovementsCount(ctx, movementType)
}

func (s *MovementsService) GetCountPerType(ctx context.Context) (map[string]int64, error) {
	return s.repo.GetMovementCountGroupByType(ctx)
}
