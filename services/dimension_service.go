package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nafsAPI/internal/day"
	"nafsAPI/internal/store"
	"nafsAPI/internal/types/dimension"
)

// scoreUnit is what one completion adds to its dimension.
const scoreUnit = 1

type DimensionService struct {
	base
	baseline int
}

func NewDimensionService(st store.Store, baseline int, clock day.Clock, log *zap.Logger) *DimensionService {
	return &DimensionService{base: newBase(st, clock, log), baseline: baseline}
}

// setup creates one baseline row per catalog dimension. Existing rows are kept.
func (s *DimensionService) setup(ctx context.Context, tx store.Tx, userID uuid.UUID) error {
	dims, err := tx.ListDimensions(ctx)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(dims))
	for _, d := range dims {
		ids = append(ids, d.ID)
	}
	if err := tx.CreateDimensionValues(ctx, userID, ids, s.baseline); err != nil {
		return fmt.Errorf("failed to create dimension values: %w", err)
	}
	return nil
}

// apply adds one unit to the user's score for dimensionID and returns the new score.
func (s *DimensionService) apply(ctx context.Context, tx store.Tx, userID, dimensionID uuid.UUID) (int, error) {
	score, err := tx.IncrementDimensionValue(ctx, userID, dimensionID, scoreUnit)
	if err == nil {
		return score, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("failed to update dimension: %w", err)
	}

	// dimension added to the catalog after the account was set up
	if err := tx.CreateDimensionValues(ctx, userID, []uuid.UUID{dimensionID}, s.baseline); err != nil {
		return 0, fmt.Errorf("failed to create dimension value: %w", err)
	}
	score, err = tx.IncrementDimensionValue(ctx, userID, dimensionID, scoreUnit)
	if err != nil {
		return 0, fmt.Errorf("failed to update dimension: %w", err)
	}
	return score, nil
}

// Display scales a raw score to the 0..1 range used by radar charts.
func Display(score int) float64 {
	if score <= 0 {
		return 0
	}
	if score > 100 {
		score = 100
	}
	return float64(score) / 100
}

func (s *DimensionService) ListDimensions(ctx context.Context) ([]dimension.Dimension, error) {
	var dims []dimension.Dimension
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		dims, err = tx.ListDimensions(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dims, nil
}

func (s *DimensionService) GetUserDimensions(ctx context.Context, userID uuid.UUID) ([]dimension.DimensionValueWithDimension, error) {
	var values []dimension.DimensionValueWithDimension
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		values, err = tx.ListDimensionValues(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for i := range values {
		values[i].Display = Display(values[i].Score)
	}
	return values, nil
}
