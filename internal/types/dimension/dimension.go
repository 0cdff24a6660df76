package dimension

import (
	"time"

	"github.com/google/uuid"
)

type Dimension struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Color       string    `json:"color" db:"color"`
	Icon        string    `json:"icon" db:"icon"`
}

// DimensionValue is the cumulative score a user holds for one dimension.
// Score is a raw counter and is never clamped in storage.
type DimensionValue struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	DimensionID uuid.UUID `json:"dimension_id" db:"dimension_id"`
	Score       int       `json:"score" db:"value"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type DimensionValueWithDimension struct {
	DimensionValue
	Dimension Dimension `json:"dimension"`
	// Display is min(score, 100) / 100, for radar charts.
	Display float64 `json:"display"`
}
