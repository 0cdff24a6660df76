package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"nafsAPI/internal/store"
	"nafsAPI/internal/types/dimension"
	"nafsAPI/internal/types/user"
)

const userColumns = `id, clerk_id, email, username, first_name, last_name, image_url,
	current_challenge_id, current_streak, longest_streak, last_active_date, level, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.CurrentChallengeID,
		&u.CurrentStreak,
		&u.LongestStreak,
		&u.LastActiveDate,
		&u.Level,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (t *pgTx) CreateUser(ctx context.Context, u *user.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at, updated_at
	`

	err := t.tx.QueryRow(ctx, query,
		u.ID,
		u.ClerkID,
		u.Email,
		u.Username,
		u.FirstName,
		u.LastName,
		u.ImageURL,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

func (t *pgTx) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (t *pgTx) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	return scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = $1`, clerkID))
}

func (t *pgTx) LockUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) UpdateProfile(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING ` + userColumns

	return scanUser(t.tx.QueryRow(ctx, query, clerkID, req.Username, req.FirstName, req.LastName, req.ImageURL))
}

func (t *pgTx) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result, err := t.tx.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *pgTx) UpdateStreak(ctx context.Context, id uuid.UUID, current, longest int, lastActive time.Time) error {
	query := `
	UPDATE users
	SET current_streak = $2, longest_streak = $3, last_active_date = $4, updated_at = NOW()
	WHERE id = $1
	`
	result, err := t.tx.Exec(ctx, query, id, current, longest, lastActive)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *pgTx) SetCurrentChallenge(ctx context.Context, id uuid.UUID, challengeID *uuid.UUID) error {
	result, err := t.tx.Exec(ctx, `UPDATE users SET current_challenge_id = $2, updated_at = NOW() WHERE id = $1`, id, challengeID)
	if err != nil {
		return fmt.Errorf("failed to set current challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *pgTx) IncrementLevel(ctx context.Context, id uuid.UUID) (int, error) {
	var level int
	err := t.tx.QueryRow(ctx, `UPDATE users SET level = level + 1, updated_at = NOW() WHERE id = $1 RETURNING level`, id).Scan(&level)
	if err != nil {
		return 0, translate(err)
	}
	return level, nil
}

func (t *pgTx) UpsertDimension(ctx context.Context, d *dimension.Dimension) error {
	query := `
	INSERT INTO dimensions (id, name, description, color, icon)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id)
	DO UPDATE SET name = $2, description = $3, color = $4, icon = $5
	`
	if _, err := t.tx.Exec(ctx, query, d.ID, d.Name, d.Description, d.Color, d.Icon); err != nil {
		return fmt.Errorf("failed to upsert dimension %s: %w", d.Name, translate(err))
	}
	return nil
}

func (t *pgTx) ListDimensions(ctx context.Context) ([]dimension.Dimension, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, description, color, icon FROM dimensions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dimensions: %w", err)
	}
	defer rows.Close()

	var dims []dimension.Dimension
	for rows.Next() {
		var d dimension.Dimension
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Color, &d.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan dimension: %w", err)
		}
		dims = append(dims, d)
	}
	return dims, rows.Err()
}

func (t *pgTx) GetDimension(ctx context.Context, id uuid.UUID) (*dimension.Dimension, error) {
	d := &dimension.Dimension{}
	err := t.tx.QueryRow(ctx, `SELECT id, name, description, color, icon FROM dimensions WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Description, &d.Color, &d.Icon)
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}

func (t *pgTx) CreateDimensionValues(ctx context.Context, userID uuid.UUID, dimensionIDs []uuid.UUID, baseline int) error {
	if len(dimensionIDs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(dimensionIDs))
	for i := range ids {
		ids[i] = uuid.New()
	}

	query := `
	INSERT INTO dimension_values (id, user_id, dimension_id, value)
	SELECT v.id, $2, v.dimension_id, $4
	FROM unnest($1::uuid[], $3::uuid[]) AS v(id, dimension_id)
	ON CONFLICT (user_id, dimension_id) DO NOTHING
	`
	if _, err := t.tx.Exec(ctx, query, ids, userID, dimensionIDs, baseline); err != nil {
		return fmt.Errorf("failed to create dimension values: %w", translate(err))
	}
	return nil
}

func (t *pgTx) IncrementDimensionValue(ctx context.Context, userID, dimensionID uuid.UUID, delta int) (int, error) {
	query := `
	UPDATE dimension_values
	SET value = value + $3, updated_at = NOW()
	WHERE user_id = $1 AND dimension_id = $2
	RETURNING value
	`
	var score int
	if err := t.tx.QueryRow(ctx, query, userID, dimensionID, delta).Scan(&score); err != nil {
		return 0, translate(err)
	}
	return score, nil
}

func (t *pgTx) ListDimensionValues(ctx context.Context, userID uuid.UUID) ([]dimension.DimensionValueWithDimension, error) {
	query := `
	SELECT
		dv.id,
		dv.user_id,
		dv.dimension_id,
		dv.value,
		dv.updated_at,
		d.id,
		d.name,
		d.description,
		d.color,
		d.icon
	FROM dimension_values dv
	INNER JOIN dimensions d ON d.id = dv.dimension_id
	WHERE dv.user_id = $1
	ORDER BY d.name
	`

	rows, err := t.tx.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dimension values: %w", err)
	}
	defer rows.Close()

	var values []dimension.DimensionValueWithDimension
	for rows.Next() {
		var v dimension.DimensionValueWithDimension
		err := rows.Scan(
			&v.ID,
			&v.UserID,
			&v.DimensionID,
			&v.Score,
			&v.UpdatedAt,
			&v.Dimension.ID,
			&v.Dimension.Name,
			&v.Dimension.Description,
			&v.Dimension.Color,
			&v.Dimension.Icon,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dimension value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
