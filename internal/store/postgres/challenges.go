package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"nafsAPI/internal/store"
	"nafsAPI/internal/types/challenge"
)

func (t *pgTx) UpsertChallenge(ctx context.Context, c *challenge.Challenge) error {
	query := `
	INSERT INTO challenges (id, slug, name, description, duration, icon, difficulty, is_custom, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id)
	DO UPDATE SET
		slug = $2,
		name = $3,
		description = $4,
		duration = $5,
		icon = $6,
		difficulty = $7
	RETURNING created_at
	`

	err := t.tx.QueryRow(ctx, query,
		c.ID,
		c.Slug,
		c.Name,
		c.Description,
		c.Duration,
		c.Icon,
		c.Difficulty,
		c.IsCustom,
		c.CreatedBy,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert challenge %s: %w", c.Name, translate(err))
	}

	taskQuery := `
	INSERT INTO tasks (id, name, dimension_id, points)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id)
	DO UPDATE SET name = $2, dimension_id = $3, points = $4
	RETURNING created_at
	`

	for i := range c.Tasks {
		task := &c.Tasks[i]
		if err := t.tx.QueryRow(ctx, taskQuery, task.ID, task.Name, task.DimensionID, task.Points).Scan(&task.CreatedAt); err != nil {
			return fmt.Errorf("failed to upsert task %s: %w", task.Name, translate(err))
		}
	}

	if _, err := t.tx.Exec(ctx, `DELETE FROM challenge_tasks WHERE challenge_id = $1`, c.ID); err != nil {
		return fmt.Errorf("failed to clear challenge tasks: %w", err)
	}

	batch := &pgx.Batch{}
	for i, task := range c.Tasks {
		batch.Queue(`INSERT INTO challenge_tasks (challenge_id, task_id, position) VALUES ($1, $2, $3)`, c.ID, task.ID, i)
	}
	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()

	for range c.Tasks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to link challenge task: %w", translate(err))
		}
	}
	return nil
}

const challengeColumns = `id, slug, name, description, duration, icon, difficulty, is_custom, created_by, created_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := row.Scan(
		&c.ID,
		&c.Slug,
		&c.Name,
		&c.Description,
		&c.Duration,
		&c.Icon,
		&c.Difficulty,
		&c.IsCustom,
		&c.CreatedBy,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (t *pgTx) challengeTasks(ctx context.Context, challengeID uuid.UUID) ([]challenge.Task, error) {
	query := `
	SELECT t.id, t.name, t.dimension_id, t.points, t.created_at
	FROM challenge_tasks ct
	INNER JOIN tasks t ON t.id = ct.task_id
	WHERE ct.challenge_id = $1
	ORDER BY ct.position
	`

	rows, err := t.tx.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge tasks: %w", err)
	}
	defer rows.Close()

	var tasks []challenge.Task
	for rows.Next() {
		var task challenge.Task
		if err := rows.Scan(&task.ID, &task.Name, &task.DimensionID, &task.Points, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (t *pgTx) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	c, err := scanChallenge(t.tx.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if c.Tasks, err = t.challengeTasks(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (t *pgTx) ListPredefinedChallenges(ctx context.Context) ([]challenge.Challenge, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE NOT is_custom ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	var challenges []challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, *c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	// tasks are loaded after the cursor is closed; a pgx.Tx runs one query at a time
	for i := range challenges {
		if challenges[i].Tasks, err = t.challengeTasks(ctx, challenges[i].ID); err != nil {
			return nil, err
		}
	}
	return challenges, nil
}

const enrollmentColumns = `id, user_id, challenge_id, task_ids, start_date, end_date,
	progress, completed, completed_at, abandoned_at, created_at`

func scanEnrollment(row pgx.Row) (*challenge.UserChallenge, error) {
	uc := &challenge.UserChallenge{}
	err := row.Scan(
		&uc.ID,
		&uc.UserID,
		&uc.ChallengeID,
		&uc.TaskIDs,
		&uc.StartDate,
		&uc.EndDate,
		&uc.Progress,
		&uc.Completed,
		&uc.CompletedAt,
		&uc.AbandonedAt,
		&uc.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return uc, nil
}

func (t *pgTx) CreateUserChallenge(ctx context.Context, uc *challenge.UserChallenge) error {
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}

	query := `
	INSERT INTO user_challenges (id, user_id, challenge_id, task_ids, start_date, end_date, progress)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at
	`

	err := t.tx.QueryRow(ctx, query,
		uc.ID,
		uc.UserID,
		uc.ChallengeID,
		uc.TaskIDs,
		uc.StartDate,
		uc.EndDate,
		uc.Progress,
	).Scan(&uc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user challenge: %w", translate(err))
	}
	return nil
}

func (t *pgTx) GetUserChallenge(ctx context.Context, id uuid.UUID) (*challenge.UserChallenge, error) {
	return scanEnrollment(t.tx.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM user_challenges WHERE id = $1`, id))
}

func (t *pgTx) GetActiveUserChallenge(ctx context.Context, userID uuid.UUID) (*challenge.UserChallenge, error) {
	query := `SELECT ` + enrollmentColumns + `
	FROM user_challenges
	WHERE user_id = $1 AND NOT completed AND abandoned_at IS NULL
	`
	return scanEnrollment(t.tx.QueryRow(ctx, query, userID))
}

func (t *pgTx) execEnrollment(ctx context.Context, query string, args ...any) error {
	result, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user challenge: %w", translate(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *pgTx) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	return t.execEnrollment(ctx, `UPDATE user_challenges SET progress = $2 WHERE id = $1`, id, progress)
}

func (t *pgTx) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return t.execEnrollment(ctx, `UPDATE user_challenges SET completed = TRUE, progress = 100, completed_at = $2 WHERE id = $1`, id, at)
}

func (t *pgTx) MarkAbandoned(ctx context.Context, id uuid.UUID, at time.Time) error {
	return t.execEnrollment(ctx, `UPDATE user_challenges SET abandoned_at = $2 WHERE id = $1`, id, at)
}

func (t *pgTx) CountProgress(ctx context.Context, uc *challenge.UserChallenge) (int, int, error) {
	query := `
	SELECT
		COUNT(ct.id) AS completed,
		COUNT(dt.id) AS total
	FROM daily_tasks dt
	LEFT JOIN completed_tasks ct ON ct.daily_task_id = dt.id
	WHERE dt.user_id = $1
		AND dt.task_id = ANY($2::uuid[])
		AND dt.date >= $3
		AND dt.date < $4
	`

	var completed, total int
	err := t.tx.QueryRow(ctx, query, uc.UserID, uc.TaskIDs, uc.StartDate, uc.EndDate).Scan(&completed, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count progress: %w", err)
	}
	return completed, total, nil
}
