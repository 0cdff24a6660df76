package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"nafsAPI/internal/store"
	"nafsAPI/internal/types/daily_task"
)

func (t *pgTx) InsertDailyTasks(ctx context.Context, tasks []daily_task.DailyTask) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(tasks))
	userIDs := make([]uuid.UUID, len(tasks))
	taskIDs := make([]uuid.UUID, len(tasks))
	dates := make([]time.Time, len(tasks))
	for i, dt := range tasks {
		if dt.ID == uuid.Nil {
			dt.ID = uuid.New()
		}
		ids[i] = dt.ID
		userIDs[i] = dt.UserID
		taskIDs[i] = dt.TaskID
		dates[i] = dt.Date
	}

	query := `
	INSERT INTO daily_tasks (id, user_id, task_id, date)
	SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::date[])
	ON CONFLICT (user_id, task_id, date) DO NOTHING
	`

	result, err := t.tx.Exec(ctx, query, ids, userIDs, taskIDs, dates)
	if err != nil {
		return 0, fmt.Errorf("failed to insert daily tasks: %w", translate(err))
	}
	return int(result.RowsAffected()), nil
}

const dailyTaskSelect = `
	SELECT
		dt.id,
		dt.user_id,
		dt.task_id,
		dt.date,
		dt.created_at,
		t.name,
		t.dimension_id,
		ct.completed_at
	FROM daily_tasks dt
	INNER JOIN tasks t ON t.id = dt.task_id
	LEFT JOIN completed_tasks ct ON ct.daily_task_id = dt.id
`

func scanDailyTask(row pgx.Row) (*daily_task.DailyTaskWithStatus, error) {
	dt := &daily_task.DailyTaskWithStatus{}
	err := row.Scan(
		&dt.ID,
		&dt.UserID,
		&dt.TaskID,
		&dt.Date,
		&dt.CreatedAt,
		&dt.TaskName,
		&dt.DimensionID,
		&dt.CompletedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	dt.Completed = dt.CompletedAt != nil
	return dt, nil
}

func (t *pgTx) GetDailyTask(ctx context.Context, id uuid.UUID) (*daily_task.DailyTaskWithStatus, error) {
	return scanDailyTask(t.tx.QueryRow(ctx, dailyTaskSelect+` WHERE dt.id = $1`, id))
}

func (t *pgTx) ListDailyTasks(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]daily_task.DailyTaskWithStatus, error) {
	query := dailyTaskSelect + `
	WHERE dt.user_id = $1 AND dt.date >= $2 AND dt.date < $3
	ORDER BY dt.date, t.name
	`

	rows, err := t.tx.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily tasks: %w", err)
	}
	defer rows.Close()

	var tasks []daily_task.DailyTaskWithStatus
	for rows.Next() {
		dt, err := scanDailyTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily task: %w", err)
		}
		tasks = append(tasks, *dt)
	}
	return tasks, rows.Err()
}

func (t *pgTx) LatestScheduledDay(ctx context.Context, userID uuid.UUID, before time.Time) (time.Time, error) {
	var latest *time.Time
	err := t.tx.QueryRow(ctx, `SELECT MAX(date) FROM daily_tasks WHERE user_id = $1 AND date < $2`, userID, before).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to find latest scheduled day: %w", err)
	}
	if latest == nil {
		return time.Time{}, store.ErrNotFound
	}
	return latest.UTC(), nil
}

func (t *pgTx) InsertCompletion(ctx context.Context, c *daily_task.CompletedTask) (bool, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
	INSERT INTO completed_tasks (id, user_id, daily_task_id, completed_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id, daily_task_id) DO NOTHING
	`

	result, err := t.tx.Exec(ctx, query, c.ID, c.UserID, c.DailyTaskID, c.CompletedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert completion: %w", translate(err))
	}
	return result.RowsAffected() == 1, nil
}
