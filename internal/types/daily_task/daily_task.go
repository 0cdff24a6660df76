package daily_task

import (
	"time"

	"github.com/google/uuid"
)

// DailyTask is one scheduled (user, task, date) instance. Date is a UTC midnight.
type DailyTask struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	TaskID    uuid.UUID `json:"task_id" db:"task_id"`
	Date      time.Time `json:"date" db:"date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CompletedTask struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	DailyTaskID uuid.UUID `json:"daily_task_id" db:"daily_task_id"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// DailyTaskWithStatus joins a daily task with its task definition and completion.
type DailyTaskWithStatus struct {
	DailyTask
	TaskName    string     `json:"task_name" db:"task_name"`
	DimensionID uuid.UUID  `json:"dimension_id" db:"dimension_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

type CompleteTaskResponse struct {
	Success         bool   `json:"success"`
	DailyTaskID     string `json:"daily_task_id"`
	DimensionScore  int    `json:"dimension_score"`
	Progress        *int   `json:"progress,omitempty"`
	ReadyToComplete bool   `json:"ready_to_complete"`
	DayCompleted    bool   `json:"day_completed"`
	CurrentStreak   int    `json:"current_streak"`
}
