package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Challenge is a template: a fixed duration plus an ordered task list.
// Predefined templates are shared; custom ones are created by a single enrollment.
type Challenge struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Slug        *string    `json:"slug,omitempty" db:"slug"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Duration    int        `json:"duration" db:"duration"`
	Icon        string     `json:"icon" db:"icon"`
	Difficulty  Difficulty `json:"difficulty,omitempty" db:"difficulty"`
	IsCustom    bool       `json:"is_custom" db:"is_custom"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	Tasks       []Task     `json:"tasks"`
}

// TaskIDs returns the template's task ids in template order.
func (c *Challenge) TaskIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

type Task struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	DimensionID uuid.UUID `json:"dimension_id" db:"dimension_id"`
	Points      int       `json:"points" db:"points"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type ChallengeTask struct {
	ChallengeID uuid.UUID `json:"challenge_id" db:"challenge_id"`
	TaskID      uuid.UUID `json:"task_id" db:"task_id"`
	Position    int       `json:"position" db:"position"`
}

// UserChallenge is an enrollment. EndDate is exclusive: StartDate + Duration days.
type UserChallenge struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	UserID      uuid.UUID   `json:"user_id" db:"user_id"`
	ChallengeID uuid.UUID   `json:"challenge_id" db:"challenge_id"`
	TaskIDs     []uuid.UUID `json:"task_ids" db:"task_ids"`
	StartDate   time.Time   `json:"start_date" db:"start_date"`
	EndDate     time.Time   `json:"end_date" db:"end_date"`
	Progress    int         `json:"progress" db:"progress"`
	Completed   bool        `json:"completed" db:"completed"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	AbandonedAt *time.Time  `json:"abandoned_at,omitempty" db:"abandoned_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// Active reports whether the enrollment can still receive progress.
func (uc *UserChallenge) Active() bool {
	return !uc.Completed && uc.AbandonedAt == nil
}

type UserChallengeWithChallenge struct {
	UserChallenge
	Challenge *Challenge `json:"challenge"`
}

type ChallengeStatus struct {
	EnrollmentID    uuid.UUID `json:"enrollment_id"`
	ChallengeID     uuid.UUID `json:"challenge_id"`
	Progress        int       `json:"progress"`
	ScheduledTasks  int       `json:"scheduled_tasks"`
	CompletedTasks  int       `json:"completed_tasks"`
	DaysElapsed     int       `json:"days_elapsed"`
	DaysRemaining   int       `json:"days_remaining"`
	ReadyToComplete bool      `json:"ready_to_complete"`
}

type EnrollRequest struct {
	ChallengeID   string `json:"challenge_id" validate:"required,uuid"`
	SelectedTasks []int  `json:"selected_tasks" validate:"omitempty,dive,min=0"`
	NextDay       bool   `json:"next_day"`
}

type CustomTask struct {
	Name        string `json:"name" validate:"required,max=120"`
	DimensionID string `json:"dimension_id" validate:"required,uuid"`
}

type CustomChallengeRequest struct {
	Title       string       `json:"title" validate:"required,max=120"`
	Description string       `json:"description" validate:"max=1000"`
	Duration    int          `json:"duration" validate:"required,min=1,max=365"`
	Tasks       []CustomTask `json:"tasks" validate:"required,min=3,max=5,dive"`
	NextDay     bool         `json:"next_day"`
}

type EnrollResponse struct {
	Success      bool      `json:"success"`
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	ChallengeID  uuid.UUID `json:"challenge_id"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	DailyTasks   int       `json:"daily_tasks"`
}

type CompleteChallengeResponse struct {
	Success      bool      `json:"success"`
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	Level        int       `json:"level"`
}
