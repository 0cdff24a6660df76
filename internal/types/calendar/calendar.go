package calendar

import "time"

type CalendarDay struct {
	Date           time.Time `json:"date" db:"date"`
	ScheduledTasks int       `json:"scheduled_tasks" db:"scheduled_tasks"`
	CompletedTasks int       `json:"completed_tasks" db:"completed_tasks"`
	DayCompleted   bool      `json:"day_completed"`
	IsToday        bool      `json:"is_today"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}
