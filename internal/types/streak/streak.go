package streak

import "time"

// Streak is the per-user streak state stored on the users row.
type Streak struct {
	CurrentStreak  int        `json:"current_streak" db:"current_streak"`
	LongestStreak  int        `json:"longest_streak" db:"longest_streak"`
	LastActiveDate *time.Time `json:"last_active_date" db:"last_active_date"`
}

type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeStarted   Outcome = "started"
	OutcomeContinued Outcome = "continued"
	OutcomeReset     Outcome = "reset"
)

type CompleteDayResponse struct {
	Success   bool    `json:"success"`
	NewStreak int     `json:"new_streak"`
	Longest   int     `json:"longest_streak"`
	Outcome   Outcome `json:"outcome"`
}
