package services

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nafs_tasks_completed_total",
			Help: "Daily task instances completed",
		},
	)
	duplicateCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nafs_duplicate_completions_total",
			Help: "Completion attempts on an already completed task",
		},
	)
	dailyTasksScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nafs_daily_tasks_scheduled_total",
			Help: "Daily task instances inserted",
		},
	)
	enrollmentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nafs_enrollments_total",
			Help: "Challenge enrollments by kind",
		},
		[]string{"kind"},
	)
	challengesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nafs_challenges_finished_total",
			Help: "Enrollments that left the active state",
		},
		[]string{"outcome"},
	)
	streakTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nafs_streak_transitions_total",
			Help: "Streak state machine transitions",
		},
		[]string{"outcome"},
	)
)

// InitMetrics registers the domain metrics. Call this from main.go
func InitMetrics() {
	prometheus.MustRegister(
		tasksCompleted,
		duplicateCompletions,
		dailyTasksScheduled,
		enrollmentsCreated,
		challengesFinished,
		streakTransitions,
	)
}
