package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nafsAPI/internal/apperr"
	"nafsAPI/internal/day"
	"nafsAPI/internal/store"
	"nafsAPI/internal/types/challenge"
	"nafsAPI/internal/types/daily_task"
)

type ScheduleService struct {
	base
}

func NewScheduleService(st store.Store, clock day.Clock, log *zap.Logger) *ScheduleService {
	return &ScheduleService{base: newBase(st, clock, log)}
}

// BuildSchedule returns one instance per (task, day) for every day in [start, start+days).
func BuildSchedule(userID uuid.UUID, taskIDs []uuid.UUID, start time.Time, days int) []daily_task.DailyTask {
	dates := day.Range(start, days)
	rows := make([]daily_task.DailyTask, 0, len(dates)*len(taskIDs))
	for _, d := range dates {
		for _, taskID := range taskIDs {
			rows = append(rows, daily_task.DailyTask{
				UserID: userID,
				TaskID: taskID,
				Date:   d,
			})
		}
	}
	return rows
}

// schedule materializes the whole enrollment window. Rows that already exist are skipped.
func (s *ScheduleService) schedule(ctx context.Context, tx store.Tx, uc *challenge.UserChallenge) (int, error) {
	days := day.Between(uc.StartDate, uc.EndDate)
	inserted, err := tx.InsertDailyTasks(ctx, BuildSchedule(uc.UserID, uc.TaskIDs, uc.StartDate, days))
	if err != nil {
		return 0, fmt.Errorf("failed to schedule daily tasks: %w", err)
	}
	dailyTasksScheduled.Add(float64(inserted))
	return inserted, nil
}

// ensureToday backfills today's instances for the active enrollment when
// today has none: from the most recently scheduled day's task set, or from
// the enrollment's full task list.
func (s *ScheduleService) ensureToday(ctx context.Context, tx store.Tx, userID uuid.UUID, today time.Time) error {
	uc, err := tx.GetActiveUserChallenge(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load active challenge: %w", err)
	}
	if today.Before(uc.StartDate) || !today.Before(uc.EndDate) {
		return nil
	}

	from, to := day.Bounds(today)
	existing, err := tx.ListDailyTasks(ctx, userID, from, to)
	if err != nil {
		return fmt.Errorf("failed to list today's tasks: %w", err)
	}
	if len(liveTasks(existing, uc)) > 0 {
		return nil
	}

	taskIDs := uc.TaskIDs
	latest, err := tx.LatestScheduledDay(ctx, userID, today)
	switch {
	case err == nil:
		prev, err := tasksOn(ctx, tx, userID, latest, uc.TaskIDs)
		if err != nil {
			return err
		}
		if len(prev) > 0 {
			taskIDs = prev
		}
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("failed to find latest scheduled day: %w", err)
	}

	inserted, err := tx.InsertDailyTasks(ctx, BuildSchedule(userID, taskIDs, today, 1))
	if err != nil {
		return fmt.Errorf("failed to backfill today's tasks: %w", err)
	}
	dailyTasksScheduled.Add(float64(inserted))
	s.log.Info("daily_tasks_backfilled",
		zap.String("user_id", userID.String()),
		zap.String("enrollment_id", uc.ID.String()),
		zap.Int("count", inserted),
	)
	return nil
}

// tasksOn returns the task ids scheduled on d that belong to allowed.
func tasksOn(ctx context.Context, tx store.Tx, userID uuid.UUID, d time.Time, allowed []uuid.UUID) ([]uuid.UUID, error) {
	from, to := day.Bounds(d)
	rows, err := tx.ListDailyTasks(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks on %s: %w", from.Format(time.DateOnly), err)
	}

	ok := make(map[uuid.UUID]bool, len(allowed))
	for _, id := range allowed {
		ok[id] = true
	}
	var ids []uuid.UUID
	for _, r := range rows {
		if ok[r.TaskID] {
			ids = append(ids, r.TaskID)
		}
	}
	return ids, nil
}

// live reports whether r counts toward its day: it already has a completion, or
// it is one of uc's tasks inside uc's window. Rows left behind by an abandoned
// or finished enrollment stay in the store but no longer count.
func live(r daily_task.DailyTaskWithStatus, uc *challenge.UserChallenge) bool {
	if r.Completed {
		return true
	}
	if uc == nil {
		return false
	}
	d := day.Of(r.Date)
	if d.Before(uc.StartDate) || !d.Before(uc.EndDate) {
		return false
	}
	return slices.Contains(uc.TaskIDs, r.TaskID)
}

func liveTasks(rows []daily_task.DailyTaskWithStatus, uc *challenge.UserChallenge) []daily_task.DailyTaskWithStatus {
	kept := make([]daily_task.DailyTaskWithStatus, 0, len(rows))
	for _, r := range rows {
		if live(r, uc) {
			kept = append(kept, r)
		}
	}
	return kept
}

// activeEnrollment returns the user's active enrollment, or nil when there is none.
func activeEnrollment(ctx context.Context, tx store.Tx, userID uuid.UUID) (*challenge.UserChallenge, error) {
	uc, err := tx.GetActiveUserChallenge(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active challenge: %w", err)
	}
	return uc, nil
}

// daySet returns the instances on d that count toward the streak and the today view.
func daySet(ctx context.Context, tx store.Tx, userID uuid.UUID, d time.Time) ([]daily_task.DailyTaskWithStatus, error) {
	uc, err := activeEnrollment(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	from, to := day.Bounds(d)
	rows, err := tx.ListDailyTasks(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks on %s: %w", from.Format(time.DateOnly), err)
	}
	return liveTasks(rows, uc), nil
}

// GenerateDailyTasks (re)materializes the schedule of one of the user's active enrollments.
func (s *ScheduleService) GenerateDailyTasks(ctx context.Context, userID, enrollmentID uuid.UUID) (int, error) {
	var inserted int
	err := s.inTx(ctx, func(tx store.Tx) error {
		uc, err := tx.GetUserChallenge(ctx, enrollmentID)
		if err != nil {
			return notFound(err, "challenge not found")
		}
		if uc.UserID != userID {
			return apperr.New(apperr.Forbidden, "challenge belongs to another user")
		}
		if !uc.Active() {
			return apperr.New(apperr.Forbidden, "challenge is no longer active")
		}

		inserted, err = s.schedule(ctx, tx, uc)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("daily_tasks_generated",
		zap.String("user_id", userID.String()),
		zap.String("enrollment_id", enrollmentID.String()),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}

// GetTodayTasks backfills today if needed and returns today's live instances.
func (s *ScheduleService) GetTodayTasks(ctx context.Context, userID uuid.UUID) ([]daily_task.DailyTaskWithStatus, error) {
	today := day.Of(s.clock.Now())

	var tasks []daily_task.DailyTaskWithStatus
	err := s.inTx(ctx, func(tx store.Tx) error {
		if err := s.ensureToday(ctx, tx, userID, today); err != nil {
			return err
		}
		var err error
		tasks, err = daySet(ctx, tx, userID, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []daily_task.DailyTaskWithStatus{}
	}
	return tasks, nil
}
