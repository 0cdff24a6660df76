package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nafsAPI/internal/apperr"
	"nafsAPI/internal/day"
	"nafsAPI/internal/store"
	"nafsAPI/internal/types/daily_task"
)

// TaskService records completions of daily task instances.
type TaskService struct {
	base
	dimensions *DimensionService
	challenges *ChallengeService
	streaks    *StreakService
}

func NewTaskService(st store.Store, dimensions *DimensionService, challenges *ChallengeService, streaks *StreakService, clock day.Clock, log *zap.Logger) *TaskService {
	return &TaskService{
		base:       newBase(st, clock, log),
		dimensions: dimensions,
		challenges: challenges,
		streaks:    streaks,
	}
}

// CompleteTask records the completion and, in the same transaction, bumps the
// task's dimension, recomputes the active enrollment's progress and, when this
// was the last open task of today, advances the streak.
func (s *TaskService) CompleteTask(ctx context.Context, userID, dailyTaskID uuid.UUID) (*daily_task.CompleteTaskResponse, error) {
	now := s.clock.Now()
	today := day.Of(now)

	resp := &daily_task.CompleteTaskResponse{DailyTaskID: dailyTaskID.String()}
	err := s.inTx(ctx, func(tx store.Tx) error {
		// serializes completions per user so the last-task check sees the others
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}

		dt, err := tx.GetDailyTask(ctx, dailyTaskID)
		if err != nil {
			return notFound(err, "task not found")
		}
		if dt.UserID != userID {
			return apperr.New(apperr.NotFound, "task not found")
		}
		if day.Of(dt.Date).After(today) {
			return apperr.New(apperr.ValidationFailed, "task is scheduled for a future day")
		}

		inserted, err := tx.InsertCompletion(ctx, &daily_task.CompletedTask{
			UserID:      userID,
			DailyTaskID: dt.ID,
			CompletedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to record completion: %w", err)
		}
		if !inserted {
			return apperr.ErrAlreadyCompleted
		}

		resp.DimensionScore, err = s.dimensions.apply(ctx, tx, userID, dt.DimensionID)
		if err != nil {
			return err
		}

		uc, err := tx.GetActiveUserChallenge(ctx, userID)
		switch {
		case err == nil:
			progress, err := s.challenges.recomputeProgress(ctx, tx, uc)
			if err != nil {
				return err
			}
			resp.Progress = &progress
			resp.ReadyToComplete = readyToComplete(uc, progress, today)
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to load active challenge: %w", err)
		}

		resp.CurrentStreak = u.CurrentStreak
		if !day.Same(dt.Date, today) {
			return nil
		}
		next, _, err := s.streaks.evaluate(ctx, tx, u, today)
		switch {
		case err == nil:
			resp.DayCompleted = true
			resp.CurrentStreak = next.CurrentStreak
		case !errors.Is(err, apperr.ErrNotAllTasksCompleted):
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyCompleted) {
			duplicateCompletions.Inc()
		}
		return nil, err
	}

	resp.Success = true
	tasksCompleted.Inc()
	s.log.Info("task_completed",
		zap.String("user_id", userID.String()),
		zap.String("daily_task_id", dailyTaskID.String()),
		zap.Int("dimension_score", resp.DimensionScore),
		zap.Bool("day_completed", resp.DayCompleted),
	)
	return resp, nil
}
