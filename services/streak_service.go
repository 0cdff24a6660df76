package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nafsAPI/internal/apperr"
	"nafsAPI/internal/day"
	"nafsAPI/internal/store"
	"nafsAPI/internal/types/streak"
	"nafsAPI/internal/types/user"
)

type StreakService struct {
	base
}

func NewStreakService(st store.Store, clock day.Clock, log *zap.Logger) *StreakService {
	return &StreakService{base: newBase(st, clock, log)}
}

func streakOf(u *user.User) streak.Streak {
	return streak.Streak{
		CurrentStreak:  u.CurrentStreak,
		LongestStreak:  u.LongestStreak,
		LastActiveDate: u.LastActiveDate,
	}
}

// CompleteDay applies one fully completed day to s. A second call on the same
// day leaves s unchanged, except that a streak zeroed earlier today by Reconcile
// restarts at 1.
func CompleteDay(s streak.Streak, today time.Time) (streak.Streak, streak.Outcome) {
	today = day.Of(today)

	var outcome streak.Outcome
	switch {
	case s.LastActiveDate != nil && day.Same(*s.LastActiveDate, today):
		if s.CurrentStreak > 0 {
			return s, streak.OutcomeUnchanged
		}
		s.CurrentStreak = 1
		outcome = streak.OutcomeStarted
	case s.LastActiveDate != nil && day.IsYesterday(*s.LastActiveDate, today):
		s.CurrentStreak++
		outcome = streak.OutcomeContinued
	default:
		s.CurrentStreak = 1
		outcome = streak.OutcomeStarted
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastActiveDate = &today
	return s, outcome
}

// Reconcile zeroes a streak whose last active day is older than yesterday.
// An unfinished today never breaks the streak.
func Reconcile(s streak.Streak, today time.Time) (streak.Streak, streak.Outcome) {
	today = day.Of(today)

	if s.LastActiveDate == nil || s.CurrentStreak == 0 {
		return s, streak.OutcomeUnchanged
	}
	last := day.Of(*s.LastActiveDate)
	if !last.Before(day.Add(today, -1)) {
		return s, streak.OutcomeUnchanged
	}

	s.CurrentStreak = 0
	s.LastActiveDate = &today
	return s, streak.OutcomeReset
}

// dayCompleted reports whether the user has at least one live instance on today
// and every one of them carries a completion made on today.
func (s *StreakService) dayCompleted(ctx context.Context, tx store.Tx, userID uuid.UUID, today time.Time) (bool, error) {
	tasks, err := daySet(ctx, tx, userID, today)
	if err != nil {
		return false, err
	}
	if len(tasks) == 0 {
		return false, nil
	}
	for _, t := range tasks {
		if !t.Completed || t.CompletedAt == nil || !day.Same(*t.CompletedAt, today) {
			return false, nil
		}
	}
	return true, nil
}

// evaluate runs CompleteDay against the locked user row when today is fully completed.
func (s *StreakService) evaluate(ctx context.Context, tx store.Tx, u *user.User, today time.Time) (streak.Streak, streak.Outcome, error) {
	current := streakOf(u)

	done, err := s.dayCompleted(ctx, tx, u.ID, today)
	if err != nil {
		return current, streak.OutcomeUnchanged, err
	}
	if !done {
		return current, streak.OutcomeUnchanged, apperr.ErrNotAllTasksCompleted
	}

	next, outcome := CompleteDay(current, today)
	if outcome == streak.OutcomeUnchanged {
		return next, outcome, nil
	}
	if err := tx.UpdateStreak(ctx, u.ID, next.CurrentStreak, next.LongestStreak, *next.LastActiveDate); err != nil {
		return current, streak.OutcomeUnchanged, fmt.Errorf("failed to update streak: %w", err)
	}

	streakTransitions.WithLabelValues(string(outcome)).Inc()
	s.log.Info("streak_updated",
		zap.String("user_id", u.ID.String()),
		zap.String("outcome", string(outcome)),
		zap.Int("current", next.CurrentStreak),
		zap.Int("longest", next.LongestStreak),
	)
	return next, outcome, nil
}

func (s *StreakService) CompleteDayAndUpdateStreak(ctx context.Context, userID uuid.UUID) (*streak.CompleteDayResponse, error) {
	today := day.Of(s.clock.Now())

	var resp *streak.CompleteDayResponse
	err := s.inTx(ctx, func(tx store.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}

		next, outcome, err := s.evaluate(ctx, tx, u, today)
		if err != nil {
			return err
		}

		resp = &streak.CompleteDayResponse{
			Success:   true,
			NewStreak: next.CurrentStreak,
			Longest:   next.LongestStreak,
			Outcome:   outcome,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CheckStreak is the daily reconciliation pass.
func (s *StreakService) CheckStreak(ctx context.Context, userID uuid.UUID) (*streak.CompleteDayResponse, error) {
	today := day.Of(s.clock.Now())

	var resp *streak.CompleteDayResponse
	err := s.inTx(ctx, func(tx store.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}

		next, outcome := Reconcile(streakOf(u), today)
		if outcome == streak.OutcomeReset {
			if err := tx.UpdateStreak(ctx, u.ID, next.CurrentStreak, next.LongestStreak, *next.LastActiveDate); err != nil {
				return fmt.Errorf("failed to reset streak: %w", err)
			}
			streakTransitions.WithLabelValues(string(outcome)).Inc()
			s.log.Info("streak_reset",
				zap.String("user_id", u.ID.String()),
				zap.Int("previous", u.CurrentStreak),
			)
		}

		resp = &streak.CompleteDayResponse{
			Success:   true,
			NewStreak: next.CurrentStreak,
			Longest:   next.LongestStreak,
			Outcome:   outcome,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
