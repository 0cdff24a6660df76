package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nafsAPI/internal/store"
	"nafsAPI/internal/types/challenge"
	"nafsAPI/internal/types/daily_task"
	"nafsAPI/internal/types/user"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.CreateUser(ctx, &user.User{ClerkID: "user_1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Snapshot().Users)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.CreateUser(ctx, &user.User{ClerkID: "user_1"})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Snapshot().Users)
}

func TestDuplicateClerkIDConflicts(t *testing.T) {
	ctx := context.Background()
	s := New()

	create := func() error {
		return s.WithTx(ctx, func(tx store.Tx) error {
			return tx.CreateUser(ctx, &user.User{ClerkID: "user_dup"})
		})
	}
	require.NoError(t, create())
	assert.ErrorIs(t, create(), store.ErrConflict)
}

func TestScheduleAndCompletionUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID, taskID := uuid.New(), uuid.New()
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		rows := []daily_task.DailyTask{
			{UserID: userID, TaskID: taskID, Date: day},
			{UserID: userID, TaskID: taskID, Date: day},
			{UserID: userID, TaskID: taskID, Date: day.AddDate(0, 0, 1)},
		}
		n, err := tx.InsertDailyTasks(ctx, rows)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		listed, err := tx.ListDailyTasks(ctx, userID, day, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, listed, 1)

		ok, err := tx.InsertCompletion(ctx, &daily_task.CompletedTask{UserID: userID, DailyTaskID: listed[0].ID, CompletedAt: day})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.InsertCompletion(ctx, &daily_task.CompletedTask{UserID: userID, DailyTaskID: listed[0].ID, CompletedAt: day})
		require.NoError(t, err)
		assert.False(t, ok)

		uc := &challenge.UserChallenge{UserID: userID, TaskIDs: []uuid.UUID{taskID}, StartDate: day, EndDate: day.AddDate(0, 0, 2)}
		completed, total, err := tx.CountProgress(ctx, uc)
		require.NoError(t, err)
		assert.Equal(t, 1, completed)
		assert.Equal(t, 2, total)

		latest, err := tx.LatestScheduledDay(ctx, userID, day.AddDate(0, 0, 5))
		require.NoError(t, err)
		assert.True(t, latest.Equal(day.AddDate(0, 0, 1)))

		_, err = tx.LatestScheduledDay(ctx, userID, day)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.DailyTasks)
	assert.Equal(t, 1, snap.Completions)
}

func TestOneActiveEnrollmentPerUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	var first *challenge.UserChallenge
	err := s.WithTx(ctx, func(tx store.Tx) error {
		first = &challenge.UserChallenge{UserID: userID, ChallengeID: uuid.New(), StartDate: day, EndDate: day.AddDate(0, 0, 3)}
		return tx.CreateUserChallenge(ctx, first)
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.CreateUserChallenge(ctx, &challenge.UserChallenge{UserID: userID, StartDate: day, EndDate: day.AddDate(0, 0, 3)})
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.MarkCompleted(ctx, first.ID, day); err != nil {
			return err
		}
		_, err := tx.GetActiveUserChallenge(ctx, userID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return tx.CreateUserChallenge(ctx, &challenge.UserChallenge{UserID: userID, StartDate: day, EndDate: day.AddDate(0, 0, 3)})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Snapshot().Enrollments)
}

func TestWithTxHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().WithTx(ctx, func(tx store.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
