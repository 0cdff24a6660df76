package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nafsAPI/internal/catalog"
	"nafsAPI/internal/day"
	"nafsAPI/internal/store"
	"nafsAPI/internal/store/memory"
	"nafsAPI/internal/types/challenge"
	"nafsAPI/internal/types/daily_task"
	"nafsAPI/internal/types/user"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fixedClock {
	return &fixedClock{now: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, days)
}

type testEnv struct {
	store      *memory.Store
	clock      *fixedClock
	users      *UserService
	dimensions *DimensionService
	schedule   *ScheduleService
	challenges *ChallengeService
	streaks    *StreakService
	tasks      *TaskService
	catalog    *catalog.Catalog
}

// day one of every scenario, mid-morning UTC
var dayOne = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	clock := newClock(dayOne)
	log := zap.NewNop()

	cat := catalog.Default()
	require.NoError(t, cat.Seed(context.Background(), st))

	dims := NewDimensionService(st, 5, clock, log)
	schedule := NewScheduleService(st, clock, log)
	challenges := NewChallengeService(st, schedule, clock, log)
	streaks := NewStreakService(st, clock, log)

	return &testEnv{
		store:      st,
		clock:      clock,
		users:      NewUserService(st, dims, clock, log),
		dimensions: dims,
		schedule:   schedule,
		challenges: challenges,
		streaks:    streaks,
		tasks:      NewTaskService(st, dims, challenges, streaks, clock, log),
		catalog:    cat,
	}
}

func (e *testEnv) createUser(t *testing.T, clerkID string) *user.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), &user.CreateUserRequest{
		ClerkID:  clerkID,
		Email:    clerkID + "@example.com",
		Username: clerkID,
	})
	require.NoError(t, err)
	return u
}

// addTemplate seeds a predefined template with n tasks over the given duration.
func (e *testEnv) addTemplate(t *testing.T, name string, duration, n int) *challenge.Challenge {
	t.Helper()
	dims := e.catalog.Dimensions()
	tmpl := &challenge.Challenge{
		ID:       uuid.New(),
		Name:     name,
		Duration: duration,
	}
	for i := 0; i < n; i++ {
		tmpl.Tasks = append(tmpl.Tasks, challenge.Task{
			ID:          uuid.New(),
			Name:        string(rune('A' + i)),
			DimensionID: dims[i%len(dims)].ID,
			Points:      1,
		})
	}
	err := e.store.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.UpsertChallenge(context.Background(), tmpl)
	})
	require.NoError(t, err)
	return tmpl
}

func (e *testEnv) today(t *testing.T, userID uuid.UUID) []daily_task.DailyTaskWithStatus {
	t.Helper()
	tasks, err := e.schedule.GetTodayTasks(context.Background(), userID)
	require.NoError(t, err)
	return tasks
}

func (e *testEnv) completeAll(t *testing.T, userID uuid.UUID) *daily_task.CompleteTaskResponse {
	t.Helper()
	var last *daily_task.CompleteTaskResponse
	for _, task := range e.today(t, userID) {
		if task.Completed {
			continue
		}
		resp, err := e.tasks.CompleteTask(context.Background(), userID, task.ID)
		require.NoError(t, err)
		last = resp
	}
	return last
}

func (e *testEnv) reloadUser(t *testing.T, clerkID string) *user.User {
	t.Helper()
	u, err := e.users.GetUserByClerkID(context.Background(), clerkID)
	require.NoError(t, err)
	return u
}

func (e *testEnv) enrollment(t *testing.T, id uuid.UUID) *challenge.UserChallenge {
	t.Helper()
	var uc *challenge.UserChallenge
	err := e.store.WithTx(context.Background(), func(tx store.Tx) error {
		var err error
		uc, err = tx.GetUserChallenge(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return uc
}

func todayOf(c *fixedClock) time.Time {
	return day.Of(c.Now())
}
