package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nafsAPI/internal/apperr"
	"nafsAPI/internal/catalog"
	"nafsAPI/internal/store/memory"
	"nafsAPI/internal/types/challenge"
	"nafsAPI/internal/types/daily_task"
	"nafsAPI/internal/types/user"
	"nafsAPI/middleware"
	"nafsAPI/services"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type testServer struct {
	store      *memory.Store
	catalog    *catalog.Catalog
	users      *services.UserService
	user       *UserHandler
	challenges *ChallengeHandler
	tasks      *TaskHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st := memory.New()
	clock := &testClock{now: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)}
	log := zap.NewNop()

	cat := catalog.Default()
	require.NoError(t, cat.Seed(context.Background(), st))

	dims := services.NewDimensionService(st, 5, clock, log)
	schedule := services.NewScheduleService(st, clock, log)
	challenges := services.NewChallengeService(st, schedule, clock, log)
	streaks := services.NewStreakService(st, clock, log)
	tasks := services.NewTaskService(st, dims, challenges, streaks, clock, log)
	users := services.NewUserService(st, dims, clock, log)

	return &testServer{
		store:      st,
		catalog:    cat,
		users:      users,
		user:       NewUserHandler(users, dims, streaks),
		challenges: NewChallengeHandler(users, challenges, schedule, dims),
		tasks:      NewTaskHandler(users, tasks, schedule),
	}
}

func (s *testServer) provision(t *testing.T, clerkID string) *user.User {
	t.Helper()
	u, err := s.users.CreateUser(context.Background(), &user.CreateUserRequest{
		ClerkID:  clerkID,
		Email:    clerkID + "@example.com",
		Username: clerkID,
	})
	require.NoError(t, err)
	return u
}

// call runs h as an authenticated request for clerkID; an empty clerkID sends no identity.
func call(t *testing.T, h http.HandlerFunc, method, clerkID string, body any, vars map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, "/api/v1/test", &buf)
	req.Header.Set("Content-Type", "application/json")
	if clerkID != "" {
		req = req.WithContext(context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}

	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func assertFailure(t *testing.T, rr *httptest.ResponseRecorder, code int, reason string) {
	t.Helper()
	assert.Equal(t, code, rr.Code, rr.Body.String())
	body := decode[map[string]any](t, rr)
	assert.Equal(t, false, body["success"])
	if reason != "" {
		assert.Equal(t, reason, body["reason"])
	}
}

func TestGetProfileUnauthenticated(t *testing.T) {
	s := newTestServer(t)

	rr := call(t, s.user.GetProfile, http.MethodGet, "", nil, nil)
	assertFailure(t, rr, http.StatusUnauthorized, "user not authenticated")

	rr = call(t, s.user.GetProfile, http.MethodGet, "user_unknown", nil, nil)
	assertFailure(t, rr, http.StatusUnauthorized, "user not provisioned")
}

func TestGetProfileAndDimensions(t *testing.T) {
	s := newTestServer(t)
	created := s.provision(t, "user_profile")

	rr := call(t, s.user.GetProfile, http.MethodGet, "user_profile", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[user.User](t, rr)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "user_profile", got.ClerkID)

	rr = call(t, s.user.GetDimensions, http.MethodGet, "user_profile", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	dims := decode[[]map[string]any](t, rr)
	assert.Len(t, dims, 7)
	for _, d := range dims {
		assert.EqualValues(t, 5, d["score"])
		assert.InDelta(t, 0.05, d["display"], 1e-9)
	}
}

func TestUpdateAndDeleteAccount(t *testing.T) {
	s := newTestServer(t)
	s.provision(t, "user_update")

	rr := call(t, s.user.UpdateProfile, http.MethodPut, "user_update", `{"first_name":"Yusuf","unknown":1}`, nil)
	assertFailure(t, rr, http.StatusBadRequest, "")

	rr = call(t, s.user.UpdateProfile, http.MethodPut, "user_update", map[string]string{"first_name": "Yusuf"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Yusuf", decode[user.User](t, rr).FirstName)

	rr = call(t, s.user.DeleteAccount, http.MethodDelete, "user_update", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, s.store.Snapshot().Users)

	rr = call(t, s.user.GetProfile, http.MethodGet, "user_update", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)

	rr := call(t, s.challenges.ListDimensions, http.MethodGet, "", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]map[string]any](t, rr), 7)

	rr = call(t, s.challenges.ListChallenges, http.MethodGet, "", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]challenge.Challenge](t, rr)
	require.Len(t, list, 3)
	for _, c := range list {
		assert.False(t, c.IsCustom)
		assert.Len(t, c.Tasks, 5)
	}
}

func TestChallengeFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.provision(t, "user_flow")
	tmpl := s.catalog.Challenges()[2]

	rr := call(t, s.challenges.GetCurrent, http.MethodGet, "user_flow", nil, nil)
	assertFailure(t, rr, http.StatusNotFound, "no active challenge")

	rr = call(t, s.challenges.Enroll, http.MethodPost, "user_flow", challenge.EnrollRequest{
		ChallengeID:   tmpl.ID.String(),
		SelectedTasks: []int{0, 1},
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	enrolled := decode[challenge.EnrollResponse](t, rr)
	assert.True(t, enrolled.Success)
	assert.Equal(t, 2*tmpl.Duration, enrolled.DailyTasks)

	rr = call(t, s.challenges.Enroll, http.MethodPost, "user_flow", challenge.EnrollRequest{ChallengeID: tmpl.ID.String()}, nil)
	assertFailure(t, rr, http.StatusConflict, "user already has an active challenge")

	rr = call(t, s.tasks.Today, http.MethodGet, "user_flow", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	today := decode[[]daily_task.DailyTaskWithStatus](t, rr)
	require.Len(t, today, 2)

	var last daily_task.CompleteTaskResponse
	for _, task := range today {
		rr = call(t, s.tasks.Complete, http.MethodPost, "user_flow", nil, map[string]string{"dailyTaskId": task.ID.String()})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		last = decode[daily_task.CompleteTaskResponse](t, rr)
	}
	assert.True(t, last.DayCompleted)
	assert.Equal(t, 1, last.CurrentStreak)

	rr = call(t, s.tasks.Complete, http.MethodPost, "user_flow", nil, map[string]string{"dailyTaskId": today[0].ID.String()})
	assertFailure(t, rr, http.StatusConflict, "task already completed")

	rr = call(t, s.challenges.GetStatus, http.MethodGet, "user_flow", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[challenge.ChallengeStatus](t, rr)
	assert.Equal(t, 2, status.CompletedTasks)
	assert.Equal(t, 1, status.DaysElapsed)
	assert.False(t, status.ReadyToComplete)

	rr = call(t, s.challenges.Generate, http.MethodPost, "user_flow", nil, map[string]string{"enrollmentId": enrolled.EnrollmentID.String()})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 0, decode[map[string]any](t, rr)["inserted"])

	rr = call(t, s.challenges.Complete, http.MethodPost, "user_flow", nil, map[string]string{"enrollmentId": enrolled.EnrollmentID.String()})
	require.Equal(t, http.StatusOK, rr.Code)
	done := decode[challenge.CompleteChallengeResponse](t, rr)
	assert.Equal(t, 1, done.Level)

	rr = call(t, s.challenges.Abandon, http.MethodPost, "user_flow", nil, map[string]string{"enrollmentId": enrolled.EnrollmentID.String()})
	assertFailure(t, rr, http.StatusForbidden, "challenge is no longer active")
}

// Commands carry a success flag, read views are the bare resource, and every key is snake_case.
func TestResponseShapes(t *testing.T) {
	s := newTestServer(t)
	s.provision(t, "user_shape")
	tmpl := s.catalog.Challenges()[0]

	rr := call(t, s.challenges.Enroll, http.MethodPost, "user_shape", map[string]any{"challenge_id": tmpl.ID.String()}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	enrolled := decode[map[string]any](t, rr)
	assert.Equal(t, true, enrolled["success"])
	assert.Contains(t, enrolled, "enrollment_id")
	assert.Contains(t, enrolled, "daily_tasks")

	rr = call(t, s.tasks.Today, http.MethodGet, "user_shape", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	today := decode[[]map[string]any](t, rr)
	require.NotEmpty(t, today)
	assert.Contains(t, today[0], "task_name")
	assert.Contains(t, today[0], "dimension_id")
	assert.NotContains(t, today[0], "taskName")

	rr = call(t, s.tasks.Complete, http.MethodPost, "user_shape", nil, map[string]string{"dailyTaskId": today[0]["id"].(string)})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	completed := decode[map[string]any](t, rr)
	assert.Equal(t, true, completed["success"])
	assert.Contains(t, completed, "dimension_score")
	assert.Contains(t, completed, "day_completed")
	assert.Contains(t, completed, "current_streak")

	rr = call(t, s.challenges.GetCurrent, http.MethodGet, "user_shape", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	current := decode[map[string]any](t, rr)
	assert.NotContains(t, current, "success")
	assert.Contains(t, current, "start_date")
	assert.Contains(t, current, "challenge")

	rr = call(t, s.challenges.GetStatus, http.MethodGet, "user_shape", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[map[string]any](t, rr)
	assert.NotContains(t, status, "success")
	assert.Contains(t, status, "ready_to_complete")

	rr = call(t, s.user.GetProfile, http.MethodGet, "user_shape", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	profile := decode[map[string]any](t, rr)
	assert.Contains(t, profile, "clerk_id")
	assert.Contains(t, profile, "current_streak")
	assert.Contains(t, profile, "longest_streak")
}

func TestEnrollValidation(t *testing.T) {
	s := newTestServer(t)
	s.provision(t, "user_invalid")
	tmpl := s.catalog.Challenges()[0]

	rr := call(t, s.challenges.Enroll, http.MethodPost, "user_invalid", nil, nil)
	assertFailure(t, rr, http.StatusBadRequest, "request body required")

	rr = call(t, s.challenges.Enroll, http.MethodPost, "user_invalid", `{"challenge_id":"nope"}`, nil)
	assertFailure(t, rr, http.StatusBadRequest, "")

	rr = call(t, s.challenges.Enroll, http.MethodPost, "user_invalid", challenge.EnrollRequest{
		ChallengeID:   tmpl.ID.String(),
		SelectedTasks: []int{9},
	}, nil)
	assertFailure(t, rr, http.StatusBadRequest, "task index 9 out of range")

	rr = call(t, s.challenges.Complete, http.MethodPost, "user_invalid", nil, map[string]string{"enrollmentId": "not-a-uuid"})
	assertFailure(t, rr, http.StatusBadRequest, "invalid enrollmentId")
}

func TestCreateCustomOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.provision(t, "user_custom")
	dims := s.catalog.Dimensions()

	tooFew := challenge.CustomChallengeRequest{
		Title:    "Mine",
		Duration: 7,
		Tasks: []challenge.CustomTask{
			{Name: "Walk", DimensionID: dims[0].ID.String()},
			{Name: "Read", DimensionID: dims[1].ID.String()},
		},
	}
	rr := call(t, s.challenges.CreateCustom, http.MethodPost, "user_custom", tooFew, nil)
	assertFailure(t, rr, http.StatusBadRequest, "")

	ok := tooFew
	ok.Tasks = append(ok.Tasks, challenge.CustomTask{Name: "Give", DimensionID: dims[2].ID.String()})
	rr = call(t, s.challenges.CreateCustom, http.MethodPost, "user_custom", ok, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, 21, decode[challenge.EnrollResponse](t, rr).DailyTasks)

	rr = call(t, s.challenges.ListChallenges, http.MethodGet, "", nil, nil)
	assert.Len(t, decode[[]challenge.Challenge](t, rr), 3, "custom templates stay out of the catalog")
}

func TestStreakEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.provision(t, "user_streak")

	rr := call(t, s.user.CompleteDay, http.MethodPost, "user_streak", nil, nil)
	assertFailure(t, rr, http.StatusBadRequest, "not all tasks completed")

	rr = call(t, s.user.CheckStreak, http.MethodPost, "user_streak", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "unchanged", decode[map[string]any](t, rr)["outcome"])
}

func TestGetCalendarQuery(t *testing.T) {
	s := newTestServer(t)
	s.provision(t, "user_cal")

	req := func(query string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/user/calendar?"+query, nil)
		r = r.WithContext(context.WithValue(r.Context(), middleware.ClerkIDKey, "user_cal"))
		rr := httptest.NewRecorder()
		s.user.GetCalendar(rr, r)
		return rr
	}

	assertFailure(t, req("year=abc&month=3"), http.StatusBadRequest, "invalid year")
	assertFailure(t, req("year=2026&month=13"), http.StatusBadRequest, "")

	rr := req("year=2026&month=2")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Len(t, body["days"], 28)
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := withRetry(ctx, func() error {
		calls++
		return apperr.Wrap(apperr.TransactionFailed, errors.New("serialization failure"), "transaction failed, please retry")
	})
	assert.Equal(t, maxRetries+1, calls)
	assert.Equal(t, apperr.TransactionFailed, apperr.KindOf(err))

	calls = 0
	err = withRetry(ctx, func() error {
		calls++
		if calls < 2 {
			return errors.New("connection reset")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = withRetry(ctx, func() error {
		calls++
		return apperr.ErrAlreadyCompleted
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, apperr.ErrAlreadyCompleted)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	calls = 0
	err = withRetry(cancelled, func() error {
		calls++
		return errors.New("connection reset")
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRespondWithAppError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{apperr.New(apperr.NotFound, "task not found"), http.StatusNotFound},
		{apperr.New(apperr.Forbidden, "nope"), http.StatusForbidden},
		{apperr.ErrActiveEnrollment, http.StatusConflict},
		{apperr.ErrNotAllTasksCompleted, http.StatusBadRequest},
		{errors.New("raw"), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		respondWithAppError(rr, tt.err)
		assert.Equal(t, tt.code, rr.Code, tt.err.Error())
		assert.Contains(t, rr.Body.String(), `"success":false`)
	}
}
