// Package memory is an in-process store.Store. Transactions are fully
// serialized: each one works on a private copy of the state that replaces
// the shared state on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nafsAPI/internal/store"
	"nafsAPI/internal/types/challenge"
	"nafsAPI/internal/types/daily_task"
	"nafsAPI/internal/types/dimension"
	"nafsAPI/internal/types/user"
)

type dimensionKey struct {
	userID      uuid.UUID
	dimensionID uuid.UUID
}

type scheduleKey struct {
	userID uuid.UUID
	taskID uuid.UUID
	date   time.Time
}

type state struct {
	users         map[uuid.UUID]user.User
	clerkIndex    map[string]uuid.UUID
	dimensions    map[uuid.UUID]dimension.Dimension
	dimensionVals map[dimensionKey]dimension.DimensionValue
	challenges    map[uuid.UUID]challenge.Challenge
	tasks         map[uuid.UUID]challenge.Task
	enrollments   map[uuid.UUID]challenge.UserChallenge
	dailyTasks    map[uuid.UUID]daily_task.DailyTask
	scheduleIndex map[scheduleKey]uuid.UUID
	completions   map[uuid.UUID]daily_task.CompletedTask // keyed by daily task id
}

func newState() *state {
	return &state{
		users:         make(map[uuid.UUID]user.User),
		clerkIndex:    make(map[string]uuid.UUID),
		dimensions:    make(map[uuid.UUID]dimension.Dimension),
		dimensionVals: make(map[dimensionKey]dimension.DimensionValue),
		challenges:    make(map[uuid.UUID]challenge.Challenge),
		tasks:         make(map[uuid.UUID]challenge.Task),
		enrollments:   make(map[uuid.UUID]challenge.UserChallenge),
		dailyTasks:    make(map[uuid.UUID]daily_task.DailyTask),
		scheduleIndex: make(map[scheduleKey]uuid.UUID),
		completions:   make(map[uuid.UUID]daily_task.CompletedTask),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.clerkIndex {
		c.clerkIndex[k] = v
	}
	for k, v := range s.dimensions {
		c.dimensions[k] = v
	}
	for k, v := range s.dimensionVals {
		c.dimensionVals[k] = v
	}
	for k, v := range s.challenges {
		v.Tasks = append([]challenge.Task(nil), v.Tasks...)
		c.challenges[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.enrollments {
		v.TaskIDs = append([]uuid.UUID(nil), v.TaskIDs...)
		c.enrollments[k] = v
	}
	for k, v := range s.dailyTasks {
		c.dailyTasks[k] = v
	}
	for k, v := range s.scheduleIndex {
		c.scheduleIndex[k] = v
	}
	for k, v := range s.completions {
		c.completions[k] = v
	}
	return c
}

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

func New() *Store {
	return &Store{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the timestamp source used for created_at/updated_at columns.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{state: s.state.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// Snapshot exposes committed row counts for assertions.
type Snapshot struct {
	Users           int
	DimensionValues int
	DailyTasks      int
	Completions     int
	Enrollments     int
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Users:           len(s.state.users),
		DimensionValues: len(s.state.dimensionVals),
		DailyTasks:      len(s.state.dailyTasks),
		Completions:     len(s.state.completions),
		Enrollments:     len(s.state.enrollments),
	}
}

type memTx struct {
	state *state
	now   func() time.Time
}

// Users

func (t *memTx) CreateUser(ctx context.Context, u *user.User) error {
	if _, exists := t.state.clerkIndex[u.ClerkID]; exists {
		return fmt.Errorf("clerk id %s: %w", u.ClerkID, store.ErrConflict)
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := t.now()
	u.CreatedAt, u.UpdatedAt = now, now
	t.state.users[u.ID] = *u
	t.state.clerkIndex[u.ClerkID] = u.ID
	return nil
}

func (t *memTx) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (t *memTx) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	id, ok := t.state.clerkIndex[clerkID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t.GetUser(ctx, id)
}

func (t *memTx) LockUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return t.GetUser(ctx, id)
}

func (t *memTx) UpdateProfile(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	id, ok := t.state.clerkIndex[clerkID]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := t.state.users[id]
	if req.Username != "" {
		u.Username = req.Username
	}
	if req.FirstName != "" {
		u.FirstName = req.FirstName
	}
	if req.LastName != "" {
		u.LastName = req.LastName
	}
	if req.ImageURL != "" {
		u.ImageURL = req.ImageURL
	}
	u.UpdatedAt = t.now()
	t.state.users[id] = u
	return &u, nil
}

func (t *memTx) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	id, ok := t.state.clerkIndex[clerkID]
	if !ok {
		return store.ErrNotFound
	}
	delete(t.state.users, id)
	delete(t.state.clerkIndex, clerkID)
	for k := range t.state.dimensionVals {
		if k.userID == id {
			delete(t.state.dimensionVals, k)
		}
	}
	for k, v := range t.state.enrollments {
		if v.UserID == id {
			delete(t.state.enrollments, k)
		}
	}
	for k, v := range t.state.dailyTasks {
		if v.UserID == id {
			delete(t.state.dailyTasks, k)
			delete(t.state.scheduleIndex, scheduleKey{v.UserID, v.TaskID, v.Date})
			delete(t.state.completions, k)
		}
	}
	return nil
}

func (t *memTx) UpdateStreak(ctx context.Context, id uuid.UUID, current, longest int, lastActive time.Time) error {
	u, ok := t.state.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.CurrentStreak = current
	u.LongestStreak = longest
	u.LastActiveDate = &lastActive
	u.UpdatedAt = t.now()
	t.state.users[id] = u
	return nil
}

func (t *memTx) SetCurrentChallenge(ctx context.Context, id uuid.UUID, challengeID *uuid.UUID) error {
	u, ok := t.state.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if challengeID != nil {
		c := *challengeID
		challengeID = &c
	}
	u.CurrentChallengeID = challengeID
	u.UpdatedAt = t.now()
	t.state.users[id] = u
	return nil
}

func (t *memTx) IncrementLevel(ctx context.Context, id uuid.UUID) (int, error) {
	u, ok := t.state.users[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	u.Level++
	u.UpdatedAt = t.now()
	t.state.users[id] = u
	return u.Level, nil
}

// Dimensions

func (t *memTx) UpsertDimension(ctx context.Context, d *dimension.Dimension) error {
	t.state.dimensions[d.ID] = *d
	return nil
}

func (t *memTx) ListDimensions(ctx context.Context) ([]dimension.Dimension, error) {
	dims := make([]dimension.Dimension, 0, len(t.state.dimensions))
	for _, d := range t.state.dimensions {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].Name < dims[j].Name })
	return dims, nil
}

func (t *memTx) GetDimension(ctx context.Context, id uuid.UUID) (*dimension.Dimension, error) {
	d, ok := t.state.dimensions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (t *memTx) CreateDimensionValues(ctx context.Context, userID uuid.UUID, dimensionIDs []uuid.UUID, baseline int) error {
	now := t.now()
	for _, dimID := range dimensionIDs {
		key := dimensionKey{userID, dimID}
		if _, exists := t.state.dimensionVals[key]; exists {
			continue
		}
		t.state.dimensionVals[key] = dimension.DimensionValue{
			ID:          uuid.New(),
			UserID:      userID,
			DimensionID: dimID,
			Score:       baseline,
			UpdatedAt:   now,
		}
	}
	return nil
}

func (t *memTx) IncrementDimensionValue(ctx context.Context, userID, dimensionID uuid.UUID, delta int) (int, error) {
	key := dimensionKey{userID, dimensionID}
	v, ok := t.state.dimensionVals[key]
	if !ok {
		return 0, store.ErrNotFound
	}
	v.Score += delta
	v.UpdatedAt = t.now()
	t.state.dimensionVals[key] = v
	return v.Score, nil
}

func (t *memTx) ListDimensionValues(ctx context.Context, userID uuid.UUID) ([]dimension.DimensionValueWithDimension, error) {
	var out []dimension.DimensionValueWithDimension
	for k, v := range t.state.dimensionVals {
		if k.userID != userID {
			continue
		}
		out = append(out, dimension.DimensionValueWithDimension{
			DimensionValue: v,
			Dimension:      t.state.dimensions[k.dimensionID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dimension.Name < out[j].Dimension.Name })
	return out, nil
}

// Challenges

func (t *memTx) UpsertChallenge(ctx context.Context, c *challenge.Challenge) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = t.now()
	}
	for i := range c.Tasks {
		if c.Tasks[i].CreatedAt.IsZero() {
			c.Tasks[i].CreatedAt = c.CreatedAt
		}
		t.state.tasks[c.Tasks[i].ID] = c.Tasks[i]
	}
	stored := *c
	stored.Tasks = append([]challenge.Task(nil), c.Tasks...)
	t.state.challenges[c.ID] = stored
	return nil
}

func (t *memTx) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	c, ok := t.state.challenges[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Tasks = append([]challenge.Task(nil), c.Tasks...)
	return &c, nil
}

func (t *memTx) ListPredefinedChallenges(ctx context.Context) ([]challenge.Challenge, error) {
	var out []challenge.Challenge
	for _, c := range t.state.challenges {
		if c.IsCustom {
			continue
		}
		c.Tasks = append([]challenge.Task(nil), c.Tasks...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Enrollments

func (t *memTx) CreateUserChallenge(ctx context.Context, uc *challenge.UserChallenge) error {
	for _, existing := range t.state.enrollments {
		if existing.UserID == uc.UserID && existing.Active() {
			return fmt.Errorf("active enrollment for user %s: %w", uc.UserID, store.ErrConflict)
		}
	}
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	uc.CreatedAt = t.now()
	stored := *uc
	stored.TaskIDs = append([]uuid.UUID(nil), uc.TaskIDs...)
	t.state.enrollments[uc.ID] = stored
	return nil
}

func (t *memTx) GetUserChallenge(ctx context.Context, id uuid.UUID) (*challenge.UserChallenge, error) {
	uc, ok := t.state.enrollments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	uc.TaskIDs = append([]uuid.UUID(nil), uc.TaskIDs...)
	return &uc, nil
}

func (t *memTx) GetActiveUserChallenge(ctx context.Context, userID uuid.UUID) (*challenge.UserChallenge, error) {
	for id, uc := range t.state.enrollments {
		if uc.UserID == userID && uc.Active() {
			return t.GetUserChallenge(ctx, id)
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	uc, ok := t.state.enrollments[id]
	if !ok {
		return store.ErrNotFound
	}
	uc.Progress = progress
	t.state.enrollments[id] = uc
	return nil
}

func (t *memTx) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	uc, ok := t.state.enrollments[id]
	if !ok {
		return store.ErrNotFound
	}
	uc.Completed = true
	uc.Progress = 100
	uc.CompletedAt = &at
	t.state.enrollments[id] = uc
	return nil
}

func (t *memTx) MarkAbandoned(ctx context.Context, id uuid.UUID, at time.Time) error {
	uc, ok := t.state.enrollments[id]
	if !ok {
		return store.ErrNotFound
	}
	uc.AbandonedAt = &at
	t.state.enrollments[id] = uc
	return nil
}

func (t *memTx) CountProgress(ctx context.Context, uc *challenge.UserChallenge) (int, int, error) {
	inSet := make(map[uuid.UUID]bool, len(uc.TaskIDs))
	for _, id := range uc.TaskIDs {
		inSet[id] = true
	}
	completed, total := 0, 0
	for id, dt := range t.state.dailyTasks {
		if dt.UserID != uc.UserID || !inSet[dt.TaskID] {
			continue
		}
		if dt.Date.Before(uc.StartDate) || !dt.Date.Before(uc.EndDate) {
			continue
		}
		total++
		if _, done := t.state.completions[id]; done {
			completed++
		}
	}
	return completed, total, nil
}

// Daily tasks

func (t *memTx) InsertDailyTasks(ctx context.Context, tasks []daily_task.DailyTask) (int, error) {
	inserted := 0
	now := t.now()
	for _, dt := range tasks {
		key := scheduleKey{dt.UserID, dt.TaskID, dt.Date}
		if _, exists := t.state.scheduleIndex[key]; exists {
			continue
		}
		if dt.ID == uuid.Nil {
			dt.ID = uuid.New()
		}
		dt.CreatedAt = now
		t.state.dailyTasks[dt.ID] = dt
		t.state.scheduleIndex[key] = dt.ID
		inserted++
	}
	return inserted, nil
}

func (t *memTx) withStatus(dt daily_task.DailyTask) daily_task.DailyTaskWithStatus {
	task := t.state.tasks[dt.TaskID]
	out := daily_task.DailyTaskWithStatus{
		DailyTask:   dt,
		TaskName:    task.Name,
		DimensionID: task.DimensionID,
	}
	if c, ok := t.state.completions[dt.ID]; ok {
		at := c.CompletedAt
		out.Completed = true
		out.CompletedAt = &at
	}
	return out
}

func (t *memTx) GetDailyTask(ctx context.Context, id uuid.UUID) (*daily_task.DailyTaskWithStatus, error) {
	dt, ok := t.state.dailyTasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := t.withStatus(dt)
	return &out, nil
}

func (t *memTx) ListDailyTasks(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]daily_task.DailyTaskWithStatus, error) {
	var out []daily_task.DailyTaskWithStatus
	for _, dt := range t.state.dailyTasks {
		if dt.UserID != userID || dt.Date.Before(from) || !dt.Date.Before(to) {
			continue
		}
		out = append(out, t.withStatus(dt))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return strings.Compare(out[i].TaskName, out[j].TaskName) < 0
	})
	return out, nil
}

func (t *memTx) LatestScheduledDay(ctx context.Context, userID uuid.UUID, before time.Time) (time.Time, error) {
	var latest time.Time
	found := false
	for _, dt := range t.state.dailyTasks {
		if dt.UserID != userID || !dt.Date.Before(before) {
			continue
		}
		if !found || dt.Date.After(latest) {
			latest = dt.Date
			found = true
		}
	}
	if !found {
		return time.Time{}, store.ErrNotFound
	}
	return latest, nil
}

// Completions

func (t *memTx) InsertCompletion(ctx context.Context, c *daily_task.CompletedTask) (bool, error) {
	if _, exists := t.state.completions[c.DailyTaskID]; exists {
		return false, nil
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	t.state.completions[c.DailyTaskID] = *c
	return true, nil
}
