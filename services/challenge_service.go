package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nafsAPI/internal/apperr"
	"nafsAPI/internal/day"
	"nafsAPI/internal/store"
	"nafsAPI/internal/types/challenge"
	"nafsAPI/internal/types/user"
)

const customIcon = "custom"

type ChallengeService struct {
	base
	schedule *ScheduleService
}

func NewChallengeService(st store.Store, schedule *ScheduleService, clock day.Clock, log *zap.Logger) *ChallengeService {
	return &ChallengeService{base: newBase(st, clock, log), schedule: schedule}
}

// Progress is the rounded share of completed instances. It only reaches 100
// when every scheduled instance is completed.
func Progress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	p := int(math.Round(float64(completed) * 100 / float64(total)))
	if p > 99 {
		p = 99
	}
	return p
}

// recomputeProgress derives progress from completion counts and persists it when it moved.
func (s *ChallengeService) recomputeProgress(ctx context.Context, tx store.Tx, uc *challenge.UserChallenge) (int, error) {
	completed, total, err := tx.CountProgress(ctx, uc)
	if err != nil {
		return 0, err
	}
	progress := Progress(completed, total)
	if progress != uc.Progress {
		if err := tx.UpdateProgress(ctx, uc.ID, progress); err != nil {
			return 0, fmt.Errorf("failed to update progress: %w", err)
		}
		uc.Progress = progress
	}
	return progress, nil
}

func readyToComplete(uc *challenge.UserChallenge, progress int, today time.Time) bool {
	return progress == 100 || !today.Before(uc.EndDate)
}

// enroll creates the enrollment, points the user at the template and schedules the window.
func (s *ChallengeService) enroll(ctx context.Context, tx store.Tx, u *user.User, tmpl *challenge.Challenge, taskIDs []uuid.UUID, nextDay bool) (*challenge.EnrollResponse, error) {
	if len(taskIDs) == 0 {
		return nil, apperr.New(apperr.ValidationFailed, "a challenge needs at least one task")
	}

	_, err := tx.GetActiveUserChallenge(ctx, u.ID)
	if err == nil {
		return nil, apperr.ErrActiveEnrollment
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check active challenge: %w", err)
	}

	start := day.Of(s.clock.Now())
	if nextDay {
		start = day.Add(start, 1)
	}

	uc := &challenge.UserChallenge{
		UserID:      u.ID,
		ChallengeID: tmpl.ID,
		TaskIDs:     taskIDs,
		StartDate:   start,
		EndDate:     day.Add(start, tmpl.Duration),
	}
	if err := tx.CreateUserChallenge(ctx, uc); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.ErrActiveEnrollment
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	if err := tx.SetCurrentChallenge(ctx, u.ID, &tmpl.ID); err != nil {
		return nil, fmt.Errorf("failed to set current challenge: %w", err)
	}

	inserted, err := s.schedule.schedule(ctx, tx, uc)
	if err != nil {
		return nil, err
	}

	return &challenge.EnrollResponse{
		Success:      true,
		EnrollmentID: uc.ID,
		ChallengeID:  tmpl.ID,
		StartDate:    uc.StartDate,
		EndDate:      uc.EndDate,
		DailyTasks:   inserted,
	}, nil
}

// selectTasks resolves template task indexes. No indexes selects every task.
func selectTasks(tmpl *challenge.Challenge, indexes []int) ([]uuid.UUID, error) {
	if len(indexes) == 0 {
		return tmpl.TaskIDs(), nil
	}

	seen := make(map[int]bool, len(indexes))
	ids := make([]uuid.UUID, 0, len(indexes))
	for _, i := range indexes {
		if i < 0 || i >= len(tmpl.Tasks) {
			return nil, apperr.Newf(apperr.ValidationFailed, "task index %d out of range", i)
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		ids = append(ids, tmpl.Tasks[i].ID)
	}
	return ids, nil
}

func (s *ChallengeService) EnrollInTemplate(ctx context.Context, userID, templateID uuid.UUID, selected []int, nextDay bool) (*challenge.EnrollResponse, error) {
	var resp *challenge.EnrollResponse
	err := s.inTx(ctx, func(tx store.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}

		tmpl, err := tx.GetChallenge(ctx, templateID)
		if err != nil {
			return notFound(err, "challenge not found")
		}
		if tmpl.IsCustom {
			return apperr.New(apperr.NotFound, "challenge not found")
		}

		taskIDs, err := selectTasks(tmpl, selected)
		if err != nil {
			return err
		}

		resp, err = s.enroll(ctx, tx, u, tmpl, taskIDs, nextDay)
		return err
	})
	if err != nil {
		return nil, err
	}

	enrollmentsCreated.WithLabelValues("template").Inc()
	s.log.Info("enrollment_created",
		zap.String("user_id", userID.String()),
		zap.String("challenge_id", templateID.String()),
		zap.String("enrollment_id", resp.EnrollmentID.String()),
		zap.Bool("next_day", nextDay),
		zap.Int("daily_tasks", resp.DailyTasks),
	)
	return resp, nil
}

func (s *ChallengeService) CreateCustomChallenge(ctx context.Context, userID uuid.UUID, req *challenge.CustomChallengeRequest) (*challenge.EnrollResponse, error) {
	if len(req.Tasks) < 1 {
		return nil, apperr.New(apperr.ValidationFailed, "a custom challenge needs at least one task")
	}
	if req.Duration < 1 {
		return nil, apperr.New(apperr.ValidationFailed, "duration must be at least one day")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.New(apperr.ValidationFailed, "title is required")
	}

	dimensionIDs := make([]uuid.UUID, len(req.Tasks))
	for i, t := range req.Tasks {
		id, err := uuid.Parse(t.DimensionID)
		if err != nil {
			return nil, apperr.Newf(apperr.ValidationFailed, "invalid dimension id %q", t.DimensionID)
		}
		if strings.TrimSpace(t.Name) == "" {
			return nil, apperr.New(apperr.ValidationFailed, "task name is required")
		}
		dimensionIDs[i] = id
	}

	var resp *challenge.EnrollResponse
	err := s.inTx(ctx, func(tx store.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}

		if _, err := tx.GetActiveUserChallenge(ctx, u.ID); err == nil {
			return apperr.ErrActiveEnrollment
		}

		createdBy := u.ID
		tmpl := &challenge.Challenge{
			ID:          uuid.New(),
			Name:        title,
			Description: req.Description,
			Duration:    req.Duration,
			Icon:        customIcon,
			IsCustom:    true,
			CreatedBy:   &createdBy,
		}
		for i, t := range req.Tasks {
			if _, err := tx.GetDimension(ctx, dimensionIDs[i]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return apperr.Newf(apperr.ValidationFailed, "unknown dimension %s", dimensionIDs[i])
				}
				return err
			}
			tmpl.Tasks = append(tmpl.Tasks, challenge.Task{
				ID:          uuid.New(),
				Name:        strings.TrimSpace(t.Name),
				DimensionID: dimensionIDs[i],
				Points:      1,
			})
		}

		if err := tx.UpsertChallenge(ctx, tmpl); err != nil {
			return fmt.Errorf("failed to create custom challenge: %w", err)
		}

		resp, err = s.enroll(ctx, tx, u, tmpl, tmpl.TaskIDs(), req.NextDay)
		return err
	})
	if err != nil {
		return nil, err
	}

	enrollmentsCreated.WithLabelValues("custom").Inc()
	s.log.Info("custom_challenge_created",
		zap.String("user_id", userID.String()),
		zap.String("challenge_id", resp.ChallengeID.String()),
		zap.String("enrollment_id", resp.EnrollmentID.String()),
		zap.Int("duration", req.Duration),
		zap.Int("tasks", len(req.Tasks)),
	)
	return resp, nil
}

// ownedActive loads enrollmentID and checks it is the user's active enrollment.
func ownedActive(ctx context.Context, tx store.Tx, userID, enrollmentID uuid.UUID) (*challenge.UserChallenge, error) {
	uc, err := tx.GetUserChallenge(ctx, enrollmentID)
	if err != nil {
		return nil, notFound(err, "challenge not found")
	}
	if uc.UserID != userID {
		return nil, apperr.New(apperr.Forbidden, "challenge belongs to another user")
	}
	if !uc.Active() {
		return nil, apperr.New(apperr.Forbidden, "challenge is no longer active")
	}
	return uc, nil
}

// CompleteChallenge closes the active enrollment and levels the user up.
// Re-enrollment is a separate call.
func (s *ChallengeService) CompleteChallenge(ctx context.Context, userID, enrollmentID uuid.UUID) (*challenge.CompleteChallengeResponse, error) {
	now := s.clock.Now()

	var level int
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockUser(ctx, userID); err != nil {
			return notFound(err, "user not found")
		}
		uc, err := ownedActive(ctx, tx, userID, enrollmentID)
		if err != nil {
			return err
		}

		if err := tx.MarkCompleted(ctx, uc.ID, now); err != nil {
			return fmt.Errorf("failed to complete challenge: %w", err)
		}
		if err := tx.SetCurrentChallenge(ctx, userID, nil); err != nil {
			return fmt.Errorf("failed to clear current challenge: %w", err)
		}
		level, err = tx.IncrementLevel(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	challengesFinished.WithLabelValues("completed").Inc()
	s.log.Info("challenge_completed",
		zap.String("user_id", userID.String()),
		zap.String("enrollment_id", enrollmentID.String()),
		zap.Int("level", level),
	)
	return &challenge.CompleteChallengeResponse{Success: true, EnrollmentID: enrollmentID, Level: level}, nil
}

// AbandonChallenge ends the active enrollment without completing it.
func (s *ChallengeService) AbandonChallenge(ctx context.Context, userID, enrollmentID uuid.UUID) (*challenge.CompleteChallengeResponse, error) {
	now := s.clock.Now()

	var level int
	err := s.inTx(ctx, func(tx store.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}
		uc, err := ownedActive(ctx, tx, userID, enrollmentID)
		if err != nil {
			return err
		}

		if err := tx.MarkAbandoned(ctx, uc.ID, now); err != nil {
			return fmt.Errorf("failed to abandon challenge: %w", err)
		}
		level = u.Level
		return tx.SetCurrentChallenge(ctx, userID, nil)
	})
	if err != nil {
		return nil, err
	}

	challengesFinished.WithLabelValues("abandoned").Inc()
	s.log.Info("challenge_abandoned",
		zap.String("user_id", userID.String()),
		zap.String("enrollment_id", enrollmentID.String()),
	)
	return &challenge.CompleteChallengeResponse{Success: true, EnrollmentID: enrollmentID, Level: level}, nil
}

func (s *ChallengeService) GetCurrentChallenge(ctx context.Context, userID uuid.UUID) (*challenge.UserChallengeWithChallenge, error) {
	var out *challenge.UserChallengeWithChallenge
	err := s.inTx(ctx, func(tx store.Tx) error {
		uc, err := tx.GetActiveUserChallenge(ctx, userID)
		if err != nil {
			return notFound(err, "no active challenge")
		}
		tmpl, err := tx.GetChallenge(ctx, uc.ChallengeID)
		if err != nil {
			return notFound(err, "challenge not found")
		}
		out = &challenge.UserChallengeWithChallenge{UserChallenge: *uc, Challenge: tmpl}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ChallengeService) GetChallengeStatus(ctx context.Context, userID uuid.UUID) (*challenge.ChallengeStatus, error) {
	today := day.Of(s.clock.Now())

	var status *challenge.ChallengeStatus
	err := s.inTx(ctx, func(tx store.Tx) error {
		uc, err := tx.GetActiveUserChallenge(ctx, userID)
		if err != nil {
			return notFound(err, "no active challenge")
		}
		completed, total, err := tx.CountProgress(ctx, uc)
		if err != nil {
			return err
		}

		duration := day.Between(uc.StartDate, uc.EndDate)
		progress := Progress(completed, total)
		status = &challenge.ChallengeStatus{
			EnrollmentID:    uc.ID,
			ChallengeID:     uc.ChallengeID,
			Progress:        progress,
			ScheduledTasks:  total,
			CompletedTasks:  completed,
			DaysElapsed:     clamp(day.Between(uc.StartDate, today)+1, 0, duration),
			DaysRemaining:   clamp(day.Between(today, uc.EndDate)-1, 0, duration),
			ReadyToComplete: readyToComplete(uc, progress, today),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (s *ChallengeService) ListChallenges(ctx context.Context) ([]challenge.Challenge, error) {
	var out []challenge.Challenge
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListPredefinedChallenges(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
