package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nafsAPI/internal/apperr"
	"nafsAPI/internal/day"
	"nafsAPI/internal/store"
	"nafsAPI/internal/types/calendar"
	"nafsAPI/internal/types/user"
)

type UserService struct {
	base
	dimensions *DimensionService
}

func NewUserService(st store.Store, dimensions *DimensionService, clock day.Clock, log *zap.Logger) *UserService {
	return &UserService{base: newBase(st, clock, log), dimensions: dimensions}
}

// CreateUser sets up the account: the user row plus one baseline value per dimension.
func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
	}

	err := s.inTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.Wrap(apperr.Conflict, err, "user already exists")
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.dimensions.setup(ctx, tx, u.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user_created",
		zap.String("user_id", u.ID.String()),
		zap.String("clerk_id", u.ClerkID),
	)
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	var u *user.User
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUserByClerkID(ctx, clerkID)
		return notFound(err, "user not found")
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	var u *user.User
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.UpdateProfile(ctx, clerkID, req)
		return notFound(err, "user not found")
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	err := s.inTx(ctx, func(tx store.Tx) error {
		return notFound(tx.DeleteUserByClerkID(ctx, clerkID), "user not found")
	})
	if err != nil {
		return err
	}
	s.log.Info("user_deleted", zap.String("clerk_id", clerkID))
	return nil
}

// GetCalendar reports scheduled and completed instances for every day of the month.
func (s *UserService) GetCalendar(ctx context.Context, userID uuid.UUID, year int, month int) (*calendar.CalendarResponse, error) {
	if month < 1 || month > 12 {
		return nil, apperr.Newf(apperr.ValidationFailed, "invalid month %d", month)
	}
	if year < 1970 || year > 9999 {
		return nil, apperr.Newf(apperr.ValidationFailed, "invalid year %d", year)
	}

	startDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 1, 0)
	today := day.Of(s.clock.Now())

	days := make([]*calendar.CalendarDay, 0, day.Between(startDate, endDate))
	index := make(map[string]*calendar.CalendarDay)
	for d := startDate; d.Before(endDate); d = d.AddDate(0, 0, 1) {
		cd := &calendar.CalendarDay{Date: d, IsToday: d.Equal(today)}
		days = append(days, cd)
		index[d.Format(time.DateOnly)] = cd
	}

	err := s.inTx(ctx, func(tx store.Tx) error {
		uc, err := activeEnrollment(ctx, tx, userID)
		if err != nil {
			return err
		}
		tasks, err := tx.ListDailyTasks(ctx, userID, startDate, endDate)
		if err != nil {
			return fmt.Errorf("failed to fetch calendar: %w", err)
		}
		for _, t := range tasks {
			cd, ok := index[day.Of(t.Date).Format(time.DateOnly)]
			if !ok {
				continue
			}
			// from today on only the live schedule is shown
			if !day.Of(t.Date).Before(today) && !live(t, uc) {
				continue
			}
			cd.ScheduledTasks++
			if t.Completed {
				cd.CompletedTasks++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, cd := range days {
		cd.DayCompleted = cd.ScheduledTasks > 0 && cd.CompletedTasks == cd.ScheduledTasks
	}

	return &calendar.CalendarResponse{
		Year:  year,
		Month: month,
		Days:  days,
	}, nil
}
