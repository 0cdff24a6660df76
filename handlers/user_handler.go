package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"nafsAPI/internal/types/calendar"
	"nafsAPI/internal/types/dimension"
	"nafsAPI/internal/types/streak"
	"nafsAPI/internal/types/user"
	"nafsAPI/services"
)

type UserHandler struct {
	userService      *services.UserService
	dimensionService *services.DimensionService
	streakService    *services.StreakService
}

func NewUserHandler(userService *services.UserService, dimensionService *services.DimensionService, streakService *services.StreakService) *UserHandler {
	return &UserHandler{
		userService:      userService,
		dimensionService: dimensionService,
		streakService:    streakService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var req user.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	var updated *user.User
	err = withRetry(ctx, func() error {
		var err error
		updated, err = h.userService.UpdateProfileByClerkID(ctx, u.ClerkID, &req)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	err = withRetry(ctx, func() error {
		return h.userService.DeleteUserByClerkID(ctx, u.ClerkID)
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *UserHandler) GetDimensions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var dims []dimension.DimensionValueWithDimension
	err = withRetry(ctx, func() error {
		var err error
		dims, err = h.dimensionService.GetUserDimensions(ctx, u.ID)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dims)
}

// GetCalendar defaults to the current UTC month when year or month is omitted.
func (h *UserHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid year")
			return
		}
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		if month, err = strconv.Atoi(raw); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid month")
			return
		}
	}

	var cal *calendar.CalendarResponse
	err = withRetry(ctx, func() error {
		var err error
		cal, err = h.userService.GetCalendar(ctx, u.ID, year, month)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, cal)
}

func (h *UserHandler) CheckStreak(w http.ResponseWriter, r *http.Request) {
	h.runStreak(w, r, h.streakService.CheckStreak)
}

func (h *UserHandler) CompleteDay(w http.ResponseWriter, r *http.Request) {
	h.runStreak(w, r, h.streakService.CompleteDayAndUpdateStreak)
}

func (h *UserHandler) runStreak(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*streak.CompleteDayResponse, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var resp *streak.CompleteDayResponse
	err = withRetry(ctx, func() error {
		var err error
		resp, err = op(ctx, u.ID)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
