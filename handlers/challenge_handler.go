package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"nafsAPI/internal/types/challenge"
	"nafsAPI/internal/types/dimension"
	"nafsAPI/services"
)

type ChallengeHandler struct {
	userService      *services.UserService
	challengeService *services.ChallengeService
	scheduleService  *services.ScheduleService
	dimensionService *services.DimensionService
}

func NewChallengeHandler(userService *services.UserService, challengeService *services.ChallengeService, scheduleService *services.ScheduleService, dimensionService *services.DimensionService) *ChallengeHandler {
	return &ChallengeHandler{
		userService:      userService,
		challengeService: challengeService,
		scheduleService:  scheduleService,
		dimensionService: dimensionService,
	}
}

func (h *ChallengeHandler) ListDimensions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var dims []dimension.Dimension
	err := withRetry(ctx, func() error {
		var err error
		dims, err = h.dimensionService.ListDimensions(ctx)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dims)
}

func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var challenges []challenge.Challenge
	err := withRetry(ctx, func() error {
		var err error
		challenges, err = h.challengeService.ListChallenges(ctx)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if challenges == nil {
		challenges = []challenge.Challenge{}
	}

	respondWithJSON(w, http.StatusOK, challenges)
}

func (h *ChallengeHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var current *challenge.UserChallengeWithChallenge
	err = withRetry(ctx, func() error {
		var err error
		current, err = h.challengeService.GetCurrentChallenge(ctx, u.ID)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, current)
}

func (h *ChallengeHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var status *challenge.ChallengeStatus
	err = withRetry(ctx, func() error {
		var err error
		status, err = h.challengeService.GetChallengeStatus(ctx, u.ID)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

func (h *ChallengeHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var req challenge.EnrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	templateID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid challenge_id")
		return
	}

	var resp *challenge.EnrollResponse
	err = withRetry(ctx, func() error {
		var err error
		resp, err = h.challengeService.EnrollInTemplate(ctx, u.ID, templateID, req.SelectedTasks, req.NextDay)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *ChallengeHandler) CreateCustom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var req challenge.CustomChallengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	var resp *challenge.EnrollResponse
	err = withRetry(ctx, func() error {
		var err error
		resp, err = h.challengeService.CreateCustomChallenge(ctx, u.ID, &req)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *ChallengeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	enrollmentID, err := pathUUID(r, "enrollmentId")
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var inserted int
	err = withRetry(ctx, func() error {
		var err error
		inserted, err = h.scheduleService.GenerateDailyTasks(ctx, u.ID, enrollmentID)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"inserted": inserted,
	})
}

func (h *ChallengeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, h.challengeService.CompleteChallenge)
}

func (h *ChallengeHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, h.challengeService.AbandonChallenge)
}

func (h *ChallengeHandler) finish(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, uuid.UUID) (*challenge.CompleteChallengeResponse, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	enrollmentID, err := pathUUID(r, "enrollmentId")
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var resp *challenge.CompleteChallengeResponse
	err = withRetry(ctx, func() error {
		var err error
		resp, err = op(ctx, u.ID, enrollmentID)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

