package handlers

import (
	"context"
	"net/http"
	"time"

	"nafsAPI/internal/types/daily_task"
	"nafsAPI/services"
)

type TaskHandler struct {
	userService     *services.UserService
	taskService     *services.TaskService
	scheduleService *services.ScheduleService
}

func NewTaskHandler(userService *services.UserService, taskService *services.TaskService, scheduleService *services.ScheduleService) *TaskHandler {
	return &TaskHandler{
		userService:     userService,
		taskService:     taskService,
		scheduleService: scheduleService,
	}
}

// Today returns today's task instances, backfilling them when the schedule has a gap.
func (h *TaskHandler) Today(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var tasks []daily_task.DailyTaskWithStatus
	err = withRetry(ctx, func() error {
		var err error
		tasks, err = h.scheduleService.GetTodayTasks(ctx, u.ID)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := currentUser(ctx, h.userService)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	dailyTaskID, err := pathUUID(r, "dailyTaskId")
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var resp *daily_task.CompleteTaskResponse
	err = withRetry(ctx, func() error {
		var err error
		resp, err = h.taskService.CompleteTask(ctx, u.ID, dailyTaskID)
		return err
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
