package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/paperroom/completion"
	"github.com/cppla/paperroom/middleware"
	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/points"
	"github.com/cppla/paperroom/store"
	"github.com/cppla/paperroom/tasks"
	"github.com/cppla/paperroom/utils"
)

// TaskController serves task CRUD and completion inside a room.
type TaskController struct {
	tasks       *tasks.Service
	coordinator *completion.Coordinator
	reader      store.Reader
}

func NewTaskController(svc *tasks.Service, coord *completion.Coordinator, reader store.Reader) *TaskController {
	return &TaskController{tasks: svc, coordinator: coord, reader: reader}
}

type createTaskRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Tag         string          `json:"tag"`
	Priority    models.Priority `json:"priority"`
	Daily       bool            `json:"daily"`
	Deadline    *time.Time      `json:"deadline"`
	Subtasks    int             `json:"subtasks"`
}

type updateTaskRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Tag           *string          `json:"tag"`
	Priority      *models.Priority `json:"priority"`
	Daily         *bool            `json:"daily"`
	Deadline      *time.Time       `json:"deadline"`
	ClearDeadline bool             `json:"clear_deadline"`
}

// List returns the room's live tasks with their completedBy sets.
func (t *TaskController) List(ctx *gin.Context) {
	items, err := t.tasks.List(ctx.Request.Context(), middleware.CurrentRoomID(ctx))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to list tasks")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Create adds a task. Its XP value is fixed here.
func (t *TaskController) Create(ctx *gin.Context) {
	var req createTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}

	task, err := t.tasks.Create(ctx.Request.Context(), middleware.CurrentUserID(ctx), middleware.CurrentRoomID(ctx), tasks.Draft{
		Title:       utils.SanitizeText(req.Title),
		Description: utils.SanitizeRich(req.Description),
		Tag:         utils.SanitizeText(req.Tag),
		Priority:    req.Priority,
		Daily:       req.Daily,
		Deadline:    req.Deadline,
		Subtasks:    req.Subtasks,
	})
	if err != nil {
		taskError(ctx, err)
		return
	}
	utils.Created(ctx, task)
}

// Update edits a task. XP is never recomputed.
func (t *TaskController) Update(ctx *gin.Context) {
	taskID, ok := taskIDParam(ctx)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}

	patch := tasks.Patch{
		Priority:      req.Priority,
		Daily:         req.Daily,
		Deadline:      req.Deadline,
		ClearDeadline: req.ClearDeadline,
	}
	if req.Title != nil {
		s := utils.SanitizeText(*req.Title)
		patch.Title = &s
	}
	if req.Description != nil {
		s := utils.SanitizeRich(*req.Description)
		patch.Description = &s
	}
	if req.Tag != nil {
		s := utils.SanitizeText(*req.Tag)
		patch.Tag = &s
	}

	task, err := t.tasks.Update(ctx.Request.Context(), middleware.CurrentUserID(ctx), middleware.CurrentRoomID(ctx), taskID, patch)
	if err != nil {
		taskError(ctx, err)
		return
	}
	utils.Success(ctx, task)
}

// Delete soft-deletes a task.
func (t *TaskController) Delete(ctx *gin.Context) {
	taskID, ok := taskIDParam(ctx)
	if !ok {
		return
	}
	if err := t.tasks.Delete(ctx.Request.Context(), middleware.CurrentUserID(ctx), middleware.CurrentRoomID(ctx), taskID); err != nil {
		taskError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": taskID})
}

// Complete records the caller's completion and returns the awarded XP and lifetime stats.
func (t *TaskController) Complete(ctx *gin.Context) {
	taskID, ok := taskIDParam(ctx)
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)
	roomID := middleware.CurrentRoomID(ctx)

	level := 1
	life, err := t.reader.UserStats(ctx.Request.Context(), userID)
	switch {
	case err == nil:
		level = points.LevelForXP(life.XP)
	case !errors.Is(err, store.ErrNotFound):
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load user stats")
		return
	}

	res, err := t.coordinator.Complete(ctx.Request.Context(), completion.Request{
		TaskID:       taskID,
		UserID:       userID,
		RoomID:       roomID,
		CurrentLevel: level,
	})
	switch {
	case err == nil:
		middleware.ObserveCompletion(middleware.OutcomeCompleted)
		utils.InvalidateByPrefix(ctx.Request.Context(), utils.ChartCachePrefix(roomID))
		utils.Success(ctx, res)
	case errors.Is(err, completion.ErrNotFound):
		middleware.ObserveCompletion(middleware.OutcomeNotFound)
		utils.Error(ctx, http.StatusNotFound, utils.CodeTaskNotFound, "task not found")
	case errors.Is(err, completion.ErrAlreadyCompleted):
		middleware.ObserveCompletion(middleware.OutcomeAlreadyCompleted)
		utils.Error(ctx, http.StatusConflict, utils.CodeAlreadyCompleted, "task already completed")
	default:
		middleware.ObserveCompletion(middleware.OutcomeFailed)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeTransaction, "completion failed, please retry")
	}
}

func taskIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("taskId"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid task id")
		return 0, false
	}
	return uint(id), true
}

func taskError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, tasks.ErrInvalid):
		utils.Error(ctx, http.StatusBadRequest, utils.CodeValidation, err.Error())
	case errors.Is(err, tasks.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, utils.CodeTaskNotFound, "task not found")
	default:
		utils.Sugar.Errorf("task operation failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "task operation failed")
	}
}
