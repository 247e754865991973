package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"task-weather-api/internal/repositories"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	tasks  repositories.TaskRepository
	logger *slog.Logger
}

type CreateTaskRequest struct {
	TaskName    string `json:"task_name" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func NewTaskHandler(tasks repositories.TaskRepository, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: discardIfNil(logger)}
}

// taskID treats a malformed id like a missing task.
func (h *TaskHandler) taskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, h.logger, repositories.ErrTaskNotFound)
		return 0, false
	}
	return uint(id), true
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "task_name is required")
		return
	}
	if strings.TrimSpace(req.TaskName) == "" {
		badRequest(c, "task_name must not be blank")
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), user.ID, repositories.TaskInput{
		TaskName:    req.TaskName,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	var patch repositories.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "request body must be a JSON object")
		return
	}
	if patch.TaskName != nil && strings.TrimSpace(*patch.TaskName) == "" {
		badRequest(c, "task_name must not be blank")
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), user.ID, id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	deleted, err := h.tasks.Delete(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !deleted {
		respondError(c, h.logger, repositories.ErrTaskNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
