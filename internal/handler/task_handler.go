package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/shared/errors"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskHandler exposes the notification task history
type TaskHandler struct {
	tasks    *repository.TaskRepository
	attempts *repository.AttemptRepository
	log      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *repository.TaskRepository, attempts *repository.AttemptRepository, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:    tasks,
		attempts: attempts,
		log:      log,
	}
}

// ListTasks lists notification tasks with pagination
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var req domain.ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	tasks, total, err := h.tasks.FindByRecipient(c.Request.Context(), req.RecipientID, req.Sent, req.Page, req.PageSize)
	if err != nil {
		h.log.Error("Failed to list tasks", "error", err, "recipient_id", req.RecipientID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to list tasks", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      tasks,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

// GetTaskAttempts returns the per-channel delivery history of a task
func (h *TaskHandler) GetTaskAttempts(c *gin.Context) {
	taskID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid task ID", err))
		return
	}

	attempts, err := h.attempts.FindByTask(c.Request.Context(), taskID)
	if err != nil {
		h.log.Error("Failed to get task attempts", "error", err, "task_id", taskID.Hex())
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to get attempts", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  attempts,
		"total": len(attempts),
	})
}
