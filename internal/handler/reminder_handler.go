package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/shared/errors"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderHandler handles HTTP requests for reminder rules
type ReminderHandler struct {
	reminders *repository.ReminderRepository
	items     *repository.ItemRepository
	log       *logger.Logger
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(reminders *repository.ReminderRepository, items *repository.ItemRepository, log *logger.Logger) *ReminderHandler {
	return &ReminderHandler{
		reminders: reminders,
		items:     items,
		log:       log,
	}
}

// CreateReminder attaches a reminder rule to an item
func (h *ReminderHandler) CreateReminder(c *gin.Context) {
	var req domain.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	itemID, err := primitive.ObjectIDFromHex(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid item_id", err))
		return
	}

	if _, err := h.items.FindByObjectID(c.Request.Context(), itemID); err != nil {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Item not found", err))
		return
	}

	if req.Channels.IsEmpty() {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("At least one channel is required", nil))
		return
	}

	rule := &domain.ReminderRule{
		ItemID:          itemID,
		Kind:            req.Kind,
		Recurrence:      domain.RecurrenceNone,
		StartDaysBefore: req.StartDaysBefore,
		Channels:        req.Channels,
		Message:         req.Message,
	}

	switch req.Kind {
	case domain.ScheduleKindOneShot:
		if req.ScheduledAt == "" {
			c.JSON(http.StatusBadRequest, errors.NewValidationError("scheduled_at is required for one-shot rules", nil))
			return
		}
		scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewValidationError("scheduled_at must be RFC3339", err))
			return
		}
		rule.ScheduledAt = &scheduledAt

	case domain.ScheduleKindRecurring:
		if req.Recurrence != domain.RecurrenceDaily && req.Recurrence != domain.RecurrenceEvery2Days {
			c.JSON(http.StatusBadRequest, errors.NewValidationError("recurrence must be daily or every_2_days", nil))
			return
		}
		if req.StartDaysBefore < 0 {
			c.JSON(http.StatusBadRequest, errors.NewValidationError("start_days_before must not be negative", nil))
			return
		}
		rule.Recurrence = req.Recurrence

	default:
		c.JSON(http.StatusBadRequest, errors.NewValidationError("kind must be one_shot or recurring", nil))
		return
	}

	if err := h.reminders.Create(c.Request.Context(), rule); err != nil {
		h.log.Error("Failed to create reminder rule", "error", err, "item_id", req.ItemID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to create reminder", err))
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetReminder retrieves a single reminder rule by ID
func (h *ReminderHandler) GetReminder(c *gin.Context) {
	id := c.Param("id")

	rule, err := h.reminders.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Reminder not found", err))
		return
	}

	c.JSON(http.StatusOK, rule)
}

// ListReminders lists the rules attached to an item
func (h *ReminderHandler) ListReminders(c *gin.Context) {
	itemID, err := primitive.ObjectIDFromHex(c.Query("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid item_id", err))
		return
	}

	rules, err := h.reminders.FindByItem(c.Request.Context(), itemID)
	if err != nil {
		h.log.Error("Failed to list reminders", "error", err, "item_id", itemID.Hex())
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to list reminders", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  rules,
		"total": len(rules),
	})
}

// DeleteReminder deletes a reminder rule
func (h *ReminderHandler) DeleteReminder(c *gin.Context) {
	id := c.Param("id")

	if _, err := h.reminders.FindByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Reminder not found", err))
		return
	}

	if err := h.reminders.Delete(c.Request.Context(), id); err != nil {
		h.log.Error("Failed to delete reminder", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to delete reminder", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reminder deleted successfully",
	})
}
