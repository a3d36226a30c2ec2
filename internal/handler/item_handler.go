package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/shared/errors"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

const dateLayout = "2006-01-02"

// ItemHandler handles HTTP requests for tracked items
type ItemHandler struct {
	items     *repository.ItemRepository
	reminders *repository.ReminderRepository
	log       *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(items *repository.ItemRepository, reminders *repository.ReminderRepository, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		items:     items,
		reminders: reminders,
		log:       log,
	}
}

// CreateItem creates a new tracked item
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req domain.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	expiry, err := time.ParseInLocation(dateLayout, req.ExpiryDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("expiry_date must be YYYY-MM-DD", err))
		return
	}

	category := req.Category
	if category == "" {
		category = domain.ItemCategoryOther
	}

	item := &domain.Item{
		OwnerID:    req.OwnerID,
		Title:      req.Title,
		Category:   category,
		ExpiryDate: expiry,
		Notes:      req.Notes,
	}

	if err := h.items.Create(c.Request.Context(), item); err != nil {
		if err == repository.ErrDuplicateItem {
			c.JSON(http.StatusConflict, errors.NewConflictError("An item with this title already exists", err))
			return
		}
		h.log.Error("Failed to create item", "error", err, "owner_id", req.OwnerID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to create item", err))
		return
	}

	c.JSON(http.StatusCreated, item)
}

// GetItem retrieves a single item by ID
func (h *ItemHandler) GetItem(c *gin.Context) {
	id := c.Param("id")

	item, err := h.items.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Item not found", err))
		return
	}

	c.JSON(http.StatusOK, item)
}

// ListItems lists items owned by a user, soonest expiry first
func (h *ItemHandler) ListItems(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("owner_id is required", nil))
		return
	}

	items, err := h.items.FindByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.log.Error("Failed to list items", "error", err, "owner_id", ownerID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to list items", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"total": len(items),
	})
}

// UpdateItem applies a partial update to an item
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id := c.Param("id")

	var req domain.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	item, err := h.items.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Item not found", err))
		return
	}

	if req.Title != "" {
		item.Title = req.Title
	}
	if req.Category != "" {
		item.Category = req.Category
	}
	if req.ExpiryDate != "" {
		expiry, err := time.ParseInLocation(dateLayout, req.ExpiryDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewValidationError("expiry_date must be YYYY-MM-DD", err))
			return
		}
		item.ExpiryDate = expiry
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	if req.Completed != nil {
		item.Completed = *req.Completed
	}
	if req.SharedWith != nil {
		item.SharedWith = *req.SharedWith
	}

	if err := h.items.Update(c.Request.Context(), item); err != nil {
		h.log.Error("Failed to update item", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to update item", err))
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteItem deletes an item and cascade-deletes its reminder rules
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id := c.Param("id")

	item, err := h.items.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Item not found", err))
		return
	}

	if err := h.reminders.DeleteByItem(c.Request.Context(), item.ID); err != nil {
		h.log.Error("Failed to delete item rules", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to delete item", err))
		return
	}

	if err := h.items.Delete(c.Request.Context(), id); err != nil {
		h.log.Error("Failed to delete item", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to delete item", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item deleted successfully",
	})
}

// ShareItem grants another profile access to an item. Shared profiles also
// receive the item's reminders.
func (h *ItemHandler) ShareItem(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		ProfileID  string                 `json:"profile_id" binding:"required"`
		Capability domain.ShareCapability `json:"capability"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}
	if req.Capability == "" {
		req.Capability = domain.ShareCapabilityRead
	}

	item, err := h.items.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Item not found", err))
		return
	}

	for _, grant := range item.SharedWith {
		if grant.ProfileID == req.ProfileID {
			c.JSON(http.StatusConflict, errors.NewConflictError("Item is already shared with this profile", nil))
			return
		}
	}

	item.SharedWith = append(item.SharedWith, domain.ShareGrant{
		GrantID:    uuid.New().String(),
		ProfileID:  req.ProfileID,
		Capability: req.Capability,
		GrantedAt:  time.Now().UTC(),
	})

	if err := h.items.Update(c.Request.Context(), item); err != nil {
		h.log.Error("Failed to share item", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to share item", err))
		return
	}

	c.JSON(http.StatusOK, item)
}

// UnshareItem revokes a share grant
func (h *ItemHandler) UnshareItem(c *gin.Context) {
	id := c.Param("id")
	profileID := c.Param("profile_id")

	item, err := h.items.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Item not found", err))
		return
	}

	remaining := item.SharedWith[:0]
	found := false
	for _, grant := range item.SharedWith {
		if grant.ProfileID == profileID {
			found = true
			continue
		}
		remaining = append(remaining, grant)
	}
	if !found {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Share grant not found", nil))
		return
	}
	item.SharedWith = remaining

	if err := h.items.Update(c.Request.Context(), item); err != nil {
		h.log.Error("Failed to unshare item", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to unshare item", err))
		return
	}

	c.JSON(http.StatusOK, item)
}
