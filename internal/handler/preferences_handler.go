package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/shared/errors"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// PreferencesHandler handles notification preferences and device tokens
type PreferencesHandler struct {
	prefs  *repository.PreferencesRepository
	tokens *repository.DeviceTokenRepository
	log    *logger.Logger
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(prefs *repository.PreferencesRepository, tokens *repository.DeviceTokenRepository, log *logger.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		prefs:  prefs,
		tokens: tokens,
		log:    log,
	}
}

// GetPreferences retrieves user notification preferences
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("user_id is required", nil))
		return
	}

	prefs, err := h.prefs.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to get preferences", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to get preferences", err))
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences applies a partial update to user preferences
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	userID := c.Param("user_id")

	var req domain.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	prefs, err := h.prefs.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to load preferences", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to update preferences", err))
		return
	}

	if req.Email != "" {
		prefs.Email = req.Email
	}
	if req.PhoneNumber != "" {
		prefs.PhoneNumber = req.PhoneNumber
	}
	if req.EmailEnabled != nil {
		prefs.EmailEnabled = *req.EmailEnabled
	}
	if req.SMSEnabled != nil {
		prefs.SMSEnabled = *req.SMSEnabled
	}
	if req.PushEnabled != nil {
		prefs.PushEnabled = *req.PushEnabled
	}
	if req.WhatsAppEnabled != nil {
		prefs.WhatsAppEnabled = *req.WhatsAppEnabled
	}

	if err := h.prefs.Update(c.Request.Context(), prefs); err != nil {
		h.log.Error("Failed to update preferences", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to update preferences", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Preferences updated successfully",
		"data":    prefs,
	})
}

// RegisterDevice registers a push device token
func (h *PreferencesHandler) RegisterDevice(c *gin.Context) {
	var req domain.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	token := &domain.DeviceToken{
		UserID:   req.UserID,
		Token:    req.Token,
		Platform: req.Platform,
	}

	if err := h.tokens.Register(c.Request.Context(), token); err != nil {
		h.log.Error("Failed to register device", "error", err, "user_id", req.UserID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to register device", err))
		return
	}

	c.JSON(http.StatusCreated, token)
}

// ListDevices lists a user's registered push tokens
func (h *PreferencesHandler) ListDevices(c *gin.Context) {
	userID := c.Param("user_id")

	tokens, err := h.tokens.FindByUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to list devices", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to list devices", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  tokens,
		"total": len(tokens),
	})
}

// DeleteDevice removes a registered push token
func (h *PreferencesHandler) DeleteDevice(c *gin.Context) {
	userID := c.Param("user_id")
	token := c.Param("token")

	if err := h.tokens.Delete(c.Request.Context(), userID, token); err != nil {
		h.log.Error("Failed to delete device", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to delete device", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Device deleted successfully",
	})
}
