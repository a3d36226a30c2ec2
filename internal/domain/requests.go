package domain

// CreateItemRequest represents a request to create an item
type CreateItemRequest struct {
	OwnerID    string       `json:"owner_id" binding:"required"`
	Title      string       `json:"title" binding:"required"`
	Category   ItemCategory `json:"category"`
	ExpiryDate string       `json:"expiry_date" binding:"required"` // YYYY-MM-DD
	Notes      string       `json:"notes"`
}

// UpdateItemRequest represents a request to update an item
type UpdateItemRequest struct {
	Title      string        `json:"title"`
	Category   ItemCategory  `json:"category"`
	ExpiryDate string        `json:"expiry_date"`
	Notes      *string       `json:"notes"`
	Completed  *bool         `json:"completed"`
	SharedWith *[]ShareGrant `json:"shared_with"`
}

// CreateReminderRequest represents a request to attach a rule to an item
type CreateReminderRequest struct {
	ItemID          string       `json:"item_id" binding:"required"`
	Kind            ScheduleKind `json:"kind" binding:"required"`
	ScheduledAt     string       `json:"scheduled_at"` // RFC3339, one-shot only
	Recurrence      Recurrence   `json:"recurrence"`
	StartDaysBefore int          `json:"start_days_before"`
	Channels        ChannelSet   `json:"channels"`
	Message         string       `json:"message"`
}

// UpdatePreferencesRequest represents a request to update channel toggles
type UpdatePreferencesRequest struct {
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	EmailEnabled    *bool  `json:"email_enabled"`
	SMSEnabled      *bool  `json:"sms_enabled"`
	PushEnabled     *bool  `json:"push_enabled"`
	WhatsAppEnabled *bool  `json:"whatsapp_enabled"`
}

// RegisterDeviceRequest represents a request to register a push token
type RegisterDeviceRequest struct {
	UserID   string         `json:"user_id" binding:"required"`
	Token    string         `json:"token" binding:"required"`
	Platform DevicePlatform `json:"platform" binding:"required"`
}

// ListTasksRequest represents a query for notification tasks
type ListTasksRequest struct {
	RecipientID string `form:"recipient_id"`
	Sent        *bool  `form:"sent"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}
