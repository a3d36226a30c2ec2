package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationPreferences represents a user's per-channel notification
// toggles together with the contact details each channel needs. Plan-tier
// restrictions are enforced when preferences are written; the pipeline
// trusts the stored toggles.
type NotificationPreferences struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID          string             `json:"user_id" bson:"user_id"`
	Email           string             `json:"email,omitempty" bson:"email,omitempty"`
	PhoneNumber     string             `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	EmailEnabled    bool               `json:"email_enabled" bson:"email_enabled"`
	SMSEnabled      bool               `json:"sms_enabled" bson:"sms_enabled"`
	PushEnabled     bool               `json:"push_enabled" bson:"push_enabled"`
	WhatsAppEnabled bool               `json:"whatsapp_enabled" bson:"whatsapp_enabled"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// EnabledChannels returns the channels the user has switched on, as a set
func (p *NotificationPreferences) EnabledChannels() ChannelSet {
	return ChannelSet{
		Email:    p.EmailEnabled,
		SMS:      p.SMSEnabled,
		Push:     p.PushEnabled,
		WhatsApp: p.WhatsAppEnabled,
	}
}
