package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel represents a delivery medium for reminder notifications
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelPush     Channel = "push"
	ChannelWhatsApp Channel = "whatsapp"
)

// Channels lists every supported channel in the fixed evaluation order.
// Capability checks and dispatch iterate in this order so behavior is
// deterministic.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelWhatsApp}

// ItemCategory represents the kind of expiring item being tracked
type ItemCategory string

const (
	ItemCategoryLicense      ItemCategory = "license"
	ItemCategoryPassport     ItemCategory = "passport"
	ItemCategoryInsurance    ItemCategory = "insurance"
	ItemCategorySubscription ItemCategory = "subscription"
	ItemCategoryOther        ItemCategory = "other"
)

// ShareCapability represents what a share grant allows
type ShareCapability string

const (
	ShareCapabilityRead   ShareCapability = "read"
	ShareCapabilityManage ShareCapability = "manage"
)

// ShareGrant gives another profile access to an item without transferring
// ownership. Shared profiles also receive the item's reminders.
type ShareGrant struct {
	GrantID    string          `json:"grant_id" bson:"grant_id"`
	ProfileID  string          `json:"profile_id" bson:"profile_id"`
	Capability ShareCapability `json:"capability" bson:"capability"`
	GrantedAt  time.Time       `json:"granted_at" bson:"granted_at"`
}

// Item represents a tracked entity with an expiry date.
// Unique per (owner_id, title).
type Item struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OwnerID    string             `json:"owner_id" bson:"owner_id"`
	Title      string             `json:"title" bson:"title"`
	Category   ItemCategory       `json:"category" bson:"category"`
	ExpiryDate time.Time          `json:"expiry_date" bson:"expiry_date"`
	Notes      string             `json:"notes,omitempty" bson:"notes,omitempty"`
	Completed  bool               `json:"completed" bson:"completed"`
	SharedWith []ShareGrant       `json:"shared_with,omitempty" bson:"shared_with,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

// ScheduleKind represents how a reminder rule is scheduled
type ScheduleKind string

const (
	ScheduleKindOneShot   ScheduleKind = "one_shot"
	ScheduleKindRecurring ScheduleKind = "recurring"
)

// Recurrence represents the recurrence pattern of a recurring rule
type Recurrence string

const (
	RecurrenceNone       Recurrence = "none"
	RecurrenceDaily      Recurrence = "daily"
	RecurrenceEvery2Days Recurrence = "every_2_days"
)

// ChannelSet holds the per-channel requested flags of a rule or task
type ChannelSet struct {
	Email    bool `json:"email" bson:"email"`
	SMS      bool `json:"sms" bson:"sms"`
	Push     bool `json:"push" bson:"push"`
	WhatsApp bool `json:"whatsapp" bson:"whatsapp"`
}

// Has reports whether the set contains the given channel
func (s ChannelSet) Has(c Channel) bool {
	switch c {
	case ChannelEmail:
		return s.Email
	case ChannelSMS:
		return s.SMS
	case ChannelPush:
		return s.Push
	case ChannelWhatsApp:
		return s.WhatsApp
	}
	return false
}

// With returns a copy of the set with the given channel enabled
func (s ChannelSet) With(c Channel) ChannelSet {
	switch c {
	case ChannelEmail:
		s.Email = true
	case ChannelSMS:
		s.SMS = true
	case ChannelPush:
		s.Push = true
	case ChannelWhatsApp:
		s.WhatsApp = true
	}
	return s
}

// Intersect returns the channels present in both sets
func (s ChannelSet) Intersect(other ChannelSet) ChannelSet {
	return ChannelSet{
		Email:    s.Email && other.Email,
		SMS:      s.SMS && other.SMS,
		Push:     s.Push && other.Push,
		WhatsApp: s.WhatsApp && other.WhatsApp,
	}
}

// IsEmpty reports whether no channel is set
func (s ChannelSet) IsEmpty() bool {
	return !s.Email && !s.SMS && !s.Push && !s.WhatsApp
}

// List returns the enabled channels in the fixed order
func (s ChannelSet) List() []Channel {
	var out []Channel
	for _, c := range Channels {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// ReminderRule represents a schedule attached to an item.
// One-shot rules fire once and carry a terminal sent flag; recurring rules
// re-fire each eligible day inside the lead window and never reach a
// terminal state.
type ReminderRule struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ItemID          primitive.ObjectID `json:"item_id" bson:"item_id"`
	Kind            ScheduleKind       `json:"kind" bson:"kind"`
	ScheduledAt     *time.Time         `json:"scheduled_at,omitempty" bson:"scheduled_at,omitempty"`
	Recurrence      Recurrence         `json:"recurrence" bson:"recurrence"`
	StartDaysBefore int                `json:"start_days_before" bson:"start_days_before"`
	Channels        ChannelSet         `json:"channels" bson:"channels"`
	Message         string             `json:"message,omitempty" bson:"message,omitempty"`
	Sent            bool               `json:"sent" bson:"sent"`
	SentAt          *time.Time         `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// NotificationTask represents one materialized occurrence of a rule: a
// channel-scoped unit of delivery work. Tasks are dispatched each cycle
// until finalized and carry a snapshot of the item title so later item
// edits do not affect in-flight notifications.
type NotificationTask struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RecipientID string             `json:"recipient_id" bson:"recipient_id"`
	ItemTitle   string             `json:"item_title" bson:"item_title"`
	Message     string             `json:"message" bson:"message"`
	Channels    ChannelSet         `json:"channels" bson:"channels"`
	Origin      ScheduleKind       `json:"origin" bson:"origin"`
	Day         string             `json:"day" bson:"day"` // occurrence day, YYYY-MM-DD (UTC)
	Sent        bool               `json:"sent" bson:"sent"`
	SentAt      *time.Time         `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// AttemptOutcome represents the result of a single channel attempt
type AttemptOutcome string

const (
	AttemptOutcomeSuccess AttemptOutcome = "success"
	AttemptOutcomeFailure AttemptOutcome = "failure"
	AttemptOutcomeSkipped AttemptOutcome = "skipped" // configuration gap, e.g. no phone number
)

// DeliveryAttempt records one channel send attempt for a task
type DeliveryAttempt struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID      primitive.ObjectID `json:"task_id" bson:"task_id"`
	CycleID     string             `json:"cycle_id" bson:"cycle_id"`
	Channel     Channel            `json:"channel" bson:"channel"`
	Target      string             `json:"target,omitempty" bson:"target,omitempty"`
	Outcome     AttemptOutcome     `json:"outcome" bson:"outcome"`
	Error       string             `json:"error,omitempty" bson:"error,omitempty"`
	AttemptedAt time.Time          `json:"attempted_at" bson:"attempted_at"`
}

// DevicePlatform represents the platform of a registered push token
type DevicePlatform string

const (
	DevicePlatformWeb     DevicePlatform = "web"
	DevicePlatformAndroid DevicePlatform = "android"
	DevicePlatformIOS     DevicePlatform = "ios"
)

// DeviceToken represents a push notification token registered by a user
type DeviceToken struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"user_id" bson:"user_id"`
	Token     string             `json:"token" bson:"token"`
	Platform  DevicePlatform     `json:"platform" bson:"platform"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
