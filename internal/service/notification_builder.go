package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/metrics"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PreferencesSource supplies a user's notification preferences
type PreferencesSource interface {
	GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreferences, error)
}

// TaskStore persists and queries notification tasks
type TaskStore interface {
	Create(ctx context.Context, task *domain.NotificationTask) error
	ExistsForDay(ctx context.Context, recipientID, itemTitle, day string) (bool, error)
	Pending(ctx context.Context) ([]*domain.NotificationTask, error)
	Finalize(ctx context.Context, id primitive.ObjectID, sentAt time.Time) error
}

// ReminderSource supplies reminder rules and records one-shot firings
type ReminderSource interface {
	DueOneShot(ctx context.Context, now time.Time) ([]*domain.ReminderRule, error)
	Recurring(ctx context.Context) ([]*domain.ReminderRule, error)
	MarkFired(ctx context.Context, id primitive.ObjectID, firedAt time.Time) error
}

// NotificationBuilder materializes due rule occurrences into notification
// tasks scoped to the channels that are both requested and enabled.
type NotificationBuilder struct {
	prefs PreferencesSource
	tasks TaskStore
	rules ReminderSource
	log   *logger.Logger
}

// NewNotificationBuilder creates a new notification builder
func NewNotificationBuilder(prefs PreferencesSource, tasks TaskStore, rules ReminderSource, log *logger.Logger) *NotificationBuilder {
	return &NotificationBuilder{
		prefs: prefs,
		tasks: tasks,
		rules: rules,
		log:   log,
	}
}

// BuildForRule builds one task per recipient for a due rule. Recipients
// whose enabled channels do not intersect the rule's requested channels
// are silently skipped. A one-shot rule is marked fired only after at
// least one task was persisted; if nothing was built (say, every channel
// disabled), the rule stays unfired and is re-evaluated next cycle.
// Store errors abort the build and propagate to the cycle.
func (b *NotificationBuilder) BuildForRule(ctx context.Context, rule *domain.ReminderRule, item *domain.Item, recipients []string, now time.Time) ([]*domain.NotificationTask, error) {
	day := OccurrenceDay(now)
	var built []*domain.NotificationTask

	for _, recipientID := range recipients {
		task, err := b.buildForRecipient(ctx, rule, item, recipientID, day, now)
		if err != nil {
			return built, err
		}
		if task != nil {
			built = append(built, task)
			metrics.TasksGenerated.WithLabelValues(string(rule.Kind)).Inc()
		}
	}

	if rule.Kind == domain.ScheduleKindOneShot && len(built) > 0 {
		if err := b.rules.MarkFired(ctx, rule.ID, now); err != nil {
			return built, fmt.Errorf("failed to mark rule %s fired: %w", rule.ID.Hex(), err)
		}
	}

	return built, nil
}

func (b *NotificationBuilder) buildForRecipient(ctx context.Context, rule *domain.ReminderRule, item *domain.Item, recipientID, day string, now time.Time) (*domain.NotificationTask, error) {
	prefs, err := b.prefs.GetByUserID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for %s: %w", recipientID, err)
	}

	requested := rule.Channels.Intersect(ResolveCapabilities(prefs))
	if requested.IsEmpty() {
		b.log.Info("No enabled channels intersect requested methods, skipping",
			"rule_id", rule.ID.Hex(), "recipient_id", recipientID)
		return nil, nil
	}

	// Per-day dedup guard for recurring rules. One-shot rules are
	// deduplicated by their sent flag instead.
	if rule.Kind == domain.ScheduleKindRecurring {
		exists, err := b.tasks.ExistsForDay(ctx, recipientID, item.Title, day)
		if err != nil {
			return nil, fmt.Errorf("failed to check occurrence dedup: %w", err)
		}
		if exists {
			b.log.Debug("Occurrence already materialized today, skipping",
				"rule_id", rule.ID.Hex(), "recipient_id", recipientID, "day", day)
			return nil, nil
		}
	}

	task := &domain.NotificationTask{
		RecipientID: recipientID,
		ItemTitle:   item.Title,
		Message:     composeMessage(rule, item),
		Channels:    requested,
		Origin:      rule.Kind,
		Day:         day,
		Sent:        false,
	}

	if err := b.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrDuplicateTask) {
			// A concurrent evaluator run won the insert race.
			b.log.Debug("Occurrence created concurrently, skipping",
				"rule_id", rule.ID.Hex(), "recipient_id", recipientID, "day", day)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to persist notification task: %w", err)
	}

	return task, nil
}

// composeMessage uses the rule's custom template when present, otherwise a
// default naming the item and its expiry date.
func composeMessage(rule *domain.ReminderRule, item *domain.Item) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fmt.Sprintf("Reminder: %s is due on %s. Please update it.",
		item.Title, item.ExpiryDate.UTC().Format("2006-01-02"))
}
