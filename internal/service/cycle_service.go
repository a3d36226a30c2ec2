package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/metrics"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemSource supplies the items reminder rules are anchored to
type ItemSource interface {
	FindByObjectID(ctx context.Context, id primitive.ObjectID) (*domain.Item, error)
}

// CycleStats summarizes one dispatch cycle
type CycleStats struct {
	CycleID      string    `json:"cycle_id"`
	StartedAt    time.Time `json:"started_at"`
	Duration     string    `json:"duration"`
	Generated    int       `json:"generated"`
	Dispatched   int       `json:"dispatched"`
	Sent         int       `json:"sent"`
	SkippedRules int       `json:"skipped_rules"`
}

// CycleService runs the two-phase dispatch cycle: materialize due rule
// occurrences into notification tasks, then deliver every pending task.
// All durable state lives in the store; nothing carries over between
// cycles in process memory.
type CycleService struct {
	rules      ReminderSource
	items      ItemSource
	evaluator  *ScheduleEvaluator
	builder    *NotificationBuilder
	dispatcher *DeliveryDispatcher
	log        *logger.Logger
}

// NewCycleService creates a new cycle service
func NewCycleService(rules ReminderSource, items ItemSource, evaluator *ScheduleEvaluator, builder *NotificationBuilder, dispatcher *DeliveryDispatcher, log *logger.Logger) *CycleService {
	return &CycleService{
		rules:      rules,
		items:      items,
		evaluator:  evaluator,
		builder:    builder,
		dispatcher: dispatcher,
		log:        log,
	}
}

// RunCycle executes one full generate+dispatch cycle. Rule-level problems
// (malformed rules, dangling item references) are skipped; store errors
// abort the cycle, which is retried wholesale on the next invocation.
func (s *CycleService) RunCycle(ctx context.Context) (*CycleStats, error) {
	stats := &CycleStats{
		CycleID:   uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	now := stats.StartedAt

	s.log.Info("Starting dispatch cycle", "cycle_id", stats.CycleID)

	if err := s.generate(ctx, now, stats); err != nil {
		metrics.CycleFailures.Inc()
		return stats, fmt.Errorf("generate phase failed: %w", err)
	}

	if err := s.dispatch(ctx, now, stats); err != nil {
		metrics.CycleFailures.Inc()
		return stats, fmt.Errorf("dispatch phase failed: %w", err)
	}

	stats.Duration = time.Since(stats.StartedAt).String()
	s.log.Info("Dispatch cycle finished",
		"cycle_id", stats.CycleID,
		"generated", stats.Generated,
		"dispatched", stats.Dispatched,
		"sent", stats.Sent,
		"skipped_rules", stats.SkippedRules,
		"duration", stats.Duration)

	return stats, nil
}

// generate evaluates every rule and materializes due occurrences
func (s *CycleService) generate(ctx context.Context, now time.Time, stats *CycleStats) error {
	oneShots, err := s.rules.DueOneShot(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load due one-shot rules: %w", err)
	}

	recurring, err := s.rules.Recurring(ctx)
	if err != nil {
		return fmt.Errorf("failed to load recurring rules: %w", err)
	}

	for _, rule := range append(oneShots, recurring...) {
		if err := s.evaluateRule(ctx, rule, now, stats); err != nil {
			return err
		}
	}

	return nil
}

// evaluateRule processes a single rule; only store errors propagate
func (s *CycleService) evaluateRule(ctx context.Context, rule *domain.ReminderRule, now time.Time, stats *CycleStats) error {
	item, err := s.items.FindByObjectID(ctx, rule.ItemID)
	if errors.Is(err, repository.ErrItemNotFound) {
		s.log.Warn("Rule references missing item, skipping", "rule_id", rule.ID.Hex())
		stats.SkippedRules++
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load item for rule %s: %w", rule.ID.Hex(), err)
	}

	if item.Completed {
		return nil
	}

	due, err := s.evaluator.IsDue(rule, item, now)
	if errors.Is(err, ErrMalformedRule) {
		s.log.Warn("Skipping malformed rule", "rule_id", rule.ID.Hex(), "error", err)
		metrics.MalformedRules.Inc()
		stats.SkippedRules++
		return nil
	}
	if err != nil {
		return err
	}
	if !due {
		return nil
	}

	built, err := s.builder.BuildForRule(ctx, rule, item, ResolveRecipients(item), now)
	if err != nil {
		return err
	}
	stats.Generated += len(built)

	return nil
}

// dispatch delivers every pending task, including tasks left unsent by
// earlier cycles.
func (s *CycleService) dispatch(ctx context.Context, cycleStart time.Time, stats *CycleStats) error {
	pending, err := s.builder.tasks.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending tasks: %w", err)
	}

	metrics.PendingTasks.Set(float64(len(pending)))
	stats.Dispatched = len(pending)
	stats.Sent = s.dispatcher.DispatchAll(ctx, pending, stats.CycleID, cycleStart)

	return nil
}
