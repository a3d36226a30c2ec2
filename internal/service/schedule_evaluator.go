package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
)

// ErrMalformedRule marks a rule that violates a data invariant, e.g. a
// recurring rule with an unrecognized pattern. The cycle skips such rules
// and continues with the rest of the batch.
var ErrMalformedRule = errors.New("malformed reminder rule")

// ScheduleEvaluator decides whether a reminder rule has a due occurrence
// at a given instant. It is a pure function of (rule, item, now): all
// firing state lives on the rule and in the task store.
type ScheduleEvaluator struct{}

// NewScheduleEvaluator creates a new schedule evaluator
func NewScheduleEvaluator() *ScheduleEvaluator {
	return &ScheduleEvaluator{}
}

// IsDue reports whether the rule is due at now. The item supplies the
// expiry date recurring rules are anchored to.
func (e *ScheduleEvaluator) IsDue(rule *domain.ReminderRule, item *domain.Item, now time.Time) (bool, error) {
	switch rule.Kind {
	case domain.ScheduleKindOneShot:
		return e.oneShotDue(rule, now)
	case domain.ScheduleKindRecurring:
		return e.recurringDue(rule, item, now)
	default:
		return false, fmt.Errorf("%w: unknown schedule kind %q", ErrMalformedRule, rule.Kind)
	}
}

// oneShotDue: due iff never fired and the scheduled time has passed.
// The sent flag is the one-shot deduplication mechanism; it is set by the
// builder atomically with task creation.
func (e *ScheduleEvaluator) oneShotDue(rule *domain.ReminderRule, now time.Time) (bool, error) {
	if rule.ScheduledAt == nil {
		return false, fmt.Errorf("%w: one-shot rule %s has no scheduled timestamp", ErrMalformedRule, rule.ID.Hex())
	}
	if rule.Sent {
		return false, nil
	}
	return !rule.ScheduledAt.After(now), nil
}

// recurringDue: due iff today falls inside the lead window before the
// item's expiry and the recurrence pattern selects today. Expired items
// stop recurring; there is no terminal state, the per-day dedup key keeps
// re-evaluation idempotent.
func (e *ScheduleEvaluator) recurringDue(rule *domain.ReminderRule, item *domain.Item, now time.Time) (bool, error) {
	daysUntil := DaysUntilExpiry(item.ExpiryDate, now)

	switch rule.Recurrence {
	case domain.RecurrenceDaily:
		return daysUntil >= 0 && daysUntil <= rule.StartDaysBefore, nil
	case domain.RecurrenceEvery2Days:
		return daysUntil >= 0 && daysUntil <= rule.StartDaysBefore && daysUntil%2 == 0, nil
	default:
		return false, fmt.Errorf("%w: recurring rule %s has pattern %q", ErrMalformedRule, rule.ID.Hex(), rule.Recurrence)
	}
}

// DaysUntilExpiry returns the whole number of calendar days (UTC) between
// now's date and the expiry date. Negative once the item has expired.
// Date boundaries are compared, not 24h durations, so an item expiring
// later today counts as 0 days away regardless of the hour.
func DaysUntilExpiry(expiry, now time.Time) int {
	y1, m1, d1 := now.UTC().Date()
	y2, m2, d2 := expiry.UTC().Date()

	today := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	expiryDay := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)

	return int(expiryDay.Sub(today).Hours() / 24)
}

// OccurrenceDay formats the occurrence day key used for per-day
// deduplication of recurring rules.
func OccurrenceDay(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}
