package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/metrics"
	"github.com/vhvplatform/go-reminder-service/internal/queue"
	"github.com/vhvplatform/go-reminder-service/internal/shared/config"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"golang.org/x/time/rate"
)

// EmailSender delivers a message to an email address
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TextSender delivers a message to a phone number (SMS or WhatsApp)
type TextSender interface {
	Send(ctx context.Context, to, message string) error
}

// PushSender delivers a notification to a single device token
type PushSender interface {
	Send(ctx context.Context, token, title, body string) error
}

// DeviceTokenSource lists the push tokens registered by a user
type DeviceTokenSource interface {
	FindByUser(ctx context.Context, userID string) ([]*domain.DeviceToken, error)
}

// AttemptRecorder persists per-channel delivery attempts
type AttemptRecorder interface {
	Create(ctx context.Context, attempt *domain.DeliveryAttempt) error
}

// OutcomePublisher announces dispatch outcomes to downstream consumers
type OutcomePublisher interface {
	PublishOutcome(taskID, recipientID, cycleID string, sent bool, succeeded []domain.Channel) error
}

// DispatcherConfig holds dispatcher tuning
type DispatcherConfig struct {
	Workers      int
	SendTimeout  time.Duration
	Policy       config.FinalizePolicy
	ChannelRPS   float64
	ChannelBurst int
	PushTitle    string
}

// DeliveryDispatcher sends notification tasks across their requested
// channels. Channels are independent: one adapter failing never blocks
// the others. A task is finalized once per dispatch according to the
// configured policy; unfinalized tasks are picked up verbatim by the next
// cycle.
type DeliveryDispatcher struct {
	email    EmailSender
	sms      TextSender
	whatsapp TextSender
	push     PushSender

	prefs     PreferencesSource
	tokens    DeviceTokenSource
	tasks     TaskStore
	attempts  AttemptRecorder
	publisher OutcomePublisher

	limiters map[domain.Channel]*rate.Limiter
	cfg      DispatcherConfig
	log      *logger.Logger
}

// NewDeliveryDispatcher creates a new delivery dispatcher. The publisher
// may be nil when no broker is configured.
func NewDeliveryDispatcher(
	email EmailSender,
	sms TextSender,
	whatsapp TextSender,
	push PushSender,
	prefs PreferencesSource,
	tokens DeviceTokenSource,
	tasks TaskStore,
	attempts AttemptRecorder,
	publisher OutcomePublisher,
	cfg DispatcherConfig,
	log *logger.Logger,
) *DeliveryDispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.Policy == "" {
		cfg.Policy = config.FinalizeAnySuccess
	}
	if cfg.ChannelRPS <= 0 {
		cfg.ChannelRPS = 50
	}
	if cfg.ChannelBurst <= 0 {
		cfg.ChannelBurst = 100
	}

	limiters := make(map[domain.Channel]*rate.Limiter, len(domain.Channels))
	for _, c := range domain.Channels {
		limiters[c] = rate.NewLimiter(rate.Limit(cfg.ChannelRPS), cfg.ChannelBurst)
	}

	return &DeliveryDispatcher{
		email:     email,
		sms:       sms,
		whatsapp:  whatsapp,
		push:      push,
		prefs:     prefs,
		tokens:    tokens,
		tasks:     tasks,
		attempts:  attempts,
		publisher: publisher,
		limiters:  limiters,
		cfg:       cfg,
		log:       log,
	}
}

// channelResult is the aggregated outcome of one channel's attempt
type channelResult struct {
	channel domain.Channel
	outcome domain.AttemptOutcome
	target  string
	err     error
}

// DispatchAll delivers a batch of tasks through a bounded worker pool.
// Tasks created before the cycle started (carried over from a previous
// cycle) are dispatched first. Returns the number of tasks finalized.
func (d *DeliveryDispatcher) DispatchAll(ctx context.Context, tasks []*domain.NotificationTask, cycleID string, cycleStart time.Time) int {
	if len(tasks) == 0 {
		return 0
	}

	q := queue.NewDispatchQueue()
	for _, task := range tasks {
		priority := queue.PriorityNormal
		if task.CreatedAt.Before(cycleStart) {
			priority = queue.PriorityHigh
		}
		q.Push(&queue.DispatchJob{
			ID:       task.ID.Hex(),
			Priority: priority,
			Task:     task,
		})
	}
	metrics.DispatchQueueSize.Set(float64(q.Len()))
	q.Close()

	var sent int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job := q.Pop()
				if job == nil {
					return
				}
				metrics.DispatchQueueSize.Set(float64(q.Len()))

				// Cancellation applies between tasks, never mid-task.
				if ctx.Err() != nil {
					continue
				}

				if d.Dispatch(ctx, job.Task, cycleID) {
					mu.Lock()
					sent++
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()
	return int(sent)
}

// Dispatch sends a single task across each of its requested channels and
// finalizes it according to the configured policy. Returns whether the
// task was finalized as sent.
func (d *DeliveryDispatcher) Dispatch(ctx context.Context, task *domain.NotificationTask, cycleID string) bool {
	start := time.Now()

	prefs, err := d.prefs.GetByUserID(ctx, task.RecipientID)
	if err != nil {
		d.log.Error("Failed to load recipient preferences, task stays pending",
			"task_id", task.ID.Hex(), "recipient_id", task.RecipientID, "error", err)
		return false
	}

	requested := task.Channels.List()
	results := make([]channelResult, len(requested))

	var wg sync.WaitGroup
	for i, ch := range requested {
		wg.Add(1)
		go func(i int, ch domain.Channel) {
			defer wg.Done()
			results[i] = d.attemptChannel(ctx, task, prefs, ch, cycleID)
		}(i, ch)
	}
	wg.Wait()

	var succeeded []domain.Channel
	failures := 0
	for _, res := range results {
		d.recordAttempt(ctx, task, res, cycleID)
		switch res.outcome {
		case domain.AttemptOutcomeSuccess:
			succeeded = append(succeeded, res.channel)
		case domain.AttemptOutcomeFailure:
			failures++
		}
	}

	sent := d.finalized(len(succeeded), failures, len(results))

	if sent {
		// The sent-flag mutation is the atomic commit point of a
		// dispatch; it must survive a cycle cancellation that lands
		// between the sends and the store write.
		finalizeCtx := context.WithoutCancel(ctx)
		if err := d.tasks.Finalize(finalizeCtx, task.ID, time.Now()); err != nil {
			d.log.Error("Failed to finalize task, will re-dispatch next cycle",
				"task_id", task.ID.Hex(), "error", err)
			sent = false
		} else {
			metrics.TasksFinalized.Inc()
		}
	}

	result := "unsent"
	if sent {
		result = "sent"
	}
	metrics.DispatchDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	if d.publisher != nil {
		if err := d.publisher.PublishOutcome(task.ID.Hex(), task.RecipientID, cycleID, sent, succeeded); err != nil {
			d.log.Warn("Failed to publish dispatch outcome", "task_id", task.ID.Hex(), "error", err)
		}
	}

	d.log.Info("Task dispatched",
		"task_id", task.ID.Hex(),
		"recipient_id", task.RecipientID,
		"succeeded", len(succeeded),
		"failed", failures,
		"sent", sent)

	return sent
}

// finalized applies the configured finalization policy
func (d *DeliveryDispatcher) finalized(successes, failures, attempted int) bool {
	if successes == 0 {
		return false
	}
	if d.cfg.Policy == config.FinalizeAllSuccess {
		return successes == attempted
	}
	return true
}

// attemptChannel performs one channel's delivery with a per-call timeout.
// A timeout counts as a channel failure, never as a task failure.
func (d *DeliveryDispatcher) attemptChannel(ctx context.Context, task *domain.NotificationTask, prefs *domain.NotificationPreferences, ch domain.Channel, cycleID string) channelResult {
	if err := d.limiters[ch].Wait(ctx); err != nil {
		return channelResult{channel: ch, outcome: domain.AttemptOutcomeFailure, err: err}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	switch ch {
	case domain.ChannelEmail:
		return d.attemptEmail(sendCtx, task, prefs)
	case domain.ChannelSMS:
		return d.attemptText(sendCtx, task, prefs, d.sms, domain.ChannelSMS)
	case domain.ChannelWhatsApp:
		return d.attemptText(sendCtx, task, prefs, d.whatsapp, domain.ChannelWhatsApp)
	case domain.ChannelPush:
		return d.attemptPush(sendCtx, task, cycleID)
	default:
		return channelResult{channel: ch, outcome: domain.AttemptOutcomeFailure, err: fmt.Errorf("unknown channel %q", ch)}
	}
}

func (d *DeliveryDispatcher) attemptEmail(ctx context.Context, task *domain.NotificationTask, prefs *domain.NotificationPreferences) channelResult {
	if prefs.Email == "" {
		d.log.Info("Recipient has no email address, skipping channel",
			"task_id", task.ID.Hex(), "recipient_id", task.RecipientID)
		metrics.ChannelAttempts.WithLabelValues(string(domain.ChannelEmail), string(domain.AttemptOutcomeSkipped)).Inc()
		return channelResult{channel: domain.ChannelEmail, outcome: domain.AttemptOutcomeSkipped}
	}

	subject := fmt.Sprintf("Reminder: %s", task.ItemTitle)
	if err := d.email.Send(ctx, prefs.Email, subject, task.Message); err != nil {
		d.log.Error("Email delivery failed", "task_id", task.ID.Hex(), "recipient", prefs.Email, "error", err)
		metrics.ChannelAttempts.WithLabelValues(string(domain.ChannelEmail), string(domain.AttemptOutcomeFailure)).Inc()
		return channelResult{channel: domain.ChannelEmail, outcome: domain.AttemptOutcomeFailure, target: prefs.Email, err: err}
	}

	metrics.ChannelAttempts.WithLabelValues(string(domain.ChannelEmail), string(domain.AttemptOutcomeSuccess)).Inc()
	return channelResult{channel: domain.ChannelEmail, outcome: domain.AttemptOutcomeSuccess, target: prefs.Email}
}

func (d *DeliveryDispatcher) attemptText(ctx context.Context, task *domain.NotificationTask, prefs *domain.NotificationPreferences, sender TextSender, ch domain.Channel) channelResult {
	if prefs.PhoneNumber == "" {
		d.log.Info("Recipient has no phone number, skipping channel",
			"task_id", task.ID.Hex(), "recipient_id", task.RecipientID, "channel", ch)
		metrics.ChannelAttempts.WithLabelValues(string(ch), string(domain.AttemptOutcomeSkipped)).Inc()
		return channelResult{channel: ch, outcome: domain.AttemptOutcomeSkipped}
	}

	if err := sender.Send(ctx, prefs.PhoneNumber, task.Message); err != nil {
		d.log.Error("Text delivery failed", "task_id", task.ID.Hex(), "channel", ch, "error", err)
		metrics.ChannelAttempts.WithLabelValues(string(ch), string(domain.AttemptOutcomeFailure)).Inc()
		return channelResult{channel: ch, outcome: domain.AttemptOutcomeFailure, target: prefs.PhoneNumber, err: err}
	}

	metrics.ChannelAttempts.WithLabelValues(string(ch), string(domain.AttemptOutcomeSuccess)).Inc()
	return channelResult{channel: ch, outcome: domain.AttemptOutcomeSuccess, target: prefs.PhoneNumber}
}

// attemptPush fans out across every registered device token. The channel
// succeeds when at least one token delivery succeeds and fails when every
// token fails or none are registered.
func (d *DeliveryDispatcher) attemptPush(ctx context.Context, task *domain.NotificationTask, cycleID string) channelResult {
	tokens, err := d.tokens.FindByUser(ctx, task.RecipientID)
	if err != nil {
		return channelResult{channel: domain.ChannelPush, outcome: domain.AttemptOutcomeFailure, err: err}
	}

	if len(tokens) == 0 {
		d.log.Info("Recipient has no registered device tokens, push cannot deliver",
			"task_id", task.ID.Hex(), "recipient_id", task.RecipientID)
		return channelResult{channel: domain.ChannelPush, outcome: domain.AttemptOutcomeFailure, err: fmt.Errorf("no device tokens registered")}
	}

	title := d.cfg.PushTitle
	if title == "" {
		title = "ReminderX"
	}

	delivered := 0
	var lastErr error
	for _, token := range tokens {
		if err := d.push.Send(ctx, token.Token, title, task.Message); err != nil {
			lastErr = err
			d.log.Error("Push delivery to token failed",
				"task_id", task.ID.Hex(), "platform", token.Platform, "error", err)
			d.recordAttempt(ctx, task, channelResult{
				channel: domain.ChannelPush,
				outcome: domain.AttemptOutcomeFailure,
				target:  token.Token,
				err:     err,
			}, cycleID)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		metrics.ChannelAttempts.WithLabelValues(string(domain.ChannelPush), string(domain.AttemptOutcomeFailure)).Inc()
		return channelResult{channel: domain.ChannelPush, outcome: domain.AttemptOutcomeFailure, err: lastErr}
	}

	metrics.ChannelAttempts.WithLabelValues(string(domain.ChannelPush), string(domain.AttemptOutcomeSuccess)).Inc()
	return channelResult{channel: domain.ChannelPush, outcome: domain.AttemptOutcomeSuccess, target: fmt.Sprintf("%d/%d tokens", delivered, len(tokens))}
}

// recordAttempt persists one attempt record; recording failures are logged
// and never affect the dispatch outcome.
func (d *DeliveryDispatcher) recordAttempt(ctx context.Context, task *domain.NotificationTask, res channelResult, cycleID string) {
	attempt := &domain.DeliveryAttempt{
		TaskID:      task.ID,
		CycleID:     cycleID,
		Channel:     res.channel,
		Target:      res.target,
		Outcome:     res.outcome,
		AttemptedAt: time.Now(),
	}
	if res.err != nil {
		attempt.Error = res.err.Error()
	}

	if err := d.attempts.Create(context.WithoutCancel(ctx), attempt); err != nil {
		d.log.Warn("Failed to record delivery attempt", "task_id", task.ID.Hex(), "channel", res.channel, "error", err)
	}
}
