package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/shared/config"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeEmailSender records sends and optionally fails
type fakeEmailSender struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
}

func (f *fakeEmailSender) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("smtp connection refused")
	}
	f.sent = append(f.sent, to)
	return nil
}

// fakeTextSender records sends and optionally fails
type fakeTextSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeTextSender) Send(ctx context.Context, to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("provider returned non-2xx status: 500")
	}
	f.sent = append(f.sent, to)
	return nil
}

// fakePushSender fails for tokens listed in failTokens
type fakePushSender struct {
	mu         sync.Mutex
	sent       []string
	failTokens map[string]bool
}

func (f *fakePushSender) Send(ctx context.Context, token, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTokens[token] {
		return fmt.Errorf("fcm rejected token")
	}
	f.sent = append(f.sent, token)
	return nil
}

// fakeTokenSource serves canned device tokens per user
type fakeTokenSource struct {
	byUser map[string][]*domain.DeviceToken
}

func (f *fakeTokenSource) FindByUser(ctx context.Context, userID string) ([]*domain.DeviceToken, error) {
	return f.byUser[userID], nil
}

// fakeAttemptRecorder collects attempt records
type fakeAttemptRecorder struct {
	mu       sync.Mutex
	attempts []*domain.DeliveryAttempt
}

func (f *fakeAttemptRecorder) Create(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeAttemptRecorder) byOutcome(outcome domain.AttemptOutcome) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.attempts {
		if a.Outcome == outcome {
			n++
		}
	}
	return n
}

// fakeOutcomePublisher collects published outcomes
type fakeOutcomePublisher struct {
	mu       sync.Mutex
	outcomes []bool
}

func (f *fakeOutcomePublisher) PublishOutcome(taskID, recipientID, cycleID string, sent bool, succeeded []domain.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, sent)
	return nil
}

type dispatcherFixture struct {
	email    *fakeEmailSender
	sms      *fakeTextSender
	whatsapp *fakeTextSender
	push     *fakePushSender
	prefs    *fakePrefs
	tokens   *fakeTokenSource
	store    *fakeTaskStore
	attempts *fakeAttemptRecorder
}

func newDispatcherFixture() *dispatcherFixture {
	return &dispatcherFixture{
		email:    &fakeEmailSender{},
		sms:      &fakeTextSender{},
		whatsapp: &fakeTextSender{},
		push:     &fakePushSender{failTokens: map[string]bool{}},
		prefs:    &fakePrefs{byUser: map[string]*domain.NotificationPreferences{}},
		tokens:   &fakeTokenSource{byUser: map[string][]*domain.DeviceToken{}},
		store:    newFakeTaskStore(),
		attempts: &fakeAttemptRecorder{},
	}
}

func (fx *dispatcherFixture) dispatcher(policy config.FinalizePolicy) *DeliveryDispatcher {
	return NewDeliveryDispatcher(
		fx.email, fx.sms, fx.whatsapp, fx.push,
		fx.prefs, fx.tokens, fx.store, fx.attempts, nil,
		DispatcherConfig{Workers: 2, SendTimeout: time.Second, Policy: policy},
		logger.NewLogger(),
	)
}

func (fx *dispatcherFixture) task(channels domain.ChannelSet) *domain.NotificationTask {
	task := &domain.NotificationTask{
		RecipientID: "user-1",
		ItemTitle:   "Passport",
		Message:     "Reminder: Passport is due on 2024-06-10. Please update it.",
		Channels:    channels,
		Origin:      domain.ScheduleKindRecurring,
		Day:         "2024-06-09",
	}
	_ = fx.store.Create(context.Background(), task)
	return task
}

// TestDispatchPartialSuccess tests that one succeeding channel finalizes
// the task under the default policy even when another channel fails.
func TestDispatchPartialSuccess(t *testing.T) {
	fx := newDispatcherFixture()
	fx.sms.fail = true
	fx.prefs.byUser["user-1"] = &domain.NotificationPreferences{
		UserID:      "user-1",
		Email:       "user@example.com",
		PhoneNumber: "+15550001111",
	}

	d := fx.dispatcher(config.FinalizeAnySuccess)
	task := fx.task(domain.ChannelSet{Email: true, SMS: true})

	sent := d.Dispatch(context.Background(), task, "cycle-1")
	if !sent {
		t.Fatal("Dispatch() = false, want true with one channel succeeding")
	}
	if !fx.store.finalized[task.ID.Hex()] {
		t.Error("task was not finalized")
	}
	if got := fx.attempts.byOutcome(domain.AttemptOutcomeSuccess); got != 1 {
		t.Errorf("success attempts = %d, want 1", got)
	}
	if got := fx.attempts.byOutcome(domain.AttemptOutcomeFailure); got != 1 {
		t.Errorf("failure attempts = %d, want 1", got)
	}
}

// TestDispatchAllChannelsFail tests that a fully failed task stays pending
func TestDispatchAllChannelsFail(t *testing.T) {
	fx := newDispatcherFixture()
	fx.email.fail = true
	fx.sms.fail = true
	fx.prefs.byUser["user-1"] = &domain.NotificationPreferences{
		UserID:      "user-1",
		Email:       "user@example.com",
		PhoneNumber: "+15550001111",
	}

	d := fx.dispatcher(config.FinalizeAnySuccess)
	task := fx.task(domain.ChannelSet{Email: true, SMS: true})

	if sent := d.Dispatch(context.Background(), task, "cycle-1"); sent {
		t.Fatal("Dispatch() = true, want false with every channel failing")
	}
	if fx.store.finalized[task.ID.Hex()] {
		t.Error("task was finalized despite total failure")
	}

	pending, _ := fx.store.Pending(context.Background())
	if len(pending) != 1 {
		t.Errorf("pending tasks = %d, want 1 (carried to next cycle)", len(pending))
	}
}

// TestDispatchAllPolicyRequiresEveryChannel tests the strict policy
func TestDispatchAllPolicyRequiresEveryChannel(t *testing.T) {
	fx := newDispatcherFixture()
	fx.sms.fail = true
	fx.prefs.byUser["user-1"] = &domain.NotificationPreferences{
		UserID:      "user-1",
		Email:       "user@example.com",
		PhoneNumber: "+15550001111",
	}

	d := fx.dispatcher(config.FinalizeAllSuccess)
	task := fx.task(domain.ChannelSet{Email: true, SMS: true})

	if sent := d.Dispatch(context.Background(), task, "cycle-1"); sent {
		t.Fatal("Dispatch() = true under all-success policy with a failing channel")
	}
	if fx.store.finalized[task.ID.Hex()] {
		t.Error("task was finalized despite the strict policy")
	}
}

// TestDispatchSkippedChannelsDoNotFinalize tests that configuration gaps
// (missing contact details) never count as delivery.
func TestDispatchSkippedChannelsDoNotFinalize(t *testing.T) {
	fx := newDispatcherFixture()
	// No phone number stored.
	fx.prefs.byUser["user-1"] = &domain.NotificationPreferences{UserID: "user-1"}

	d := fx.dispatcher(config.FinalizeAnySuccess)
	task := fx.task(domain.ChannelSet{SMS: true, WhatsApp: true})

	if sent := d.Dispatch(context.Background(), task, "cycle-1"); sent {
		t.Fatal("Dispatch() = true with every channel skipped")
	}
	if got := fx.attempts.byOutcome(domain.AttemptOutcomeSkipped); got != 2 {
		t.Errorf("skipped attempts = %d, want 2", got)
	}
}

// TestDispatchPushFanOut tests per-token fan-out: one delivered token is
// channel success, zero registered tokens is channel failure.
func TestDispatchPushFanOut(t *testing.T) {
	fx := newDispatcherFixture()
	fx.tokens.byUser["user-1"] = []*domain.DeviceToken{
		{UserID: "user-1", Token: "tok-dead", Platform: domain.DevicePlatformAndroid},
		{UserID: "user-1", Token: "tok-live", Platform: domain.DevicePlatformWeb},
	}
	fx.push.failTokens["tok-dead"] = true

	d := fx.dispatcher(config.FinalizeAnySuccess)
	task := fx.task(domain.ChannelSet{Push: true})

	if sent := d.Dispatch(context.Background(), task, "cycle-1"); !sent {
		t.Fatal("Dispatch() = false, want true with one live token")
	}
	if len(fx.push.sent) != 1 || fx.push.sent[0] != "tok-live" {
		t.Errorf("push sends = %v, want [tok-live]", fx.push.sent)
	}

	// Second recipient with no registered devices.
	fx2 := newDispatcherFixture()
	d2 := fx2.dispatcher(config.FinalizeAnySuccess)
	task2 := fx2.task(domain.ChannelSet{Push: true})

	if sent := d2.Dispatch(context.Background(), task2, "cycle-1"); sent {
		t.Fatal("Dispatch() = true with no registered tokens")
	}
	if got := fx2.attempts.byOutcome(domain.AttemptOutcomeFailure); got != 1 {
		t.Errorf("failure attempts = %d, want 1", got)
	}
}

// TestDispatchPublishesOutcome tests the optional outcome event
func TestDispatchPublishesOutcome(t *testing.T) {
	fx := newDispatcherFixture()
	fx.prefs.byUser["user-1"] = &domain.NotificationPreferences{
		UserID: "user-1",
		Email:  "user@example.com",
	}
	pub := &fakeOutcomePublisher{}

	d := NewDeliveryDispatcher(
		fx.email, fx.sms, fx.whatsapp, fx.push,
		fx.prefs, fx.tokens, fx.store, fx.attempts, pub,
		DispatcherConfig{Workers: 2, SendTimeout: time.Second},
		logger.NewLogger(),
	)
	task := fx.task(domain.ChannelSet{Email: true})

	d.Dispatch(context.Background(), task, "cycle-1")
	if len(pub.outcomes) != 1 || !pub.outcomes[0] {
		t.Errorf("published outcomes = %v, want [true]", pub.outcomes)
	}
}

// TestDispatchAllCountsFinalized tests the worker-pool batch entry point
func TestDispatchAllCountsFinalized(t *testing.T) {
	fx := newDispatcherFixture()
	fx.prefs.byUser["user-1"] = &domain.NotificationPreferences{
		UserID: "user-1",
		Email:  "user@example.com",
	}

	d := fx.dispatcher(config.FinalizeAnySuccess)

	var tasks []*domain.NotificationTask
	for i := 0; i < 5; i++ {
		task := &domain.NotificationTask{
			ID:          primitive.NewObjectID(),
			RecipientID: "user-1",
			ItemTitle:   fmt.Sprintf("Item %d", i),
			Message:     "msg",
			Channels:    domain.ChannelSet{Email: true},
			Origin:      domain.ScheduleKindRecurring,
			Day:         "2024-06-09",
			CreatedAt:   time.Now(),
		}
		tasks = append(tasks, task)
	}

	sent := d.DispatchAll(context.Background(), tasks, "cycle-1", time.Now())
	if sent != 5 {
		t.Errorf("DispatchAll() = %d, want 5", sent)
	}
	if len(fx.email.sent) != 5 {
		t.Errorf("email sends = %d, want 5", len(fx.email.sent))
	}
}

// TestDispatchAllCancelledContext tests that cancellation between tasks
// leaves the remainder pending rather than half-sent.
func TestDispatchAllCancelledContext(t *testing.T) {
	fx := newDispatcherFixture()
	d := fx.dispatcher(config.FinalizeAnySuccess)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := &domain.NotificationTask{
		ID:          primitive.NewObjectID(),
		RecipientID: "user-1",
		Channels:    domain.ChannelSet{Email: true},
		CreatedAt:   time.Now(),
	}

	if sent := d.DispatchAll(ctx, []*domain.NotificationTask{task}, "cycle-1", time.Now()); sent != 0 {
		t.Errorf("DispatchAll() = %d, want 0 with cancelled context", sent)
	}
	if len(fx.email.sent) != 0 {
		t.Errorf("email sends = %d, want 0", len(fx.email.sent))
	}
}
