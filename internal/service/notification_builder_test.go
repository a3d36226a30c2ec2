package service

import (
	"context"
	"testing"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakePrefs serves canned preferences per user
type fakePrefs struct {
	byUser map[string]*domain.NotificationPreferences
}

func (f *fakePrefs) GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	if prefs, ok := f.byUser[userID]; ok {
		return prefs, nil
	}
	// Store default: email on, everything else off.
	return &domain.NotificationPreferences{UserID: userID, EmailEnabled: true}, nil
}

// fakeTaskStore is an in-memory task store
type fakeTaskStore struct {
	tasks      []*domain.NotificationTask
	finalized  map[string]bool
	duplicates map[string]bool // keys forced to collide on Create
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		finalized:  make(map[string]bool),
		duplicates: make(map[string]bool),
	}
}

func dedupKey(recipientID, itemTitle, day string) string {
	return recipientID + "|" + itemTitle + "|" + day
}

func (f *fakeTaskStore) Create(ctx context.Context, task *domain.NotificationTask) error {
	key := dedupKey(task.RecipientID, task.ItemTitle, task.Day)
	if f.duplicates[key] {
		return repository.ErrDuplicateTask
	}
	task.ID = primitive.NewObjectID()
	task.CreatedAt = time.Now()
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeTaskStore) ExistsForDay(ctx context.Context, recipientID, itemTitle, day string) (bool, error) {
	for _, task := range f.tasks {
		if task.RecipientID == recipientID && task.ItemTitle == itemTitle && task.Day == day {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTaskStore) Pending(ctx context.Context) ([]*domain.NotificationTask, error) {
	var pending []*domain.NotificationTask
	for _, task := range f.tasks {
		if !f.finalized[task.ID.Hex()] {
			pending = append(pending, task)
		}
	}
	return pending, nil
}

func (f *fakeTaskStore) Finalize(ctx context.Context, id primitive.ObjectID, sentAt time.Time) error {
	f.finalized[id.Hex()] = true
	return nil
}

// fakeRules serves canned rule batches and records MarkFired calls
type fakeRules struct {
	oneShots  []*domain.ReminderRule
	recurring []*domain.ReminderRule
	fired     []string
}

func (f *fakeRules) DueOneShot(ctx context.Context, now time.Time) ([]*domain.ReminderRule, error) {
	return f.oneShots, nil
}

func (f *fakeRules) Recurring(ctx context.Context) ([]*domain.ReminderRule, error) {
	return f.recurring, nil
}

func (f *fakeRules) MarkFired(ctx context.Context, id primitive.ObjectID, firedAt time.Time) error {
	f.fired = append(f.fired, id.Hex())
	return nil
}

func testItem() *domain.Item {
	return &domain.Item{
		ID:         primitive.NewObjectID(),
		OwnerID:    "owner-1",
		Title:      "Driving License",
		ExpiryDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	}
}

// TestBuildForRuleChannelIntersection tests that tasks carry only the
// channels both requested and enabled.
func TestBuildForRuleChannelIntersection(t *testing.T) {
	log := logger.NewLogger()
	store := newFakeTaskStore()
	rules := &fakeRules{}
	prefs := &fakePrefs{byUser: map[string]*domain.NotificationPreferences{
		"owner-1": {UserID: "owner-1", EmailEnabled: true, SMSEnabled: true},
	}}

	builder := NewNotificationBuilder(prefs, store, rules, log)
	rule := &domain.ReminderRule{
		ID:         primitive.NewObjectID(),
		Kind:       domain.ScheduleKindRecurring,
		Recurrence: domain.RecurrenceDaily,
		Channels:   domain.ChannelSet{Email: true, Push: true},
	}
	now := time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)

	built, err := builder.BuildForRule(context.Background(), rule, testItem(), []string{"owner-1"}, now)
	if err != nil {
		t.Fatalf("BuildForRule() error: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("BuildForRule() built %d tasks, want 1", len(built))
	}

	got := built[0].Channels
	want := domain.ChannelSet{Email: true}
	if got != want {
		t.Errorf("task channels = %+v, want %+v", got, want)
	}
	if built[0].Day != "2024-06-09" {
		t.Errorf("task day = %q, want %q", built[0].Day, "2024-06-09")
	}
	if built[0].Origin != domain.ScheduleKindRecurring {
		t.Errorf("task origin = %q, want %q", built[0].Origin, domain.ScheduleKindRecurring)
	}
}

// TestBuildForRuleEmptyIntersection tests that a recipient with no
// overlapping channels produces no task and leaves a one-shot rule
// unfired.
func TestBuildForRuleEmptyIntersection(t *testing.T) {
	log := logger.NewLogger()
	store := newFakeTaskStore()
	rules := &fakeRules{}
	prefs := &fakePrefs{byUser: map[string]*domain.NotificationPreferences{
		"owner-1": {UserID: "owner-1", EmailEnabled: true},
	}}

	builder := NewNotificationBuilder(prefs, store, rules, log)
	scheduledAt := time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC)
	rule := &domain.ReminderRule{
		ID:          primitive.NewObjectID(),
		Kind:        domain.ScheduleKindOneShot,
		ScheduledAt: &scheduledAt,
		Channels:    domain.ChannelSet{SMS: true},
	}
	now := scheduledAt.Add(time.Hour)

	built, err := builder.BuildForRule(context.Background(), rule, testItem(), []string{"owner-1"}, now)
	if err != nil {
		t.Fatalf("BuildForRule() error: %v", err)
	}
	if len(built) != 0 {
		t.Fatalf("BuildForRule() built %d tasks, want 0", len(built))
	}
	if len(store.tasks) != 0 {
		t.Errorf("store has %d tasks, want 0", len(store.tasks))
	}
	// The rule must stay unfired so it is re-evaluated next cycle.
	if len(rules.fired) != 0 {
		t.Errorf("rule was marked fired with nothing built")
	}
}

// TestBuildForRuleOneShotMarkFired tests the fire-once commit
func TestBuildForRuleOneShotMarkFired(t *testing.T) {
	log := logger.NewLogger()
	store := newFakeTaskStore()
	rules := &fakeRules{}
	prefs := &fakePrefs{}

	builder := NewNotificationBuilder(prefs, store, rules, log)
	scheduledAt := time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC)
	rule := &domain.ReminderRule{
		ID:          primitive.NewObjectID(),
		Kind:        domain.ScheduleKindOneShot,
		ScheduledAt: &scheduledAt,
		Channels:    domain.ChannelSet{Email: true},
	}

	built, err := builder.BuildForRule(context.Background(), rule, testItem(), []string{"owner-1"}, scheduledAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("BuildForRule() error: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("BuildForRule() built %d tasks, want 1", len(built))
	}
	if built[0].Origin != domain.ScheduleKindOneShot {
		t.Errorf("task origin = %q, want %q", built[0].Origin, domain.ScheduleKindOneShot)
	}
	if len(rules.fired) != 1 || rules.fired[0] != rule.ID.Hex() {
		t.Errorf("MarkFired calls = %v, want exactly rule %s", rules.fired, rule.ID.Hex())
	}
}

// TestBuildForRuleDedupIdempotence tests that re-evaluating a recurring
// rule on the same day builds nothing new.
func TestBuildForRuleDedupIdempotence(t *testing.T) {
	log := logger.NewLogger()
	store := newFakeTaskStore()
	rules := &fakeRules{}
	prefs := &fakePrefs{}

	builder := NewNotificationBuilder(prefs, store, rules, log)
	rule := &domain.ReminderRule{
		ID:         primitive.NewObjectID(),
		Kind:       domain.ScheduleKindRecurring,
		Recurrence: domain.RecurrenceDaily,
		Channels:   domain.ChannelSet{Email: true},
	}
	item := testItem()
	now := time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)

	first, err := builder.BuildForRule(context.Background(), rule, item, []string{"owner-1"}, now)
	if err != nil {
		t.Fatalf("first BuildForRule() error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first BuildForRule() built %d tasks, want 1", len(first))
	}

	// Same day, later hour: the occurrence already exists.
	second, err := builder.BuildForRule(context.Background(), rule, item, []string{"owner-1"}, now.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("second BuildForRule() error: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second BuildForRule() built %d tasks, want 0", len(second))
	}

	// Next day is a fresh occurrence.
	third, err := builder.BuildForRule(context.Background(), rule, item, []string{"owner-1"}, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("third BuildForRule() error: %v", err)
	}
	if len(third) != 1 {
		t.Errorf("third BuildForRule() built %d tasks, want 1", len(third))
	}
}

// TestBuildForRuleConcurrentInsertRace tests that losing the unique-index
// insert race is treated as a dedup skip, not an error.
func TestBuildForRuleConcurrentInsertRace(t *testing.T) {
	log := logger.NewLogger()
	store := newFakeTaskStore()
	rules := &fakeRules{}
	prefs := &fakePrefs{}

	item := testItem()
	now := time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)
	store.duplicates[dedupKey("owner-1", item.Title, OccurrenceDay(now))] = true

	builder := NewNotificationBuilder(prefs, store, rules, log)
	rule := &domain.ReminderRule{
		ID:         primitive.NewObjectID(),
		Kind:       domain.ScheduleKindRecurring,
		Recurrence: domain.RecurrenceDaily,
		Channels:   domain.ChannelSet{Email: true},
	}

	built, err := builder.BuildForRule(context.Background(), rule, item, []string{"owner-1"}, now)
	if err != nil {
		t.Fatalf("BuildForRule() error: %v", err)
	}
	if len(built) != 0 {
		t.Errorf("BuildForRule() built %d tasks, want 0", len(built))
	}
}

// TestBuildForRuleSharedRecipients tests one task per recipient
func TestBuildForRuleSharedRecipients(t *testing.T) {
	log := logger.NewLogger()
	store := newFakeTaskStore()
	rules := &fakeRules{}
	prefs := &fakePrefs{}

	item := testItem()
	item.SharedWith = []domain.ShareGrant{
		{GrantID: "g1", ProfileID: "friend-1", Capability: domain.ShareCapabilityRead},
	}

	builder := NewNotificationBuilder(prefs, store, rules, log)
	rule := &domain.ReminderRule{
		ID:         primitive.NewObjectID(),
		Kind:       domain.ScheduleKindRecurring,
		Recurrence: domain.RecurrenceDaily,
		Channels:   domain.ChannelSet{Email: true},
	}
	now := time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)

	built, err := builder.BuildForRule(context.Background(), rule, item, ResolveRecipients(item), now)
	if err != nil {
		t.Fatalf("BuildForRule() error: %v", err)
	}
	if len(built) != 2 {
		t.Fatalf("BuildForRule() built %d tasks, want 2", len(built))
	}

	recipients := map[string]bool{}
	for _, task := range built {
		recipients[task.RecipientID] = true
	}
	if !recipients["owner-1"] || !recipients["friend-1"] {
		t.Errorf("recipients = %v, want owner-1 and friend-1", recipients)
	}
}

// TestComposeMessage tests the custom vs default message template
func TestComposeMessage(t *testing.T) {
	item := testItem()

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "custom message wins",
			message: "Renew your license!",
			want:    "Renew your license!",
		},
		{
			name: "default names item and expiry",
			want: "Reminder: Driving License is due on 2024-06-10. Please update it.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &domain.ReminderRule{Message: tt.message}
			if got := composeMessage(rule, item); got != tt.want {
				t.Errorf("composeMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
