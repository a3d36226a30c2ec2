package repository

import (
	"context"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const remindersCollection = "reminder_rules"

// ReminderRepository handles reminder rule data operations
type ReminderRepository struct {
	client *mongodb.MongoClient
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(client *mongodb.MongoClient) *ReminderRepository {
	return &ReminderRepository{client: client}
}

// EnsureIndexes creates query indexes for the dispatch cycle
func (r *ReminderRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "kind", Value: 1},
				{Key: "sent", Value: 1},
				{Key: "scheduled_at", Value: 1},
			},
			Options: options.Index().SetName("due_one_shot_idx"),
		},
		{
			Keys: bson.D{
				{Key: "item_id", Value: 1},
			},
			Options: options.Index().SetName("item_idx"),
		},
	}

	return r.client.CreateIndexes(ctx, remindersCollection, indexes)
}

// Create creates a new reminder rule
func (r *ReminderRepository) Create(ctx context.Context, rule *domain.ReminderRule) error {
	rule.ID = primitive.NewObjectID()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()

	_, err := r.client.Collection(remindersCollection).InsertOne(ctx, rule)
	return err
}

// FindByID finds a reminder rule by ID
func (r *ReminderRepository) FindByID(ctx context.Context, id string) (*domain.ReminderRule, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var rule domain.ReminderRule
	err = r.client.Collection(remindersCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&rule)
	if err != nil {
		return nil, err
	}

	return &rule, nil
}

// FindByItem finds all rules attached to an item
func (r *ReminderRepository) FindByItem(ctx context.Context, itemID primitive.ObjectID) ([]*domain.ReminderRule, error) {
	cursor, err := r.client.Collection(remindersCollection).Find(ctx, bson.M{"item_id": itemID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []*domain.ReminderRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}

	return rules, nil
}

// DueOneShot returns unfired one-shot rules whose scheduled time has passed
func (r *ReminderRepository) DueOneShot(ctx context.Context, now time.Time) ([]*domain.ReminderRule, error) {
	filter := bson.M{
		"kind":         domain.ScheduleKindOneShot,
		"sent":         false,
		"scheduled_at": bson.M{"$lte": now},
	}

	cursor, err := r.client.Collection(remindersCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []*domain.ReminderRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}

	return rules, nil
}

// Recurring returns all recurring rules. Recurring rules have no terminal
// state; they are re-evaluated fresh every cycle.
func (r *ReminderRepository) Recurring(ctx context.Context) ([]*domain.ReminderRule, error) {
	filter := bson.M{"kind": domain.ScheduleKindRecurring}

	cursor, err := r.client.Collection(remindersCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []*domain.ReminderRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}

	return rules, nil
}

// MarkFired sets the terminal sent flag on a one-shot rule
func (r *ReminderRepository) MarkFired(ctx context.Context, id primitive.ObjectID, firedAt time.Time) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"sent":       true,
			"sent_at":    firedAt,
			"updated_at": time.Now(),
		},
	}

	_, err := r.client.Collection(remindersCollection).UpdateOne(ctx, filter, update)
	return err
}

// Delete deletes a reminder rule
func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.client.Collection(remindersCollection).DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}

// DeleteByItem cascade-deletes every rule attached to an item
func (r *ReminderRepository) DeleteByItem(ctx context.Context, itemID primitive.ObjectID) error {
	_, err := r.client.Collection(remindersCollection).DeleteMany(ctx, bson.M{"item_id": itemID})
	return err
}
