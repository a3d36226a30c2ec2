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

const tasksCollection = "notification_tasks"

// TaskRepository handles notification task data operations
type TaskRepository struct {
	client *mongodb.MongoClient
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(client *mongodb.MongoClient) *TaskRepository {
	return &TaskRepository{client: client}
}

// EnsureIndexes creates the occurrence dedup index. The unique key on
// (recipient_id, item_title, day) is what makes concurrent evaluator runs
// safe: two runs may both pass the exists-check, but only one insert wins.
// The index is partial on recurring tasks so a one-shot rule firing on the
// same day as a recurring one is never swallowed; one-shot rules are
// deduplicated by their own sent flag.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "recipient_id", Value: 1},
				{Key: "item_title", Value: 1},
				{Key: "day", Value: 1},
			},
			Options: options.Index().
				SetName("occurrence_dedup_idx").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"origin": domain.ScheduleKindRecurring}),
		},
		{
			Keys: bson.D{
				{Key: "sent", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("pending_idx"),
		},
	}

	return r.client.CreateIndexes(ctx, tasksCollection, indexes)
}

// Create persists a new notification task. Returns ErrDuplicateTask when
// the occurrence was already materialized by a concurrent run.
func (r *TaskRepository) Create(ctx context.Context, task *domain.NotificationTask) error {
	task.ID = primitive.NewObjectID()
	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()

	_, err := r.client.Collection(tasksCollection).InsertOne(ctx, task)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateTask
	}
	return err
}

// ExistsForDay reports whether a task for (recipient, item title) was
// already created on the given occurrence day.
func (r *TaskRepository) ExistsForDay(ctx context.Context, recipientID, itemTitle, day string) (bool, error) {
	filter := bson.M{
		"recipient_id": recipientID,
		"item_title":   itemTitle,
		"day":          day,
	}

	count, err := r.client.Collection(tasksCollection).CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Pending returns all tasks that have not yet been finalized, oldest first
func (r *TaskRepository) Pending(ctx context.Context) ([]*domain.NotificationTask, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := r.client.Collection(tasksCollection).Find(ctx, bson.M{"sent": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*domain.NotificationTask
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// Finalize marks a task sent. This is the single commit point of a
// dispatch: it is applied once per task, never once per channel.
func (r *TaskRepository) Finalize(ctx context.Context, id primitive.ObjectID, sentAt time.Time) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"sent":       true,
			"sent_at":    sentAt,
			"updated_at": time.Now(),
		},
	}

	_, err := r.client.Collection(tasksCollection).UpdateOne(ctx, filter, update)
	return err
}

// FindByRecipient finds tasks for a recipient with pagination
func (r *TaskRepository) FindByRecipient(ctx context.Context, recipientID string, sent *bool, page, pageSize int) ([]*domain.NotificationTask, int64, error) {
	filter := bson.M{}
	if recipientID != "" {
		filter["recipient_id"] = recipientID
	}
	if sent != nil {
		filter["sent"] = *sent
	}

	total, err := r.client.Collection(tasksCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (page - 1) * pageSize
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.client.Collection(tasksCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var tasks []*domain.NotificationTask
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}
