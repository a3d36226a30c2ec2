package repository

import (
	"context"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const attemptsCollection = "delivery_attempts"

// AttemptRepository records per-channel delivery attempts for observability
type AttemptRepository struct {
	client *mongodb.MongoClient
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(client *mongodb.MongoClient) *AttemptRepository {
	return &AttemptRepository{client: client}
}

// Create records a delivery attempt
func (r *AttemptRepository) Create(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	attempt.ID = primitive.NewObjectID()
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now()
	}

	_, err := r.client.Collection(attemptsCollection).InsertOne(ctx, attempt)
	return err
}

// FindByTask returns the attempt history of a task, newest first
func (r *AttemptRepository) FindByTask(ctx context.Context, taskID primitive.ObjectID) ([]*domain.DeliveryAttempt, error) {
	opts := options.Find().SetSort(bson.M{"attempted_at": -1})
	cursor, err := r.client.Collection(attemptsCollection).Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var attempts []*domain.DeliveryAttempt
	if err = cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}

	return attempts, nil
}
