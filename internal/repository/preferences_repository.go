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

const preferencesCollection = "notification_preferences"

// PreferencesRepository handles notification preferences data operations
type PreferencesRepository struct {
	client *mongodb.MongoClient
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(client *mongodb.MongoClient) *PreferencesRepository {
	return &PreferencesRepository{client: client}
}

// GetByUserID retrieves preferences for a specific user. Users without a
// stored document get the defaults: email on, everything else off.
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	var prefs domain.NotificationPreferences
	filter := bson.M{"user_id": userID}
	err := r.client.Collection(preferencesCollection).FindOne(ctx, filter).Decode(&prefs)

	if err == mongo.ErrNoDocuments {
		return &domain.NotificationPreferences{
			UserID:       userID,
			EmailEnabled: true,
		}, nil
	}

	return &prefs, err
}

// Update upserts preferences for a user
func (r *PreferencesRepository) Update(ctx context.Context, prefs *domain.NotificationPreferences) error {
	prefs.UpdatedAt = time.Now()
	if prefs.ID.IsZero() {
		prefs.ID = primitive.NewObjectID()
		prefs.CreatedAt = prefs.UpdatedAt
	}

	filter := bson.M{"user_id": prefs.UserID}
	update := bson.M{"$set": prefs}
	opts := options.Update().SetUpsert(true)

	_, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, filter, update, opts)
	return err
}
