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

const deviceTokensCollection = "device_tokens"

// DeviceTokenRepository handles push device token data operations
type DeviceTokenRepository struct {
	client *mongodb.MongoClient
}

// NewDeviceTokenRepository creates a new device token repository
func NewDeviceTokenRepository(client *mongodb.MongoClient) *DeviceTokenRepository {
	return &DeviceTokenRepository{client: client}
}

// Register upserts a device token for a user
func (r *DeviceTokenRepository) Register(ctx context.Context, token *domain.DeviceToken) error {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
		token.CreatedAt = time.Now()
	}

	filter := bson.M{"user_id": token.UserID, "token": token.Token}
	update := bson.M{"$set": token}
	opts := options.Update().SetUpsert(true)

	_, err := r.client.Collection(deviceTokensCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

// FindByUser returns every token registered by a user
func (r *DeviceTokenRepository) FindByUser(ctx context.Context, userID string) ([]*domain.DeviceToken, error) {
	cursor, err := r.client.Collection(deviceTokensCollection).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tokens []*domain.DeviceToken
	if err = cursor.All(ctx, &tokens); err != nil {
		return nil, err
	}

	return tokens, nil
}

// Delete removes a registered token
func (r *DeviceTokenRepository) Delete(ctx context.Context, userID, token string) error {
	_, err := r.client.Collection(deviceTokensCollection).DeleteOne(ctx, bson.M{"user_id": userID, "token": token})
	return err
}
