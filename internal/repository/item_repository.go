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

const itemsCollection = "items"

// ItemRepository handles item data operations
type ItemRepository struct {
	client *mongodb.MongoClient
}

// NewItemRepository creates a new item repository
func NewItemRepository(client *mongodb.MongoClient) *ItemRepository {
	return &ItemRepository{client: client}
}

// EnsureIndexes creates the unique (owner_id, title) index
func (r *ItemRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "title", Value: 1},
			},
			Options: options.Index().SetName("owner_title_unique_idx").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "expiry_date", Value: 1},
			},
			Options: options.Index().SetName("expiry_idx"),
		},
	}

	return r.client.CreateIndexes(ctx, itemsCollection, indexes)
}

// Create creates a new item
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	item.ID = primitive.NewObjectID()
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()

	_, err := r.client.Collection(itemsCollection).InsertOne(ctx, item)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateItem
	}
	return err
}

// FindByID finds an item by ID
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var item domain.Item
	err = r.client.Collection(itemsCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&item)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// FindByObjectID finds an item by its raw ObjectID
func (r *ItemRepository) FindByObjectID(ctx context.Context, id primitive.ObjectID) (*domain.Item, error) {
	var item domain.Item
	err := r.client.Collection(itemsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// FindByOwner finds all items owned by a user
func (r *ItemRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Item, error) {
	opts := options.Find().SetSort(bson.M{"expiry_date": 1})
	cursor, err := r.client.Collection(itemsCollection).Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*domain.Item
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	return items, nil
}

// Update updates an item
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	item.UpdatedAt = time.Now()

	filter := bson.M{"_id": item.ID}
	update := bson.M{"$set": item}

	_, err := r.client.Collection(itemsCollection).UpdateOne(ctx, filter, update)
	return err
}

// Delete deletes an item
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.client.Collection(itemsCollection).DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}
