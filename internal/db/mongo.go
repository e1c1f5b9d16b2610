package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and pings it before returning.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoRecords implements RecordStore over a single MongoDB collection.
type MongoRecords[T any] struct {
	Collection *mongo.Collection
	// Sort orders List results; nil leaves natural order.
	Sort bson.D
	// OnCreate stamps a record before insert.
	OnCreate func(record *T, now time.Time)
	// OnUpdate adds server-side fields to a non-empty $set document.
	OnUpdate func(set bson.M, now time.Time)

	now func() time.Time
}

func (c *MongoRecords[T]) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// List returns every record matching filter. A nil filter matches all.
func (c *MongoRecords[T]) List(ctx context.Context, filter bson.M) ([]T, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	if filter == nil {
		filter = bson.M{}
	}
	findOptions := options.Find()
	if len(c.Sort) > 0 {
		findOptions.SetSort(c.Sort)
	}
	cursor, err := c.Collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []T{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FindByID finds a record by its ID.
func (c *MongoRecords[T]) FindByID(ctx context.Context, id string) (*T, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var record T
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Create inserts a record and returns the server-assigned ID.
func (c *MongoRecords[T]) Create(ctx context.Context, record T) (string, error) {
	if c.Collection == nil {
		return "", ErrNilCollection
	}
	if c.OnCreate != nil {
		c.OnCreate(&record, c.clock())
	}
	result, err := c.Collection.InsertOne(ctx, record)
	if err != nil {
		return "", err
	}
	switch id := result.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	default:
		return fmt.Sprint(id), nil
	}
}

// Update merges the submitted fields of patch into the record with the given ID.
func (c *MongoRecords[T]) Update(ctx context.Context, id string, patch interface{}) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	objectID, err := parseID(id)
	if err != nil {
		return err
	}
	set, err := SetDocument(patch)
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return ErrNoFields
	}
	if c.OnUpdate != nil {
		c.OnUpdate(set, c.clock())
	}

	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes the record with the given ID. Records that reference it
// from other collections are left alone.
func (c *MongoRecords[T]) Delete(ctx context.Context, id string) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDocument converts a patch struct into the document used for $set.
// Fields the patch leaves nil (omitempty) are absent from the result.
func SetDocument(patch interface{}) (bson.M, error) {
	switch p := patch.(type) {
	case nil:
		return bson.M{}, nil
	case bson.M:
		return p, nil
	}
	raw, err := bson.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	set := bson.M{}
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	delete(set, "_id")
	return set, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return objectID, nil
}
