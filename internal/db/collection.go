package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidID     = errors.New("invalid record id")
	ErrNoFields      = errors.New("no fields to update")
	ErrDuplicate     = errors.New("duplicate key")
	ErrNilCollection = errors.New("mongo collection is nil")
)

// RecordStore defines the list/add/update/delete operations shared by every
// dashboard collection.
type RecordStore[T any] interface {
	List(ctx context.Context, filter bson.M) ([]T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, record T) (string, error)
	// Update merges the non-empty fields of patch into the stored document.
	Update(ctx context.Context, id string, patch interface{}) error
	Delete(ctx context.Context, id string) error
}
