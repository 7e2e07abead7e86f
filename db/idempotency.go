package db

import (
	"context"

	"smartdine/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type IdempotencyRepo struct {
	coll *mongo.Collection
}

// Reserve inserts a placeholder record. It reports false when the key is
// already taken.
func (r *IdempotencyRepo) Reserve(ctx context.Context, rec *models.IdempotencyRecord) (bool, error) {
	_, err := r.coll.InsertOne(ctx, rec)
	if err == nil {
		return true, nil
	}
	if isDuplicateKeyError(err) {
		return false, nil
	}
	return false, models.StorageErr("reserve idempotency key", err)
}

func (r *IdempotencyRepo) Find(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := r.coll.FindOne(ctx, bson.M{"key": key}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(models.ErrNotFound, "idempotency key %s", key)
	}
	if err != nil {
		return nil, models.StorageErr("find idempotency key", err)
	}
	return &rec, nil
}

func (r *IdempotencyRepo) SaveResponse(ctx context.Context, key string, resp map[string]interface{}) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"response": resp}})
	if err != nil {
		return models.StorageErr("save idempotent response", err)
	}
	return nil
}

// Release drops a reservation whose request failed, so a retry can run.
func (r *IdempotencyRepo) Release(ctx context.Context, key string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"key": key}); err != nil {
		return models.StorageErr("release idempotency key", err)
	}
	return nil
}
