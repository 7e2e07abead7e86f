package db

import (
	"context"
	"time"

	"smartdine/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type StaffRepo struct {
	coll *mongo.Collection
}

func (r *StaffRepo) FindByEmail(ctx context.Context, email string) (*models.Staff, error) {
	var s models.Staff
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(models.ErrNotFound, "staff %s", email)
	}
	if err != nil {
		return nil, models.StorageErr("find staff", err)
	}
	return &s, nil
}

// Upsert keys on email; the id and creation time of an existing login are kept.
func (r *StaffRepo) Upsert(ctx context.Context, s *models.Staff) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	update := bson.M{
		"$set": bson.M{"password_hash": s.PasswordHash, "role": s.Role},
		"$setOnInsert": bson.M{
			"_id":        s.ID,
			"email":      s.Email,
			"created_at": s.CreatedAt,
		},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"email": s.Email}, update, options.Update().SetUpsert(true))
	if err != nil {
		return models.StorageErr("upsert staff", err)
	}
	return nil
}

func (r *StaffRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login": at}})
	if err != nil {
		return models.StorageErr("touch staff login", err)
	}
	return nil
}
