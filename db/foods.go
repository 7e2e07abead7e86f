package db

import (
	"context"
	"time"

	"smartdine/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FoodRepo struct {
	coll *mongo.Collection
}

func (r *FoodRepo) Create(ctx context.Context, food *models.FoodItem) error {
	if _, err := r.coll.InsertOne(ctx, food); err != nil {
		if isDuplicateKeyError(err) {
			return errors.Wrapf(models.ErrConflict, "food item %s already exists", food.ID)
		}
		return models.StorageErr("insert food", err)
	}
	return nil
}

func (r *FoodRepo) Get(ctx context.Context, id string) (*models.FoodItem, error) {
	var food models.FoodItem
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&food)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(models.ErrNotFound, "food item %s", id)
	}
	if err != nil {
		return nil, models.StorageErr("get food", err)
	}
	return &food, nil
}

func (r *FoodRepo) List(ctx context.Context) ([]models.FoodItem, error) {
	return findAndDecode[models.FoodItem](ctx, r.coll, bson.M{})
}

func (r *FoodRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.StorageErr("delete food", err)
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(models.ErrNotFound, "food item %s", id)
	}
	return nil
}

func (r *FoodRepo) SetImages(ctx context.Context, id, image, thumbnail string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"image":     image,
		"thumbnail": thumbnail,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return models.StorageErr("update food images", err)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(models.ErrNotFound, "food item %s", id)
	}
	return nil
}

// IncrementSold uses $inc so concurrent serve and checkout paths never lose
// an update. A missing item matches nothing and is not an error.
func (r *FoodRepo) IncrementSold(ctx context.Context, id string, by int) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"totalSold": by}})
	if err != nil {
		return models.StorageErr("increment sold", err)
	}
	return nil
}

func (r *FoodRepo) TopBySold(ctx context.Context, n int) ([]models.FoodItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "totalSold", Value: -1}}).SetLimit(int64(n))
	return findAndDecode[models.FoodItem](ctx, r.coll, bson.M{}, opts)
}
