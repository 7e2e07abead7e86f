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

type OrderRepo struct {
	coll *mongo.Collection
}

func (r *OrderRepo) Insert(ctx context.Context, order *models.Order) error {
	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		if isDuplicateKeyError(err) {
			return errors.Wrapf(models.ErrConflict, "order %s already exists", order.ID)
		}
		return models.StorageErr("insert order", err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	if err != nil {
		return nil, models.StorageErr("get order", err)
	}
	return &order, nil
}

func (r *OrderRepo) FindByGuestAndTable(ctx context.Context, guestID, tableID string) ([]models.Order, error) {
	filter := bson.M{"guestId": guestID}
	if tableID != "" {
		filter["tableId"] = tableID
	}
	return findAndDecode[models.Order](ctx, r.coll, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *OrderRepo) FindByTable(ctx context.Context, tableID string) ([]models.Order, error) {
	return findAndDecode[models.Order](ctx, r.coll, bson.M{"tableId": tableID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *OrderRepo) FindActive(ctx context.Context) ([]models.Order, error) {
	filter := bson.M{"status": bson.M{"$in": models.ActiveStatuses}}
	return findAndDecode[models.Order](ctx, r.coll, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *OrderRepo) FindByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	return findAndDecode[models.Order](ctx, r.coll, bson.M{"status": status}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// UpdateStatus is a compare-and-swap on the status field.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err == nil {
		return &order, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, models.StorageErr("update order status", err)
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, models.StorageErr("count order", err)
	}
	if n == 0 {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	return nil, errors.Wrapf(models.ErrConflict, "order %s is no longer %s", id, from)
}

func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.StorageErr("delete order", err)
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	return nil
}

func (r *OrderRepo) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, models.StorageErr("delete orders", err)
	}
	return res.DeletedCount, nil
}
