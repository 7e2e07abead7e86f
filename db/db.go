package db

import (
	"context"
	"time"

	"smartdine/models"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database

	OrdersCollection      *mongo.Collection
	FoodsCollection       *mongo.Collection
	RevenueCollection     *mongo.Collection
	StaffCollection       *mongo.Collection
	IdempotencyCollection *mongo.Collection

	Orders      *OrderRepo
	Foods       *FoodRepo
	Revenue     *RevenueRepo
	Staff       *StaffRepo
	Idempotency *IdempotencyRepo

	transactions bool
}

// Connect opens the MongoDB client and binds the collections. With
// transactions disabled (standalone servers) WithinTx runs its function
// directly.
func Connect(ctx context.Context, uri, database string, transactions bool) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, models.StorageErr("connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, models.StorageErr("ping", err)
	}

	d := client.Database(database)
	db := &DB{
		Client:                client,
		Database:              d,
		OrdersCollection:      d.Collection("orders"),
		FoodsCollection:       d.Collection("foods"),
		RevenueCollection:     d.Collection("revenues"),
		StaffCollection:       d.Collection("staff"),
		IdempotencyCollection: d.Collection("idempotency"),
		transactions:          transactions,
	}
	db.Orders = &OrderRepo{coll: db.OrdersCollection}
	db.Foods = &FoodRepo{coll: db.FoodsCollection}
	db.Revenue = &RevenueRepo{coll: db.RevenueCollection}
	db.Staff = &StaffRepo{coll: db.StaffCollection}
	db.Idempotency = &IdempotencyRepo{coll: db.IdempotencyCollection}

	if !transactions {
		log.Warn("MongoDB transactions disabled; settlement steps are not atomic")
	}
	return db, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.Client.Ping(ctx, nil); err != nil {
		return models.StorageErr("ping", err)
	}
	return nil
}

// EnsureIndexes creates the indexes the queries rely on, including the
// unique idempotency key and its TTL.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		db.OrdersCollection: {
			{Keys: bson.D{{Key: "guestId", Value: 1}, {Key: "tableId", Value: 1}}},
			{Keys: bson.D{{Key: "tableId", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		db.FoodsCollection: {
			{Keys: bson.D{{Key: "totalSold", Value: -1}}},
		},
		db.RevenueCollection: {
			{Keys: bson.D{{Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "orderIds", Value: 1}}},
		},
		db.StaffCollection: {
			{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true).SetName("unique_email")},
		},
		db.IdempotencyCollection: {
			{Keys: bson.M{"key": 1}, Options: options.Index().SetUnique(true).SetName("unique_key")},
			{Keys: bson.M{"expires_at": 1}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		},
	}
	for coll, idxs := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, idxs); err != nil {
			return models.StorageErr("create indexes on "+coll.Name(), err)
		}
	}
	return nil
}

// WithinTx runs fn inside a multi-document transaction. The ctx handed to fn
// carries the session, so repository calls made with it join the
// transaction.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !db.transactions {
		return fn(ctx)
	}
	sess, err := db.Client.StartSession()
	if err != nil {
		return models.StorageErr("start session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
