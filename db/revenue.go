package db

import (
	"context"
	"time"

	"smartdine/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type RevenueRepo struct {
	coll *mongo.Collection
}

func (r *RevenueRepo) Insert(ctx context.Context, rec *models.Revenue) error {
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return models.StorageErr("insert revenue", err)
	}
	return nil
}

func dateRange(start, end time.Time) bson.M {
	return bson.M{"$gte": start, "$lt": end}
}

func (r *RevenueRepo) SumInRange(ctx context.Context, start, end time.Time) (models.RevenueSum, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"date": dateRange(start, end)}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$totalAmount"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return models.RevenueSum{}, models.StorageErr("sum revenue", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return models.RevenueSum{}, models.StorageErr("decode revenue sum", err)
	}
	if len(rows) == 0 {
		return models.RevenueSum{}, nil
	}
	return models.RevenueSum{Total: models.RoundMoney(rows[0].Total), Count: rows[0].Count}, nil
}

// SumByMonth groups by calendar month in loc. Months without records are
// absent from the result.
func (r *RevenueRepo) SumByMonth(ctx context.Context, start, end time.Time, loc *time.Location) (map[time.Month]float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"date": dateRange(start, end)}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$month": bson.M{"date": "$date", "timezone": loc.String()}},
			"total": bson.M{"$sum": "$totalAmount"},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, models.StorageErr("monthly revenue", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Month int     `bson:"_id"`
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, models.StorageErr("decode monthly revenue", err)
	}
	out := make(map[time.Month]float64, len(rows))
	for _, row := range rows {
		out[time.Month(row.Month)] = row.Total
	}
	return out, nil
}

func (r *RevenueRepo) CountAll(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, models.StorageErr("count revenue", err)
	}
	return n, nil
}

// FindMatching looks for a record naming the order first, then for one with
// the same guest, table, amount (to the cent) and day.
func (r *RevenueRepo) FindMatching(ctx context.Context, m models.RevenueMatch) (*models.Revenue, error) {
	filters := []bson.M{}
	if m.OrderID != "" {
		filters = append(filters, bson.M{"orderIds": m.OrderID})
	}
	filters = append(filters, bson.M{
		"guestId":     m.GuestID,
		"tableId":     m.TableID,
		"totalAmount": bson.M{"$gte": m.Amount - 0.005, "$lte": m.Amount + 0.005},
		"date":        dateRange(m.DayStart, m.DayEnd),
	})

	for _, filter := range filters {
		var rec models.Revenue
		err := r.coll.FindOne(ctx, filter).Decode(&rec)
		if err == nil {
			return &rec, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, models.StorageErr("find matching revenue", err)
		}
	}
	return nil, nil
}
