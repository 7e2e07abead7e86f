package memstore

import (
	"context"
	"testing"
	"time"

	"smartdine/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *DB {
	t.Helper()
	db := New()
	ctx := context.Background()
	require.NoError(t, db.Foods.Create(ctx, &models.FoodItem{ID: "a", Name: "A", Price: 10}))
	require.NoError(t, db.Foods.Create(ctx, &models.FoodItem{ID: "b", Name: "B", Price: 20}))
	require.NoError(t, db.Orders.Insert(ctx, &models.Order{ID: "o1", TableID: "1", GuestID: "g", Status: models.StatusPending}))
	return db
}

func TestWithinTxRollsBack(t *testing.T) {
	db := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, db.Foods.IncrementSold(ctx, "a", 3))
		require.NoError(t, db.Revenue.Insert(ctx, &models.Revenue{ID: "r1", TotalAmount: 30}))
		require.NoError(t, db.Orders.Delete(ctx, "o1"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	f, err := db.Foods.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, f.TotalSold)
	assert.Empty(t, db.Revenue.All())
	_, err = db.Orders.Get(ctx, "o1")
	assert.NoError(t, err)
}

func TestRollbackKeepsWritesMadeOutsideTx(t *testing.T) {
	db := seed(t)
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- db.WithinTx(ctx, func(ctx context.Context) error {
			if err := db.Foods.IncrementSold(ctx, "a", 1); err != nil {
				return err
			}
			close(entered)
			<-release
			return models.ErrNotFound
		})
	}()
	<-entered

	require.NoError(t, db.Orders.Insert(ctx, &models.Order{ID: "o2", TableID: "2", GuestID: "h", Status: models.StatusPending}))
	n, err := db.Orders.DeleteMany(ctx, []string{"o1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, db.Revenue.Insert(ctx, &models.Revenue{ID: "r-outside", TotalAmount: 5}))
	require.NoError(t, db.Foods.IncrementSold(ctx, "a", 4))
	require.NoError(t, db.Foods.Create(ctx, &models.FoodItem{ID: "c", Name: "C", Price: 5}))

	close(release)
	assert.ErrorIs(t, <-done, models.ErrNotFound)

	_, err = db.Orders.Get(ctx, "o2")
	assert.NoError(t, err)
	_, err = db.Orders.Get(ctx, "o1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Len(t, db.Revenue.All(), 1)

	f, err := db.Foods.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 4, f.TotalSold)
	foods, err := db.Foods.List(ctx)
	require.NoError(t, err)
	assert.Len(t, foods, 3)
}

func TestRollbackRestoresDeletedFoodPosition(t *testing.T) {
	db := seed(t)
	ctx := context.Background()

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, db.Foods.Delete(ctx, "a"))
		require.NoError(t, db.Foods.SetImages(ctx, "b", "/img.jpg", "/thumb.jpg"))
		return models.ErrConflict
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	foods, err := db.Foods.List(ctx)
	require.NoError(t, err)
	require.Len(t, foods, 2)
	assert.Equal(t, "a", foods[0].ID)
	assert.Empty(t, foods[1].Image)
}

func TestWithinTxCommits(t *testing.T) {
	db := seed(t)
	ctx := context.Background()

	require.NoError(t, db.WithinTx(ctx, func(ctx context.Context) error {
		return db.Foods.IncrementSold(ctx, "b", 2)
	}))
	top, err := db.Foods.TopBySold(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "b", top[0].ID)
}

func TestUpdateStatusCompareAndSet(t *testing.T) {
	db := seed(t)
	ctx := context.Background()

	o, err := db.Orders.UpdateStatus(ctx, "o1", models.StatusPending, models.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, o.Status)

	_, err = db.Orders.UpdateStatus(ctx, "o1", models.StatusPending, models.StatusServed)
	assert.ErrorIs(t, err, models.ErrConflict)
	_, err = db.Orders.UpdateStatus(ctx, "missing", models.StatusPending, models.StatusServed)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIncrementSoldSkipsDeletedFood(t *testing.T) {
	db := seed(t)
	assert.NoError(t, db.Foods.IncrementSold(context.Background(), "gone", 1))
}

func TestFindMatchingPrefersOrderID(t *testing.T) {
	db := New()
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Revenue.Insert(ctx, &models.Revenue{ID: "legacy", GuestID: "g", TableID: "1", TotalAmount: 50, Date: day}))
	require.NoError(t, db.Revenue.Insert(ctx, &models.Revenue{ID: "new", TotalAmount: 99, Date: day, OrderIDs: []string{"o7"}}))

	rec, err := db.Revenue.FindMatching(ctx, models.RevenueMatch{OrderID: "o7"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "new", rec.ID)

	match := models.RevenueMatch{
		OrderID: "o8", GuestID: "g", TableID: "1", Amount: 50,
		DayStart: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DayEnd:   time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
	}
	rec, err = db.Revenue.FindMatching(ctx, match)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "legacy", rec.ID)

	match.Amount = 51
	rec, err = db.Revenue.FindMatching(ctx, match)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestIdempotencyReserve(t *testing.T) {
	db := New()
	ctx := context.Background()
	rec := &models.IdempotencyRecord{Key: "k", ExpiresAt: time.Now().Add(time.Hour)}

	ok, err := db.Idempotency.Reserve(ctx, rec)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.Idempotency.Reserve(ctx, rec)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Idempotency.Release(ctx, "k"))
	ok, err = db.Idempotency.Reserve(ctx, rec)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStaffUpsertKeepsIdentity(t *testing.T) {
	db := New()
	ctx := context.Background()
	first := &models.Staff{Email: "a@b.c", Role: models.RoleChef}
	require.NoError(t, db.Staff.Upsert(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &models.Staff{Email: "a@b.c", Role: models.RoleAdmin}
	require.NoError(t, db.Staff.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := db.Staff.FindByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
}
