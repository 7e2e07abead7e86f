package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartdine/memstore"
	"smartdine/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

func addRevenue(t *testing.T, db *memstore.DB, id string, amount float64, at time.Time) {
	t.Helper()
	require.NoError(t, db.Revenue.Insert(context.Background(), &models.Revenue{
		ID: id, GuestID: "g1", TableID: "5", TotalAmount: amount, Date: at,
	}))
}

func newAggregator(db *memstore.DB) *Aggregator {
	return NewAggregator(db.Revenue, db.Foods, db.Orders, time.UTC)
}

func TestMonthlyTrendZeroFillsEveryMonth(t *testing.T) {
	db := memstore.New()
	addRevenue(t, db, "r1", 10, time.Date(2024, time.March, 3, 9, 0, 0, 0, time.UTC))
	addRevenue(t, db, "r2", 15.5, time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC))
	addRevenue(t, db, "r3", 99, time.Date(2023, time.March, 20, 9, 0, 0, 0, time.UTC))

	trend, err := newAggregator(db).MonthlyTrend(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, trend, 12)

	for i, p := range trend {
		assert.Equal(t, time.Month(i+1).String()[:3], p.Name)
		if p.Name == "Mar" {
			assert.Equal(t, 25.5, p.Revenue)
		} else {
			assert.Zero(t, p.Revenue, p.Name)
		}
	}
}

func TestPeriodRevenueWindows(t *testing.T) {
	db := memstore.New()
	addRevenue(t, db, "may-start", 10, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	addRevenue(t, db, "april-end", 20, time.Date(2024, time.April, 30, 23, 59, 59, 0, time.UTC))
	addRevenue(t, db, "june-start", 40, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	addRevenue(t, db, "last-year", 80, time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC))
	addRevenue(t, db, "this-year", 160, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	addRevenue(t, db, "later-this-month", 320, now.Add(time.Hour))

	agg := newAggregator(db)
	ctx := context.Background()

	month, err := agg.PeriodRevenue(ctx, PeriodMonth, now)
	require.NoError(t, err)
	assert.Equal(t, models.RevenueSum{Total: 10, Count: 1}, month)

	year, err := agg.PeriodRevenue(ctx, PeriodYear, now)
	require.NoError(t, err)
	assert.Equal(t, models.RevenueSum{Total: 190, Count: 3}, year)

	last, err := agg.PeriodRevenue(ctx, PeriodLastYear, now)
	require.NoError(t, err)
	assert.Equal(t, models.RevenueSum{Total: 80, Count: 1}, last)

	_, err = agg.PeriodRevenue(ctx, Period("decade"), now)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestPeriodRevenueEmptyLedgerIsZero(t *testing.T) {
	sum, err := newAggregator(memstore.New()).PeriodRevenue(context.Background(), PeriodYear, now)
	require.NoError(t, err)
	assert.Equal(t, models.RevenueSum{}, sum)
}

func TestWindowUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	agg := NewAggregator(nil, nil, nil, tokyo)

	// 2024-04-30 20:00 UTC is already May 1st in Tokyo.
	at := time.Date(2024, time.April, 30, 20, 0, 0, 0, time.UTC)
	start, end, err := agg.Window(PeriodMonth, at)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, tokyo), start)
	assert.True(t, end.Equal(at))

	start, end, err = agg.Window(PeriodLastYear, at)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, tokyo), start)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, tokyo), end)
}

func TestDashboard(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	for i, sold := range []int{3, 9, 1, 7, 5, 2} {
		require.NoError(t, db.Foods.Create(ctx, &models.FoodItem{
			ID: string(rune('a' + i)), Name: "dish", Price: 4, TotalSold: sold,
		}))
	}
	addRevenue(t, db, "r1", 12.25, time.Date(2024, time.May, 2, 12, 0, 0, 0, time.UTC))
	addRevenue(t, db, "r2", 7.75, time.Date(2024, time.February, 2, 12, 0, 0, 0, time.UTC))
	addRevenue(t, db, "r3", 30, time.Date(2023, time.July, 2, 12, 0, 0, 0, time.UTC))

	d, err := newAggregator(db).Dashboard(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 12.25, d.CurrentMonthRevenue)
	assert.EqualValues(t, 1, d.CurrentMonthOrders)
	assert.Equal(t, 20.0, d.CurrentYearRevenue)
	assert.Equal(t, 30.0, d.LastYearRevenue)
	assert.EqualValues(t, 3, d.TotalRevenueRecords)
	require.Len(t, d.SalesTrend, 12)

	require.Len(t, d.TopSellingItems, TopSellingLimit)
	var sold []int
	for _, it := range d.TopSellingItems {
		sold = append(sold, it.TotalSold)
	}
	assert.Equal(t, []int{9, 7, 5, 3, 2}, sold)
}

func TestMigrateBackfillsServedOrdersOnce(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	created := time.Date(2024, time.February, 10, 19, 30, 0, 0, time.UTC)

	orders := []models.Order{
		{ID: "served-missing", TableID: "5", GuestID: "g1", TotalPrice: 20, Status: models.StatusServed, CreatedAt: created},
		{ID: "served-settled", TableID: "6", GuestID: "g2", TotalPrice: 12.5, Status: models.StatusServed, CreatedAt: created},
		{ID: "pending", TableID: "7", GuestID: "g3", TotalPrice: 8, Status: models.StatusPending, CreatedAt: created},
	}
	for i := range orders {
		require.NoError(t, db.Orders.Insert(ctx, &orders[i]))
	}
	// legacy record without order ids, matched by guest, table, amount and day
	require.NoError(t, db.Revenue.Insert(ctx, &models.Revenue{
		ID: "legacy", GuestID: "g2", TableID: "6", TotalAmount: 12.5,
		Date: created.Add(2 * time.Hour),
	}))

	agg := newAggregator(db)
	res, err := agg.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrationResult{Scanned: 2, Created: 1, Skipped: 1}, *res)

	recs := db.Revenue.All()
	require.Len(t, recs, 2)
	backfilled := recs[1]
	assert.Equal(t, []string{"served-missing"}, backfilled.OrderIDs)
	assert.Equal(t, created, backfilled.Date)
	assert.Equal(t, 20.0, backfilled.TotalAmount)

	again, err := agg.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrationResult{Scanned: 2, Created: 0, Skipped: 2}, *again)
	assert.Len(t, db.Revenue.All(), 2)
}

func TestGetPeriodRevenueRejectsUnknownPeriod(t *testing.T) {
	h := NewHandler(newAggregator(memstore.New()))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analytics/revenue?period=week", nil)

	h.GetPeriodRevenue(rec, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDashboardStatsShape(t *testing.T) {
	h := NewHandler(newAggregator(memstore.New()))
	h.now = func() time.Time { return now }
	rec := httptest.NewRecorder()

	h.GetDashboardStats(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/stats", nil), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"salesTrend":[{"name":"Jan","revenue":0}`)
	assert.Contains(t, rec.Body.String(), `"topSellingItems":[]`)
}
