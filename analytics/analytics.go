package analytics

import (
	"context"
	"time"

	"smartdine/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TopSellingLimit is the number of items reported as top sellers.
const TopSellingLimit = 5

type Ledger interface {
	Insert(ctx context.Context, rec *models.Revenue) error
	// SumInRange totals records dated in [start, end).
	SumInRange(ctx context.Context, start, end time.Time) (models.RevenueSum, error)
	// SumByMonth totals records dated in [start, end) by calendar month in loc.
	SumByMonth(ctx context.Context, start, end time.Time, loc *time.Location) (map[time.Month]float64, error)
	CountAll(ctx context.Context) (int64, error)
	// FindMatching returns nil, nil when no record matches.
	FindMatching(ctx context.Context, m models.RevenueMatch) (*models.Revenue, error)
}

type Catalog interface {
	TopBySold(ctx context.Context, n int) ([]models.FoodItem, error)
}

type Orders interface {
	FindByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
}

type Period string

const (
	PeriodMonth    Period = "month"
	PeriodYear     Period = "year"
	PeriodLastYear Period = "lastYear"
)

// MonthRevenue is one point of the yearly trend.
type MonthRevenue struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

type TopItem struct {
	ID        string  `json:"_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	TotalSold int     `json:"totalSold"`
	Image     string  `json:"image,omitempty"`
}

// Dashboard holds every figure shown on the admin dashboard.
type Dashboard struct {
	CurrentMonthRevenue float64        `json:"currentMonthRevenue"`
	CurrentMonthOrders  int64          `json:"currentMonthOrders"`
	CurrentYearRevenue  float64        `json:"currentYearRevenue"`
	LastYearRevenue     float64        `json:"lastYearRevenue"`
	TotalRevenueRecords int64          `json:"totalRevenueRecords"`
	TopSellingItems     []TopItem      `json:"topSellingItems"`
	SalesTrend          []MonthRevenue `json:"salesTrend"`
}

type MigrationResult struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Aggregator derives dashboard figures from the revenue ledger and catalog.
// Calendar windows are computed in loc.
type Aggregator struct {
	ledger  Ledger
	catalog Catalog
	orders  Orders
	loc     *time.Location
}

func NewAggregator(ledger Ledger, catalog Catalog, orders Orders, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{ledger: ledger, catalog: catalog, orders: orders, loc: loc}
}

// Window returns the [start, end) bounds of p around now. Month and year
// are to-date windows ending at now; last year is the whole previous
// calendar year.
func (a *Aggregator) Window(p Period, now time.Time) (time.Time, time.Time, error) {
	now = now.In(a.loc)
	startOfYear := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, a.loc)
	switch p {
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, a.loc), now, nil
	case PeriodYear:
		return startOfYear, now, nil
	case PeriodLastYear:
		return startOfYear.AddDate(-1, 0, 0), startOfYear, nil
	}
	return time.Time{}, time.Time{}, errors.Wrapf(models.ErrInvalidArgument, "unknown period %q", p)
}

// PeriodRevenue totals the ledger over one calendar window. An empty window
// yields zero totals.
func (a *Aggregator) PeriodRevenue(ctx context.Context, p Period, now time.Time) (models.RevenueSum, error) {
	start, end, err := a.Window(p, now)
	if err != nil {
		return models.RevenueSum{}, err
	}
	sum, err := a.ledger.SumInRange(ctx, start, end)
	if err != nil {
		return models.RevenueSum{}, err
	}
	sum.Total = models.RoundMoney(sum.Total)
	return sum, nil
}

func (a *Aggregator) TopSelling(ctx context.Context) ([]TopItem, error) {
	foods, err := a.catalog.TopBySold(ctx, TopSellingLimit)
	if err != nil {
		return nil, err
	}
	top := make([]TopItem, 0, len(foods))
	for _, f := range foods {
		top = append(top, TopItem{ID: f.ID, Name: f.Name, Price: f.Price, TotalSold: f.TotalSold, Image: f.Image})
	}
	return top, nil
}

// MonthlyTrend returns revenue for each month of now's year. Months without
// records report zero.
func (a *Aggregator) MonthlyTrend(ctx context.Context, now time.Time) ([]MonthRevenue, error) {
	start, end, _ := a.Window(PeriodYear, now)
	byMonth, err := a.ledger.SumByMonth(ctx, start, end, a.loc)
	if err != nil {
		return nil, err
	}
	trend := make([]MonthRevenue, 12)
	for m := time.January; m <= time.December; m++ {
		trend[m-1] = MonthRevenue{
			Name:    m.String()[:3],
			Revenue: models.RoundMoney(byMonth[m]),
		}
	}
	return trend, nil
}

// Dashboard runs every query concurrently and fails if any of them does.
func (a *Aggregator) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	var (
		d                     Dashboard
		month, year, lastYear models.RevenueSum
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		month, err = a.PeriodRevenue(ctx, PeriodMonth, now)
		return err
	})
	g.Go(func() (err error) {
		year, err = a.PeriodRevenue(ctx, PeriodYear, now)
		return err
	})
	g.Go(func() (err error) {
		lastYear, err = a.PeriodRevenue(ctx, PeriodLastYear, now)
		return err
	})
	g.Go(func() (err error) {
		d.TotalRevenueRecords, err = a.ledger.CountAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.TopSellingItems, err = a.TopSelling(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.SalesTrend, err = a.MonthlyTrend(ctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.CurrentMonthRevenue = month.Total
	d.CurrentMonthOrders = month.Count
	d.CurrentYearRevenue = year.Total
	d.LastYearRevenue = lastYear.Total
	return &d, nil
}

// Migrate creates the missing revenue record of every Served order, dated
// to the order's creation. Orders already matched in the ledger are skipped,
// so running it again creates nothing.
func (a *Aggregator) Migrate(ctx context.Context) (*MigrationResult, error) {
	served, err := a.orders.FindByStatus(ctx, models.StatusServed)
	if err != nil {
		return nil, err
	}

	res := &MigrationResult{Scanned: len(served)}
	for _, o := range served {
		created := o.CreatedAt.In(a.loc)
		dayStart := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, a.loc)

		match, err := a.ledger.FindMatching(ctx, models.RevenueMatch{
			OrderID:  o.ID,
			GuestID:  o.GuestID,
			TableID:  o.TableID,
			Amount:   o.TotalPrice,
			DayStart: dayStart,
			DayEnd:   dayStart.AddDate(0, 0, 1),
		})
		if err != nil {
			return res, err
		}
		if match != nil {
			res.Skipped++
			continue
		}

		rec := &models.Revenue{
			ID:          uuid.NewString(),
			GuestID:     o.GuestID,
			TableID:     o.TableID,
			TotalAmount: o.TotalPrice,
			Date:        o.CreatedAt,
			OrderIDs:    []string{o.ID},
		}
		if err := a.ledger.Insert(ctx, rec); err != nil {
			return res, err
		}
		res.Created++
		log.WithFields(log.Fields{"order": o.ID, "amount": o.TotalPrice}).Debug("backfilled revenue")
	}

	log.WithFields(log.Fields{
		"scanned": res.Scanned,
		"created": res.Created,
		"skipped": res.Skipped,
	}).Info("revenue migration finished")
	return res, nil
}
