// Package memstore keeps orders, the catalog, the revenue ledger, staff
// logins and idempotency records in process memory. It is used for local
// runs without MongoDB and as the persistence fake in tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartdine/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	orders      map[string]models.Order
	foods       map[string]models.FoodItem
	foodOrder   []string
	revenue     []models.Revenue
	staff       map[string]models.Staff
	idempotency map[string]models.IdempotencyRecord

	Orders      *OrderRepo
	Foods       *FoodRepo
	Revenue     *RevenueRepo
	Staff       *StaffRepo
	Idempotency *IdempotencyRepo
}

func New() *DB {
	db := &DB{
		orders:      make(map[string]models.Order),
		foods:       make(map[string]models.FoodItem),
		staff:       make(map[string]models.Staff),
		idempotency: make(map[string]models.IdempotencyRecord),
	}
	db.Orders = &OrderRepo{db: db}
	db.Foods = &FoodRepo{db: db}
	db.Revenue = &RevenueRepo{db: db}
	db.Staff = &StaffRepo{db: db}
	db.Idempotency = &IdempotencyRepo{db: db}
	return db
}

// txLog collects the inverse of every write made inside one transaction.
type txLog struct {
	db   *DB
	undo []func()
}

type txKey struct{}

// record registers the inverse of a write. It is a no-op outside a
// transaction of db. Callers hold db.mu.
func (db *DB) record(ctx context.Context, inverse func()) {
	if l, ok := ctx.Value(txKey{}).(*txLog); ok && l.db == db {
		l.undo = append(l.undo, inverse)
	}
}

// WithinTx serialises transactions. When fn fails only the writes made
// through its ctx are reverted; writes of other callers are kept.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	l := &txLog{db: db}
	if err := fn(context.WithValue(ctx, txKey{}, l)); err != nil {
		db.mu.Lock()
		for i := len(l.undo) - 1; i >= 0; i-- {
			l.undo[i]()
		}
		db.mu.Unlock()
		return err
	}
	return nil
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

// ---- orders ----

type OrderRepo struct{ db *DB }

func (r *OrderRepo) Insert(ctx context.Context, order *models.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.orders[order.ID]; ok {
		return errors.Wrapf(models.ErrConflict, "order %s already exists", order.ID)
	}
	id := order.ID
	r.db.orders[id] = copyOrder(*order)
	r.db.record(ctx, func() { delete(r.db.orders, id) })
	return nil
}

func (r *OrderRepo) Get(_ context.Context, id string) (*models.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	o = copyOrder(o)
	return &o, nil
}

func (r *OrderRepo) filter(keep func(models.Order) bool) []models.Order {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Order{}
	for _, o := range r.db.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	return out
}

func (r *OrderRepo) FindByGuestAndTable(_ context.Context, guestID, tableID string) ([]models.Order, error) {
	out := r.filter(func(o models.Order) bool {
		return o.GuestID == guestID && (tableID == "" || o.TableID == tableID)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderRepo) FindByTable(_ context.Context, tableID string) ([]models.Order, error) {
	out := r.filter(func(o models.Order) bool { return o.TableID == tableID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderRepo) FindActive(_ context.Context) ([]models.Order, error) {
	out := r.filter(func(o models.Order) bool { return !o.Status.Terminal() })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderRepo) FindByStatus(_ context.Context, status models.OrderStatus) ([]models.Order, error) {
	out := r.filter(func(o models.Order) bool { return o.Status == status })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	if o.Status != from {
		return nil, errors.Wrapf(models.ErrConflict, "order %s is %s, expected %s", id, o.Status, from)
	}
	prev := o
	r.db.record(ctx, func() { r.db.orders[id] = prev })
	o.Status = to
	o.UpdatedAt = time.Now()
	r.db.orders[id] = o
	o = copyOrder(o)
	return &o, nil
}

func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	prev, ok := r.db.orders[id]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	delete(r.db.orders, id)
	r.db.record(ctx, func() { r.db.orders[id] = prev })
	return nil
}

func (r *OrderRepo) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if prev, ok := r.db.orders[id]; ok {
			delete(r.db.orders, id)
			r.db.record(ctx, func() { r.db.orders[prev.ID] = prev })
			n++
		}
	}
	return n, nil
}

// ---- catalog ----

type FoodRepo struct{ db *DB }

func (r *FoodRepo) Create(ctx context.Context, food *models.FoodItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.foods[food.ID]; ok {
		return errors.Wrapf(models.ErrConflict, "food item %s already exists", food.ID)
	}
	id := food.ID
	r.db.foods[id] = *food
	r.db.foodOrder = append(r.db.foodOrder, id)
	r.db.record(ctx, func() { r.removeLocked(id) })
	return nil
}

// removeLocked drops a food item and reports its position in foodOrder.
func (r *FoodRepo) removeLocked(id string) int {
	delete(r.db.foods, id)
	for i, fid := range r.db.foodOrder {
		if fid == id {
			r.db.foodOrder = append(r.db.foodOrder[:i:i], r.db.foodOrder[i+1:]...)
			return i
		}
	}
	return -1
}

func (r *FoodRepo) Get(_ context.Context, id string) (*models.FoodItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.foods[id]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "food item %s", id)
	}
	return &f, nil
}

// List returns items in insertion order.
func (r *FoodRepo) List(_ context.Context) ([]models.FoodItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.FoodItem, 0, len(r.db.foodOrder))
	for _, id := range r.db.foodOrder {
		out = append(out, r.db.foods[id])
	}
	return out, nil
}

func (r *FoodRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	prev, ok := r.db.foods[id]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "food item %s", id)
	}
	pos := r.removeLocked(id)
	r.db.record(ctx, func() {
		r.db.foods[id] = prev
		if pos < 0 || pos > len(r.db.foodOrder) {
			pos = len(r.db.foodOrder)
		}
		r.db.foodOrder = append(r.db.foodOrder[:pos:pos], append([]string{id}, r.db.foodOrder[pos:]...)...)
	})
	return nil
}

func (r *FoodRepo) SetImages(ctx context.Context, id, image, thumbnail string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.foods[id]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "food item %s", id)
	}
	prev := f
	r.db.record(ctx, func() {
		if cur, ok := r.db.foods[id]; ok {
			cur.Image, cur.Thumbnail, cur.UpdatedAt = prev.Image, prev.Thumbnail, prev.UpdatedAt
			r.db.foods[id] = cur
		}
	})
	f.Image = image
	f.Thumbnail = thumbnail
	f.UpdatedAt = time.Now()
	r.db.foods[id] = f
	return nil
}

func (r *FoodRepo) IncrementSold(ctx context.Context, id string, by int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.foods[id]
	if !ok {
		return nil
	}
	f.TotalSold += by
	r.db.foods[id] = f
	r.db.record(ctx, func() {
		if cur, ok := r.db.foods[id]; ok {
			cur.TotalSold -= by
			r.db.foods[id] = cur
		}
	})
	return nil
}

// TopBySold ranks by TotalSold; ties keep insertion order.
func (r *FoodRepo) TopBySold(ctx context.Context, n int) ([]models.FoodItem, error) {
	all, _ := r.List(ctx)
	sort.SliceStable(all, func(i, j int) bool { return all[i].TotalSold > all[j].TotalSold })
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// ---- revenue ----

type RevenueRepo struct{ db *DB }

func (r *RevenueRepo) Insert(ctx context.Context, rec *models.Revenue) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *rec
	cp.OrderIDs = append([]string(nil), rec.OrderIDs...)
	r.db.revenue = append(r.db.revenue, cp)
	r.db.record(ctx, func() {
		for i := range r.db.revenue {
			if r.db.revenue[i].ID == cp.ID {
				r.db.revenue = append(r.db.revenue[:i:i], r.db.revenue[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *RevenueRepo) All() []models.Revenue {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]models.Revenue(nil), r.db.revenue...)
}

func (r *RevenueRepo) SumInRange(_ context.Context, start, end time.Time) (models.RevenueSum, error) {
	var sum models.RevenueSum
	for _, rec := range r.All() {
		if !rec.Date.Before(start) && rec.Date.Before(end) {
			sum.Total += rec.TotalAmount
			sum.Count++
		}
	}
	sum.Total = models.RoundMoney(sum.Total)
	return sum, nil
}

func (r *RevenueRepo) SumByMonth(_ context.Context, start, end time.Time, loc *time.Location) (map[time.Month]float64, error) {
	out := make(map[time.Month]float64)
	for _, rec := range r.All() {
		if !rec.Date.Before(start) && rec.Date.Before(end) {
			out[rec.Date.In(loc).Month()] += rec.TotalAmount
		}
	}
	return out, nil
}

func (r *RevenueRepo) CountAll(_ context.Context) (int64, error) {
	return int64(len(r.All())), nil
}

// FindMatching prefers a record that names the order, then falls back to
// guest, table, amount and day.
func (r *RevenueRepo) FindMatching(_ context.Context, m models.RevenueMatch) (*models.Revenue, error) {
	all := r.All()
	for i := range all {
		for _, id := range all[i].OrderIDs {
			if m.OrderID != "" && id == m.OrderID {
				return &all[i], nil
			}
		}
	}
	for i := range all {
		rec := all[i]
		if rec.GuestID == m.GuestID && rec.TableID == m.TableID &&
			models.RoundMoney(rec.TotalAmount) == models.RoundMoney(m.Amount) &&
			!rec.Date.Before(m.DayStart) && rec.Date.Before(m.DayEnd) {
			return &rec, nil
		}
	}
	return nil, nil
}

// ---- staff ----

type StaffRepo struct{ db *DB }

func (r *StaffRepo) FindByEmail(_ context.Context, email string) (*models.Staff, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.staff[email]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "staff %s", email)
	}
	return &s, nil
}

func (r *StaffRepo) Upsert(_ context.Context, s *models.Staff) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if prev, ok := r.db.staff[s.Email]; ok {
		s.ID = prev.ID
		s.CreatedAt = prev.CreatedAt
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	r.db.staff[s.Email] = *s
	return nil
}

func (r *StaffRepo) TouchLogin(_ context.Context, id string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for email, s := range r.db.staff {
		if s.ID == id {
			s.LastLogin = at
			r.db.staff[email] = s
			return nil
		}
	}
	return errors.Wrapf(models.ErrNotFound, "staff %s", id)
}

// ---- idempotency ----

type IdempotencyRepo struct{ db *DB }

func (r *IdempotencyRepo) Reserve(_ context.Context, rec *models.IdempotencyRecord) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if prev, ok := r.db.idempotency[rec.Key]; ok && prev.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	r.db.idempotency[rec.Key] = *rec
	return true, nil
}

func (r *IdempotencyRepo) Find(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.idempotency[key]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "idempotency key %s", key)
	}
	return &rec, nil
}

func (r *IdempotencyRepo) SaveResponse(_ context.Context, key string, resp map[string]interface{}) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.idempotency[key]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "idempotency key %s", key)
	}
	rec.Response = resp
	r.db.idempotency[key] = rec
	return nil
}

func (r *IdempotencyRepo) Release(_ context.Context, key string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.idempotency, key)
	return nil
}
