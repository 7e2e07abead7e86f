package orders

import (
	"context"
	"strings"
	"time"

	"smartdine/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ItemRequest is one requested line item. Only the food reference and the
// quantity are trusted; ClientPrice is compared against the catalog and
// otherwise ignored.
type ItemRequest struct {
	FoodID      string
	Quantity    int
	ClientPrice *float64
}

type CreateOrderRequest struct {
	TableID string
	GuestID string
	Items   []ItemRequest
}

// ClearResult describes a guest checkout.
type ClearResult struct {
	Revenue  *models.Revenue `json:"revenue,omitempty"`
	OrderIDs []string        `json:"orderIds"`
}

// Engine owns the order lifecycle: creation, status transitions and
// settlement, with the catalog and ledger side effects each one carries.
type Engine struct {
	orders   OrderStore
	catalog  CatalogStore
	ledger   RevenueLedger
	tx       Transactor
	notifier Notifier

	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

// WithClock overrides the time source used for createdAt and settlement dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(orders OrderStore, catalog CatalogStore, ledger RevenueLedger, tx Transactor, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		orders:   orders,
		catalog:  catalog,
		ledger:   ledger,
		tx:       tx,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateOrder snapshots name and price of every requested food item and
// stores a Pending order priced from the catalog.
func (e *Engine) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	tableID := strings.TrimSpace(req.TableID)
	guestID := strings.TrimSpace(req.GuestID)
	if tableID == "" {
		return nil, errors.Wrap(models.ErrInvalidArgument, "tableId is required")
	}
	if guestID == "" {
		return nil, errors.Wrap(models.ErrInvalidArgument, "guestId is required")
	}
	if len(req.Items) == 0 {
		return nil, errors.Wrap(models.ErrInvalidArgument, "order must contain at least one item")
	}

	resolved := make(map[string]*models.FoodItem, len(req.Items))
	items := make([]models.OrderItem, 0, len(req.Items))
	for i, it := range req.Items {
		foodID := strings.TrimSpace(it.FoodID)
		if foodID == "" {
			return nil, errors.Wrapf(models.ErrInvalidArgument, "item %d: food reference is required", i)
		}
		if it.Quantity < 1 {
			return nil, errors.Wrapf(models.ErrInvalidArgument, "item %d: quantity must be at least 1", i)
		}

		food, ok := resolved[foodID]
		if !ok {
			f, err := e.catalog.Get(ctx, foodID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					return nil, errors.Wrapf(models.ErrNotFound, "food item %s", foodID)
				}
				return nil, err
			}
			food = f
			resolved[foodID] = f
		}

		if it.ClientPrice != nil && models.RoundMoney(*it.ClientPrice) != models.RoundMoney(food.Price) {
			log.WithFields(log.Fields{
				"food":         foodID,
				"client_price": *it.ClientPrice,
				"price":        food.Price,
			}).Debug("ignoring client supplied price")
		}

		items = append(items, models.OrderItem{
			FoodID:   food.ID,
			Name:     food.Name,
			Price:    food.Price,
			Quantity: it.Quantity,
		})
	}

	now := e.now()
	order := &models.Order{
		ID:         e.newID(),
		TableID:    tableID,
		GuestID:    guestID,
		Items:      items,
		TotalPrice: models.SumItems(items),
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"order": order.ID, "table": tableID, "total": order.TotalPrice}).Info("order placed")
	e.notifier.BroadcastAll(EventNewOrder, order)
	return order, nil
}

// TransitionStatus moves an order to status. The update is conditioned on
// the status observed before the change, so two concurrent Served requests
// increment the sold counters once and the loser gets models.ErrConflict.
func (e *Engine) TransitionStatus(ctx context.Context, id, status string) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, errors.Wrapf(models.ErrInvalidArgument, "invalid status value %q", status)
	}
	if id == "" {
		return nil, errors.Wrap(models.ErrInvalidArgument, "order id is required")
	}

	current, err := e.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, next) {
		return nil, errors.Wrapf(models.ErrConflict, "order %s cannot move from %s to %s", id, current.Status, next)
	}

	var updated *models.Order
	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := e.orders.UpdateStatus(ctx, id, current.Status, next)
		if err != nil {
			return err
		}
		if next == models.StatusServed {
			if err := e.countSold(ctx, o.Items); err != nil {
				return err
			}
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"order": id, "from": current.Status, "to": next}).Info("order status changed")
	e.notifier.BroadcastAll(EventOrderUpdated, updated)
	if notifiesGuest(next) {
		e.notifier.BroadcastToChannel(updated.TableID, EventOrderStatusUpdate, updated)
	}
	return updated, nil
}

// SettleAndDelete records the order's total in the revenue ledger and
// removes the order. Cancelled orders are removed without a record.
func (e *Engine) SettleAndDelete(ctx context.Context, id string) (*models.Revenue, error) {
	if id == "" {
		return nil, errors.Wrap(models.ErrInvalidArgument, "order id is required")
	}
	order, err := e.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var rec *models.Revenue
	if order.Status != models.StatusCancelled {
		rec = &models.Revenue{
			ID:          e.newID(),
			GuestID:     order.GuestID,
			TableID:     order.TableID,
			TotalAmount: order.TotalPrice,
			Date:        e.now(),
			OrderIDs:    []string{order.ID},
		}
	}

	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		if rec != nil {
			if err := e.ledger.Insert(ctx, rec); err != nil {
				return err
			}
		}
		return e.orders.Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"order": id, "settled": rec != nil}).Info("order settled")
	e.notifier.BroadcastAll(EventOrderDeleted, models.OrderDeleted{ID: id})
	return rec, nil
}

// ClearGuestOrders settles every order of a guest into one revenue record,
// counts sold units for orders that were not served yet and deletes them,
// all in one transaction.
func (e *Engine) ClearGuestOrders(ctx context.Context, guestID string) (*ClearResult, error) {
	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		return nil, errors.Wrap(models.ErrInvalidArgument, "guestId is required")
	}

	var res *ClearResult
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		found, err := e.orders.FindByGuestAndTable(ctx, guestID, "")
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return errors.Wrapf(models.ErrNotFound, "no orders for guest %s", guestID)
		}

		res = &ClearResult{OrderIDs: make([]string, 0, len(found))}
		var total float64
		billable := 0
		for _, o := range found {
			res.OrderIDs = append(res.OrderIDs, o.ID)
			if o.Status == models.StatusCancelled {
				continue
			}
			billable++
			total += o.TotalPrice
			// Served orders were counted by their transition.
			if o.Status != models.StatusServed {
				if err := e.countSold(ctx, o.Items); err != nil {
					return err
				}
			}
		}

		if billable > 0 {
			res.Revenue = &models.Revenue{
				ID:          e.newID(),
				GuestID:     guestID,
				TableID:     found[0].TableID,
				TotalAmount: models.RoundMoney(total),
				Date:        e.now(),
				OrderIDs:    res.OrderIDs,
			}
			if err := e.ledger.Insert(ctx, res.Revenue); err != nil {
				return err
			}
		}

		deleted, err := e.orders.DeleteMany(ctx, res.OrderIDs)
		if err != nil {
			return err
		}
		if deleted != int64(len(res.OrderIDs)) {
			return errors.Wrapf(models.ErrConflict, "guest %s orders changed during checkout", guestID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"guest": guestID, "orders": len(res.OrderIDs)}).Info("guest orders cleared")
	for _, id := range res.OrderIDs {
		e.notifier.BroadcastAll(EventOrderDeleted, models.OrderDeleted{ID: id})
	}
	return res, nil
}

// ClearTable deletes every order of a table without touching revenue or
// sold counters.
func (e *Engine) ClearTable(ctx context.Context, tableID string) (int64, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return 0, errors.Wrap(models.ErrInvalidArgument, "tableId is required")
	}
	found, err := e.orders.FindByTable(ctx, tableID)
	if err != nil {
		return 0, err
	}
	if len(found) == 0 {
		return 0, errors.Wrapf(models.ErrNotFound, "no orders for table %s", tableID)
	}

	ids := make([]string, len(found))
	for i, o := range found {
		ids[i] = o.ID
	}
	deleted, err := e.orders.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{"table": tableID, "deleted": deleted}).Warn("table orders wiped")
	for _, id := range ids {
		e.notifier.BroadcastAll(EventOrderDeleted, models.OrderDeleted{ID: id})
	}
	return deleted, nil
}

func (e *Engine) ActiveOrders(ctx context.Context) ([]models.Order, error) {
	return e.orders.FindActive(ctx)
}

func (e *Engine) GuestOrders(ctx context.Context, guestID, tableID string) ([]models.Order, error) {
	if strings.TrimSpace(guestID) == "" {
		return nil, errors.Wrap(models.ErrInvalidArgument, "guestId is required")
	}
	return e.orders.FindByGuestAndTable(ctx, guestID, tableID)
}

func (e *Engine) Order(ctx context.Context, id string) (*models.Order, error) {
	return e.orders.Get(ctx, id)
}

func (e *Engine) countSold(ctx context.Context, items []models.OrderItem) error {
	for _, it := range items {
		if err := e.catalog.IncrementSold(ctx, it.FoodID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}
