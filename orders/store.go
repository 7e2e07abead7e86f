package orders

import (
	"context"

	"smartdine/models"
)

// OrderStore persists orders. Implementations return errors matching
// models.ErrNotFound, models.ErrConflict or models.ErrStorage.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	// FindByGuestAndTable returns a guest's orders, newest first. An empty
	// tableID matches every table.
	FindByGuestAndTable(ctx context.Context, guestID, tableID string) ([]models.Order, error)
	FindByTable(ctx context.Context, tableID string) ([]models.Order, error)
	// FindActive returns Pending, Preparing and Ready orders, oldest first.
	FindActive(ctx context.Context) ([]models.Order, error)
	// UpdateStatus sets the status only if the stored status still equals
	// from. A lost race yields models.ErrConflict.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

type CatalogStore interface {
	Get(ctx context.Context, id string) (*models.FoodItem, error)
	// IncrementSold must be an atomic increment, not read-modify-write.
	// Items deleted from the catalog since the order was placed are skipped.
	IncrementSold(ctx context.Context, id string, by int) error
}

type RevenueLedger interface {
	Insert(ctx context.Context, rec *models.Revenue) error
}

// Transactor runs fn so that every store call made with the ctx it receives
// commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier pushes lifecycle events to connected clients. Delivery is best
// effort; implementations log failures instead of returning them.
type Notifier interface {
	BroadcastAll(event string, payload any)
	BroadcastToChannel(channel, event string, payload any)
}

// Event names on the wire.
const (
	EventNewOrder          = "newOrder"
	EventOrderUpdated      = "orderUpdated"
	EventOrderDeleted      = "orderDeleted"
	EventOrderStatusUpdate = "orderStatusUpdate"
)
