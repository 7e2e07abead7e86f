package bills

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartdine/memstore"
	"smartdine/models"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeSource struct{ db *memstore.DB }

func (s storeSource) Order(ctx context.Context, id string) (*models.Order, error) {
	return s.db.Orders.Get(ctx, id)
}

func (s storeSource) GuestOrders(ctx context.Context, guestID, tableID string) ([]models.Order, error) {
	return s.db.Orders.FindByGuestAndTable(ctx, guestID, tableID)
}

func renderer() *Renderer {
	return &Renderer{Restaurant: "Smart Dine", Currency: "Rs.", MenuURL: "https://dine.example.com/menu"}
}

func sampleOrder(id string, status models.OrderStatus) models.Order {
	items := []models.OrderItem{
		{FoodID: "f1", Name: "Pizza", Price: 10, Quantity: 2},
		{FoodID: "f2", Name: "Café latte", Price: 3.5, Quantity: 1},
	}
	return models.Order{
		ID: id, TableID: "5", GuestID: "g1", Items: items,
		TotalPrice: models.SumItems(items), Status: status, CreatedAt: time.Now(),
	}
}

func TestRenderProducesPDF(t *testing.T) {
	pdf, err := renderer().Render([]models.Order{
		sampleOrder("o1", models.StatusServed),
		sampleOrder("o2", models.StatusCancelled),
	}, time.Now())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestRenderWithoutOrders(t *testing.T) {
	_, err := renderer().Render(nil, time.Now())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestTableURL(t *testing.T) {
	assert.Equal(t, "https://dine.example.com/menu?table=5", TableURL("https://dine.example.com/menu", "5"))
	assert.Equal(t, "https://dine.example.com/?lang=en&table=A+1", TableURL("https://dine.example.com/?lang=en", "A 1"))
}

func TestBillHandlers(t *testing.T) {
	db := memstore.New()
	o := sampleOrder("o1", models.StatusServed)
	require.NoError(t, db.Orders.Insert(context.Background(), &o))
	h := NewHandler(storeSource{db}, renderer())

	rec := httptest.NewRecorder()
	h.OrderBill(rec, httptest.NewRequest(http.MethodGet, "/api/bills/order/o1", nil),
		httprouter.Params{{Key: "id", Value: "o1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = httptest.NewRecorder()
	h.OrderBill(rec, httptest.NewRequest(http.MethodGet, "/api/bills/order/missing", nil),
		httprouter.Params{{Key: "id", Value: "missing"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GuestBill(rec, httptest.NewRequest(http.MethodGet, "/api/bills/guest/g1", nil),
		httprouter.Params{{Key: "guestId", Value: "g1"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	// the bill does not settle anything
	_, err := db.Orders.Get(context.Background(), "o1")
	assert.NoError(t, err)
	assert.Empty(t, db.Revenue.All())
}
