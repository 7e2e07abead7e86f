package orders

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartdine/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h httprouter.Handle, method, target, body string, ps httprouter.Params) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h(rec, req, ps)
	return rec
}

func TestPlaceOrderHandler(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.engine)

	rec := serve(h.PlaceOrder, http.MethodPost, "/api/orders",
		`{"tableId":"5","guestId":"g1","items":[{"food":"item1","quantity":2,"price":1},{"food":{"_id":"item2"},"quantity":1},{"foodId":"item2","quantity":1}]}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var o models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, 240.0, o.TotalPrice)
	assert.Equal(t, models.StatusPending, o.Status)
	assert.Len(t, o.Items, 3)
	assert.Contains(t, rec.Body.String(), `"_id":"`)
}

func TestPlaceOrderHandlerErrors(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.engine)

	assert.Equal(t, http.StatusBadRequest, serve(h.PlaceOrder, http.MethodPost, "/api/orders", `{"tableId":`, nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(h.PlaceOrder, http.MethodPost, "/api/orders", `{"tableId":"5","guestId":"g1","items":[]}`, nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(h.PlaceOrder, http.MethodPost, "/api/orders",
		`{"tableId":"5","guestId":"g1","items":[{"food":"ghost","quantity":1}]}`, nil).Code)
}

func TestStatusHandlers(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.engine)
	o := f.place(t, "g1", "5", ItemRequest{FoodID: "item1", Quantity: 1})
	ps := httprouter.Params{{Key: "id", Value: o.ID}}

	assert.Equal(t, http.StatusBadRequest, serve(h.UpdateOrderStatus, http.MethodPatch, "/", `{"status":"Eaten"}`, ps).Code)
	assert.Equal(t, http.StatusOK, serve(h.UpdateOrderStatus, http.MethodPatch, "/", `{"status":"Served"}`, ps).Code)
	assert.Equal(t, http.StatusConflict, serve(h.UpdateOrderStatus, http.MethodPatch, "/", `{"status":"Pending"}`, ps).Code)
	assert.Equal(t, http.StatusNotFound, serve(h.UpdateOrderStatus, http.MethodPatch, "/", `{"status":"Ready"}`,
		httprouter.Params{{Key: "id", Value: "nope"}}).Code)

	list := serve(h.GetOrders, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, "[]", strings.TrimSpace(list.Body.String()))
}

func TestGuestHandlers(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.engine)
	f.place(t, "g1", "5", ItemRequest{FoodID: "item1", Quantity: 1})
	f.place(t, "g1", "6", ItemRequest{FoodID: "item2", Quantity: 1})

	mine := serve(h.GetMyOrders, http.MethodGet, "/api/orders/my-orders?guestId=g1&tableId=5", "", nil)
	require.Equal(t, http.StatusOK, mine.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(mine.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	assert.Equal(t, http.StatusBadRequest, serve(h.GetMyOrders, http.MethodGet, "/api/orders/my-orders", "", nil).Code)

	ps := httprouter.Params{{Key: "guestId", Value: "g1"}}
	clear := serve(h.ClearGuestOrders, http.MethodDelete, "/api/orders/guest/g1", "", ps)
	require.Equal(t, http.StatusOK, clear.Code)
	assert.Contains(t, clear.Body.String(), `"totalAmount":120`)

	again := serve(h.ClearGuestOrders, http.MethodDelete, "/api/orders/guest/g1", "", ps)
	assert.Equal(t, http.StatusNotFound, again.Code)
	assert.Contains(t, again.Body.String(), "No orders found")
}

func TestClearTableHandler(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.engine)
	f.place(t, "g1", "5", ItemRequest{FoodID: "item1", Quantity: 1})
	ps := httprouter.Params{{Key: "tableId", Value: "5"}}

	rec := serve(h.ClearTable, http.MethodDelete, "/api/orders/clear-table/5", "", ps)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Orders for table 5 cleared.")
	assert.Equal(t, http.StatusNotFound, serve(h.ClearTable, http.MethodDelete, "/api/orders/clear-table/5", "", ps).Code)
}

func TestSettleOrderHandler(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.engine)
	o := f.place(t, "g1", "5", ItemRequest{FoodID: "item1", Quantity: 1})
	ps := httprouter.Params{{Key: "id", Value: o.ID}}

	assert.Equal(t, http.StatusOK, serve(h.SettleOrder, http.MethodDelete, "/api/orders/"+o.ID, "", ps).Code)
	assert.Equal(t, http.StatusNotFound, serve(h.SettleOrder, http.MethodDelete, "/api/orders/"+o.ID, "", ps).Code)
}
