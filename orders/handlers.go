package orders

import (
	"encoding/json"
	"net/http"

	"smartdine/models"
	"smartdine/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type itemBody struct {
	// Food is either an id or a catalog object carrying _id.
	Food     json.RawMessage `json:"food"`
	FoodID   string          `json:"foodId"`
	Quantity int             `json:"quantity"`
	Price    *float64        `json:"price"`
}

func (b itemBody) foodRef() string {
	if b.FoodID != "" {
		return b.FoodID
	}
	if len(b.Food) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(b.Food, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(b.Food, &obj); err == nil {
		return obj.ID
	}
	return ""
}

type createBody struct {
	TableID string     `json:"tableId"`
	GuestID string     `json:"guestId"`
	Items   []itemBody `json:"items"`
}

// PlaceOrder serves POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body createBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	req := CreateOrderRequest{TableID: body.TableID, GuestID: body.GuestID}
	for _, it := range body.Items {
		req.Items = append(req.Items, ItemRequest{
			FoodID:      it.foodRef(),
			Quantity:    it.Quantity,
			ClientPrice: it.Price,
		})
	}

	order, err := h.engine.CreateOrder(r.Context(), req)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, order)
}

// GetOrders serves GET /api/orders: the kitchen queue, oldest first.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	orders, err := h.engine.ActiveOrders(r.Context())
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orders)
}

// GetMyOrders serves GET /api/orders/my-orders?guestId=&tableId=.
func (h *Handler) GetMyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	orders, err := h.engine.GuestOrders(r.Context(), utils.QueryString(r, "guestId"), utils.QueryString(r, "tableId"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orders)
}

// UpdateOrderStatus serves PATCH /api/orders/:id/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status string `json:"status"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	order, err := h.engine.TransitionStatus(r.Context(), ps.ByName("id"), body.Status)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// SettleOrder serves DELETE /api/orders/:id: the bill was handed over, so
// the order's total goes to the ledger and the order is removed.
func (h *Handler) SettleOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, err := h.engine.SettleAndDelete(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Order deleted successfully",
		"revenue": rec,
	})
}

// ClearGuestOrders serves DELETE /api/orders/guest/:guestId.
func (h *Handler) ClearGuestOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := h.engine.ClearGuestOrders(r.Context(), ps.ByName("guestId"))
	if errors.Is(err, models.ErrNotFound) {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "No orders found"})
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":  true,
		"message":  "Revenue logged, totalSold updated, orders cleared.",
		"orderIds": res.OrderIDs,
		"revenue":  res.Revenue,
	})
}

// ClearTable serves DELETE /api/orders/clear-table/:tableId.
func (h *Handler) ClearTable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tableID := ps.ByName("tableId")
	n, err := h.engine.ClearTable(r.Context(), tableID)
	if errors.Is(err, models.ErrNotFound) {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "No orders found for this table"})
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"message": "Orders for table " + tableID + " cleared.",
		"deleted": n,
	})
}
