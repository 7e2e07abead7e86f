package bills

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"smartdine/models"
	"smartdine/utils"

	"github.com/julienschmidt/httprouter"
)

type OrderSource interface {
	Order(ctx context.Context, id string) (*models.Order, error)
	GuestOrders(ctx context.Context, guestID, tableID string) ([]models.Order, error)
}

type Handler struct {
	orders   OrderSource
	renderer *Renderer
	now      func() time.Time
}

func NewHandler(orders OrderSource, renderer *Renderer) *Handler {
	return &Handler{orders: orders, renderer: renderer, now: time.Now}
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, name string, orders []models.Order) {
	pdf, err := h.renderer.Render(orders, h.now())
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=bill-"+name+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// OrderBill serves GET /api/bills/order/:id. It does not settle the order.
func (h *Handler) OrderBill(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	order, err := h.orders.Order(r.Context(), id)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	h.write(w, r, id, []models.Order{*order})
}

// GuestBill serves GET /api/bills/guest/:guestId.
func (h *Handler) GuestBill(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	guestID := ps.ByName("guestId")
	orders, err := h.orders.GuestOrders(r.Context(), guestID, utils.QueryString(r, "tableId"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	h.write(w, r, guestID, orders)
}
