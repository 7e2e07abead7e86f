package routes

import (
	"net/http"
	"strings"

	"smartdine/analytics"
	"smartdine/auth"
	"smartdine/bills"
	"smartdine/catalog"
	"smartdine/middleware"
	"smartdine/models"
	"smartdine/notify"
	"smartdine/orders"
	"smartdine/ratelim"
	"smartdine/tables"

	"github.com/julienschmidt/httprouter"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Orders    *orders.Handler
	Catalog   *catalog.Handler
	Analytics *analytics.Handler
	Auth      *auth.Handler
	Bills     *bills.Handler
	Tables    *tables.Handler
	Hub       *notify.Hub

	Idempotency  middleware.IdempotencyStore
	JWTSecret    []byte
	OrderLimiter *ratelim.RateLimiter
	LoginLimiter *ratelim.RateLimiter
	StaticDir    string
	Health       httprouter.Handle
}

func New(h Handlers) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", h.Health)
	router.GET("/ws", notify.WebSocketHandler(h.Hub))
	router.ServeFiles("/static/*filepath", http.Dir(h.StaticDir))

	AddAuthRoutes(router, h)
	AddOrderRoutes(router, h)
	AddFoodRoutes(router, h)
	AddAnalyticsRoutes(router, h)
	AddBillRoutes(router, h)
	AddTableRoutes(router, h)
	return router
}

func staff(h Handlers, next httprouter.Handle) httprouter.Handle {
	return middleware.Authenticate(h.JWTSecret)(next)
}

func admin(h Handlers, next httprouter.Handle) httprouter.Handle {
	return staff(h, middleware.RequireRole(models.RoleAdmin)(next))
}

func AddAuthRoutes(router *httprouter.Router, h Handlers) {
	router.POST("/api/auth/login", h.LoginLimiter.Limit(h.Auth.Login))
	router.POST("/api/auth/register", admin(h, h.Auth.Register))
}

func AddOrderRoutes(router *httprouter.Router, h Handlers) {
	// guest
	router.POST("/api/orders", h.OrderLimiter.Limit(h.Orders.PlaceOrder))
	router.GET("/api/orders/my-orders", h.Orders.GetMyOrders)

	// kitchen
	router.GET("/api/orders", staff(h, h.Orders.GetOrders))
	router.PATCH("/api/orders/:id/status", staff(h, h.Orders.UpdateOrderStatus))

	router.DELETE("/api/orders/*rest", orderDeletes(
		h.Orders.SettleOrder,
		middleware.Idempotency(h.Idempotency)(h.Orders.ClearGuestOrders),
		staff(h, h.Orders.ClearTable),
	))
}

// orderDeletes dispatches DELETE /api/orders/:id, /api/orders/guest/:guestId
// and /api/orders/clear-table/:tableId, which httprouter cannot register side
// by side.
func orderDeletes(settle, clearGuest, clearTable httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		parts := strings.Split(strings.Trim(ps.ByName("rest"), "/"), "/")
		switch {
		case len(parts) == 1 && parts[0] != "":
			settle(w, r, httprouter.Params{{Key: "id", Value: parts[0]}})
		case len(parts) == 2 && parts[0] == "guest" && parts[1] != "":
			clearGuest(w, r, httprouter.Params{{Key: "guestId", Value: parts[1]}})
		case len(parts) == 2 && parts[0] == "clear-table" && parts[1] != "":
			clearTable(w, r, httprouter.Params{{Key: "tableId", Value: parts[1]}})
		default:
			http.NotFound(w, r)
		}
	}
}

func AddFoodRoutes(router *httprouter.Router, h Handlers) {
	router.GET("/api/foods", h.Catalog.GetFoods)
	router.POST("/api/foods", admin(h, h.Catalog.AddFood))
	router.DELETE("/api/foods/:id", admin(h, h.Catalog.DeleteFood))
	router.POST("/api/foods/:id/image", admin(h, h.Catalog.UploadFoodImage))
}

func AddAnalyticsRoutes(router *httprouter.Router, h Handlers) {
	router.GET("/api/analytics/stats", admin(h, h.Analytics.GetDashboardStats))
	router.GET("/api/analytics/revenue", admin(h, h.Analytics.GetPeriodRevenue))
	router.POST("/api/analytics/migrate", admin(h, h.Analytics.MigrateRevenue))
}

func AddBillRoutes(router *httprouter.Router, h Handlers) {
	router.GET("/api/bills/order/:id", h.Bills.OrderBill)
	router.GET("/api/bills/guest/:guestId", h.Bills.GuestBill)
}

func AddTableRoutes(router *httprouter.Router, h Handlers) {
	router.GET("/api/tables/:tableId/qr", h.Tables.TableQR)
}
