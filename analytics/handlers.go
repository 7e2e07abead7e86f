package analytics

import (
	"net/http"
	"time"

	"smartdine/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	agg *Aggregator
	now func() time.Time
}

func NewHandler(agg *Aggregator) *Handler {
	return &Handler{agg: agg, now: time.Now}
}

// GetDashboardStats serves GET /api/analytics/stats.
func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	d, err := h.agg.Dashboard(r.Context(), h.now())
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "data": d})
}

// GetPeriodRevenue serves GET /api/analytics/revenue?period=month|year|lastYear.
func (h *Handler) GetPeriodRevenue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p := Period(utils.QueryString(r, "period"))
	if p == "" {
		p = PeriodMonth
	}
	sum, err := h.agg.PeriodRevenue(r.Context(), p, h.now())
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "data": sum})
}

// MigrateRevenue serves POST /api/analytics/migrate.
func (h *Handler) MigrateRevenue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, err := h.agg.Migrate(r.Context())
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "data": res})
}
