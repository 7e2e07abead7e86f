package tables

import (
	"net/http"
	"strconv"
	"strings"

	"smartdine/bills"
	"smartdine/models"
	"smartdine/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

type Handler struct {
	menuURL string
}

func NewHandler(menuURL string) *Handler {
	return &Handler{menuURL: menuURL}
}

// TableQR serves GET /api/tables/:tableId/qr as a PNG pointing guests at the
// menu for that table. ?size= sets the edge length in pixels.
func (h *Handler) TableQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tableID := strings.TrimSpace(ps.ByName("tableId"))
	if tableID == "" {
		utils.RespondWithAppError(w, r, errors.Wrap(models.ErrInvalidArgument, "tableId is required"))
		return
	}
	size := utils.QueryInt(r, "size", defaultQRSize)
	if size < 64 || size > maxQRSize {
		utils.RespondWithAppError(w, r, errors.Wrapf(models.ErrInvalidArgument, "size must be between 64 and %d", maxQRSize))
		return
	}

	png, err := qrcode.Encode(bills.TableURL(h.menuURL, tableID), qrcode.Medium, size)
	if err != nil {
		utils.RespondWithAppError(w, r, errors.Wrap(err, "encode qr code"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
