package bills

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"smartdine/models"

	"github.com/phpdave11/gofpdf"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

// Renderer builds printable bills from the snapshotted lines of orders.
type Renderer struct {
	Restaurant string
	Currency   string
	MenuURL    string
	Location   *time.Location
}

// TableURL is the menu link encoded in a table's QR code.
func TableURL(menuURL, tableID string) string {
	u, err := url.Parse(menuURL)
	if err != nil {
		return menuURL + "?table=" + url.QueryEscape(tableID)
	}
	q := u.Query()
	q.Set("table", tableID)
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Renderer) money(v float64) string {
	return fmt.Sprintf("%s%.2f", r.Currency, v)
}

// Render returns a PDF listing every line of orders and their grand total.
// All orders are expected to belong to one guest.
func (r *Renderer) Render(orders []models.Order, printedAt time.Time) ([]byte, error) {
	if len(orders) == 0 {
		return nil, errors.Wrap(models.ErrNotFound, "no orders to bill")
	}
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(r.Restaurant+" bill"), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(r.Restaurant), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, "Table "+tr(orders[0].TableID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, printedAt.In(loc).Format("02 Jan 2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	var grand float64
	for _, o := range orders {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("Order %s  (%s, %s)", o.ID, o.Status, o.CreatedAt.In(loc).Format("15:04")), "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(235, 235, 235)
		pdf.CellFormat(90, 7, "Item", "1", 0, "L", true, 0, "")
		pdf.CellFormat(20, 7, "Qty", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Price", "1", 0, "R", true, 0, "")
		pdf.CellFormat(35, 7, "Total", "1", 1, "R", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, it := range o.Items {
			pdf.CellFormat(90, 7, tr(it.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 7, tr(r.money(it.Price)), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 7, tr(r.money(it.LineTotal())), "1", 1, "R", false, 0, "")
		}
		if o.Status == models.StatusCancelled {
			pdf.SetFont("Arial", "I", 10)
			pdf.CellFormat(180, 7, "Cancelled, not charged", "", 1, "R", false, 0, "")
			pdf.Ln(3)
			continue
		}
		sub := models.SumItems(o.Items)
		grand += sub
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(145, 7, "Subtotal", "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, tr(r.money(sub)), "", 1, "R", false, 0, "")
		pdf.Ln(3)
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(145, 10, "Grand total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 10, tr(r.money(models.RoundMoney(grand))), "T", 1, "R", false, 0, "")

	if r.MenuURL != "" {
		qrPNG, err := qrcode.Encode(TableURL(r.MenuURL, orders[0].TableID), qrcode.Medium, 256)
		if err != nil {
			return nil, errors.Wrap(err, "encode qr code")
		}
		imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
		pdf.Ln(6)
		y := pdf.GetY()
		pdf.ImageOptions("qr", 85, y, 40, 40, false, imageOpts, 0, "")
		pdf.SetY(y + 42)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, "Scan to order again", "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}
