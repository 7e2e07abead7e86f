package tables

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableQR(t *testing.T) {
	h := NewHandler("https://dine.example.com/menu")

	rec := httptest.NewRecorder()
	h.TableQR(rec, httptest.NewRequest(http.MethodGet, "/api/tables/5/qr?size=128", nil),
		httprouter.Params{{Key: "tableId", Value: "5"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestTableQRRejectsBadSize(t *testing.T) {
	h := NewHandler("https://dine.example.com/menu")
	rec := httptest.NewRecorder()
	h.TableQR(rec, httptest.NewRequest(http.MethodGet, "/api/tables/5/qr?size=5000", nil),
		httprouter.Params{{Key: "tableId", Value: "5"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
