package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"smartdine/models"
	"smartdine/utils"

	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

const idempotencyTTL = 24 * time.Hour

type IdempotencyStore interface {
	// Reserve reports false when the key already exists.
	Reserve(ctx context.Context, rec *models.IdempotencyRecord) (bool, error)
	Find(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	SaveResponse(ctx context.Context, key string, resp map[string]interface{}) error
	Release(ctx context.Context, key string) error
}

func computeRequestHash(r *http.Request, bodyBytes []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// CaptureResponseWriter wraps http.ResponseWriter to capture status and body.
type CaptureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func NewCaptureResponseWriter(w http.ResponseWriter) *CaptureResponseWriter {
	return &CaptureResponseWriter{w: w, statusCode: http.StatusOK}
}

func (c *CaptureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CaptureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *CaptureResponseWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.w.Write(b)
}

func (c *CaptureResponseWriter) Status() int {
	return c.statusCode
}

func (c *CaptureResponseWriter) BodyBytes() []byte {
	return c.buf.Bytes()
}

func storedStatus(v interface{}) int {
	switch s := v.(type) {
	case int:
		return s
	case int32:
		return int(s)
	case int64:
		return int(s)
	case float64:
		return int(s)
	}
	return http.StatusOK
}

// Idempotency replays the first response of a request carrying an
// Idempotency-Key header.
//   - No header: pass-through.
//   - New key: run the handler and store its response. Server errors release
//     the key so a retry runs again.
//   - Known key with a different request: 409.
//   - Known key still running: 409.
//   - Known key with a stored response: replay it.
func Idempotency(store IdempotencyStore) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next(w, r, ps)
				return
			}

			// Limit body size to 1 MB to prevent memory issues
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			reqHash := computeRequestHash(r, bodyBytes)
			now := time.Now()
			rec := &models.IdempotencyRecord{
				Key:         key,
				Method:      r.Method,
				Path:        r.URL.Path,
				RequestHash: reqHash,
				CreatedAt:   now,
				ExpiresAt:   now.Add(idempotencyTTL),
			}

			ctx := r.Context()
			reserved, err := store.Reserve(ctx, rec)
			if err != nil {
				utils.RespondWithAppError(w, r, err)
				return
			}

			if reserved {
				crw := NewCaptureResponseWriter(w)
				next(crw, r, ps)

				if crw.Status() >= http.StatusInternalServerError {
					if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
						log.WithError(err).WithField("key", key).Warn("release idempotency key")
					}
					return
				}

				var parsed interface{}
				if err := json.Unmarshal(crw.BodyBytes(), &parsed); err != nil {
					parsed = string(crw.BodyBytes())
				}
				resp := map[string]interface{}{"status": crw.Status(), "body": parsed}
				if err := store.SaveResponse(context.WithoutCancel(ctx), key, resp); err != nil {
					log.WithError(err).WithField("key", key).Warn("store idempotent response")
				}
				return
			}

			existing, err := store.Find(ctx, key)
			if err != nil {
				utils.RespondWithAppError(w, r, err)
				return
			}
			if existing.RequestHash != reqHash {
				utils.RespondWithError(w, http.StatusConflict, "idempotency-key conflict")
				return
			}
			if existing.Response == nil {
				utils.RespondWithError(w, http.StatusConflict, "request with this idempotency-key is in progress")
				return
			}

			log.WithField("key", key).Debug("replaying idempotent response")
			utils.RespondWithJSON(w, storedStatus(existing.Response["status"]), existing.Response["body"])
		}
	}
}
