package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wellnessgrid/backend/internal/cache"
	"github.com/wellnessgrid/backend/internal/logger"
)

const (
	// IdempotencyKeyHeader is the HTTP header name for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"

	// DefaultIdempotencyTTL is how long a stored response can be replayed
	DefaultIdempotencyTTL = 24 * time.Hour

	maxIdempotencyKeyLen = 255
)

type storedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// idempotencyBodyWriter wraps gin.ResponseWriter to capture the response body
type idempotencyBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *idempotencyBodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func idempotencyCacheKey(userID, route, key string) string {
	return "idempotency:" + userID + ":" + route + ":" + key
}

// Idempotency replays the stored 2xx response when a POST carries an
// Idempotency-Key the same user already sent to the same route. It must run
// after Auth. Store errors never block the request.
func Idempotency(store cache.Cache, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || len(key) > maxIdempotencyKeyLen {
			c.Next()
			return
		}
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		cacheKey := idempotencyCacheKey(userID, c.FullPath(), key)

		raw, found, err := store.Get(ctx, cacheKey)
		if err != nil {
			log.Warn("failed to check idempotency key", logger.Err(err), logger.String("key", key))
		}
		if found {
			var stored storedResponse
			if err := json.Unmarshal(raw, &stored); err == nil {
				log.Info("replaying idempotent response",
					logger.String("key", key),
					logger.Int("status_code", stored.Status),
				)
				c.Header("X-Idempotency-Replayed", "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				c.Abort()
				return
			}
		}

		blw := &idempotencyBodyWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		payload, err := json.Marshal(storedResponse{Status: status, Body: blw.body.Bytes()})
		if err != nil {
			return
		}
		if err := store.Set(ctx, cacheKey, payload, ttl); err != nil {
			log.Warn("failed to store idempotency key", logger.Err(err), logger.String("key", key))
		}
	}
}
