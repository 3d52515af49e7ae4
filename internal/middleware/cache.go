package middleware

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type cachedResponse struct {
	contentType string
	body        []byte
	storedAt    time.Time
}

// Cache memoizes successful GET responses for ttl, keyed by a fingerprint
// of method, path and query. Mutating requests pass straight through.
func Cache(ttl time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	entries := make(map[string]cachedResponse)

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c.Request)

		mu.Lock()
		entry, ok := entries[key]
		mu.Unlock()
		if ok && time.Since(entry.storedAt) < ttl {
			c.Data(http.StatusOK, entry.contentType, entry.body)
			c.Abort()
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() == http.StatusOK {
			mu.Lock()
			entries[key] = cachedResponse{
				contentType: w.Header().Get("Content-Type"),
				body:        w.buf.Bytes(),
				storedAt:    time.Now(),
			}
			mu.Unlock()
		}
	}
}

func cacheKey(r *http.Request) string {
	sum := md5.Sum([]byte(r.Method + ":" + r.URL.Path + ":" + r.URL.RawQuery))
	return hex.EncodeToString(sum[:])
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
