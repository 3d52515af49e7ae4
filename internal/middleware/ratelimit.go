package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimit rejects clients exceeding limit requests per sliding minute,
// keyed by client IP. State is in-process only; it is a request filter,
// fully decoupled from catalog state.
func RateLimit(limit int) gin.HandlerFunc {
	var mu sync.Mutex
	hits := make(map[string][]time.Time)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()
		cutoff := now.Add(-time.Minute)

		mu.Lock()
		recent := hits[ip][:0]
		for _, t := range hits[ip] {
			if t.After(cutoff) {
				recent = append(recent, t)
			}
		}
		if len(recent) >= limit {
			hits[ip] = recent
			mu.Unlock()
			log.Printf("[ratelimit] %s over limit", ip)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		hits[ip] = append(recent, now)
		mu.Unlock()

		c.Next()
	}
}
