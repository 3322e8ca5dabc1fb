package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "pinky-promise-api/internal/transport/http/response"
)

// ConcurrencyLimit caps requests in flight, protecting the DB and the
// outbound captcha call.
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if err := sem.Acquire(c, 1); err != nil {
			resp.AbortErr(c, http.StatusServiceUnavailable, "Server busy")
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
