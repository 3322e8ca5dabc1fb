package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"pinky-promise-api/internal/ratelimit"
	resp "pinky-promise-api/internal/transport/http/response"
)

const rateLimitMsg = "Too many authentication attempts. Please wait 5 minutes before trying again."

// RateLimit is an engine-wide token bucket, a coarse guard for every route.
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.AbortErr(c, http.StatusTooManyRequests, "Too many requests")
	}
}

// AuthRateLimit is the per-origin budget on register/login: 30 requests per
// client IP per 5-minute window by default. Runs before the captcha check.
func AuthRateLimit(lim *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := lim.Allow(c.Request.Context(), "ip:"+c.ClientIP())
		if d.Allowed {
			c.Next()
			return
		}
		authRateLimited.WithLabelValues(c.FullPath()).Inc()
		c.Header("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())))
		resp.AbortErr(c, http.StatusTooManyRequests, rateLimitMsg)
	}
}
