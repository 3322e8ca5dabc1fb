package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pinky-promise-api/internal/captcha"
	"pinky-promise-api/internal/core/auth"
	"pinky-promise-api/internal/ratelimit"
	"pinky-promise-api/internal/transport/http/handler"
	mdw "pinky-promise-api/internal/transport/http/middleware"
)

// NewAPIEngine assembles the middleware chain and mounts the auth routes.
// Register and login sit behind the abuse gate: per-origin budget first,
// then the captcha check; refresh is gated by neither.
func NewAPIEngine(
	l *zap.Logger,
	authH *handler.AuthHandler,
	jwter *auth.JWTer,
	verifier captcha.Verifier,
	authLimiter *ratelimit.Limiter,
) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(l, true),
		mdw.Metrics(),
		mdw.AccessLog(l),
		cors.Default(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/auth")

	gated := api.Group("")
	gated.Use(mdw.AuthRateLimit(authLimiter), mdw.VerifyCaptcha(verifier))
	gated.POST("/register", authH.Register)
	gated.POST("/login", authH.Login)

	api.POST("/refresh", authH.Refresh)

	me := api.Group("")
	me.Use(mdw.AuthJWT(jwter))
	me.GET("/me", authH.Me)

	return r
}
