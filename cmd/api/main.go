package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pinky-promise-api/internal/captcha"
	coreauth "pinky-promise-api/internal/core/auth"
	"pinky-promise-api/internal/core/config"
	"pinky-promise-api/internal/core/database"
	"pinky-promise-api/internal/core/logger"
	"pinky-promise-api/internal/core/server"
	"pinky-promise-api/internal/domain"
	"pinky-promise-api/internal/ratelimit"
	"pinky-promise-api/internal/repo"
	authsvc "pinky-promise-api/internal/service/auth"
	"pinky-promise-api/internal/transport/http/handler"
	"pinky-promise-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(&domain.User{}); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	jwter := &coreauth.JWTer{
		AccessSecret:  []byte(cfg.JWT.AccessSecret),
		RefreshSecret: []byte(cfg.JWT.RefreshSecret),
		Issuer:        cfg.JWT.Issuer,
		AccessTTL:     cfg.JWT.AccessTTL(),
		RefreshTTL:    cfg.JWT.RefreshTTL(),
	}

	users := repo.NewUserRepo(db)
	svc := authsvc.NewService(users, jwter, cfg.Auth.BcryptCost, log)
	authH := handler.NewAuthHandler(svc, users, log)

	verifier := captcha.NewRecaptcha(
		cfg.Captcha.Secret,
		cfg.Captcha.VerifyURL,
		time.Duration(cfg.Captcha.TimeoutSec)*time.Second,
	)

	limiter := mustBuildLimiter(cfg, log)
	defer limiter.Close()

	r := router.NewAPIEngine(log, authH, jwter, verifier, limiter)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("auth api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("auth", baseURL+"/api/auth"),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("auth api start FAILED", zap.Error(err))
		}
	}()
	log.Info("auth api started SUCCESS")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("auth api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}

func mustBuildLimiter(cfg *config.Config, l *zap.Logger) *ratelimit.Limiter {
	var store ratelimit.CounterStore
	switch cfg.RateLimit.Backend {
	case "redis":
		s, err := ratelimit.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			l.Fatal("redis rate limit store", zap.Error(err))
		}
		store = s
	default:
		store = ratelimit.NewMemoryStore()
	}
	return ratelimit.New(store, cfg.RateLimit.Budget, cfg.RateLimit.Window(), l)
}
