package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/pricing"
	"storefront/internal/session"
	"storefront/internal/store"
)

func main() {
	config.Load()
	cfg := config.AppEnv

	env := "development"
	if cfg.IsProduction() {
		env = "production"
		gin.SetMode(gin.ReleaseMode)
	}
	if err := logger.Init(env); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.L().Fatal("invalid configuration", zap.Error(err))
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		logger.L().Fatal("mongo unavailable", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(cfg.DBName)
	logger.Info("MongoDB connected", zap.String("db", db.Name()))

	reg := database.Default()
	if err := database.EnsureIndexes(db, reg); err != nil {
		logger.Warn("index setup incomplete", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.L().Fatal("redis unavailable", zap.Error(err))
	}
	cancel()

	orderOpts := []store.OrderOption{store.WithPricing(pricing.Policy{
		ShippingFlat:     cfg.ShippingFlat,
		FreeShippingOver: cfg.FreeShippingOver,
		TaxRate:          cfg.TaxRate,
	})}
	if !cfg.MongoTransactions {
		orderOpts = append(orderOpts, store.WithoutTransactions())
	}
	st := store.New(db, reg, orderOpts...)

	sessions := session.NewRedisStore(rdb, cfg.SessionTTL, cfg.SessionCookie)
	tokens := session.NewTokenProvider(cfg.JWTSecret, cfg.SessionTTL, sessions)
	accessor := session.NewAccessor(session.Chain{sessions, tokens})

	tmpl, err := handlers.Templates()
	if err != nil {
		logger.L().Fatal("templates", zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.CORSOrigins))
	r.SetHTMLTemplate(tmpl)

	handlers.RegisterRoutes(r, handlers.Deps{
		Users:    st.Users,
		Products: st.Products,
		Orders:   st.Orders,
		Sessions: sessions,
		Tokens:   tokens,
		Identity: accessor,
		Gate:     auth.NewGate(accessor),
		Health: map[string]handlers.Pinger{
			"mongo": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Auth: handlers.AuthOptions{SecureCookie: cfg.IsProduction()},
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}
