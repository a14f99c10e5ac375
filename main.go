package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore-service/cache"
	"bookstore-service/config"
	"bookstore-service/consumers"
	"bookstore-service/controllers"
	"bookstore-service/database"
	"bookstore-service/middlewares"
	"bookstore-service/payments"
	"bookstore-service/rabbitmq"
	"bookstore-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func main() {
	cfg := config.LoadConfig()

	logger := newLogger(cfg)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	if err := database.InitDB(cfg); err != nil {
		logger.Fatal("Database initialization failed", zap.Error(err))
	}
	defer database.CloseDB()

	if err := database.RunMigrations(database.DB, cfg.MigrationsDir); err != nil {
		logger.Fatal("Migrations failed", zap.Error(err))
	}
	store := database.NewStore(database.DB)

	// Without redis the return handler checks amounts against the database.
	var sessions services.SessionCache
	redisClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("Redis unavailable, payment sessions disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		sessions = cache.NewPaymentSessionStore(redisClient)
	}

	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		logger.Fatal("RabbitMQ initialization failed", zap.Error(err))
	}
	defer rmq.Close()

	if err := rmq.SetupQueues(); err != nil {
		logger.Fatal("Failed to setup RabbitMQ queues", zap.Error(err))
	}

	gateway := payments.NewVNPay(payments.Config{
		TmnCode:    cfg.VNPayTmnCode,
		HashSecret: cfg.VNPayHashSecret,
		PayURL:     cfg.VNPayPayURL,
		ReturnURL:  cfg.VNPayReturnURL,
	})

	orderOpts := []services.OrderOption{
		services.WithEvents(rmq),
		services.WithGateway(gateway),
		services.WithPaymentCheckDelay(cfg.PaymentCheckDelay),
		services.WithSessionTTL(cfg.PaymentSessionTTL),
	}
	if sessions != nil {
		orderOpts = append(orderOpts, services.WithSessions(sessions))
	}
	orderSvc := services.NewOrderService(store, store, orderOpts...)

	controllers.SetOrderService(orderSvc)
	controllers.SetPaymentService(services.NewPaymentService(store, store, gateway, sessions))
	controllers.SetCatalogService(services.NewCatalogService(store, store, store))
	controllers.SetCartService(services.NewCartService(store, store, store))
	controllers.SetStockService(services.NewStockService(store))
	controllers.SetDirectoryService(services.NewDirectoryService(store))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	consumerCh, err := rmq.ConsumerChannel()
	if err != nil {
		logger.Fatal("RabbitMQ consumer channel failed", zap.Error(err))
	}
	if err := consumers.NewOrderConsumer(orderSvc).Start(ctx, consumerCh, cfg); err != nil {
		logger.Fatal("Failed to start order consumer", zap.Error(err))
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.PrometheusMiddleware())
	controllers.RegisterRoutes(r, cfg.JWTSecret)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Bookstore service starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("Server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful server shutdown failed", zap.Error(err))
	}

	stop()
	logger.Info("Shutdown complete")
}
