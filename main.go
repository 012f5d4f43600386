package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-canteen/internal/analytics"
	analytics_api "ms-canteen/internal/analytics/api"
	"ms-canteen/internal/auth"
	"ms-canteen/internal/config"
	"ms-canteen/internal/kafka"
	"ms-canteen/internal/logger"
	"ms-canteen/internal/menu"
	menudb "ms-canteen/internal/menu/db"
	"ms-canteen/internal/menu/menu_api"
	"ms-canteen/internal/order"
	"ms-canteen/internal/order/db"
	"ms-canteen/internal/order/order_api"
	rediswrap "ms-canteen/internal/order/redis"
	"ms-canteen/internal/qr"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Canteen Portal service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	db.Migrate(bunDB)

	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer kafkaProducer.Close()

		requiredTopics := []string{
			kafka.TopicOrderCreated,
			kafka.TopicOrderPaid,
			kafka.TopicOrderServed,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	gateway := order.NewStripeGateway(cfg.Stripe, cfg.Server.BaseURL)
	dedup := rediswrap.NewDedup(redisClient)

	var publisher order.KafkaPublisher
	if kafkaProducer != nil {
		publisher = kafkaProducer
	}

	orderService := order.NewOrderService(
		&db.DB{Bun: bunDB},
		gateway,
		dedup,
		publisher,
		qr.NewGenerator(),
		log,
	)
	menuService := menu.NewMenuService(&menudb.DB{Bun: bunDB})
	analyticsService := analytics.NewService(bunDB)

	orderHandler := &order_api.Handler{
		OrderService: orderService,
		Logger:       log,
	}
	menuHandler := &menu_api.Handler{
		MenuService: menuService,
		Logger:      log,
	}
	analyticsHandler := analytics_api.NewHandler(analyticsService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public routes: customer checkout, provider webhook, receipt views ---
	r.Post("/api/checkout", orderHandler.Checkout)
	r.Post("/api/stripe/webhook", orderHandler.StripeWebhook)
	r.Get("/api/qrcode/{token}", orderHandler.QRImage)
	r.Get("/api/order/{orderId}", orderHandler.GetOrder)
	r.Get("/api/order/history", orderHandler.TransactionHistory)
	r.Get("/api/menu", menuHandler.StallMenu)

	// --- Staff/admin routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.OIDCIssuer))

		r.With(auth.RequireRole(auth.RoleStaff)).Post("/api/qrcode", orderHandler.Redeem)

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))

			r.Get("/order/queue", orderHandler.OrderQueue)
			r.Get("/menu", menuHandler.StallInventory)
			r.Post("/menu", menuHandler.AddItem)
			r.Put("/menu/{itemId}", menuHandler.UpdateItem)
			r.Delete("/menu/{itemId}", menuHandler.DeleteItem)

			analyticsHandler.RegisterRoutes(r)
		})
	})
	log.Info("ROUTER", "Routes registered")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Canteen Portal service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Canteen Portal service shutdown complete")
	}
}
