package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/cache"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/cart"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/checkout"
	h "github.com/felruizrojas/pasteleriaapp-sub000/internal/http"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/orders"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/outbox"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/pricing"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/repository"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/users"
)

type Config struct {
	HTTPPort        string
	DBPath          string
	MigrationsPath  string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    string // comma separated, empty disables the outbox poller
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "./storefront.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log.Println("Storefront started")

	cfg := loadConfig()
	ctx := context.Background()

	repo, err := repository.NewRepository(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	// Run migrations
	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	// Services
	cartCache := cache.NewRedisCache(redisClient)
	cartService := cart.NewService(repo, cartCache)
	userService := users.NewService(repo)
	orderService := orders.NewService(repo)
	pricer := pricing.NewEngine()
	checkoutService := checkout.NewService(userService, cartService, pricer, orderService)

	// Outbox poller publishes order events when a broker is configured
	pollerCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	if cfg.KafkaBrokers != "" {
		poller := outbox.NewPoller(repo, strings.Split(cfg.KafkaBrokers, ",")...)
		defer poller.Close()
		go poller.Run(pollerCtx)
		log.Printf("Outbox poller publishing to %s", cfg.KafkaBrokers)
	}

	// HTTP surface
	userHandler := h.NewUserHandler(userService, cfg.RequestTimeout)
	cartHandler := h.NewCartHandler(cartService, userService, pricer, cfg.RequestTimeout)
	orderHandler := h.NewOrderHandler(orderService, checkoutService, cfg.RequestTimeout)

	router := h.NewRouter(userHandler, cartHandler, orderHandler, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
