package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/taphouse/internal/adapter/callback"
	"github.com/rl1809/taphouse/internal/adapter/handler"
	"github.com/rl1809/taphouse/internal/adapter/storage"
	"github.com/rl1809/taphouse/internal/bootstrap"
	"github.com/rl1809/taphouse/internal/config"
	"github.com/rl1809/taphouse/internal/core/service"
	"github.com/rl1809/taphouse/internal/metrics"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}
	cfg := config.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sqlx.Connect("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	log.Info("connected to mysql")

	// Apply schema migrations
	if err := runMigrations(cfg); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Info("connected to redis")

	// Initialize adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	callbackClient := callback.NewRestyClient(cfg.CallbackTimeout)

	// Seed default data on an empty database
	if cfg.SeedData {
		if err := bootstrap.Seed(ctx, mysqlAdapter); err != nil {
			log.Fatalf("failed to seed data: %v", err)
		}
	}

	// Initialize services
	notifier := service.NewStatusNotifier(callbackClient, cfg.CallbackQueueSize)
	orderService := service.NewOrderService(mysqlAdapter, notifier)
	inventoryService := service.NewInventoryService(mysqlAdapter)
	scheduler := service.NewAllocationScheduler(mysqlAdapter, redisAdapter, notifier, cfg.AllocationInterval)

	// Start the allocation scheduler
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	// Initialize HTTP server
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.PrometheusMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpHandler := handler.NewHTTPHandler(orderService, inventoryService)
	httpHandler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	// Stop HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")

	// Stop the scheduler; an in-flight order's unit of work finishes first
	cancel()
	wg.Wait()
	log.Info("allocation scheduler stopped")

	// Drain pending notifications
	notifier.Close()
	log.Info("status notifier stopped")

	// Close connections
	rdb.Close()
	db.Close()
	log.Info("connections closed")
}

func runMigrations(cfg config.Config) error {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", cfg.MigrationsPath),
		"mysql://"+cfg.MySQLDSN,
	)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	log.Info("migrations applied")
	return nil
}
