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

	"ms-marketplace/internal/ads"
	"ms-marketplace/internal/ads/ads_api"
	addb "ms-marketplace/internal/ads/db"
	"ms-marketplace/internal/app"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/blob"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/database/migrations"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/metrics"
	"ms-marketplace/internal/notify"
	"ms-marketplace/internal/order"
	orderdb "ms-marketplace/internal/order/db"
	"ms-marketplace/internal/order/order_api"
	"ms-marketplace/internal/order/receipt"
	"ms-marketplace/internal/payment"
	"ms-marketplace/internal/products"
	productdb "ms-marketplace/internal/products/db"
	"ms-marketplace/internal/products/products_api"
	"ms-marketplace/internal/sse"
	"ms-marketplace/internal/users"
	userdb "ms-marketplace/internal/users/db"
	"ms-marketplace/internal/users/users_api"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.NewLogger("ms-marketplace")
	defer log.Close()

	log.Info("APP", "Starting marketplace service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("CONFIG", "JWT_SECRET not set")
	}

	ctx := context.Background()
	m := metrics.New()

	// --- Storage ---
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, log)
		if err := runner.MigrateUp(); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Failed to apply migrations: %v", err))
		}
		// runner.Close would close the shared pool; bunDB.Close covers it.
	}

	var revocations auth.RevocationStore
	var redisClient *redis.Client
	if cfg.Auth.RevocationEnabled {
		redisClient, err = database.ConnectRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal("REDIS", err.Error())
		}
		defer redisClient.Close()
		revocations = auth.NewRedisRevocationStore(redisClient)
		log.Info("AUTH", "Token revocation ledger enabled")
	}

	// --- Outbound collaborators ---
	verifier, err := payment.NewVerifier(cfg.Payment, log, m)
	if err != nil {
		log.Fatal("PAYMENT", err.Error())
	}

	var sender notify.Sender = notify.LogSender{Log: log}
	if cfg.Notify.Enabled {
		sender = notify.NewSMTPSender(cfg.Email)
		log.Info("NOTIFY", fmt.Sprintf("SMTP notifications via %s:%d", cfg.Email.SMTPHost, cfg.Email.SMTPPort))
	}
	dispatcher := notify.NewDispatcher(sender, cfg.Notify.Timeout, log, m)

	images := blob.NewCDNStore(cfg.Blob)
	if cfg.Blob.UploadURL == "" {
		log.Warn("BLOB", "BLOB_UPLOAD_URL not set, image uploads will fail")
	}

	var publisher kafka.Publisher = kafka.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		publisher = producer

		topics := []string{cfg.Kafka.Topics.OrderSettled, cfg.Kafka.Topics.AdCreated, cfg.Kafka.Topics.AdActivated}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
	}

	if cfg.Receipt.Secret == "" {
		log.Fatal("CONFIG", "RECEIPT_SECRET not set")
	}
	emitter := sse.NewSaleEventEmitter()

	// --- Services ---
	tokens := auth.NewTokenService(cfg.Auth)
	userStore := &userdb.DB{Bun: bunDB}
	productStore := &productdb.DB{Bun: bunDB}

	userService := users.NewUserService(userStore, tokens, log)
	userService.Revocation = revocations

	productService := products.NewProductService(productStore, images, log)
	productService.Audience = userStore
	productService.Notifier = dispatcher

	orderService := order.NewOrderService(&orderdb.DB{Bun: bunDB}, productStore, userStore, verifier, log)
	orderService.Notifier = dispatcher
	orderService.Kafka = publisher
	orderService.Topic = cfg.Kafka.Topics.OrderSettled
	orderService.Events = emitter
	orderService.Receipts = receipt.NewGenerator(cfg.Receipt.Secret)
	orderService.Metrics = m

	adService := ads.NewAdService(&addb.DB{Bun: bunDB}, verifier, images, log)
	adService.Notifier = dispatcher
	adService.Kafka = publisher
	adService.Topics = ads.Topics{Created: cfg.Kafka.Topics.AdCreated, Activated: cfg.Kafka.Topics.AdActivated}
	adService.Metrics = m

	log.Info("HTTP", "Setting up router and middleware")
	router := app.NewRouter(app.RouterConfig{
		Tokens:         tokens,
		Revocation:     revocations,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        m,
		Logger:         log,
	}, app.Handlers{
		Users:    users_api.NewHandler(userService, log, cfg.Auth.CookieSecure),
		Products: products_api.NewHandler(productService, log),
		Orders:   order_api.NewHandler(orderService, log),
		Sales:    order_api.NewSSEHandler(log, emitter),
		Ads:      ads_api.NewHandler(adService, log),
	})

	// WriteTimeout stays unset: the sales stream is long-lived.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Marketplace service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}

	log.Info("NOTIFY", "Waiting for in-flight notifications")
	dispatcher.Wait()
	log.Info("HTTP", "✅ Marketplace service shutdown complete")
}
