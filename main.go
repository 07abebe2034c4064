package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"eventhub-ticketing/internal/config"
	"eventhub-ticketing/internal/handlers"
	"eventhub-ticketing/internal/kafka"
	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/middleware"
	"eventhub-ticketing/internal/monitoring"
	"eventhub-ticketing/internal/qrcode"
	rediswrap "eventhub-ticketing/internal/redis"
	"eventhub-ticketing/internal/services"
	"eventhub-ticketing/internal/storage"

	"github.com/gin-gonic/gin"
)

var log *logger.Logger

// devSigningSecret keeps local runs working without configuration. Validate
// refuses to start anywhere else without a real secret.
const devSigningSecret = "development-only-ticket-signing-secret"

func main() {
	envFlag := flag.String("env", os.Getenv("ENVIRONMENT"), "Environment (development, staging, production)")
	envFileFlag := flag.String("env-file", "", "Path to .env file")
	flag.Parse()

	log = logger.NewLogger()
	defer log.Close()

	if loaded := config.LoadEnv(*envFlag, *envFileFlag); loaded == "" {
		log.Warn("ENV", "No .env file found, using environment variables")
	} else {
		log.Info("ENV", "Loaded "+loaded)
	}

	log.LogProcess("STARTUP", "Ticketing service starting up...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", "Invalid configuration: "+err.Error())
	}
	log.Info("CONFIG", "Configuration loaded successfully ("+cfg.Environment+")")

	store := openStore(cfg)
	defer store.Close()

	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MockMode, log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create Kafka producer: "+err.Error())
	}
	defer kafkaProducer.Close()
	log.LogKafka("INIT", "producer", "Kafka producer initialized successfully")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	issueLock := rediswrap.NewIssueLock(redisClient, cfg.Redis.LockTTL)
	healthChecks := map[string]handlers.HealthCheck{"database": store.HealthCheck}

	var locker services.IssueLocker = issueLock
	if err := issueLock.Ping(context.Background()); err != nil {
		if !cfg.IsDevelopment() {
			log.Fatal("REDIS", "Redis not reachable at "+cfg.Redis.Addr+": "+err.Error())
		}
		log.Warn("REDIS", "Redis not reachable, issue lock limited to this replica: "+err.Error())
		locker = nil
	} else {
		healthChecks["redis"] = issueLock.Ping
		log.LogProcess("SERVICE", "Redis connection successful")
	}

	var payments services.PaymentVerifier
	if cfg.Stripe.SecretKey != "" {
		verifier, err := services.NewStripeVerifier(cfg.Stripe.SecretKey, log)
		if err != nil {
			log.Fatal("STRIPE", "Failed to initialize Stripe verifier: "+err.Error())
		}
		payments = verifier
	} else if cfg.IsDevelopment() {
		log.Warn("STRIPE", "STRIPE_SECRET_KEY not set, paid orders are issued without payment verification")
	} else {
		log.Fatal("STRIPE", "STRIPE_SECRET_KEY is required outside development")
	}

	secret := cfg.Ticketing.SigningSecret
	if secret == "" {
		log.Warn("SECURITY", "TICKET_SIGNING_SECRET not set, using the development secret")
		secret = devSigningSecret
	}
	signer, err := qrcode.NewSigner(secret)
	if err != nil {
		log.Fatal("SECURITY", err.Error())
	}

	metrics := monitoring.NewMetrics()
	validator := services.NewValidator(store, signer, log)
	committer := services.NewCommitter(store, log)
	issuer := services.NewIssuer(store, signer, log)
	checkIns := services.NewCheckInService(store, validator, committer, kafkaProducer, metrics, log)
	orders := services.NewOrderConfirmationService(store, issuer, payments, locker, kafkaProducer, metrics, log)
	tickets := services.NewTicketService(store)
	log.LogProcess("SERVICE", "Ticketing services initialized")

	ctx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	if cfg.Kafka.MockMode {
		log.Warn("KAFKA", "Mock mode: not consuming "+cfg.Kafka.OrderTopic)
	} else {
		log.LogProcess("KAFKA", "Initializing Kafka consumer...")
		kafkaConsumer, err := kafka.NewOrderConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrderTopic, log)
		if err != nil {
			log.Fatal("KAFKA", "Failed to create Kafka consumer: "+err.Error())
		}
		defer kafkaConsumer.Close()

		go func() {
			log.LogKafka("START", cfg.Kafka.OrderTopic, "Starting Kafka consumer goroutine")
			if err := kafkaConsumer.ConsumeOrders(ctx, orders.HandleOrderCompleted); err != nil {
				log.Error("KAFKA", "Consumer error: "+err.Error())
			}
		}()
	}

	authSecret := cfg.Auth.JWTSecret
	if authSecret == "" {
		log.Warn("SECURITY", "JWT_SECRET not set, every API call will be rejected")
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		Log:         log,
		Auth:        middleware.NewTokenAuthority(authSecret, cfg.Auth.Issuer),
		CheckIns:    handlers.NewCheckInHandler(checkIns, log),
		Tickets:     handlers.NewTicketHandler(tickets, log),
		Orders:      handlers.NewOrderHandler(orders, log),
		Health:      handlers.NewHealthHandler(healthChecks),
		RateLimit:   cfg.Server.RateLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on port "+cfg.Server.Port)
		log.Info("STARTUP", "Health check available at: http://localhost"+cfg.Server.Port+"/health")
		log.Info("STARTUP", "Check-in API available at: http://localhost"+cfg.Server.Port+"/api/v1/checkin/validate")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")
	stopConsumers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("SHUTDOWN", "Server forced to shutdown: "+err.Error())
	}

	log.Info("SHUTDOWN", "Ticketing service shutdown completed successfully")
}

func openStore(cfg *config.Config) storage.Store {
	switch cfg.Database.Driver {
	case "memory":
		log.Warn("DATABASE", "Using in-memory storage, data is lost on restart")
		return storage.NewInMemoryStore()
	case "sqlite":
		log.LogProcess("DATABASE", "Initializing SQLite database at "+cfg.Database.SQLitePath)
		store, err := storage.NewSQLiteStore(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Fatal("DATABASE", "Failed to initialize SQLite: "+err.Error())
		}
		return store
	default:
		log.LogProcess("DATABASE", "Initializing MySQL database...")
		store, err := storage.NewMySQLStore(cfg.Database, log)
		if err != nil {
			log.Fatal("DATABASE", "Failed to initialize MySQL: "+err.Error())
		}
		log.LogDatabase("INIT", "mysql", "MySQL storage initialized successfully")
		return store
	}
}
