/**
 * @description
 * This is the main entry point for the payment-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * mobile money provider adapters, message brokers, repositories, the core application
 * service, and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/robfig/cron/v3: Scheduling of the reconciliation sweep.
 * - internal/api, internal/app, internal/config, internal/notify, internal/provider,
 *   internal/store: Internal packages for the service.
 * - pkg/darajaclient: Client for the Safaricom Daraja API.
 * - pkg/smsclient: Client for the SMS gateway.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/finsense/payment-service/internal/api"
	"github.com/finsense/payment-service/internal/app"
	"github.com/finsense/payment-service/internal/config"
	"github.com/finsense/payment-service/internal/notify"
	"github.com/finsense/payment-service/internal/provider"
	"github.com/finsense/payment-service/internal/store"
	"github.com/finsense/payment-service/pkg/darajaclient"
	"github.com/finsense/payment-service/pkg/rabbitmq"
	"github.com/finsense/payment-service/pkg/smsclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting payment-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish payment lifecycle events.
	// Event publication is best effort, so a connection failure degrades to a
	// no-op publisher instead of aborting startup.
	var events rabbitmq.Publisher
	rabbitProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		events = &rabbitmq.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		events = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Optional Redis connection for distributed rate limiting.
	var redisClient *redis.Client
	if cfg.InitiateRateLimitPerMin > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; initiate rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; initiate rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; initiate rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Build the provider registry. The mock adapter is always available; real
	// adapters register only when their credentials are configured.
	registry := provider.NewRegistry()
	if err := registry.Register(provider.NewMockProvider()); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"mock provider registration failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.MpesaConsumerKey) != "" && strings.TrimSpace(cfg.MpesaAPIBaseURL) != "" {
		darajaClient := darajaclient.NewClient(darajaclient.Config{
			BaseURL:            cfg.MpesaAPIBaseURL,
			ConsumerKey:        cfg.MpesaConsumerKey,
			ConsumerSecret:     cfg.MpesaConsumerSecret,
			InitiatorName:      cfg.MpesaInitiatorName,
			SecurityCredential: cfg.MpesaSecurityCredential,
			ShortCode:          cfg.MpesaShortCode,
			ResultURL:          cfg.MpesaResultURL,
			QueueTimeoutURL:    cfg.MpesaQueueTimeoutURL,
		})
		if err := registry.Register(provider.NewMpesaProvider(darajaClient)); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"mpesa provider registration failed\" err=%v", err)
		}
	} else {
		log.Println("level=warn component=bootstrap msg=\"mpesa credentials not configured; MPESA adapter disabled\"")
	}
	if strings.TrimSpace(cfg.AirtelAPIKey) != "" && strings.TrimSpace(cfg.AirtelAPIBaseURL) != "" {
		if err := registry.Register(provider.NewAirtelProvider(cfg.AirtelAPIBaseURL, cfg.AirtelAPIKey, cfg.AirtelCountry)); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"airtel provider registration failed\" err=%v", err)
		}
	} else {
		log.Println("level=warn component=bootstrap msg=\"airtel credentials not configured; AIRTEL_MONEY adapter disabled\"")
	}
	log.Printf("level=info component=bootstrap msg=\"provider registry ready\" providers=%v", registry.Tags())

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// SMS notifications go through the gateway when configured, otherwise to
	// the log-only gateway so the dispatch path still runs in development.
	var gateway notify.SMSGateway
	if strings.TrimSpace(cfg.SMSGatewayURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"sms gateway not configured; notifications will be logged only\"")
		gateway = &notify.LogGateway{}
	} else {
		gateway = smsclient.NewClient(cfg.SMSGatewayURL, cfg.SMSGatewayAPIKey, cfg.SMSGatewaySenderID)
	}
	dispatcher := notify.NewDispatcher(repository, gateway, cfg.NotificationWorkers, cfg.NotificationQueueSize)

	// Initialize the core application service with its dependencies.
	paymentService := app.NewService(
		repository,
		registry,
		dispatcher,
		events,
		time.Duration(cfg.ProviderTimeoutSeconds)*time.Second,
	)
	if redisClient != nil {
		paymentService.SetInitiateRateLimit(
			app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.InitiateRateLimitPerMin,
		)
	}

	// Initialize the API handlers.
	paymentHandlers := api.NewPaymentHandlers(paymentService, cfg.InternalAPIKey)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/payments", api.PaymentRoutes(paymentHandlers, cfg.JWKSURL))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	// Wire up the provider status consumer: bind the status routing keys to the
	// orchestrator's status-update path.
	statusConsumer := app.NewProviderStatusConsumer(paymentService)

	rabbitConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"rabbitmq consumer init failed\" err=%v", err)
	}
	defer rabbitConsumer.Close()

	statusBindings := map[string]func([]byte) bool{
		"payment.provider.status.success":   statusConsumer.HandleMessage,
		"payment.provider.status.failed":    statusConsumer.HandleMessage,
		"payment.provider.status.cancelled": statusConsumer.HandleMessage,
	}

	if err := rabbitConsumer.ConsumeWithBindings(rabbitmq.EventsExchange, cfg.ProviderEventQueue, statusBindings); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"provider status consumer start failed\" err=%v", err)
	}

	// Schedule the reconciliation sweep for stale non-terminal transactions.
	reconciler := app.NewReconciler(repository, registry, paymentService, time.Duration(cfg.ReconcileStaleAfterMins)*time.Minute)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReconcileSchedule, reconciler.Run); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"reconcile schedule invalid\" schedule=%q err=%v", cfg.ReconcileSchedule, err)
	}
	scheduler.Start()

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	// Stop the cron scheduler and let any in-flight sweep finish.
	<-scheduler.Stop().Done()

	// Drain queued notifications before exiting.
	dispatcher.Shutdown(ctx)

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
