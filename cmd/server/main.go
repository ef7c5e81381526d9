package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/app"
	"carpool/internal/broker"
	"carpool/internal/config"
	"carpool/internal/handler"
	"carpool/internal/maps"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository/postgres"
	"carpool/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Event publishing is optional.
	var publisher service.Publisher
	if cfg.RabbitMQ.URL != "" {
		mq, err := broker.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Printf("failed to connect to RabbitMQ, events will only be logged: %v", err)
		} else {
			defer mq.Close()
			publisher = mq
			log.Printf("Publishing events to exchange %s", cfg.RabbitMQ.Exchange)
		}
	}

	// Route estimation is optional; without it routes need explicit distance and duration.
	var estimator service.RouteEstimator
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Language, cfg.Maps.Region)
		if err != nil {
			log.Printf("failed to initialize route estimator: %v", err)
		} else {
			estimator = routes
		}
	}

	explorers, err := app.NewExplorerRegistry(cfg.Ledger)
	if err != nil {
		log.Fatalf("failed to configure block explorers: %v", err)
	}

	server, payments := wireServer(db, redisClient, nrApp, publisher, estimator, explorers, cfg)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runExpirySweep(sweepCtx, payments, cfg.Policy.ExpirySweepInterval)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server together
// with the payment service used by the background sweep.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher service.Publisher,
	estimator service.RouteEstimator,
	explorers service.ExplorerRegistry,
	cfg *config.Config,
) (*http.Server, *service.PaymentService) {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Policy.RouteCacheTTL)

	// Initialize repositories.
	routeRepo := postgres.NewRouteRepository(db)
	vehicleRepo := postgres.NewVehicleRepository(db)
	requestRepo := postgres.NewRideRequestRepository(db)
	groupRepo := postgres.NewRideGroupRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	walletRepo := postgres.NewWalletRepository(db)

	// Initialize services.
	notificationService := service.NewNotificationService(publisher)
	fareService := service.NewFareService(routeRepo, vehicleRepo, cacheStore)
	conflictService := service.NewConflictService(groupRepo, cfg.Policy.GroupWindow)
	groupingService := service.NewGroupingService(requestRepo, groupRepo, vehicleRepo, conflictService, service.NewCapacityPlanner(), notificationService)
	rideRequestService := service.NewRideRequestService(requestRepo, fareService, groupingService)
	vehicleService := service.NewVehicleService(vehicleRepo)
	routeService := service.NewRouteService(routeRepo, estimator)
	paymentService := service.NewPaymentService(
		paymentRepo,
		requestRepo,
		walletRepo,
		postgres.NewProcedureVerifier(db),
		explorers,
		lockStore,
		notificationService,
		service.PaymentPolicy{
			DetectionWindow: cfg.Policy.PaymentDetectionWindow,
			AmountEpsilon:   cfg.Policy.AmountEpsilon,
			Expiry:          cfg.Policy.PaymentExpiry,
			ExplorerTimeout: cfg.Ledger.Timeout,
			Parallelism:     cfg.Ledger.Parallelism,
		},
	)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		FareHandler:        handler.NewFareHandler(fareService),
		RideRequestHandler: handler.NewRideRequestHandler(rideRequestService, paymentService),
		VehicleHandler:     handler.NewVehicleHandler(vehicleService),
		RouteHandler:       handler.NewRouteHandler(routeService),
		GroupHandler:       handler.NewGroupHandler(groupingService),
		PaymentHandler:     handler.NewPaymentHandler(paymentService),
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, paymentService
}

// runExpirySweep expires stale pending payments until ctx is cancelled.
func runExpirySweep(ctx context.Context, payments *service.PaymentService, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := payments.ExpireStale(ctx)
			if err != nil {
				log.Printf("payment expiry sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("expired %d stale payments", n)
			}
		}
	}
}
