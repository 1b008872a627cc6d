package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/qhato/ecommerce/config"

	"github.com/qhato/ecommerce/internal/ordersync/application"
	"github.com/qhato/ecommerce/internal/ordersync/domain"
	"github.com/qhato/ecommerce/internal/ordersync/infrastructure/postgres"
	"github.com/qhato/ecommerce/internal/ordersync/infrastructure/storefrontclient"
	ordersyncHttp "github.com/qhato/ecommerce/internal/ordersync/ports/http"

	"github.com/qhato/ecommerce/pkg/database"
	"github.com/qhato/ecommerce/pkg/logging"
	"github.com/qhato/ecommerce/pkg/metrics"
	"github.com/qhato/ecommerce/pkg/middleware"
	"github.com/qhato/ecommerce/pkg/resync"
	"github.com/qhato/ecommerce/pkg/validator"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(logging.Config{
		Level:     cfg.App.LogLevel,
		Format:    "json",
		Output:    "stdout",
		AddCaller: true,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log = log.With(logging.String("service", "orderpoller"), logging.String("version", cfg.App.Version))
	log.Info("starting order sync poller")

	if !cfg.OrderSync.Enabled {
		log.Info("order sync is disabled; exiting")
		return
	}

	db, err := database.New(context.Background(), database.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Database:       cfg.Database.Database,
		SSLMode:        cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections,
		MaxIdleConns:   cfg.Database.MaxIdleConns,
		MaxLifetime:    cfg.Database.MaxLifetime,
		MaxIdleTime:    cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal("failed to connect to database", logging.Error(err))
	}
	defer db.Close()
	log.Info("connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis unavailable, running without cross-process cycle lease", logging.Error(err))
		redisClient = nil
	}

	metrics.Init("ecommerce")
	val := validator.New()

	// ========== ORDER SYNC CONTEXT ==========

	store := postgres.NewRmsStore(db)
	gateway := storefrontclient.NewGateway(storefrontclient.Config{
		BaseURL:     cfg.OrderSync.StorefrontBaseURL,
		AccessToken: cfg.OrderSync.StorefrontAccessToken,
		Timeout:     cfg.OrderSync.StorefrontTimeout,
	}, log.With(logging.String("component", "storefront_gateway")))

	var defaultGuestID *int64
	if cfg.OrderSync.DefaultGuestCustomerID != 0 {
		id := cfg.OrderSync.DefaultGuestCustomerID
		defaultGuestID = &id
	}
	resolver := domain.NewCustomerResolver(store, domain.CustomerResolverConfig{
		AllowGuestOrders:       cfg.OrderSync.AllowOrdersWithoutCustomer,
		RequireCustomerEmail:   cfg.OrderSync.RequireCustomerEmail,
		DefaultGuestCustomerID: defaultGuestID,
	})
	writer := application.NewOrderWriter(store, cfg.OrderSync.ShippingItemID, log.With(logging.String("component", "order_writer")))

	storefrontExec, rmsExec, syncExec := resync.NamedPolicies(log.With(logging.String("component", "resync")))

	converterCfg := domain.ConverterConfig{
		StoreID:        int(cfg.OrderSync.RmsStoreID),
		OrderType:      int(cfg.OrderSync.RmsOrderType),
		ShippingItemID: cfg.OrderSync.ShippingItemID,
	}
	poller := application.NewOrderPoller(gateway, store, resolver, writer, converterCfg, storefrontExec, rmsExec, syncExec, log.With(logging.String("component", "order_poller")))

	orchestrator := application.NewPollingOrchestrator(poller, redisClient, application.OrchestratorConfig{
		CycleLockTTL: cfg.OrderSync.CycleLockTTL,
	}, log.With(logging.String("component", "orchestrator")))

	if err := orchestrator.Initialize(context.Background()); err != nil {
		log.Fatal("failed to initialize order sync orchestrator", logging.Error(err))
	}

	financialStatuses := make([]domain.FinancialStatus, 0, len(cfg.OrderSync.AllowedFinancialStatuses))
	for _, s := range cfg.OrderSync.AllowedFinancialStatuses {
		financialStatuses = append(financialStatuses, domain.FinancialStatus(s))
	}
	defaultOpts := application.PollOptions{
		LookbackMinutes:   cfg.OrderSync.LookbackMinutes,
		BatchSize:         cfg.OrderSync.BatchSize,
		MaxPages:          cfg.OrderSync.MaxPages,
		FinancialStatuses: financialStatuses,
	}

	// ========== BACKGROUND POLLING LOOP ==========

	ctx, cancelPolling := context.WithCancel(context.Background())
	go runPollingLoop(ctx, orchestrator, db, defaultOpts, time.Duration(cfg.OrderSync.IntervalMinutes)*time.Minute, log)

	// ========== ROUTER SETUP ==========

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Route("/admin", func(r chi.Router) {
		handler := ordersyncHttp.NewHandler(orchestrator, val, log.With(logging.String("component", "http_handler")))
		handler.RegisterRoutes(r)
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("order sync poller listening", logging.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", logging.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down order sync poller...")
	cancelPolling()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", logging.Error(err))
	}
	if err := orchestrator.Close(shutdownCtx); err != nil {
		log.Error("orchestrator failed to close cleanly", logging.Error(err))
	}

	log.Info("order sync poller stopped")
}

// runPollingLoop drives the orchestrator on a fixed interval until ctx
// is cancelled. The first cycle fires immediately rather than waiting
// a full interval after process start.
func runPollingLoop(ctx context.Context, orchestrator *application.PollingOrchestrator, db *database.DB, opts application.PollOptions, interval time.Duration, log logging.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	runCycle := func() {
		stats := db.Stats()
		metrics.UpdateDatabaseConnections(int(stats.AcquiredConns()), int(stats.IdleConns()))

		start := time.Now()
		report, err := orchestrator.PollAndSync(ctx, opts)
		if err != nil {
			log.Error("poll cycle failed", logging.Error(err))
			metrics.RecordOrderSyncCycle("error", time.Since(start))
			return
		}
		metrics.RecordOrderSyncCycle(report.Status, time.Since(start))
		for i := 0; i < report.Statistics.NewlySynced; i++ {
			metrics.RecordOrderSynced("created")
		}
		for i := 0; i < report.Statistics.Updated; i++ {
			metrics.RecordOrderSynced("updated")
		}
		for i := 0; i < report.Statistics.SyncErrors; i++ {
			metrics.RecordOrderSyncError("sync_error")
		}
		log.Info("poll cycle completed",
			logging.String("status", report.Status),
			logging.Int("newly_synced", report.Statistics.NewlySynced),
			logging.Int("updated", report.Statistics.Updated),
			logging.Int("sync_errors", report.Statistics.SyncErrors),
		)
	}

	runCycle()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCycle()
		}
	}
}
