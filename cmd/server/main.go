package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	fulfillmentapp "github.com/pharmerp/backend/internal/application/fulfillment"
	ledgerapp "github.com/pharmerp/backend/internal/application/ledger"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/pharmerp/backend/internal/infrastructure/cache"
	"github.com/pharmerp/backend/internal/infrastructure/config"
	"github.com/pharmerp/backend/internal/infrastructure/event"
	"github.com/pharmerp/backend/internal/infrastructure/logger"
	"github.com/pharmerp/backend/internal/infrastructure/persistence"
	"github.com/pharmerp/backend/internal/infrastructure/telemetry"
	"github.com/pharmerp/backend/internal/interfaces/http/handler"
	"github.com/pharmerp/backend/internal/interfaces/http/middleware"
	"github.com/pharmerp/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting application",
		zap.String("name", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tracerProvider *telemetry.TracerProvider
	if cfg.Telemetry.Enabled {
		tracerProvider, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Fatal("failed to initialize tracing", zap.Error(err))
		}
	}

	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
	}()
	log.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, cfg.Database.DBName, log); err != nil {
			log.Error("failed to register database tracing", zap.Error(err))
		}
	}

	// Transaction scopes hand each use case a consistent set of repositories
	// bound to one database transaction.
	ledgerScope := persistence.NewGormLedgerTransactionScope(db.DB)
	fulfillScope := persistence.NewGormFulfillmentTransactionScope(db.DB)

	// Stripes write access per (location, medicine) so concurrent approvals
	// against the same stock serialize before hitting optimistic locking.
	locks := ledgerapp.NewKeyedMutex()

	strategy, err := ledger.StrategyFor(ledger.PickStrategyType(cfg.Fulfillment.PickStrategy))
	if err != nil {
		log.Fatal("invalid pick strategy", zap.String("strategy", cfg.Fulfillment.PickStrategy), zap.Error(err))
	}
	planner := fulfillmentapp.NewAllocationPlanner(strategy)

	ledgerService := ledgerapp.NewLedgerService(ledgerScope, locks, log)
	adjustmentService := ledgerapp.NewAdjustmentService(ledgerScope, locks, log)
	requestService := fulfillmentapp.NewRequestService(fulfillScope, locks, planner, log)
	dispatchService := fulfillmentapp.NewDispatchService(fulfillScope, locks, log)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, log).CreateStore()
	if err != nil {
		log.Fatal("failed to create idempotency store", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	auditHandlers := event.WrapHandlersWithIdempotency(
		[]shared.EventHandler{
			fulfillmentapp.NewWorkflowAuditHandler(log),
			fulfillmentapp.NewStaleRequestAlertHandler(log),
		},
		idempotencyStore, log,
	)
	for _, h := range auditHandlers {
		eventBus.Subscribe(h)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("failed to stop event bus", zap.Error(err))
		}
	}()

	ledgerService.SetEventPublisher(eventBus)
	adjustmentService.SetEventPublisher(eventBus)
	requestService.SetEventPublisher(eventBus)
	dispatchService.SetEventPublisher(eventBus)

	if cfg.Fulfillment.StaleMonitorOn {
		staleMonitor := fulfillmentapp.NewStaleMonitor(
			fulfillScope, log,
			cfg.Fulfillment.StaleWindow, cfg.Fulfillment.StaleCheckInterval,
		)
		staleMonitor.SetEventPublisher(eventBus)
		go staleMonitor.Run(ctx)
		log.Info("stale request monitor started",
			zap.Duration("window", cfg.Fulfillment.StaleWindow),
			zap.Duration("interval", cfg.Fulfillment.StaleCheckInterval),
		)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("failed to set trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.GET("/health", healthHandler(db))

	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	adjustmentHandler := handler.NewAdjustmentHandler(adjustmentService)
	requestHandler := handler.NewRequestHandler(requestService)
	dispatchHandler := handler.NewDispatchHandler(dispatchService)

	router.NewRouter(engine).
		Register(router.NewDomainGroup("ledger", "").
			POST("/stock-entries", ledgerHandler.CreateStockEntry).
			GET("/batches", ledgerHandler.ListBatches).
			GET("/batches/expiring", ledgerHandler.ListExpiringBatches),
		).
		Register(router.NewDomainGroup("adjustments", "/adjustments").
			POST("", adjustmentHandler.AdjustStock).
			GET("", adjustmentHandler.ListAdjustments),
		).
		Register(router.NewDomainGroup("requests", "/requests").
			POST("", requestHandler.CreateRequest).
			GET("", requestHandler.ListRequests).
			GET("/:id", requestHandler.GetRequest).
			GET("/:id/allocations", requestHandler.GetRequestAllocations).
			POST("/:id/approve", requestHandler.ApproveRequest).
			POST("/:id/reject", requestHandler.RejectRequest).
			POST("/:id/abandon", requestHandler.AbandonRequest),
		).
		Register(router.NewDomainGroup("dispatches", "/dispatches").
			POST("", dispatchHandler.CreateDispatch).
			GET("", dispatchHandler.ListDispatches).
			GET("/:id", dispatchHandler.GetDispatch).
			POST("/:id/dispatch", dispatchHandler.MarkInTransit).
			POST("/:id/deliver", dispatchHandler.MarkDelivered).
			POST("/:id/lines/:lineID/receive", dispatchHandler.ReceiveLine),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down tracer provider", zap.Error(err))
		}
	}

	log.Info("server stopped")
}

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
