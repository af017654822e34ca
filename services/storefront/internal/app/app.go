package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	platformhealth "github.com/byteracerx/upkar-pharma-orders-sub001/platform/health/http"
	platformlogging "github.com/byteracerx/upkar-pharma-orders-sub001/platform/logging"
	platformobservability "github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	platformshutdown "github.com/byteracerx/upkar-pharma-orders-sub001/platform/shutdown"
	httpapi "github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/api/http"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/config"
	eventkafka "github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/event/kafka"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/metrics"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/ratelimit"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/realtime"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository/cache"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository/postgres"
	redisrepo "github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository/redis"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

// App зависимости storefront для запуска и graceful shutdown
type App struct {
	logger        *zap.Logger
	httpServer    *http.Server
	broker        *realtime.RedisBroker
	dispatcher    *eventkafka.OutboxDispatcher
	shutdownMgr   *platformshutdown.Manager
	workersCtx    context.Context
	cancelWorkers context.CancelFunc
}

// Build собирает граф зависимостей storefront
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "storefront",
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("op", op))
	logger.Info("Building storefront service", zap.String("http_addr", cfg.HTTPAddr))

	otelShutdown, err := platformobservability.Init(context.Background(), platformobservability.Config{
		Enabled:               cfg.OTELEnabled,
		OTLPEndpoint:          cfg.OTLPEndpoint,
		SamplingRatio:         cfg.OTELSamplingRatio,
		ServiceName:           "storefront",
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	logger.Info("Connecting to PostgreSQL")
	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("PostgreSQL connection established")

	logger.Info("Connecting to Redis", zap.String("addr", cfg.RedisAddr))
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Redis connection established")

	m, err := metrics.New()
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if err := m.RegisterPool(pool); err != nil {
		logger.Warn("failed to register pool metrics", zap.Error(err))
	}

	// realtime: изменения идут через Redis, каждый экземпляр раздаёт их своим SSE клиентам
	hub := realtime.NewHub(cfg.RealtimeBuffer, logger.Named("realtime"))
	broker := realtime.NewRedisBroker(rdb, cfg.RealtimeChannel, hub, logger.Named("realtime"))
	_ = m.RegisterGaugeFunc("realtime_subscribers", "Connected realtime subscribers", func() float64 {
		return float64(hub.Subscribers())
	})
	_ = m.RegisterGaugeFunc("realtime_dropped_changes", "Changes dropped for slow subscribers", func() float64 {
		return float64(hub.Dropped())
	})

	txManager := postgres.NewTxManager(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	productRepo := cache.NewProductRepository(postgres.NewProductRepository(pool), cfg.CatalogCacheTTL)
	orderRepo := postgres.NewOrderRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	sessionRepo := redisrepo.NewSessionRepository(rdb, logger.Named("sessions"))
	cartRepo := redisrepo.NewCartRepository(rdb, cfg.CartTTL, logger.Named("carts"))

	topics := service.Topics{
		Orders:   cfg.Kafka.OrdersTopic,
		Payments: cfg.Kafka.PaymentsTopic,
		Doctors:  cfg.Kafka.DoctorsTopic,
	}

	accountService := service.NewAccountService(logger.Named("accounts"), txManager, accountRepo, sessionRepo, outboxRepo, topics, broker, cfg.SessionTTL)
	catalogService := service.NewCatalogService(logger.Named("catalog"), productRepo, broker)
	cartService := service.NewCartService(logger.Named("carts"), cartRepo, productRepo)
	orderService := service.NewOrderService(logger.Named("orders"), service.OrderDeps{
		Tx:       txManager,
		Accounts: accountRepo,
		Products: productRepo,
		Orders:   orderRepo,
		Ledger:   ledgerRepo,
		Carts:    cartRepo,
		Outbox:   outboxRepo,
		Topics:   topics,
		Changes:  broker,
		Metrics:  m,
		Cache:    productRepo,
	})
	ledgerService := service.NewLedgerService(logger.Named("ledger"), service.LedgerDeps{
		Tx:       txManager,
		Accounts: accountRepo,
		Orders:   orderRepo,
		Ledger:   ledgerRepo,
		Outbox:   outboxRepo,
		Topics:   topics,
		Changes:  broker,
		Metrics:  m,
	})

	writer := eventkafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
	dispatcher := eventkafka.NewOutboxDispatcher(logger.Named("outbox"), outboxRepo, writer, m, eventkafka.DispatcherConfig{
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		MaxRetries: cfg.OutboxMaxRetries,
		Backoff:    cfg.OutboxBackoff,
		Lease:      cfg.OutboxLease,
	})

	handler := httpapi.NewHandler(logger.Named("http"), accountService, catalogService, cartService, orderService, ledgerService)
	router := httpapi.NewRouter(handler, httpapi.RouterDeps{
		Hub:         hub,
		AuthLimiter: ratelimit.NewRedisLimiter(rdb, "ratelimit:auth:", cfg.AuthRateLimit, cfg.AuthRateWindow),
		Metrics:     m,
		HealthChecks: []platformhealth.Check{
			platformhealth.Ping("postgres", pool),
			{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		HealthTimeout: 2 * time.Second,
		Heartbeat:     cfg.RealtimeHeartbeat,
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	workersCtx, cancelWorkers := context.WithCancel(context.Background())

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)

	// выполняются в обратном порядке: сначала SSE и HTTP, в конце пул и OTEL
	shutdownMgr.Add("otel", otelShutdown)
	shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
	shutdownMgr.Add("redis", platformshutdown.CloseFunc(rdb))
	shutdownMgr.Add("kafka_writer", platformshutdown.CloseFunc(dispatcher))
	shutdownMgr.Add("background_workers", func(context.Context) error {
		cancelWorkers()
		return nil
	})
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))
	shutdownMgr.Add("realtime_hub", func(context.Context) error {
		hub.CloseAll()
		return nil
	})

	return &App{
		logger:        logger,
		httpServer:    httpServer,
		broker:        broker,
		dispatcher:    dispatcher,
		shutdownMgr:   shutdownMgr,
		workersCtx:    workersCtx,
		cancelWorkers: cancelWorkers,
	}, nil
}

// Run запускает HTTP сервер, realtime broker и outbox dispatcher.
// Блокируется до сигнала или падения любого из них.
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting storefront service", zap.String("addr", a.httpServer.Addr))

	g, ctx := errgroup.WithContext(a.workersCtx)
	g.Go(func() error {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.broker.Run(ctx)
	})
	g.Go(func() error {
		return a.dispatcher.Start(ctx)
	})

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.shutdownMgr.WaitContext(sigCtx)
	a.cancelWorkers()

	if err := g.Wait(); err != nil {
		a.logger.Error("storefront stopped with error", zap.Error(err))
		return err
	}
	a.logger.Info("Storefront service stopped")
	return nil
}
