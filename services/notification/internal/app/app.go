package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для goose
	"github.com/pressly/goose/v3"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	platformhealth "github.com/byteracerx/upkar-pharma-orders-sub001/platform/health/grpc"
	healthhttp "github.com/byteracerx/upkar-pharma-orders-sub001/platform/health/http"
	platformlogging "github.com/byteracerx/upkar-pharma-orders-sub001/platform/logging"
	platformobservability "github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	platformshutdown "github.com/byteracerx/upkar-pharma-orders-sub001/platform/shutdown"
	grpcapi "github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/api/grpc"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/config"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/email"
	eventkafka "github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/event/kafka"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/repository/postgres"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/service"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/templates"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/whatsapp"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/migrations"
)

const (
	readinessInterval = 10 * time.Second
	readinessTimeout  = 2 * time.Second
)

// App содержит все зависимости для запуска и корректного shutdown Notification Service
type App struct {
	logger        *zap.Logger
	pool          *pgxpool.Pool
	health        *platformhealth.Health
	grpcServer    *grpc.Server
	grpcListener  net.Listener
	consumers     []*eventkafka.EventConsumer
	shutdownMgr   *platformshutdown.Manager
	workersCtx    context.Context
	cancelWorkers context.CancelFunc
}

// Build создаёт и настраивает все зависимости Notification Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "notification",
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building Notification service",
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.Strings("topics", cfg.Kafka.Topics()),
		zap.Int("retry_max_attempts", cfg.NotificationKafkaRetryMaxAttempts),
		zap.Duration("retry_backoff_base", cfg.NotificationKafkaRetryBackoffBase),
	)

	otelShutdown, err := platformobservability.Init(context.Background(), platformobservability.Config{
		Enabled:               cfg.OTELEnabled,
		OTLPEndpoint:          cfg.OTLPEndpoint,
		SamplingRatio:         cfg.OTELSamplingRatio,
		ServiceName:           "notification",
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

	logger.Info("Applying database migrations")
	if err := applyMigrations(context.Background(), cfg.PostgresDSN); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Database migrations applied successfully")

	renderer, err := templates.NewRenderer(logger.Named("templates"), cfg.TemplatesDir)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create template renderer: %w", err)
	}
	if err := service.ValidateTemplates(renderer); err != nil {
		pool.Close()
		return nil, err
	}

	var waSender service.WhatsAppSender
	if cfg.WhatsApp.Enabled {
		waSender = whatsapp.NewClient(logger.Named("whatsapp"), cfg.WhatsApp.BaseURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.Token, cfg.WhatsApp.Timeout)
		logger.Info("WhatsApp sender enabled", zap.String("phone_number_id", cfg.WhatsApp.PhoneNumberID))
	} else {
		waSender = whatsapp.NewNoOpSender(logger.Named("whatsapp"))
		logger.Warn("WhatsApp disabled, using no-op sender")
	}

	var emailSender service.EmailSender
	if cfg.Email.Enabled {
		emailSender = email.NewSMTPSender(logger.Named("email"), email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			TLSMode:  cfg.Email.TLSMode,
			Timeout:  cfg.Email.Timeout,
		})
		logger.Info("SMTP sender enabled", zap.String("host", cfg.Email.Host))
	} else {
		emailSender = email.NewNoOpSender(logger.Named("email"))
		logger.Warn("SMTP disabled, using no-op sender")
	}

	notificationService := service.NewNotificationService(
		logger.Named("service"),
		postgres.NewRepository(pool),
		waSender,
		emailSender,
		renderer,
		cfg.Email.AdminRecipients,
	)

	dlqPublisher := eventkafka.NewDLQPublisher(
		logger.Named("dlq"),
		eventkafka.NewDLQWriter(cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.DLQTopic),
	)

	retry := eventkafka.RetryConfig{
		MaxAttempts: cfg.NotificationKafkaRetryMaxAttempts,
		BackoffBase: cfg.NotificationKafkaRetryBackoffBase,
	}
	var consumers []*eventkafka.EventConsumer
	for _, topic := range cfg.Kafka.Topics() {
		groupID := cfg.NotificationGroupID + "-" + topic
		consumers = append(consumers, eventkafka.NewEventConsumer(
			logger.Named("consumer"),
			topic,
			eventkafka.NewReader(cfg.Kafka.Brokers, groupID, topic),
			notificationService,
			dlqPublisher,
			retry,
		))
	}

	// NOT_SERVING до первой успешной проверки
	health := platformhealth.New(logger.Named("health"), readinessTimeout,
		healthhttp.Ping("postgres", pool),
		healthhttp.Check{Name: "kafka", Fn: kafkaBrokerCheck(cfg.Kafka.Brokers)},
	)
	grpcServer := grpcapi.NewServer(health, logger.Named("grpc"))
	lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("listen %s: %w", cfg.GRPCHealthAddr, err)
	}

	workersCtx, cancelWorkers := context.WithCancel(context.Background())

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)

	// выполняются в обратном порядке: health → gRPC → consumers → DLQ → пул → OTEL
	shutdownMgr.Add("otel", otelShutdown)
	shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
	shutdownMgr.Add("dlq_publisher", platformshutdown.CloseFunc(dlqPublisher))
	for i, c := range consumers {
		shutdownMgr.Add(fmt.Sprintf("kafka_consumer_%d", i), platformshutdown.CloseFunc(c))
	}
	shutdownMgr.Add("background_workers", func(context.Context) error {
		cancelWorkers()
		return nil
	})
	shutdownMgr.Add("grpc_server", platformshutdown.ShutdownGRPCServer(grpcServer))
	shutdownMgr.Add("health", platformshutdown.ShutdownHealth(health))

	return &App{
		logger:        logger,
		pool:          pool,
		health:        health,
		grpcServer:    grpcServer,
		grpcListener:  lis,
		consumers:     consumers,
		shutdownMgr:   shutdownMgr,
		workersCtx:    workersCtx,
		cancelWorkers: cancelWorkers,
	}, nil
}

func applyMigrations(ctx context.Context, dsn string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Notification service", zap.String("grpc_health_addr", a.grpcListener.Addr().String()))

	g, ctx := errgroup.WithContext(a.workersCtx)
	g.Go(func() error {
		if err := a.grpcServer.Serve(a.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.health.Watch(ctx, readinessInterval)
		return nil
	})
	for _, c := range a.consumers {
		g.Go(func() error {
			return c.Start(ctx)
		})
	}
	a.logger.Info("Kafka consumers started", zap.Int("consumers", len(a.consumers)))

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.shutdownMgr.WaitContext(sigCtx)
	a.cancelWorkers()

	if err := g.Wait(); err != nil {
		a.logger.Error("notification stopped with error", zap.Error(err))
		return err
	}
	a.logger.Info("Notification service stopped")
	return nil
}

// kafkaBrokerCheck достаточно ответа хотя бы одного брокера
func kafkaBrokerCheck(brokers []string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var lastErr error
		for _, addr := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", addr)
			if err != nil {
				lastErr = err
				continue
			}
			return conn.Close()
		}
		if lastErr == nil {
			return errors.New("no kafka brokers configured")
		}
		return fmt.Errorf("dial kafka: %w", lastErr)
	}
}
