package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/fairwork/escrow-settlement-service/internal/adapters/cache"
	eventadapter "github.com/fairwork/escrow-settlement-service/internal/adapters/events"
	grpcadapter "github.com/fairwork/escrow-settlement-service/internal/adapters/grpc"
	httpadapter "github.com/fairwork/escrow-settlement-service/internal/adapters/http"
	"github.com/fairwork/escrow-settlement-service/internal/adapters/ledger"
	"github.com/fairwork/escrow-settlement-service/internal/adapters/memory"
	"github.com/fairwork/escrow-settlement-service/internal/adapters/postgres"
	"github.com/fairwork/escrow-settlement-service/internal/adapters/security"
	"github.com/fairwork/escrow-settlement-service/internal/application"
	"github.com/fairwork/escrow-settlement-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcAddr   string
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bootstrapping escrow settlement service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	cleanups := make([]func(), 0, 4)

	var (
		escrows     ports.EscrowRepository
		milestones  ports.MilestoneRepository
		fees        ports.FeeRepository
		idempotency ports.IdempotencyRepository
		outboxRepo  ports.OutboxRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL, int32(cfg.MaxDBConns))
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("gorm sql db: %w", err)
		}
		cleanups = append(cleanups, func() { _ = sqlDB.Close() })
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		repos := postgres.NewRepositories(db)
		escrows, milestones, fees = repos.Escrows, repos.Milestones, repos.Fees
		idempotency, outboxRepo = repos.Idempotency, repos.Outbox
	} else {
		logger.Warn("no database configured, using in-memory repositories")
		repos := memory.NewRepositories()
		escrows, milestones, fees = repos.Escrows, repos.Milestones, repos.Fees
		idempotency, outboxRepo = repos.Idempotency, repos.Outbox
	}

	var pause security.PauseGate = security.StaticPauseGate(false)
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
		idempotency = cacheadapter.NewRedisIdempotencyStore(redisClient)
		pause = cacheadapter.NewRedisPauseGate(redisClient)
	}

	var (
		domainEvents ports.DomainPublisher
		analytics    ports.AnalyticsPublisher
		dlq          ports.DLQPublisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			"escrow.funds_released":   cfg.TopicFundsReleased,
			"escrow.funds_refunded":   cfg.TopicFundsRefunded,
			"escrow.dispute_resolved": cfg.TopicDisputeResolved,
		}, cfg.AnalyticsTopic, cfg.DLQTopic)
		if err != nil {
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		cleanups = append(cleanups, func() { _ = publisher.Close() })
		domainEvents, analytics, dlq = publisher, publisher, publisher
	} else {
		logger.Warn("no kafka brokers configured, using in-memory publishers")
		domainEvents = eventadapter.NewMemoryDomainPublisher()
		analytics = eventadapter.NewMemoryAnalyticsPublisher()
		dlq = eventadapter.NewLoggingDLQPublisher(logger)
	}

	var transfers ports.TransferClient
	if cfg.LedgerGRPCURL != "" {
		transfers = grpcadapter.NewLedgerGatewayClient(cfg.LedgerGRPCURL)
	} else {
		logger.Warn("no ledger gateway configured, using in-memory transfer client")
		transfers = ledger.NewMemoryTransferClient()
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceName,
			FeeRateBps:           cfg.FeeRateBps,
			MinEscrowAmount:      cfg.MinEscrowAmount,
			MaxDeadlineHorizon:   cfg.MaxDeadlineHorizon,
			GracePeriod:          cfg.GracePeriod,
			CustodyAccount:       cfg.CustodyAccount,
			FeeTreasuryAccount:   cfg.FeeTreasuryAccount,
			AllowedAssets:        cfg.AllowedAssets,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			OutboxFlushBatchSize: cfg.OutboxBatchSize,
		},
		Escrows:      escrows,
		Milestones:   milestones,
		Fees:         fees,
		Idempotency:  idempotency,
		Outbox:       outboxRepo,
		DomainEvents: domainEvents,
		Analytics:    analytics,
		DLQ:          dlq,
		Transfers:    transfers,
		Policy:       security.NewAccessPolicy(cfg.AdminSubjects, pause),
		Heights:      ledger.NewWallClock(time.Time{}),
	})

	var verifier *security.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier, err = security.NewTokenVerifier(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("init token verifier: %w", err)
		}
	} else {
		logger.Warn("no jwt secret configured, bearer tokens are taken as subject ids")
	}

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler, verifier)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	outbox := eventadapter.NewOutboxWorker(svc, cfg.OutboxPollInterval, logger)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcAddr:   fmt.Sprintf(":%d", cfg.GRPCPort),
		outbox:     outbox,
		cleanupFn: func(context.Context) {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The listener binds here rather than in NewRuntime so worker
	// processes sharing a host never contend for the gRPC port.
	lis, err := net.Listen("tcp", r.grpcAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
