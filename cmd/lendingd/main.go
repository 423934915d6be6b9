package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/udyamcap/lending-engine/internal/application/usecase"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/service"
	"github.com/udyamcap/lending-engine/internal/infrastructure/cache"
	"github.com/udyamcap/lending-engine/internal/infrastructure/compliance"
	"github.com/udyamcap/lending-engine/internal/infrastructure/config"
	"github.com/udyamcap/lending-engine/internal/infrastructure/gateway"
	"github.com/udyamcap/lending-engine/internal/infrastructure/messaging"
	pgRepo "github.com/udyamcap/lending-engine/internal/infrastructure/persistence/postgres"
	grpcPresentation "github.com/udyamcap/lending-engine/internal/presentation/grpc"
	"github.com/udyamcap/lending-engine/internal/presentation/rest"
	"github.com/udyamcap/lending-engine/pkg/auth"
	pkgkafka "github.com/udyamcap/lending-engine/pkg/kafka"
	"github.com/udyamcap/lending-engine/pkg/observability"
	pkgpostgres "github.com/udyamcap/lending-engine/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	cfg.Validate()

	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	logger.Info("starting lending-engine",
		"grpc_port", cfg.GRPCPort,
		"http_port", cfg.HTTPPort,
	)

	// Tracing is best-effort; the engine runs fine without a collector.
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    true,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() { _ = shutdown(ctx) }() //nolint:errcheck // best-effort tracer shutdown
		}
	}

	_, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}

	// --- Database -----------------------------------------------------------
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	pool, err := pkgpostgres.NewPool(dbCtx, cfg.DB)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if migErr := pkgpostgres.RunMigrations(cfg.DB.DSN(), cfg.MigrationsURL); migErr != nil {
		logger.Warn("migration warning", "error", migErr)
	}

	// --- Infrastructure adapters -------------------------------------------
	appRepo := pgRepo.NewApplicationRepo(pool)
	offerRepo := pgRepo.NewOfferRepo(pool)
	loanRepo := pgRepo.NewLoanRepo(pool)
	caseRepo := pgRepo.NewCollectionCaseRepo(pool)
	settlementStore := pgRepo.NewSettlementStore(pool)

	kafkaProducer := pkgkafka.NewProducer(pkgkafka.Config{Brokers: cfg.Kafka.Brokers})
	defer kafkaProducer.Close()
	publisher := messaging.NewKafkaEventPublisher(kafkaProducer, logger)

	var offerCache port.OfferCache
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisOfferCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		defer redisCache.Close() //nolint:errcheck
		offerCache = redisCache
		logger.Info("offer cache enabled", "addr", cfg.Redis.Addr)
	} else {
		offerCache = cache.NewNoopOfferCache()
		logger.Info("offer cache disabled, REDIS_ADDR not set")
	}

	var partner port.LendingGateway
	if cfg.Partner.APIKey != "" {
		partner = gateway.NewPartnerClient(gateway.Config{
			BaseURL:    cfg.Partner.BaseURL,
			APIKey:     cfg.Partner.APIKey,
			Timeout:    cfg.Partner.Timeout,
			RatePerSec: cfg.Partner.RatePerSec,
			BurstSize:  cfg.Partner.BurstSize,
		})
	} else {
		partner = gateway.NewStubPartnerClient()
		logger.Warn("PARTNER_API_KEY not set, using stub lending partner")
	}

	complianceProvider := compliance.NewStubProvider()

	// --- Domain services ----------------------------------------------------
	validator := service.NewValidator(service.DefaultValidatorPolicy())
	riskEngine := service.NewRiskEngine(complianceProvider, cfg.Policy.IdealTurnover, logger)

	// --- Use cases ----------------------------------------------------------
	submitAppUC := usecase.NewSubmitApplicationUseCase(validator, riskEngine, partner, appRepo, publisher, logger)
	getAppUC := usecase.NewGetApplicationUseCase(appRepo)
	listOffersUC := usecase.NewListOffersUseCase(appRepo, offerRepo, partner, offerCache, publisher, logger)
	acceptOfferUC := usecase.NewAcceptOfferUseCase(appRepo, offerRepo, loanRepo, partner, offerCache, publisher, logger)
	getLoanUC := usecase.NewGetLoanUseCase(loanRepo)
	webhookUC := usecase.NewProcessWebhookUseCase(
		[]byte(cfg.WebhookSecret), settlementStore, loanRepo, caseRepo,
		publisher, cfg.Policy.LateFee, logger,
	)

	// --- JWT ----------------------------------------------------------------
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		logger.Error("failed to initialize JWT service", "error", err)
		os.Exit(1)
	}

	// --- gRPC server --------------------------------------------------------
	handler := grpcPresentation.NewLendingHandler(submitAppUC, getAppUC, listOffersUC, acceptOfferUC, getLoanUC, logger)
	grpcServer := grpcPresentation.NewServer(handler, logger, jwtSvc, cfg.TLS.CertFile, cfg.TLS.KeyFile)

	// --- HTTP server (webhooks, health, metrics) ---------------------------
	mux := http.NewServeMux()
	rest.NewHealthHandler(pool, logger).RegisterRoutes(mux)
	rest.NewWebhookHandler(webhookUC, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", metricsHandler)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start servers ------------------------------------------------------
	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	// --- Graceful shutdown --------------------------------------------------
	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("lending-engine stopped")
}
