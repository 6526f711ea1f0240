package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	httpAdapter "github.com/fluxpay/pspcore/internal/adapter/http"
	"github.com/fluxpay/pspcore/internal/adapter/http/handler"
	postgresRepo "github.com/fluxpay/pspcore/internal/adapter/repository/postgres"
	redisRepo "github.com/fluxpay/pspcore/internal/adapter/repository/redis"
	"github.com/fluxpay/pspcore/internal/advisory"
	"github.com/fluxpay/pspcore/internal/infrastructure/config"
	"github.com/fluxpay/pspcore/internal/infrastructure/logger"
	"github.com/fluxpay/pspcore/internal/infrastructure/logging"
	"github.com/fluxpay/pspcore/internal/infrastructure/metrics"
	"github.com/fluxpay/pspcore/internal/infrastructure/postgres"
	"github.com/fluxpay/pspcore/internal/infrastructure/redis"
	"github.com/fluxpay/pspcore/internal/provider"
	"github.com/fluxpay/pspcore/internal/psp"
	"github.com/fluxpay/pspcore/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	reservationRepo := postgresRepo.NewReservationRepository(pool)
	instructionRepo := postgresRepo.NewInstructionRepository(pool)
	settlementRepo := postgresRepo.NewSettlementRepository(pool)
	liabilityRepo := postgresRepo.NewLiabilityRepository(pool)
	eventRepo := postgresRepo.NewEventRepository(pool)
	idempotencyRepo := postgresRepo.NewIdempotencyRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()

	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	registry := usecase.NewIdempotencyRegistry(idempotencyRepo)

	// Use cases
	accountUC := usecase.NewAccountUseCase(accountRepo, idGen)
	ledgerUC := usecase.NewLedgerUseCase(txManager, accountRepo, entryRepo, ledgerRepo, eventRepo, registry, idGen, cache, m)
	gateUC := usecase.NewFundingGateUseCase(txManager, accountRepo, entryRepo, reservationRepo, eventRepo, registry, idGen, m)
	liabilityUC := usecase.NewLiabilityUseCase(txManager, liabilityRepo, eventRepo, idGen, m)
	paymentUC := usecase.NewPaymentUseCase(txManager, instructionRepo, ledgerUC, gateUC, liabilityUC, eventRepo, registry, idGen, m)
	settlementUC := usecase.NewSettlementUseCase(txManager, settlementRepo, instructionRepo, paymentUC, eventRepo, registry, idGen, m)
	eventUC := usecase.NewEventUseCase(eventRepo)

	svc := psp.New(accountUC, ledgerUC, gateUC, paymentUC, settlementUC, liabilityUC, eventUC, log)
	svc.RegisterProvider(provider.NewACHSim(log))
	svc.RegisterProvider(provider.NewFedNowSim(log))

	// The advisory consumer follows one tenant's event log, named by
	// ADVISORY_TENANT_ID.
	advisoryCtx, stopAdvisory := context.WithCancel(ctx)
	defer stopAdvisory()

	if cfg.AdvisoryEnabled {
		slogger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
		advisoryRepo := postgresRepo.NewAdvisoryRepository(pool, idGen)

		if tenant := os.Getenv("ADVISORY_TENANT_ID"); tenant != "" {
			consumer := advisory.NewConsumer(eventRepo, advisoryRepo, slogger.Logger, tenant, 0)
			go func() {
				if err := consumer.Run(advisoryCtx, cfg.AdvisoryPollInterval); err != nil && advisoryCtx.Err() == nil {
					log.Error().Err(err).Msg("advisory consumer stopped")
				}
			}()
		}
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:    handler.NewAccountHandler(svc),
		BatchHandler:      handler.NewBatchHandler(svc),
		LedgerHandler:     handler.NewLedgerHandler(svc),
		SettlementHandler: handler.NewSettlementHandler(svc),
		LiabilityHandler:  handler.NewLiabilityHandler(svc),
		EventHandler:      handler.NewEventHandler(svc),
		HealthHandler:     handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:  idempotencyStore,
		Logger:            log,
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down server...")
	stopAdvisory()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")

	return nil
}
