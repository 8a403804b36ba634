// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subscription-engine/internal/config"
	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/infra/audit"
	pg "subscription-engine/internal/infra/db/postgres"
	"subscription-engine/internal/infra/logging"
	"subscription-engine/internal/infra/metrics"
	red "subscription-engine/internal/infra/redis"
	"subscription-engine/internal/infra/sched"
	"subscription-engine/internal/infra/web"
	"subscription-engine/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	subRepo := pg.NewSubscriptionRepoCacheDecorator(
		pg.NewPostgresSubscriptionRepo(pool), redisClient, cfg.Redis.TTL)

	// ---- Calculators ----
	tiers, err := tiersFromConfig(cfg.Pricing)
	if err != nil {
		logger.Fatal().Err(err).Msg("pricing config")
	}
	pricing, err := usecase.NewPricingCalculator(tiers)
	if err != nil {
		logger.Fatal().Err(err).Msg("pricing")
	}

	// ---- Use cases ----
	recorder := audit.NewLogRecorder(logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, pricing, recorder)
	adminUC := usecase.NewAdminUseCase(subRepo, pricing, recorder, locker)
	statsUC := usecase.NewStatsUseCase(subRepo)

	// ---- Stats worker ----
	worker := sched.NewStatsWorker(time.Minute, statsUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, !cfg.Runtime.Dev, "", cfg.Auth.TokenTTL)
	srv := web.NewServer(subUC, adminUC, statsUC, auth, cfg.Auth.AdminKey, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

func tiersFromConfig(cfg config.PricingConfig) (model.DiscountTable, error) {
	if len(cfg.Tiers) == 0 {
		return nil, nil
	}
	tiers := model.DefaultDiscountTable()
	for name, pct := range cfg.Tiers {
		freq := model.Frequency(name)
		if !freq.Valid() {
			return nil, fmt.Errorf("pricing.tiers: unrecognized frequency %q", name)
		}
		tiers[freq] = decimal.NewFromFloat(pct)
	}
	return tiers, nil
}
