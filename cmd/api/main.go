// Command api serves the accounting authentication API.
//
// @title                       Accounting API
// @version                     1.0
// @description                 Authentication and session lifecycle for the accounting backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerly/accounting-api/internal/api"
	"github.com/ledgerly/accounting-api/internal/api/handler"
	"github.com/ledgerly/accounting-api/internal/core/domain"
	"github.com/ledgerly/accounting-api/internal/core/ports"
	"github.com/ledgerly/accounting-api/internal/core/service"
	"github.com/ledgerly/accounting-api/internal/infrastructure/db/mongo"
	"github.com/ledgerly/accounting-api/internal/infrastructure/db/postgres"
	"github.com/ledgerly/accounting-api/internal/infrastructure/db/redis"
	"github.com/ledgerly/accounting-api/internal/infrastructure/queue"
	"github.com/ledgerly/accounting-api/internal/pkg/config"
	"github.com/ledgerly/accounting-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "accounting-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- MongoDB: users and lockout state ---
	mongoClient, mongoDB, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo unavailable")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	if err := mongo.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}

	// --- PostgreSQL: renewal tokens ---
	sqlDB, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
	if err != nil {
		log.Fatal().Err(err).Msg("postgres unavailable")
	}
	defer sqlDB.Close()
	if err := postgres.Migrate(ctx, sqlDB); err != nil {
		log.Fatal().Err(err).Msg("postgres migrations")
	}

	checks := []handler.DependencyCheck{handler.MongoCheck(mongoDB), handler.PostgresCheck(sqlDB)}

	var renewalRepo ports.RenewalTokenRepository = postgres.NewRenewalTokenRepository(sqlDB)

	// --- Redis: optional renewal token cache ---
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis unavailable")
		}
		defer rdb.Close()
		renewalRepo = redis.NewCachedRenewalTokenRepository(renewalRepo, rdb, log)
		checks = append(checks, handler.RedisCheck(rdb))
	}

	// --- Core services ---
	users := mongo.NewUserRepository(mongoDB)
	hasher := service.NewBcryptHasher(cfg.Auth.BcryptCost)

	codec, err := service.NewTokenCodec(
		service.WithSessionTTL(cfg.Auth.SessionTTL),
		service.WithCodecLogger(log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("session signing key")
	}

	verifier := service.NewCredentialVerifier(users, hasher, domain.LockoutPolicy{
		Threshold: cfg.Auth.LockoutThreshold,
		Duration:  cfg.Auth.LockoutDuration,
	}, time.Now, log)

	pipeline := queue.NewLoginPipeline(verifier, queue.Options{
		WaitTimeout: cfg.Auth.LoginWaitTimeout,
		IdleTTL:     cfg.Auth.LoginWorkerIdleTTL,
	}, log)
	pipeline.Start(ctx)

	renewals := service.NewRenewalTokenService(renewalRepo, users, cfg.Auth.RenewalTTL, time.Now, log)
	renewals.StartJanitor(ctx, cfg.Auth.JanitorInterval)

	authService := service.NewAuthService(users, hasher, pipeline, codec, renewals, log)
	if cfg.Auth.BootstrapAdminUsername != "" {
		if err := authService.BootstrapAdmin(ctx, cfg.Auth.BootstrapAdminUsername, cfg.Auth.BootstrapAdminPassword); err != nil {
			log.Fatal().Err(err).Msg("bootstrap admin")
		}
	}

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		AuthService: authService,
		Sessions:    codec,
		Checks:      checks,
		Log:         log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
}
