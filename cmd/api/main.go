package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/client-service/internal/api/http"
	"github.com/spec-kit/client-service/internal/api/http/handlers"
	"github.com/spec-kit/client-service/internal/auth"
	"github.com/spec-kit/client-service/internal/config"
	"github.com/spec-kit/client-service/internal/events"
	"github.com/spec-kit/client-service/internal/observability"
	"github.com/spec-kit/client-service/internal/persistence"
	"github.com/spec-kit/client-service/internal/repository"
	"github.com/spec-kit/client-service/internal/service"
	"github.com/spec-kit/client-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	clientRepo := repository.NewClientRepository(pool)

	var sessionRepo repository.SessionTokenRepository
	switch cfg.Session.StoreBackend {
	case config.StoreBackendRedis:
		sessionRepo = repository.NewRedisSessionTokenRepository(redis.Client)
	case config.StoreBackendMemory:
		sessionRepo = repository.NewMemorySessionTokenRepository()
	default:
		sessionRepo = repository.NewSessionTokenRepository(pool)
	}
	logger.Info("session token store ready", zap.String("backend", cfg.Session.StoreBackend))

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Dispatcher:  dispatcher,
	})
	clientService := service.NewClientService(clientRepo, dispatcher)
	guard := auth.NewSessionGuard(authService.TokenManager(), sessionRepo, cfg.Session.InactivityWindow(), dispatcher, logger)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:    handlers.NewAuthHandler(authService),
		Clients: handlers.NewClientsHandler(clientService),
		Tokens:  handlers.NewTokensHandler(authService),
		Guard:   guard,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
