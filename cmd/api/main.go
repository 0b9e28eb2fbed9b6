package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/grievance-service/internal/api/http"
	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/classifier"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/ratelimit"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/routing"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/worker"
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
	authorityRepo := repository.NewAuthorityRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	voteRepo := repository.NewVoteRepository(pool)
	statusChangeRepo := repository.NewStatusChangeRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	governor := ratelimit.NewGovernor(cfg.RateLimit.IdleTimeout())
	resolver := routing.NewResolver(authorityRepo, logger)

	var textClassifier classifier.Classifier = classifier.NewKeywordClassifier()
	if redis != nil && redis.Client != nil {
		textClassifier = classifier.NewCachedClassifier(textClassifier, redis.Client, cfg.Classifier.CacheTTL(), logger)
	}

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:      userRepo,
		AuthorityRepo: authorityRepo,
		Tokens:        auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		Logger:        logger,
		Config:        cfg.Auth,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       ticketRepo,
		DepartmentRepo:   departmentRepo,
		StatusChangeRepo: statusChangeRepo,
		Resolver:         resolver,
		Classifier:       textClassifier,
		Governor:         governor,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		RateLimit:        cfg.RateLimit,
		SpamThreshold:    cfg.Classifier.SpamConfidenceThreshold,
	})
	voteService := service.NewVoteService(service.VoteDependencies{
		TicketRepo: ticketRepo,
		VoteRepo:   voteRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:       ticketRepo,
		StatusChangeRepo: statusChangeRepo,
		Resolver:         resolver,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		Config:           cfg.Escalation,
	})

	notificationService := service.NewNotificationService(logger, cfg.Notification)
	notificationService.RegisterHandlers(dispatcher)

	runner := worker.NewRunner(escalationService, governor, logger, *cfg)
	runner.Start(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, authorityRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:           handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:            handlers.NewUsersHandler(authService),
		Authorities:      handlers.NewAuthoritiesHandler(authService),
		Tickets:          handlers.NewTicketsHandler(ticketService, voteService, escalationService),
		AuthorityTickets: handlers.NewAuthorityTicketsHandler(ticketService, escalationService),
		Admin:            handlers.NewAdminHandler(escalationService, metrics),
		AuthMiddleware:   authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
	runner.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
