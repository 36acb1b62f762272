package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/labdesk/lab-issue-service/internal/api/http"
	"github.com/labdesk/lab-issue-service/internal/api/http/handlers"
	"github.com/labdesk/lab-issue-service/internal/auth"
	"github.com/labdesk/lab-issue-service/internal/config"
	"github.com/labdesk/lab-issue-service/internal/events"
	"github.com/labdesk/lab-issue-service/internal/observability"
	"github.com/labdesk/lab-issue-service/internal/persistence"
	"github.com/labdesk/lab-issue-service/internal/repository"
	"github.com/labdesk/lab-issue-service/internal/seed"
	"github.com/labdesk/lab-issue-service/internal/service"
	"github.com/labdesk/lab-issue-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}
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

	redis := persistence.NewRedis(ctx, cfg.Redis, cfg.App.Name, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	sqlDB := pg.SQLDB()
	defer sqlDB.Close()

	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	computerRepo := repository.NewComputerRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	rosterRepo := repository.NewRosterRepository(sqlDB)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartLifecycleSubscribers(dispatcher, metrics, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL())
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	sessions := auth.NewRedisSessionStore(redis.Client, logger)

	if cfg.Seed.DemoData {
		fixture, err := seed.LoadFixture()
		if err != nil {
			logger.Fatal("failed to load seed fixture", zap.Error(err))
		}
		seeder := seed.NewSeeder(userRepo, ticketRepo, computerRepo, hasher, logger)
		if _, err := seeder.Run(ctx, fixture); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		UserRepo:     userRepo,
		ComputerRepo: computerRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
	})
	dashboardService := service.NewDashboardService(ticketRepo, rosterRepo)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Tokens:     tokens,
		Hasher:     hasher,
		Sessions:   sessions,
		Dispatcher: dispatcher,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo, sessions, cfg.Auth.CookieName, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Account: handlers.NewAccountHandler(authService, handlers.CookieSettings{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
		}, logger),
		Student:        handlers.NewStudentHandler(ticketService, dashboardService),
		NetworkTeam:    handlers.NewNetworkTeamHandler(ticketService, dashboardService),
		Faculty:        handlers.NewFacultyHandler(ticketService, dashboardService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
