package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/PagerNation/escalator/internal/api/http"
	"github.com/PagerNation/escalator/internal/api/http/handlers"
	"github.com/PagerNation/escalator/internal/config"
	"github.com/PagerNation/escalator/internal/events"
	"github.com/PagerNation/escalator/internal/notify"
	"github.com/PagerNation/escalator/internal/observability"
	"github.com/PagerNation/escalator/internal/paging"
	"github.com/PagerNation/escalator/internal/persistence"
	"github.com/PagerNation/escalator/internal/repository"
	"github.com/PagerNation/escalator/internal/scheduler"
	"github.com/PagerNation/escalator/internal/service"
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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	groupRepo := repository.NewGroupRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	clk := clock.New()
	sched := scheduler.New(clk, logger)
	dispatcher := events.NewInMemoryDispatcher(logger)
	queue := paging.NewRedisQueue(redis.Client, clk, logger, cfg.Paging.QueueKeyPrefix)
	notifier := notify.NewClient(cfg.Notify, logger)

	rotationService := service.NewRotationService(service.RotationDependencies{
		GroupRepo:  groupRepo,
		Scheduler:  sched,
		Clock:      clk,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	availabilityService := service.NewAvailabilityService(service.AvailabilityDependencies{
		GroupRepo:  groupRepo,
		Scheduler:  sched,
		Clock:      clk,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	alertService := service.NewAlertService(service.AlertDependencies{
		GroupRepo:             groupRepo,
		UserRepo:              userRepo,
		TicketRepo:            ticketRepo,
		Queue:                 queue,
		Notifier:              notifier,
		Dispatcher:            dispatcher,
		Clock:                 clk,
		Logger:                logger,
		DefaultDeviceDelayMin: cfg.Paging.DefaultDeviceDelayMin,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		GroupRepo:  groupRepo,
		Alerts:     alertService,
		Queue:      queue,
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	})
	groupService := service.NewGroupService(service.GroupDependencies{
		GroupRepo:           groupRepo,
		UserRepo:            userRepo,
		Rotation:            rotationService,
		Availability:        availabilityService,
		Clock:               clk,
		Logger:              logger,
		DefaultRotationDays: cfg.Paging.DefaultRotationIntervalDays,
		DefaultIntervalMin:  cfg.Paging.DefaultPagingIntervalMin,
	})
	userService := service.NewUserService(userRepo)

	auditService := service.NewAuditService(dispatcher, logger)
	auditService.RegisterHandlers()

	go sched.Run(ctx)

	if !cfg.App.IsTest() {
		loader := service.NewBulkLoader(groupRepo, rotationService, availabilityService, logger)
		if err := loader.Load(ctx); err != nil {
			logger.Error("schedule recovery failed", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(handlers.HealthDependencies{
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Postgres:    pg,
		Redis:       redis,
		Scheduler:   sched,
		Metrics:     metrics,
	})
	groupsHandler := handlers.NewGroupsHandler(groupService)
	usersHandler := handlers.NewUsersHandler(userService)
	ticketsHandler := handlers.NewTicketsHandler(ticketService, alertService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  healthHandler,
		Groups:  groupsHandler,
		Users:   usersHandler,
		Tickets: ticketsHandler,
	})

	go func() {
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
