package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-router/internal/api/http"
	"github.com/spec-kit/helpdesk-router/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-router/internal/auth"
	"github.com/spec-kit/helpdesk-router/internal/config"
	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/events"
	"github.com/spec-kit/helpdesk-router/internal/notifier"
	"github.com/spec-kit/helpdesk-router/internal/observability"
	"github.com/spec-kit/helpdesk-router/internal/persistence"
	"github.com/spec-kit/helpdesk-router/internal/realtime"
	"github.com/spec-kit/helpdesk-router/internal/repository"
	"github.com/spec-kit/helpdesk-router/internal/service"
	"github.com/spec-kit/helpdesk-router/internal/worker"
)

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

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	smsGateway, err := persistence.NewSMSGateway(ctx, cfg.Notification.SMSGatewayDSN, logger)
	if err != nil {
		logger.Fatal("failed to connect sms gateway", zap.Error(err))
	}
	defer smsGateway.Close()

	feed := events.NewFeed(logger)
	var store *repository.Store
	if pg.Enabled() {
		store = repository.NewPostgresStore(pg.PoolHandle())
	} else {
		store = repository.NewMemoryStore()
	}
	store = store.WithChangeFeed(feed)

	if redis.Enabled() {
		bridge := events.NewRedisBridge(redis.Client, feed, cfg.Redis.ChannelPrefix, logger)
		bridge.Attach()
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Error("change bridge stopped", zap.Error(err))
			}
		}()
	}

	hub := realtime.NewHub(logger)
	hub.Attach(feed)
	defer hub.Close()

	sms, pools := buildNotifiers(cfg.Notification, smsGateway, logger, metrics)
	defer func() {
		for _, pool := range pools {
			pool.Stop()
		}
	}()

	var customerNotifier service.CustomerNotifier
	if cfg.Notification.Enabled {
		manager := notifier.NewManager(logger, metrics)
		manager.Register(domain.ChannelWhatsApp, wrapAsync(notifier.NewChatNotifier(store.Messages, cfg.Notification.WhatsAppSender), cfg.Notification, logger, metrics, &pools))
		manager.Register(domain.ChannelPhone, sms)
		customerNotifier = manager
	} else {
		logger.Info("customer notifications disabled")
	}

	agentService := service.NewAgentService(*cfg, service.AgentDependencies{
		AgentRepo: store.Agents,
		Logger:    logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:    store,
		Notifier: customerNotifier,
		Config:   cfg.Routing,
		Logger:   logger,
		Metrics:  metrics,
	})
	authMiddleware := auth.NewAuthMiddleware(agentService.TokenManager(), store.Agents)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, smsGateway),
		Agents:         handlers.NewAgentsHandler(agentService),
		Channels:       handlers.NewChannelsHandler(service.NewChannelService(store.Channels)),
		Tickets:        handlers.NewTicketsHandler(ticketService, service.NewExportService(store)),
		Webhook:        handlers.NewWebhookHandler(ticketService),
		Reports:        handlers.NewReportsHandler(service.NewStatsService(store)),
		Notifications:  handlers.NewNotificationsHandler(sms, logger),
		Hub:            hub,
		AuthMiddleware: authMiddleware,
		Gatherer:       prometheus.DefaultGatherer,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	cancel()
}

// buildNotifiers returns the SMS backend shared by ticket workflows and the
// direct send route, plus any worker pools that must be stopped on exit.
func buildNotifiers(cfg config.NotificationConfig, gateway *persistence.SMSGateway, logger *zap.Logger, metrics *observability.Metrics) (notifier.Notifier, []*worker.AsyncNotifier) {
	var pools []*worker.AsyncNotifier

	var sms notifier.Notifier
	if gateway.Enabled() {
		backend, err := notifier.NewSMSGatewayNotifier(gateway.DB, cfg.SMSOutboxTable, cfg.SMSSenderID)
		if err != nil {
			logger.Fatal("invalid sms gateway config", zap.Error(err))
		}
		sms = backend
	} else {
		sms = notifier.NewLogNotifier("sms", logger)
	}
	return wrapAsync(sms, cfg, logger, metrics, &pools), pools
}

func wrapAsync(n notifier.Notifier, cfg config.NotificationConfig, logger *zap.Logger, metrics *observability.Metrics, pools *[]*worker.AsyncNotifier) notifier.Notifier {
	if !cfg.Async {
		return n
	}
	pool := worker.NewAsyncNotifier(n, worker.Options{
		Workers:     cfg.Workers,
		QueueSize:   cfg.QueueSize,
		SendTimeout: cfg.SendTimeout,
		Logger:      logger,
		Metrics:     metrics,
	})
	pool.Start()
	*pools = append(*pools, pool)
	return pool
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
