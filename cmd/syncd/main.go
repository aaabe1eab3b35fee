package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/analysis"
	httptransport "github.com/jusdesk/portal-sync/internal/api/http"
	"github.com/jusdesk/portal-sync/internal/api/http/handlers"
	"github.com/jusdesk/portal-sync/internal/api/rest"
	"github.com/jusdesk/portal-sync/internal/auth"
	"github.com/jusdesk/portal-sync/internal/config"
	"github.com/jusdesk/portal-sync/internal/events"
	"github.com/jusdesk/portal-sync/internal/mailer"
	"github.com/jusdesk/portal-sync/internal/observability"
	"github.com/jusdesk/portal-sync/internal/persistence"
	"github.com/jusdesk/portal-sync/internal/realtime"
	"github.com/jusdesk/portal-sync/internal/remote"
	"github.com/jusdesk/portal-sync/internal/scheduler"
	"github.com/jusdesk/portal-sync/internal/store"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventSessionExpired, func(context.Context, events.Event) {
		logger.Warn("session expired, re-authentication required")
	})
	notices := store.NewMemoryNotices(50)

	cache := persistence.NewLocalCache(cfg.Redis, logger)
	defer cache.Close()

	creds := auth.NewCredentialStore(ctx, cfg.Auth.SealSecret, cache)

	restClient := rest.New(cfg.API, rest.Dependencies{
		Credentials: creds,
		Logger:      logger,
		Metrics:     metrics,
		OnUnauthorized: func() {
			dispatcher.Publish(ctx, events.Event{Type: events.EventSessionExpired})
		},
	})

	queue := store.NewSyncQueue(ctx, cache)
	tickets := store.NewTicketStore(ctx, store.TicketDependencies{
		API:        remote.NewTicketAPI(restClient),
		Cache:      cache,
		Dispatcher: dispatcher,
		Notices:    notices,
		Logger:     logger,
	})
	cases := store.NewCaseStore(ctx, store.CaseDependencies{
		API:        remote.NewCaseAPI(restClient),
		Cache:      cache,
		Dispatcher: dispatcher,
		Notices:    notices,
		Logger:     logger,
	})
	calendar := store.NewCalendarStore(ctx, store.CalendarDependencies{
		API:        remote.NewCalendarAPI(restClient),
		Cache:      cache,
		Queue:      queue,
		Dispatcher: dispatcher,
		Notices:    notices,
		Metrics:    metrics,
		Logger:     logger,
	})
	channel := realtime.NewChannel(cfg.Realtime, realtime.Dependencies{
		Credentials: creds,
		Logger:      logger,
		Metrics:     metrics,
	})
	defer channel.Disconnect()

	if token, ok := creds.Get(); ok {
		if claims, err := auth.ParseSessionClaims(token); err == nil {
			topic := realtime.NotificationTopic(claims.SubjectID)
			if err := channel.Connect(ctx, topic, func(_ string, body []byte) {
				tickets.FoldFrame(ctx, body)
			}); err != nil {
				logger.Warn("notification channel unavailable", zap.String("topic", topic), zap.Error(err))
			}
			go func() {
				tickets.Load(ctx)
				cases.Load(ctx)
				calendar.Load(ctx)
			}()
		} else {
			logger.Warn("stored credential unreadable", zap.Error(err))
		}
	}

	mailClient := mailer.NewClient(cfg.Mailer, logger)
	reminders := scheduler.New(cfg.Scheduler.Interval(), scheduler.Dependencies{
		Calendar:   calendar,
		Mailer:     mailClient,
		Recipient:  func() string { return recipientEmail(creds) },
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	go reminders.Run(ctx)

	aiService := analysis.NewService(ctx, analysis.Config{
		EndpointURL: cfg.AI.EndpointURL,
		APIKey:      cfg.AI.APIKey,
		Timeout:     cfg.AI.Timeout(),
	}, cache, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cache, channel),
		Session:  handlers.NewSessionHandler(remote.NewAccountAPI(restClient, cfg.API.LoginPath), creds, channel, tickets, logger),
		Mail:     handlers.NewMailHandler(mailClient, metrics),
		Analysis: handlers.NewAnalysisHandler(aiService),
		Status:   handlers.NewStatusHandler(tickets, cases, calendar, notices, metrics),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func recipientEmail(creds *auth.CredentialStore) string {
	token, ok := creds.Get()
	if !ok {
		return ""
	}
	claims, err := auth.ParseSessionClaims(token)
	if err != nil {
		return ""
	}
	return claims.Email
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
