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

	httptransport "github.com/salescrm/crm-portal/internal/api/http"
	"github.com/salescrm/crm-portal/internal/api/http/handlers"
	"github.com/salescrm/crm-portal/internal/auth"
	"github.com/salescrm/crm-portal/internal/config"
	"github.com/salescrm/crm-portal/internal/crmapi"
	"github.com/salescrm/crm-portal/internal/events"
	"github.com/salescrm/crm-portal/internal/gateway"
	"github.com/salescrm/crm-portal/internal/observability"
	"github.com/salescrm/crm-portal/internal/persistence"
	"github.com/salescrm/crm-portal/internal/service"
	"github.com/salescrm/crm-portal/internal/store"
	"github.com/salescrm/crm-portal/internal/worker"
)

const auditCapacity = 200

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "portal")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, closeBackend, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open session backend", zap.Error(err))
	}
	defer closeBackend()

	metrics := observability.NewMetrics()
	tokenStore := store.NewTokenStore(backend, cfg.Session.StorageKey, logger.Named("store"))

	gw := gateway.New(cfg.API.BaseURL, cfg.API.Timeout(), tokenStore,
		gateway.WithLogger(logger.Named("gateway")),
		gateway.WithMetrics(metrics),
		gateway.WithNavigator(func(path string) {
			logger.Info("navigation requested", zap.String("path", path))
		}),
	)

	dispatcher := events.NewInMemoryDispatcher(logger)
	auditService := service.NewAuditService(dispatcher, logger.Named("audit"), auditCapacity)
	worker.StartAuditWorker(auditService)

	sessionService := service.NewSessionService(service.SessionDependencies{
		Store:      tokenStore,
		API:        crmapi.NewAuthAPI(gw),
		Dispatcher: dispatcher,
		Logger:     logger.Named("session"),
	})
	gw.UseRefresher(sessionService)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	// a guarded call may carry a refresh and a retry on top of the original request
	httptransport.RegisterMiddlewares(app, logger, metrics, 3*cfg.API.Timeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"session_" + cfg.Session.Backend: backend,
		}),
		Session: handlers.NewSessionHandler(sessionService),
		Workspace: handlers.NewWorkspaceHandler(crmapi.NewResources(gw), handlers.SettingsView{
			APIBaseURL:     cfg.API.BaseURL,
			SessionBackend: cfg.Session.Backend,
			StorageKey:     cfg.Session.StorageKey,
			RequestTimeout: cfg.API.Timeout(),
			Version:        cfg.App.Version,
		}),
		Audit: handlers.NewAuditHandler(auditService),
		Guard: auth.NewGuard(tokenStore),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	go restoreSession(ctx, logger, tokenStore, sessionService)

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(5 * time.Second)
	logger.Info("gateway counters", zap.Any("metrics", metrics.Snapshot()))
}

// restoreSession hydrates the store and revalidates a restored profile.
func restoreSession(ctx context.Context, logger *zap.Logger, tokenStore *store.TokenStore, session *service.SessionService) {
	if err := tokenStore.Hydrate(ctx); err != nil {
		logger.Warn("starting without a restored session", zap.Error(err))
		return
	}
	if tokenStore.Snapshot().HasTokens() {
		_ = session.FetchCurrentUser(ctx)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
