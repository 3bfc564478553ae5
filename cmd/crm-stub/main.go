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
	"github.com/salescrm/crm-portal/internal/domain"
	"github.com/salescrm/crm-portal/internal/observability"
	"github.com/salescrm/crm-portal/internal/repository"
	"github.com/salescrm/crm-portal/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "crm-stub")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	authService := service.NewAuthService(cfg.Stub, service.AuthDependencies{
		UserRepo:          repository.NewUserRepository(),
		RefreshTokenRepo:  repository.NewRefreshTokenRepository(),
		PasswordResetRepo: repository.NewPasswordResetRepository(),
		Logger:            logger,
	})

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	err = authService.SeedAccount(seedCtx, domain.RegisterInput{
		Email:     cfg.Stub.SeedAdminEmail,
		Password:  cfg.Stub.SeedAdminPassword,
		FirstName: "Admin",
		LastName:  "User",
		Role:      domain.RoleAdmin,
	})
	cancelSeed()
	if err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}
	logger.Info("seeded admin account", zap.String("email", cfg.Stub.SeedAdminEmail))

	app := fiber.New(fiber.Config{AppName: "crm-stub", DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)

	httptransport.RegisterStubRoutes(app, httptransport.StubRouteConfig{
		Health: handlers.NewHealthHandler("crm-stub", cfg.App.Version, nil),
		Auth:   handlers.NewCRMAuthHandler(authService),
		Bearer: auth.NewBearerMiddleware(authService.TokenManager()),
	})

	go func() {
		if err := app.Listen(cfg.Stub.Addr()); err != nil {
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
