package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmlink/farmlink-backend/internal/config"
	"github.com/farmlink/farmlink-backend/internal/db"
	"github.com/farmlink/farmlink-backend/internal/goroutine"
	"github.com/farmlink/farmlink-backend/internal/http/handlers"
	"github.com/farmlink/farmlink-backend/internal/http/router"
	"github.com/farmlink/farmlink-backend/internal/logger"
	"github.com/farmlink/farmlink-backend/internal/repository"
	"github.com/farmlink/farmlink-backend/internal/service"
	"github.com/farmlink/farmlink-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.Init(getLogLevel(cfg.Env))
	if cfg.Env != "production" {
		logger.SetTextFormatter()
	}
	log := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("не удалось подключиться к базе: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn, cfg.MigrationsPath); err != nil {
		log.Fatalf("не удалось применить миграции: %v", err)
	}

	// Репозитории
	userRepo := repository.NewUserRepository(conn)
	productRepo := repository.NewProductRepository(conn)
	contactRepo := repository.NewContactRequestRepository(conn)
	notificationRepo := repository.NewNotificationRepository(conn)

	// Сервисы
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo)
	contactService := service.NewContactRequestService(contactRepo, productRepo, int(cfg.ContactDailyLimit))
	sweeper := service.NewExpirySweeper(contactRepo, cfg.ConfirmationWindow, cfg.SweepInterval)

	// WebSocket hub: доставляет события онлайн-клиентам и сохраняет их в БД.
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	goroutine.SafeGo(hub.Run)

	contactService.SetNotifier(hub)
	sweeper.SetNotifier(hub)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// HTTP
	h := router.Handlers{
		Auth:          handlers.NewAuthHandler(authService),
		ContactReq:    handlers.NewContactRequestHandler(contactService),
		Admin:         handlers.NewAdminHandler(contactService),
		Products:      handlers.NewProductHandler(productRepo),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Health:        handlers.NewHealthHandler(conn),
		WS:            handlers.NewWSHandler(hub, tokenManager),
	}

	engine := router.SetupRouter(cfg, h, tokenManager)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	goroutine.SafeGo(func() {
		log.Infof("сервер запущен на порту %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("сервер завершился с ошибкой: %v", err)
		}
	})

	<-ctx.Done()
	log.Info("получен сигнал завершения, останавливаем сервер")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("не удалось корректно остановить сервер: %v", err)
	}
}

func getLogLevel(env string) string {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		return lvl
	}
	if env == "production" {
		return "info"
	}
	return "debug"
}
