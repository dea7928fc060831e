package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"freight-backoffice/internal/config"
	"freight-backoffice/internal/database"
	"freight-backoffice/internal/event"
	"freight-backoffice/internal/handler"
	"freight-backoffice/internal/logger"
	"freight-backoffice/internal/metrics"
	"freight-backoffice/internal/middleware"
	"freight-backoffice/internal/model"
	"freight-backoffice/internal/repository"
	"freight-backoffice/internal/router"
	"freight-backoffice/internal/service"
	"freight-backoffice/internal/session"
	"freight-backoffice/internal/storage"
	"freight-backoffice/internal/websocket"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))

	store, err := storage.New(cfg.UploadRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if _, err := session.NewCodec(cfg.JWTSecret, cfg.SessionTTL, cfg.CookieSecure); err != nil {
		return nil, fmt.Errorf("failed to initialize session codec: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	var appMetrics *metrics.Metrics
	if cfg.MetricsEnabled {
		appMetrics = metrics.New()
		if err := appMetrics.RegisterPool(db.Pool); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to register pool metrics: %w", err)
		}
	}

	bus, closeBus, err := newBus(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	appRouter, subscribers := NewHandler(cfg, db, store, bus, appMetrics)
	slog.Info("database ready")

	subscriberCtx, stopSubscriber := context.WithCancel(context.Background())
	subscriberDone := make(chan struct{})
	go func() {
		defer close(subscriberDone)
		subscribers.Run(subscriberCtx)
	}()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				stopSubscriber()
				<-subscriberDone
			},
			closeBus,
			func() {
				db.Close()
			},
		},
	}, nil
}

// Subscribers are the background consumers behind the HTTP handler.
type Subscribers struct {
	bus           event.Bus
	notifications *service.NotificationService
	hub           *websocket.Hub
}

// Run blocks until ctx is done.
func (s *Subscribers) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		s.notifications.Run(ctx, s.bus)
	}()
	wg.Wait()
}

// NewHandler wires repositories, services and handlers over db. The caller
// runs the returned subscribers.
func NewHandler(cfg *config.Config, db *database.DB, store *storage.Storage, bus event.Bus, appMetrics *metrics.Metrics) (http.Handler, *Subscribers) {
	pool := db.Pool
	identityRepo := repository.NewIdentityRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)
	loadRepo := repository.NewLoadRepository(pool)
	walletRepo := repository.NewWalletRepository(pool)
	callRepo := repository.NewCallRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	codec := mustCodec(cfg)
	policy := service.UploadPolicy{MaxBytes: cfg.MaxUploadSize, AllowedMIME: cfg.AllowedMIMETypes}

	auditService := service.NewAuditService(auditRepo)
	identityService := service.NewIdentityService(identityRepo)
	authService := service.NewAuthService(identityRepo, accountRepo, codec, auditService)
	adminService := service.NewAdminService(identityRepo, auditService)
	accountService := service.NewAccountService(accountRepo, identityRepo, store, policy, bus, auditService)
	loadService := service.NewLoadService(loadRepo, accountRepo, bus, auditService)
	walletService := service.NewWalletService(walletRepo, accountRepo, store, policy, bus, auditService)
	callService := service.NewCallService(callRepo, identityRepo, store, policy, auditService)
	notificationService := service.NewNotificationService(notificationRepo, identityRepo, bus, auditService)
	hub := websocket.NewHub()
	notificationService.SetPusher(hub)

	authMiddleware := middleware.NewAuthMiddleware(codec, identityService, codec, appMetrics)

	routes := router.New(cfg, authMiddleware, router.Handlers{
		Health:        handler.NewHealthHandler(db),
		Auth:          handler.NewAuthHandler(authService, accountService, codec),
		Admins:        handler.NewAdminHandler(adminService),
		Vendors:       handler.NewAccountHandler(accountService, model.RoleVendor),
		Customers:     handler.NewAccountHandler(accountService, model.RoleCustomer),
		Loads:         handler.NewLoadHandler(loadService),
		Wallet:        handler.NewWalletHandler(walletService),
		Calls:         handler.NewCallHandler(callService, cfg.MaxUploadSize),
		Notifications: handler.NewNotificationHandler(notificationService),
		Stream:        handler.NewStreamHandler(hub, cfg.CORSOrigins),
		Portal:        handler.NewPortalHandler(accountService, loadService, walletService, cfg.MaxUploadSize),
		Audit:         handler.NewAuditHandler(auditService),
	}, appMetrics)

	return routes, &Subscribers{bus: bus, notifications: notificationService, hub: hub}
}

// mustCodec panics on a config that Validate should already have rejected.
func mustCodec(cfg *config.Config) *session.Codec {
	codec, err := session.NewCodec(cfg.JWTSecret, cfg.SessionTTL, cfg.CookieSecure)
	if err != nil {
		panic(fmt.Sprintf("session codec: %v", err))
	}
	return codec
}

// newBus uses Redis pub/sub when REDIS_ADDR is set so events reach the
// subscribers of every instance.
func newBus(cfg *config.Config) (event.Bus, func(), error) {
	if cfg.RedisAddr == "" {
		return event.NewBus(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("event bus using redis", "addr", cfg.RedisAddr)
	return event.NewRedisBus(client, event.DefaultChannel), func() { _ = client.Close() }, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
