package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/grocerycart/config"
	"github.com/rookgm/grocerycart/internal/auth"
	"github.com/rookgm/grocerycart/internal/gateway/stripe"
	handler "github.com/rookgm/grocerycart/internal/handler/http"
	"github.com/rookgm/grocerycart/internal/logger"
	"github.com/rookgm/grocerycart/internal/middleware"
	"github.com/rookgm/grocerycart/internal/notify"
	"github.com/rookgm/grocerycart/internal/repository"
	"github.com/rookgm/grocerycart/internal/repository/memory"
	"github.com/rookgm/grocerycart/internal/repository/postgres"
	"github.com/rookgm/grocerycart/internal/service"
	"github.com/rookgm/grocerycart/internal/worker"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// storage groups the repositories the services are built on
type storage struct {
	tx        service.Transactor
	products  service.ProductRepository
	orders    service.OrderRepository
	addresses service.AddressRepository
	users     service.UserRepository
	close     func()
}

// newStorage opens postgres when dsn is set, otherwise the in-memory store
func newStorage(ctx context.Context, dsn string) (*storage, error) {
	if dsn == "" {
		logger.Log.Warn("database DSN is empty, using in-memory store")
		store := memory.New()
		return &storage{
			tx:        store,
			products:  store,
			orders:    store,
			addresses: store,
			users:     store,
			close:     func() {},
		}, nil
	}

	db, err := postgres.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	// migrate database
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return &storage{
		tx:        db,
		products:  repository.NewProductRepository(db),
		orders:    repository.NewOrderRepository(db),
		addresses: repository.NewAddressRepository(db),
		users:     repository.NewUserRepository(db),
		close:     db.Close,
	}, nil
}

// newChannel picks the notification transport: a queue, SMTP or the log
func newChannel(ctx context.Context, cfg *config.Config) (notify.Channel, error) {
	switch {
	case cfg.NotifyQueueURL != "":
		return notify.NewSQSChannelFromEnv(ctx, cfg.NotifyQueueURL)
	case cfg.SMTPHost != "":
		return notify.NewSMTPChannel(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	logger.Log.Warn("no mail transport configured, notifications are logged")
	return notify.NewLogChannel(logger.Log), nil
}

func main() {
	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStorage(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Log.Fatal("Error initializing storage", zap.Error(err))
	}
	defer store.close()

	tokenKey, err := hex.DecodeString(cfg.AuthTokenKey)
	if err != nil {
		logger.Log.Fatal("Error extracting token key", zap.Error(err))
	}
	token := auth.NewAuthToken(tokenKey)

	channel, err := newChannel(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Error initializing notification channel", zap.Error(err))
	}
	dispatcher := notify.NewDispatcher(channel, cfg.NotifyQueueSize)
	stopDispatcher := dispatcher.Start(cfg.NotifyWorkers)

	if cfg.StripeSecretKey == "" {
		logger.Log.Warn("stripe secret key is empty, online payments will fail")
	}
	gateway := stripe.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.Currency)

	// dependency injection
	ledger := service.NewInventoryLedger(store.products, dispatcher, cfg.SellerEmail)
	pricing := service.NewPricingEngine(store.products, cfg.TaxRate)
	addresses := service.NewAddressResolver(store.addresses)
	payments := service.NewPaymentDispatcher(store.tx, store.orders, store.users, addresses, ledger, gateway, dispatcher)

	orderService := service.NewOrderService(store.orders, store.users, store.products, addresses, pricing, payments,
		cfg.AllowGuestOnline)
	statusService := service.NewStatusService(store.tx, store.orders, store.users, ledger, dispatcher, cfg.SellerEmail)
	reconciler := service.NewPaymentReconciler(store.tx, store.orders, store.users, ledger, gateway, dispatcher)
	authService := service.NewAuthService(token, cfg.SellerEmail, cfg.SellerPasswordHash)

	orderHandler := handler.NewOrderHandler(orderService, statusService)
	webhookHandler := handler.NewWebhookHandler(reconciler)
	authHandler := handler.NewAuthHandler(authService)
	productHandler := handler.NewProductHandler(ledger)

	router := chi.NewRouter()

	router.Use(middleware.Logging(logger.Log))

	router.Post("/stripe", webhookHandler.StripeWebhook())
	router.Get("/api/track/{orderId}", orderHandler.TrackOrder())
	router.Post("/api/seller/login", authHandler.LoginSeller())
	router.Get("/api/seller/logout", authHandler.LogoutSeller())

	// guests and signed in users
	router.Group(func(group chi.Router) {
		group.Use(handler.OptionalAuth(token))
		group.Post("/api/order/cod", orderHandler.PlaceOrderCOD())
		group.Post("/api/order/stripe", orderHandler.PlaceOrderOnline())
		group.Put("/api/order/cancel/{orderId}", orderHandler.CancelOrder())
	})

	// routes that require authentication
	router.Group(func(group chi.Router) {
		group.Use(handler.AuthMiddleware(token))
		group.Get("/api/order/user", orderHandler.ListUserOrders())
	})

	// seller routes
	router.Group(func(group chi.Router) {
		group.Use(handler.SellerOnly(token))
		group.Get("/api/order/seller", orderHandler.ListSellerOrders())
		group.Put("/api/order/update-status/{orderId}", orderHandler.UpdateStatus())
		group.Post("/api/product/stock", productHandler.UpdateStock())
		group.Put("/api/seller/update-product-inventory/{productId}", productHandler.UpdateInventory())
	})

	var wg sync.WaitGroup
	if cfg.PendingOrderTTL > 0 {
		reaper := worker.NewPendingReaper(statusService, cfg.PendingOrderTTL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			reaper.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Running server", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Error starting server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Error shutting down server", zap.Error(err))
	}
	wg.Wait()

	// flush notifications queued by the last requests
	if err := stopDispatcher(shutdownCtx); err != nil {
		logger.Log.Error("Error stopping notification dispatcher", zap.Error(err))
	}
}
