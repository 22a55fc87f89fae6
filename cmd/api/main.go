package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/baanfurniture/storefront-backend/api/routes"
	"github.com/baanfurniture/storefront-backend/internal/cart"
	"github.com/baanfurniture/storefront-backend/internal/customers"
	"github.com/baanfurniture/storefront-backend/internal/notifications"
	"github.com/baanfurniture/storefront-backend/internal/orders"
	"github.com/baanfurniture/storefront-backend/internal/pricing"
	product "github.com/baanfurniture/storefront-backend/internal/products"
	"github.com/baanfurniture/storefront-backend/pkg/config"
	"github.com/baanfurniture/storefront-backend/pkg/db"
	"github.com/baanfurniture/storefront-backend/pkg/logger"
	"github.com/baanfurniture/storefront-backend/pkg/metrics"
	"github.com/baanfurniture/storefront-backend/pkg/migrate"
	"github.com/baanfurniture/storefront-backend/pkg/outbox"
	"github.com/baanfurniture/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "redis disabled, idempotency replay off")
	}

	svcs, err := buildServices(cfg, logg, dbClient, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.Handler(),
			svcs.pricing,
			svcs.cart,
			svcs.orders,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var closeErr error
	closeErr = multierr.Append(closeErr, server.Shutdown(shutdownCtx))
	closeErr = multierr.Append(closeErr, svcs.notifier.Wait(shutdownCtx))
	if redisClient != nil {
		closeErr = multierr.Append(closeErr, redisClient.Close())
	}
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(ctx, "errors during shutdown", closeErr)
		exitCode = 1
	}

	logg.Info(ctx, "api server stopped")
	os.Exit(exitCode)
}

type services struct {
	pricing  pricing.Service
	cart     cart.Service
	orders   orders.Service
	notifier *notifications.PaymentDueNotifier
}

// buildServices wires repositories and domain services over one database
// connection. Order metrics are registered on reg.
func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, reg prometheus.Registerer) (*services, error) {
	conn := dbClient.DB()
	productRepo := product.NewRepository(conn)
	customerRepo := customers.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderMetrics := metrics.NewOrderMetrics(reg)

	pricingService, err := pricing.NewService(productRepo)
	if err != nil {
		return nil, fmt.Errorf("pricing service: %w", err)
	}
	cartService, err := cart.NewService(cartRepo, pricingService, cfg.Pricing.PriceTolerance)
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}
	notifier, err := notifications.NewPaymentDueNotifier(notifications.PaymentDueParams{
		Customers:   customerRepo,
		Mailer:      notifications.NewLogMailer(logg),
		From:        cfg.Notifications.FromEmail,
		SendTimeout: cfg.Notifications.SendTimeout,
		Metrics:     orderMetrics,
		Logger:      logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payment notifier: %w", err)
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:           orders.NewRepository(conn),
		Products:       productRepo,
		Cart:           cartRepo,
		Customers:      customerRepo,
		Tx:             dbClient,
		Outbox:         outbox.NewService(outbox.NewRepository(conn), logg),
		Hooks:          []orders.TransitionHook{notifier},
		Metrics:        orderMetrics,
		VATRate:        cfg.Pricing.VATRate,
		PriceTolerance: cfg.Pricing.PriceTolerance,
		Logger:         logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	return &services{
		pricing:  pricingService,
		cart:     cartService,
		orders:   ordersService,
		notifier: notifier,
	}, nil
}
