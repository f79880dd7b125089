package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oklog/ulid/v2"

	"github.com/weinhalle/shop/internal/handlers"
	"github.com/weinhalle/shop/internal/payments"
	"github.com/weinhalle/shop/internal/platform/config"
	pfirestore "github.com/weinhalle/shop/internal/platform/firestore"
	"github.com/weinhalle/shop/internal/platform/observability"
	"github.com/weinhalle/shop/internal/repositories"
	filerepo "github.com/weinhalle/shop/internal/repositories/file"
	firestorerepo "github.com/weinhalle/shop/internal/repositories/firestore"
	"github.com/weinhalle/shop/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("shop")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(startedAt)

	catalogRepo, catalogProbe, closeCatalog, err := newCatalogRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise catalog backend", zap.Error(err))
	}
	defer closeCatalog()

	cartStateRepo, err := filerepo.NewCartStateRepository(cfg.Cart.StateFile)
	if err != nil {
		logger.Fatal("failed to initialise cart state store", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository: catalogRepo,
		Logger:     eventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	catalogHandlers := handlers.NewCatalogHandlers(catalogService)

	cartService, err := services.NewCartService(ctx, services.CartServiceDeps{
		Repository: cartStateRepo,
		Catalog:    catalogService,
		Pricing: services.PricingParams{
			Currency:              cfg.Pricing.Currency,
			Locale:                cfg.Pricing.Locale,
			TaxRate:               cfg.Pricing.TaxRate,
			FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
			FlatShippingFee:       cfg.Pricing.FlatShippingFee,
		},
		Clock:  time.Now,
		Logger: eventLogger(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}
	cartHandlers := handlers.NewCartHandlers(cartService, catalogService)

	paymentGateway, err := newPaymentGateway(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise payment gateway", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Cart:        cartService,
		Catalog:     catalogService,
		Payments:    paymentGateway,
		CaseSize:    cfg.Checkout.CaseSize,
		Currency:    cfg.Pricing.Currency,
		SessionTTL:  cfg.Checkout.SessionTTL,
		Clock:       time.Now,
		Logger:      eventLogger(logger.Named("checkout")),
		IDGenerator: func() string { return ulid.Make().String() },
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}
	checkoutHandlers := handlers.NewCheckoutHandlers(checkoutService)

	healthRepo, err := repositories.NewProbeHealthRepository([]repositories.DependencyProbe{
		{Name: "catalog", Check: catalogProbe},
		{Name: "cart-state", Check: func(ctx context.Context) error {
			_, _, err := cartStateRepo.Load(ctx)
			return err
		}},
	})
	if err != nil {
		logger.Fatal("failed to initialise health probes", zap.Error(err))
	}
	systemService, err := services.NewSystemService(services.SystemServiceDeps{
		Health: healthRepo,
		Logger: eventLogger(logger.Named("system")),
	})
	if err != nil {
		logger.Fatal("failed to initialise system service", zap.Error(err))
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(systemService),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("weinhalle shop api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newCatalogRepository selects the catalog backend from configuration. The
// returned probe feeds the readiness endpoint and the close func releases any
// backend clients.
func newCatalogRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.CatalogRepository, func(context.Context) error, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Catalog.Source)) {
	case "firestore":
		provider := pfirestore.NewProvider(cfg.Catalog)
		if _, err := provider.Client(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		repo, err := firestorerepo.NewCatalogRepository(provider, cfg.Catalog.FirestoreCollection)
		if err != nil {
			return nil, nil, nil, err
		}
		probe := func(ctx context.Context) error {
			_, err := repo.ListEntries(ctx)
			return err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Close(closeCtx); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		}
		return repo, probe, closeFn, nil
	default:
		repo, err := filerepo.NewCatalogRepository(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, nil, nil, err
		}
		probe := func(context.Context) error {
			return repo.Reload()
		}
		return repo, probe, func() {}, nil
	}
}

func newPaymentGateway(cfg config.Config, logger *zap.Logger) (*payments.Gateway, error) {
	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.PSP.StripeAPIKey,
		Logger: payments.StripeLogger(eventLogger(logger.Named("payments"))),
	})
	if err != nil {
		return nil, err
	}
	manager, err := payments.NewManager(map[string]payments.Provider{
		"stripe": stripeProvider,
	})
	if err != nil {
		return nil, err
	}
	return payments.NewGateway(payments.GatewayConfig{
		Manager:    manager,
		SuccessURL: cfg.PSP.SuccessURL,
		CancelURL:  cfg.PSP.CancelURL,
		Locale:     cfg.Pricing.Locale,
	})
}

func eventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("service log", zFields...)
	}
}

func buildInfoFromEnv(started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("SHOP_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("SHOP_BUILD_COMMIT_SHA"))
	environment := strings.TrimSpace(os.Getenv("SHOP_ENVIRONMENT"))
	if environment == "" {
		environment = "dev"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}
