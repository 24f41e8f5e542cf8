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

	"go.uber.org/zap"

	"github.com/merchforge/api/internal/catalog"
	"github.com/merchforge/api/internal/handlers"
	"github.com/merchforge/api/internal/platform/config"
	"github.com/merchforge/api/internal/platform/llm"
	"github.com/merchforge/api/internal/platform/observability"
	"github.com/merchforge/api/internal/services"
)

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")

	cfg, err := config.Load()
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	model := newModelClient(logger, cfg.LLM)

	inventory, err := catalog.Inventory()
	if err != nil {
		logger.Fatal("failed to load inventory", zap.Error(err))
	}
	capabilities, err := catalog.LoadCapabilities()
	if err != nil {
		logger.Fatal("failed to load capabilities", zap.Error(err))
	}

	validator, err := services.NewValidator(services.ValidatorDeps{
		TextMaxLength: cfg.Limits.TextMaxLength,
		MinQuantity:   cfg.Limits.MinQuantity,
		MaxQuantity:   cfg.Limits.MaxQuantity,
	})
	if err != nil {
		logger.Fatal("failed to initialise validator", zap.Error(err))
	}

	conversationEngine, err := services.NewConversationEngine(services.ConversationEngineDeps{
		Model:     model,
		Validator: validator,
		Logger:    logger.Named("conversation"),
	})
	if err != nil {
		logger.Fatal("failed to initialise conversation engine", zap.Error(err))
	}

	designService, err := services.NewDesignService(services.DesignServiceDeps{
		Model:  model,
		Logger: logger.Named("design"),
	})
	if err != nil {
		logger.Fatal("failed to initialise design service", zap.Error(err))
	}

	discoverEngine, err := services.NewDiscoverEngine(services.DiscoverEngineDeps{
		Model:     model,
		Inventory: inventory,
		Logger:    logger.Named("discover"),
	})
	if err != nil {
		logger.Fatal("failed to initialise discover engine", zap.Error(err))
	}

	commerceStore, err := services.NewCommerceStore(services.CommerceStoreDeps{
		Inventory:    inventory,
		Currency:     cfg.Commerce.Currency,
		DeliveryDays: cfg.Commerce.DeliveryEstimateDays,
		Logger:       logger.Named("commerce"),
	})
	if err != nil {
		logger.Fatal("failed to initialise commerce store", zap.Error(err))
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		PrintFee:     cfg.Commerce.PrintFee,
		Currency:     cfg.Commerce.Currency,
		DeliveryDays: cfg.Commerce.DeliveryEstimateDays,
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	chatHandlers, err := handlers.NewChatHandlers(handlers.ChatHandlersDeps{
		Engine:     conversationEngine,
		RateLimit:  cfg.RateLimits.ChatPerWindow,
		RateWindow: cfg.RateLimits.Window,
	})
	if err != nil {
		logger.Fatal("failed to initialise chat handlers", zap.Error(err))
	}
	designHandlers, err := handlers.NewDesignHandlers(handlers.DesignHandlersDeps{
		Designs: designService,
	})
	if err != nil {
		logger.Fatal("failed to initialise design handlers", zap.Error(err))
	}
	discoverHandlers, err := handlers.NewDiscoverHandlers(handlers.DiscoverHandlersDeps{
		Engine:     discoverEngine,
		RateLimit:  cfg.RateLimits.ChatPerWindow,
		RateWindow: cfg.RateLimits.Window,
	})
	if err != nil {
		logger.Fatal("failed to initialise discover handlers", zap.Error(err))
	}
	catalogHandlers, err := handlers.NewCatalogHandlers(handlers.CatalogHandlersDeps{
		Inventory: inventory,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog handlers", zap.Error(err))
	}
	cartHandlers, err := handlers.NewCartHandlers(handlers.CartHandlersDeps{
		Carts: cartService,
	})
	if err != nil {
		logger.Fatal("failed to initialise cart handlers", zap.Error(err))
	}
	commerceHandlers, err := handlers.NewCommerceHandlers(handlers.CommerceHandlersDeps{
		Store: commerceStore,
	})
	if err != nil {
		logger.Fatal("failed to initialise commerce handlers", zap.Error(err))
	}
	wellKnownHandlers, err := handlers.NewWellKnownHandlers(handlers.WellKnownHandlersDeps{
		Capabilities: capabilities,
		ProductsFeed: catalog.ProductsFeed(),
	})
	if err != nil {
		logger.Fatal("failed to initialise well-known handlers", zap.Error(err))
	}
	healthHandlers := handlers.NewHealthHandlers(handlers.HealthDeps{})

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithChatRoutes(chatHandlers.Routes),
		handlers.WithDesignRoutes(designHandlers.Routes),
		handlers.WithDiscoverRoutes(discoverHandlers.Routes),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCommerceRoutes(commerceHandlers.Routes),
		handlers.WithWellKnownRoutes(wellKnownHandlers.Routes),
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
		serverLogger.Info("merchforge api listening")
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

// newModelClient builds the LLM client from configuration. A misconfigured or
// unreachable backend degrades to the deterministic keyword path instead of
// failing startup.
func newModelClient(logger *zap.Logger, cfg config.LLMConfig) llm.Client {
	client, err := llm.NewClient(llm.Config{
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		BaseURL:       cfg.BaseURL,
		APIKey:        cfg.APIKey,
		Timeout:       cfg.Timeout,
		MaxRetries:    cfg.MaxRetries,
		RetryDelay:    cfg.RetryDelay,
		ForceGenerate: cfg.ForceGenerate,
		Logger:        logger.Named("llm"),
	})
	if err != nil {
		logger.Warn("model client unavailable; running keyword-only",
			zap.String("provider", cfg.Provider),
			zap.Error(err))
		return nil
	}
	logger.Info("model client ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model))
	return client
}
