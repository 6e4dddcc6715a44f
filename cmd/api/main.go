// Package main is the entry point for the messaging API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/internal/cache"
	"github.com/taskhive/messaging-platform/internal/config"
	"github.com/taskhive/messaging-platform/internal/directory"
	"github.com/taskhive/messaging-platform/internal/dispatch"
	"github.com/taskhive/messaging-platform/internal/events"
	"github.com/taskhive/messaging-platform/internal/handler"
	"github.com/taskhive/messaging-platform/internal/middleware"
	natsclient "github.com/taskhive/messaging-platform/internal/nats"
	"github.com/taskhive/messaging-platform/internal/presence"
	"github.com/taskhive/messaging-platform/internal/push"
	"github.com/taskhive/messaging-platform/internal/service"
	"github.com/taskhive/messaging-platform/internal/store/postgres"
	"github.com/taskhive/messaging-platform/pkg/logger"
	"github.com/taskhive/messaging-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting messaging API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "messaging-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to Postgres and apply migrations
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to connect to postgres", zap.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Error("failed to run migrations", zap.Error(err))
		os.Exit(1)
	}

	messageStore := postgres.NewMessageStore(pool)
	notificationStore := postgres.NewNotificationStore(pool)
	userDirectory := directory.NewPostgres(pool)

	// Optional Redis conversation cache
	var convCache *cache.Conversations
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, conversation cache disabled", zap.Error(err))
		} else {
			convCache = cache.NewConversations(rdb)
			defer rdb.Close()
		}
	}

	// Connect to NATS for the business event bus
	nc, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer nc.Close()

	// Push provider and receipt reconciler
	var provider push.Provider
	var reconciler *push.Reconciler
	if cfg.PushEndpoint != "" {
		provider = push.NewExpoClient(cfg.PushEndpoint, cfg.PushAccessToken, log)
		reconciler = push.NewReconciler(provider, cfg.PushReceiptInterval, log)
		go reconciler.Run(ctx)
	}

	// Presence registry, owned by this process; cleared on shutdown.
	registry := presence.NewRegistry()

	// Delivery dispatcher
	dispatcher := dispatch.New(messageStore, notificationStore, registry, userDirectory, dispatch.Options{
		Provider:   provider,
		Reconciler: reconciler,
		ConvCache:  convCache,
	}, log)

	// Bridge offer lifecycle events to notifications
	subscriber := events.NewSubscriber(nc, dispatcher, log)
	stopSubscriber, err := subscriber.Start(ctx)
	if err != nil {
		log.Error("failed to subscribe to offer events", zap.Error(err))
		os.Exit(1)
	}
	defer stopSubscriber()

	// Initialize services
	conversationSvc := service.NewConversationService(messageStore, userDirectory, convCache, log)
	notificationSvc := service.NewNotificationService(notificationStore, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(nc, pool)
	conversationHandler := handler.NewConversationHandler(conversationSvc, dispatcher, log)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, dispatcher, log)
	socketHandler := handler.NewSocketHandler(registry, dispatcher, cfg.JWTSecret, cfg.SendAckTimeout, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Live socket (token-authenticated inside the handler)
	r.Get("/ws", socketHandler.Serve)

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)

			r.Route("/{peerID}", func(r chi.Router) {
				r.Get("/messages", conversationHandler.Messages)
				r.Post("/read", conversationHandler.MarkRead)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Get("/unread-count", notificationHandler.UnreadCount)
			r.Post("/{id}/read", notificationHandler.MarkRead)
			r.Delete("/", notificationHandler.Clear)

			// Producer endpoint for collaborators without NATS access.
			r.With(middleware.RequireScope("notifications:write")).Post("/", notificationHandler.Create)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Stop background work and drop live connections before closing
	// the listener.
	cancel()
	registry.Reset()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
