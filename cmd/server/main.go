// Package main provides the TinyVault bot server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tinyvault/tinyvault-go/internal/admin"
	"github.com/tinyvault/tinyvault-go/internal/bot"
	"github.com/tinyvault/tinyvault-go/internal/buildinfo"
	"github.com/tinyvault/tinyvault-go/internal/config"
	"github.com/tinyvault/tinyvault-go/internal/logger"
	"github.com/tinyvault/tinyvault-go/internal/metrics"
	"github.com/tinyvault/tinyvault-go/internal/ratelimit"
	"github.com/tinyvault/tinyvault-go/internal/sentry"
	"github.com/tinyvault/tinyvault-go/internal/storage"
	"github.com/tinyvault/tinyvault-go/internal/telegram"
	"github.com/tinyvault/tinyvault-go/internal/webhook"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	log.WithField("version", buildinfo.Version).Info("Starting TinyVault Server")

	// Initialize Sentry (no-op without a DSN)
	if err := sentry.Initialize(sentry.Config{
		DSN:     cfg.SentryDSN,
		Release: buildinfo.Version,
	}); err != nil {
		log.WithError(err).Warn("Failed to initialize Sentry, continuing without it")
	}
	defer sentry.Flush(2 * time.Second)

	// Connect to database
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	// Create Prometheus registry with standard collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())

	m := metrics.New(registry)
	log.Info("Metrics initialized")

	// Create the interaction engine
	processor := bot.NewProcessor(bot.ProcessorConfig{
		Users:     db,
		Items:     db,
		Logger:    log.WithModule("engine"),
		Metrics:   m,
		BotConfig: cfg.Bot,
	})
	log.Info("Interaction engine created")

	// Per-user rate limiter
	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:       "user",
		Burst:      cfg.Bot.UserRateLimitBurst,
		RefillRate: cfg.Bot.UserRateLimitRefillPerSec,
		Metrics:    m,
	})
	defer userLimiter.Stop()

	// Create the Telegram delivery channel
	sender, err := telegram.NewSender(cfg.TelegramBotToken, log.WithModule("telegram"), m)
	if err != nil {
		log.WithError(err).Fatal("Failed to create Telegram sender")
	}
	log.WithField("bot_username", sender.BotUsername()).Info("Telegram sender created")

	// Create HTTP handlers
	webhookHandler := webhook.NewHandler(webhook.HandlerConfig{
		BotToken:      cfg.TelegramBotToken,
		WebhookSecret: cfg.WebhookSecret,
		Processor:     processor,
		Sender:        sender,
		UserLimiter:   userLimiter,
		Logger:        log.WithModule("webhook"),
		Metrics:       m,
	})
	adminHandler := admin.NewHandler(db, cfg.AdminAPIKey, log.WithModule("admin"))

	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	if sentry.IsEnabled() {
		router.Use(sentry.GinMiddleware())
	}

	setupRoutes(router, cfg, webhookHandler, adminHandler, db, registry)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start background jobs
	jobs := new(errgroup.Group)

	jobs.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Panic in dedup sweep goroutine")
			}
		}()
		sweepDedup(ctx, processor, log)
		return nil
	})

	jobs.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Panic in size metrics goroutine")
			}
		}()
		updateSizeMetrics(ctx, db, processor, m, log)
		return nil
	})

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Stop background goroutines
	cancel()

	goDone := make(chan struct{})
	go func() {
		_ = jobs.Wait()
		close(goDone)
	}()

	select {
	case <-goDone:
		log.Info("All background goroutines stopped")
	case <-time.After(5 * time.Second):
		log.Warn("Timeout waiting for goroutines to stop")
	}

	// Shutdown server gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
