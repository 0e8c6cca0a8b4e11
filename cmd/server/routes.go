// Package main provides the TinyVault bot server entry point.
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tinyvault/tinyvault-go/internal/admin"
	"github.com/tinyvault/tinyvault-go/internal/buildinfo"
	"github.com/tinyvault/tinyvault-go/internal/config"
	"github.com/tinyvault/tinyvault-go/internal/storage"
	"github.com/tinyvault/tinyvault-go/internal/webhook"
)

// setupRoutes configures all HTTP routes
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	webhookHandler *webhook.Handler,
	adminHandler *admin.Handler,
	db *storage.DB,
	registry *prometheus.Registry,
) {
	// Root endpoint - service identity
	rootHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "tinyvault",
			"version": buildinfo.Version,
		})
	}
	router.GET("/", rootHandler)
	router.HEAD("/", rootHandler)

	// Liveness probe - only confirms the process is serving, never
	// touches dependencies
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	// Readiness probe - full dependency check
	readyHandler := func(c *gin.Context) {
		if err := db.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}

		userCount, _ := db.CountUsers(c.Request.Context())
		itemCount, _ := db.CountItems(c.Request.Context())

		c.JSON(http.StatusOK, gin.H{
			"status":   "ready",
			"database": "connected",
			"counts": gin.H{
				"users": userCount,
				"items": itemCount,
			},
		})
	}
	router.GET("/ready", readyHandler)
	router.HEAD("/ready", readyHandler)

	// Telegram webhook endpoint; the bot token in the path is validated
	// by the handler itself
	router.POST("/telegram/webhook/:token", webhookHandler.Handle)

	// Admin API (404s unless ADMIN_API_KEY is configured)
	adminHandler.Register(router.Group("/admin"))

	// Prometheus metrics endpoint, Basic Auth when a password is configured
	metricsAuthEnabled := cfg.MetricsPassword != ""
	router.GET("/metrics",
		metricsAuthMiddleware(metricsAuthEnabled, cfg.MetricsUsername, cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}
