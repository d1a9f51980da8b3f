// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/line-replybot/internal/bot"
	"github.com/garyellow/line-replybot/internal/buildinfo"
	"github.com/garyellow/line-replybot/internal/catalog"
	"github.com/garyellow/line-replybot/internal/config"
	"github.com/garyellow/line-replybot/internal/logger"
	"github.com/garyellow/line-replybot/internal/metrics"
	"github.com/garyellow/line-replybot/internal/sentry"
	"github.com/garyellow/line-replybot/internal/webhook"
)

const sentryFlushTimeout = 2 * time.Second

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	selector       *catalog.Selector
	webhookHandler *webhook.Handler
	server         *http.Server
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "line-replybot")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger to enable context value extraction (userID, chatID, requestID)
	// via ContextHandler in package-level slog.*Context() calls.
	slog.SetDefault(log.Logger)

	log.InfoContext(ctx, "Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed; error tracking disabled")
	} else if cfg.SentryEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error tracking enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	c, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	selector := catalog.NewSelector(c)
	m.SetCatalogTriggers(selector.Len())
	source := cfg.CatalogPath
	if source == "" {
		source = "embedded"
	}
	log.WithField("source", source).
		WithField("triggers", selector.Len()).
		WithField("postback_rules", len(c.Postbacks)).
		Info("Reply catalog loaded")

	client, err := messaging_api.NewMessagingApiAPI(
		cfg.ChannelAccessToken,
		messaging_api.WithHTTPClient(&http.Client{Timeout: config.MessagingAPIRequest}),
	)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}

	router, err := bot.NewRouter(bot.RouterConfig{
		Messenger: client,
		Selector:  selector,
		Logger:    log,
		Metrics:   m,
		BotConfig: cfg.Bot,
	})
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: cfg.ChannelSecret,
		Router:        router,
		Logger:        log,
		Metrics:       m,
		BotConfig:     cfg.Bot,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		selector:       selector,
		webhookHandler: webhookHandler,
	}

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// Handler returns the HTTP handler serving every route.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if a.cfg.SentryEnabled() {
		engine.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	engine.Use(securityHeadersMiddleware())
	engine.Use(loggingMiddleware(a.logger))

	engine.GET("/livez", a.livenessCheck)
	engine.HEAD("/livez", a.livenessCheck)
	engine.GET("/readyz", a.readinessCheck)
	engine.HEAD("/readyz", a.readinessCheck)
	engine.POST("/callback", a.webhookHandler.Handle)
	engine.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsAuthEnabled(), a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	return engine
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"catalog": gin.H{
			"triggers": a.selector.Len(),
		},
		"features": gin.H{
			"sentry":       a.cfg.SentryEnabled(),
			"metrics_auth": a.cfg.MetricsAuthEnabled(),
		},
	})
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a server error,
// then shuts down gracefully.
func (a *Application) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case sig := <-quit:
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case serveErr = <-errCh:
		a.logger.WithError(serveErr).Error("HTTP server error")
	}

	if err := a.shutdown(); err != nil {
		return errors.Join(serveErr, err)
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

// shutdown stops accepting requests, waits for in-flight webhook batches,
// then flushes Sentry and the async log sink.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if sentry.IsEnabled() && !sentry.Flush(sentryFlushTimeout) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("logger shutdown: %w", err))
	}
	return errors.Join(errs...)
}
