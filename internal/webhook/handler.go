// Package webhook provides the LINE webhook endpoint: signature checking,
// batch fan-out to the event router, and the per-event result response.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"golang.org/x/sync/errgroup"

	"github.com/garyellow/line-replybot/internal/bot"
	"github.com/garyellow/line-replybot/internal/config"
	"github.com/garyellow/line-replybot/internal/ctxutil"
	apperrors "github.com/garyellow/line-replybot/internal/errors"
	"github.com/garyellow/line-replybot/internal/logger"
	"github.com/garyellow/line-replybot/internal/metrics"
	"github.com/garyellow/line-replybot/internal/sentry"
)

// EventHandler handles one webhook event. *bot.Router satisfies it.
type EventHandler interface {
	Handle(ctx context.Context, event webhook.EventInterface) bot.Result
}

// Handler handles LINE webhook requests
type Handler struct {
	channelSecret string
	router        EventHandler
	metrics       *metrics.Metrics
	logger        *logger.Logger

	webhookTimeout      time.Duration
	maxEventsPerWebhook int
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret string
	Router        EventHandler
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	BotConfig     config.BotConfig
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	switch {
	case cfg.ChannelSecret == "":
		return nil, errors.New("webhook: channel secret is required")
	case cfg.Router == nil:
		return nil, errors.New("webhook: router is required")
	case cfg.Logger == nil:
		return nil, errors.New("webhook: logger is required")
	}

	timeout := cfg.BotConfig.WebhookTimeout
	if timeout <= 0 {
		timeout = config.WebhookProcessing
	}
	maxEvents := cfg.BotConfig.MaxEventsPerWebhook
	if maxEvents <= 0 {
		maxEvents = config.DefaultBotConfig().MaxEventsPerWebhook
	}

	return &Handler{
		channelSecret:       cfg.ChannelSecret,
		router:              cfg.Router,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger.WithModule("webhook"),
		webhookTimeout:      timeout,
		maxEventsPerWebhook: maxEvents,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint.
// It answers only after every event in the batch has been handled, with one
// result per event in input order.
func (h *Handler) Handle(c *gin.Context) {
	// 1. Parse and verify the request
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.WithError(fmt.Errorf("%w: %w", apperrors.ErrTransportRejected, err)).
				WarnContext(c.Request.Context(), "Invalid webhook signature")
			h.metrics.RecordHTTPError("invalid_signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).ErrorContext(c.Request.Context(), "Failed to parse webhook request")
			h.metrics.RecordHTTPError("malformed_body")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// 2. Process events under the webhook timeout, detached from the client connection
	ctx, cancel := context.WithTimeout(ctxutil.PreserveTracing(c.Request.Context()), h.webhookTimeout)
	defer cancel()

	start := time.Now()
	results := h.process(ctx, cb.Events)
	h.metrics.RecordBatch(len(cb.Events))

	h.logger.WithField("event_count", len(cb.Events)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		DebugContext(ctx, "Webhook batch processed")

	// 3. Respond with per-event results
	c.JSON(http.StatusOK, results)
}

// process runs each event in its own goroutine and collects results by index.
func (h *Handler) process(ctx context.Context, events []webhook.EventInterface) []bot.Result {
	results := make([]bot.Result, len(events))

	var g errgroup.Group
	for i, event := range events {
		if i >= h.maxEventsPerWebhook {
			results[i] = bot.Result{
				EventType: bot.EventType(event),
				Status:    bot.StatusIgnored,
				Error:     fmt.Sprintf("event limit exceeded: only the first %d events are processed", h.maxEventsPerWebhook),
			}
			continue
		}

		g.Go(func() error {
			results[i] = h.handleEvent(ctx, event)
			return nil
		})
	}
	_ = g.Wait()

	if len(events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).
			WithField("limit", h.maxEventsPerWebhook).
			WarnContext(ctx, "Too many events in webhook batch; extra events ignored")
	}

	return results
}

// handleEvent isolates a panic to the event that raised it.
func (h *Handler) handleEvent(ctx context.Context, event webhook.EventInterface) (result bot.Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			eventType := bot.EventType(event)
			h.logger.WithField("event_type", eventType).
				WithError(err).
				ErrorContext(ctx, "Panic while handling event")
			sentry.CaptureEventError(ctx, eventType, err)
			h.metrics.RecordWebhook(eventType, string(bot.StatusFailed), 0)
			result = bot.Result{
				EventType: eventType,
				Status:    bot.StatusFailed,
				Error:     err.Error(),
			}
		}
	}()

	return h.router.Handle(ctx, event)
}
