// Package bot routes LINE webhook events to canned replies.
//
// The Router resolves each event to a reply payload through a Selector,
// sends it once through an injected Messenger, and reports the outcome as a
// Result. It holds no per-event state and is safe for concurrent use.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/line-replybot/internal/config"
	"github.com/garyellow/line-replybot/internal/ctxutil"
	apperrors "github.com/garyellow/line-replybot/internal/errors"
	"github.com/garyellow/line-replybot/internal/logger"
	"github.com/garyellow/line-replybot/internal/metrics"
	"github.com/garyellow/line-replybot/internal/sentry"
)

// Messenger sends outbound messages. *messaging_api.MessagingApiAPI satisfies it.
type Messenger interface {
	ReplyMessage(replyMessageRequest *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
	PushMessage(pushMessageRequest *messaging_api.PushMessageRequest, xLineRetryKey string) (*messaging_api.PushMessageResponse, error)
}

// Selector picks canned payloads. *catalog.Selector satisfies it.
type Selector interface {
	Select(text string) ([]messaging_api.MessageInterface, error)
	Acknowledge(kind string) ([]messaging_api.MessageInterface, error)
	MatchPostback(values url.Values) ([]messaging_api.MessageInterface, bool, error)
	PostbackFallback() []messaging_api.MessageInterface
}

// Status is the outcome of handling one event.
type Status string

const (
	StatusReplied Status = "replied" // reply sent
	StatusSkipped Status = "skipped" // loopback test event
	StatusIgnored Status = "ignored" // nothing to send
	StatusFailed  Status = "failed"  // resolve or delivery error
)

// Result reports what happened to one inbound event.
type Result struct {
	EventType string `json:"event_type"`
	Status    Status `json:"status"`
	Messages  int    `json:"messages"`
	Error     string `json:"error,omitempty"`
}

// Router dispatches events by kind and message content kind.
type Router struct {
	messenger Messenger
	selector  Selector
	logger    *logger.Logger
	metrics   *metrics.Metrics

	maxMessagesPerReply int
	maxPostbackDataSize int
}

// RouterConfig holds configuration for creating a new Router.
type RouterConfig struct {
	Messenger Messenger
	Selector  Selector
	Logger    *logger.Logger
	Metrics   *metrics.Metrics // optional
	BotConfig config.BotConfig
}

// NewRouter creates a Router. Messenger, Selector and Logger are required.
func NewRouter(cfg RouterConfig) (*Router, error) {
	switch {
	case cfg.Messenger == nil:
		return nil, errors.New("router: messenger is required")
	case cfg.Selector == nil:
		return nil, errors.New("router: selector is required")
	case cfg.Logger == nil:
		return nil, errors.New("router: logger is required")
	}

	maxMessages := cfg.BotConfig.MaxMessagesPerReply
	if maxMessages <= 0 {
		maxMessages = config.LINEMaxMessagesPerReply
	}

	return &Router{
		messenger:           cfg.Messenger,
		selector:            cfg.Selector,
		logger:              cfg.Logger.WithModule("router"),
		metrics:             cfg.Metrics,
		maxMessagesPerReply: maxMessages,
		maxPostbackDataSize: cfg.BotConfig.MaxPostbackDataSize,
	}, nil
}

// Handle resolves an event, sends its reply at most once, and reports the outcome.
func (r *Router) Handle(ctx context.Context, event webhook.EventInterface) Result {
	start := time.Now()
	meta := extractEventMeta(event)
	ctx = withEventContext(ctx, meta)

	result := r.handle(ctx, event, meta)
	r.metrics.RecordWebhook(result.EventType, string(result.Status), time.Since(start).Seconds())

	log := r.logger.WithField("event_type", result.EventType).
		WithField("status", string(result.Status)).
		WithField("messages", result.Messages).
		WithField("duration_ms", time.Since(start).Milliseconds())
	if meta.redelivery != nil {
		log = log.WithField("is_redelivery", *meta.redelivery)
	}
	log.InfoContext(ctx, "Event processed")

	return result
}

func (r *Router) handle(ctx context.Context, event webhook.EventInterface, meta eventMeta) Result {
	result := Result{EventType: meta.kind}

	if isLoopbackToken(meta.replyToken) {
		r.logger.WithField("event_type", meta.kind).
			WithField("message_type", messageType(event)).
			InfoContext(ctx, "Test hook received")
		r.metrics.RecordLoopback()
		result.Status = StatusSkipped
		return result
	}

	if meta.kind != "message" && meta.kind != "postback" {
		r.logger.WithField("event_type", meta.kind).DebugContext(ctx, "Unsupported event type")
		result.Status = StatusIgnored
		return result
	}

	r.logger.WithField("source_type", SourceKind(meta.source)).DebugContext(ctx, "Event received")

	messages, err := r.Resolve(ctx, event)
	if err != nil {
		r.logger.WithError(err).ErrorContext(ctx, "Failed to resolve event")
		sentry.CaptureEventError(ctx, meta.kind, err)
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}

	if len(messages) == 0 {
		result.Status = StatusIgnored
		return result
	}

	if len(messages) > r.maxMessagesPerReply {
		r.logger.WithField("message_count", len(messages)).
			WithField("limit", r.maxMessagesPerReply).
			WarnContext(ctx, "Message count exceeds limit; truncating")
		messages = messages[:r.maxMessagesPerReply]
	}

	if meta.replyToken == "" {
		r.logger.DebugContext(ctx, "Empty reply token, skipping reply")
		result.Status = StatusIgnored
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("reply not sent: %v", err)
		return result
	}

	if _, err := r.messenger.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: meta.replyToken,
		Messages:   messages,
	}); err != nil {
		deliveryErr := apperrors.NewDeliveryError(meta.kind, err)
		r.metrics.RecordReplySend("error")
		r.logger.WithError(deliveryErr).ErrorContext(ctx, "Failed to send reply")
		sentry.CaptureEventError(ctx, meta.kind, deliveryErr)
		result.Status = StatusFailed
		result.Error = deliveryErr.Error()
		return result
	}

	r.metrics.RecordReplySend("success")
	result.Status = StatusReplied
	result.Messages = len(messages)
	return result
}

// Resolve selects the reply payload for an event without sending anything.
// Unsupported event kinds resolve to no messages.
func (r *Router) Resolve(ctx context.Context, event webhook.EventInterface) ([]messaging_api.MessageInterface, error) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return r.resolveMessage(ctx, e)
	case webhook.PostbackEvent:
		return r.resolvePostback(ctx, e)
	default:
		return nil, nil
	}
}

func (r *Router) resolveMessage(ctx context.Context, e webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	switch m := e.Message.(type) {
	case webhook.TextMessageContent:
		return r.selector.Select(m.Text)
	case webhook.ImageMessageContent:
		return r.acknowledge(ctx, "image")
	case webhook.VideoMessageContent:
		return r.acknowledge(ctx, "video")
	case webhook.AudioMessageContent:
		return r.acknowledge(ctx, "audio")
	case webhook.StickerMessageContent:
		return r.acknowledge(ctx, "sticker")
	case webhook.LocationMessageContent:
		r.logger.WithFields(map[string]any{
			"title":     m.Title,
			"address":   m.Address,
			"latitude":  m.Latitude,
			"longitude": m.Longitude,
		}).InfoContext(ctx, "Location received")
		return r.acknowledge(ctx, "location")
	case nil:
		return nil, apperrors.NewUnrecognizedContentKindError("")
	default:
		return nil, apperrors.NewUnrecognizedContentKindError(m.GetType())
	}
}

func (r *Router) acknowledge(ctx context.Context, kind string) ([]messaging_api.MessageInterface, error) {
	messages, err := r.selector.Acknowledge(kind)
	if err != nil {
		return nil, fmt.Errorf("acknowledge %s: %w", kind, err)
	}
	if len(messages) == 0 {
		r.logger.WithField("message_type", kind).InfoContext(ctx, "No acknowledgement configured")
	}
	return messages, nil
}

func (r *Router) resolvePostback(ctx context.Context, e webhook.PostbackEvent) ([]messaging_api.MessageInterface, error) {
	var data string
	if e.Postback != nil {
		data = e.Postback.Data
	}

	values, err := ParsePostbackData(data, r.maxPostbackDataSize)
	if err != nil {
		r.logger.WithError(err).WarnContext(ctx, "Malformed postback data; sending fallback")
		return r.selector.PostbackFallback(), nil
	}

	messages, ok, err := r.selector.MatchPostback(values)
	if err != nil {
		return nil, fmt.Errorf("postback rule: %w", err)
	}
	if ok {
		return messages, nil
	}

	return []messaging_api.MessageInterface{
		&messaging_api.TextMessage{Text: FormatPostbackDiagnostic(values)},
	}, nil
}

// Push sends the payload selected for text to userID. Each call uses a new
// retry key, so a failed push is never deduplicated against a later one.
func (r *Router) Push(ctx context.Context, userID, text string) error {
	if userID == "" {
		return apperrors.NewValidationError("user_id", "must not be empty")
	}

	messages, err := r.selector.Select(text)
	if err != nil {
		return fmt.Errorf("select payload: %w", err)
	}
	if len(messages) > r.maxMessagesPerReply {
		messages = messages[:r.maxMessagesPerReply]
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx = ctxutil.WithUserID(ctx, userID)
	retryKey := uuid.NewString()
	if _, err := r.messenger.PushMessage(&messaging_api.PushMessageRequest{
		To:       userID,
		Messages: messages,
	}, retryKey); err != nil {
		r.metrics.RecordReplySend("error")
		deliveryErr := apperrors.NewDeliveryError("push", err)
		r.logger.WithError(deliveryErr).ErrorContext(ctx, "Failed to push message")
		return deliveryErr
	}

	r.metrics.RecordReplySend("success")
	r.logger.WithField("messages", len(messages)).
		WithField("retry_key", retryKey).
		InfoContext(ctx, "Message pushed")
	return nil
}

// isLoopbackToken reports whether a reply token is a console test token:
// non-empty and made of one repeated character.
func isLoopbackToken(token string) bool {
	if token == "" {
		return false
	}
	first, size := utf8.DecodeRuneInString(token)
	for _, r := range token[size:] {
		if r != first {
			return false
		}
	}
	return true
}

func messageType(event webhook.EventInterface) string {
	if e, ok := event.(webhook.MessageEvent); ok && e.Message != nil {
		return e.Message.GetType()
	}
	return ""
}

func withEventContext(ctx context.Context, meta eventMeta) context.Context {
	if meta.eventID != "" {
		ctx = ctxutil.WithEventID(ctx, meta.eventID)
	}
	if userID := GetUserID(meta.source); userID != "" {
		ctx = ctxutil.WithUserID(ctx, userID)
	}
	if chatID := GetChatID(meta.source); chatID != "" {
		ctx = ctxutil.WithChatID(ctx, chatID)
	}
	return ctx
}
