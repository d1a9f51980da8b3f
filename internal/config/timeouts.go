// Package config provides centralized timeout constants for the application.
//
// LINE expects the webhook to be acknowledged quickly and reply tokens are
// only valid for a short time, so canned replies are sent inline before the
// 200 response is written.
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing bounds the handling of a whole webhook batch,
	// including every ReplyMessage call.
	WebhookProcessing = 30 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Should be short since LINE sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	// Should accommodate WebhookProcessing + response serialization.
	WebhookHTTPWrite = 35 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Outbound timeouts
const (
	// MessagingAPIRequest is the HTTP client timeout for a single call to the
	// Messaging API. The SDK methods take no context, so this is the only
	// bound on a stuck send.
	MessagingAPIRequest = 10 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
