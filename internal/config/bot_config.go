package config

import (
	"errors"
	"fmt"
	"time"
)

// LINE API limits: https://developers.line.biz/en/reference/messaging-api/
const (
	LINEMaxMessagesPerReply   = 5
	LINEMaxPostbackDataLength = 300
)

// BotConfig holds webhook and reply limits shared by the router and the
// webhook handler.
type BotConfig struct {
	WebhookTimeout      time.Duration // Timeout for a whole webhook batch
	MaxMessagesPerReply int           // LINE API limit: 5
	MaxEventsPerWebhook int           // Events beyond this are not processed
	MaxPostbackDataSize int           // LINE API limit: 300
}

// DefaultBotConfig returns default configuration values.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		WebhookTimeout:      WebhookProcessing,
		MaxMessagesPerReply: LINEMaxMessagesPerReply,
		MaxEventsPerWebhook: 100,
		MaxPostbackDataSize: LINEMaxPostbackDataLength,
	}
}

// Validate checks if the configuration is valid.
func (c BotConfig) Validate() error {
	var errs []error

	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", c.WebhookTimeout))
	} else if c.WebhookTimeout >= WebhookHTTPWrite {
		errs = append(errs, fmt.Errorf("webhook timeout must be below the HTTP write timeout %v, got %v", WebhookHTTPWrite, c.WebhookTimeout))
	}
	if c.MaxMessagesPerReply < 1 || c.MaxMessagesPerReply > LINEMaxMessagesPerReply {
		errs = append(errs, fmt.Errorf("max messages per reply must be 1-%d (LINE API limit), got %d", LINEMaxMessagesPerReply, c.MaxMessagesPerReply))
	}
	if c.MaxEventsPerWebhook < 1 {
		errs = append(errs, fmt.Errorf("max events per webhook must be positive, got %d", c.MaxEventsPerWebhook))
	}
	if c.MaxPostbackDataSize < 1 {
		errs = append(errs, fmt.Errorf("max postback data size must be positive, got %d", c.MaxPostbackDataSize))
	}

	return errors.Join(errs...)
}
