// Package main pushes a catalog payload to a single user.
//
// Usage:
//
//	push <user-id> <text>
//
// The payload is whatever the bot would reply to <text>: a catalog trigger's
// parts, or the text itself when nothing matches.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/line-replybot/internal/bot"
	"github.com/garyellow/line-replybot/internal/catalog"
	"github.com/garyellow/line-replybot/internal/config"
	"github.com/garyellow/line-replybot/internal/logger"
)

// newMessenger is replaced in tests.
var newMessenger = func(token string) (bot.Messenger, error) {
	return messaging_api.NewMessagingApiAPI(
		token,
		messaging_api.WithHTTPClient(&http.Client{Timeout: config.MessagingAPIRequest}),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out io.Writer) int {
	if len(args) != 2 || args[0] == "" || args[1] == "" {
		_, _ = fmt.Fprintln(out, "usage: push <user-id> <text>")
		return 2
	}
	userID, text := args[0], args[1]

	cfg, err := config.LoadForMode(config.PushMode)
	if err != nil {
		_, _ = fmt.Fprintf(out, "Failed to load config: %v\n", err)
		return 1
	}

	log := logger.NewWithWriter(cfg.LogLevel, out).WithModule("push")
	defer func() { _ = log.Shutdown(context.Background()) }()

	c, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.WithError(err).Error("Failed to load catalog")
		return 1
	}

	messenger, err := newMessenger(cfg.ChannelAccessToken)
	if err != nil {
		log.WithError(err).Error("Failed to create messaging API client")
		return 1
	}

	router, err := bot.NewRouter(bot.RouterConfig{
		Messenger: messenger,
		Selector:  catalog.NewSelector(c),
		Logger:    log,
		BotConfig: cfg.Bot,
	})
	if err != nil {
		log.WithError(err).Error("Failed to create router")
		return 1
	}

	if err := router.Push(ctx, userID, text); err != nil {
		log.WithError(err).Error("Push failed")
		return 1
	}
	return 0
}
