// Package telegram connects the relay to the Telegram Bot API via telego
// long polling. It converts updates into relay messages and implements
// relay.Messenger on top of the bot client.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/relaycat/internal/channels"
	"github.com/nextlevelbuilder/relaycat/internal/config"
	"github.com/nextlevelbuilder/relaycat/internal/relay"
)

// Handler consumes converted updates.
type Handler interface {
	HandleMessage(ctx context.Context, msg *relay.Message)
	HandleCallback(ctx context.Context, cb *relay.Callback)
}

// Channel connects to Telegram via the Bot API using long polling.
type Channel struct {
	*channels.BaseChannel
	bot        *telego.Bot
	config     config.TelegramConfig
	handler    Handler
	pollCancel context.CancelFunc // cancels the long polling context
	pollDone   chan struct{}      // closed when polling and all workers exit
	mu         sync.Mutex
}

// New creates a Telegram channel from config. The handler is attached later
// with SetHandler because the relay needs the channel as its Messenger.
func New(cfg config.TelegramConfig) (*Channel, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	}

	bot, err := telego.NewBot(cfg.Token, telego.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Channel{
		BaseChannel: channels.NewBaseChannel("telegram"),
		bot:         bot,
		config:      cfg,
	}, nil
}

// SetHandler attaches the update consumer. It must be called before Start.
func (c *Channel) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Start begins long polling for Telegram updates.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler == nil {
		return errors.New("telegram: no update handler set")
	}

	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout: c.config.PollTimeout(),
		AllowedUpdates: []string{
			"message",
			"callback_query",
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	c.SetRunning(true)
	slog.Info("telegram bot connected", "username", c.bot.Username(), "workers", c.config.WorkerCount())

	// Register bot menu commands with retry.
	go func() {
		commands := DefaultMenuCommands()
		for attempt := 1; attempt <= 3; attempt++ {
			if err := c.SyncMenuCommands(pollCtx, commands); err != nil {
				slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
				if attempt < 3 {
					select {
					case <-pollCtx.Done():
						return
					case <-time.After(time.Duration(attempt*5) * time.Second):
					}
				}
			} else {
				slog.Info("telegram menu commands synced")
				return
			}
		}
	}()

	d := newDispatcher(c.config.WorkerCount(), c.handler)
	go func() {
		defer close(c.pollDone)
		d.run(pollCtx, updates)
	}()

	return nil
}

// Stop cancels long polling and waits for the poller and in-flight handlers
// to exit, so Telegram releases the getUpdates lock before a new instance starts.
func (c *Channel) Stop(ctx context.Context) error {
	slog.Info("stopping telegram bot")
	c.SetRunning(false)

	c.mu.Lock()
	cancel, done := c.pollCancel, c.pollDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done == nil {
		return nil
	}

	select {
	case <-done:
		slog.Info("telegram bot stopped")
	case <-time.After(10 * time.Second):
		slog.Warn("telegram polling goroutine did not exit within timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
