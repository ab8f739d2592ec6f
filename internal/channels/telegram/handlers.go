package telegram

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/relaycat/internal/channels"
)

// dispatcher fans updates out to a fixed set of workers. Updates are sharded
// by chat id so one chat is always handled by the same worker, in order.
type dispatcher struct {
	handler Handler
	queues  []chan telego.Update
}

func newDispatcher(workers int, h Handler) *dispatcher {
	if workers <= 0 {
		workers = 1
	}
	d := &dispatcher{handler: h, queues: make([]chan telego.Update, workers)}
	for i := range d.queues {
		d.queues[i] = make(chan telego.Update, 64)
	}
	return d
}

// run consumes updates until ctx is done or the source closes, then drains
// the worker queues and returns once every worker has exited.
func (d *dispatcher) run(ctx context.Context, updates <-chan telego.Update) {
	var wg sync.WaitGroup
	for _, q := range d.queues {
		wg.Add(1)
		go func(q chan telego.Update) {
			defer wg.Done()
			for u := range q {
				d.handle(ctx, u)
			}
		}(q)
	}

	defer func() {
		for _, q := range d.queues {
			close(q)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				slog.Info("telegram updates channel closed")
				return
			}
			key, ok := shardKey(update)
			if !ok {
				slog.Debug("telegram update skipped", "update_id", update.UpdateID)
				continue
			}
			select {
			case d.queues[shardIndex(key, len(d.queues))] <- update:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (d *dispatcher) handle(ctx context.Context, update telego.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("telegram update handler panicked",
				"update_id", update.UpdateID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	switch {
	case update.Message != nil:
		msg := toMessage(update.Message)
		slog.Debug("telegram message received",
			"chat_id", msg.ChatID,
			"chat_type", msg.ChatType,
			"message_id", msg.ID,
			"text_preview", channels.Truncate(msg.Content(), 60),
		)
		d.handler.HandleMessage(ctx, msg)
	case update.CallbackQuery != nil:
		d.handler.HandleCallback(ctx, toCallback(update.CallbackQuery))
	}
}

// shardKey returns the chat an update belongs to.
func shardKey(update telego.Update) (int64, bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, true
	}
	return 0, false
}

func shardIndex(key int64, n int) int {
	if key < 0 {
		key = -key
	}
	return int(key % int64(n))
}
