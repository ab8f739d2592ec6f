package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

const confirmEmoji = "👍"

// handleOperator runs commands and replies coming from the operator chat.
// Operator messages never go through the rule engine.
func (r *Relay) handleOperator(ctx context.Context, msg *Message) {
	if cmd, args := parseCommand(msg.Text); cmd != "" {
		r.handleOperatorCommand(ctx, msg, cmd, args)
		return
	}
	if msg.ReplyTo == nil {
		r.send(ctx, msg.ChatID, textReplyHint, SendOptions{ReplyTo: msg.ID})
		return
	}
	r.metrics.Replies.WithLabelValues(r.handleOperatorReply(ctx, msg)).Inc()
}

func (r *Relay) handleOperatorCommand(ctx context.Context, msg *Message, cmd string, args []string) {
	switch cmd {
	case "/ban":
		r.setBanned(ctx, msg, args, true)
	case "/unban", "/allow":
		r.setBanned(ctx, msg, args, false)
	case "/banlist":
		r.sendBanList(ctx, msg.ChatID)
	case "/start":
		r.send(ctx, msg.ChatID, textOperatorStart+"\n\n"+textOperatorHelp, SendOptions{})
	default:
		r.send(ctx, msg.ChatID, textOperatorHelp, SendOptions{})
	}
}

func (r *Relay) handleOperatorReply(ctx context.Context, msg *Message) string {
	target, ok, err := r.resolver.Resolve(ctx, msg.ReplyTo)
	if err != nil {
		slog.Error("relay: resolve reply target failed", "reply_to", msg.ReplyTo.ID, "error", err)
		r.send(ctx, msg.ChatID, textInternalError, SendOptions{ReplyTo: msg.ID})
		return ReplyFailed
	}
	if !ok {
		r.send(ctx, msg.ChatID, textRouteNotFound, SendOptions{ReplyTo: msg.ID})
		return ReplyUnresolved
	}

	if _, err := r.messenger.CopyMessage(ctx, target.UserID, msg.ChatID, msg.ID, target.UserMessageID); err != nil {
		kind := DeliveryKindOf(err)
		slog.Warn("relay: reply delivery failed",
			"user_id", target.UserID,
			"source", target.Source,
			"kind", kind.String(),
			"error", err,
		)
		notice := fmt.Sprintf("❌ Failed to reach user %d: %s", target.UserID, deliveryReason(err))
		if kind == KindForbidden {
			notice += "\n" + textBlockedHint
		}
		r.send(ctx, msg.ChatID, notice, SendOptions{ReplyTo: msg.ID})
		return ReplyFailed
	}

	slog.Info("relay: reply delivered", "user_id", target.UserID, "source", target.Source)

	if store.GetBool(ctx, r.settings, store.SettingConfirmReply, false) {
		if err := r.messenger.SetReaction(ctx, msg.ChatID, msg.ID, confirmEmoji); err != nil {
			slog.Debug("relay: confirm reaction failed", "error", err)
		}
	}
	return ReplyDelivered
}

func deliveryReason(err error) string {
	var de *DeliveryError
	if errors.As(err, &de) && de.Err != nil {
		return de.Err.Error()
	}
	return err.Error()
}

// setBanned handles /ban and /unban. The target comes from a numeric
// argument, or from the replied-to message via the resolver.
func (r *Relay) setBanned(ctx context.Context, msg *Message, args []string, banned bool) {
	usage := "⚠️ Usage: /ban <user_id> or reply to a user message."
	if !banned {
		usage = "⚠️ Usage: /unban <user_id> or reply to a user message."
	}

	targetID, err := r.commandTarget(ctx, msg, args)
	if err != nil {
		slog.Error("relay: resolve command target failed", "error", err)
		r.send(ctx, msg.ChatID, textInternalError, SendOptions{})
		return
	}
	if targetID == 0 {
		r.send(ctx, msg.ChatID, usage, SendOptions{})
		return
	}
	if targetID == r.cfg.OperatorID {
		r.send(ctx, msg.ChatID, "⚠️ You cannot ban yourself.", SendOptions{})
		return
	}

	changed, err := r.users.SetBanned(ctx, targetID, banned)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.send(ctx, msg.ChatID, fmt.Sprintf("⚠️ Unknown user %d.", targetID), SendOptions{})
		return
	case err != nil:
		slog.Error("relay: set banned failed", "user_id", targetID, "banned", banned, "error", err)
		r.send(ctx, msg.ChatID, textInternalError, SendOptions{})
		return
	}

	slog.Info("relay: ban flag updated", "user_id", targetID, "banned", banned, "changed", changed)

	var text string
	switch {
	case banned && changed:
		text = fmt.Sprintf("🔒 User %d has been banned.", targetID)
	case banned:
		text = fmt.Sprintf("User %d is already banned.", targetID)
	case changed:
		text = fmt.Sprintf("✅ User %d has been unbanned.", targetID)
	default:
		text = fmt.Sprintf("User %d is not banned.", targetID)
	}
	r.send(ctx, msg.ChatID, text, SendOptions{})
}

func (r *Relay) commandTarget(ctx context.Context, msg *Message, args []string) (int64, error) {
	if len(args) > 0 {
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}
	if msg.ReplyTo == nil {
		return 0, nil
	}
	target, ok, err := r.resolver.Resolve(ctx, msg.ReplyTo)
	if err != nil || !ok {
		return 0, err
	}
	return target.UserID, nil
}

func (r *Relay) sendBanList(ctx context.Context, chatID int64) {
	users, err := r.users.ListBanned(ctx)
	if err != nil {
		slog.Error("relay: list banned users failed", "error", err)
		r.send(ctx, chatID, textInternalError, SendOptions{})
		return
	}
	if len(users) == 0 {
		r.send(ctx, chatID, "No banned users.", SendOptions{})
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔒 Banned users (%d):\n", len(users))
	for _, u := range users {
		fmt.Fprintf(&b, "• %d", u.ID)
		if u.Username != "" {
			fmt.Fprintf(&b, " @%s", u.Username)
		}
		if name := u.FullName(); name != "" {
			fmt.Fprintf(&b, " (%s)", name)
		}
		b.WriteByte('\n')
	}
	r.send(ctx, chatID, strings.TrimRight(b.String(), "\n"), SendOptions{})
}
