package telegram

import (
	"context"
	"log/slog"

	"github.com/mymmrac/telego"
)

// SyncMenuCommands registers bot commands with Telegram via setMyCommands.
// Operator commands go to the operator's chat scope only.
func (c *Channel) SyncMenuCommands(ctx context.Context, commands []telego.BotCommand) error {
	if err := c.bot.DeleteMyCommands(ctx, nil); err != nil {
		slog.Debug("deleteMyCommands failed (may not exist)", "error", err)
	}

	if len(commands) > 100 {
		commands = commands[:100]
	}
	if len(commands) > 0 {
		if err := c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
			return err
		}
	}

	if c.config.OperatorID == 0 {
		return nil
	}
	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: OperatorMenuCommands(),
		Scope: &telego.BotCommandScopeChat{
			Type:   telego.ScopeTypeChat,
			ChatID: telego.ChatID{ID: c.config.OperatorID},
		},
	})
}

// DefaultMenuCommands returns the commands shown to users.
func DefaultMenuCommands() []telego.BotCommand {
	return []telego.BotCommand{
		{Command: "start", Description: "Verify yourself or check your status"},
		{Command: "help", Description: "Show how this bot works"},
	}
}

// OperatorMenuCommands returns the commands shown in the operator's chat.
func OperatorMenuCommands() []telego.BotCommand {
	return []telego.BotCommand{
		{Command: "ban", Description: "Ban a user (id or reply)"},
		{Command: "unban", Description: "Lift a ban (id or reply)"},
		{Command: "banlist", Description: "List banned users"},
		{Command: "help", Description: "Show operator help"},
	}
}
