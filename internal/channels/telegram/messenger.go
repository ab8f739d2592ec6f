package telegram

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/relaycat/internal/relay"
)

var _ relay.Messenger = (*Channel)(nil)

// SendMessage sends a text message and returns its id.
func (c *Channel) SendMessage(ctx context.Context, chatID int64, text string, opts relay.SendOptions) (int64, error) {
	params := tu.Message(tu.ID(chatID), text)
	if opts.HTML {
		params.ParseMode = telego.ModeHTML
	}
	if opts.ReplyTo != 0 {
		params.ReplyParameters = replyTo(opts.ReplyTo)
	}
	if markup := toMarkup(opts.Keyboard); markup != nil {
		params.ReplyMarkup = markup
	}

	sent, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, classify("sendMessage", err)
	}
	return int64(sent.MessageID), nil
}

// ForwardMessage forwards a message with its "forwarded from" header.
func (c *Channel) ForwardMessage(ctx context.Context, to, from, messageID int64) (int64, error) {
	sent, err := c.bot.ForwardMessage(ctx, &telego.ForwardMessageParams{
		ChatID:     tu.ID(to),
		FromChatID: tu.ID(from),
		MessageID:  int(messageID),
	})
	if err != nil {
		return 0, classify("forwardMessage", err)
	}
	return int64(sent.MessageID), nil
}

// CopyMessage re-sends a message without the forward header, so the
// recipient never learns who sent it.
func (c *Channel) CopyMessage(ctx context.Context, to, from, messageID, replyToID int64) (int64, error) {
	params := &telego.CopyMessageParams{
		ChatID:     tu.ID(to),
		FromChatID: tu.ID(from),
		MessageID:  int(messageID),
	}
	if replyToID != 0 {
		params.ReplyParameters = replyTo(replyToID)
	}

	id, err := c.bot.CopyMessage(ctx, params)
	if err != nil {
		return 0, classify("copyMessage", err)
	}
	return int64(id.MessageID), nil
}

// EditMessage replaces the text and keyboard of a message. A nil keyboard
// removes the existing one.
func (c *Channel) EditMessage(ctx context.Context, chatID, messageID int64, text string, kb relay.Keyboard) error {
	_, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:      tu.ID(chatID),
		MessageID:   int(messageID),
		Text:        text,
		ReplyMarkup: toMarkup(kb),
	})
	return classify("editMessageText", err)
}

// SetReaction puts a single emoji reaction on a message.
func (c *Channel) SetReaction(ctx context.Context, chatID, messageID int64, emoji string) error {
	err := c.bot.SetMessageReaction(ctx, &telego.SetMessageReactionParams{
		ChatID:    tu.ID(chatID),
		MessageID: int(messageID),
		Reaction: []telego.ReactionType{
			&telego.ReactionTypeEmoji{Type: telego.ReactionEmoji, Emoji: emoji},
		},
	})
	return classify("setMessageReaction", err)
}

// AnswerCallback acknowledges a keyboard press, optionally with a toast or alert.
func (c *Channel) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	return classify("answerCallbackQuery", err)
}

func replyTo(messageID int64) *telego.ReplyParameters {
	return &telego.ReplyParameters{
		MessageID:                int(messageID),
		AllowSendingWithoutReply: true,
	}
}
