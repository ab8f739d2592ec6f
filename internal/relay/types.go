// Package relay implements the anonymizing relay between end users and the
// single operator: the verification gate, the rule engine, reply resolution
// and the per-update orchestration that ties them together.
//
// The package is transport-agnostic. The Telegram adapter converts Bot API
// updates into Message/Callback values and implements Messenger.
package relay

import (
	"context"
	"strings"
)

// ChatPrivate is the chat type of one-to-one conversations with the bot.
const ChatPrivate = "private"

// User is the sender of an inbound message or callback.
type User struct {
	ID        int64
	IsBot     bool
	IsPremium bool
	Username  string
	FirstName string
	LastName  string
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Message is an inbound chat message.
type Message struct {
	ID       int64
	ChatID   int64
	ChatType string
	From     *User
	Text     string
	Caption  string

	// Forwarded is true when the message carries any forward origin.
	Forwarded bool
	// ForwardFromUserID is set when the forward origin is a user who allows linking.
	ForwardFromUserID int64

	ReplyTo *Message
}

// Content returns the text, falling back to the caption.
func (m *Message) Content() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// Callback is an inline keyboard button press.
type Callback struct {
	ID        string
	From      User
	ChatID    int64
	MessageID int64 // 0 when the originating message is no longer accessible
	Data      string
}

// Button is one inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard, row by row.
type Keyboard [][]Button

// SendOptions tunes an outgoing text message.
type SendOptions struct {
	HTML     bool
	ReplyTo  int64 // message id in the destination chat; 0 = not a reply
	Keyboard Keyboard
}

// Messenger is the chat transport the relay drives. Implementations return
// *DeliveryError for failed calls so callers can tell blocked users apart
// from transport trouble.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (int64, error)
	ForwardMessage(ctx context.Context, toChatID, fromChatID, messageID int64) (int64, error)
	// CopyMessage re-sends a message without the forward header. replyTo is
	// a message id in the destination chat; sending proceeds if it is gone.
	CopyMessage(ctx context.Context, toChatID, fromChatID, messageID, replyTo int64) (int64, error)
	EditMessage(ctx context.Context, chatID, messageID int64, text string, kb Keyboard) error
	SetReaction(ctx context.Context, chatID, messageID int64, emoji string) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// Limiter throttles inbound traffic per sender.
type Limiter interface {
	Allow(key string) bool
}
