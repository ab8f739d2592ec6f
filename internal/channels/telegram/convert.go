package telegram

import (
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/relaycat/internal/relay"
)

func toUser(u *telego.User) *relay.User {
	if u == nil {
		return nil
	}
	return &relay.User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		IsPremium: u.IsPremium,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// toMessage converts a telego message. The replied-to message is converted
// one level deep; that is all the resolver inspects.
func toMessage(m *telego.Message) *relay.Message {
	if m == nil {
		return nil
	}
	msg := &relay.Message{
		ID:       int64(m.MessageID),
		ChatID:   m.Chat.ID,
		ChatType: m.Chat.Type,
		From:     toUser(m.From),
		Text:     m.Text,
		Caption:  m.Caption,
	}
	if m.ForwardOrigin != nil {
		msg.Forwarded = true
		if origin, ok := m.ForwardOrigin.(*telego.MessageOriginUser); ok {
			msg.ForwardFromUserID = origin.SenderUser.ID
		}
	}
	if m.ReplyToMessage != nil {
		reply := *m.ReplyToMessage
		reply.ReplyToMessage = nil
		msg.ReplyTo = toMessage(&reply)
	}
	return msg
}

// toCallback converts a callback query. MessageID stays 0 when the keyboard
// message is no longer accessible to the bot.
func toCallback(q *telego.CallbackQuery) *relay.Callback {
	cb := &relay.Callback{
		ID:     q.ID,
		From:   *toUser(&q.From),
		ChatID: q.From.ID,
		Data:   q.Data,
	}
	if q.Message != nil && q.Message.IsAccessible() {
		cb.ChatID = q.Message.GetChat().ID
		cb.MessageID = int64(q.Message.GetMessageID())
	}
	return cb
}

func toMarkup(kb relay.Keyboard) *telego.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]telego.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Data))
		}
		rows = append(rows, tu.InlineKeyboardRow(buttons...))
	}
	return tu.InlineKeyboard(rows...)
}
