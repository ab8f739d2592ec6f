package telegram

import (
	"testing"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/relaycat/internal/relay"
)

func TestToMessage(t *testing.T) {
	m := &telego.Message{
		MessageID: 10,
		Chat:      telego.Chat{ID: 42, Type: telego.ChatTypePrivate},
		From:      &telego.User{ID: 42, Username: "ann", FirstName: "Ann", IsPremium: true},
		Caption:   "photo caption",
		ReplyToMessage: &telego.Message{
			MessageID:      5,
			Text:           "ID: 7",
			ReplyToMessage: &telego.Message{MessageID: 1},
		},
	}

	got := toMessage(m)
	if got.ID != 10 || got.ChatID != 42 || got.ChatType != relay.ChatPrivate {
		t.Errorf("ids = %+v", got)
	}
	if got.From == nil || got.From.Username != "ann" || !got.From.IsPremium {
		t.Errorf("from = %+v", got.From)
	}
	if got.Content() != "photo caption" {
		t.Errorf("content = %q", got.Content())
	}
	if got.Forwarded {
		t.Error("plain message marked forwarded")
	}
	if got.ReplyTo == nil || got.ReplyTo.ID != 5 || got.ReplyTo.Text != "ID: 7" {
		t.Fatalf("reply = %+v", got.ReplyTo)
	}
	if got.ReplyTo.ReplyTo != nil {
		t.Error("reply chain converted beyond one level")
	}
	if m.ReplyToMessage.ReplyToMessage == nil {
		t.Error("source message was mutated")
	}
}

func TestToMessageForwardOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  telego.MessageOrigin
		fwd     bool
		fromUID int64
	}{
		{"none", nil, false, 0},
		{"user", &telego.MessageOriginUser{SenderUser: telego.User{ID: 99}}, true, 99},
		{"hidden user", &telego.MessageOriginHiddenUser{SenderUserName: "anon"}, true, 0},
		{"channel", &telego.MessageOriginChannel{Chat: telego.Chat{ID: -100}}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toMessage(&telego.Message{MessageID: 1, ForwardOrigin: tt.origin})
			if got.Forwarded != tt.fwd || got.ForwardFromUserID != tt.fromUID {
				t.Errorf("forwarded=%v from=%d, want %v %d", got.Forwarded, got.ForwardFromUserID, tt.fwd, tt.fromUID)
			}
		})
	}
}

func TestToCallback(t *testing.T) {
	q := &telego.CallbackQuery{
		ID:      "cb1",
		From:    telego.User{ID: 42, FirstName: "Ann"},
		Message: &telego.Message{MessageID: 7, Chat: telego.Chat{ID: 42}},
		Data:    "verify:abc:🍎",
	}
	got := toCallback(q)
	if got.ID != "cb1" || got.From.ID != 42 || got.ChatID != 42 || got.MessageID != 7 || got.Data != q.Data {
		t.Errorf("callback = %+v", got)
	}

	q.Message = nil
	got = toCallback(q)
	if got.MessageID != 0 || got.ChatID != 42 {
		t.Errorf("callback without message = %+v", got)
	}
}

func TestToMarkup(t *testing.T) {
	if toMarkup(nil) != nil {
		t.Error("nil keyboard should produce nil markup")
	}

	kb := relay.Keyboard{
		{{Text: "🍎", Data: "verify:x:🍎"}, {Text: "🍌", Data: "verify:x:🍌"}},
		{{Text: "🍇", Data: "verify:x:🍇"}},
	}
	m := toMarkup(kb)
	if m == nil || len(m.InlineKeyboard) != 2 || len(m.InlineKeyboard[0]) != 2 {
		t.Fatalf("markup = %+v", m)
	}
	if b := m.InlineKeyboard[1][0]; b.Text != "🍇" || b.CallbackData != "verify:x:🍇" {
		t.Errorf("button = %+v", b)
	}
}
