package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

const testOperator int64 = 1

type harness struct {
	relay    *Relay
	msgr     *fakeMessenger
	users    *memUsers
	rules    *memRules
	routes   *memRoutes
	settings *memSettings
	metrics  *Metrics
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		msgr:     newFakeMessenger(),
		users:    newMemUsers(),
		rules:    &memRules{},
		routes:   &memRoutes{},
		settings: &memSettings{values: map[string]string{store.SettingConfirmReply: "true"}},
		metrics:  NewMetrics(nil),
	}
	seq := 0
	gen := &ChallengeGenerator{
		IntN: func(int) int { return 0 }, // target and every cell = Symbols[0]
		NewID: func() string {
			seq++
			return fmt.Sprintf("c%d", seq)
		},
	}
	opts = append([]Option{WithMetrics(h.metrics), WithChallengeGenerator(gen)}, opts...)
	h.relay = New(Config{OperatorID: testOperator}, h.msgr, &store.Stores{
		Users:    h.users,
		Rules:    h.rules,
		Routes:   h.routes,
		Settings: h.settings,
	}, opts...)
	return h
}

func userMessage(userID, msgID int64, text string) *Message {
	return &Message{
		ID:       msgID,
		ChatID:   userID,
		ChatType: ChatPrivate,
		From:     &User{ID: userID, Username: fmt.Sprintf("user%d", userID), FirstName: "Test"},
		Text:     text,
	}
}

func operatorMessage(msgID int64, text string, replyTo *Message) *Message {
	return &Message{
		ID:       msgID,
		ChatID:   testOperator,
		ChatType: ChatPrivate,
		From:     &User{ID: testOperator},
		Text:     text,
		ReplyTo:  replyTo,
	}
}

func (h *harness) verifiedUser(id int64) {
	h.users.put(store.User{ID: id, Username: fmt.Sprintf("user%d", id), Verified: true})
}

func TestUnverifiedUserGetsChallenge(t *testing.T) {
	h := newHarness(t)
	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "hello"))

	msgs := h.msgr.sentTo(42)
	if len(msgs) != 1 {
		t.Fatalf("user got %d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, Symbols[0]) || len(msgs[0].Opts.Keyboard) != 3 {
		t.Errorf("challenge message = %+v", msgs[0])
	}
	if len(h.msgr.sentTo(testOperator)) != 0 || len(h.msgr.forwards) != 0 {
		t.Error("unverified message reached the operator")
	}
	if _, ok := h.relay.Challenges().Get(42); !ok {
		t.Error("challenge not stored")
	}
	if got := testutil.ToFloat64(h.metrics.Inbound.WithLabelValues(OutcomeUnverified)); got != 1 {
		t.Errorf("unverified counter = %v", got)
	}
}

func TestStartGreetsVerifiedUser(t *testing.T) {
	h := newHarness(t)
	h.verifiedUser(42)
	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "/start"))

	m, ok := h.msgr.lastSentTo(42)
	if !ok || m.Text != textGreeting {
		t.Errorf("reply = %+v, want greeting", m)
	}
}

func TestHelpForUser(t *testing.T) {
	h := newHarness(t)
	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "/help"))

	m, ok := h.msgr.lastSentTo(42)
	if !ok || m.Text != textUserHelp {
		t.Errorf("reply = %+v, want help", m)
	}
}

func TestVerificationFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.relay.HandleMessage(ctx, userMessage(42, 10, "/start"))

	c, _ := h.relay.Challenges().Get(42)

	// Wrong symbol: fresh challenge, still unverified.
	h.relay.HandleCallback(ctx, &Callback{ID: "cb1", From: User{ID: 42}, ChatID: 42, MessageID: 1001, Data: CallbackData(c.ID, Symbols[1])})
	u, _ := h.users.Get(ctx, 42)
	if u.Verified {
		t.Fatal("wrong answer verified the user")
	}
	next, ok := h.relay.Challenges().Get(42)
	if !ok || next.ID == c.ID {
		t.Fatalf("wrong answer did not issue a fresh challenge: %+v", next)
	}
	if len(h.msgr.edits) != 1 || len(h.msgr.edits[0].Keyboard) != 3 {
		t.Fatalf("prompt not re-rendered: %+v", h.msgr.edits)
	}

	// Stale id from the first prompt: expired.
	h.relay.HandleCallback(ctx, &Callback{ID: "cb2", From: User{ID: 42}, ChatID: 42, MessageID: 1001, Data: CallbackData(c.ID, Symbols[0])})
	u, _ = h.users.Get(ctx, 42)
	if u.Verified {
		t.Fatal("stale challenge verified the user")
	}
	if last := h.msgr.answers[len(h.msgr.answers)-1]; last.Text != textExpired || !last.Alert {
		t.Errorf("stale answer = %+v", last)
	}

	// Correct symbol on the live challenge.
	h.relay.HandleCallback(ctx, &Callback{ID: "cb3", From: User{ID: 42}, ChatID: 42, MessageID: 1001, Data: CallbackData(next.ID, next.Target)})
	u, _ = h.users.Get(ctx, 42)
	if !u.Verified {
		t.Fatal("correct answer did not verify the user")
	}
	if _, ok := h.relay.Challenges().Get(42); ok {
		t.Error("challenge kept after success")
	}
	lastEdit := h.msgr.edits[len(h.msgr.edits)-1]
	if lastEdit.Text != textVerified || lastEdit.Keyboard != nil {
		t.Errorf("success edit = %+v", lastEdit)
	}

	if got := testutil.ToFloat64(h.metrics.Challenges.WithLabelValues(ChallengePassed)); got != 1 {
		t.Errorf("passed counter = %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.Challenges.WithLabelValues(ChallengeFailed)); got != 1 {
		t.Errorf("failed counter = %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.Challenges.WithLabelValues(ChallengeExpired)); got != 1 {
		t.Errorf("expired counter = %v", got)
	}
}

func TestVerificationIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(42)

	// An already verified user can still hold a challenge, e.g. from an old prompt.
	c := h.relay.Challenges().Put(Challenge{ID: "old", UserID: 42, Target: Symbols[0]})
	h.relay.HandleCallback(ctx, &Callback{ID: "cb", From: User{ID: 42}, ChatID: 42, MessageID: 5, Data: CallbackData(c.ID, c.Target)})

	if last := h.msgr.answers[len(h.msgr.answers)-1]; last.Text != textAlreadyVerified {
		t.Errorf("answer = %+v, want already verified", last)
	}
	if got := testutil.ToFloat64(h.metrics.Challenges.WithLabelValues(ChallengeRepeated)); got != 1 {
		t.Errorf("already_verified counter = %v", got)
	}
}

func TestDoubleTapOnCorrectAnswer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.relay.HandleMessage(ctx, userMessage(42, 10, "hello"))
	c, _ := h.relay.Challenges().Get(42)
	data := CallbackData(c.ID, c.Target)

	h.relay.HandleCallback(ctx, &Callback{ID: "cb1", From: User{ID: 42}, ChatID: 42, MessageID: 5, Data: data})
	h.relay.HandleCallback(ctx, &Callback{ID: "cb2", From: User{ID: 42}, ChatID: 42, MessageID: 5, Data: data})

	if len(h.msgr.answers) != 2 {
		t.Fatalf("answers = %+v", h.msgr.answers)
	}
	if first := h.msgr.answers[0]; first.Text != textVerified {
		t.Errorf("first answer = %+v", first)
	}
	if second := h.msgr.answers[1]; second.Text != textAlreadyVerified || second.Alert {
		t.Errorf("second answer = %+v, want already verified without alert", second)
	}
	if last := h.msgr.edits[len(h.msgr.edits)-1]; last.Text != textVerified || len(last.Keyboard) != 0 {
		t.Errorf("last edit = %+v, want verified text without keyboard", last)
	}
	if got := testutil.ToFloat64(h.metrics.Challenges.WithLabelValues(ChallengeRepeated)); got != 1 {
		t.Errorf("already_verified counter = %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.Challenges.WithLabelValues(ChallengeExpired)); got != 0 {
		t.Errorf("expired counter = %v", got)
	}
}

func TestCallbackUserLookupFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.relay.HandleMessage(ctx, userMessage(42, 10, "hello"))
	c, _ := h.relay.Challenges().Get(42)
	h.users.getErr = errors.New("db down")

	h.relay.HandleCallback(ctx, &Callback{ID: "cb", From: User{ID: 42}, ChatID: 42, MessageID: 5, Data: CallbackData(c.ID, c.Target)})

	if len(h.msgr.answers) != 1 || h.msgr.answers[0].Text != textInternalError || !h.msgr.answers[0].Alert {
		t.Errorf("answers = %+v", h.msgr.answers)
	}
	h.users.getErr = nil
	if u, _ := h.users.Get(ctx, 42); u.Verified {
		t.Error("user verified despite store failure")
	}
	if _, ok := h.relay.Challenges().Get(42); !ok {
		t.Error("challenge dropped on store failure")
	}
}

func TestCallbackWithoutChallengeExpires(t *testing.T) {
	h := newHarness(t)
	h.relay.HandleCallback(context.Background(), &Callback{ID: "cb", From: User{ID: 42}, ChatID: 42, MessageID: 5, Data: "verify:nope:" + Symbols[0]})

	if len(h.msgr.answers) != 1 || h.msgr.answers[0].Text != textExpired {
		t.Errorf("answers = %+v", h.msgr.answers)
	}
	if len(h.msgr.edits) != 0 {
		t.Error("expired callback edited the prompt")
	}
}

func TestCallbackInaccessibleMessageSendsNewPrompt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.relay.HandleMessage(ctx, userMessage(42, 10, "hi"))
	c, _ := h.relay.Challenges().Get(42)

	h.relay.HandleCallback(ctx, &Callback{ID: "cb", From: User{ID: 42}, Data: CallbackData(c.ID, c.Target)})

	m, ok := h.msgr.lastSentTo(42)
	if !ok || m.Text != textVerified {
		t.Errorf("last message = %+v, want verified text", m)
	}
}

func TestForeignCallbackIgnored(t *testing.T) {
	h := newHarness(t)
	h.relay.HandleCallback(context.Background(), &Callback{ID: "cb", From: User{ID: 42}, Data: "something:else"})
	if len(h.msgr.answers) != 1 || h.msgr.answers[0].Text != "" {
		t.Errorf("answers = %+v", h.msgr.answers)
	}
}

func TestBlockedMessageNeverReachesOperator(t *testing.T) {
	h := newHarness(t)
	h.verifiedUser(42)
	h.rules.add(store.Rule{Type: store.RuleContent, Pattern: "BTC", Action: store.ActionBlock, Active: true})

	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "buy BTC now"))

	m, ok := h.msgr.lastSentTo(42)
	if !ok || m.Text != textBlocked {
		t.Errorf("user notice = %+v, want block notice", m)
	}
	if len(h.msgr.forwards) != 0 || len(h.msgr.sentTo(testOperator)) != 0 {
		t.Error("blocked message reached the operator")
	}
	if len(h.routes.all()) != 0 {
		t.Error("route recorded for blocked message")
	}
}

func TestDroppedMessageIsSilent(t *testing.T) {
	h := newHarness(t)
	h.verifiedUser(42)
	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "/settings"))

	if len(h.msgr.sent) != 0 || len(h.msgr.forwards) != 0 {
		t.Errorf("dropped command produced output: sent=%v forwards=%v", h.msgr.sent, h.msgr.forwards)
	}
	if got := testutil.ToFloat64(h.metrics.Inbound.WithLabelValues(OutcomeDropped)); got != 1 {
		t.Errorf("dropped counter = %v", got)
	}
}

func TestAllowedMessageRelayed(t *testing.T) {
	h := newHarness(t)
	h.verifiedUser(42)
	msg := userMessage(42, 10, "hi")
	msg.From.IsPremium = true
	msg.From.FirstName = "<Ann>"

	h.relay.HandleMessage(context.Background(), msg)

	if len(h.msgr.forwards) != 1 {
		t.Fatalf("forwards = %d, want 1", len(h.msgr.forwards))
	}
	fwd := h.msgr.forwards[0]
	if fwd.To != testOperator || fwd.From != 42 || fwd.MessageID != 10 {
		t.Errorf("forward = %+v", fwd)
	}

	cards := h.msgr.sentTo(testOperator)
	if len(cards) != 1 {
		t.Fatalf("operator got %d cards, want 1", len(cards))
	}
	card := cards[0]
	if !card.Opts.HTML || card.Opts.ReplyTo != fwd.NewID {
		t.Errorf("card options = %+v", card.Opts)
	}
	for _, want := range []string{"ID: <code>42</code>", "&lt;Ann&gt;", "⭐️", "@user42"} {
		if !strings.Contains(card.Text, want) {
			t.Errorf("card missing %q:\n%s", want, card.Text)
		}
	}

	routes := h.routes.all()
	if len(routes) != 2 {
		t.Fatalf("routes = %d, want 2", len(routes))
	}
	if routes[0].AdminMessageID != fwd.NewID || routes[1].AdminMessageID != card.ID {
		t.Errorf("routes = %+v", routes)
	}
	for _, r := range routes {
		if r.UserID != 42 || r.UserMessageID != 10 {
			t.Errorf("route = %+v", r)
		}
	}
	if got := testutil.ToFloat64(h.metrics.Inbound.WithLabelValues(OutcomeRelayed)); got != 1 {
		t.Errorf("relayed counter = %v", got)
	}
}

func TestForwardRouteKeptWhenCardFails(t *testing.T) {
	h := newHarness(t)
	h.verifiedUser(42)
	h.msgr.sendErr = func(chatID int64, _ string) error {
		if chatID == testOperator {
			return &DeliveryError{Op: "sendMessage", Kind: KindTransport, Err: errors.New("timeout")}
		}
		return nil
	}

	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "hi"))

	routes := h.routes.all()
	if len(routes) != 1 || routes[0].AdminMessageID != h.msgr.forwards[0].NewID {
		t.Errorf("routes = %+v, want only the forward", routes)
	}
	if got := testutil.ToFloat64(h.metrics.Inbound.WithLabelValues(OutcomeFailed)); got != 1 {
		t.Errorf("failed counter = %v", got)
	}
}

func TestForwardFailureRecordsNothing(t *testing.T) {
	h := newHarness(t)
	h.verifiedUser(42)
	h.msgr.forwardErr = &DeliveryError{Op: "forwardMessage", Kind: KindForbidden, Err: errors.New("blocked")}

	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "hi"))

	if len(h.routes.all()) != 0 || len(h.msgr.sent) != 0 {
		t.Error("state changed after failed forward")
	}
}

func TestBannedUserIsSilent(t *testing.T) {
	h := newHarness(t)
	h.users.put(store.User{ID: 42, Verified: true, Banned: true})

	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "hi"))
	h.relay.HandleMessage(context.Background(), userMessage(42, 11, "/start"))

	if len(h.msgr.sent) != 0 || len(h.msgr.forwards) != 0 {
		t.Error("banned user produced output")
	}
	if got := testutil.ToFloat64(h.metrics.Inbound.WithLabelValues(OutcomeBanned)); got != 2 {
		t.Errorf("banned counter = %v", got)
	}
}

func TestRateLimitedUserIsSilent(t *testing.T) {
	h := newHarness(t, WithLimiter(allowLimiter{allow: false}))
	h.verifiedUser(42)

	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "hi"))

	if len(h.msgr.sent) != 0 || len(h.msgr.forwards) != 0 {
		t.Error("rate limited user produced output")
	}
}

func TestNonPrivateAndBotMessagesIgnored(t *testing.T) {
	h := newHarness(t)
	group := userMessage(42, 10, "hi")
	group.ChatType = "group"
	bot := userMessage(43, 11, "hi")
	bot.From.IsBot = true

	h.relay.HandleMessage(context.Background(), group)
	h.relay.HandleMessage(context.Background(), bot)

	if len(h.msgr.sent) != 0 {
		t.Errorf("ignored messages produced output: %+v", h.msgr.sent)
	}
	if _, err := h.users.Get(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Error("group sender was stored")
	}
}

func TestUpsertFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.users.err = errors.New("db down")

	h.relay.HandleMessage(context.Background(), userMessage(42, 10, "hi"))

	if len(h.msgr.sent) != 0 {
		t.Error("message handled despite store failure")
	}
	if got := testutil.ToFloat64(h.metrics.Inbound.WithLabelValues(OutcomeError)); got != 1 {
		t.Errorf("error counter = %v", got)
	}
}

func TestOperatorReplyToCard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(42)
	h.relay.HandleMessage(ctx, userMessage(42, 10, "hi"))
	card, _ := h.msgr.lastSentTo(testOperator)

	h.relay.HandleMessage(ctx, operatorMessage(77, "ok", &Message{ID: card.ID, Text: "User Info"}))

	if len(h.msgr.copies) != 1 {
		t.Fatalf("copies = %d, want 1", len(h.msgr.copies))
	}
	cp := h.msgr.copies[0]
	if cp.To != 42 || cp.From != testOperator || cp.MessageID != 77 || cp.ReplyTo != 10 {
		t.Errorf("copy = %+v", cp)
	}
	if len(h.msgr.reactions) != 1 || h.msgr.reactions[0].Emoji != "👍" || h.msgr.reactions[0].MessageID != 77 {
		t.Errorf("reactions = %+v", h.msgr.reactions)
	}
	if got := testutil.ToFloat64(h.metrics.Replies.WithLabelValues(ReplyDelivered)); got != 1 {
		t.Errorf("delivered counter = %v", got)
	}
}

func TestOperatorReplyNoReactionWhenDisabled(t *testing.T) {
	h := newHarness(t)
	h.settings.values[store.SettingConfirmReply] = "false"

	h.relay.HandleMessage(context.Background(), operatorMessage(77, "ok", &Message{ID: 5, Text: "ID: 42"}))

	if len(h.msgr.copies) != 1 || h.msgr.copies[0].To != 42 || h.msgr.copies[0].ReplyTo != 0 {
		t.Errorf("copies = %+v", h.msgr.copies)
	}
	if len(h.msgr.reactions) != 0 {
		t.Error("reaction sent with confirm_reply off")
	}
}

func TestOperatorReplyUnresolved(t *testing.T) {
	h := newHarness(t)
	h.relay.HandleMessage(context.Background(), operatorMessage(77, "ok", &Message{ID: 5, Text: "random"}))

	m, ok := h.msgr.lastSentTo(testOperator)
	if !ok || m.Text != textRouteNotFound {
		t.Errorf("notice = %+v", m)
	}
	if len(h.msgr.copies) != 0 {
		t.Error("unresolved reply was delivered")
	}
}

func TestOperatorReplyDeliveryFailure(t *testing.T) {
	h := newHarness(t)
	h.msgr.copyErr = &DeliveryError{Op: "copyMessage", Kind: KindForbidden, Err: errors.New("bot was blocked by the user")}

	h.relay.HandleMessage(context.Background(), operatorMessage(77, "ok", &Message{ID: 5, Text: "ID: 42"}))

	m, ok := h.msgr.lastSentTo(testOperator)
	if !ok {
		t.Fatal("operator not notified")
	}
	for _, want := range []string{"❌ Failed to reach user 42", "bot was blocked by the user", textBlockedHint} {
		if !strings.Contains(m.Text, want) {
			t.Errorf("notice missing %q: %q", want, m.Text)
		}
	}
	if len(h.msgr.reactions) != 0 {
		t.Error("reaction sent for failed delivery")
	}
}

func TestOperatorPlainMessageGetsHint(t *testing.T) {
	h := newHarness(t)
	h.relay.HandleMessage(context.Background(), operatorMessage(77, "hello?", nil))

	m, ok := h.msgr.lastSentTo(testOperator)
	if !ok || m.Text != textReplyHint {
		t.Errorf("hint = %+v", m)
	}
}

func TestOperatorMessagesSkipRules(t *testing.T) {
	h := newHarness(t)
	h.rules.add(store.Rule{Type: store.RuleContent, Pattern: ".*", Action: store.ActionBlock, Active: true})

	h.relay.HandleMessage(context.Background(), operatorMessage(77, "ok", &Message{ID: 5, Text: "ID: 42"}))

	if len(h.msgr.copies) != 1 {
		t.Error("operator reply was filtered")
	}
}

func TestBanCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(42)
	h.relay.HandleMessage(ctx, userMessage(42, 10, "hi"))
	fwdID := h.msgr.forwards[0].NewID

	tests := []struct {
		name   string
		msg    *Message
		want   string
		banned bool
	}{
		{"ban by id", operatorMessage(80, "/ban 42", nil), "🔒 User 42 has been banned.", true},
		{"ban again", operatorMessage(81, "/ban 42", nil), "User 42 is already banned.", true},
		{"unban by reply", operatorMessage(82, "/unban", &Message{ID: fwdID}), "✅ User 42 has been unbanned.", false},
		{"allow alias", operatorMessage(83, "/allow 42", nil), "User 42 is not banned.", false},
		{"ban by card reply", operatorMessage(84, "/ban@relaycat_bot", &Message{ID: 9999, Text: "ID: 42"}), "🔒 User 42 has been banned.", true},
		{"unknown user", operatorMessage(85, "/ban 555", nil), "⚠️ Unknown user 555.", true},
		{"usage", operatorMessage(86, "/ban", nil), "⚠️ Usage: /ban <user_id> or reply to a user message.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.relay.HandleMessage(ctx, tt.msg)
			m, ok := h.msgr.lastSentTo(testOperator)
			if !ok || m.Text != tt.want {
				t.Errorf("reply = %q, want %q", m.Text, tt.want)
			}
			u, _ := h.users.Get(ctx, 42)
			if u.Banned != tt.banned {
				t.Errorf("banned = %v, want %v", u.Banned, tt.banned)
			}
		})
	}
}

func TestBanList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.relay.HandleMessage(ctx, operatorMessage(80, "/banlist", nil))
	if m, _ := h.msgr.lastSentTo(testOperator); m.Text != "No banned users." {
		t.Errorf("empty banlist = %q", m.Text)
	}

	h.users.put(store.User{ID: 42, Username: "spammer", FirstName: "Spam", Banned: true})
	h.users.put(store.User{ID: 43})
	h.relay.HandleMessage(ctx, operatorMessage(81, "/banlist", nil))

	m, _ := h.msgr.lastSentTo(testOperator)
	if !strings.Contains(m.Text, "42 @spammer (Spam)") || strings.Contains(m.Text, "43") {
		t.Errorf("banlist = %q", m.Text)
	}
}

func TestOperatorCannotBanSelf(t *testing.T) {
	h := newHarness(t)
	h.relay.HandleMessage(context.Background(), operatorMessage(80, fmt.Sprintf("/ban %d", testOperator), nil))
	if m, _ := h.msgr.lastSentTo(testOperator); !strings.Contains(m.Text, "cannot ban yourself") {
		t.Errorf("reply = %q", m.Text)
	}
}

func TestEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.rules.add(store.Rule{Type: store.RuleContent, Pattern: "BTC", Action: store.ActionBlock, Active: true})

	// Unverified hello: challenge only.
	h.relay.HandleMessage(ctx, userMessage(42, 1, "hello"))
	if len(h.msgr.forwards) != 0 {
		t.Fatal("unverified message forwarded")
	}
	c, _ := h.relay.Challenges().Get(42)
	prompt, _ := h.msgr.lastSentTo(42)
	h.relay.HandleCallback(ctx, &Callback{ID: "cb", From: User{ID: 42}, ChatID: 42, MessageID: prompt.ID, Data: CallbackData(c.ID, c.Target)})

	// Spam is blocked.
	h.relay.HandleMessage(ctx, userMessage(42, 2, "buy BTC now"))
	if m, _ := h.msgr.lastSentTo(42); m.Text != textBlocked {
		t.Fatalf("block notice = %q", m.Text)
	}
	if len(h.msgr.forwards) != 0 {
		t.Fatal("blocked message forwarded")
	}

	// Normal message reaches the operator with two routes.
	h.relay.HandleMessage(ctx, userMessage(42, 3, "hi"))
	if len(h.msgr.forwards) != 1 || len(h.routes.all()) != 2 {
		t.Fatalf("forwards=%d routes=%d", len(h.msgr.forwards), len(h.routes.all()))
	}

	// Operator answers the card.
	card, _ := h.msgr.lastSentTo(testOperator)
	h.relay.HandleMessage(ctx, operatorMessage(500, "ok", &Message{ID: card.ID}))
	if len(h.msgr.copies) != 1 || h.msgr.copies[0].To != 42 || h.msgr.copies[0].ReplyTo != 3 {
		t.Fatalf("copies = %+v", h.msgr.copies)
	}
}

func TestInfoCard(t *testing.T) {
	tests := []struct {
		name string
		user User
		want []string
	}{
		{"plain", User{ID: 1, FirstName: "Ann", LastName: "Lee", Username: "ann"}, []string{"ID: <code>1</code>", "Name: Ann Lee\n", "Username: @ann"}},
		{"no username", User{ID: 2, FirstName: "Bo"}, []string{"Username: @none"}},
		{"premium", User{ID: 3, FirstName: "Cy", IsPremium: true}, []string{"Name: Cy ⭐️"}},
		{"escaped", User{ID: 4, FirstName: "<b>x</b>&"}, []string{"&lt;b&gt;x&lt;/b&gt;&amp;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := InfoCard(&tt.user)
			for _, w := range tt.want {
				if !strings.Contains(card, w) {
					t.Errorf("card missing %q:\n%s", w, card)
				}
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		cmd  string
		args int
	}{
		{"/start", "/start", 0},
		{"/Ban@relay_bot 42", "/ban", 1},
		{"hello", "", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		cmd, args := parseCommand(tt.text)
		if cmd != tt.cmd || len(args) != tt.args {
			t.Errorf("parseCommand(%q) = %q, %v", tt.text, cmd, args)
		}
	}
}
