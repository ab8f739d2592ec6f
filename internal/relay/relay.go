package relay

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

var tracer = otel.Tracer("github.com/nextlevelbuilder/relaycat/internal/relay")

// Config holds the relay settings that don't live in the database.
type Config struct {
	OperatorID   int64
	AllowBots    bool          // accept messages sent by other bots
	ChallengeTTL time.Duration // default 10m
}

// Relay is the per-update orchestrator. All methods are safe for concurrent
// use; each update runs its gates sequentially in the caller's goroutine.
type Relay struct {
	cfg        Config
	messenger  Messenger
	users      store.UserStore
	routes     store.RouteStore
	settings   store.SettingStore
	rules      *RuleEngine
	resolver   *Resolver
	challenges *ChallengeStore
	gen        *ChallengeGenerator
	limiter    Limiter
	metrics    *Metrics
}

// Option customizes a Relay.
type Option func(*Relay)

// WithLimiter enables per-sender rate limiting.
func WithLimiter(l Limiter) Option {
	return func(r *Relay) { r.limiter = l }
}

// WithMetrics replaces the default unregistered counters.
func WithMetrics(m *Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithChallengeGenerator replaces the random challenge generator.
func WithChallengeGenerator(g *ChallengeGenerator) Option {
	return func(r *Relay) { r.gen = g }
}

// New wires a relay over the given transport and stores.
func New(cfg Config, m Messenger, stores *store.Stores, opts ...Option) *Relay {
	r := &Relay{
		cfg:        cfg,
		messenger:  m,
		users:      stores.Users,
		routes:     stores.Routes,
		settings:   stores.Settings,
		rules:      NewRuleEngine(stores.Rules, cfg.OperatorID),
		resolver:   NewResolver(stores.Routes),
		challenges: NewChallengeStore(cfg.ChallengeTTL, DefaultMaxChallenges),
		gen:        &ChallengeGenerator{},
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	return r
}

// Challenges exposes the pending challenge store for housekeeping.
func (r *Relay) Challenges() *ChallengeStore { return r.challenges }

// HandleMessage runs one inbound message through the relay gates.
func (r *Relay) HandleMessage(ctx context.Context, msg *Message) {
	if msg == nil || msg.From == nil || msg.ChatType != ChatPrivate {
		return
	}
	if msg.From.IsBot && !r.cfg.AllowBots {
		slog.Debug("relay: message from bot ignored", "sender_id", msg.From.ID)
		return
	}

	ctx, span := tracer.Start(ctx, "relay.HandleMessage", trace.WithAttributes(
		attribute.Int64("relay.sender_id", msg.From.ID),
		attribute.Int64("relay.message_id", msg.ID),
	))
	defer span.End()

	if msg.From.ID == r.cfg.OperatorID {
		span.SetAttributes(attribute.Bool("relay.operator", true))
		r.handleOperator(ctx, msg)
		return
	}

	outcome := r.handleUser(ctx, msg)
	span.SetAttributes(attribute.String("relay.outcome", outcome))
	if outcome == OutcomeError || outcome == OutcomeFailed {
		span.SetStatus(codes.Error, outcome)
	}
	r.metrics.Inbound.WithLabelValues(outcome).Inc()
}

func (r *Relay) handleUser(ctx context.Context, msg *Message) string {
	from := msg.From
	user, err := r.users.Upsert(ctx, &store.User{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	})
	if err != nil {
		slog.Error("relay: upsert user failed", "user_id", from.ID, "error", err)
		return OutcomeError
	}

	if user.Banned {
		slog.Debug("relay: message from banned user dropped", "user_id", from.ID)
		return OutcomeBanned
	}

	if r.limiter != nil && !r.limiter.Allow(strconv.FormatInt(from.ID, 10)) {
		slog.Debug("relay: sender rate limited", "user_id", from.ID)
		return OutcomeRateLimited
	}

	switch cmd, _ := parseCommand(msg.Text); cmd {
	case "/start":
		if user.Verified {
			r.send(ctx, msg.ChatID, textGreeting, SendOptions{})
		} else {
			r.issueChallenge(ctx, from.ID, msg.ChatID)
		}
		return OutcomeCommand
	case "/help":
		r.send(ctx, msg.ChatID, textUserHelp, SendOptions{})
		return OutcomeCommand
	}

	if !user.Verified {
		r.issueChallenge(ctx, from.ID, msg.ChatID)
		return OutcomeUnverified
	}

	decision, err := r.rules.Evaluate(ctx, msg)
	if err != nil {
		slog.Error("relay: rule evaluation failed", "user_id", from.ID, "error", err)
		return OutcomeError
	}

	switch decision.Action {
	case store.ActionDrop:
		slog.Debug("relay: message dropped", "user_id", from.ID, "rule_id", ruleID(decision.Rule))
		return OutcomeDropped
	case store.ActionBlock:
		slog.Info("relay: message blocked", "user_id", from.ID, "rule_id", ruleID(decision.Rule))
		r.send(ctx, msg.ChatID, textBlocked, SendOptions{})
		return OutcomeBlocked
	}

	if err := r.relayToOperator(ctx, msg, from); err != nil {
		slog.Warn("relay: forward to operator failed",
			"user_id", from.ID,
			"kind", DeliveryKindOf(err).String(),
			"error", err,
		)
		return OutcomeFailed
	}
	return OutcomeRelayed
}

// relayToOperator forwards the original, then sends the info card as a reply
// to it. Each delivered operator-side message gets its own route.
func (r *Relay) relayToOperator(ctx context.Context, msg *Message, from *User) error {
	op := r.cfg.OperatorID

	fwdID, err := r.messenger.ForwardMessage(ctx, op, msg.ChatID, msg.ID)
	if err != nil {
		return err
	}
	r.recordRoute(ctx, from.ID, msg.ID, fwdID)

	cardID, err := r.messenger.SendMessage(ctx, op, InfoCard(from), SendOptions{HTML: true, ReplyTo: fwdID})
	if err != nil {
		return fmt.Errorf("info card: %w", err)
	}
	r.recordRoute(ctx, from.ID, msg.ID, cardID)

	slog.Info("relay: message forwarded", "user_id", from.ID, "forward_id", fwdID, "card_id", cardID)
	return nil
}

func (r *Relay) recordRoute(ctx context.Context, userID, userMsgID, adminMsgID int64) {
	err := r.routes.Record(ctx, &store.MessageRoute{
		UserID:         userID,
		UserMessageID:  userMsgID,
		AdminMessageID: adminMsgID,
	})
	if err != nil {
		slog.Error("relay: record route failed",
			"user_id", userID, "admin_message_id", adminMsgID, "error", err)
	}
}

// InfoCard renders the HTML card that accompanies every forwarded message.
func InfoCard(u *User) string {
	name := html.EscapeString(u.FullName())
	if name == "" {
		name = "-"
	}
	if u.IsPremium {
		name += " ⭐️"
	}
	username := "none"
	if u.Username != "" {
		username = html.EscapeString(u.Username)
	}

	var b strings.Builder
	b.WriteString("👤 <b>User Info</b>\n")
	fmt.Fprintf(&b, "ID: <code>%d</code>\n", u.ID)
	fmt.Fprintf(&b, "Name: %s\n", name)
	fmt.Fprintf(&b, "Username: @%s\n", username)
	b.WriteString("<i>Reply to this or the forwarded message to answer.</i>")
	return b.String()
}

func (r *Relay) issueChallenge(ctx context.Context, userID, chatID int64) {
	c := r.challenges.Put(r.gen.Generate(userID))
	r.metrics.Challenges.WithLabelValues(ChallengeIssued).Inc()
	r.send(ctx, chatID, challengePrompt(c.Target), SendOptions{Keyboard: c.Keyboard()})
}

// HandleCallback processes a verification keyboard press.
func (r *Relay) HandleCallback(ctx context.Context, cb *Callback) {
	if cb == nil {
		return
	}
	if !IsVerifyCallback(cb.Data) || cb.From.ID == r.cfg.OperatorID {
		r.answer(ctx, cb.ID, "", false)
		return
	}

	ctx, span := tracer.Start(ctx, "relay.HandleCallback", trace.WithAttributes(
		attribute.Int64("relay.sender_id", cb.From.ID),
	))
	defer span.End()

	result, err := r.verify(ctx, cb)
	span.SetAttributes(attribute.String("relay.challenge_result", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if result != "" {
		r.metrics.Challenges.WithLabelValues(result).Inc()
	}
}

func (r *Relay) verify(ctx context.Context, cb *Callback) (string, error) {
	userID := cb.From.ID

	user, err := r.users.Get(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user = nil
	case err != nil:
		slog.Error("relay: load user failed", "user_id", userID, "error", err)
		r.answer(ctx, cb.ID, textInternalError, true)
		return "", err
	case user.Banned:
		r.answer(ctx, cb.ID, "", false)
		return "", nil
	}

	id, symbol, ok := ParseCallbackData(cb.Data)
	current, found := r.challenges.Get(userID)
	if !ok || !found || current.ID != id {
		// A second tap on a solved prompt lands here once the challenge is gone.
		if user != nil && user.Verified && !found {
			r.answer(ctx, cb.ID, textAlreadyVerified, false)
			r.showPrompt(ctx, cb, textVerified, nil)
			return ChallengeRepeated, nil
		}
		r.answer(ctx, cb.ID, textExpired, true)
		return ChallengeExpired, ErrChallengeExpired
	}

	if symbol != current.Target {
		next := r.challenges.Put(r.gen.Generate(userID))
		r.answer(ctx, cb.ID, textWrongAnswer, false)
		r.showPrompt(ctx, cb, challengeRetryPrompt(next.Target), next.Keyboard())
		return ChallengeFailed, nil
	}

	changed, err := r.users.SetVerified(ctx, userID)
	if err != nil {
		slog.Error("relay: mark user verified failed", "user_id", userID, "error", err)
		r.answer(ctx, cb.ID, textInternalError, true)
		return "", err
	}
	r.challenges.Delete(userID)

	if !changed {
		r.answer(ctx, cb.ID, textAlreadyVerified, false)
		r.showPrompt(ctx, cb, textVerified, nil)
		return ChallengeRepeated, nil
	}

	slog.Info("relay: user verified", "user_id", userID)
	r.answer(ctx, cb.ID, textVerified, false)
	r.showPrompt(ctx, cb, textVerified, nil)
	return ChallengePassed, nil
}

// showPrompt edits the challenge message in place, or sends a fresh one
// when the original is no longer accessible.
func (r *Relay) showPrompt(ctx context.Context, cb *Callback, text string, kb Keyboard) {
	if cb.MessageID == 0 {
		r.send(ctx, cb.From.ID, text, SendOptions{Keyboard: kb})
		return
	}
	if err := r.messenger.EditMessage(ctx, cb.ChatID, cb.MessageID, text, kb); err != nil {
		slog.Warn("relay: edit challenge prompt failed", "user_id", cb.From.ID, "error", err)
	}
}

func (r *Relay) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := r.messenger.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		slog.Debug("relay: answer callback failed", "error", err)
	}
}

// send delivers a text and logs failures; it is for notices whose loss only
// costs the recipient a hint.
func (r *Relay) send(ctx context.Context, chatID int64, text string, opts SendOptions) int64 {
	id, err := r.messenger.SendMessage(ctx, chatID, text, opts)
	if err != nil {
		slog.Warn("relay: send message failed",
			"chat_id", chatID,
			"kind", DeliveryKindOf(err).String(),
			"error", err,
		)
		return 0
	}
	return id
}

// parseCommand splits "/cmd@bot arg..." into "/cmd" and its arguments.
// cmd is empty when text is not a command.
func parseCommand(text string) (cmd string, args []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(text)
	cmd, _, _ = strings.Cut(fields[0], "@")
	return strings.ToLower(cmd), fields[1:]
}

func ruleID(r *store.Rule) int64 {
	if r == nil {
		return 0
	}
	return r.ID
}
