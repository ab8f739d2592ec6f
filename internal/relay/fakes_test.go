package relay

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

type sentMessage struct {
	ChatID int64
	ID     int64
	Text   string
	Opts   SendOptions
}

type forwardCall struct {
	To, From, MessageID, NewID int64
}

type copyCall struct {
	To, From, MessageID, ReplyTo int64
}

type editCall struct {
	ChatID, MessageID int64
	Text              string
	Keyboard          Keyboard
}

type answerCall struct {
	ID, Text string
	Alert    bool
}

type reactionCall struct {
	ChatID, MessageID int64
	Emoji             string
}

// fakeMessenger records every call and hands out increasing message ids.
type fakeMessenger struct {
	mu        sync.Mutex
	nextID    int64
	sent      []sentMessage
	forwards  []forwardCall
	copies    []copyCall
	edits     []editCall
	answers   []answerCall
	reactions []reactionCall

	forwardErr error
	sendErr    func(chatID int64, text string) error
	copyErr    error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 1000}
}

func (f *fakeMessenger) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, opts SendOptions) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		if err := f.sendErr(chatID, text); err != nil {
			return 0, err
		}
	}
	id := f.id()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, ID: id, Text: text, Opts: opts})
	return id, nil
}

func (f *fakeMessenger) ForwardMessage(_ context.Context, to, from, messageID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return 0, f.forwardErr
	}
	id := f.id()
	f.forwards = append(f.forwards, forwardCall{To: to, From: from, MessageID: messageID, NewID: id})
	return id, nil
}

func (f *fakeMessenger) CopyMessage(_ context.Context, to, from, messageID, replyTo int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copies = append(f.copies, copyCall{To: to, From: from, MessageID: messageID, ReplyTo: replyTo})
	return f.id(), nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, chatID, messageID int64, text string, kb Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editCall{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

func (f *fakeMessenger) SetReaction(_ context.Context, chatID, messageID int64, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, reactionCall{ChatID: chatID, MessageID: messageID, Emoji: emoji})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, id, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answerCall{ID: id, Text: text, Alert: alert})
	return nil
}

func (f *fakeMessenger) sentTo(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMessenger) lastSentTo(chatID int64) (sentMessage, bool) {
	msgs := f.sentTo(chatID)
	if len(msgs) == 0 {
		return sentMessage{}, false
	}
	return msgs[len(msgs)-1], true
}

// memUsers is an in-memory store.UserStore.
type memUsers struct {
	mu    sync.Mutex
	users  map[int64]*store.User
	err    error
	getErr error
}

func newMemUsers() *memUsers { return &memUsers{users: make(map[int64]*store.User)} }

func (m *memUsers) Upsert(_ context.Context, u *store.User) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	cur, ok := m.users[u.ID]
	if !ok {
		cur = &store.User{ID: u.ID, CreatedAt: time.Now()}
		m.users[u.ID] = cur
	}
	cur.Username, cur.FirstName, cur.LastName = u.Username, u.FirstName, u.LastName
	cur.UpdatedAt = time.Now()
	cp := *cur
	return &cp, nil
}

func (m *memUsers) Get(_ context.Context, id int64) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetVerified(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if u.Verified {
		return false, nil
	}
	u.Verified = true
	return true, nil
}

func (m *memUsers) SetBanned(_ context.Context, id int64, banned bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if u.Banned == banned {
		return false, nil
	}
	u.Banned = banned
	return true, nil
}

func (m *memUsers) List(_ context.Context, limit, offset int) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsers) ListBanned(ctx context.Context) ([]store.User, error) {
	all, _ := m.List(ctx, 0, 0)
	var out []store.User
	for _, u := range all {
		if u.Banned {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) Stats(ctx context.Context) (store.UserStats, error) {
	all, _ := m.List(ctx, 0, 0)
	st := store.UserStats{Total: len(all)}
	for _, u := range all {
		if u.Verified {
			st.Verified++
		}
		if u.Banned {
			st.Banned++
		}
	}
	return st, nil
}

func (m *memUsers) put(u store.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
}

// memRules is an in-memory store.RuleStore.
type memRules struct {
	mu     sync.Mutex
	nextID int64
	rules  []store.Rule
	err    error
}

func (m *memRules) add(r store.Rule) store.Rule {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	m.rules = append(m.rules, r)
	return r
}

func (m *memRules) ListActive(ctx context.Context) ([]store.Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	all, _ := m.List(ctx)
	var out []store.Rule
	for _, r := range all {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRules) List(context.Context) ([]store.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]store.Rule(nil), m.rules...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memRules) Get(_ context.Context, id int64) (*store.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRules) Create(_ context.Context, r *store.Rule) error {
	*r = m.add(*r)
	return nil
}

func (m *memRules) Update(context.Context, int64, map[string]any) error { return nil }
func (m *memRules) Delete(context.Context, int64) error                 { return nil }

func (m *memRules) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rules), nil
}

// memRoutes is an in-memory store.RouteStore.
type memRoutes struct {
	mu     sync.Mutex
	routes []store.MessageRoute
	err    error
}

func (m *memRoutes) Record(_ context.Context, r *store.MessageRoute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.routes) + 1)
	r.CreatedAt = time.Now()
	m.routes = append(m.routes, *r)
	return nil
}

func (m *memRoutes) Lookup(_ context.Context, adminMessageID int64) (*store.MessageRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for i := len(m.routes) - 1; i >= 0; i-- {
		if m.routes[i].AdminMessageID == adminMessageID {
			cp := m.routes[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRoutes) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.routes), nil
}

func (m *memRoutes) PruneOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }
func (m *memRoutes) TrimTo(context.Context, int) (int64, error)              { return 0, nil }

func (m *memRoutes) all() []store.MessageRoute {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.MessageRoute(nil), m.routes...)
}

// memSettings is an in-memory store.SettingStore.
type memSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memSettings) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memSettings) Set(_ context.Context, key, value, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *memSettings) List(context.Context) ([]store.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Setting
	for k, v := range m.values {
		out = append(out, store.Setting{Key: k, Value: v})
	}
	return out, nil
}

type allowLimiter struct{ allow bool }

func (l allowLimiter) Allow(string) bool { return l.allow }
