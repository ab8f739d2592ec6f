package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Manager owns the registered channels and their lifecycle.
type Manager struct {
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewManager creates an empty channel manager.
func NewManager() *Manager {
	return &Manager{channels: make(map[string]Channel)}
}

// RegisterChannel adds a channel. A channel with the same name is replaced.
func (m *Manager) RegisterChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// GetChannel returns a channel by name.
func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// StartAll starts every registered channel. The first failure stops the
// channels already started and is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.channels) == 0 {
		slog.Warn("no channels enabled")
		return nil
	}

	var started []Channel
	for _, name := range m.namesLocked() {
		ch := m.channels[name]
		slog.Info("starting channel", "channel", name)
		if err := ch.Start(ctx); err != nil {
			for _, s := range started {
				if stopErr := s.Stop(ctx); stopErr != nil {
					slog.Error("error stopping channel", "channel", s.Name(), "error", stopErr)
				}
			}
			return fmt.Errorf("start channel %s: %w", name, err)
		}
		started = append(started, ch)
	}

	slog.Info("all channels started", "count", len(started))
	return nil
}

// StopAll stops every registered channel, logging failures.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range m.namesLocked() {
		slog.Info("stopping channel", "channel", name)
		if err := m.channels[name].Stop(ctx); err != nil {
			slog.Error("error stopping channel", "channel", name, "error", err)
		}
	}
}

// GetStatus reports the running state of each channel.
func (m *Manager) GetStatus() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		status[name] = ch.IsRunning()
	}
	return status
}

func (m *Manager) namesLocked() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
