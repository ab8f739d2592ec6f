// Package channels holds the transport-neutral pieces shared by chat adapters:
// the Channel lifecycle contract, a lifecycle manager and the per-sender
// rate limiter used by the relay.
package channels

import (
	"context"
	"sync/atomic"
)

// Channel is a chat transport with a start/stop lifecycle.
type Channel interface {
	// Name returns the channel identifier (e.g. "telegram").
	Name() string

	// Start begins receiving updates. It returns once receiving is set up.
	Start(ctx context.Context) error

	// Stop shuts the channel down and waits for in-flight handlers.
	Stop(ctx context.Context) error

	// IsRunning reports whether the channel is receiving updates.
	IsRunning() bool
}

// BaseChannel provides shared functionality for channel implementations.
// Channel implementations should embed it.
type BaseChannel struct {
	name    string
	running atomic.Bool
}

// NewBaseChannel creates a BaseChannel with the given name.
func NewBaseChannel(name string) *BaseChannel {
	return &BaseChannel{name: name}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running.Load() }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running.Store(running) }

// Truncate shortens a string to maxLen bytes, appending "..." if truncated.
// It never splits a UTF-8 sequence.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
