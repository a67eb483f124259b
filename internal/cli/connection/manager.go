package connection

import (
	"context"
	"sync"
)

// Manager owns the interactive connection. It dials lazily and redials
// after Reset, so a REPL survives a server restart.
type Manager struct {
	opts Options

	mu      sync.Mutex
	current *Client
}

// NewManager creates a connection manager for opts.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts}
}

// Client returns the live connection, dialing it if needed.
func (m *Manager) Client(ctx context.Context) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.current, nil
	}
	c, err := Dial(ctx, m.opts)
	if err != nil {
		return nil, err
	}
	m.current = c
	return c, nil
}

// Reset drops the current connection; the next Client call redials.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		_ = m.current.Close()
		m.current = nil
	}
}

// Close closes the current connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}

// IsConnected returns true while a connection is held.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Addr returns the configured server address.
func (m *Manager) Addr() string {
	return m.opts.Addr
}
