package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

const (
	transportPrefix   = "Helper connection error: "
	timeoutPrefix     = "Helper timeout: "
	unavailablePrefix = "Helper unavailable: "
	connectTimeout    = 5 * time.Second
)

// Manager owns the client side of the helper: registration with the OS and
// the single cached connection.
type Manager struct {
	registry Registry
	socket   string
	timeout  time.Duration

	mu   sync.Mutex
	conn *Connection

	// dial is replaced in tests
	dial func(ctx context.Context) (*Connection, error)
}

// NewManager creates a manager for the helper listening on socket. timeout
// bounds a whole command round trip; zero means no client-side bound.
func NewManager(registry Registry, socket string, timeout time.Duration) *Manager {
	m := &Manager{registry: registry, socket: socket, timeout: timeout}
	m.dial = m.connect
	return m
}

func (m *Manager) connect(ctx context.Context) (*Connection, error) {
	clientTimeout := time.Duration(0)
	if m.timeout > 0 {
		// leave the helper room to report its own timeout first
		clientTimeout = m.timeout + 5*time.Second
	}
	conn := newConnection(m.socket, clientTimeout)
	pctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := conn.ping(pctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Status reports the registration state without changing it.
func (m *Manager) Status(ctx context.Context) Status {
	state, err := m.registry.Status(ctx)
	if err != nil {
		log.Error("Failed to read helper registration state", "error", err)
		return Status{State: StateError, Message: err.Error()}
	}
	return Status{State: state, Message: describe(state)}
}

// Install registers the helper. Installing an enabled helper is a no-op.
func (m *Manager) Install(ctx context.Context) Status {
	if current := m.Status(ctx); current.Enabled() {
		log.Info("Helper already enabled")
		return current
	}

	state, err := m.registry.Register(ctx)
	if err != nil {
		log.Error("Failed to register helper", "error", err)
		msg := err.Error()
		if errors.Is(err, ErrPermissionDenied) {
			msg = "Permission denied: " + msg
		}
		return Status{State: StateError, Message: msg}
	}
	m.invalidate(nil)
	log.Info("Helper registered", "state", state)
	return Status{State: state, Message: describe(state)}
}

// Uninstall deregisters the helper and drops any open connection.
// Uninstalling an unregistered helper is a no-op.
func (m *Manager) Uninstall(ctx context.Context) Status {
	m.invalidate(nil)
	if current := m.Status(ctx); current.State == StateNoService {
		return current
	}
	if err := m.registry.Unregister(ctx); err != nil {
		log.Error("Failed to unregister helper", "error", err)
		return Status{State: StateError, Message: err.Error()}
	}
	log.Info("Helper unregistered")
	return Status{State: StateNoService, Message: describe(StateNoService)}
}

// GetConnection returns the cached connection, establishing one if needed.
func (m *Manager) GetConnection(ctx context.Context) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return m.conn, nil
	}
	conn, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug("Connected to helper", "socket", m.socket)
	m.conn = conn
	return conn, nil
}

// invalidate clears conn if it is still the cached one; nil clears whatever
// is cached.
func (m *Manager) invalidate(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || (conn != nil && m.conn != conn) {
		return
	}
	m.conn.Close()
	m.conn = nil
}

// RunCommand sends command to the helper. It never returns an error: a helper
// that is not enabled, a broken connection and a timeout all come back as
// prefixed text with the matching FailureKind.
func (m *Manager) RunCommand(ctx context.Context, command string) model.CommandResult {
	status := m.Status(ctx)
	if !status.Enabled() {
		return model.CommandResult{
			Output: unavailablePrefix + status.Message,
			Kind:   model.FailureUnavailable,
		}
	}

	conn, err := m.GetConnection(ctx)
	if err != nil {
		log.Warn("Cannot connect to helper", "socket", m.socket, "error", err)
		return transportFailure(err)
	}

	resp, err := conn.Run(ctx, command)
	if err != nil {
		log.Warn("Helper request failed, dropping connection", "command", command, "error", err)
		m.invalidate(conn)
		return transportFailure(err)
	}

	if resp.Kind == model.FailureTimeout {
		return model.CommandResult{Output: timeoutPrefix + resp.Output, Kind: model.FailureTimeout}
	}
	return model.CommandResult{Output: resp.Output}
}

func transportFailure(err error) model.CommandResult {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return model.CommandResult{Output: timeoutPrefix + err.Error(), Kind: model.FailureTimeout}
	}
	return model.CommandResult{Output: transportPrefix + err.Error(), Kind: model.FailureTransport}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
