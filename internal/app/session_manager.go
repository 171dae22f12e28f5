package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/vidbot/internal/domain"
)

// QRPresenter materializes a pairing code for the operator
type QRPresenter interface {
	Show(code string) error
	Clear() error
}

// SessionManager owns the authentication lifecycle of the messaging session
// and fans binding events out to registered handlers.
type SessionManager struct {
	client domain.SessionClient
	qr     QRPresenter
	events EventLog
	config *domain.SessionConfig
	logger *zap.Logger

	mu       sync.RWMutex
	state    domain.SessionState
	stopped  bool
	retrying bool
	baseCtx  context.Context

	onQRCode       []func(code string)
	onReady        []func()
	onMessage      []func(msg domain.IncomingMessage)
	onDisconnected []func(reason string)
}

// NewSessionManager creates a new session manager
func NewSessionManager(client domain.SessionClient, qr QRPresenter, events EventLog, config *domain.SessionConfig, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		client: client,
		qr:     qr,
		events: events,
		config: config,
		logger: logger,
		state:  domain.SessionDisconnected,
	}
}

// OnQRCode registers a handler for pairing codes
func (m *SessionManager) OnQRCode(fn func(code string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onQRCode = append(m.onQRCode, fn)
}

// OnReady registers a handler for the READY transition
func (m *SessionManager) OnReady(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReady = append(m.onReady, fn)
}

// OnMessage registers a handler for inbound messages of both channels
func (m *SessionManager) OnMessage(fn func(msg domain.IncomingMessage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMessage = append(m.onMessage, fn)
}

// OnDisconnected registers a handler for disconnects
func (m *SessionManager) OnDisconnected(fn func(reason string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = append(m.onDisconnected, fn)
}

// State returns the current session state
func (m *SessionManager) State() domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsReady reports whether the session reached READY
func (m *SessionManager) IsReady() bool {
	return m.State() == domain.SessionReady
}

// Initialize starts authentication. A failure is reported and returned as a
// SessionInitError; the process keeps running and a retry is scheduled when
// a reconnect delay is configured.
func (m *SessionManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.stopped = false
	m.mu.Unlock()

	return m.start(ctx)
}

func (m *SessionManager) start(ctx context.Context) error {
	if err := m.client.Start(ctx, m.handle); err != nil {
		initErr := &domain.SessionInitError{Err: err}
		m.events.Error("Client initialization failed: %v", err)
		m.setState(domain.SessionDisconnected)
		m.scheduleReconnect()
		return initErr
	}

	m.logger.Info("Session binding started")
	return nil
}

// Stop disconnects the session and cancels pending reconnects
func (m *SessionManager) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	m.client.Stop()
	m.setState(domain.SessionDisconnected)
}

// handle is the sink given to the binding
func (m *SessionManager) handle(evt domain.SessionEvent) {
	switch evt.Kind {
	case domain.EventQRCode:
		m.handleQRCode(evt.QRCode)
	case domain.EventAuthenticating:
		m.mu.Lock()
		if m.state == domain.SessionReady {
			m.mu.Unlock()
			return
		}
		m.state = domain.SessionAuthenticating
		m.mu.Unlock()
		m.events.Info("Authenticating session...")
	case domain.EventReady:
		m.handleReady()
	case domain.EventMessage:
		if evt.Message == nil {
			return
		}
		m.mu.RLock()
		handlers := m.onMessage
		m.mu.RUnlock()
		for _, fn := range handlers {
			fn(*evt.Message)
		}
	case domain.EventDisconnected:
		m.handleDisconnected(evt)
	default:
		m.logger.Warn("Unknown session event", zap.String("kind", string(evt.Kind)))
	}
}

func (m *SessionManager) handleQRCode(code string) {
	m.mu.Lock()
	if m.state == domain.SessionReady {
		m.mu.Unlock()
		m.logger.Warn("Ignoring QR code while session is ready")
		return
	}
	m.state = domain.SessionQRPending
	handlers := m.onQRCode
	m.mu.Unlock()

	if m.qr != nil {
		if err := m.qr.Show(code); err != nil {
			m.logger.Error("Failed to write QR code", zap.Error(err))
		}
	}
	m.events.Info("QR code received, scan it to log in")

	for _, fn := range handlers {
		fn(code)
	}
}

func (m *SessionManager) handleReady() {
	m.mu.Lock()
	if m.state == domain.SessionReady {
		m.mu.Unlock()
		return
	}
	m.state = domain.SessionReady
	handlers := m.onReady
	m.mu.Unlock()

	if m.qr != nil {
		if err := m.qr.Clear(); err != nil {
			m.logger.Warn("Failed to remove QR code", zap.Error(err))
		}
	}
	m.events.Info("Client is ready!")

	for _, fn := range handlers {
		fn()
	}
}

func (m *SessionManager) handleDisconnected(evt domain.SessionEvent) {
	m.mu.Lock()
	m.state = domain.SessionDisconnected
	handlers := m.onDisconnected
	m.mu.Unlock()

	reason := evt.Reason
	if reason == "" {
		reason = "connection lost"
	}
	m.events.Error("Client disconnected: %s", reason)

	for _, fn := range handlers {
		fn(reason)
	}

	// A logged-out device needs a fresh pairing; plain disconnects are
	// retried by the binding itself.
	if evt.LoggedOut {
		m.client.Stop()
		m.scheduleReconnect()
	}
}

// scheduleReconnect re-runs Initialize after the configured delay
func (m *SessionManager) scheduleReconnect() {
	m.mu.Lock()
	if m.stopped || m.retrying || m.config.ReconnectDelay <= 0 || m.baseCtx == nil {
		m.mu.Unlock()
		return
	}
	m.retrying = true
	ctx := m.baseCtx
	delay := m.config.ReconnectDelay
	m.mu.Unlock()

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			m.mu.Lock()
			m.retrying = false
			m.mu.Unlock()
			return
		}

		m.mu.Lock()
		m.retrying = false
		stopped := m.stopped
		m.mu.Unlock()
		if stopped {
			return
		}

		m.events.Info("Retrying session initialization")
		if err := m.start(ctx); err != nil {
			m.logger.Warn("Session retry failed", zap.Error(err))
		}
	}()
}

func (m *SessionManager) setState(state domain.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}
