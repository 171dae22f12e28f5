package domain

import "context"

// SessionState is the authentication state of the messaging session
type SessionState string

const (
	SessionQRPending      SessionState = "QR_PENDING"
	SessionAuthenticating SessionState = "AUTHENTICATING"
	SessionReady          SessionState = "READY"
	SessionDisconnected   SessionState = "DISCONNECTED"
)

// SessionEventKind identifies a raw event coming from the session binding
type SessionEventKind string

const (
	EventQRCode         SessionEventKind = "qr"
	EventAuthenticating SessionEventKind = "authenticating"
	EventReady          SessionEventKind = "ready"
	EventMessage        SessionEventKind = "message"
	EventDisconnected   SessionEventKind = "disconnected"
)

// SessionEvent is a raw event emitted by a SessionClient
type SessionEvent struct {
	Kind      SessionEventKind
	QRCode    string
	Message   *IncomingMessage
	Reason    string
	LoggedOut bool
}

// SessionClient is the binding to the messaging network
type SessionClient interface {
	// Start connects and begins delivering events to sink. It returns once
	// the connection attempt has been made; events keep arriving afterwards.
	Start(ctx context.Context, sink func(SessionEvent)) error

	// Stop disconnects the session
	Stop()
}

// MediaOptions describes an outgoing media attachment
type MediaOptions struct {
	FileName  string
	MimeType  string
	Caption   string
	QuoteID   string // message to quote, optional
	QuoteFrom string
}

// Messenger sends outbound messages through the session
type Messenger interface {
	// Reply sends a text reply quoting the original message
	Reply(ctx context.Context, msg IncomingMessage, text string) error

	// SendMedia uploads data and sends it as a video message to chatID
	SendMedia(ctx context.Context, chatID string, data []byte, opts MediaOptions) error
}
