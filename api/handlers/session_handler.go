package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vidbot/internal/domain"
)

// QRSource exposes the pairing code artifact
type QRSource interface {
	Path() string
	Available() bool
}

// SessionHandler reports session state and serves the pairing QR code
type SessionHandler struct {
	session SessionStatus
	qr      QRSource
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(session SessionStatus, qr QRSource) *SessionHandler {
	return &SessionHandler{
		session: session,
		qr:      qr,
	}
}

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	state := h.session.State()
	c.JSON(http.StatusOK, gin.H{
		"state":        state,
		"qr_available": state == domain.SessionQRPending && h.qr.Available(),
	})
}

// GetQRCode handles GET /api/v1/session/qr
func (h *SessionHandler) GetQRCode(c *gin.Context) {
	if h.session.State() != domain.SessionQRPending || !h.qr.Available() {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pairing code pending"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.File(h.qr.Path())
}
