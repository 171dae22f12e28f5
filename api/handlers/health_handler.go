package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vidbot/internal/domain"
)

// BotStatus reports whether the bot pipeline is running
type BotStatus interface {
	IsRunning() bool
}

// SessionStatus reports the messaging session state
type SessionStatus interface {
	State() domain.SessionState
}

// HealthHandler handles health check requests
type HealthHandler struct {
	bot      BotStatus
	session  SessionStatus
	activity ActivityCounter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(bot BotStatus, session SessionStatus, activity ActivityCounter) *HealthHandler {
	return &HealthHandler{
		bot:      bot,
		session:  session,
		activity: activity,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Bot     struct {
		Running    bool  `json:"running"`
		ActiveJobs int64 `json:"active_jobs"`
	} `json:"bot"`
	Session struct {
		State domain.SessionState `json:"state"`
	} `json:"session"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Bot.Running = h.bot.IsRunning()
	response.Bot.ActiveJobs = h.activity.ActiveJobs()
	response.Session.State = h.session.State()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready. The service is ready once the session is authenticated.
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.bot.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "bot not running",
		})
		return
	}

	if state := h.session.State(); state != domain.SessionReady {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "session " + string(state),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
