package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vidbot/pkg/logger"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// LogHandler handles log-related requests
type LogHandler struct {
	logReader *logger.LogReader
}

// NewLogHandler creates a new log handler
func NewLogHandler(logReader *logger.LogReader) *LogHandler {
	return &LogHandler{
		logReader: logReader,
	}
}

// GetLogs handles GET /api/v1/logs
func (h *LogHandler) GetLogs(c *gin.Context) {
	limit := parseLimit(c, defaultLogLimit, maxLogLimit)

	entries, err := h.logReader.ReadLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// SearchLogs handles GET /api/v1/logs/search
func (h *LogHandler) SearchLogs(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	limit := parseLimit(c, defaultLogLimit, maxLogLimit)

	entries, err := h.logReader.SearchLogs(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(entries),
		"entries": entries,
	})
}

// ExportLogs handles GET /api/v1/logs/export
func (h *LogHandler) ExportLogs(c *gin.Context) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename=combined.log")
	c.Header("Content-Type", "text/plain; charset=utf-8")

	c.File(h.logReader.Path())
}
