package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/vidbot/internal/domain"
)

const (
	defaultJobLimit = 50
	maxJobLimit     = 500
)

// ActivityCounter exposes in-flight dispatcher counters
type ActivityCounter interface {
	ActiveJobs() int64
	Tracked() int
}

// JobHandler serves read-only views of download jobs
type JobHandler struct {
	repo     domain.JobRepository
	activity ActivityCounter
	logger   *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(repo domain.JobRepository, activity ActivityCounter, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		repo:     repo,
		activity: activity,
		logger:   logger,
	}
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.repo.FindByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		if !domain.ValidateStatus(domain.JobStatus(status)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filters["status"] = status
	}
	if platform := c.Query("platform"); platform != "" {
		if !domain.ValidatePlatform(domain.Platform(platform)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid platform"})
			return
		}
		filters["platform"] = platform
	}
	if chatID := c.Query("chat_id"); chatID != "" {
		filters["chat_id"] = chatID
	}

	limit := parseLimit(c, defaultJobLimit, maxJobLimit)

	jobs, err := h.repo.FindAll(filters, limit)
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// GetStats handles GET /api/v1/jobs/stats
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":    stats,
		"active":  h.activity.ActiveJobs(),
		"tracked": h.activity.Tracked(),
	})
}

// parseLimit reads the limit query parameter, falling back to def and capping at max
func parseLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
