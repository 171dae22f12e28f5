package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/vidbot/api/handlers"
	"github.com/yourusername/vidbot/api/middleware"
	"github.com/yourusername/vidbot/internal/domain"
	"github.com/yourusername/vidbot/pkg/logger"
	"github.com/yourusername/vidbot/web"
)

// Dependencies groups everything the HTTP layer reads from
type Dependencies struct {
	Bot      handlers.BotStatus
	Session  handlers.SessionStatus
	Activity handlers.ActivityCounter
	QR       handlers.QRSource
	Jobs     domain.JobRepository
	LogBus   *logger.LogBus
	Logger   *zap.Logger
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.Bot, deps.Session, deps.Activity)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		jobHandler := handlers.NewJobHandler(deps.Jobs, deps.Activity, deps.Logger)
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/stats", jobHandler.GetStats)
			jobs.GET("/:id", jobHandler.GetJob)
		}

		logHandler := handlers.NewLogHandler(deps.LogBus.Reader())
		logs := v1.Group("/logs")
		{
			logs.GET("", logHandler.GetLogs)
			logs.GET("/search", logHandler.SearchLogs)
			logs.GET("/export", logHandler.ExportLogs)
		}

		sessionHandler := handlers.NewSessionHandler(deps.Session, deps.QR)
		v1.GET("/session", sessionHandler.GetSession)
		v1.GET("/session/qr", sessionHandler.GetQRCode)
	}

	wsHandler := handlers.NewLogWebSocketHandler(deps.LogBus, deps.Logger)
	router.GET("/ws/log", wsHandler.HandleWebSocket)

	// Live log page
	router.StaticFS("/static", http.FS(web.GetStaticFS()))
	router.GET("/", serveIndexHTML)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		serveIndexHTML(c)
	})

	return router
}

// serveIndexHTML serves the embedded live log page
func serveIndexHTML(c *gin.Context) {
	content, err := web.IndexHTML()
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to read page: %v", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", content)
}
