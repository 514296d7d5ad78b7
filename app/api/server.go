package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/content-pilot/app/monitoring"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())
	r.Use(monitoring.Middleware())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Health and metrics endpoints (always open)
	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", monitoring.Handler())

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/status", handler.GetStatus)
		api.GET("/events", handler.StreamEvents)

		api.GET("/directions", handler.ListDirections)
		api.POST("/directions", handler.CreateDirection)
		api.GET("/directions/:id", handler.GetDirection)
		api.PUT("/directions/:id", handler.UpdateDirection)
		api.DELETE("/directions/:id", handler.DeleteDirection)
		api.POST("/directions/:id/enable", handler.EnableDirection)
		api.POST("/directions/:id/disable", handler.DisableDirection)
		api.POST("/directions/:id/trigger", handler.TriggerDirection)
		api.POST("/directions/:id/reset-count", handler.ResetDirectionCount)
		api.GET("/directions/:id/topics", handler.ListDirectionTopics)

		api.GET("/articles", handler.ListArticles)
		api.POST("/articles/generate", handler.GenerateArticles)
		api.GET("/articles/:id", handler.GetArticle)
		api.PUT("/articles/:id", handler.UpdateArticle)
		api.DELETE("/articles/:id", handler.DeleteArticle)

		api.GET("/tasks", handler.ListTasks)
		api.POST("/tasks", handler.CreateTask)
		api.POST("/tasks/batch", handler.CreateTaskBatch)
		api.GET("/tasks/:id", handler.GetTask)
		api.POST("/tasks/:id/cancel", handler.CancelTask)
		api.POST("/tasks/:id/retry", handler.RetryTask)

		api.GET("/accounts", handler.ListAccounts)
		api.POST("/accounts", handler.CreateAccount)
		api.GET("/accounts/:id", handler.GetAccount)
		api.PUT("/accounts/:id", handler.UpdateAccount)
		api.POST("/accounts/:id/reset-count", handler.ResetAccountCount)

		api.GET("/notifications", handler.ListNotifications)
		api.POST("/notifications/read-all", handler.MarkAllNotificationsRead)
		api.POST("/notifications/:id/read", handler.MarkNotificationRead)
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "Content Pilot",
			"version":     "1.0.0",
			"description": "Autonomous content production and publishing pipeline",
			"endpoints": map[string]string{
				"health":        "/health",
				"metrics":       "/metrics",
				"status":        "/api/status",
				"events":        "/api/events (SSE)",
				"directions":    "/api/directions",
				"articles":      "/api/articles",
				"tasks":         "/api/tasks",
				"accounts":      "/api/accounts",
				"notifications": "/api/notifications",
			},
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
			"documentation": "https://github.com/lysyi3m/content-pilot",
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get API key from X-API-Key header
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
