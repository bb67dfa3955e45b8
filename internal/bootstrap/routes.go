package bootstrap

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	httpHandler "snsu-notification/internal/handler/http"
	wsHandler "snsu-notification/internal/handler/websocket"
	"snsu-notification/internal/hub"
	"snsu-notification/internal/middleware"
)

// requestIDHeader carries the per-request correlation id.
const requestIDHeader = "X-Request-ID"

func newEngine(cfg *Config, log *logrus.Logger, svc services, h *hub.Hub) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if err := httpHandler.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	authHandler := httpHandler.NewAuthHandler(svc.auth, h)
	userHandler := httpHandler.NewUserHandler(svc.users, cfg.MaxFileSize)
	notificationHandler := httpHandler.NewNotificationHandler(svc.notifications, svc.calendar, cfg.MaxFileSize)
	messageHandler := httpHandler.NewMessageHandler(svc.chat, svc.users, h)
	mediaHandler := httpHandler.NewMediaHandler(svc.media)
	socketHandler := wsHandler.NewWebSocketHandler(h, svc.auth, cfg.CORSOrigins)

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxFileSize
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.CORSOrigins))

	requireAuth := middleware.Auth(svc.auth)
	staff := middleware.RequireRole(domain.RoleAdmin, domain.RoleTeacher)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(svc.presence, cfg.RateLimitMax, cfg.RateLimitWindow))
	api.GET("/health", healthHandler(h))

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", requireAuth, authHandler.Logout)
	}

	userRoutes := api.Group("/users", requireAuth)
	{
		userRoutes.GET("", userHandler.List)
		userRoutes.GET("/:id", userHandler.Get)
		userRoutes.POST("", adminOnly, userHandler.Create)
		userRoutes.PUT("/:id", adminOnly, userHandler.Update)
		userRoutes.DELETE("/:id", adminOnly, userHandler.Delete)
		userRoutes.PUT("/profile/update", userHandler.UpdateProfile)
		userRoutes.POST("/profile/password", userHandler.ChangePassword)
		userRoutes.POST("/profile/picture", userHandler.UploadProfilePicture)
	}

	notificationRoutes := api.Group("/notifications", requireAuth)
	{
		notificationRoutes.GET("", notificationHandler.List)
		notificationRoutes.GET("/:id", notificationHandler.Get)
		notificationRoutes.POST("", staff, notificationHandler.Create)
		notificationRoutes.PUT("/:id", staff, notificationHandler.Update)
		notificationRoutes.DELETE("/:id", staff, notificationHandler.Delete)
	}
	api.GET("/calendar", requireAuth, notificationHandler.Calendar)

	messageRoutes := api.Group("/messages", requireAuth)
	{
		messageRoutes.GET("", messageHandler.List)
		messageRoutes.GET("/conversations", messageHandler.Conversations)
		messageRoutes.GET("/:id", messageHandler.Thread)
		messageRoutes.POST("", messageHandler.Send)
		messageRoutes.PUT("/:id/read", messageHandler.MarkRead)
		messageRoutes.DELETE("/:id/delete-for-me", messageHandler.DeleteForMe)
		messageRoutes.DELETE("/:id/delete-for-everyone", messageHandler.DeleteForEveryone)
	}

	// Images are referenced from <img> tags, which cannot send a token.
	api.GET("/media/:id", mediaHandler.Get)

	router.GET("/ws", socketHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router, nil
}

func healthHandler(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "OK",
			"timestamp":        time.Now().UTC().Format(time.RFC3339),
			"connectedClients": h.ClientCount(),
		})
	}
}

// CORSMiddleware answers preflight requests and echoes allowed origins.
// A "*" entry allows every origin.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one line per request and tags it with a request id.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		statusCode := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  time.Since(startTime).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
			"request_id":  requestID,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
			return
		}
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
