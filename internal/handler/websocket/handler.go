package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/hub"
	"snsu-notification/internal/service"
)

const registerTimeout = 5 * time.Second

// Authenticator resolves a bearer credential to a stored user.
type Authenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*domain.User, error)
}

// WebSocketHandler authenticates connection attempts, upgrades them and
// registers the resulting clients with the hub.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	auth     Authenticator
}

// NewWebSocketHandler creates the handler. allowedOrigins lists the browser
// origins accepted by the upgrade; "*" or an empty list accepts any.
func NewWebSocketHandler(h *hub.Hub, auth Authenticator, allowedOrigins []string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if auth == nil {
		panic("Authenticator cannot be nil for WebSocketHandler")
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		hub:  h,
		auth: auth,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = true
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin.
		return origin == "" || set[origin]
	}
}

// credential reads the token from the query string or the Authorization header.
func credential(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	return c.GetHeader("Authorization")
}

// HandleConnection serves GET /ws. Authentication happens before the
// upgrade, so a rejected attempt leaves no hub state behind.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	logCtx := logrus.WithField("client_ip", c.ClientIP())

	token := credential(c)
	if token == "" {
		logCtx.Warn("WS Handler: Missing credential")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}
	user, err := h.auth.AuthenticateToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			logCtx.WithError(err).Warn("WS Handler: Authentication failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		} else {
			logCtx.WithError(err).Error("WS Handler: Error authenticating connection")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}
	logCtx = logCtx.WithField("user_id", user.ID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn, user)
	logCtx = logCtx.WithField("conn_id", client.ID())

	ctx, cancel := context.WithTimeout(context.Background(), registerTimeout)
	defer cancel()
	if err := h.hub.Register(ctx, client); err != nil {
		logCtx.WithError(err).Error("WS Handler: Failed to register client")
		// The loop may still process the request; unregistering is idempotent.
		cleanup, stop := context.WithTimeout(context.Background(), registerTimeout)
		_ = h.hub.Unregister(cleanup, client)
		stop()
		client.CloseConn()
		return
	}

	client.Run()
	logCtx.Info("WS Handler: Client joined, pumps started")
}
