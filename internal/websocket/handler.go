package websocket

import (
	"context"
	"net/http"
	"strings"

	"flowboard/internal/transport/httpdto"
	"flowboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Authenticator resolves a bearer token to a verified user id.
type Authenticator interface {
	Authenticate(token string) (uuid.UUID, error)
}

// ConnectionLimiter throttles handshake attempts per user. Optional.
type ConnectionLimiter interface {
	Allow(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Handler is the connection gateway: it verifies the bearer token and
// either admits the connection into the hub or rejects it before the
// upgrade completes.
type Handler struct {
	auth       Authenticator
	hub        *Hub
	authorizer *ChannelAuthorizer
	limiter    ConnectionLimiter
	log        *logger.Logger
}

func NewHandler(auth Authenticator, hub *Hub, authorizer *ChannelAuthorizer, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{auth: auth, hub: hub, authorizer: authorizer, log: log}
}

// SetConnectionLimiter installs a per-user handshake throttle.
func (h *Handler) SetConnectionLimiter(limiter ConnectionLimiter) {
	h.limiter = limiter
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Connect handles the WebSocket handshake. The token comes from the
// handshake query parameter or the Authorization header; a missing or
// invalid token refuses the connection with no state created.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = extractBearer(c.GetHeader("Authorization"))
	}

	userID, err := h.auth.Authenticate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(c.Request.Context(), userID)
		if err == nil && !allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("connection rate limit exceeded", "RATE_LIMITED"))
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(h.hub, conn, userID, h.authorizer, h.log)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
