package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/pkg/jwt"
	"intakeflow/internal/pkg/response"
)

// StatusSource supplies the snapshot sent when a client connects.
type StatusSource interface {
	ProcessingStatus(ctx context.Context, fileID string) (*enrichment.ProcessingStatus, error)
}

type Handler struct {
	hub      *Hub
	source   StatusSource
	tokens   *jwt.Service
	required bool
	upgrader websocket.Upgrader
}

// NewHandler builds the websocket endpoint. Browsers cannot set headers on
// websocket requests, so the token travels as ?token=. Origins are checked
// against allowedOrigins unless it is empty.
func NewHandler(hub *Hub, source StatusSource, tokens *jwt.Service, required bool, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:      hub,
		source:   source,
		tokens:   tokens,
		required: required,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
	}
}

// Watch upgrades GET /ws/files/:id and streams status events for that file.
func (h *Handler) Watch(c *gin.Context) {
	if h.required {
		token := c.Query("token")
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_TOKEN_MISSING", "token query parameter is required")
			return
		}
		if _, err := h.tokens.ValidateToken(token); err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}
	}

	fileID := c.Param("id")
	var initial []byte
	if ps, err := h.source.ProcessingStatus(c.Request.Context(), fileID); err == nil {
		initial, _ = json.Marshal(EventFromStatus(ps))
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Warn("websocket upgrade failed", "file_id", fileID, "error", err)
		return
	}
	h.hub.serve(conn, fileID, initial)
}

func RegisterRoutes(r gin.IRoutes, h *Handler) {
	r.GET("/ws/files/:id", h.Watch)
}
