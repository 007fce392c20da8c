package chat

import (
	"log/slog"
	"net/http"

	"github.com/ageniuscoder/guffgaff/backend/internal/auth"
	"github.com/ageniuscoder/guffgaff/backend/internal/presence"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Options configures the websocket endpoint.
type Options struct {
	JWTSecret string
	// SendBuffer is the number of frames queued per client before it is
	// considered too slow and dropped.
	SendBuffer int
	// AllowedOrigins restricts browser origins. Empty allows any.
	AllowedOrigins []string
}

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(origins) == 0 || origin == "" || lo.Contains(origins, origin)
		},
	}
}

// RegisterWS mounts GET /ws for authenticated clients.
// The token is read from ?token=, an Authorization bearer header, or the
// jwt cookie. Requests without a valid one are refused before upgrading.
func RegisterWS(rg *gin.RouterGroup, registry *presence.Registry, log *slog.Logger, opts Options) {
	upgrader := newUpgrader(opts.AllowedOrigins)

	rg.GET("/ws", func(c *gin.Context) {
		token := auth.TokenFromRequest(c, true)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		cl, err := auth.ParseToken(opts.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug("websocket upgrade failed", "user", cl.UserID, "error", err)
			return
		}

		client := newClient(conn, cl.UserID, registry, log, opts.SendBuffer)
		go client.writePump()
		registry.Register(cl.UserID, client)
		go client.readPump()
	})
}
