package socket

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trackroom/internal/config"
	"trackroom/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict origin in prod
	},
}

// WSHandler upgrades the connection and starts its pumps. The connection is
// anonymous until it sends a join-room with a credential.
func WSHandler(hub *Hub, cfg config.SocketConfig, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		connID := uuid.NewString()
		client := NewClient(hub, conn, cfg, logger, connID)

		metrics.ConnectionsTotal.Inc()
		metrics.ConnectedClients.Inc()

		go client.WritePump()
		go client.Run()
	}
}
