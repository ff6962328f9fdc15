// internal/realtime/websocket.go
package realtime

import (
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
)

// WebSocketConn wraps websocket.Conn so hub.go stays free of the websocket import.
type WebSocketConn struct {
	Conn *websocket.Conn
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

// Serve pumps hub frames to the socket and blocks reading until the peer
// goes away, then unregisters the client.
func (h *Hub) Serve(client *Client) {
	h.RegisterClient(client)
	defer h.UnregisterClient(client)

	c := client.Conn.Conn
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debugf("websocket write for %s: %v", client.UserID, err)
				return
			}
		}
	}()

	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			log.Debugf("websocket read for %s: %v", client.UserID, err)
			return
		}
		if t, _ := payload["type"].(string); t == "ping" {
			select {
			case client.Send <- []byte(`{"type":"pong","data":null}`):
			default:
			}
		}
	}
}
