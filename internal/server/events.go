package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/bus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventGateway fans bus events out to connected websocket clients.
type eventGateway struct {
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan bus.Event
}

func newEventGateway(eventBus *bus.EventBus, logger *logrus.Logger) *eventGateway {
	gw := &eventGateway{
		logger:  logger,
		clients: make(map[*websocket.Conn]chan bus.Event),
	}

	eventBus.SubscribeAll(gw.broadcast)
	return gw
}

func (gw *eventGateway) broadcast(event bus.Event) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	for conn, ch := range gw.clients {
		select {
		case ch <- event:
		default:
			gw.logger.Warnf("Event client %s slow, dropping event", conn.RemoteAddr())
		}
	}
}

func (gw *eventGateway) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		gw.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	ch := make(chan bus.Event, 64)
	gw.mu.Lock()
	gw.clients[conn] = ch
	gw.mu.Unlock()

	gw.logger.Debugf("Event client connected: %s", conn.RemoteAddr())
	go gw.writeLoop(conn, ch)
	go gw.readLoop(conn)
}

func (gw *eventGateway) writeLoop(conn *websocket.Conn, ch chan bus.Event) {
	defer gw.drop(conn)

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			gw.logger.Errorf("Failed to encode event: %v", err)
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readLoop drains client frames so close handshakes are processed.
func (gw *eventGateway) readLoop(conn *websocket.Conn) {
	defer gw.drop(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (gw *eventGateway) drop(conn *websocket.Conn) {
	gw.mu.Lock()
	if ch, ok := gw.clients[conn]; ok {
		delete(gw.clients, conn)
		close(ch)
	}
	gw.mu.Unlock()

	conn.Close()
}
