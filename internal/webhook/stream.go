package webhook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"smsbridge/internal/domain"
	"smsbridge/internal/metrics"
)

// EventStream broadcasts recognized events to connected websocket clients.
// It is a read-only operator feed: clients receive events, inbound frames
// other than control messages are ignored.
type EventStream struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*streamClient
}

type streamClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // operator endpoint, bind to localhost in production
	},
}

func NewEventStream(logger *slog.Logger) *EventStream {
	return &EventStream{
		logger:  logger,
		clients: make(map[string]*streamClient),
	}
}

// Broadcast sends the event to every connected client. Write failures only
// drop that client's frame; the connection is reaped by its read loop.
func (s *EventStream) Broadcast(ev *domain.RecognizedEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, client := range s.clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			s.logger.Debug("event stream write failed", "client_id", id, "err", err)
		}
	}
}

// ClientCount returns the number of connected stream clients.
func (s *EventStream) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *EventStream) handleUpgrade(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.logger.Error("event stream upgrade failed", "err", err)
		return
	}

	clientID := fmt.Sprintf("%s-%p", r.RemoteAddr, conn)
	s.mu.Lock()
	s.clients[clientID] = &streamClient{conn: conn}
	s.mu.Unlock()
	metrics.StreamClients.Inc()

	s.logger.Info("event stream client connected", "client_id", clientID)

	defer func() {
		s.mu.Lock()
		delete(s.clients, clientID)
		s.mu.Unlock()
		metrics.StreamClients.Dec()
		conn.Close()
		s.logger.Info("event stream client disconnected", "client_id", clientID)
	}()

	// Drain inbound frames until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("event stream read error", "err", err)
			}
			return
		}
	}
}

func (s *EventStream) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, client := range s.clients {
		client.conn.Close()
		delete(s.clients, id)
	}
}
