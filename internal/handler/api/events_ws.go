package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"FinKPI/internal/domain/models"
	domrepo "FinKPI/internal/domain/repository"
	applogger "FinKPI/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// WSMessage is the envelope of every frame pushed to dashboards.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventHub pushes KPI refresh events to connected dashboards over websocket.
// It is an EventPublisher, so the calculator can fan out to it directly.
type EventHub struct {
	upgrader websocket.Upgrader
	log      *applogger.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	closed  bool
}

var _ domrepo.EventPublisher = (*EventHub)(nil)

func NewEventHub(l *applogger.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin, same as the CORS policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     l,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *EventHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/events", h.Serve)
}

// Serve upgrades the request and keeps the connection until the client leaves.
// Client frames are read and discarded so pongs and close frames are processed.
func (h *EventHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	wmu := &sync.Mutex{}
	h.clients[conn] = wmu
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("websocket client connected", applogger.String("remote", c.RealIP()), applogger.Int("clients", n))

	done := make(chan struct{})
	go h.ping(conn, wmu, done)

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.drop(conn)
	return nil
}

func (h *EventHub) ping(conn *websocket.Conn, wmu *sync.Mutex, done <-chan struct{}) {
	t := time.NewTicker(wsPingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			wmu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *EventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

// Clients returns the number of connected dashboards.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishRefreshed broadcasts ev as a "kpi_refreshed" message. Clients that
// cannot be written to are dropped.
func (h *EventHub) PublishRefreshed(_ context.Context, ev *models.KpiRefreshed) error {
	data, err := json.Marshal(WSMessage{Type: "kpi_refreshed", Payload: ev})
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn, m := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, m)
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutexes[i].Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()
		if err != nil {
			h.log.Warn("websocket send failed", applogger.Error(err))
			h.drop(conn)
		}
	}
	return nil
}

// Close disconnects every client and refuses new ones.
func (h *EventHub) Close() error {
	h.mu.Lock()
	h.closed = true
	conns := h.clients
	h.clients = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()

	for conn, m := range conns {
		m.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(wsWriteWait))
		m.Unlock()
		_ = conn.Close()
	}
	return nil
}
