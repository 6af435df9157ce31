package controllers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"myfleet/internal/fleet"
	"myfleet/internal/metrics"
	"myfleet/internal/pnl"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

// upgrader configures the WebSocket connection. Origins are checked by the
// CORS layer in front of the router.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type overviewMessage struct {
	OwnerID string    `json:"-"`
	Type    string    `json:"type"`
	Stats   pnl.Stats `json:"stats"`
}

type overviewClient struct {
	conn *websocket.Conn
	send chan overviewMessage
}

// OverviewHub pushes fleet overview stats to every connected client of an
// owner after each change to that owner's fleet.
type OverviewHub struct {
	reg       *fleet.Registry
	mu        sync.Mutex
	clients   map[string]map[*overviewClient]bool
	broadcast chan overviewMessage
}

// NewOverviewHub starts the broadcast loop and subscribes to fleet changes.
func NewOverviewHub(reg *fleet.Registry) *OverviewHub {
	hub := &OverviewHub{
		reg:       reg,
		clients:   make(map[string]map[*overviewClient]bool),
		broadcast: make(chan overviewMessage, 100),
	}
	reg.OnChange(hub.fleetChanged)
	go hub.run()
	return hub
}

func (h *OverviewHub) run() {
	for msg := range h.broadcast {
		h.mu.Lock()
		for cl := range h.clients[msg.OwnerID] {
			select {
			case cl.send <- msg:
			default:
				logrus.WithField("owner_id", msg.OwnerID).Warn("Overview client too slow, dropping update")
			}
		}
		h.mu.Unlock()
	}
}

func (h *OverviewHub) fleetChanged(ownerID string, ws *fleet.Workspace) {
	metrics.FleetMutated()
	if !h.hasClients(ownerID) {
		return
	}
	stats, err := ws.Overview(context.Background())
	if err != nil {
		logrus.WithError(err).WithField("owner_id", ownerID).Warn("Could not compute overview for broadcast")
		return
	}
	h.Publish(ownerID, stats)
}

func (h *OverviewHub) hasClients(ownerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[ownerID]) > 0
}

// Publish queues stats for the owner's clients.
func (h *OverviewHub) Publish(ownerID string, stats pnl.Stats) {
	select {
	case h.broadcast <- overviewMessage{OwnerID: ownerID, Type: "overview", Stats: stats}:
	default:
		logrus.Warn("Overview broadcast channel full, dropping message")
	}
}

func (h *OverviewHub) register(ownerID string, cl *overviewClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ownerID]; !ok {
		h.clients[ownerID] = make(map[*overviewClient]bool)
	}
	h.clients[ownerID][cl] = true
	metrics.OverviewClients(1)
	logrus.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"conn_ptr": fmt.Sprintf("%p", cl.conn),
	}).Info("Overview client registered")
}

func (h *OverviewHub) unregister(ownerID string, cl *overviewClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[ownerID]; ok {
		if _, ok := clients[cl]; !ok {
			return
		}
		delete(clients, cl)
		close(cl.send)
		metrics.OverviewClients(-1)
		if len(clients) == 0 {
			delete(h.clients, ownerID)
		}
	}
	logrus.WithField("owner_id", ownerID).Info("Overview client unregistered")
}

// HandleOverviewWebSocket upgrades an authenticated request and streams the
// owner's overview, starting with the current numbers.
func (h *OverviewHub) HandleOverviewWebSocket(c *gin.Context) {
	owner := ownerID(c)
	stats, err := h.reg.Workspace(owner).Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	cl := &overviewClient{conn: conn, send: make(chan overviewMessage, sendBuffer)}
	cl.send <- overviewMessage{OwnerID: owner, Type: "overview", Stats: stats}
	h.register(owner, cl)

	go h.writeLoop(cl)
	h.readLoop(owner, cl)
}

// readLoop discards client messages and detects disconnects.
func (h *OverviewHub) readLoop(owner string, cl *overviewClient) {
	defer func() {
		h.unregister(owner, cl)
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).WithField("owner_id", owner).Warn("Overview socket closed unexpectedly")
			}
			return
		}
	}
}

func (h *OverviewHub) writeLoop(cl *overviewClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
