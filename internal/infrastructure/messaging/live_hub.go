package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siteguard/widget-go/internal/domain/entities/collector"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxReadSize    = 512
	clientBuffer   = 64
	broadcastQueue = 256
)

// LiveClient is one connected live feed subscriber. An empty TenantID subscribes to
// every tenant.
type LiveClient struct {
	Conn     *websocket.Conn
	TenantID string
	Send     chan []byte
}

// LiveHub manages live feed subscribers and fans ingested records out to them.
type LiveHub struct {
	tenantClients map[string]map[*LiveClient]bool
	register      chan *LiveClient
	unregister    chan *LiveClient
	broadcast     chan collector.LiveRecord
	done          chan struct{}
	logger        *logging.ChanneledLogger
	mu            sync.RWMutex
}

// NewLiveHub creates a hub. Run must be started before clients are served.
func NewLiveHub(logger *logging.ChanneledLogger) *LiveHub {
	return &LiveHub{
		tenantClients: make(map[string]map[*LiveClient]bool),
		register:      make(chan *LiveClient),
		unregister:    make(chan *LiveClient),
		broadcast:     make(chan collector.LiveRecord, broadcastQueue),
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing every client.
func (h *LiveHub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.tenantClients[client.TenantID]; !ok {
				h.tenantClients[client.TenantID] = make(map[*LiveClient]bool)
			}
			h.tenantClients[client.TenantID][client] = true
			h.mu.Unlock()
			h.logger.WithTenant(logging.ChannelLive, client.TenantID).Info("Live client registered")

		case client := <-h.unregister:
			h.remove(client)
			h.logger.WithTenant(logging.ChannelLive, client.TenantID).Info("Live client unregistered")

		case record := <-h.broadcast:
			h.deliver(record)

		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.tenantClients {
				for client := range clients {
					close(client.Send)
				}
			}
			h.tenantClients = make(map[string]map[*LiveClient]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Publish implements Publisher. Records are dropped when the hub is backed up.
func (h *LiveHub) Publish(record collector.LiveRecord) {
	select {
	case h.broadcast <- record:
	default:
		h.logger.Live().Warn("Live feed backed up, dropping record", "kind", record.Kind, "tenantId", record.TenantID)
	}
}

// Serve attaches a websocket connection to the hub and blocks until it disconnects.
func (h *LiveHub) Serve(conn *websocket.Conn, tenantID string) {
	client := &LiveClient{Conn: conn, TenantID: tenantID, Send: make(chan []byte, clientBuffer)}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(client)
	h.readPump(client)
}

// ClientCount returns the number of subscribers for a tenant.
func (h *LiveHub) ClientCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenantClients[tenantID])
}

func (h *LiveHub) remove(client *LiveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.tenantClients[client.TenantID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)
			if len(clients) == 0 {
				delete(h.tenantClients, client.TenantID)
			}
		}
	}
}

func (h *LiveHub) deliver(record collector.LiveRecord) {
	message, err := json.Marshal(record)
	if err != nil {
		h.logger.Live().Error("Failed to encode live record", "kind", record.Kind, "error", err.Error())
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, key := range []string{record.TenantID, ""} {
		for client := range h.tenantClients[key] {
			select {
			case client.Send <- message:
			default:
			}
		}
		if record.TenantID == "" {
			break
		}
	}
}

func (h *LiveHub) readPump(client *LiveClient) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxReadSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHub) writePump(client *LiveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
