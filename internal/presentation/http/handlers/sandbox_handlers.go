package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/siteguard/widget-go/internal/application/services"
	"github.com/siteguard/widget-go/internal/infrastructure/messaging"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the live feed is a local development aid; CORS already scopes the API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SandboxHandlers serves the inspection endpoints used during local development.
type SandboxHandlers struct {
	collector *services.CollectorService
	hub       *messaging.LiveHub
	logger    *logging.ChanneledLogger
}

// NewSandboxHandlers creates sandbox handlers with injected dependencies
func NewSandboxHandlers(collector *services.CollectorService, hub *messaging.LiveHub, logger *logging.ChanneledLogger) *SandboxHandlers {
	return &SandboxHandlers{
		collector: collector,
		hub:       hub,
		logger:    logger,
	}
}

// Live upgrades GET /sandbox/live to a websocket streaming ingested records.
func (h *SandboxHandlers) Live(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Live().Warn("Websocket upgrade failed", "error", err.Error())
		return
	}
	h.hub.Serve(conn, tenantID)
}

// GetSession handles GET /sandbox/sessions/:id.
func (h *SandboxHandlers) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	tl, err := h.collector.Timeline(c.Query("tenant_id"), sessionID)
	if err != nil {
		h.logger.Collector().Error("Timeline lookup failed", "sessionId", logging.SanitizeSessionID(sessionID), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if tl.Empty() {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, tl)
}

// GetStats handles GET /sandbox/stats.
func (h *SandboxHandlers) GetStats(c *gin.Context) {
	snap := h.collector.Performance().TakeSnapshot(c.Query("tenant_id"))
	c.JSON(http.StatusOK, gin.H{
		"performance": snap,
		"liveClients": h.hub.ClientCount(c.Query("tenant_id")),
	})
}

// Health handles GET /health.
func (h *SandboxHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
