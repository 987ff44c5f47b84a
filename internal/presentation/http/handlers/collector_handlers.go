// Package handlers provides HTTP handlers for the sandbox collector endpoints
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/siteguard/widget-go/internal/application/services"
	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/presentation/http/middleware"
)

// retryAfterSeconds is suggested to clients that hit the rate limit.
const retryAfterSeconds = "1"

// ConsentRequest is the body of POST /api/consent/.
type ConsentRequest struct {
	TenantID     string `json:"tenant_id" binding:"required"`
	SessionID    string `json:"session_id" binding:"required"`
	Accepted     bool   `json:"accepted"`
	TermsVersion string `json:"terms_version"`
}

// CollectorHandlers serves the widget-facing track, consent and chat endpoints.
type CollectorHandlers struct {
	collector *services.CollectorService
	limiter   *middleware.SessionLimiter
	logger    *logging.ChanneledLogger
}

// NewCollectorHandlers creates collector handlers with injected dependencies
func NewCollectorHandlers(collector *services.CollectorService, limiter *middleware.SessionLimiter, logger *logging.ChanneledLogger) *CollectorHandlers {
	return &CollectorHandlers{
		collector: collector,
		limiter:   limiter,
		logger:    logger,
	}
}

// Track returns the handler for POST /api/track/<kind>.
func (h *CollectorHandlers) Track(kind events.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := newPayload(kind)
		if payload == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown record kind"})
			return
		}
		if err := c.ShouldBindJSON(payload); err != nil {
			h.logger.Collector().Debug("Malformed track body", "kind", kind, "error", err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}

		tenantID, sessionID := payload.(interface{ Owner() (string, string) }).Owner()
		if !h.allow(c, tenantID, sessionID) {
			return
		}

		id, err := h.collector.Ingest(payload)
		if err != nil {
			h.writeError(c, tenantID, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
	}
}

// CheckConsent handles GET /api/consent/check.
func (h *CollectorHandlers) CheckConsent(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	sessionID := c.Query("session_id")

	granted, err := h.collector.CheckConsent(tenantID, sessionID)
	if err != nil {
		h.writeError(c, tenantID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"has_consent": granted})
}

// RecordConsent handles POST /api/consent/.
func (h *CollectorHandlers) RecordConsent(c *gin.Context) {
	var req ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id and session_id are required"})
		return
	}
	if !h.allow(c, req.TenantID, req.SessionID) {
		return
	}

	err := h.collector.RecordConsent(consent.Record{
		TenantID:     req.TenantID,
		SessionID:    req.SessionID,
		Accepted:     req.Accepted,
		TermsVersion: req.TermsVersion,
	})
	if err != nil {
		h.writeError(c, req.TenantID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Chat handles POST /api/chat. A session without consent gets HTTP 451.
func (h *CollectorHandlers) Chat(c *gin.Context) {
	start := time.Now()

	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if !h.allow(c, req.TenantID, req.SessionID) {
		return
	}

	lang := locale.Resolve(c.GetHeader("Accept-Language"))
	reply, err := h.collector.Chat(c.Request.Context(), req, lang)
	if err != nil {
		h.writeError(c, req.TenantID, err)
		return
	}

	h.logger.Chat().Info("Chat request completed",
		"tenantId", req.TenantID,
		"conversationId", reply.ConversationID,
		"escalated", reply.Escalated,
		"duration", time.Since(start))
	c.JSON(http.StatusOK, reply)
}

func (h *CollectorHandlers) allow(c *gin.Context, tenantID, sessionID string) bool {
	if h.limiter == nil || h.limiter.Allow(tenantID+":"+sessionID) {
		return true
	}
	h.logger.Collector().Warn("Rate limit exceeded", "tenantId", tenantID, "sessionId", logging.SanitizeSessionID(sessionID))
	c.Header("Retry-After", retryAfterSeconds)
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	return false
}

func (h *CollectorHandlers) writeError(c *gin.Context, tenantID string, err error) {
	switch {
	case errors.Is(err, consent.ErrRequired):
		c.JSON(http.StatusUnavailableForLegalReasons, gin.H{"error": "consent required"})
	case errors.Is(err, services.ErrUnknownTenant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.LogError(logging.ChannelCollector, c.FullPath(), err, tenantID, map[string]any{"method": c.Request.Method})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func newPayload(kind events.Kind) events.Payload {
	switch kind {
	case events.KindSession:
		return &events.Session{}
	case events.KindPageView:
		return &events.PageView{}
	case events.KindPageUpdate:
		return &events.PageUpdate{}
	case events.KindEvent:
		return &events.Event{}
	case events.KindSessionEnd:
		return &events.SessionEnd{}
	}
	return nil
}
