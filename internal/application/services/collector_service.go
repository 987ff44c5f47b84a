package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/collector"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/domain/repositories"
	"github.com/siteguard/widget-go/internal/infrastructure/messaging"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/performance"
)

var (
	// ErrInvalidRecord is returned for records missing tenant or session.
	ErrInvalidRecord = errors.New("tenant_id and session_id are required")
	// ErrUnknownTenant is returned when a tenant allow-list is configured and the tenant is not on it.
	ErrUnknownTenant = errors.New("unknown tenant")
)

// CollectorService ingests widget telemetry, stores consent and answers chat for the sandbox.
type CollectorService struct {
	telemetry repositories.TelemetryRepository
	consents  repositories.ConsentRepository
	chats     repositories.ChatRepository
	responder *ChatResponder
	publisher messaging.Publisher
	perf      *performance.Tracker
	tenants   map[string]bool
	logger    *logging.ChanneledLogger
	now       func() time.Time
}

// CollectorDeps bundles the collaborators of CollectorService.
type CollectorDeps struct {
	Telemetry repositories.TelemetryRepository
	Consents  repositories.ConsentRepository
	Chats     repositories.ChatRepository
	Responder *ChatResponder
	Publisher messaging.Publisher
	Perf      *performance.Tracker
	// Tenants restricts ingestion to the listed tenants. Empty accepts any tenant.
	Tenants []string
}

// NewCollectorService creates the service.
func NewCollectorService(deps CollectorDeps, logger *logging.ChanneledLogger) *CollectorService {
	if deps.Responder == nil {
		deps.Responder = NewChatResponder()
	}
	if deps.Publisher == nil {
		deps.Publisher = messaging.NopPublisher{}
	}
	if deps.Perf == nil {
		deps.Perf = performance.NewTracker(nil)
	}

	var tenants map[string]bool
	if len(deps.Tenants) > 0 {
		tenants = make(map[string]bool, len(deps.Tenants))
		for _, t := range deps.Tenants {
			tenants[strings.TrimSpace(t)] = true
		}
	}

	return &CollectorService{
		telemetry: deps.Telemetry,
		consents:  deps.Consents,
		chats:     deps.Chats,
		responder: deps.Responder,
		publisher: deps.Publisher,
		perf:      deps.Perf,
		tenants:   tenants,
		logger:    logger,
		now:       time.Now,
	}
}

// Performance returns the operation tracker.
func (s *CollectorService) Performance() *performance.Tracker {
	return s.perf
}

type owned interface {
	Owner() (tenantID, sessionID string)
}

// Ingest validates and stores one telemetry record, then publishes it to the live feed.
func (s *CollectorService) Ingest(payload events.Payload) (string, error) {
	o, ok := payload.(owned)
	if !ok {
		return "", fmt.Errorf("%w: unsupported record", ErrInvalidRecord)
	}
	tenantID, sessionID := o.Owner()
	if err := s.validate(tenantID, sessionID); err != nil {
		return "", err
	}

	marker := s.perf.StartOperation("track:"+string(payload.Kind()), tenantID)
	defer marker.Complete()

	at := s.now()
	var id string
	var err error
	switch rec := payload.(type) {
	case *events.Session:
		id, err = s.telemetry.StoreSession(rec, at)
	case *events.PageView:
		id, err = s.telemetry.StorePageView(rec, at)
	case *events.PageUpdate:
		id, err = s.telemetry.StorePageUpdate(rec, at)
	case *events.Event:
		if rec.EventType == "" {
			err = fmt.Errorf("%w: event_type is required", ErrInvalidRecord)
			break
		}
		marker.AddMetadata("eventType", rec.EventType)
		id, err = s.telemetry.StoreEvent(rec, at)
	case *events.SessionEnd:
		id, err = s.telemetry.StoreSessionEnd(rec, at)
	default:
		err = fmt.Errorf("%w: unsupported kind %s", ErrInvalidRecord, payload.Kind())
	}
	if err != nil {
		marker.SetError(err)
		return "", err
	}
	marker.SetSuccess(true)

	s.logger.WithSession(logging.ChannelCollector, tenantID, sessionID).Debug("Record ingested", "kind", payload.Kind(), "id", id)
	s.publish(id, string(payload.Kind()), tenantID, sessionID, payload, at)
	return id, nil
}

// CheckConsent reports whether accepted consent is recorded for the session.
func (s *CollectorService) CheckConsent(tenantID, sessionID string) (bool, error) {
	if err := s.validate(tenantID, sessionID); err != nil {
		return false, err
	}
	rec, err := s.consents.Find(tenantID, sessionID)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Accepted, nil
}

// RecordConsent stores a consent decision.
func (s *CollectorService) RecordConsent(rec consent.Record) error {
	if err := s.validate(rec.TenantID, rec.SessionID); err != nil {
		return err
	}

	marker := s.perf.StartOperation("consent:record", rec.TenantID)
	defer marker.Complete()

	at := s.now()
	if err := s.consents.Store(&rec, at); err != nil {
		marker.SetError(err)
		return err
	}
	marker.SetSuccess(true)

	s.logger.WithSession(logging.ChannelConsent, rec.TenantID, rec.SessionID).Info("Consent recorded",
		"accepted", rec.Accepted, "termsVersion", rec.TermsVersion)
	s.publish("", "consent", rec.TenantID, rec.SessionID, rec, at)
	return nil
}

// Chat answers a visitor message. It returns consent.ErrRequired when the session has
// no accepted consent.
func (s *CollectorService) Chat(ctx context.Context, req chat.Request, lang locale.Lang) (chat.Reply, error) {
	if err := s.validate(req.TenantID, req.SessionID); err != nil {
		return chat.Reply{}, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return chat.Reply{}, fmt.Errorf("%w: %w", ErrInvalidRecord, chat.ErrEmptyMessage)
	}
	if err := ctx.Err(); err != nil {
		return chat.Reply{}, err
	}

	marker := s.perf.StartOperation("chat:reply", req.TenantID)
	defer marker.Complete()

	granted, err := s.CheckConsent(req.TenantID, req.SessionID)
	if err != nil {
		marker.SetError(err)
		return chat.Reply{}, err
	}
	if !granted {
		marker.SetError(consent.ErrRequired)
		s.logger.WithSession(logging.ChannelChat, req.TenantID, req.SessionID).Info("Chat refused without consent")
		return chat.Reply{}, consent.ErrRequired
	}

	reply := s.responder.Reply(req, lang)
	at := s.now()

	visitor := &collector.Message{
		TenantID:       req.TenantID,
		SessionID:      req.SessionID,
		ConversationID: reply.ConversationID,
		Role:           string(chat.RoleVisitor),
		Text:           req.Message,
		CreatedAt:      at,
	}
	confidence := reply.Confidence
	assistant := &collector.Message{
		TenantID:       req.TenantID,
		SessionID:      req.SessionID,
		ConversationID: reply.ConversationID,
		Role:           string(chat.RoleAssistant),
		Text:           reply.Message,
		Confidence:     &confidence,
		Escalated:      reply.Escalated,
		CreatedAt:      at,
	}
	for _, m := range []*collector.Message{visitor, assistant} {
		if err := s.chats.StoreMessage(m); err != nil {
			marker.SetError(err)
			return chat.Reply{}, err
		}
		s.publish(m.ID, "chat", m.TenantID, m.SessionID, m, at)
	}
	marker.SetSuccess(true)
	marker.AddMetadata("escalated", reply.Escalated)

	if reply.Escalated {
		s.logger.WithSession(logging.ChannelChat, req.TenantID, req.SessionID).Info("Conversation escalated",
			"conversationId", reply.ConversationID)
	}
	return reply, nil
}

// Timeline returns everything recorded for a session. An empty tenantID matches any tenant.
func (s *CollectorService) Timeline(tenantID, sessionID string) (*collector.Timeline, error) {
	if sessionID == "" {
		return nil, ErrInvalidRecord
	}
	tl, err := s.telemetry.FindTimeline(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	consentTenant := tenantID
	if consentTenant == "" && tl.Session != nil {
		consentTenant = tl.Session.TenantID
	}
	if consentTenant != "" {
		rec, err := s.consents.Find(consentTenant, sessionID)
		if err != nil {
			return nil, err
		}
		tl.Consent = rec
	}

	messages, err := s.chats.FindBySession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	tl.Messages = messages
	return tl, nil
}

func (s *CollectorService) validate(tenantID, sessionID string) error {
	if tenantID == "" || sessionID == "" {
		return ErrInvalidRecord
	}
	if s.tenants != nil && !s.tenants[tenantID] {
		s.logger.Collector().Warn("Rejected record for unknown tenant", "tenantId", tenantID)
		return fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
	}
	return nil
}

func (s *CollectorService) publish(id, kind, tenantID, sessionID string, payload any, at time.Time) {
	s.publisher.Publish(collector.LiveRecord{
		ID:         id,
		Kind:       kind,
		TenantID:   tenantID,
		SessionID:  sessionID,
		Payload:    payload,
		ReceivedAt: at,
	})
}
