package services

import (
	"context"
	"sync"
	"testing"

	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/collector"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"github.com/siteguard/widget-go/internal/domain/events"
	schema "github.com/siteguard/widget-go/internal/infrastructure/database"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	store "github.com/siteguard/widget-go/internal/infrastructure/persistence/collector"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	records []collector.LiveRecord
}

func (p *recordingPublisher) Publish(r collector.LiveRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r)
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, r := range p.records {
		out = append(out, r.Kind)
	}
	return out
}

func newCollector(t *testing.T, tenants ...string) (*CollectorService, *recordingPublisher) {
	t.Helper()
	db, err := database.NewConnection(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, schema.NewTableCreator().CreateSchema(db.DB))

	logger := logging.NewNopLogger()
	pub := &recordingPublisher{}
	svc := NewCollectorService(CollectorDeps{
		Telemetry: store.NewSQLTelemetryRepository(db, logger),
		Consents:  store.NewSQLConsentRepository(db, logger),
		Chats:     store.NewSQLChatRepository(db, logger),
		Publisher: pub,
		Tenants:   tenants,
	}, logger)
	return svc, pub
}

func TestIngestValidatesAndPublishes(t *testing.T) {
	svc, pub := newCollector(t)

	_, err := svc.Ingest(&events.PageView{Path: "/"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = svc.Ingest(&events.Event{Envelope: events.Envelope{TenantID: "t_1", SessionID: "ses_a"}})
	assert.ErrorIs(t, err, ErrInvalidRecord, "event_type is required")

	id, err := svc.Ingest(&events.PageView{Envelope: events.Envelope{TenantID: "t_1", SessionID: "ses_a"}, Path: "/"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []string{"pageview"}, pub.kinds())

	snap := svc.Performance().TakeSnapshot("t_1")
	ops := map[string]int{}
	for _, op := range snap.Operations {
		ops[op.Operation] = op.Failures
	}
	assert.Equal(t, map[string]int{"track:event": 1, "track:pageview": 0}, ops)
}

func TestIngestRejectsUnknownTenant(t *testing.T) {
	svc, _ := newCollector(t, "t_allowed")

	_, err := svc.Ingest(&events.PageView{Envelope: events.Envelope{TenantID: "t_other", SessionID: "ses_a"}, Path: "/"})
	assert.ErrorIs(t, err, ErrUnknownTenant)

	_, err = svc.Ingest(&events.PageView{Envelope: events.Envelope{TenantID: "t_allowed", SessionID: "ses_a"}, Path: "/"})
	assert.NoError(t, err)
}

func TestChatRequiresConsent(t *testing.T) {
	svc, _ := newCollector(t)
	req := chat.Request{TenantID: "t_1", SessionID: "ses_a", Message: "hello", Channel: "widget"}

	_, err := svc.Chat(context.Background(), req, locale.English)
	assert.ErrorIs(t, err, consent.ErrRequired)

	require.NoError(t, svc.RecordConsent(consent.Record{TenantID: "t_1", SessionID: "ses_a", Accepted: true, TermsVersion: "1.0"}))
	ok, err := svc.CheckConsent("t_1", "ses_a")
	require.NoError(t, err)
	assert.True(t, ok)

	reply, err := svc.Chat(context.Background(), req, locale.English)
	require.NoError(t, err)
	assert.Contains(t, reply.ConversationID, "conv_")
	assert.False(t, reply.Escalated)

	req.ConversationID = reply.ConversationID
	req.Message = "Can I talk to a human please"
	escalated, err := svc.Chat(context.Background(), req, locale.English)
	require.NoError(t, err)
	assert.True(t, escalated.Escalated)
	assert.Equal(t, reply.ConversationID, escalated.ConversationID)

	tl, err := svc.Timeline("t_1", "ses_a")
	require.NoError(t, err)
	require.NotNil(t, tl.Consent)
	assert.Equal(t, "1.0", tl.Consent.TermsVersion)
	require.Len(t, tl.Messages, 4)
	assert.Equal(t, "visitor", tl.Messages[0].Role)
	assert.Equal(t, "assistant", tl.Messages[1].Role)
	assert.True(t, tl.Messages[3].Escalated)
}

func TestDeclinedConsentStillBlocksChat(t *testing.T) {
	svc, _ := newCollector(t)
	require.NoError(t, svc.RecordConsent(consent.Record{TenantID: "t_1", SessionID: "ses_a", Accepted: false, TermsVersion: "1.0"}))

	_, err := svc.Chat(context.Background(), chat.Request{TenantID: "t_1", SessionID: "ses_a", Message: "hi"}, locale.Dutch)
	assert.ErrorIs(t, err, consent.ErrRequired)
}

func TestEmptyChatMessageIsInvalid(t *testing.T) {
	svc, _ := newCollector(t)
	_, err := svc.Chat(context.Background(), chat.Request{TenantID: "t_1", SessionID: "ses_a", Message: "  "}, locale.Dutch)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
}

func TestResponderLanguagesAndKeywords(t *testing.T) {
	r := NewChatResponder()

	nl := r.Reply(chat.Request{Message: "Wat zijn de kosten?"}, locale.Dutch)
	assert.Contains(t, nl.Message, "euro")
	assert.Greater(t, nl.Confidence, 0.5)

	fr := r.Reply(chat.Request{Message: "Je veux parler à un conseiller"}, locale.French)
	assert.True(t, fr.Escalated)

	unknown := r.Reply(chat.Request{Message: "blue"}, locale.Lang("de"))
	assert.Equal(t, fallbackReply[locale.Default], unknown.Message)
	assert.Less(t, unknown.Confidence, 0.5)
}
