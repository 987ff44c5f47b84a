package collector

import (
	"testing"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/collector"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/events"
	schema "github.com/siteguard/widget-go/internal/infrastructure/database"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewConnection(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, schema.NewTableCreator().CreateSchema(db.DB))
	return db
}

func TestTimelineRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLTelemetryRepository(db, logging.NewNopLogger())
	now := time.Now()

	env := events.Envelope{TenantID: "t_1", SessionID: "ses_a"}
	_, err := repo.StoreSession(&events.Session{Envelope: env, VisitorID: "vis_a", DeviceType: "mobile", ScreenWidth: 390}, now)
	require.NoError(t, err)
	_, err = repo.StorePageView(&events.PageView{Envelope: env, URL: "https://shop.example/", Path: "/"}, now)
	require.NoError(t, err)
	_, err = repo.StorePageUpdate(&events.PageUpdate{Envelope: env, Path: "/", TimeOnPageSeconds: 12, ScrollDepthPercent: 40, Clicks: 3}, now)
	require.NoError(t, err)
	_, err = repo.StoreEvent(&events.Event{Envelope: env, EventType: events.TypeRageClick, PagePath: "/", Metadata: map[string]any{"x": 4}}, now)
	require.NoError(t, err)
	_, err = repo.StoreEvent(&events.Event{Envelope: env, EventType: events.TypeIdle, PagePath: "/", Value: "30"}, now)
	require.NoError(t, err)
	_, err = repo.StoreSessionEnd(&events.SessionEnd{Envelope: env, DurationSeconds: 95}, now)
	require.NoError(t, err)

	// another tenant's session with the same id stays separate
	_, err = repo.StorePageView(&events.PageView{Envelope: events.Envelope{TenantID: "t_2", SessionID: "ses_a"}, Path: "/other"}, now)
	require.NoError(t, err)

	tl, err := repo.FindTimeline("t_1", "ses_a")
	require.NoError(t, err)
	require.NotNil(t, tl.Session)
	assert.Equal(t, "vis_a", tl.Session.VisitorID)
	assert.Equal(t, 390, tl.Session.ScreenWidth)
	require.Len(t, tl.PageViews, 1)
	require.Len(t, tl.PageUpdates, 1)
	assert.Equal(t, 40, tl.PageUpdates[0].ScrollDepthPercent)
	require.Len(t, tl.Events, 2)
	assert.Equal(t, events.TypeRageClick, tl.Events[0].EventType)
	assert.EqualValues(t, 4, tl.Events[0].Metadata["x"])
	assert.Equal(t, "30", tl.Events[1].Value)
	require.Len(t, tl.SessionEnds, 1)
	assert.Equal(t, 95, tl.SessionEnds[0].DurationSeconds)

	anyTenant, err := repo.FindTimeline("", "ses_a")
	require.NoError(t, err)
	assert.Len(t, anyTenant.PageViews, 2)

	missing, err := repo.FindTimeline("t_1", "ses_none")
	require.NoError(t, err)
	assert.True(t, missing.Empty())
}

func TestConsentRepository(t *testing.T) {
	repo := NewSQLConsentRepository(openTestDB(t), logging.NewNopLogger())

	rec, err := repo.Find("t_1", "ses_a")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, repo.Store(&consent.Record{TenantID: "t_1", SessionID: "ses_a", Accepted: true, TermsVersion: "1.0"}, time.Now()))
	require.NoError(t, repo.Store(&consent.Record{TenantID: "t_1", SessionID: "ses_a", Accepted: true, TermsVersion: "1.1"}, time.Now()))

	rec, err = repo.Find("t_1", "ses_a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Accepted)
	assert.Equal(t, "1.1", rec.TermsVersion)
}

func TestChatRepository(t *testing.T) {
	repo := NewSQLChatRepository(openTestDB(t), logging.NewNopLogger())
	conf := 0.8

	require.NoError(t, repo.StoreMessage(&collector.Message{TenantID: "t_1", SessionID: "ses_a", ConversationID: "conv_1", Role: "visitor", Text: "hi", CreatedAt: time.Now()}))
	require.NoError(t, repo.StoreMessage(&collector.Message{TenantID: "t_1", SessionID: "ses_a", ConversationID: "conv_1", Role: "assistant", Text: "hello", Confidence: &conf, Escalated: true, CreatedAt: time.Now()}))

	msgs, err := repo.FindBySession("t_1", "ses_a")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Nil(t, msgs[0].Confidence)
	require.NotNil(t, msgs[1].Confidence)
	assert.InDelta(t, 0.8, *msgs[1].Confidence, 1e-9)
	assert.True(t, msgs[1].Escalated)
	assert.False(t, msgs[1].CreatedAt.IsZero())
}
