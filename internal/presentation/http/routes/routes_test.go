package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/siteguard/widget-go/internal/application/container"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
	"github.com/siteguard/widget-go/internal/presentation/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type sandbox struct {
	container *container.Container
	router    *gin.Engine
}

func newSandbox(t *testing.T, limiter *middleware.SessionLimiter, tenants ...string) *sandbox {
	t.Helper()
	c, err := container.NewContainer(container.Options{
		Driver:  database.DriverSQLite,
		DSN:     ":memory:",
		Tenants: tenants,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	if limiter == nil {
		limiter = middleware.NewSessionLimiter(0, 1)
	}
	return &sandbox{container: c, router: SetupRoutes(c, limiter, nil)}
}

func (s *sandbox) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTrackEndpointsStoreRecords(t *testing.T) {
	s := newSandbox(t, nil)
	env := map[string]any{"tenant_id": "t_1", "session_id": "ses_abc"}
	with := func(extra map[string]any) map[string]any {
		out := map[string]any{}
		for k, v := range env {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	for path, body := range map[string]map[string]any{
		"/api/track/session":     with(map[string]any{"visitor_id": "vis_1", "device_type": "desktop", "screen_width": 1920}),
		"/api/track/pageview":    with(map[string]any{"url": "https://shop.example/", "path": "/", "title": "Home"}),
		"/api/track/page-update": with(map[string]any{"path": "/", "time_on_page_seconds": 10, "scroll_depth_percent": 55, "clicks": 2}),
		"/api/track/event":       with(map[string]any{"event_type": "rage_click", "page_path": "/", "metadata": map[string]any{"x": 1}}),
		"/api/track/session-end": with(map[string]any{"duration_seconds": 42}),
	} {
		w := s.do(http.MethodPost, path, body)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, decode(t, w)["id"], path)
	}

	w := s.do(http.MethodGet, "/sandbox/sessions/ses_abc?tenant_id=t_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tl := decode(t, w)
	assert.Equal(t, "vis_1", tl["session"].(map[string]any)["visitor_id"])
	assert.Len(t, tl["pageviews"], 1)
	assert.Len(t, tl["page_updates"], 1)
	assert.Len(t, tl["events"], 1)
	assert.Len(t, tl["session_ends"], 1)

	w = s.do(http.MethodGet, "/sandbox/sessions/ses_none", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrackRejectsBadRecords(t *testing.T) {
	s := newSandbox(t, nil, "t_1")

	w := s.do(http.MethodPost, "/api/track/pageview", map[string]any{"path": "/"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/track/pageview", map[string]any{"tenant_id": "t_2", "session_id": "s", "path": "/"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/track/event", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsentAndChatContract(t *testing.T) {
	s := newSandbox(t, nil)
	chatBody := map[string]any{"tenant_id": "t_1", "session_id": "ses_abc", "message": "hello", "channel": "widget"}

	w := s.do(http.MethodGet, "/api/consent/check?tenant_id=t_1&session_id=ses_abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["has_consent"])

	w = s.do(http.MethodPost, "/api/chat", chatBody)
	assert.Equal(t, http.StatusUnavailableForLegalReasons, w.Code)

	w = s.do(http.MethodPost, "/api/consent/", map[string]any{
		"tenant_id": "t_1", "session_id": "ses_abc", "accepted": true, "terms_version": "1.0",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/consent/check?tenant_id=t_1&session_id=ses_abc", nil)
	assert.Equal(t, true, decode(t, w)["has_consent"])

	w = s.do(http.MethodPost, "/api/chat", chatBody)
	require.Equal(t, http.StatusOK, w.Code)
	reply := decode(t, w)
	assert.NotEmpty(t, reply["message"])
	assert.Contains(t, reply["conversation_id"], "conv_")
	assert.Contains(t, reply, "confidence")
	assert.Equal(t, false, reply["escalated"])

	w = s.do(http.MethodPost, "/api/consent/", map[string]any{"accepted": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitedSessionGets429(t *testing.T) {
	s := newSandbox(t, middleware.NewSessionLimiter(0.001, 1))
	body := map[string]any{"tenant_id": "t_1", "session_id": "ses_abc", "path": "/"}

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/track/pageview", body).Code)
	w := s.do(http.MethodPost, "/api/track/pageview", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	body["session_id"] = "ses_other"
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/track/pageview", body).Code)
}

func TestStatsReportsOperations(t *testing.T) {
	s := newSandbox(t, nil)
	s.do(http.MethodPost, "/api/track/pageview", map[string]any{"tenant_id": "t_1", "session_id": "ses_abc", "path": "/"})

	w := s.do(http.MethodGet, "/sandbox/stats?tenant_id=t_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	perf := decode(t, w)["performance"].(map[string]any)
	assert.Equal(t, "healthy", perf["overallHealth"])
}

func TestLiveFeedStreamsIngestedRecords(t *testing.T) {
	s := newSandbox(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.container.LiveHub.Run(ctx)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sandbox/live?tenant_id=t_1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.container.LiveHub.ClientCount("t_1") == 1 }, 2*time.Second, 10*time.Millisecond)

	s.do(http.MethodPost, "/api/track/pageview", map[string]any{"tenant_id": "t_2", "session_id": "ses_x", "path": "/elsewhere"})
	s.do(http.MethodPost, "/api/track/pageview", map[string]any{"tenant_id": "t_1", "session_id": "ses_abc", "path": "/"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(message, &rec))
	assert.Equal(t, "pageview", rec["kind"])
	assert.Equal(t, "t_1", rec["tenant_id"], "records of other tenants are not delivered")
}
