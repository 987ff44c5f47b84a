package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBeacon struct {
	accept bool
	urls   []string
	bodies [][]byte
}

func (b *recordingBeacon) SendBeacon(url, contentType string, body []byte) bool {
	if !b.accept {
		return false
	}
	b.urls = append(b.urls, url)
	b.bodies = append(b.bodies, body)
	return true
}

type recordingFallback struct {
	urls []string
}

func (f *recordingFallback) Post(url, contentType string, body []byte) {
	f.urls = append(f.urls, url)
}

func TestDispatcherPrefersBeaconAndStampsEnvelope(t *testing.T) {
	beacon := &recordingBeacon{accept: true}
	fallback := &recordingFallback{}
	d := NewDispatcher("https://api.example/", "tenant-1", "ses_abc", beacon, fallback, logging.NewNopLogger())

	d.Send(&events.PageUpdate{Path: "/pricing", TimeOnPageSeconds: 12, ScrollDepthPercent: 40, Clicks: 3})

	require.Len(t, beacon.urls, 1)
	assert.Empty(t, fallback.urls)
	assert.Equal(t, "https://api.example/api/track/page-update", beacon.urls[0])

	var body map[string]any
	require.NoError(t, json.Unmarshal(beacon.bodies[0], &body))
	assert.Equal(t, "tenant-1", body["tenant_id"])
	assert.Equal(t, "ses_abc", body["session_id"])
	assert.Equal(t, "/pricing", body["path"])
	assert.EqualValues(t, 12, body["time_on_page_seconds"])
	assert.EqualValues(t, 40, body["scroll_depth_percent"])
	assert.EqualValues(t, 3, body["clicks"])
}

func TestDispatcherFallsBackWhenBeaconRefuses(t *testing.T) {
	fallback := &recordingFallback{}
	d := NewDispatcher("https://api.example", "t", "s", &recordingBeacon{accept: false}, fallback, logging.NewNopLogger())

	d.Send(&events.SessionEnd{DurationSeconds: 5})

	assert.Equal(t, []string{"https://api.example/api/track/session-end"}, fallback.urls)
}

func TestDispatcherWithoutTransportsDoesNotPanic(t *testing.T) {
	d := NewDispatcher("https://api.example", "t", "s", nil, nil, logging.NewNopLogger())
	assert.NotPanics(t, func() { d.Send(&events.Event{EventType: events.TypeIdle}) })
}

func TestHTTPBeaconDeliversAndDrains(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	beacon := NewHTTPBeacon(srv.Client(), 8, logging.NewNopLogger())
	d := NewDispatcher(srv.URL, "t", "s", beacon, nil, logging.NewNopLogger())

	d.Send(&events.PageView{Path: "/"})
	d.Send(&events.Event{EventType: events.TypeFormSubmit, PagePath: "/"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, beacon.Close(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/track/pageview", "/api/track/event"}, paths)
	assert.False(t, beacon.SendBeacon(srv.URL, contentTypeJSON, nil), "closed beacon refuses")
}

func TestKeepaliveTransportSwallowsFailures(t *testing.T) {
	transport := NewKeepaliveTransport(&http.Client{Timeout: time.Second}, logging.NewNopLogger())
	transport.Post("http://127.0.0.1:1/api/track/event", contentTypeJSON, []byte(`{}`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, transport.Wait(ctx))
}
