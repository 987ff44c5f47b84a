package simulator

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/siteguard/widget-go/internal/application/container"
	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
	"github.com/siteguard/widget-go/internal/presentation/http/middleware"
	"github.com/siteguard/widget-go/internal/presentation/http/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkoutScenario = `
name: checkout
embed: '<script src="https://cdn.example/widget.js" data-tenant="t_demo" data-lang="en" data-name="Ava"></script>'
page:
  url: https://shop.example/?utm_source=news&utm_medium=email
  title: Home
  width: 390
  height: 844
  user_agent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
steps:
  - scroll: {y: 600, height: 2000, viewport: 800}
  - click: {x: 10, y: 20, element: "button#buy", repeat: 5}
  - navigate: {url: /cart, title: Cart}
  - open_chat: true
  - accept_consent: true
  - send: what does it cost?
  - send: can I talk to a human
  - unload: true
`

func newCollector(t *testing.T) (*container.Container, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, err := container.NewContainer(container.Options{Driver: database.DriverSQLite, DSN: ":memory:"}, logging.NewNopLogger())
	require.NoError(t, err)
	srv := httptest.NewServer(routes.SetupRoutes(c, middleware.NewSessionLimiter(0, 1), nil))
	t.Cleanup(func() {
		srv.Close()
		c.Close()
	})
	return c, srv.URL
}

func TestParseRejectsAmbiguousSteps(t *testing.T) {
	_, err := Parse([]byte(`
page: {url: "https://a.example/"}
widget: {tenant: t_1}
steps:
  - {open_chat: true, send: hi}
`))
	assert.ErrorIs(t, err, ErrInvalidScenario)

	_, err = Parse([]byte(`
page: {url: "https://a.example/"}
widget: {tenant: t_1}
steps:
  - unload: true
  - open_chat: true
`))
	assert.ErrorIs(t, err, ErrInvalidScenario)

	_, err = Parse([]byte(`
page: {url: "https://a.example/"}
widget: {tenant: t_1}
steps:
  - teleport: true
`))
	assert.Error(t, err, "unknown fields are rejected")

	sc, err := Parse([]byte(`
page: {url: "https://a.example/"}
widget: {tenant: t_1}
timing: {idle_tick: 5ms}
steps:
  - wait: 20ms
  - mouseout: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, sc.Timing.IdleTick)
	assert.Equal(t, "wait", sc.Steps[0].Action())
	assert.Equal(t, "mouseout", sc.Steps[1].Action())
}

func TestCheckoutScenarioEndToEnd(t *testing.T) {
	c, api := newCollector(t)
	sc, err := Parse([]byte(checkoutScenario))
	require.NoError(t, err)

	res, err := NewRunner(api, nil, nil).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, res.Unloaded)
	assert.Equal(t, 8, res.Steps)
	assert.Equal(t, "open_chatting", res.State.Chat)
	assert.Equal(t, "granted", res.State.Consent)
	require.Len(t, res.State.Transcript, 4)
	assert.True(t, res.State.Transcript[3].Escalated)
	assert.Contains(t, res.HTML, "Ava")

	tl, err := c.CollectorService.Timeline("t_demo", res.State.SessionID)
	require.NoError(t, err)
	require.NotNil(t, tl.Session)
	assert.Equal(t, "news", tl.Session.UTMSource)
	assert.Equal(t, "mobile", tl.Session.DeviceType)
	assert.Equal(t, 390, tl.Session.ScreenWidth)

	var paths []string
	for _, pv := range tl.PageViews {
		paths = append(paths, pv.Path)
	}
	assert.Equal(t, []string{"/", "/cart"}, paths)

	var types []string
	for _, ev := range tl.Events {
		types = append(types, ev.EventType)
	}
	assert.Contains(t, types, events.TypeRageClick)
	assert.Contains(t, types, events.TypeChatOpen)

	require.NotNil(t, tl.Consent)
	assert.True(t, tl.Consent.Accepted)
	assert.Len(t, tl.Messages, 4)
	assert.Len(t, tl.SessionEnds, 1)
	assert.NotEmpty(t, tl.PageUpdates, "navigation and unload flush the page")
}

func TestIdleScenarioShowsProactivePrompt(t *testing.T) {
	_, api := newCollector(t)
	sc, err := Parse([]byte(`
widget: {tenant: t_demo, lang: nl}
page: {url: "https://shop.example/pricing"}
timing: {idle_tick: 5ms}
steps:
  - idle: 35
`))
	require.NoError(t, err)

	res, err := NewRunner(api, nil, nil).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, res.Unloaded)
	assert.True(t, res.State.ProactiveShown)
	assert.Equal(t, "closed", res.State.Chat)
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	_, api := newCollector(t)
	sc, err := Parse([]byte(`
widget: {tenant: t_demo}
page: {url: "https://shop.example/"}
steps:
  - wait: 1h
`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = NewRunner(api, nil, nil).Run(ctx, sc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
