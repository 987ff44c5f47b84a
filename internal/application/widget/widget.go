// Package widget composes identity, consent, telemetry, behavior monitoring, the
// proactive engine and the chat panel into one widget instance per page load.
//
// All widget state is owned by a single event-loop goroutine. Host events, ticker
// ticks, the bubble timer and network completions are posted to that loop and run one
// at a time, so no component needs locking.
package widget

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/siteguard/widget-go/internal/application/services"
	"github.com/siteguard/widget-go/internal/domain/entities/behavior"
	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/entities/embed"
	"github.com/siteguard/widget-go/internal/domain/entities/identity"
	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"github.com/siteguard/widget-go/internal/domain/entities/proactive"
	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/infrastructure/backend"
	"github.com/siteguard/widget-go/internal/infrastructure/navigation"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/telemetry"
	"github.com/siteguard/widget-go/pkg/config"
)

// ErrClosed is returned by every call made after Close or Unload.
var ErrClosed = errors.New("widget is closed")

var (
	errNoHost    = errors.New("widget host is required")
	errBootstrap = errors.New("widget bootstrap failed")
)

type phase int

const (
	phaseInit phase = iota
	phaseActive
	phaseClosed
)

// Widget is one embedded widget instance.
type Widget struct {
	cfg    embed.Config
	host   Host
	opts   options
	logger *logging.ChanneledLogger
	lang   locale.Lang

	tasks      chan func()
	mu         sync.RWMutex
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
	loopDone   chan struct{}
	inflight   sync.WaitGroup
	background sync.WaitGroup
	closeOnce  sync.Once
	keepalive  *telemetry.KeepaliveTransport

	// st is only touched by the loop goroutine once New returns.
	st state
}

type state struct {
	phase       phase
	identity    *services.IdentityService
	visitor     identity.Visitor
	session     identity.Session
	dispatcher  *telemetry.Dispatcher
	monitor     *behavior.Monitor
	gate        *consent.Gate
	chat        *chat.Session
	engine      *proactive.Engine
	bubbleTimer *time.Timer
	rendered    string
}

// New initializes a widget for the page the host is showing. A configuration without
// a tenant is fatal: ErrMissingTenant is returned, a diagnostic is logged and nothing
// is rendered.
func New(cfg embed.Config, host Host, opts ...Option) (*Widget, error) {
	o := options{timing: DefaultTiming(), termsVersion: config.TermsVersion}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		o.logger.Widget().Error("Widget not initialized", "error", err.Error())
		return nil, err
	}
	if host == nil {
		o.logger.Widget().Error("Widget not initialized", "error", errNoHost.Error())
		return nil, errNoHost
	}
	o.timing = normalizeTiming(o.timing)

	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = config.APIBase
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	w := &Widget{
		cfg:      cfg,
		host:     host,
		logger:   o.logger,
		tasks:    make(chan func(), 64),
		loopDone: make(chan struct{}),
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	if o.backend == nil {
		o.backend = backend.NewClient(apiBase, httpClient, o.timing.RequestTimeout, o.logger)
	}
	if o.fallback == nil {
		w.keepalive = telemetry.NewKeepaliveTransport(httpClient, o.logger)
		o.fallback = w.keepalive
	}
	w.opts = o

	start := time.Now()
	w.safely("bootstrap", func() { w.bootstrap(apiBase) })
	if w.st.phase != phaseActive {
		w.cancel()
		return nil, errBootstrap
	}

	// the detector compares against the page the monitor started on, so a route change
	// between bootstrap and the detector's first read is still reported
	landing := w.st.monitor.Page()
	initial := navigation.Location{URL: landing.URL, Path: landing.Path, Title: landing.Title}

	go w.run()

	detector := o.detector
	if detector == nil && !o.noDetector {
		detector = navigation.NewPollingDetector(host, o.timing.NavPollInterval)
	}
	if detector != nil {
		w.background.Add(1)
		go func() {
			defer w.background.Done()
			detector.Run(w.ctx, initial, func(loc navigation.Location) { _ = w.Navigated(loc) })
		}()
	}

	w.logger.WithSession(logging.ChannelWidget, cfg.TenantID, w.st.session.ID).Info("Widget initialized",
		"lang", w.lang,
		"position", cfg.Position,
		"newSession", w.st.session.IsNew,
		"duration", time.Since(start))
	return w, nil
}

func (w *Widget) bootstrap(apiBase string) {
	st := &w.st
	w.lang = w.cfg.Language(w.host.Language())

	st.identity = services.NewIdentityService(w.host.DurableStorage(), w.host.SessionStorage(), w.logger)
	st.visitor = st.identity.Visitor()
	st.session = st.identity.Session()

	st.dispatcher = telemetry.NewDispatcher(apiBase, w.cfg.TenantID, st.session.ID, w.host.Beacon(), w.opts.fallback, w.logger)
	st.gate = consent.NewGate()
	st.chat = chat.NewSession()
	st.engine = proactive.NewEngine(st.identity.SessionFlag(identity.ProactiveKey))
	st.monitor = behavior.NewMonitor(w.opts.timing.Thresholds, st.dispatcher, engagement{w: w})

	loc := w.host.Location()
	if st.session.IsNew {
		st.dispatcher.Send(w.sessionRecord(loc))
	}
	st.monitor.Start(behavior.PageView{URL: loc.URL, Path: loc.Path, Title: loc.Title, EnteredAt: time.Now()})
	st.phase = phaseActive
}

func (w *Widget) sessionRecord(loc navigation.Location) *events.Session {
	touchPoints := 0
	if ts, ok := w.host.(TouchScreen); ok {
		touchPoints = ts.MaxTouchPoints()
	}
	c := classify(w.host.UserAgent(), touchPoints)
	u := parseUTM(loc.URL)
	width, height := w.host.Screen()
	return &events.Session{
		VisitorID:    w.st.visitor.ID,
		Referrer:     w.host.Referrer(),
		UTMSource:    u.Source,
		UTMMedium:    u.Medium,
		UTMCampaign:  u.Campaign,
		LandingPage:  loc.URL,
		DeviceType:   c.DeviceType,
		Browser:      c.Browser,
		OS:           c.OS,
		ScreenWidth:  width,
		ScreenHeight: height,
		Language:     w.host.Language(),
	}
}

func (w *Widget) run() {
	defer close(w.loopDone)

	idle := time.NewTicker(w.opts.timing.IdleTick)
	defer idle.Stop()
	heartbeat := time.NewTicker(w.opts.timing.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			w.stopBubbleTimer()
			w.st.phase = phaseClosed
			return
		case task := <-w.tasks:
			w.runTask(task)
		case <-idle.C:
			if w.st.phase == phaseActive {
				w.safely("idle tick", w.st.monitor.Tick)
			}
		case <-heartbeat.C:
			if w.st.phase == phaseActive {
				w.safely("heartbeat", func() { w.st.monitor.Heartbeat(time.Now()) })
			}
		}
	}
}

// runTask runs a queued task unless the page has unloaded.
func (w *Widget) runTask(task func()) {
	if w.st.phase != phaseActive {
		return
	}
	w.safely("task", task)
}

// drain runs the tasks accepted before Close. Close marks the widget closed before
// cancelling, so nothing is queued behind them.
func (w *Widget) drain() {
	for {
		select {
		case task := <-w.tasks:
			w.runTask(task)
		default:
			return
		}
	}
}

// safely runs fn on the loop and re-renders. A panic is logged and swallowed so it
// never reaches the host.
func (w *Widget) safely(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Widget().Error("Recovered from panic in widget handler", "operation", op, "panic", r)
		}
	}()
	fn()
	if w.st.phase == phaseActive {
		w.render()
	}
}

// post queues task on the loop. A nil error means the task will run.
func (w *Widget) post(task func()) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.tasks <- task:
		return nil
	case <-w.ctx.Done():
		return ErrClosed
	}
}

// do runs task on the loop and waits for it.
func (w *Widget) do(task func()) error {
	done := make(chan struct{})
	if err := w.post(func() {
		defer close(done)
		task()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-w.loopDone:
		return ErrClosed
	}
}

// async runs a network call off the loop and posts its completion back.
func (w *Widget) async(op string, call func(ctx context.Context) func()) {
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				w.logger.Widget().Error("Recovered from panic in network call", "operation", op, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(w.ctx, w.opts.timing.RequestTimeout)
		defer cancel()
		if complete := call(ctx); complete != nil {
			_ = w.post(complete)
		}
	}()
}

// Close stops the loop, the navigation detector and any outstanding requests.
func (w *Widget) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		w.cancel()
		<-w.loopDone
		w.background.Wait()
		w.inflight.Wait()
		if w.keepalive != nil {
			ctx, cancel := context.WithTimeout(context.Background(), w.opts.timing.RequestTimeout)
			defer cancel()
			err = w.keepalive.Wait(ctx)
		}
		w.logger.Widget().Info("Widget closed", "tenantId", w.cfg.TenantID)
	})
	return err
}

func normalizeTiming(t Timing) Timing {
	d := DefaultTiming()
	if t.IdleTick <= 0 {
		t.IdleTick = d.IdleTick
	}
	if t.HeartbeatInterval <= 0 {
		t.HeartbeatInterval = d.HeartbeatInterval
	}
	if t.BubbleTimeout <= 0 {
		t.BubbleTimeout = d.BubbleTimeout
	}
	if t.NavPollInterval <= 0 {
		t.NavPollInterval = d.NavPollInterval
	}
	if t.RequestTimeout <= 0 {
		t.RequestTimeout = d.RequestTimeout
	}
	if t.Thresholds == (behavior.Thresholds{}) {
		t.Thresholds = d.Thresholds
	}
	return t
}
