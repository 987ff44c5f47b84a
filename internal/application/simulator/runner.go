package simulator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/siteguard/widget-go/internal/application/widget"
	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/entities/embed"
	"github.com/siteguard/widget-go/internal/domain/entities/identity"
	"github.com/siteguard/widget-go/internal/infrastructure/headless"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
	"github.com/siteguard/widget-go/internal/infrastructure/storage"
	"github.com/siteguard/widget-go/internal/infrastructure/telemetry"
	"github.com/siteguard/widget-go/pkg/config"
)

const (
	defaultSettle = 2 * time.Second
	pollInterval  = 10 * time.Millisecond
)

// Result is the outcome of one replay.
type Result struct {
	Scenario string          `json:"scenario"`
	Steps    int             `json:"steps"`
	Unloaded bool            `json:"unloaded"`
	State    widget.Snapshot `json:"state"`
	HTML     string          `json:"html"`
	Duration time.Duration   `json:"duration"`
}

// Runner replays scenarios against a collector.
type Runner struct {
	apiBase string
	client  *http.Client
	logger  *logging.ChanneledLogger
}

// NewRunner creates a runner posting to apiBase. An empty apiBase uses the embed
// configuration or the configured default.
func NewRunner(apiBase string, client *http.Client, logger *logging.ChanneledLogger) *Runner {
	if client == nil {
		client = &http.Client{Timeout: config.RequestTimeout}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runner{apiBase: apiBase, client: client, logger: logger}
}

// Run replays sc. The widget is always closed before Run returns.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	start := time.Now()
	log := r.logger.WithOperation(logging.ChannelWidget, "simulate")

	cfg, err := r.embedConfig(sc)
	if err != nil {
		return nil, err
	}

	durable, closeStore, err := openDurable(sc.Storage)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	beacon := telemetry.NewHTTPBeacon(r.client, config.BeaconQueueSize, r.logger)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
		defer cancel()
		if err := beacon.Close(flushCtx); err != nil {
			log.Warn("Beacon queue not drained", "error", err.Error())
		}
	}()

	host := headless.NewHost(headless.Options{
		URL:          sc.Page.URL,
		Title:        sc.Page.Title,
		Referrer:     sc.Page.Referrer,
		UserAgent:    sc.Page.UserAgent,
		Language:     sc.Page.Language,
		ScreenWidth:  sc.Page.Width,
		ScreenHeight: sc.Page.Height,
		TouchPoints:  sc.Page.TouchPoints,
		Durable:      durable,
		Beacon:       beacon,
	})

	timing := widget.DefaultTiming()
	if sc.Timing.IdleTick > 0 {
		timing.IdleTick = sc.Timing.IdleTick
	}
	if sc.Timing.HeartbeatInterval > 0 {
		timing.HeartbeatInterval = sc.Timing.HeartbeatInterval
	}
	if sc.Timing.BubbleTimeout > 0 {
		timing.BubbleTimeout = sc.Timing.BubbleTimeout
	}

	w, err := widget.New(cfg, host,
		widget.WithTiming(timing),
		widget.WithLogger(r.logger),
		widget.WithHTTPClient(r.client),
		widget.WithDetector(nil),
	)
	if err != nil {
		return nil, fmt.Errorf("start widget: %w", err)
	}
	defer w.Close()

	settle := sc.Timing.Settle
	if settle <= 0 {
		settle = defaultSettle
	}

	res := &Result{Scenario: sc.Name}
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if step.Unload {
			snap, err := w.Snapshot()
			if err != nil {
				return nil, err
			}
			res.State, res.HTML = snap, snap.HTML
			if err := w.Unload(); err != nil && !errors.Is(err, widget.ErrClosed) {
				return nil, fmt.Errorf("step %d unload: %w", i+1, err)
			}
			res.Unloaded = true
			res.Steps++
			break
		}

		if err := r.apply(ctx, w, host, step, timing); err != nil {
			return nil, fmt.Errorf("step %d %s: %w", i+1, step.Action(), err)
		}
		if needsSettle(step) {
			if err := waitSettled(ctx, w, settle); err != nil {
				return nil, fmt.Errorf("step %d %s: %w", i+1, step.Action(), err)
			}
		}
		res.Steps++
		log.Debug("Step applied", "step", i+1, "action", step.Action())
	}

	if !res.Unloaded {
		snap, err := w.Snapshot()
		if err != nil {
			return nil, err
		}
		res.State, res.HTML = snap, snap.HTML
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (r *Runner) apply(ctx context.Context, w *widget.Widget, host *headless.Host, step Step, timing widget.Timing) error {
	switch {
	case step.Scroll != nil:
		return w.Scroll(step.Scroll.Y, step.Scroll.Height, step.Scroll.Viewport)
	case step.Click != nil:
		repeat := step.Click.Repeat
		if repeat < 1 {
			repeat = 1
		}
		for n := 0; n < repeat; n++ {
			if n > 0 && step.Click.Interval > 0 {
				if err := sleep(ctx, step.Click.Interval); err != nil {
					return err
				}
			}
			if err := w.Click(step.Click.X, step.Click.Y, step.Click.Element); err != nil {
				return err
			}
		}
		return nil
	case step.Wait > 0:
		return sleep(ctx, step.Wait)
	case step.Idle > 0:
		// half a tick of slack so the last tick lands inside the wait
		return sleep(ctx, time.Duration(step.Idle)*timing.IdleTick+timing.IdleTick/2)
	case step.MouseOut != nil:
		return w.MouseOut(*step.MouseOut)
	case step.Focus != nil:
		return w.FocusIn(step.Focus.Form, step.Focus.Tag)
	case step.Submit != "":
		return w.Submit(step.Submit)
	case step.Navigate != nil:
		return w.Navigated(host.Navigate(step.Navigate.URL, step.Navigate.Title))
	case step.OpenChat:
		snap, err := w.Snapshot()
		if err != nil {
			return err
		}
		if snap.ChatState() == chat.Closed {
			return w.ToggleLauncher()
		}
		return nil
	case step.CloseChat:
		return w.CloseChat()
	case step.AcceptBubble:
		return w.AcceptBubble()
	case step.DismissBubble:
		return w.DismissBubble()
	case step.AcceptConsent:
		return w.AcceptConsent()
	case step.Send != "":
		return w.SendMessage(step.Send)
	}
	return fmt.Errorf("%w: empty step", ErrInvalidScenario)
}

func (r *Runner) embedConfig(sc *Scenario) (embed.Config, error) {
	var cfg embed.Config
	var err error
	if sc.Embed != "" {
		cfg, err = embed.ParseScriptTag(strings.NewReader(sc.Embed))
	} else {
		cfg, err = embed.Parse(sc.Widget)
	}
	if err != nil {
		return embed.Config{}, fmt.Errorf("widget configuration: %w", err)
	}
	if r.apiBase != "" {
		cfg.APIBase = r.apiBase
	}
	for _, warning := range cfg.Warnings {
		r.logger.Widget().Warn("Embed attribute replaced by default", "warning", warning)
	}
	return cfg, nil
}

func needsSettle(step Step) bool {
	return step.OpenChat || step.AcceptBubble || step.AcceptConsent || step.Send != ""
}

// waitSettled polls until no consent or chat request is outstanding.
func waitSettled(ctx context.Context, w *widget.Widget, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		snap, err := w.Snapshot()
		if err != nil {
			return err
		}
		if snap.ConsentState() != consent.Checking && !snap.Granting && !snap.InFlight {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("widget did not settle within %s", timeout)
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func openDurable(path string) (identity.KeyValueStore, func(), error) {
	if path == "" {
		return storage.NewMemoryStore(), func() {}, nil
	}
	db, err := database.NewConnection(database.DriverSQLite, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open visitor storage: %w", err)
	}
	store, err := storage.NewSQLiteStore(db, "durable")
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}
