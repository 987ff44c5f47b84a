package widget

import (
	"net/http"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/behavior"
	"github.com/siteguard/widget-go/internal/infrastructure/navigation"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/telemetry"
	"github.com/siteguard/widget-go/pkg/config"
)

// Timing holds the wall-clock settings of one widget instance.
type Timing struct {
	IdleTick          time.Duration
	HeartbeatInterval time.Duration
	BubbleTimeout     time.Duration
	NavPollInterval   time.Duration
	RequestTimeout    time.Duration
	Thresholds        behavior.Thresholds
}

// DefaultTiming reads the configured defaults.
func DefaultTiming() Timing {
	return Timing{
		IdleTick:          config.IdleTick,
		HeartbeatInterval: config.HeartbeatInterval,
		BubbleTimeout:     config.BubbleTimeout,
		NavPollInterval:   config.NavPollInterval,
		RequestTimeout:    config.RequestTimeout,
		Thresholds: behavior.Thresholds{
			RageClickWindow:     config.RageClickWindow,
			RageClickThreshold:  config.RageClickThreshold,
			IdleThresholdTicks:  config.IdleThresholdTicks,
			ExitIntentThreshold: config.ExitIntentThreshold,
		},
	}
}

type options struct {
	timing       Timing
	logger       *logging.ChanneledLogger
	backend      Backend
	fallback     telemetry.Fallback
	httpClient   *http.Client
	detector     navigation.Detector
	noDetector   bool
	termsVersion string
}

// Option customizes a widget instance.
type Option func(*options)

// WithTiming overrides the timing defaults.
func WithTiming(t Timing) Option {
	return func(o *options) { o.timing = t }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.ChanneledLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackend replaces the HTTP consent and chat client.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithFallback replaces the keepalive telemetry transport.
func WithFallback(f telemetry.Fallback) Option {
	return func(o *options) { o.fallback = f }
}

// WithHTTPClient sets the client used by the default backend and fallback.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithDetector selects the SPA navigation strategy. Passing nil disables detection,
// leaving the host to call Navigated itself.
func WithDetector(d navigation.Detector) Option {
	return func(o *options) {
		o.detector = d
		o.noDetector = d == nil
	}
}

// WithTermsVersion sets the terms version recorded with consent.
func WithTermsVersion(v string) Option {
	return func(o *options) { o.termsVersion = v }
}
