// Package telemetry delivers widget telemetry to the collector on a best-effort basis.
//
// Delivery is fire-and-forget: no retries, no acknowledgements and no ordering between
// records. A failed send is logged at debug level and dropped, because nothing in the
// widget may block or break the host page for the sake of telemetry completeness.
package telemetry

import (
	"encoding/json"
	"strings"

	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
)

const contentTypeJSON = "application/json"

// Beacon is a fire-and-forget primitive that survives page teardown. SendBeacon reports
// false when the primitive is unavailable or refused the payload.
type Beacon interface {
	SendBeacon(url, contentType string, body []byte) bool
}

// Fallback is the non-blocking request used when the beacon is unavailable.
type Fallback interface {
	Post(url, contentType string, body []byte)
}

// Dispatcher stamps tenant and session on every record and hands it to the beacon,
// falling back to a keepalive request.
type Dispatcher struct {
	baseURL   string
	tenantID  string
	sessionID string
	beacon    Beacon
	fallback  Fallback
	logger    *logging.ChanneledLogger
}

// NewDispatcher creates a dispatcher. beacon may be nil.
func NewDispatcher(baseURL, tenantID, sessionID string, beacon Beacon, fallback Fallback, logger *logging.ChanneledLogger) *Dispatcher {
	return &Dispatcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		tenantID:  tenantID,
		sessionID: sessionID,
		beacon:    beacon,
		fallback:  fallback,
		logger:    logger,
	}
}

// Send delivers one record. It never blocks on the network and never panics.
func (d *Dispatcher) Send(payload events.Payload) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Telemetry().Debug("Telemetry send panicked, dropped", "panic", r)
		}
	}()

	payload.Stamp(d.tenantID, d.sessionID)
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Telemetry().Debug("Telemetry payload encoding failed, dropped", "kind", payload.Kind(), "error", err.Error())
		return
	}

	url := d.baseURL + payload.Kind().Path()
	if d.beacon != nil && d.beacon.SendBeacon(url, contentTypeJSON, body) {
		return
	}
	if d.fallback != nil {
		d.fallback.Post(url, contentTypeJSON, body)
		return
	}
	d.logger.Telemetry().Debug("No delivery primitive available, dropped", "kind", payload.Kind())
}
