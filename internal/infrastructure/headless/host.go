// Package headless provides a browserless widget host. The simulator drives widgets
// through it and tests use it to observe telemetry and rendering.
package headless

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"github.com/siteguard/widget-go/internal/domain/entities/identity"
	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/infrastructure/navigation"
	"github.com/siteguard/widget-go/internal/infrastructure/storage"
	"github.com/siteguard/widget-go/internal/infrastructure/telemetry"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Options describes the simulated page.
type Options struct {
	URL          string
	Title        string
	Referrer     string
	UserAgent    string
	Language     string
	ScreenWidth  int
	ScreenHeight int
	TouchPoints  int

	// Durable and Session default to fresh in-memory stores.
	Durable identity.KeyValueStore
	Session identity.KeyValueStore
	// Beacon may be nil to simulate a host without one.
	Beacon telemetry.Beacon
}

// Host is a simulated page.
type Host struct {
	mu       sync.RWMutex
	location navigation.Location
	opts     Options
	html     string
	renders  int
}

// NewHost creates a host showing opts.URL.
func NewHost(opts Options) *Host {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Language == "" {
		opts.Language = "nl-NL"
	}
	if opts.ScreenWidth == 0 && opts.ScreenHeight == 0 {
		opts.ScreenWidth, opts.ScreenHeight = 1920, 1080
	}
	if opts.Durable == nil {
		opts.Durable = storage.NewMemoryStore()
	}
	if opts.Session == nil {
		opts.Session = storage.NewMemoryStore()
	}
	h := &Host{opts: opts}
	h.location = locationOf(opts.URL, opts.Title)
	return h
}

// Navigate changes the location the way a client-side router would.
func (h *Host) Navigate(rawURL, title string) navigation.Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.location = locationOf(h.resolve(rawURL), title)
	return h.location
}

func (h *Host) resolve(ref string) string {
	base, err := url.Parse(h.location.URL)
	if err != nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func locationOf(rawURL, title string) navigation.Location {
	loc := navigation.Location{URL: rawURL, Path: "/", Title: title}
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		loc.Path = u.Path
	}
	return loc
}

func (h *Host) Location() navigation.Location {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.location
}

func (h *Host) Referrer() string   { return h.opts.Referrer }
func (h *Host) UserAgent() string  { return h.opts.UserAgent }
func (h *Host) Screen() (int, int) { return h.opts.ScreenWidth, h.opts.ScreenHeight }
func (h *Host) Language() string   { return h.opts.Language }

// MaxTouchPoints reports the simulated touch support.
func (h *Host) MaxTouchPoints() int { return h.opts.TouchPoints }

func (h *Host) DurableStorage() identity.KeyValueStore { return h.opts.Durable }
func (h *Host) SessionStorage() identity.KeyValueStore { return h.opts.Session }

// Beacon returns nil when the page was configured without one.
func (h *Host) Beacon() telemetry.Beacon { return h.opts.Beacon }

// Render stores the latest widget subtree.
func (h *Host) Render(html string) {
	h.mu.Lock()
	h.html = html
	h.renders++
	h.mu.Unlock()
}

// HTML returns the latest rendered subtree.
func (h *Host) HTML() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.html
}

// Renders returns how many times the subtree changed.
func (h *Host) Renders() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.renders
}

// Record is one telemetry record captured by a Recorder.
type Record struct {
	Kind events.Kind
	URL  string
	Body map[string]any
}

// Recorder is a Beacon that keeps every record in memory.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	refuse  bool
}

// NewRecorder creates an accepting recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Refuse makes SendBeacon report false, forcing the keepalive fallback.
func (r *Recorder) Refuse(refuse bool) {
	r.mu.Lock()
	r.refuse = refuse
	r.mu.Unlock()
}

// SendBeacon implements telemetry.Beacon.
func (r *Recorder) SendBeacon(target, contentType string, body []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refuse {
		return false
	}
	r.add(target, body)
	return true
}

// Post implements telemetry.Fallback so a recorder can stand in for both transports.
func (r *Recorder) Post(target, contentType string, body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(target, body)
}

func (r *Recorder) add(target string, body []byte) {
	rec := Record{URL: target}
	if i := strings.Index(target, "/api/track/"); i >= 0 {
		rec.Kind = events.Kind(target[i+len("/api/track/"):])
	}
	_ = json.Unmarshal(body, &rec.Body)
	r.records = append(r.records, rec)
}

// Records returns a copy of everything captured.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Kinds returns the captured record kinds in order.
func (r *Recorder) Kinds() []events.Kind {
	var out []events.Kind
	for _, rec := range r.Records() {
		out = append(out, rec.Kind)
	}
	return out
}

// EventTypes returns the event_type of every captured behavioral event, in order.
func (r *Recorder) EventTypes() []string {
	var out []string
	for _, rec := range r.Records() {
		if rec.Kind != events.KindEvent {
			continue
		}
		if t, ok := rec.Body["event_type"].(string); ok {
			out = append(out, t)
		}
	}
	return out
}

// Count returns how many behavioral events of eventType were captured.
func (r *Recorder) Count(eventType string) int {
	n := 0
	for _, t := range r.EventTypes() {
		if t == eventType {
			n++
		}
	}
	return n
}
