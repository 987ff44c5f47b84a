// Package navigation detects single-page-app navigations without relying on the host
// page's router. Each strategy reports observed locations; deciding whether the path
// actually changed is left to the behavior monitor.
package navigation

import (
	"context"
	"time"
)

// Location is the host page's current address.
type Location struct {
	URL   string `json:"url"`
	Path  string `json:"path"`
	Title string `json:"title"`
}

// Source reads the current location from the host.
type Source interface {
	Location() Location
}

// Detector reports locations until ctx ends. initial is the location the caller has
// already accounted for; a detector compares against it, not against whatever the
// host shows when Run happens to start.
type Detector interface {
	Run(ctx context.Context, initial Location, notify func(Location))
}

// MutationDetector reads the location whenever the host signals a DOM mutation.
// Bursts of mutations are coalesced into one read.
type MutationDetector struct {
	source  Source
	signals chan struct{}
}

// NewMutationDetector creates the detector.
func NewMutationDetector(source Source) *MutationDetector {
	return &MutationDetector{source: source, signals: make(chan struct{}, 1)}
}

// Mutated is called by the host on every observed DOM mutation batch. It never blocks.
func (d *MutationDetector) Mutated() {
	select {
	case d.signals <- struct{}{}:
	default:
	}
}

// Run implements Detector. A path change that happened before Run started is
// reported right away.
func (d *MutationDetector) Run(ctx context.Context, initial Location, notify func(Location)) {
	last := report(d.source, initial.Path, notify)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.signals:
			last = report(d.source, last, notify)
		}
	}
}

// PollingDetector samples the location on a fixed interval.
type PollingDetector struct {
	source   Source
	interval time.Duration
}

// NewPollingDetector creates the detector.
func NewPollingDetector(source Source, interval time.Duration) *PollingDetector {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &PollingDetector{source: source, interval: interval}
}

// Run implements Detector.
func (d *PollingDetector) Run(ctx context.Context, initial Location, notify func(Location)) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	last := report(d.source, initial.Path, notify)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = report(d.source, last, notify)
		}
	}
}

// report reads the source and notifies when the path differs from last. It returns
// the path now considered current.
func report(source Source, last string, notify func(Location)) string {
	loc := source.Location()
	if loc.Path == last {
		return last
	}
	notify(loc)
	return loc.Path
}

// HistoryDetector receives history API calls (pushState, replaceState, popstate)
// forwarded by the host.
type HistoryDetector struct {
	changes chan Location
}

// NewHistoryDetector creates the detector with a small buffer.
func NewHistoryDetector() *HistoryDetector {
	return &HistoryDetector{changes: make(chan Location, 16)}
}

// Changed forwards one history change. It drops the change when the buffer is full
// rather than block the host.
func (d *HistoryDetector) Changed(loc Location) {
	select {
	case d.changes <- loc:
	default:
	}
}

// Run implements Detector. History changes are forwarded as they arrive, so initial
// is not needed.
func (d *HistoryDetector) Run(ctx context.Context, _ Location, notify func(Location)) {
	for {
		select {
		case <-ctx.Done():
			return
		case loc := <-d.changes:
			notify(loc)
		}
	}
}
