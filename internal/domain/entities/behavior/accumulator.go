// Package behavior derives normalized engagement metrics from raw page signals.
// Everything here is synchronous and takes the current time as an argument, so the
// owner decides what "now" is.
package behavior

import (
	"math"
	"time"
)

// PageView is the logical page the visitor is currently on, including SPA pages.
type PageView struct {
	URL       string    `json:"url"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	EnteredAt time.Time `json:"enteredAt"`
}

// SecondsOnPage returns the rounded time spent on the page at now.
func (p PageView) SecondsOnPage(now time.Time) int {
	if now.Before(p.EnteredAt) {
		return 0
	}
	return int(math.Round(now.Sub(p.EnteredAt).Seconds()))
}

// Click is one document-level click.
type Click struct {
	At time.Time
	X  int
	Y  int
}

// Accumulator is the per-page-view mutable state. A new one replaces it on every
// page view.
type Accumulator struct {
	ScrollDepthMax int
	ClickCount     int
	IdleSeconds    int
	clickLog       []Click
}

// ScrollPercent converts a scroll position into a 0–100 depth. ok is false when the
// page has no scrollable content.
func ScrollPercent(scrollY, documentHeight, viewportHeight float64) (percent int, ok bool) {
	scrollable := documentHeight - viewportHeight
	if scrollable <= 0 || math.IsNaN(scrollable) || math.IsInf(scrollable, 0) {
		return 0, false
	}
	p := math.Round(scrollY / scrollable * 100)
	switch {
	case p < 0 || math.IsNaN(p):
		p = 0
	case p > 100:
		p = 100
	}
	return int(p), true
}

// RecordScroll applies a scroll signal. The depth maximum never decreases.
func (a *Accumulator) RecordScroll(scrollY, documentHeight, viewportHeight float64) {
	a.IdleSeconds = 0
	if p, ok := ScrollPercent(scrollY, documentHeight, viewportHeight); ok && p > a.ScrollDepthMax {
		a.ScrollDepthMax = p
	}
}

// RecordClick counts the click and feeds rage-click detection. It returns true when
// the click completes a burst of threshold clicks inside window; the log is cleared
// then, so a continuing burst needs threshold fresh clicks to fire again.
func (a *Accumulator) RecordClick(c Click, window time.Duration, threshold int) bool {
	a.ClickCount++
	a.IdleSeconds = 0

	kept := a.clickLog[:0]
	for _, prev := range a.clickLog {
		if c.At.Sub(prev.At) < window {
			kept = append(kept, prev)
		}
	}
	a.clickLog = append(kept, c)

	if threshold > 0 && len(a.clickLog) >= threshold {
		a.clickLog = a.clickLog[:0]
		return true
	}
	return false
}

// PendingClicks returns the size of the rage-click log.
func (a *Accumulator) PendingClicks() int {
	return len(a.clickLog)
}

// Tick advances the idle counter by one second and returns it.
func (a *Accumulator) Tick() int {
	a.IdleSeconds++
	return a.IdleSeconds
}

// ResetIdle is called on any visitor interaction.
func (a *Accumulator) ResetIdle() {
	a.IdleSeconds = 0
}
