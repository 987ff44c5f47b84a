// Package simulator replays scripted visitor scenarios through a headless widget.
package simulator

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted visit.
type Scenario struct {
	Name string `yaml:"name"`

	// Embed is the widget <script> tag. When empty the Widget attributes are used.
	Embed  string            `yaml:"embed,omitempty"`
	Widget map[string]string `yaml:"widget,omitempty"`

	Page   PageSpec   `yaml:"page"`
	Timing TimingSpec `yaml:"timing,omitempty"`

	// Storage is a sqlite file for the durable visitor id. Empty keeps it in memory.
	Storage string `yaml:"storage,omitempty"`

	Steps []Step `yaml:"steps"`
}

// PageSpec describes the page the visit lands on.
type PageSpec struct {
	URL         string `yaml:"url"`
	Title       string `yaml:"title,omitempty"`
	Referrer    string `yaml:"referrer,omitempty"`
	UserAgent   string `yaml:"user_agent,omitempty"`
	Language    string `yaml:"language,omitempty"`
	Width       int    `yaml:"width,omitempty"`
	Height      int    `yaml:"height,omitempty"`
	TouchPoints int    `yaml:"touch_points,omitempty"`
}

// TimingSpec shortens the widget clocks so scenarios run quickly.
type TimingSpec struct {
	IdleTick          time.Duration `yaml:"idle_tick,omitempty"`
	HeartbeatInterval time.Duration `yaml:"heartbeat,omitempty"`
	BubbleTimeout     time.Duration `yaml:"bubble_timeout,omitempty"`
	Settle            time.Duration `yaml:"settle,omitempty"`
}

// Step is one visitor action. Exactly one field is set.
type Step struct {
	Scroll        *ScrollStep   `yaml:"scroll,omitempty"`
	Click         *ClickStep    `yaml:"click,omitempty"`
	Wait          time.Duration `yaml:"wait,omitempty"`
	Idle          int           `yaml:"idle,omitempty"`
	MouseOut      *int          `yaml:"mouseout,omitempty"`
	Focus         *FocusStep    `yaml:"focus,omitempty"`
	Submit        string        `yaml:"submit,omitempty"`
	Navigate      *NavigateStep `yaml:"navigate,omitempty"`
	OpenChat      bool          `yaml:"open_chat,omitempty"`
	CloseChat     bool          `yaml:"close_chat,omitempty"`
	AcceptBubble  bool          `yaml:"accept_bubble,omitempty"`
	DismissBubble bool          `yaml:"dismiss_bubble,omitempty"`
	AcceptConsent bool          `yaml:"accept_consent,omitempty"`
	Send          string        `yaml:"send,omitempty"`
	Unload        bool          `yaml:"unload,omitempty"`
}

// ScrollStep scrolls the document.
type ScrollStep struct {
	Y        float64 `yaml:"y"`
	Height   float64 `yaml:"height"`
	Viewport float64 `yaml:"viewport"`
}

// ClickStep clicks Repeat times, Interval apart.
type ClickStep struct {
	X        int           `yaml:"x"`
	Y        int           `yaml:"y"`
	Element  string        `yaml:"element,omitempty"`
	Repeat   int           `yaml:"repeat,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// FocusStep focuses a form control.
type FocusStep struct {
	Form string `yaml:"form"`
	Tag  string `yaml:"tag"`
}

// NavigateStep changes the location without a page load.
type NavigateStep struct {
	URL   string `yaml:"url"`
	Title string `yaml:"title,omitempty"`
}

// Action names the step's action.
func (s Step) Action() string {
	var set []string
	add := func(ok bool, name string) {
		if ok {
			set = append(set, name)
		}
	}
	add(s.Scroll != nil, "scroll")
	add(s.Click != nil, "click")
	add(s.Wait > 0, "wait")
	add(s.Idle > 0, "idle")
	add(s.MouseOut != nil, "mouseout")
	add(s.Focus != nil, "focus")
	add(s.Submit != "", "submit")
	add(s.Navigate != nil, "navigate")
	add(s.OpenChat, "open_chat")
	add(s.CloseChat, "close_chat")
	add(s.AcceptBubble, "accept_bubble")
	add(s.DismissBubble, "dismiss_bubble")
	add(s.AcceptConsent, "accept_consent")
	add(s.Send != "", "send")
	add(s.Unload, "unload")

	if len(set) != 1 {
		return ""
	}
	return set[0]
}

// ErrInvalidScenario is returned by Validate.
var ErrInvalidScenario = errors.New("invalid scenario")

// Validate checks the scenario can be replayed.
func (sc *Scenario) Validate() error {
	if sc.Page.URL == "" {
		return fmt.Errorf("%w: page.url is required", ErrInvalidScenario)
	}
	if sc.Embed == "" && len(sc.Widget) == 0 {
		return fmt.Errorf("%w: embed or widget attributes are required", ErrInvalidScenario)
	}
	for i, step := range sc.Steps {
		if step.Action() == "" {
			return fmt.Errorf("%w: step %d must set exactly one action", ErrInvalidScenario, i+1)
		}
		if step.Navigate != nil && step.Navigate.URL == "" {
			return fmt.Errorf("%w: step %d navigate needs a url", ErrInvalidScenario, i+1)
		}
	}
	for i, step := range sc.Steps {
		if step.Unload && i != len(sc.Steps)-1 {
			return fmt.Errorf("%w: unload must be the last step", ErrInvalidScenario)
		}
	}
	return nil
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario %q: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}
