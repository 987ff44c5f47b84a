// Package embed parses the widget embed configuration from script-tag attributes.
package embed

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrMissingTenant is the fatal configuration error.
var ErrMissingTenant = errors.New("widget configuration is missing the tenant id")

// Position is where the launcher is anchored.
type Position string

const (
	BottomRight Position = "bottom-right"
	BottomLeft  Position = "bottom-left"
	TopRight    Position = "top-right"
	TopLeft     Position = "top-left"
)

// Defaults for optional attributes.
const (
	DefaultPosition = BottomRight
	DefaultColor    = "#2563eb"
	DefaultName     = "Assistant"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Config is the embed configuration surface.
type Config struct {
	TenantID string   `json:"tenant"`
	Position Position `json:"position"`
	Color    string   `json:"color"`
	Name     string   `json:"name"`
	// Lang is the raw attribute; resolve it with Language.
	Lang string `json:"lang"`
	// APIBase is empty when the default collector should be used.
	APIBase string `json:"api"`
	// Warnings lists attributes that were rejected and replaced by defaults.
	Warnings []string `json:"-"`
}

// Language resolves the widget language from the lang attribute, then the browser.
func (c Config) Language(browserLanguage string) locale.Lang {
	return locale.Resolve(c.Lang, browserLanguage)
}

// Validate reports the fatal configuration error, if any.
func (c Config) Validate() error {
	if strings.TrimSpace(c.TenantID) == "" {
		return ErrMissingTenant
	}
	return nil
}

// Parse builds a Config from attributes. Keys may be bare ("tenant") or data-prefixed
// ("data-tenant"). Invalid optional values fall back to defaults; a missing tenant is
// returned as ErrMissingTenant alongside the partially filled config.
func Parse(attrs map[string]string) (Config, error) {
	get := func(name string) string {
		if v, ok := attrs["data-"+name]; ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(attrs[name])
	}

	cfg := Config{
		TenantID: get("tenant"),
		Position: DefaultPosition,
		Color:    DefaultColor,
		Name:     DefaultName,
		Lang:     get("lang"),
	}

	if p := get("position"); p != "" {
		switch Position(p) {
		case BottomRight, BottomLeft, TopRight, TopLeft:
			cfg.Position = Position(p)
		default:
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown position %q", p))
		}
	}

	if c := get("color"); c != "" {
		if hexColor.MatchString(c) {
			cfg.Color = c
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid color %q", c))
		}
	}

	if n := get("name"); n != "" {
		cfg.Name = n
	}

	if a := get("api"); a != "" {
		if u, err := url.Parse(a); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
			cfg.APIBase = strings.TrimRight(a, "/")
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid api base %q", a))
		}
	}

	return cfg, cfg.Validate()
}

// ParseScriptTag finds the widget <script> element in an HTML fragment and parses its
// attributes. The widget script is the first script carrying data-tenant, or failing
// that the first script whose src names the widget bundle.
func ParseScriptTag(r io.Reader) (Config, error) {
	z := html.NewTokenizer(r)
	var fallback map[string]string

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && err != io.EOF {
				return Config{}, fmt.Errorf("failed to tokenize embed snippet: %w", err)
			}
			if fallback != nil {
				return Parse(fallback)
			}
			return Config{}, ErrMissingTenant
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.Script {
				continue
			}
			attrs := make(map[string]string, len(tok.Attr))
			for _, a := range tok.Attr {
				attrs[strings.ToLower(a.Key)] = a.Val
			}
			if _, ok := attrs["data-tenant"]; ok {
				return Parse(attrs)
			}
			if fallback == nil && strings.Contains(attrs["src"], "widget") {
				fallback = attrs
			}
		}
	}
}
