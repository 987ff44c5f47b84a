package embed

import (
	"strings"
	"testing"

	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(map[string]string{"tenant": "acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.TenantID)
	assert.Equal(t, BottomRight, cfg.Position)
	assert.Equal(t, DefaultColor, cfg.Color)
	assert.Equal(t, DefaultName, cfg.Name)
	assert.Empty(t, cfg.APIBase)
	assert.Empty(t, cfg.Warnings)
}

func TestParseAllAttributes(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"data-tenant":   "acme",
		"data-position": "bottom-left",
		"data-color":    "#ff0066",
		"data-name":     "Sam",
		"data-lang":     "fr",
		"data-api":      "https://collect.example/",
	})
	require.NoError(t, err)
	assert.Equal(t, BottomLeft, cfg.Position)
	assert.Equal(t, "#ff0066", cfg.Color)
	assert.Equal(t, "Sam", cfg.Name)
	assert.Equal(t, locale.French, cfg.Language("en-US"))
	assert.Equal(t, "https://collect.example", cfg.APIBase)
}

func TestParseRejectsInvalidOptionalValues(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"tenant":   "acme",
		"position": "middle",
		"color":    "red;background:url(x)",
		"api":      "javascript:alert(1)",
	})
	require.NoError(t, err)
	assert.Equal(t, BottomRight, cfg.Position)
	assert.Equal(t, DefaultColor, cfg.Color)
	assert.Empty(t, cfg.APIBase)
	assert.Len(t, cfg.Warnings, 3)
}

func TestParseMissingTenant(t *testing.T) {
	_, err := Parse(map[string]string{"tenant": "  "})
	assert.ErrorIs(t, err, ErrMissingTenant)
}

func TestParseScriptTag(t *testing.T) {
	snippet := `<html><head>
		<script src="/analytics.js"></script>
		<script src="https://cdn.example/widget.js" data-tenant="acme" data-lang="en" defer></script>
	</head></html>`

	cfg, err := ParseScriptTag(strings.NewReader(snippet))
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.TenantID)
	assert.Equal(t, locale.English, cfg.Language(""))
}

func TestParseScriptTagWithoutTenant(t *testing.T) {
	_, err := ParseScriptTag(strings.NewReader(`<script src="https://cdn.example/widget.js"></script>`))
	assert.ErrorIs(t, err, ErrMissingTenant)

	_, err = ParseScriptTag(strings.NewReader(`<p>no scripts here</p>`))
	assert.ErrorIs(t, err, ErrMissingTenant)
}
