package templates

import (
	"testing"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderClosedWidgetShowsOnlyLauncher(t *testing.T) {
	out, err := RenderWidget(View{Lang: locale.English, Name: "Ava", Color: "#112233", Position: "bottom-left"})
	require.NoError(t, err)

	assert.Contains(t, out, `class="sg-widget sg-bottom-left"`)
	assert.Contains(t, out, `data-action="toggle"`)
	assert.Contains(t, out, ">Ava</button>")
	assert.NotContains(t, out, `class="sg-panel"`)
	assert.NotContains(t, out, `class="sg-bubble"`)
}

func TestRenderBubble(t *testing.T) {
	out, err := RenderWidget(View{Lang: locale.Dutch, Name: "Ava", Bubble: &BubbleView{Message: "Hulp nodig?"}})
	require.NoError(t, err)
	assert.Contains(t, out, "Hulp nodig?")
	assert.Contains(t, out, `data-action="bubble-dismiss"`)
}

func TestRenderConsentPromptKeepsTranscript(t *testing.T) {
	out, err := RenderWidget(View{
		Lang:           locale.English,
		Open:           true,
		ConsentPending: true,
		GrantFailed:    true,
		Transcript:     []chat.Message{{Role: chat.RoleVisitor, Text: "where is my order", At: time.Now()}},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "where is my order")
	assert.Contains(t, out, `data-action="consent-accept"`)
	assert.Contains(t, out, "could not be saved")
	assert.NotContains(t, out, `class="sg-composer"`)
}

func TestRenderReplyWithConfidenceAndEscalation(t *testing.T) {
	conf := 0.874
	out, err := RenderWidget(View{
		Lang: locale.English,
		Open: true,
		Transcript: []chat.Message{
			{Role: chat.RoleAssistant, Text: "A colleague will reach out", Confidence: &conf, Escalated: true},
			{Role: chat.RoleError, Text: "Something went wrong. Please try again."},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Confidence 87%")
	assert.Contains(t, out, "Forwarded to a team member")
	assert.Contains(t, out, "sg-msg sg-error")
}

func TestRenderDisablesComposerWhileInFlight(t *testing.T) {
	out, err := RenderWidget(View{Lang: locale.French, Open: true, InFlight: true})
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "En train d&#39;écrire...")
}

func TestRenderEscapesMessageText(t *testing.T) {
	out, err := RenderWidget(View{Open: true, Transcript: []chat.Message{{Role: chat.RoleVisitor, Text: "<script>x</script>"}}})
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>x")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestStylesheetAnchorsPosition(t *testing.T) {
	css := string(Stylesheet("#0f766e", "top-left"))
	assert.Contains(t, css, "top:20px;left:20px")
	assert.Contains(t, css, "--sg-color:#0f766e")
	assert.Contains(t, css, "column-reverse")

	fallback := string(Stylesheet("#000", "middle"))
	assert.Contains(t, fallback, "bottom:20px;right:20px")
}

func TestRenderEmbedsScopedStyles(t *testing.T) {
	out, err := RenderWidget(View{Lang: locale.English, Color: "#112233", Position: "bottom-right"})
	require.NoError(t, err)
	assert.Contains(t, out, "<style>#sg-widget{")
	assert.Contains(t, out, "--sg-color:#112233")
}
