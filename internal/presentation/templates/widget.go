// Package templates renders the widget DOM subtree.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/locale"
)

// BubbleView is the visible proactive prompt.
type BubbleView struct {
	Message string
}

// View is everything the widget subtree depends on. The shell builds one after every
// state change and hands the rendered HTML to the host.
type View struct {
	Lang     locale.Lang
	Name     string
	Color    string
	Position string

	Open           bool
	ConsentPending bool
	Granting       bool
	GrantFailed    bool
	InFlight       bool

	Bubble     *BubbleView
	Transcript []chat.Message
}

var widgetTemplates = template.Must(template.New("widget").Funcs(template.FuncMap{
	"t":       func(lang locale.Lang, key string) string { return locale.Text(lang, locale.Key(key)) },
	"percent": confidencePercent,
	"style":   Stylesheet,
	"msg":     func(lang locale.Lang, m chat.Message) messageData { return messageData{Lang: lang, Message: m} },
}).Parse(
	`{{define "root"}}<div id="sg-widget" class="sg-widget sg-{{.Position}}" lang="{{.Lang}}">` +
		`<style>{{style .Color .Position}}</style>{{template "bubble" .}}{{if .Open}}{{template "panel" .}}{{end}}{{template "launcher" .}}</div>{{end}}` +

		`{{define "launcher"}}<button type="button" class="sg-launcher" data-action="toggle" aria-expanded="{{.Open}}" aria-label="{{t .Lang "launcher_label"}}">{{.Name}}</button>{{end}}` +

		`{{define "bubble"}}{{with .Bubble}}<div class="sg-bubble" role="status">` +
		`<p class="sg-bubble-body" data-action="bubble-accept">{{.Message}}</p>` +
		`<button type="button" class="sg-bubble-close" data-action="bubble-dismiss" aria-label="{{t $.Lang "close"}}">&times;</button>` +
		`</div>{{end}}{{end}}` +

		`{{define "panel"}}<section class="sg-panel" aria-label="{{.Name}}">` +
		`<header class="sg-header"><span>{{.Name}}</span><button type="button" data-action="close" aria-label="{{t .Lang "close"}}">&times;</button></header>` +
		`{{template "transcript" .}}` +
		`{{if .ConsentPending}}{{template "consent" .}}{{else}}{{template "composer" .}}{{end}}` +
		`</section>{{end}}` +

		`{{define "transcript"}}<ol class="sg-transcript">{{range .Transcript}}{{template "message" (msg $.Lang .)}}{{end}}` +
		`{{if .InFlight}}<li class="sg-typing">{{t .Lang "typing"}}</li>{{end}}</ol>{{end}}` +

		`{{define "message"}}<li class="sg-msg sg-{{.Message.Role}}">{{.Message.Text}}` +
		`{{with percent .Message.Confidence}}<span class="sg-confidence">{{t $.Lang "confidence"}} {{.}}%</span>{{end}}` +
		`{{if .Message.Escalated}}<span class="sg-escalated">{{t .Lang "escalated"}}</span>{{end}}</li>{{end}}` +

		`{{define "consent"}}<div class="sg-consent"><p>{{t .Lang "consent_prompt"}}</p>` +
		`{{if .GrantFailed}}<p class="sg-error" role="alert">{{t .Lang "consent_failed"}}</p>{{end}}` +
		`<button type="button" data-action="consent-accept"{{if .Granting}} disabled{{end}}>{{t .Lang "consent_accept"}}</button></div>{{end}}` +

		`{{define "composer"}}<form class="sg-composer" data-action="send">` +
		`<input type="text" name="message" placeholder="{{t .Lang "input_hint"}}" autocomplete="off"{{if .InFlight}} disabled{{end}}>` +
		`<button type="submit"{{if .InFlight}} disabled{{end}}>{{t .Lang "send"}}</button></form>{{end}}`,
))

type messageData struct {
	Lang    locale.Lang
	Message chat.Message
}

// RenderWidget renders the widget subtree.
func RenderWidget(v View) (string, error) {
	var buf bytes.Buffer
	if err := widgetTemplates.ExecuteTemplate(&buf, "root", v); err != nil {
		return "", fmt.Errorf("failed to render widget: %w", err)
	}
	return buf.String(), nil
}

func confidencePercent(c *float64) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%d", int(math.Round(*c*100)))
}
