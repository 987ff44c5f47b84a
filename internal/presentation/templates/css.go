package templates

import (
	"html/template"
	"strings"
)

// anchors maps a launcher position to the offsets of the widget container.
var anchors = map[string]string{
	"bottom-right": "bottom:20px;right:20px",
	"bottom-left":  "bottom:20px;left:20px",
	"top-right":    "top:20px;right:20px",
	"top-left":     "top:20px;left:20px",
}

// Stylesheet returns the rules scoped to #sg-widget for the given accent color and
// position. Unknown positions anchor bottom-right. color must already be validated.
func Stylesheet(color, position string) template.CSS {
	anchor, ok := anchors[position]
	if !ok {
		anchor = anchors["bottom-right"]
	}

	var b strings.Builder
	b.WriteString("#sg-widget{position:fixed;z-index:2147483000;font:14px/1.4 system-ui,sans-serif;")
	b.WriteString(anchor)
	b.WriteString(";--sg-color:")
	b.WriteString(color)
	b.WriteString("}")
	b.WriteString("#sg-widget .sg-launcher,#sg-widget .sg-composer button{background:var(--sg-color);color:#fff;border:0;border-radius:999px;padding:10px 16px}")
	b.WriteString("#sg-widget .sg-panel{width:340px;max-height:480px;display:flex;flex-direction:column;background:#fff;border-radius:12px;box-shadow:0 8px 24px rgba(0,0,0,.18)}")
	b.WriteString("#sg-widget .sg-header{background:var(--sg-color);color:#fff;padding:10px 12px;display:flex;justify-content:space-between}")
	b.WriteString("#sg-widget .sg-transcript{list-style:none;margin:0;padding:12px;overflow-y:auto;flex:1}")
	b.WriteString("#sg-widget .sg-visitor{text-align:right}")
	b.WriteString("#sg-widget .sg-error,#sg-widget .sg-escalated{color:#b91c1c}")
	b.WriteString("#sg-widget .sg-confidence{display:block;font-size:11px;opacity:.7}")
	b.WriteString("#sg-widget .sg-bubble{background:#fff;border-left:4px solid var(--sg-color);padding:10px 12px;margin-bottom:8px;box-shadow:0 4px 12px rgba(0,0,0,.12)}")
	if strings.HasPrefix(position, "top") {
		b.WriteString("#sg-widget{display:flex;flex-direction:column-reverse}")
	}
	return template.CSS(b.String())
}
