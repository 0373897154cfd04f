// Package content turns author supplied lesson bodies into HTML that is safe
// to show to students.
package content

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Format is the detected input format of a lesson body.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// DefaultPreviewChars is the raw length above which a body offers "view more".
const DefaultPreviewChars = 300

var allowedElements = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "br", "strong", "em", "b", "i", "u",
	"ul", "ol", "li", "a", "blockquote", "code", "pre",
	"span", "div", "img",
	"table", "thead", "tbody", "tr", "th", "td",
}

var allowedAttrs = []string{"href", "src", "alt", "title", "class", "id"}

// SafeDocument is sanitised HTML ready for display.
type SafeDocument struct {
	Format Format `json:"format"`
	HTML   string `json:"html"`
	// Length is the raw body length in UTF-16 code units.
	Length int `json:"length"`
}

// Renderer sanitises lesson bodies. The zero value is not usable; use New.
// A Renderer is safe for concurrent use.
type Renderer struct {
	policy *bluemonday.Policy
	md     goldmark.Markdown
}

// New builds a renderer with the lesson allow-list.
func New() *Renderer {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedElements...)
	p.AllowAttrs(allowedAttrs...).Globally()
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)

	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify))

	return &Renderer{policy: p, md: md}
}

var defaultRenderer = New()

// Render sanitises raw with the shared renderer.
func Render(raw string) SafeDocument {
	return defaultRenderer.Render(raw)
}

// Classify reports HTML when raw carries both angle brackets.
func Classify(raw string) Format {
	if strings.Contains(raw, "<") && strings.Contains(raw, ">") {
		return FormatHTML
	}
	return FormatMarkdown
}

// Render converts raw into a SafeDocument. HTML input is filtered through the
// allow-list; markdown is converted without raw HTML passthrough and the
// output is filtered through the same allow-list.
func (r *Renderer) Render(raw string) SafeDocument {
	doc := SafeDocument{Format: Classify(raw), Length: textLength(raw)}
	if doc.Format == FormatHTML {
		doc.HTML = r.policy.Sanitize(raw)
		return doc
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(raw), &buf); err != nil {
		// goldmark only fails on writer errors; keep the text escaped.
		doc.HTML = r.policy.Sanitize("<p>" + escape(raw) + "</p>")
		return doc
	}
	doc.HTML = string(r.policy.SanitizeBytes(buf.Bytes()))
	return doc
}

// Expandable reports whether raw is long enough to offer a "view more" toggle.
func Expandable(raw string, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultPreviewChars
	}
	return textLength(raw) > threshold
}

// textLength counts UTF-16 code units; a character outside the basic plane
// counts twice.
func textLength(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
			continue
		}
		n++
	}
	return n
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;")

func escape(s string) string {
	return escaper.Replace(s)
}
