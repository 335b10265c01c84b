// Package markdown models a page body as a small tagged union (text, code,
// embedded player) and renders it to HTML as a templ component.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Component returns a templ.Component that renders doc as HTML.
func Component(doc Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := Render(&buf, doc); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Markdown parses serialized markdown and renders it like Component.
func Markdown(content string) templ.Component {
	return Component(Parse(content))
}

// Render writes the HTML representation of doc to buf.
func Render(buf *bytes.Buffer, doc Document) error {
	for _, b := range doc.Blocks {
		switch b := b.(type) {
		case Text:
			if err := renderer.Convert([]byte(b.Markdown), buf); err != nil {
				return err
			}
		case Code:
			renderCode(buf, b)
		case Embed:
			renderEmbed(buf, b)
		}
	}
	return nil
}

func renderCode(buf *bytes.Buffer, c Code) {
	if c.Language != "" {
		lang := html.EscapeString(c.Language)
		buf.WriteString(`<div class="code-block-wrapper"><span class="code-lang code-lang-` + lang + `">` + lang + `</span>`)
		buf.WriteString(`<pre class="code-block"><code class="language-` + lang + `">`)
	} else {
		buf.WriteString(`<pre class="code-block"><code>`)
	}
	buf.WriteString(html.EscapeString(c.Source))
	buf.WriteString("\n</code></pre>")
	if c.Language != "" {
		buf.WriteString("</div>")
	}
	buf.WriteString("\n")
}

func renderEmbed(buf *bytes.Buffer, e Embed) {
	src := SafeURL(e.URL)
	if src == "" {
		return
	}
	switch e.Kind {
	case EmbedSpotify:
		buf.WriteString(`<div class="embed embed-spotify"><iframe src="` + src + `" width="100%" height="352" frameborder="0" allow="autoplay; clipboard-write; encrypted-media; fullscreen; picture-in-picture" loading="lazy"></iframe></div>`)
	case EmbedYouTube:
		buf.WriteString(`<div class="embed embed-youtube"><iframe src="` + src + `" width="560" height="315" frameborder="0" allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" allowfullscreen loading="lazy"></iframe></div>`)
	default:
		buf.WriteString(`<p class="embed"><a href="` + src + `" target="_blank" rel="noopener noreferrer">` + src + `</a></p>`)
	}
	buf.WriteString("\n")
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
