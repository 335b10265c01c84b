package views

import (
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/folio-site/folio/markdown"
)

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	if active {
		return "tag tag-active"
	}
	return "tag"
}

// page accumulates HTML and remembers the first write error.
type page struct {
	w   io.Writer
	err error
}

func (p *page) raw(parts ...string) {
	for _, s := range parts {
		if p.err != nil {
			return
		}
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *page) text(s string) {
	p.raw(templ.EscapeString(s))
}

// attr writes a quoted, escaped attribute value.
func (p *page) attr(name, value string) {
	p.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// href writes an href attribute, dropping unsafe schemes.
func (p *page) href(u string) {
	p.raw(` href="`, markdown.SafeURL(u), `"`)
}

func (p *page) tags(tags []string, active string) {
	if len(tags) == 0 {
		return
	}
	p.raw(`<ul class="tags">`)
	for _, t := range tags {
		p.raw(`<li><a`)
		p.attr("class", TagClass(t == active))
		p.href("/blog?tag=" + url.QueryEscape(t))
		p.raw(">")
		p.text(t)
		p.raw("</a></li>")
	}
	p.raw("</ul>")
}
