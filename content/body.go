package content

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/folio-site/folio/markdown"
	"github.com/folio-site/folio/notion"
)

const defaultMaxDepth = 8

// Converter fetches a page's block tree and turns it into a Document.
type Converter struct {
	lister   BlockLister
	maxDepth int
}

// NewConverter returns a Converter reading blocks through lister.
func NewConverter(lister BlockLister) *Converter {
	return &Converter{lister: lister, maxDepth: defaultMaxDepth}
}

// Document fetches the body of a page and converts it.
func (c *Converter) Document(ctx context.Context, pageID string) (markdown.Document, error) {
	blocks, err := c.tree(ctx, pageID, 0)
	if err != nil {
		return markdown.Document{}, err
	}
	return Convert(blocks), nil
}

// tree fetches the children of id and, depth permitting, their descendants.
// Sub-pages and inline databases are separate records and are not entered.
func (c *Converter) tree(ctx context.Context, id string, depth int) ([]notion.Block, error) {
	blocks, err := c.lister.BlockChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	if depth >= c.maxDepth {
		return blocks, nil
	}
	for i := range blocks {
		b := &blocks[i]
		if !b.HasChildren || b.Type == "child_page" || b.Type == "child_database" {
			continue
		}
		children, err := c.tree(ctx, b.ID, depth+1)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", b.ID, err)
		}
		b.Children = children
	}
	return blocks, nil
}

// Convert turns a block tree into a Document. Code blocks and media embeds
// become typed blocks; everything else is markdown text. Consecutive list
// items of one kind stay in a single tight list.
func Convert(blocks []notion.Block) markdown.Document {
	var doc markdown.Document
	prevList := ""
	for _, b := range blocks {
		switch b.Type {
		case "column_list", "column", "synced_block":
			doc.Blocks = append(doc.Blocks, Convert(b.Children).Blocks...)
			prevList = ""
			continue
		case "toggle":
			if s := richText(b.Content.RichText); s != "" {
				doc.Blocks = append(doc.Blocks, markdown.Text{Markdown: "**" + s + "**"})
			}
			doc.Blocks = append(doc.Blocks, Convert(b.Children).Blocks...)
			prevList = ""
			continue
		}

		blk, ok := convertBlock(b)
		if !ok {
			continue
		}
		text, isText := blk.(markdown.Text)
		if isText && isListItem(b.Type) && b.Type == prevList && len(doc.Blocks) > 0 {
			last := doc.Blocks[len(doc.Blocks)-1].(markdown.Text)
			doc.Blocks[len(doc.Blocks)-1] = markdown.Text{Markdown: last.Markdown + "\n" + text.Markdown}
		} else {
			doc.Blocks = append(doc.Blocks, blk)
		}
		prevList = ""
		if isText && isListItem(b.Type) {
			prevList = b.Type
		}
	}
	return doc
}

func isListItem(typ string) bool {
	return typ == "bulleted_list_item" || typ == "numbered_list_item" || typ == "to_do"
}

func convertBlock(b notion.Block) (markdown.Block, bool) {
	c := b.Content
	var md string
	switch b.Type {
	case "code":
		return markdown.Code{
			Language: strings.Join(strings.Fields(c.Language), ""),
			Source:   notion.PlainText(c.RichText),
		}, true
	case "embed":
		if c.URL == "" {
			return nil, false
		}
		return ClassifyEmbed(c.URL), true
	case "video":
		u := c.Link()
		if u == "" {
			return nil, false
		}
		if e := ClassifyEmbed(u); e.Kind != markdown.EmbedGeneric {
			return e, true
		}
		md = "[video](" + u + ")"
	case "paragraph":
		md = richText(c.RichText)
	case "heading_1":
		md = heading("# ", c.RichText)
	case "heading_2":
		md = heading("## ", c.RichText)
	case "heading_3":
		md = heading("### ", c.RichText)
	case "bulleted_list_item":
		md = "- " + richText(c.RichText) + nested(b.Children)
	case "numbered_list_item":
		md = "1. " + richText(c.RichText) + nested(b.Children)
	case "to_do":
		box := "[ ]"
		if c.Checked {
			box = "[x]"
		}
		md = "- " + box + " " + richText(c.RichText) + nested(b.Children)
	case "quote":
		md = quoted(richText(c.RichText), b.Children)
	case "callout":
		s := richText(c.RichText)
		if c.Icon != nil && c.Icon.Emoji != "" {
			s = c.Icon.Emoji + " " + s
		}
		md = quoted(s, b.Children)
	case "divider":
		md = "---"
	case "image":
		if u := c.Link(); u != "" {
			md = "![" + notion.PlainText(c.Caption) + "](" + u + ")"
		}
	case "bookmark", "link_preview":
		if c.URL != "" {
			md = "[" + firstNonEmpty(notion.PlainText(c.Caption), c.URL) + "](" + c.URL + ")"
		}
	case "file", "pdf", "audio":
		if u := c.Link(); u != "" {
			md = "[" + firstNonEmpty(notion.PlainText(c.Caption), c.Name, b.Type) + "](" + u + ")"
		}
	case "equation":
		if c.Expression != "" {
			md = "$$\n" + c.Expression + "\n$$"
		}
	case "table":
		md = table(b.Children, c.HasColumnHeader)
	default:
		return nil, false
	}
	if strings.TrimSpace(md) == "" {
		return nil, false
	}
	return markdown.Text{Markdown: md}, true
}

func heading(prefix string, runs []notion.RichText) string {
	s := richText(runs)
	if s == "" {
		return ""
	}
	return prefix + s
}

// nested renders list children indented under their parent item.
func nested(children []notion.Block) string {
	if len(children) == 0 {
		return ""
	}
	body := Convert(children).String()
	if body == "" {
		return ""
	}
	return "\n" + indent(body, "    ")
}

func quoted(s string, children []notion.Block) string {
	if body := Convert(children).String(); body != "" {
		s += "\n\n" + body
	}
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return indent(s, "> ")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = strings.TrimRight(prefix, " ")
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func table(rows []notion.Block, header bool) string {
	var cells [][]string
	width := 0
	for _, r := range rows {
		if r.Type != "table_row" {
			continue
		}
		row := make([]string, len(r.Content.Cells))
		for i, cell := range r.Content.Cells {
			row[i] = strings.ReplaceAll(richText(cell), "|", `\|`)
		}
		width = max(width, len(row))
		cells = append(cells, row)
	}
	if len(cells) == 0 || width == 0 {
		return ""
	}
	line := func(row []string) string {
		padded := make([]string, width)
		copy(padded, row)
		return "| " + strings.Join(padded, " | ") + " |"
	}
	sep := "|" + strings.Repeat(" --- |", width)

	var out []string
	if header {
		out = append(out, line(cells[0]), sep)
		cells = cells[1:]
	} else {
		out = append(out, line(make([]string, width)), sep)
	}
	for _, row := range cells {
		out = append(out, line(row))
	}
	return strings.Join(out, "\n")
}

// richText renders styled runs as inline markdown. Markers wrap the trimmed
// text so that "** bold **" never appears.
func richText(runs []notion.RichText) string {
	var b strings.Builder
	for _, r := range runs {
		text := r.PlainText
		core := strings.TrimSpace(text)
		if core == "" {
			b.WriteString(text)
			continue
		}
		lead := text[:strings.Index(text, core)]
		trail := text[len(lead)+len(core):]

		a := r.Annotations
		if a.Code {
			core = "`" + core + "`"
		}
		if a.Bold {
			core = "**" + core + "**"
		}
		if a.Italic {
			core = "_" + core + "_"
		}
		if a.Strikethrough {
			core = "~~" + core + "~~"
		}
		if r.Href != nil && *r.Href != "" {
			core = "[" + core + "](" + *r.Href + ")"
		}
		b.WriteString(lead)
		b.WriteString(core)
		b.WriteString(trail)
	}
	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ClassifyEmbed decides how an embedded URL is played. Spotify links are
// rewritten to the open.spotify.com/embed form, YouTube watch and short links
// to youtube.com/embed/{id}. Anything else is a generic embed of the URL as
// given.
func ClassifyEmbed(raw string) markdown.Embed {
	switch {
	case strings.Contains(raw, "spotify.com"):
		u := raw
		if !strings.Contains(u, "/embed/") {
			u = strings.Replace(u, "open.spotify.com/", "open.spotify.com/embed/", 1)
		}
		return markdown.Embed{Kind: markdown.EmbedSpotify, URL: u}
	case strings.Contains(raw, "youtube.com"), strings.Contains(raw, "youtu.be"):
		if strings.Contains(raw, "youtube.com/embed/") {
			return markdown.Embed{Kind: markdown.EmbedYouTube, URL: raw}
		}
		if id := youTubeID(raw); id != "" {
			return markdown.Embed{Kind: markdown.EmbedYouTube, URL: "https://www.youtube.com/embed/" + id}
		}
	}
	return markdown.Embed{Kind: markdown.EmbedGeneric, URL: raw}
}

func youTubeID(raw string) string {
	if _, rest, ok := strings.Cut(raw, "youtu.be/"); ok {
		id, _, _ := strings.Cut(rest, "?")
		return id
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.HasSuffix(u.Hostname(), "youtube.com") || u.Path != "/watch" {
		return ""
	}
	return u.Query().Get("v")
}
