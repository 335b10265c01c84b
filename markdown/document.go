package markdown

import (
	"regexp"
	"strings"
)

// Sentinel link texts. A body line of the form [sentinel](url) is an embedded
// player rather than a hyperlink. Matching is exact and case-sensitive; any
// other link text is an ordinary link.
const (
	SentinelSpotify = "spotify-embed"
	SentinelYouTube = "youtube-embed"
	SentinelEmbed   = "embed"
)

var reEmbedLine = regexp.MustCompile(`^\[(spotify-embed|youtube-embed|embed)\]\((\S+)\)$`)

// Block is one element of a Document: Text, Code or Embed.
type Block interface {
	markdown() string
}

// Text is a run of ordinary markdown (paragraphs, headings, lists, images).
type Text struct {
	Markdown string
}

// Code is a fenced code block. Source is verbatim.
type Code struct {
	Language string
	Source   string
}

// EmbedKind selects the player an Embed renders as.
type EmbedKind int

const (
	EmbedGeneric EmbedKind = iota
	EmbedSpotify
	EmbedYouTube
)

// Sentinel returns the link text that marks this kind in serialized markdown.
func (k EmbedKind) Sentinel() string {
	switch k {
	case EmbedSpotify:
		return SentinelSpotify
	case EmbedYouTube:
		return SentinelYouTube
	}
	return SentinelEmbed
}

func kindOf(sentinel string) EmbedKind {
	switch sentinel {
	case SentinelSpotify:
		return EmbedSpotify
	case SentinelYouTube:
		return EmbedYouTube
	}
	return EmbedGeneric
}

// Embed is an embeddable media link, already rewritten to the player URL.
type Embed struct {
	Kind EmbedKind
	URL  string
}

func (t Text) markdown() string { return t.Markdown }

func (c Code) markdown() string {
	fence := strings.Repeat("`", FenceWidth(c.Source))
	return fence + c.Language + "\n" + c.Source + "\n" + fence
}

func (e Embed) markdown() string {
	return "[" + e.Kind.Sentinel() + "](" + e.URL + ")"
}

func (t Text) String() string  { return t.markdown() }
func (c Code) String() string  { return c.markdown() }
func (e Embed) String() string { return e.markdown() }

// Document is a page body decided once at conversion time.
type Document struct {
	Blocks []Block
}

// String serializes the document to markdown, encoding embeds with their
// sentinel link texts.
func (d Document) String() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if s := b.markdown(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// FenceWidth returns the number of backticks a code fence needs so that no
// run of backticks inside text can close it: one more than the longest run,
// and never fewer than three.
func FenceWidth(text string) int {
	longest, run := 0, 0
	for i := 0; i < len(text); i++ {
		if text[i] == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	return max(3, longest+1)
}

// Parse splits serialized markdown back into a Document. Fenced code blocks
// close only on a fence at least as long as the opening one; sentinel lines
// become Embed blocks.
func Parse(md string) Document {
	var doc Document
	var text []string
	flush := func() {
		s := strings.Trim(strings.Join(text, "\n"), "\n")
		if strings.TrimSpace(s) != "" {
			doc.Blocks = append(doc.Blocks, Text{Markdown: s})
		}
		text = text[:0]
	}

	lines := strings.Split(md, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if n := fenceRun(line); n >= 3 && !strings.Contains(line[n:], "`") {
			var body []string
			closed := false
			j := i + 1
			for ; j < len(lines); j++ {
				l := strings.TrimRight(lines[j], "\r")
				if m := fenceRun(l); m >= n && strings.TrimSpace(l[m:]) == "" {
					closed = true
					break
				}
				body = append(body, l)
			}
			if closed {
				flush()
				doc.Blocks = append(doc.Blocks, Code{
					Language: strings.TrimSpace(line[n:]),
					Source:   strings.Join(body, "\n"),
				})
				i = j
				continue
			}
		}
		if m := reEmbedLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			doc.Blocks = append(doc.Blocks, Embed{Kind: kindOf(m[1]), URL: m[2]})
			continue
		}
		text = append(text, line)
	}
	flush()
	return doc
}

func fenceRun(line string) int {
	n := 0
	for n < len(line) && line[n] == '`' {
		n++
	}
	return n
}
