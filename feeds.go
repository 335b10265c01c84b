package folio

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/folio-site/folio/content"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type (
	rssDoc struct {
		XMLName xml.Name `xml:"rss"`
		Version string   `xml:"version,attr"`
		Channel struct {
			Title       string    `xml:"title"`
			Link        string    `xml:"link"`
			Description string    `xml:"description"`
			Items       []rssItem `xml:"item"`
		} `xml:"channel"`
	}

	rssItem struct {
		Title       string   `xml:"title"`
		Link        string   `xml:"link"`
		GUID        string   `xml:"guid"`
		Description string   `xml:"description"`
		PubDate     string   `xml:"pubDate,omitempty"`
		Categories  []string `xml:"category"`
	}

	urlSet struct {
		XMLName xml.Name   `xml:"urlset"`
		NS      string     `xml:"xmlns,attr"`
		URLs    []urlEntry `xml:"url"`
	}

	urlEntry struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod,omitempty"`
	}
)

// writeXML sends v as an XML document with the standard header.
func writeXML(c echo.Context, contentType string, v any) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentType)
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(res).Encode(v)
}

// formatDate reformats a workspace date with layout, or returns "".
func formatDate(s, layout string) string {
	t, ok := parseDate(s)
	if !ok {
		return ""
	}
	return t.Format(layout)
}

func (a *App) renderRSS(c echo.Context, posts []content.Post) error {
	var doc rssDoc
	doc.Version = "2.0"
	doc.Channel.Title = a.Config.Name
	doc.Channel.Link = BuildURL(a.Config.URL)
	doc.Channel.Description = a.Config.Description
	doc.Channel.Items = make([]rssItem, 0, len(posts))
	for _, p := range posts {
		link := BuildURL(a.Config.URL, "blog", p.Slug)
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        link,
			Description: p.Description,
			PubDate:     formatDate(p.Date, time.RFC1123Z),
			Categories:  p.Tags,
		})
	}
	return writeXML(c, "application/rss+xml; charset=utf-8", doc)
}

func (a *App) renderSitemap(c echo.Context, posts []content.Post, projects []content.Project) error {
	set := urlSet{NS: sitemapNS}
	for _, section := range [][]string{nil, {"blog"}, {"portfolio"}} {
		set.URLs = append(set.URLs, urlEntry{Loc: BuildURL(a.Config.URL, section...)})
	}
	for _, p := range posts {
		set.URLs = append(set.URLs, urlEntry{
			Loc:     BuildURL(a.Config.URL, "blog", p.Slug),
			LastMod: formatDate(p.Date, time.DateOnly),
		})
	}
	for _, p := range projects {
		set.URLs = append(set.URLs, urlEntry{Loc: BuildURL(a.Config.URL, "portfolio", p.Slug)})
	}
	return writeXML(c, "application/xml; charset=utf-8", set)
}
