package content

import (
	"regexp"
	"sort"
	"strings"

	"github.com/folio-site/folio/notion"
)

// Project is a portfolio entry.
type Project struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Dates        string   `json:"dates"`
	Active       bool     `json:"active"`
	Technologies []string `json:"technologies"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
	Video        string   `json:"video,omitempty"`
	Links        []Link   `json:"links"`
	Role         string   `json:"role,omitempty"`
	Featured     bool     `json:"featured"`
	Order        int      `json:"order"`
}

// Link is an outbound project link such as a website or source repository.
type Link struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Href returns the project's site path.
func (p Project) Href() string {
	return "/portfolio/" + p.Slug
}

var reLinkLine = regexp.MustCompile(`^(.*?):\s*(.+)$`)

// TransformProject maps one portfolio database page onto a Project.
func TransformProject(page notion.Page, schema ProjectSchema) Project {
	ps := page.Properties
	title := firstOr(ps, notion.Properties.Title, schema.Title, "")

	slug := Slugify(firstOr(ps, notion.Properties.Text, schema.Slug, ""))
	if slug == "" {
		slug = Slugify(title)
	}

	active := anyChecked(ps, schema.Active)
	if !active && schema.ActiveValue != "" {
		status, _ := first(ps, notion.Properties.Text, schema.ActiveStatus)
		active = status == schema.ActiveValue
	}

	thumbnail, ok := page.CoverURL()
	if !ok {
		thumbnail, ok = page.IconURL()
	}
	if !ok {
		thumbnail = firstOr(ps, link, schema.Thumbnail, "")
	}

	links := parseLinks(firstOr(ps, notion.Properties.Text, schema.Links, ""))
	if u, ok := first(ps, notion.Properties.URL, schema.Website); ok && !hasLinkType(links, "Website") {
		links = append(links, Link{Type: "Website", URL: u})
	}
	if u, ok := first(ps, notion.Properties.URL, schema.Source); ok && !hasLinkType(links, "Source") {
		links = append(links, Link{Type: "Source", URL: u})
	}

	order, _ := first(ps, nonZero, schema.Order)
	technologies, _ := first(ps, notion.Properties.MultiSelect, schema.Technologies)

	return Project{
		ID:           page.ID,
		Slug:         slug,
		Title:        title,
		Description:  firstOr(ps, notion.Properties.Text, schema.Description, ""),
		Dates:        firstOr(ps, notion.Properties.Text, schema.Dates, ""),
		Active:       active,
		Technologies: uniqueStrings(technologies),
		Thumbnail:    thumbnail,
		Video:        firstOr(ps, notion.Properties.URL, schema.Video, ""),
		Links:        links,
		Role:         firstOr(ps, notion.Properties.Text, schema.Role, ""),
		Featured:     anyChecked(ps, schema.Featured),
		Order:        int(order),
	}
}

// parseLinks reads one "Type: URL" pair per line. A line holding only a URL
// becomes a generic "Link".
func parseLinks(text string) []Link {
	links := []Link{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			links = append(links, Link{Type: "Link", URL: line})
			continue
		}
		if m := reLinkLine.FindStringSubmatch(line); m != nil {
			links = append(links, Link{Type: strings.TrimSpace(m[1]), URL: strings.TrimSpace(m[2])})
		}
	}
	return links
}

func hasLinkType(links []Link, typ string) bool {
	for _, l := range links {
		if l.Type == typ {
			return true
		}
	}
	return false
}

// SortProjects orders projects by explicit order when both sides have one,
// then featured first, then by title.
func SortProjects(projects []Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		a, b := projects[i], projects[j]
		if a.Order != 0 && b.Order != 0 && a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Featured != b.Featured {
			return a.Featured
		}
		la, lb := strings.ToLower(a.Title), strings.ToLower(b.Title)
		if la != lb {
			return la < lb
		}
		return a.Title < b.Title
	})
}

// Featured filters projects flagged as featured, keeping order.
func Featured(projects []Project) []Project {
	var out []Project
	for _, p := range projects {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

// Technologies returns every distinct technology across projects, sorted.
func Technologies(projects []Project) []string {
	var all []string
	for _, p := range projects {
		all = append(all, p.Technologies...)
	}
	techs := uniqueStrings(all)
	sort.Strings(techs)
	return techs
}
