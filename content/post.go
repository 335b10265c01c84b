// Package content turns pages of the remote workspace into the site's
// records: blog posts and portfolio projects, plus their markdown bodies.
package content

import (
	"slices"
	"sort"

	"github.com/folio-site/folio/notion"
)

// Post is a blog post as the site sees it.
type Post struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	Featured    bool     `json:"featured"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Author      string   `json:"author,omitempty"`
	ReadTime    string   `json:"readTime,omitempty"`
}

// Link returns the post's site path.
func (p Post) Link() string {
	return "/blog/" + p.Slug
}

// TransformPost maps one blog database page onto a Post. It never fails; a
// page without a title yields an empty slug, which callers must discard.
func TransformPost(page notion.Page, schema PostSchema) Post {
	ps := page.Properties
	title := firstOr(ps, notion.Properties.Title, schema.Title, "")

	slug := Slugify(firstOr(ps, notion.Properties.Text, schema.Slug, ""))
	if slug == "" {
		slug = Slugify(title)
	}

	published := true
	if hasAny(ps, schema.Status) {
		status := firstOr(ps, notion.Properties.Text, schema.Status, "")
		published = slices.Contains(schema.PublishedValues, status)
	}

	var tags []string
	for _, k := range schema.Tags {
		if vals, ok := ps.MultiSelect(k); ok {
			tags = append(tags, vals...)
		}
	}
	for _, k := range schema.Category {
		if v, ok := ps.Select(k); ok {
			tags = append(tags, v)
		}
	}

	return Post{
		ID:          page.ID,
		Slug:        slug,
		Title:       title,
		Description: firstOr(ps, notion.Properties.Text, schema.Description, ""),
		Date:        firstOr(ps, notion.Properties.Date, schema.Date, page.CreatedTime),
		Tags:        uniqueStrings(tags),
		Published:   published,
		Featured:    anyChecked(ps, schema.Featured),
		Thumbnail:   firstOr(ps, link, schema.Thumbnail, ""),
		Author:      firstOr(ps, notion.Properties.Person, schema.Author, ""),
		ReadTime:    firstOr(ps, notion.Properties.Text, schema.ReadTime, ""),
	}
}

// SortPostsByDate orders posts newest first. ISO dates sort lexically.
func SortPostsByDate(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date > posts[j].Date
	})
}

// Tags returns every distinct tag across posts, sorted.
func Tags(posts []Post) []string {
	var all []string
	for _, p := range posts {
		all = append(all, p.Tags...)
	}
	tags := uniqueStrings(all)
	sort.Strings(tags)
	return tags
}

// uniqueStrings keeps the first occurrence of each value, in order, and
// never returns nil.
func uniqueStrings(vals []string) []string {
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// WithTag filters posts carrying tag, keeping order.
func WithTag(posts []Post, tag string) []Post {
	var out []Post
	for _, p := range posts {
		if slices.Contains(p.Tags, tag) {
			out = append(out, p)
		}
	}
	return out
}

// Related returns up to n other posts ranked by the number of tags they share
// with post. Posts sharing nothing are left out; ties keep list order.
func Related(posts []Post, post Post, n int) []Post {
	type scored struct {
		post  Post
		score int
	}
	var candidates []scored
	for _, p := range posts {
		if p.ID == post.ID {
			continue
		}
		score := 0
		for _, t := range p.Tags {
			if slices.Contains(post.Tags, t) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{p, score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	out := make([]Post, 0, min(n, len(candidates)))
	for _, c := range candidates[:min(n, len(candidates))] {
		out = append(out, c.post)
	}
	return out
}
