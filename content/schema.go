package content

import "github.com/folio-site/folio/notion"

// PostSchema lists, for each logical blog-post field, the property names
// tried in order. The first one yielding a value wins. Authors rename
// columns; adding a name here is the whole fix.
type PostSchema struct {
	Title       []string
	Slug        []string
	Description []string
	// Status names the status-like properties. When none of them exist in a
	// page's schema the post counts as published.
	Status          []string
	PublishedValues []string
	Tags            []string
	Category        []string
	Date            []string
	Featured        []string
	Thumbnail       []string
	Author          []string
	ReadTime        []string
}

// DefaultPostSchema matches the blog database.
var DefaultPostSchema = PostSchema{
	Title:           []string{"Title", "Name"},
	Slug:            []string{"Slug"},
	Description:     []string{"Description", "Summary", "Excerpt"},
	Status:          []string{"Status"},
	PublishedValues: []string{"Published", "Live", "Done", "published", "live", "done"},
	Tags:            []string{"Tags"},
	Category:        []string{"Category"},
	Date:            []string{"Published Date", "Date", "Created"},
	Featured:        []string{"Featured"},
	Thumbnail:       []string{"Featured Image", "Cover", "Image"},
	Author:          []string{"Author", "Created by"},
	ReadTime:        []string{"Read Time", "Reading Time"},
}

// ProjectSchema is PostSchema's counterpart for the portfolio database.
type ProjectSchema struct {
	Title        []string
	Slug         []string
	Description  []string
	Role         []string
	Dates        []string
	Active       []string
	ActiveStatus []string
	ActiveValue  string
	Technologies []string
	Thumbnail    []string
	Video        []string
	Links        []string
	Website      []string
	Source       []string
	Featured     []string
	Order        []string
}

// DefaultProjectSchema matches the portfolio database.
var DefaultProjectSchema = ProjectSchema{
	Title:        []string{"Name", "Title", "Project"},
	Slug:         []string{"Slug"},
	Description:  []string{"Description", "Summary"},
	Role:         []string{"Role", "My Role"},
	Dates:        []string{"Dates", "Timeline", "Period"},
	Active:       []string{"Active", "In Progress"},
	ActiveStatus: []string{"Status"},
	ActiveValue:  "Active",
	Technologies: []string{"Technologies", "Tech Stack", "Tags"},
	Thumbnail:    []string{"Thumbnail", "Image", "Cover"},
	Video:        []string{"Video", "Demo"},
	Links:        []string{"Links"},
	Website:      []string{"Website", "URL"},
	Source:       []string{"GitHub", "Source"},
	Featured:     []string{"Featured"},
	Order:        []string{"Order", "Sort"},
}

// first walks keys in order and returns the first value get reports.
func first[T any](ps notion.Properties, get func(notion.Properties, string) (T, bool), keys []string) (T, bool) {
	for _, k := range keys {
		if v, ok := get(ps, k); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func firstOr[T any](ps notion.Properties, get func(notion.Properties, string) (T, bool), keys []string, fallback T) T {
	if v, ok := first(ps, get, keys); ok {
		return v
	}
	return fallback
}

// anyChecked reports whether any of the checkbox properties is ticked.
func anyChecked(ps notion.Properties, keys []string) bool {
	for _, k := range keys {
		if v, ok := ps.Checkbox(k); ok && v {
			return true
		}
	}
	return false
}

func hasAny(ps notion.Properties, keys []string) bool {
	for _, k := range keys {
		if ps.Has(k) {
			return true
		}
	}
	return false
}

// link reads a url property, or the first file of a files property.
func link(ps notion.Properties, key string) (string, bool) {
	if v, ok := ps.URL(key); ok {
		return v, true
	}
	return ps.File(key)
}

// nonZero reads a number property and treats 0 as absent.
func nonZero(ps notion.Properties, key string) (float64, bool) {
	v, ok := ps.Number(key)
	return v, ok && v != 0
}
