// Package notion is a small client for the Notion REST API covering the two
// things the site needs: querying a database for pages and walking a page's
// block tree. Page properties are exposed through tolerant accessors that
// never fail on missing or mistyped values.
package notion

import "strings"

// Page is a database row as returned by a database query.
type Page struct {
	Object         string     `json:"object"`
	ID             string     `json:"id"`
	CreatedTime    string     `json:"created_time"`
	LastEditedTime string     `json:"last_edited_time"`
	URL            string     `json:"url"`
	Icon           *Icon      `json:"icon"`
	Cover          *File      `json:"cover"`
	Properties     Properties `json:"properties"`
}

// RichText is one styled run of text.
type RichText struct {
	Type        string      `json:"type"`
	PlainText   string      `json:"plain_text"`
	Href        *string     `json:"href"`
	Annotations Annotations `json:"annotations"`
}

// Annotations carries the inline styles of a RichText run.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// Option is a select, multi-select or status choice.
type Option struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// User is a workspace member referenced by people and created_by properties.
type User struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

// DateValue is the value of a date property.
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end"`
}

// FileURL is a hosted or external file location. Hosted URLs expire.
type FileURL struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// File is an entry of a files property, or a page cover.
type File struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	External *FileURL `json:"external"`
	File     *FileURL `json:"file"`
}

// Link returns the URL of the file regardless of where it is hosted.
func (f File) Link() string {
	switch {
	case f.Type == "external" && f.External != nil:
		return f.External.URL
	case f.Type == "file" && f.File != nil:
		return f.File.URL
	}
	return ""
}

// Icon is a page or callout icon.
type Icon struct {
	Type     string   `json:"type"`
	Emoji    string   `json:"emoji"`
	External *FileURL `json:"external"`
	File     *FileURL `json:"file"`
}

// Formula is the computed value of a formula property.
type Formula struct {
	Type    string   `json:"type"`
	String  *string  `json:"string"`
	Number  *float64 `json:"number"`
	Boolean *bool    `json:"boolean"`
}

// Property is one entry of a page's property bag. Only the field named by
// Type is meaningful.
type Property struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Title       []RichText `json:"title"`
	RichText    []RichText `json:"rich_text"`
	Select      *Option    `json:"select"`
	Status      *Option    `json:"status"`
	MultiSelect []Option   `json:"multi_select"`
	Checkbox    bool       `json:"checkbox"`
	URL         *string    `json:"url"`
	Email       *string    `json:"email"`
	PhoneNumber *string    `json:"phone_number"`
	Number      *float64   `json:"number"`
	Date        *DateValue `json:"date"`
	Files       []File     `json:"files"`
	People      []User     `json:"people"`
	CreatedBy   *User      `json:"created_by"`
	Formula     *Formula   `json:"formula"`
}

// Properties is a page's property bag keyed by property name.
type Properties map[string]Property

// PlainText concatenates the plain text of every run.
func PlainText(runs []RichText) string {
	if len(runs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

// CoverURL returns the page cover location.
func (p Page) CoverURL() (string, bool) {
	if p.Cover == nil {
		return "", false
	}
	return nonEmpty(p.Cover.Link())
}

// IconURL returns the page icon location. Emoji icons have no URL.
func (p Page) IconURL() (string, bool) {
	if p.Icon == nil {
		return "", false
	}
	switch {
	case p.Icon.Type == "external" && p.Icon.External != nil:
		return nonEmpty(p.Icon.External.URL)
	case p.Icon.Type == "file" && p.Icon.File != nil:
		return nonEmpty(p.Icon.File.URL)
	}
	return "", false
}
