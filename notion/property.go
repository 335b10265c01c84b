package notion

import "strings"

// Property accessors look up key and return the typed value with ok=true, or
// the zero value with ok=false when the property is missing, has another
// type, or holds nothing. They never panic on a malformed bag.

// Has reports whether the schema carries a property named key at all.
func (ps Properties) Has(key string) bool {
	_, ok := ps[key]
	return ok
}

func (ps Properties) typed(key, typ string) (Property, bool) {
	p, ok := ps[key]
	if !ok || p.Type != typ {
		return Property{}, false
	}
	return p, true
}

// Title returns the text of a title property.
func (ps Properties) Title(key string) (string, bool) {
	p, ok := ps.typed(key, "title")
	if !ok {
		return "", false
	}
	return nonEmpty(PlainText(p.Title))
}

// RichText returns the text of a rich_text property.
func (ps Properties) RichText(key string) (string, bool) {
	p, ok := ps.typed(key, "rich_text")
	if !ok {
		return "", false
	}
	return nonEmpty(PlainText(p.RichText))
}

// Select returns the chosen option name of a select property.
func (ps Properties) Select(key string) (string, bool) {
	p, ok := ps.typed(key, "select")
	if !ok || p.Select == nil {
		return "", false
	}
	return nonEmpty(p.Select.Name)
}

// Status returns the option name of a status property.
func (ps Properties) Status(key string) (string, bool) {
	p, ok := ps.typed(key, "status")
	if !ok || p.Status == nil {
		return "", false
	}
	return nonEmpty(p.Status.Name)
}

// MultiSelect returns the option names of a multi_select property. An empty
// selection reports ok=false.
func (ps Properties) MultiSelect(key string) ([]string, bool) {
	p, ok := ps.typed(key, "multi_select")
	if !ok || len(p.MultiSelect) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(p.MultiSelect))
	for _, o := range p.MultiSelect {
		if o.Name != "" {
			names = append(names, o.Name)
		}
	}
	return names, len(names) > 0
}

// Checkbox returns the value of a checkbox property. ok is true whenever the
// property exists with the checkbox type, including unchecked boxes.
func (ps Properties) Checkbox(key string) (bool, bool) {
	p, ok := ps.typed(key, "checkbox")
	if !ok {
		return false, false
	}
	return p.Checkbox, true
}

// URL returns the value of a url property.
func (ps Properties) URL(key string) (string, bool) {
	p, ok := ps.typed(key, "url")
	if !ok || p.URL == nil {
		return "", false
	}
	return nonEmpty(*p.URL)
}

// Number returns the value of a number property.
func (ps Properties) Number(key string) (float64, bool) {
	p, ok := ps.typed(key, "number")
	if !ok || p.Number == nil {
		return 0, false
	}
	return *p.Number, true
}

// Date returns the start of a date property as written by the API.
func (ps Properties) Date(key string) (string, bool) {
	p, ok := ps.typed(key, "date")
	if !ok || p.Date == nil {
		return "", false
	}
	return nonEmpty(p.Date.Start)
}

// File returns the location of the first file in a files property.
func (ps Properties) File(key string) (string, bool) {
	p, ok := ps.typed(key, "files")
	if !ok || len(p.Files) == 0 {
		return "", false
	}
	return nonEmpty(p.Files[0].Link())
}

// Person returns the name of the first person in a people property, or the
// creator of a created_by property.
func (ps Properties) Person(key string) (string, bool) {
	p, ok := ps[key]
	if !ok {
		return "", false
	}
	switch p.Type {
	case "people":
		if len(p.People) == 0 {
			return "", false
		}
		return nonEmpty(p.People[0].Name)
	case "created_by":
		if p.CreatedBy == nil {
			return "", false
		}
		return nonEmpty(p.CreatedBy.Name)
	}
	return "", false
}

// Text returns a plain-text reading of any textual property: title,
// rich_text, select, status, url, email, phone_number or a string formula.
func (ps Properties) Text(key string) (string, bool) {
	p, ok := ps[key]
	if !ok {
		return "", false
	}
	switch p.Type {
	case "title":
		return ps.Title(key)
	case "rich_text":
		return ps.RichText(key)
	case "select":
		return ps.Select(key)
	case "status":
		return ps.Status(key)
	case "url":
		return ps.URL(key)
	case "email":
		return deref(p.Email)
	case "phone_number":
		return deref(p.PhoneNumber)
	case "formula":
		if p.Formula != nil && p.Formula.Type == "string" {
			return deref(p.Formula.String)
		}
	}
	return "", false
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return nonEmpty(*s)
}

func nonEmpty(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
