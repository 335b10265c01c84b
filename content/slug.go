package content

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gosimple/slug"
)

// Slugify converts a title to a URL-safe slug: lowercase, every run of
// characters outside [a-z0-9] collapsed to a single hyphen, no leading or
// trailing hyphen. Titles written entirely in non-Latin scripts are
// transliterated first so they still get a usable slug.
func Slugify(s string) string {
	out := asciiSlug(s)
	if out == "" && hasLetterOrDigit(s) {
		out = asciiSlug(slug.Make(s))
	}
	return out
}

func asciiSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// resolveSlugs drops records whose slug is empty and disambiguates
// collisions in collection order: the first record keeps its slug, later
// ones get -2, -3, ... appended.
func resolveSlugs[T any](records []T, slugOf func(*T) *string) []T {
	used := make(map[string]bool, len(records))
	out := records[:0]
	for i := range records {
		s := slugOf(&records[i])
		if *s == "" {
			continue
		}
		candidate := *s
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s-%d", *s, n)
		}
		used[candidate] = true
		*s = candidate
		out = append(out, records[i])
	}
	return out
}
