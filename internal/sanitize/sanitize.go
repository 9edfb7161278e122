package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxQueryLength caps a sanitized search query, in runes.
const MaxQueryLength = 100

var (
	// Comments, doctype/processing instructions and element tags. A '<' not
	// followed by a letter, '/', '!' or '?' is plain text.
	markupTag  = regexp.MustCompile(`(?s)<!--.*?-->|<[!?][^<>]*>|</?[A-Za-z][^<>]*>`)
	angleChars = strings.NewReplacer("<", " ", ">", " ")
)

// SearchQuery turns untrusted search input into a string that is safe to
// show in a page heading and to hand to the article store. It never fails:
// markup tags are removed, any other angle bracket becomes a space, control characters and whitespace runs collapse into a
// single space and the result is trimmed and length-capped.
//
// SearchQuery(SearchQuery(s)) == SearchQuery(s) for every s.
func SearchQuery(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ToValidUTF8(raw, " ")
	s = markupTag.ReplaceAllString(s, " ")
	s = angleChars.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	if runes := []rune(s); len(runes) > MaxQueryLength {
		s = strings.TrimSpace(string(runes[:MaxQueryLength]))
	}
	return s
}

// Terms splits a sanitized query into unique search terms of at least
// minLen runes, preserving first-seen order.
func Terms(query string, minLen int) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, term := range strings.Fields(query) {
		if len([]rune(term)) < minLen {
			continue
		}
		key := strings.ToLower(term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}
