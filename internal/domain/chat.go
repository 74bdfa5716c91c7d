package domain

import "strings"

// RetrievalMatch is a single nearest-neighbor hit from the vector index.
// It lives only for the duration of one pipeline run.
type RetrievalMatch struct {
	Score    float64
	Metadata map[string]string
}

// Title returns the title metadata field, or "" if absent.
func (m RetrievalMatch) Title() string { return m.Metadata["title"] }

// Text returns the text metadata field, or "" if absent.
func (m RetrievalMatch) Text() string { return m.Metadata["text"] }

// URL returns the url metadata field, or "" if absent.
func (m RetrievalMatch) URL() string { return m.Metadata["url"] }

// NormalizeQuery trims a user query and strips markup down to plain text.
// An empty result means the query is unusable.
func NormalizeQuery(raw string) string {
	return strings.TrimSpace(stripTags(raw))
}

// ValidateQuery returns ErrEmptyQuery if the query is empty after
// normalization.
func ValidateQuery(query string) error {
	if NormalizeQuery(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// stripTags removes anything that looks like an HTML/XML tag. Queries are
// forwarded to external providers verbatim, so angle-bracket markup is
// dropped rather than escaped.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
