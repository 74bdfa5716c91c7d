package service

import (
	"strings"
)

// DocumentChunk is one section of a document prepared for embedding. Content
// carries the title preamble so every vector keeps document-level context;
// RawText is what gets stored as retrieval metadata.
type DocumentChunk struct {
	Index   int
	Section string
	Content string
	RawText string
}

// chunkDocument splits a markdown body into section-level chunks on "## "
// headings. Text before the first heading becomes an "Introduction" chunk;
// a body without headings yields a single chunk.
func chunkDocument(title, body string) []DocumentChunk {
	preamble := title + "\n\n"
	body = strings.TrimSpace(body)

	var chunks []DocumentChunk
	appendChunk := func(section, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		chunks = append(chunks, DocumentChunk{
			Index:   len(chunks),
			Section: section,
			Content: preamble + text,
			RawText: text,
		})
	}

	flush := func(section string, lines []string) {
		text := strings.Join(lines, "\n")
		if len(lines) > 0 && strings.HasPrefix(lines[0], "## ") {
			// A heading with no body under it contributes nothing.
			if strings.TrimSpace(strings.Join(lines[1:], "\n")) == "" {
				return
			}
		}
		appendChunk(section, text)
	}

	section := "Introduction"
	var current []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush(section, current)
			section = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			current = []string{line}
			continue
		}
		current = append(current, line)
	}
	flush(section, current)

	if len(chunks) == 0 && body != "" {
		appendChunk("", body)
	}

	return chunks
}
