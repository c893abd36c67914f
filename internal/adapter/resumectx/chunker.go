package resumectx

import "strings"

// Chunk is one retrievable slice of a resume.
type Chunk struct {
	Text    string
	Section string
	Index   int
}

const (
	maxChunkChars = 800
	minChunkChars = 30
)

var sectionHeaders = map[string]string{
	"summary":           "summary",
	"profile":           "summary",
	"about":             "summary",
	"experience":        "experience",
	"work experience":   "experience",
	"employment":        "experience",
	"projects":          "projects",
	"personal projects": "projects",
	"education":         "education",
	"skills":            "skills",
	"technical skills":  "skills",
	"certifications":    "certifications",
	"achievements":      "achievements",
	"awards":            "achievements",
}

// SplitChunks breaks resume text into section-tagged chunks: section headers
// open a new section, blank lines separate entries, oversized entries are
// re-split on line boundaries. Entries below the minimum size are noise
// (page numbers, dividers) and are dropped.
func SplitChunks(text string) []Chunk {
	section := "general"
	var chunks []Chunk
	index := 0

	flush := func(entry []string) {
		joined := strings.TrimSpace(strings.Join(entry, "\n"))
		if len(joined) < minChunkChars {
			return
		}
		for _, part := range splitOversized(joined) {
			chunks = append(chunks, Chunk{Text: part, Section: section, Index: index})
			index++
		}
	}

	var entry []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush(entry)
			entry = nil
			continue
		}
		if name, ok := headerName(trimmed); ok {
			flush(entry)
			entry = nil
			section = name
			continue
		}
		entry = append(entry, trimmed)
	}
	flush(entry)
	return chunks
}

// headerName recognizes a standalone section header line.
func headerName(line string) (string, bool) {
	if len(line) > 40 {
		return "", false
	}
	key := strings.ToLower(strings.TrimRight(strings.TrimSpace(line), ":"))
	key = strings.TrimSpace(key)
	name, ok := sectionHeaders[key]
	return name, ok
}

// splitOversized keeps every chunk under maxChunkChars, cutting on line
// boundaries so bullet lists stay readable.
func splitOversized(text string) []string {
	if len(text) <= maxChunkChars {
		return []string{text}
	}
	var parts []string
	var cur []string
	curLen := 0
	for _, line := range strings.Split(text, "\n") {
		if curLen+len(line) > maxChunkChars && curLen > 0 {
			parts = append(parts, strings.Join(cur, "\n"))
			cur = nil
			curLen = 0
		}
		cur = append(cur, line)
		curLen += len(line) + 1
	}
	if len(cur) > 0 {
		parts = append(parts, strings.Join(cur, "\n"))
	}
	return parts
}
