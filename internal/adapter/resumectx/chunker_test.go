package resumectx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks_SectionsAndEntries(t *testing.T) {
	t.Parallel()

	text := `John Doe
john@example.com | +1 555 0100

Experience:
Built streaming ingestion pipelines in Python handling 2M events per day.

Led migration of the reporting warehouse to PostgreSQL with zero downtime.

Skills
Python, SQL, Kafka, Docker, Kubernetes and Terraform in production settings.
`
	chunks := SplitChunks(text)
	require.NotEmpty(t, chunks)

	sections := map[string]int{}
	for _, c := range chunks {
		sections[c.Section]++
	}
	assert.Equal(t, 2, sections["experience"])
	assert.Equal(t, 1, sections["skills"])
	// Contact header lands in the default section.
	assert.GreaterOrEqual(t, sections["general"], 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index, "indexes must be sequential")
		assert.GreaterOrEqual(t, len(c.Text), minChunkChars)
	}
}

func TestSplitChunks_DropsNoise(t *testing.T) {
	t.Parallel()

	chunks := SplitChunks("Page 1\n\n---\n\nok\n")
	assert.Empty(t, chunks)
}

func TestSplitChunks_SplitsOversizedEntries(t *testing.T) {
	t.Parallel()

	line := "Implemented a service that processes batch uploads and reconciles ledgers."
	text := strings.Repeat(line+"\n", 30)
	chunks := SplitChunks(text)
	require.Greater(t, len(chunks), 1, "oversized entry must split")
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), maxChunkChars+len(line))
	}
}

func TestHeaderName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"Experience", "experience", true},
		{"WORK EXPERIENCE:", "experience", true},
		{"Technical Skills", "skills", true},
		{"Built a thing with experience in Go", "", false},
		{"Projects", "projects", true},
	}
	for _, tt := range tests {
		got, ok := headerName(tt.line)
		assert.Equal(t, tt.ok, ok, "line %q", tt.line)
		if ok {
			assert.Equal(t, tt.want, got)
		}
	}
}
