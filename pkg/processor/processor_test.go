package processor_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/articlerag/internal/models"
	"github.com/xhad/articlerag/pkg/processor"
)

// rejoin reverses Chunk for paragraphs that fit in a single chunk.
func rejoin(chunks []models.Chunk) []string {
	var paragraphs []string
	for _, c := range chunks {
		paragraphs = append(paragraphs, strings.Split(c.Text, "\n")...)
	}
	return paragraphs
}

func TestProcessor_Chunk(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 30})

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "empty",
			content: "",
			want:    nil,
		},
		{
			name:    "whitespace only",
			content: " \n\n\t\n",
			want:    nil,
		},
		{
			name:    "single paragraph",
			content: "Hello world.",
			want:    []string{"Hello world."},
		},
		{
			name:    "paragraphs packed together",
			content: "First para.\n\n  Second para.  \n",
			want:    []string{"First para.\nSecond para."},
		},
		{
			name:    "packing stops at the limit",
			content: "aaaaaaaaaaaaaaa\nbbbbbbbbbbbbbbb\nccccc",
			want:    []string{"aaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbb\nccccc"},
		},
		{
			name:    "exact fit",
			content: "aaaaaaaaaaaaaa\nbbbbbbbbbbbbbbb",
			want:    []string{"aaaaaaaaaaaaaa\nbbbbbbbbbbbbbbb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := p.Chunk(tt.content)

			var got []string
			for i, c := range chunks {
				assert.Equal(t, i, c.Index)
				got = append(got, c.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessor_ChunkPreservesParagraphs(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 120})

	var paragraphs []string
	for i := 0; i < 40; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf("Paragraph %d %s", i, strings.Repeat("x", i*2)))
	}
	content := strings.Join(paragraphs, "\n\n")

	chunks := p.Chunk(content)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Text)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 120)
	}
	assert.Equal(t, paragraphs, rejoin(chunks))
}

func TestProcessor_ChunkSplitsLongParagraphs(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 20})

	long := "the quick brown fox jumps over the lazy dog again and again"
	content := "intro\n" + long + "\noutro"

	chunks := p.Chunk(content)
	require.Greater(t, len(chunks), 3)

	var words []string
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 20)
		words = append(words, strings.Fields(c.Text)...)
	}

	assert.Equal(t, "intro", chunks[0].Text)
	assert.Equal(t, "outro", chunks[len(chunks)-1].Text)
	assert.Equal(t, strings.Fields(content), words)
}

func TestProcessor_ChunkHardSplitsLongWords(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 4})

	chunks := p.Chunk("ééééééééé")

	require.Len(t, chunks, 3)
	assert.Equal(t, "éééé", chunks[0].Text)
	assert.Equal(t, "éééé", chunks[1].Text)
	assert.Equal(t, "é", chunks[2].Text)
}
