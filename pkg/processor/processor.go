package processor

import (
	"strings"
	"unicode/utf8"

	"github.com/xhad/articlerag/internal/models"
)

type ProcessorConfig struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1500
	}

	return Processor{
		config: config,
	}
}

// Chunk splits content on newlines into paragraphs and packs consecutive
// paragraphs into chunks of at most ChunkSize runes. Paragraphs longer than
// ChunkSize are split at word boundaries.
func (p *Processor) Chunk(content string) []models.Chunk {
	maxLen := p.config.ChunkSize

	var texts []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			texts = append(texts, current.String())
		}
		current.Reset()
		currentLen = 0
	}

	for _, para := range splitParagraphs(content) {
		paraLen := utf8.RuneCountInString(para)

		if paraLen > maxLen {
			flush()
			texts = append(texts, splitLongParagraph(para, maxLen)...)
			continue
		}

		// Adding this paragraph would exceed the chunk size
		if currentLen > 0 && currentLen+1+paraLen > maxLen {
			flush()
		}

		if currentLen > 0 {
			current.WriteByte('\n')
			currentLen++
		}
		current.WriteString(para)
		currentLen += paraLen
	}
	flush()

	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{Index: i, Text: text}
	}
	return chunks
}

func splitParagraphs(content string) []string {
	var paragraphs []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return paragraphs
}

func splitLongParagraph(para string, maxLen int) []string {
	var pieces []string
	var current strings.Builder
	currentLen := 0

	for _, word := range strings.Fields(para) {
		wordLen := utf8.RuneCountInString(word)

		if currentLen > 0 && currentLen+1+wordLen > maxLen {
			pieces = append(pieces, current.String())
			current.Reset()
			currentLen = 0
		}

		if wordLen > maxLen {
			// No boundary to split on, cut by runes
			runes := []rune(word)
			for len(runes) > maxLen {
				pieces = append(pieces, string(runes[:maxLen]))
				runes = runes[maxLen:]
			}
			word = string(runes)
			wordLen = len(runes)
		}

		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += wordLen
	}

	if currentLen > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}
