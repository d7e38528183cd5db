package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/articlerag/internal/models"
)

const SummaryFallback = "Summary unavailable."

const summaryPromptTemplate = `
You are a helpful assistant.

Summarize the following article in 5-7 sentences.

Make it easy to understand, even for a 12-year-old.

Start with: "This article is about..."

---

%s
`

type SummarizerConfig struct {
	Temperature float64
	MaxTokens   int
}

type Summarizer struct {
	config SummarizerConfig
	llm    llms.Model
}

func NewSummarizer(llm llms.Model, config SummarizerConfig) *Summarizer {
	if config.Temperature == 0 {
		config.Temperature = 0.5
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	return &Summarizer{config: config, llm: llm}
}

// Summarize returns a short plain-language summary. Model failures are
// logged and produce SummaryFallback.
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: no content to summarize", models.ErrInvalidInput)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "You are an expert article summarizer."),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(summaryPromptTemplate, content)),
	}

	response, err := s.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(s.config.Temperature),
		llms.WithMaxTokens(s.config.MaxTokens))
	if err != nil {
		log.Error().Err(err).Msg("summary generation failed")
		return SummaryFallback, nil
	}

	summary := firstChoice(response, "")
	if summary == "" {
		log.Warn().Msg("no summary returned")
		return SummaryFallback, nil
	}

	return summary, nil
}
