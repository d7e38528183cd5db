package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/articlerag/internal/models"
)

const NoAnswerFallback = "No answer found"

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string
}

// ChatEngine answers questions using only the retrieved article context.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(llm llms.Model, config ChatConfig) (*ChatEngine, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful assistant that only uses the given context."
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = `Answer the following question based ONLY on the context below.
If the question is about anything other than the article, say so and ask for a question about the article.

Context:
%s

Question: %s`
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Answer generates a response to the question from the context chunks,
// which are kept in retrieval order.
func (ce *ChatEngine) Answer(ctx context.Context, question string, contextChunks []string) (string, error) {
	content, err := ce.messages(question, contextChunks)
	if err != nil {
		return "", err
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("%w: chat error: %v", models.ErrUpstream, err)
	}

	return firstChoice(response, NoAnswerFallback), nil
}

// AnswerStream is Answer with each generated token passed to onToken.
func (ce *ChatEngine) AnswerStream(ctx context.Context, question string, contextChunks []string, onToken func(string) error) (string, error) {
	content, err := ce.messages(question, contextChunks)
	if err != nil {
		return "", err
	}

	var streamed strings.Builder
	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			streamed.Write(chunk)
			if onToken == nil {
				return nil
			}
			return onToken(string(chunk))
		}))
	if err != nil {
		return "", fmt.Errorf("%w: chat stream error: %v", models.ErrUpstream, err)
	}

	if answer := firstChoice(response, ""); answer != "" {
		return answer, nil
	}
	if answer := strings.TrimSpace(streamed.String()); answer != "" {
		return answer, nil
	}
	return NoAnswerFallback, nil
}

func (ce *ChatEngine) messages(question string, contextChunks []string) ([]llms.MessageContent, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", models.ErrInvalidInput)
	}
	if len(contextChunks) == 0 {
		return nil, fmt.Errorf("%w: context is required", models.ErrInvalidInput)
	}

	prompt := fmt.Sprintf(ce.config.ContextTemplate, strings.Join(contextChunks, "\n\n"), question)

	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, nil
}

// firstChoice returns the trimmed text of the first choice, or fallback.
func firstChoice(response *llms.ContentResponse, fallback string) string {
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return fallback
	}
	if text := strings.TrimSpace(response.Choices[0].Content); text != "" {
		return text
	}
	return fallback
}
