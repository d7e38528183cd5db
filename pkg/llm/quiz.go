package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/articlerag/internal/models"
)

var codeFence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

const quizSystemPrompt = "You generate factual MCQs from articles. Always return pure JSON without markdown formatting."

const quizPromptTemplate = `
You are a quiz creator AI.

Read the following article and generate 3 to 5 multiple-choice questions (MCQs).

Each question must have:
- a clear and factual question
- 4 options
- exactly 1 correct answer
- answers must be derived from the article content

Return the output in **strict JSON format** like this:

[
  {
    "question": "What is the main topic of the article?",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "answer": "Option A"
  }
]

IMPORTANT: Return ONLY the JSON array. Do not wrap it in markdown code blocks or add any explanations.

---

%s
`

type QuizConfig struct {
	Temperature float64
	MaxTokens   int
}

type QuizGenerator struct {
	config QuizConfig
	llm    llms.Model
}

func NewQuizGenerator(llm llms.Model, config QuizConfig) *QuizGenerator {
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	return &QuizGenerator{config: config, llm: llm}
}

// Generate asks the model for a quiz about content. Model output that fails
// ParseQuiz is logged and yields an empty quiz, never an error.
func (q *QuizGenerator) Generate(ctx context.Context, content string) ([]models.MCQ, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: no content to generate quiz from", models.ErrInvalidInput)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, quizSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(quizPromptTemplate, content)),
	}

	response, err := q.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(q.config.Temperature),
		llms.WithMaxTokens(q.config.MaxTokens))
	if err != nil {
		return nil, fmt.Errorf("%w: quiz generation failed: %v", models.ErrUpstream, err)
	}

	raw := firstChoice(response, "")
	quiz, err := ParseQuiz(raw)
	if err != nil {
		log.Warn().
			Err(err).
			Str("raw", truncate(raw, 200)).
			Msg("quiz output rejected")
		return []models.MCQ{}, nil
	}

	return quiz, nil
}

// ParseQuiz strips an optional code fence from raw and decodes it as a quiz.
// The whole quiz is rejected if any question is malformed.
func ParseQuiz(raw string) ([]models.MCQ, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", models.ErrMalformedModelOutput)
	}

	if !strings.HasPrefix(cleaned, "[") || !strings.HasSuffix(cleaned, "]") {
		return nil, fmt.Errorf("%w: expected a JSON array, got %q", models.ErrMalformedModelOutput, truncate(cleaned, 100))
	}

	var quiz []models.MCQ
	if err := json.Unmarshal([]byte(cleaned), &quiz); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", models.ErrMalformedModelOutput, err)
	}

	if len(quiz) == 0 {
		return nil, fmt.Errorf("%w: quiz must be a non-empty array", models.ErrMalformedModelOutput)
	}

	for i, mcq := range quiz {
		if strings.TrimSpace(mcq.Question) == "" || mcq.Options == nil || mcq.Answer == "" {
			return nil, fmt.Errorf("%w: question %d must have question, options and answer", models.ErrMalformedModelOutput, i)
		}
		if len(mcq.Options) != 4 {
			return nil, fmt.Errorf("%w: question %d has %d options, want 4", models.ErrMalformedModelOutput, i, len(mcq.Options))
		}
		if !contains(mcq.Options, mcq.Answer) {
			return nil, fmt.Errorf("%w: question %d answer is not one of its options", models.ErrMalformedModelOutput, i)
		}
	}

	return quiz, nil
}

func extractJSON(content string) string {
	if match := codeFence.FindStringSubmatch(content); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(content)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
