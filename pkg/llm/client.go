package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ClientConfig selects the model provider.
type ClientConfig struct {
	Provider       string // "openai" or "ollama"
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
}

// Client holds the generation model and the embedding client of one provider.
type Client struct {
	Model     llms.Model
	Embedding embeddings.EmbedderClient
}

func NewClient(config ClientConfig) (*Client, error) {
	switch config.Provider {
	case "", "openai":
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
			openai.WithEmbeddingModel(config.EmbeddingModel),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}

		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai client: %w", err)
		}
		return &Client{Model: llm, Embedding: llm}, nil

	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434" // Default Ollama URL
		}

		chat, err := ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}

		emb, err := ollama.New(ollama.WithModel(config.EmbeddingModel),
			ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
		}
		return &Client{Model: chat, Embedding: emb}, nil
	}

	return nil, fmt.Errorf("unknown provider: %s", config.Provider)
}
