package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/xhad/articlerag/internal/models"
)

type EmbedderConfig struct {
	BatchSize     int
	StripNewLines bool
}

// Embedder turns texts into vectors. A batch either fully succeeds or fails.
type Embedder struct {
	config   EmbedderConfig
	embedder embeddings.Embedder
}

func NewEmbedderWithConfig(client embeddings.EmbedderClient, config EmbedderConfig) (*Embedder, error) {
	if config.BatchSize <= 0 {
		config.BatchSize = 512
	}

	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(config.BatchSize),
		embeddings.WithStripNewLines(config.StripNewLines))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config:   config,
		embedder: emb,
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create embeddings: %v", models.ErrUpstream, err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", models.ErrUpstream, len(vectors), len(texts))
	}

	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", models.ErrUpstream, i)
		}
	}

	return vectors, nil
}

func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
