package types

import (
	"context"

	"github.com/xhad/articlerag/internal/models"
)

// Core interfaces
type Extractor interface {
	Extract(ctx context.Context, url string) (*models.Article, error)
}

type Chunker interface {
	Chunk(content string) []models.Chunk
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	EnsureCollection(ctx context.Context, spec models.CollectionSpec) error
	StoreChunks(ctx context.Context, collection, articleID string, vectors [][]float32, chunks []models.Chunk) (int, error)
	Search(ctx context.Context, collection string, query models.SearchQuery) ([]string, error)
	Close() error
}

type Answerer interface {
	Answer(ctx context.Context, question string, contextChunks []string) (string, error)
	AnswerStream(ctx context.Context, question string, contextChunks []string, onToken func(string) error) (string, error)
}

type QuizGenerator interface {
	Generate(ctx context.Context, content string) ([]models.MCQ, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// ArticleCache stores extracted articles by URL. A miss is (nil, false, nil).
type ArticleCache interface {
	Get(ctx context.Context, url string) (*models.Article, bool, error)
	Put(ctx context.Context, url string, article *models.Article) error
}
