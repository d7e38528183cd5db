package store

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xhad/articlerag/internal/models"
	"github.com/xhad/articlerag/internal/types"
)

// pointNamespace scopes point ids generated by PointID.
var pointNamespace = uuid.MustParse("6f1c7a52-3c1e-4d0b-9a0e-0f6a3b8e2d41")

type Config struct {
	Backend  string // qdrant, pgvector or memory
	Distance models.Distance

	QdrantAddr   string
	QdrantAPIKey string
	QdrantTLS    bool

	DatabaseURL string
}

// Open connects to the configured backend.
func Open(ctx context.Context, config Config) (types.VectorStore, error) {
	switch config.Backend {
	case "", "qdrant":
		qs, err := NewQdrantStore(QdrantConfig{
			Addr:   config.QdrantAddr,
			APIKey: config.QdrantAPIKey,
			UseTLS: config.QdrantTLS,
		})
		if err != nil {
			return nil, err
		}
		return qs, nil
	case "pgvector":
		vs, err := NewWithConfig(ctx, VectorStoreConfig{
			ConnString: config.DatabaseURL,
			Distance:   config.Distance,
		})
		if err != nil {
			return nil, err
		}
		return vs, nil
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend: %s", config.Backend)
}

// PointID derives a stable point id from an article id and chunk index,
// so storing the same article twice overwrites its points.
func PointID(articleID string, chunkIndex int) string {
	return uuid.NewSHA1(pointNamespace, []byte(articleID+":"+strconv.Itoa(chunkIndex))).String()
}

func checkBatch(articleID string, vectors [][]float32, chunks []models.Chunk) error {
	if articleID == "" {
		return fmt.Errorf("%w: articleId is required", models.ErrInvalidInput)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors for %d chunks", models.ErrInvalidInput, len(vectors), len(chunks))
	}
	return nil
}

func checkQuery(query models.SearchQuery) error {
	if len(query.Vector) == 0 {
		return fmt.Errorf("%w: query vector is required", models.ErrInvalidInput)
	}
	if query.TopK < 1 {
		return fmt.Errorf("%w: topK must be positive", models.ErrInvalidInput)
	}
	return nil
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
