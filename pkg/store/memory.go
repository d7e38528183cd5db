package store

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/xhad/articlerag/internal/models"
)

// MemoryStore keeps vectors in an in-process chromem database.
// Nothing survives a restart.
type MemoryStore struct {
	db *chromem.DB
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: chromem.NewDB()}
}

func (ms *MemoryStore) EnsureCollection(ctx context.Context, spec models.CollectionSpec) error {
	if spec.Name == "" || spec.VectorSize < 1 {
		return fmt.Errorf("%w: collection name and vector size are required", models.ErrInvalidInput)
	}
	if spec.Distance != "" && spec.Distance != models.DistanceCosine {
		return fmt.Errorf("%w: memory store only supports cosine distance", models.ErrInvalidInput)
	}

	// Vectors are always supplied, so no embedding func is needed
	if _, err := ms.db.GetOrCreateCollection(spec.Name, nil, nil); err != nil {
		return fmt.Errorf("%w: failed to create collection %s: %v", models.ErrStoreUnavailable, spec.Name, err)
	}
	return nil
}

func (ms *MemoryStore) StoreChunks(ctx context.Context, collection, articleID string, vectors [][]float32, chunks []models.Chunk) (int, error) {
	if err := checkBatch(articleID, vectors, chunks); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	c := ms.db.GetCollection(collection, nil)
	if c == nil {
		return 0, fmt.Errorf("%w: collection %s does not exist", models.ErrStoreUnavailable, collection)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      PointID(articleID, chunk.Index),
			Content: sanitizeUTF8(chunk.Text),
			Metadata: map[string]string{
				"articleId":  articleID,
				"chunkIndex": strconv.Itoa(chunk.Index),
			},
			Embedding: vectors[i],
		})
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("%w: failed to add documents: %v", models.ErrStoreUnavailable, err)
	}

	log.Debug().Str("articleId", articleID).Int("docs", len(docs)).Msg("stored chunks in memory")
	return len(docs), nil
}

func (ms *MemoryStore) Search(ctx context.Context, collection string, query models.SearchQuery) ([]string, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}

	c := ms.db.GetCollection(collection, nil)
	if c == nil {
		return []string{}, nil
	}

	var where map[string]string
	if query.ArticleID != "" {
		where = map[string]string{"articleId": query.ArticleID}
	}

	// chromem rejects nResults above the collection size
	n := query.TopK
	if count := c.Count(); count == 0 {
		return []string{}, nil
	} else if n > count {
		n = count
	}

	results, err := c.QueryEmbedding(ctx, query.Vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query by similarity: %v", models.ErrStoreUnavailable, err)
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Content != "" {
			texts = append(texts, r.Content)
		}
	}
	return texts, nil
}

func (ms *MemoryStore) Close() error {
	return nil
}
