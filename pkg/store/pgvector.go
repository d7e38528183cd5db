package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/xhad/articlerag/internal/models"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type VectorStoreConfig struct {
	ConnString string
	IndexLists int
	// Distance is used for collections not yet seen by EnsureCollection.
	Distance models.Distance
}

// VectorStore is the vector store gateway backed by Postgres with pgvector.
// Each collection is a table.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool

	mu        sync.RWMutex
	distances map[string]models.Distance
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.IndexLists == 0 {
		config.IndexLists = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	return &VectorStore{
		config:    config,
		pool:      pool,
		distances: make(map[string]models.Distance),
	}, nil
}

func (vs *VectorStore) EnsureCollection(ctx context.Context, spec models.CollectionSpec) error {
	if !tableName.MatchString(spec.Name) || spec.VectorSize < 1 {
		return fmt.Errorf("%w: invalid collection %q", models.ErrInvalidInput, spec.Name)
	}

	opclass, _, err := pgDistance(spec.Distance)
	if err != nil {
		return err
	}

	// Enable pgvector extension
	_, err = vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("%w: failed to create vector extension: %v", models.ErrStoreUnavailable, err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			article_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding vector(%d)
		)`, spec.Name, spec.VectorSize)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("%w: failed to create table: %v", models.ErrStoreUnavailable, err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding %s)
		WITH (lists = %d)`,
		spec.Name, spec.Name, opclass, vs.config.IndexLists)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("%w: failed to create index: %v", models.ErrStoreUnavailable, err)
	}

	createArticleIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_article_idx ON %s (article_id)`,
		spec.Name, spec.Name)

	_, err = vs.pool.Exec(ctx, createArticleIndex)
	if err != nil {
		return fmt.Errorf("%w: failed to create index: %v", models.ErrStoreUnavailable, err)
	}

	vs.mu.Lock()
	vs.distances[spec.Name] = spec.Distance
	vs.mu.Unlock()
	return nil
}

func (vs *VectorStore) StoreChunks(ctx context.Context, collection, articleID string, vectors [][]float32, chunks []models.Chunk) (int, error) {
	if err := checkBatch(articleID, vectors, chunks); err != nil {
		return 0, err
	}
	if !tableName.MatchString(collection) {
		return 0, fmt.Errorf("%w: invalid collection %q", models.ErrInvalidInput, collection)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, article_id, chunk_index, text, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding`,
		collection)

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(stmt,
			PointID(articleID, chunk.Index),
			articleID,
			chunk.Index,
			sanitizeUTF8(chunk.Text),
			pgvector.NewVector(vectors[i]),
		)
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("%w: failed to insert chunks: %v", models.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: failed to commit transaction: %v", models.ErrStoreUnavailable, err)
	}

	log.Debug().Str("articleId", articleID).Int("rows", len(chunks)).Msg("stored chunks in pgvector")
	return len(chunks), nil
}

func (vs *VectorStore) Search(ctx context.Context, collection string, query models.SearchQuery) ([]string, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}
	if !tableName.MatchString(collection) {
		return nil, fmt.Errorf("%w: invalid collection %q", models.ErrInvalidInput, collection)
	}

	vs.mu.RLock()
	distance, ok := vs.distances[collection]
	vs.mu.RUnlock()
	if !ok {
		distance = vs.config.Distance
	}

	_, operator, err := pgDistance(distance)
	if err != nil {
		return nil, err
	}

	// Empty article id matches every row
	sql := fmt.Sprintf(`
		SELECT text
		FROM %s
		WHERE ($3 = '' OR article_id = $3)
		ORDER BY embedding %s $1
		LIMIT $2`,
		collection, operator)

	rows, err := vs.pool.Query(ctx, sql, pgvector.NewVector(query.Vector), query.TopK, query.ArticleID)
	if undefinedTable(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query chunks: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %v", models.ErrStoreUnavailable, err)
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	if err := rows.Err(); undefinedTable(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows: %v", models.ErrStoreUnavailable, err)
	}

	return texts, nil
}

// undefinedTable reports whether err is postgres 42P01, a collection that
// was never created.
func undefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

func (vs *VectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}

// pgDistance returns the index operator class and the query operator.
func pgDistance(d models.Distance) (string, string, error) {
	switch d {
	case "", models.DistanceCosine:
		return "vector_cosine_ops", "<=>", nil
	case models.DistanceDot:
		return "vector_ip_ops", "<#>", nil
	case models.DistanceEuclid:
		return "vector_l2_ops", "<->", nil
	}
	return "", "", fmt.Errorf("%w: unsupported distance %q", models.ErrInvalidInput, d)
}
