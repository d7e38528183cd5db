package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/articlerag/internal/models"
	"github.com/xhad/articlerag/pkg/store"
)

func TestPointID(t *testing.T) {
	id := store.PointID("a1", 0)

	_, err := uuid.Parse(id)
	require.NoError(t, err)

	assert.Equal(t, id, store.PointID("a1", 0))
	assert.NotEqual(t, id, store.PointID("a1", 1))
	assert.NotEqual(t, id, store.PointID("a2", 0))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := store.Open(context.Background(), store.Config{Backend: "mongo"})
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	s, err := store.Open(context.Background(), store.Config{Backend: "memory"})
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*store.MemoryStore)
	assert.True(t, ok)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.EnsureCollection(ctx, models.CollectionSpec{Name: "articles", VectorSize: 3, Distance: models.DistanceCosine}))
	require.NoError(t, s.EnsureCollection(ctx, models.CollectionSpec{Name: "articles", VectorSize: 3, Distance: models.DistanceCosine}))

	n, err := s.StoreChunks(ctx, "articles", "a1",
		[][]float32{{1, 0, 0}, {0, 1, 0}},
		[]models.Chunk{{Index: 0, Text: "about cats"}, {Index: 1, Text: "about dogs"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.StoreChunks(ctx, "articles", "a2",
		[][]float32{{0.9, 0.1, 0}},
		[]models.Chunk{{Index: 0, Text: "other article"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	texts, err := s.Search(ctx, "articles", models.SearchQuery{Vector: []float32{1, 0, 0}, TopK: 10, ArticleID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"about cats", "about dogs"}, texts)

	texts, err = s.Search(ctx, "articles", models.SearchQuery{Vector: []float32{1, 0, 0}, TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"about cats"}, texts)
}

func TestMemoryStoreOverwritesPoints(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.EnsureCollection(ctx, models.CollectionSpec{Name: "articles", VectorSize: 2}))

	_, err := s.StoreChunks(ctx, "articles", "a1", [][]float32{{1, 0}}, []models.Chunk{{Index: 0, Text: "old"}})
	require.NoError(t, err)
	_, err = s.StoreChunks(ctx, "articles", "a1", [][]float32{{1, 0}}, []models.Chunk{{Index: 0, Text: "new"}})
	require.NoError(t, err)

	texts, err := s.Search(ctx, "articles", models.SearchQuery{Vector: []float32{1, 0}, TopK: 5, ArticleID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, texts)
}

func TestMemoryStoreEmptySearch(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	texts, err := s.Search(ctx, "missing", models.SearchQuery{Vector: []float32{1}, TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, texts)

	require.NoError(t, s.EnsureCollection(ctx, models.CollectionSpec{Name: "articles", VectorSize: 1}))
	texts, err = s.Search(ctx, "articles", models.SearchQuery{Vector: []float32{1}, TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestMemoryStorePreconditions(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	err := s.EnsureCollection(ctx, models.CollectionSpec{Name: "articles", VectorSize: 3, Distance: models.DistanceDot})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = s.StoreChunks(ctx, "articles", "a1", [][]float32{{1}, {2}}, []models.Chunk{{Index: 0, Text: "x"}})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = s.StoreChunks(ctx, "articles", "", nil, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	n, err := s.StoreChunks(ctx, "articles", "a1", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Search(ctx, "articles", models.SearchQuery{TopK: 1})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
