package store

import (
	"context"
	"errors"
	"testing"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/articlerag/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeCollections struct {
	qdrantclient.CollectionsClient

	existing []string
	created  []*qdrantclient.CreateCollection
	listErr  error
}

func (f *fakeCollections) List(ctx context.Context, in *qdrantclient.ListCollectionsRequest, opts ...grpc.CallOption) (*qdrantclient.ListCollectionsResponse, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	resp := &qdrantclient.ListCollectionsResponse{}
	for _, name := range f.existing {
		resp.Collections = append(resp.Collections, &qdrantclient.CollectionDescription{Name: name})
	}
	return resp, nil
}

func (f *fakeCollections) Create(ctx context.Context, in *qdrantclient.CreateCollection, opts ...grpc.CallOption) (*qdrantclient.CollectionOperationResponse, error) {
	f.created = append(f.created, in)
	f.existing = append(f.existing, in.CollectionName)
	return &qdrantclient.CollectionOperationResponse{Result: true}, nil
}

type fakePoints struct {
	qdrantclient.PointsClient

	upserts  []*qdrantclient.UpsertPoints
	searches []*qdrantclient.SearchPoints
	results  []string
	err      error
}

func (f *fakePoints) Upsert(ctx context.Context, in *qdrantclient.UpsertPoints, opts ...grpc.CallOption) (*qdrantclient.PointsOperationResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserts = append(f.upserts, in)
	return &qdrantclient.PointsOperationResponse{}, nil
}

func (f *fakePoints) Search(ctx context.Context, in *qdrantclient.SearchPoints, opts ...grpc.CallOption) (*qdrantclient.SearchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.searches = append(f.searches, in)
	resp := &qdrantclient.SearchResponse{}
	for _, text := range f.results {
		resp.Result = append(resp.Result, &qdrantclient.ScoredPoint{
			Payload: map[string]*qdrantclient.Value{
				"text": {Kind: &qdrantclient.Value_StringValue{StringValue: text}},
			},
		})
	}
	return resp, nil
}

func TestQdrantEnsureCollection(t *testing.T) {
	collections := &fakeCollections{}
	qs := newQdrantStoreWithClients(collections, &fakePoints{})
	spec := models.CollectionSpec{Name: "articles", VectorSize: 1536, Distance: models.DistanceCosine}

	require.NoError(t, qs.EnsureCollection(context.Background(), spec))
	require.NoError(t, qs.EnsureCollection(context.Background(), spec))

	require.Len(t, collections.created, 1, "second call must not recreate the collection")
	params := collections.created[0].GetVectorsConfig().GetParams()
	assert.Equal(t, uint64(1536), params.GetSize())
	assert.Equal(t, qdrantclient.Distance_Cosine, params.GetDistance())
}

func TestQdrantEnsureCollectionErrors(t *testing.T) {
	qs := newQdrantStoreWithClients(&fakeCollections{listErr: errors.New("connection refused")}, &fakePoints{})

	err := qs.EnsureCollection(context.Background(), models.CollectionSpec{Name: "articles", VectorSize: 3})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	err = qs.EnsureCollection(context.Background(), models.CollectionSpec{Name: "articles", VectorSize: 3, Distance: "manhattan"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestQdrantStoreChunks(t *testing.T) {
	points := &fakePoints{}
	qs := newQdrantStoreWithClients(&fakeCollections{}, points)

	chunks := []models.Chunk{{Index: 0, Text: "first"}, {Index: 1, Text: "second"}}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	n, err := qs.StoreChunks(context.Background(), "articles", "a1", vectors, chunks)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, points.upserts, 1)
	upsert := points.upserts[0]
	assert.Equal(t, "articles", upsert.CollectionName)
	assert.True(t, upsert.GetWait())
	require.Len(t, upsert.Points, 2)

	p := upsert.Points[1]
	assert.Equal(t, PointID("a1", 1), p.GetId().GetUuid())
	assert.Equal(t, []float32{0.3, 0.4}, p.GetVectors().GetVector().GetData())
	assert.Equal(t, "a1", p.Payload["articleId"].GetStringValue())
	assert.Equal(t, int64(1), p.Payload["chunkIndex"].GetIntegerValue())
	assert.Equal(t, "second", p.Payload["text"].GetStringValue())
}

func TestQdrantStoreChunksFailure(t *testing.T) {
	qs := newQdrantStoreWithClients(&fakeCollections{}, &fakePoints{err: errors.New("unavailable")})

	n, err := qs.StoreChunks(context.Background(), "articles", "a1", [][]float32{{1}}, []models.Chunk{{Index: 0, Text: "x"}})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Zero(t, n)
}

func TestQdrantSearch(t *testing.T) {
	points := &fakePoints{results: []string{"best", "", "second"}}
	qs := newQdrantStoreWithClients(&fakeCollections{}, points)

	texts, err := qs.Search(context.Background(), "articles", models.SearchQuery{
		Vector:    []float32{0.1, 0.2},
		TopK:      5,
		ArticleID: "a1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"best", "second"}, texts)

	require.Len(t, points.searches, 1)
	req := points.searches[0]
	assert.Equal(t, uint64(5), req.Limit)
	require.NotNil(t, req.Filter)
	require.Len(t, req.Filter.Must, 1)
	field := req.Filter.Must[0].GetField()
	assert.Equal(t, "articleId", field.GetKey())
	assert.Equal(t, "a1", field.GetMatch().GetKeyword())
}

func TestQdrantSearchWithoutArticle(t *testing.T) {
	points := &fakePoints{}
	qs := newQdrantStoreWithClients(&fakeCollections{}, points)

	texts, err := qs.Search(context.Background(), "articles", models.SearchQuery{Vector: []float32{1}, TopK: 1})
	require.NoError(t, err)
	assert.NotNil(t, texts)
	assert.Empty(t, texts)
	assert.Nil(t, points.searches[0].Filter)
}

func TestQdrantPreconditions(t *testing.T) {
	points := &fakePoints{}
	qs := newQdrantStoreWithClients(&fakeCollections{}, points)

	_, err := qs.StoreChunks(context.Background(), "articles", "a1", [][]float32{{1}}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = qs.Search(context.Background(), "articles", models.SearchQuery{Vector: []float32{1}})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	assert.Empty(t, points.upserts)
	assert.Empty(t, points.searches)
}

func TestParseQdrantAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		target  string
		useTLS  bool
		wantErr bool
	}{
		{name: "host and port", addr: "qdrant:6334", target: "qdrant:6334"},
		{name: "rest url", addr: "http://localhost:6333", target: "localhost:6334"},
		{name: "cloud url", addr: "https://xyz.cloud.qdrant.io:6333", target: "xyz.cloud.qdrant.io:6334", useTLS: true},
		{name: "url without port", addr: "https://xyz.cloud.qdrant.io", target: "xyz.cloud.qdrant.io:6334", useTLS: true},
		{name: "custom grpc port", addr: "http://127.0.0.1:7000", target: "127.0.0.1:7000"},
		{name: "unknown scheme", addr: "ftp://qdrant:6334", wantErr: true},
		{name: "missing host", addr: "http://:6333", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, useTLS, err := ParseQdrantAddr(tt.addr)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, target)
			assert.Equal(t, tt.useTLS, useTLS)
		})
	}
}

func TestNewQdrantStoreURLForm(t *testing.T) {
	qs, err := NewQdrantStore(QdrantConfig{Addr: "https://xyz.cloud.qdrant.io:6333", APIKey: "key"})
	require.NoError(t, err)
	defer qs.Close()

	assert.Equal(t, "xyz.cloud.qdrant.io:6334", qs.config.Addr)
	assert.True(t, qs.config.UseTLS)

	_, err = NewQdrantStore(QdrantConfig{Addr: "ftp://qdrant"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestQdrantSearchMissingCollection(t *testing.T) {
	points := &fakePoints{err: status.Error(codes.NotFound, "Collection `articles` doesn't exist")}
	qs := newQdrantStoreWithClients(&fakeCollections{}, points)

	texts, err := qs.Search(context.Background(), "articles", models.SearchQuery{Vector: []float32{0.1}, TopK: 3, ArticleID: "a1"})
	require.NoError(t, err)
	assert.Empty(t, texts)

	points.err = status.Error(codes.Unavailable, "connection refused")
	_, err = qs.Search(context.Background(), "articles", models.SearchQuery{Vector: []float32{0.1}, TopK: 3})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
