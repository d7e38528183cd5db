package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"github.com/xhad/articlerag/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	qdrantRESTPort = "6333"
	qdrantGRPCPort = "6334"
)

type QdrantConfig struct {
	Addr   string // gRPC host:port or a REST URL such as https://host:6333
	APIKey string
	UseTLS bool
}

// ParseQdrantAddr turns addr into a gRPC dial target. URL forms lose their
// scheme, https enables TLS, and the REST port maps to the gRPC port.
func ParseQdrantAddr(addr string) (target string, useTLS bool, err error) {
	if !strings.Contains(addr, "://") {
		return addr, false, nil
	}

	u, err := url.Parse(addr)
	if err != nil || u.Hostname() == "" {
		return "", false, fmt.Errorf("%w: invalid qdrant address %q", models.ErrInvalidInput, addr)
	}

	switch u.Scheme {
	case "http", "grpc":
	case "https", "grpcs":
		useTLS = true
	default:
		return "", false, fmt.Errorf("%w: unsupported qdrant scheme %q", models.ErrInvalidInput, u.Scheme)
	}

	port := u.Port()
	if port == "" || port == qdrantRESTPort {
		port = qdrantGRPCPort
	}
	return net.JoinHostPort(u.Hostname(), port), useTLS, nil
}

// QdrantStore is the vector store gateway backed by Qdrant over gRPC.
type QdrantStore struct {
	config      QdrantConfig
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
}

func NewQdrantStore(config QdrantConfig) (*QdrantStore, error) {
	if config.Addr == "" {
		config.Addr = "localhost:" + qdrantGRPCPort
	}

	target, useTLS, err := ParseQdrantAddr(config.Addr)
	if err != nil {
		return nil, err
	}
	config.Addr = target
	config.UseTLS = config.UseTLS || useTLS

	creds := insecure.NewCredentials()
	if config.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	conn, err := grpc.Dial(config.Addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %v", err)
	}

	return &QdrantStore{
		config:      config,
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
	}, nil
}

// newQdrantStoreWithClients builds a store around existing clients.
func newQdrantStoreWithClients(collections qdrantclient.CollectionsClient, points qdrantclient.PointsClient) *QdrantStore {
	return &QdrantStore{collections: collections, points: points}
}

func (qs *QdrantStore) withAuth(ctx context.Context) context.Context {
	if qs.config.APIKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", qs.config.APIKey)
}

func (qs *QdrantStore) EnsureCollection(ctx context.Context, spec models.CollectionSpec) error {
	if spec.Name == "" || spec.VectorSize < 1 {
		return fmt.Errorf("%w: collection name and vector size are required", models.ErrInvalidInput)
	}

	distance, err := qdrantDistance(spec.Distance)
	if err != nil {
		return err
	}

	ctx = qs.withAuth(ctx)

	collections, err := qs.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: failed to list collections: %v", models.ErrStoreUnavailable, err)
	}

	for _, c := range collections.GetCollections() {
		if c.GetName() == spec.Name {
			return nil
		}
	}

	_, err = qs.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(spec.VectorSize),
					Distance: distance,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create collection %s: %v", models.ErrStoreUnavailable, spec.Name, err)
	}

	log.Info().Str("collection", spec.Name).Int("size", spec.VectorSize).Msg("qdrant collection created")
	return nil
}

func (qs *QdrantStore) StoreChunks(ctx context.Context, collection, articleID string, vectors [][]float32, chunks []models.Chunk) (int, error) {
	if err := checkBatch(articleID, vectors, chunks); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	points := make([]*qdrantclient.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: PointID(articleID, chunk.Index)},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: vectors[i]},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				"articleId":  {Kind: &qdrantclient.Value_StringValue{StringValue: articleID}},
				"chunkIndex": {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(chunk.Index)}},
				"text":       {Kind: &qdrantclient.Value_StringValue{StringValue: sanitizeUTF8(chunk.Text)}},
			},
		})
	}

	wait := true
	_, err := qs.points.Upsert(qs.withAuth(ctx), &qdrantclient.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to upsert points: %v", models.ErrStoreUnavailable, err)
	}

	log.Debug().Str("articleId", articleID).Int("points", len(points)).Msg("stored chunks in qdrant")
	return len(points), nil
}

func (qs *QdrantStore) Search(ctx context.Context, collection string, query models.SearchQuery) ([]string, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}

	req := &qdrantclient.SearchPoints{
		CollectionName: collection,
		Vector:         query.Vector,
		Limit:          uint64(query.TopK),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Include{
				Include: &qdrantclient.PayloadIncludeSelector{
					Fields: []string{"text"},
				},
			},
		},
	}

	if query.ArticleID != "" {
		req.Filter = &qdrantclient.Filter{
			Must: []*qdrantclient.Condition{
				{
					ConditionOneOf: &qdrantclient.Condition_Field{
						Field: &qdrantclient.FieldCondition{
							Key: "articleId",
							Match: &qdrantclient.Match{
								MatchValue: &qdrantclient.Match_Keyword{Keyword: query.ArticleID},
							},
						},
					},
				},
			},
		}
	}

	resp, err := qs.points.Search(qs.withAuth(ctx), req)
	if status.Code(err) == codes.NotFound {
		// Nothing has been embedded yet
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search points: %v", models.ErrStoreUnavailable, err)
	}

	texts := make([]string, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		if text := point.GetPayload()["text"].GetStringValue(); text != "" {
			texts = append(texts, text)
		}
	}

	return texts, nil
}

func (qs *QdrantStore) Close() error {
	if qs.conn != nil {
		return qs.conn.Close()
	}
	return nil
}

func qdrantDistance(d models.Distance) (qdrantclient.Distance, error) {
	switch d {
	case "", models.DistanceCosine:
		return qdrantclient.Distance_Cosine, nil
	case models.DistanceDot:
		return qdrantclient.Distance_Dot, nil
	case models.DistanceEuclid:
		return qdrantclient.Distance_Euclid, nil
	}
	return 0, fmt.Errorf("%w: unsupported distance %q", models.ErrInvalidInput, d)
}
