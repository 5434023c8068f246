package vectorindex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	defaultQdrantHost     = "localhost"
	defaultQdrantPort     = 6334
	defaultRequestTimeout = 30 * time.Second
)

// QdrantConfig configures the qdrant gRPC connection.
type QdrantConfig struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	RequestTimeout time.Duration
}

// QdrantGateway implements Gateway against a qdrant server over gRPC.
type QdrantGateway struct {
	client  *qdrant.Client
	timeout time.Duration
}

// NewQdrantGateway connects to qdrant and returns a ready gateway.
func NewQdrantGateway(cfg QdrantConfig) (*QdrantGateway, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultQdrantHost
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultQdrantPort
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	qdrantConfig := &qdrant.Config{
		Host:   host,
		Port:   port,
		UseTLS: cfg.UseTLS,
		APIKey: strings.TrimSpace(cfg.APIKey),
	}
	if !cfg.UseTLS {
		qdrantConfig.GrpcOptions = append(qdrantConfig.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}
	client, err := qdrant.NewClient(qdrantConfig)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &QdrantGateway{client: client, timeout: timeout}, nil
}

// EnsureCollection drops the collection when present and recreates it
// empty with cosine distance.
func (g *QdrantGateway) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("vector dimension required")
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	exists, err := g.collectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		if err := g.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
	}
	if err := g.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func (g *QdrantGateway) collectionExists(ctx context.Context, name string) (bool, error) {
	info, err := g.client.GetCollectionInfo(ctx, name)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
			return false, nil
		}
		return false, err
	}
	return info != nil, nil
}

// Upsert writes points by id, waiting for the write to apply.
func (g *QdrantGateway) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, point := range points {
		payload := make(map[string]any, len(point.Payload))
		for key, value := range point.Payload {
			payload[key] = value
		}
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(point.ID),
			Vectors: qdrant.NewVectors(point.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}
	_, err := g.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Search returns the topK nearest points with payloads.
func (g *QdrantGateway) Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return []Hit{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	results, err := g.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		payload := make(map[string]string, len(result.Payload))
		for key, value := range result.Payload {
			payload[key] = value.GetStringValue()
		}
		hits = append(hits, Hit{
			ID:      result.Id.GetUuid(),
			Score:   result.Score,
			Payload: payload,
		})
	}
	return hits, nil
}
