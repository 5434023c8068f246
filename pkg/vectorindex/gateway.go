// Package vectorindex fronts the nearest-neighbor store holding chunk
// vectors. The gateway is a transparent pass-through keyed by
// deterministic chunk ids; it never interprets payload contents.
package vectorindex

import "context"

// Point is one vector with its opaque payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// Hit is one search result, highest similarity first.
type Hit struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// Gateway exposes the index operations the ingestion and retrieval paths
// need.
type Gateway interface {
	// EnsureCollection drops the collection when present and recreates it
	// empty with cosine distance. Destructive-rebuild policy: every
	// ingestion run starts from an empty collection.
	EnsureCollection(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, name string, points []Point) error
	// Search returns up to topK hits ordered by descending similarity.
	Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error)
}
