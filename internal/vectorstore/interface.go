package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks kitab/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// CollectionStats summarizes the state of a collection.
type CollectionStats struct {
	Collection  string `json:"collection"`
	PointsCount int    `json:"points_count"`
	VectorSize  int    `json:"vector_size"`
	Status      string `json:"status"`
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the k points most similar to the query vector,
	// best match first.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// EnsureCollection creates the collection if it does not exist and
	// validates the vector size if it does.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Stats returns a summary of the collection.
	Stats(ctx context.Context, collection string) (*CollectionStats, error)

	// Drop deletes the collection and all of its points.
	Drop(ctx context.Context, collection string) error
}
