package port

import (
	"context"

	"bookrec/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	// It is persisted with the vectors and checked when they are loaded.
	ModelName() string
}

// EmbedderFactory instantiates the encoder for a model name.
type EmbedderFactory func(modelName string) (Embedder, error)

// ArtifactStore persists and loads the embedding store as a single artifact.
type ArtifactStore interface {
	// Save replaces the artifact atomically.
	Save(s *domain.EmbeddingStore) error

	// Load reads the whole artifact into memory.
	// Returns domain.ErrStoreMissing when no artifact exists.
	Load() (*domain.EmbeddingStore, error)

	// Exists reports whether an artifact has been published.
	Exists() bool

	// Path returns the artifact location.
	Path() string
}
