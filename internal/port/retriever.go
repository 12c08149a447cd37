package port

import (
	"context"

	"bookrec/internal/domain"
)

// Recommender ranks books for a free-text query.
type Recommender interface {
	// Recommend returns at most topK results, best first.
	Recommend(ctx context.Context, query string, topK int) ([]domain.ScoredBook, error)
}
