package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bookrec/internal/domain"
	"bookrec/internal/logging"
	"bookrec/internal/port"
)

// BuildUseCase encodes every described record and publishes a fresh
// embedding store artifact.
type BuildUseCase struct {
	source      port.RecordSource
	embedder    port.Embedder
	artifact    port.ArtifactStore
	batchSize   int
	concurrency int
	log         zerolog.Logger
}

// NewBuildUseCase creates a new build use case.
func NewBuildUseCase(
	source port.RecordSource,
	embedder port.Embedder,
	artifact port.ArtifactStore,
	batchSize int,
	concurrency int,
) *BuildUseCase {
	if batchSize <= 0 {
		batchSize = 64
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BuildUseCase{
		source:      source,
		embedder:    embedder,
		artifact:    artifact,
		batchSize:   batchSize,
		concurrency: concurrency,
		log:         logging.With("builder"),
	}
}

// BuildResult contains the results of a build.
type BuildResult struct {
	Records   int
	Dimension int
	ModelName string
	Path      string
	Duration  time.Duration
}

// Build reads the source, encodes "title: description" for every record in
// source order and overwrites the artifact. Nothing is written unless every
// record was encoded. progress may be nil.
func (u *BuildUseCase) Build(ctx context.Context, progress func(processed, total int)) (*BuildResult, error) {
	start := time.Now()

	records, err := u.source.ListRecords(ctx, port.RecordFilter{RequireDescription: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	books := make([]domain.Book, 0, len(records))
	for _, r := range records {
		if r.Description == "" {
			continue
		}
		books = append(books, r)
	}
	u.log.Info().Int("records", len(books)).Msg("records loaded")

	vectors, err := u.encode(ctx, books, progress)
	if err != nil {
		return nil, err
	}

	es := &domain.EmbeddingStore{
		IDs:       make([]string, len(books)),
		Metadata:  books,
		Vectors:   vectors,
		ModelName: u.embedder.ModelName(),
	}
	for i, b := range books {
		es.IDs[i] = b.ISBN
	}
	if err := es.Validate(); err != nil {
		return nil, err
	}

	if err := u.artifact.Save(es); err != nil {
		return nil, fmt.Errorf("failed to save embedding store: %w", err)
	}

	result := &BuildResult{
		Records:   es.Len(),
		Dimension: es.Dimension(),
		ModelName: es.ModelName,
		Path:      u.artifact.Path(),
		Duration:  time.Since(start),
	}
	u.log.Info().
		Int("records", result.Records).
		Int("dimension", result.Dimension).
		Str("model", result.ModelName).
		Str("path", result.Path).
		Dur("duration", result.Duration).
		Msg("embedding store saved")

	return result, nil
}

// encode runs batches concurrently; each batch writes into its own slots.
func (u *BuildUseCase) encode(ctx context.Context, books []domain.Book, progress func(processed, total int)) ([][]float32, error) {
	total := len(books)
	vectors := make([][]float32, total)
	if total == 0 {
		return vectors, nil
	}

	var (
		mu        sync.Mutex
		processed int
	)
	dim := u.embedder.Dimension()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for start := 0; start < total; start += u.batchSize {
		start := start
		end := min(start+u.batchSize, total)

		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, b := range books[start:end] {
				texts = append(texts, b.EmbeddingText())
			}

			embs, err := u.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("failed to encode records %d-%d: %w", start, end-1, err)
			}
			if len(embs) != len(texts) {
				return fmt.Errorf("encoder returned %d vectors for %d records", len(embs), len(texts))
			}
			for i, v := range embs {
				if dim > 0 && len(v) != dim {
					return fmt.Errorf("%w: record %s encoded to dimension %d, encoder reports %d",
						domain.ErrEncoderMismatch, books[start+i].ISBN, len(v), dim)
				}
				vectors[start+i] = v
			}

			mu.Lock()
			processed += len(texts)
			if progress != nil {
				progress(processed, total)
			}
			mu.Unlock()

			u.log.Debug().Int("from", start).Int("to", end).Msg("batch encoded")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
