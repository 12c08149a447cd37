package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"bookrec/internal/domain"
	"bookrec/internal/logging"
	"bookrec/internal/port"
)

const integritySampleSize = 5

// ReconcileUseCase refreshes artifact metadata from the record source
// without touching ids, vectors or row order.
type ReconcileUseCase struct {
	source   port.RecordSource
	artifact port.ArtifactStore
	log      zerolog.Logger
}

// NewReconcileUseCase creates a new reconcile use case.
func NewReconcileUseCase(source port.RecordSource, artifact port.ArtifactStore) *ReconcileUseCase {
	return &ReconcileUseCase{
		source:   source,
		artifact: artifact,
		log:      logging.With("reconciler"),
	}
}

// ReconcileResult contains the results of a reconcile.
type ReconcileResult struct {
	Rows    int
	Changed int
	Path    string
	DryRun  bool
}

// NormalizeISBN is the key used to match stored ids against source records.
func NormalizeISBN(isbn string) string {
	return strings.TrimSpace(isbn)
}

// Reconcile rewrites metadata[i] with the current source record for ids[i].
// If any stored id has no source record the artifact is left untouched and
// a *domain.IntegrityError is returned. With dryRun nothing is saved.
func (u *ReconcileUseCase) Reconcile(ctx context.Context, dryRun bool) (*ReconcileResult, error) {
	es, err := u.artifact.Load()
	if err != nil {
		return nil, err
	}

	records, err := u.source.ListRecords(ctx, port.RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	byISBN := make(map[string]domain.Book, len(records))
	for _, r := range records {
		key := NormalizeISBN(r.ISBN)
		if _, dup := byISBN[key]; dup {
			continue
		}
		byISBN[key] = r
	}

	refreshed := make([]domain.Book, es.Len())
	var unresolved []string
	changed := 0
	for i, id := range es.IDs {
		key := NormalizeISBN(id)
		rec, ok := byISBN[key]
		if !ok {
			u.log.Warn().Str("isbn", id).Int("row", i).Msg("stored isbn missing from record source")
			unresolved = append(unresolved, id)
			continue
		}
		rec.ISBN = key
		if !sameBook(es.Metadata[i], rec) {
			changed++
		}
		refreshed[i] = rec
	}

	if len(unresolved) > 0 {
		return nil, &domain.IntegrityError{
			Unresolved: len(unresolved),
			Total:      es.Len(),
			Sample:     unresolved[:min(len(unresolved), integritySampleSize)],
		}
	}

	result := &ReconcileResult{
		Rows:    es.Len(),
		Changed: changed,
		Path:    u.artifact.Path(),
		DryRun:  dryRun,
	}
	if dryRun {
		u.log.Info().Int("rows", result.Rows).Int("changed", changed).Msg("dry run, artifact not written")
		return result, nil
	}

	es.Metadata = refreshed
	if err := u.artifact.Save(es); err != nil {
		return nil, fmt.Errorf("failed to save embedding store: %w", err)
	}
	u.log.Info().Int("rows", result.Rows).Int("changed", changed).Str("path", result.Path).Msg("metadata reconciled")

	return result, nil
}

func sameBook(a, b domain.Book) bool {
	if (a.Year == nil) != (b.Year == nil) {
		return false
	}
	if a.Year != nil && *a.Year != *b.Year {
		return false
	}
	a.Year, b.Year = nil, nil
	return a == b
}
