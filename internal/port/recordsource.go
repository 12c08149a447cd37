package port

import (
	"context"

	"bookrec/internal/domain"
)

// RecordFilter narrows ListRecords.
type RecordFilter struct {
	// RequireDescription skips records whose description is null or empty.
	RequireDescription bool
}

// RecordSource is the read-only store of canonical book records.
type RecordSource interface {
	// ListRecords returns records in a stable order.
	// Failures to reach the source wrap domain.ErrSourceUnavailable.
	ListRecords(ctx context.Context, filter RecordFilter) ([]domain.Book, error)
}
