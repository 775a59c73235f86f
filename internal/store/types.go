// Package store defines the engine's view of the document store: a
// DocumentSource for scanning and repairing marketplace documents, and
// a ReportStore for persisting immutable reports. MongoDB backs both in
// production; an in-memory implementation backs tests.
package store

import (
	"context"

	"github.com/etoile-yachts/MediaValidator/internal/media"
)

// DocumentSource is the engine's read/write door into the marketplace
// collections.
type DocumentSource interface {
	// ListCollections returns the scannable collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// ListDocumentIDs pages document IDs in a stable order. An empty
	// nextCursor means the listing is exhausted.
	ListDocumentIDs(ctx context.Context, collection string, limit int, cursor string) (ids []string, nextCursor string, err error)

	// GetDocument fetches a document's fields as a raw payload.
	GetDocument(ctx context.Context, collection, id string) (map[string]interface{}, error)

	// UpdateDocumentFields applies a partial multi-path update in one
	// call. Paths use the extractor's bracketed notation.
	UpdateDocumentFields(ctx context.Context, collection, id string, updates map[string]interface{}) error

	// UpdateDocumentFieldsIf applies updates only when every condition
	// path still holds its expected value. matched is false when the
	// document no longer satisfies the conditions (or is gone); that is
	// a stale-reference signal, not an error.
	UpdateDocumentFieldsIf(ctx context.Context, collection, id string, updates, conditions map[string]interface{}) (matched bool, err error)
}

// ReportStore persists validation and repair reports. Reports are
// immutable once saved.
type ReportStore interface {
	SaveValidationReport(ctx context.Context, report *media.ValidationReport) (string, error)
	GetValidationReport(ctx context.Context, id string) (*media.ValidationReport, error)
	ListValidationReports(ctx context.Context, page, pageSize int) ([]*media.ValidationReport, error)

	SaveRepairReport(ctx context.Context, report *media.RepairReport) (string, error)
	GetRepairReport(ctx context.Context, id string) (*media.RepairReport, error)
	ListRepairReports(ctx context.Context, page, pageSize int) ([]*media.RepairReport, error)
}
