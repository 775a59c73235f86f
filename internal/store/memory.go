// internal/store/memory.go

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// MemoryStore is an in-memory DocumentSource and ReportStore used by
// tests and local development. Document IDs list in sorted order so
// pagination is deterministic.
type MemoryStore struct {
	mu                sync.RWMutex
	collections       map[string]map[string]map[string]interface{}
	validationReports map[string]*media.ValidationReport
	repairReports     map[string]*media.RepairReport
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections:       make(map[string]map[string]map[string]interface{}),
		validationReports: make(map[string]*media.ValidationReport),
		repairReports:     make(map[string]*media.RepairReport),
	}
}

// PutDocument inserts or replaces a document.
func (s *MemoryStore) PutDocument(collection, id string, doc map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]interface{})
	}
	s.collections[collection][id] = doc
}

// ListCollections returns collection names in sorted order.
func (s *MemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListDocumentIDs pages sorted document IDs; the cursor is the last ID
// of the previous page.
func (s *MemoryStore) ListDocumentIDs(ctx context.Context, collection string, limit int, cursor string) ([]string, string, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]string, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		if cursor == "" || id > cursor {
			all = append(all, id)
		}
	}
	sort.Strings(all)

	if len(all) > limit {
		return all[:limit], all[limit-1], nil
	}
	return all, "", nil
}

// GetDocument returns a deep copy so callers cannot mutate stored state
// behind the conditional-update check.
func (s *MemoryStore) GetDocument(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, utils.NewErrorf(utils.ErrCodeNotFound, "document %s/%s not found", collection, id)
	}
	return copyDocument(doc), nil
}

// UpdateDocumentFields applies a partial multi-path update.
func (s *MemoryStore) UpdateDocumentFields(ctx context.Context, collection, id string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return utils.NewErrorf(utils.ErrCodeNotFound, "document %s/%s not found", collection, id)
	}
	for path, value := range updates {
		if err := utils.SetPath(doc, path, value); err != nil {
			return utils.WrapError(err, utils.ErrCodeStoreFailure, "failed to apply field update")
		}
	}
	return nil
}

// UpdateDocumentFieldsIf applies updates only when every condition path
// still holds its expected value.
func (s *MemoryStore) UpdateDocumentFieldsIf(ctx context.Context, collection, id string, updates, conditions map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return false, nil
	}

	for path, expected := range conditions {
		current, ok := utils.GetPath(doc, path)
		if !ok || current != expected {
			return false, nil
		}
	}

	for path, value := range updates {
		if err := utils.SetPath(doc, path, value); err != nil {
			return false, utils.WrapError(err, utils.ErrCodeStoreFailure, "failed to apply field update")
		}
	}
	return true, nil
}

// SaveValidationReport stores a copy of the report.
func (s *MemoryStore) SaveValidationReport(ctx context.Context, report *media.ValidationReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	stored := *report
	s.validationReports[report.ID] = &stored
	return report.ID, nil
}

// GetValidationReport loads a validation report by ID.
func (s *MemoryStore) GetValidationReport(ctx context.Context, id string) (*media.ValidationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.validationReports[id]
	if !ok {
		return nil, utils.NewErrorf(utils.ErrCodeNotFound, "validation report %s not found", id)
	}
	copied := *report
	return &copied, nil
}

// ListValidationReports pages validation reports, newest first.
func (s *MemoryStore) ListValidationReports(ctx context.Context, page, pageSize int) ([]*media.ValidationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*media.ValidationReport, 0, len(s.validationReports))
	for _, report := range s.validationReports {
		all = append(all, report)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartTime.After(all[j].StartTime)
	})
	return pageSlice(all, page, pageSize), nil
}

// SaveRepairReport stores a copy of the report.
func (s *MemoryStore) SaveRepairReport(ctx context.Context, report *media.RepairReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}
	stored := *report
	s.repairReports[report.ID] = &stored
	return report.ID, nil
}

// GetRepairReport loads a repair report by ID.
func (s *MemoryStore) GetRepairReport(ctx context.Context, id string) (*media.RepairReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.repairReports[id]
	if !ok {
		return nil, utils.NewErrorf(utils.ErrCodeNotFound, "repair report %s not found", id)
	}
	copied := *report
	return &copied, nil
}

// ListRepairReports pages repair reports, newest first.
func (s *MemoryStore) ListRepairReports(ctx context.Context, page, pageSize int) ([]*media.RepairReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*media.RepairReport, 0, len(s.repairReports))
	for _, report := range s.repairReports {
		all = append(all, report)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	return pageSlice(all, page, pageSize), nil
}

func pageSlice[T any](all []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func copyDocument(doc map[string]interface{}) map[string]interface{} {
	copied, _ := copyValue(doc).(map[string]interface{})
	return copied
}

func copyValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = copyValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
