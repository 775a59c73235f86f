// internal/engine/report.go

package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/etoile-yachts/MediaValidator/internal/media"
)

// buildValidationReport aggregates run outcomes into an immutable
// report. The count invariant holds by construction: every outcome is
// exactly one of valid, invalid, or missing.
func buildValidationReport(start, end time.Time, outcomes []media.Outcome, docCounts map[string]int) *media.ValidationReport {
	report := &media.ValidationReport{
		ID:          uuid.NewString(),
		StartTime:   start,
		EndTime:     end,
		TotalFields: len(outcomes),
	}

	summaries := make(map[string]*media.CollectionSummary)
	for collection, docs := range docCounts {
		summaries[collection] = &media.CollectionSummary{
			Collection: collection,
			Documents:  docs,
		}
		report.TotalDocuments += docs
	}

	for _, out := range outcomes {
		summary := summaries[out.Reference.Collection]
		if summary == nil {
			summary = &media.CollectionSummary{Collection: out.Reference.Collection}
			summaries[out.Reference.Collection] = summary
		}
		summary.TotalFields++

		switch {
		case out.Missing:
			report.MissingCount++
			summary.MissingCount++
		case out.IsValid:
			report.ValidCount++
			summary.ValidCount++
		default:
			report.InvalidCount++
			summary.InvalidCount++
			report.InvalidOutcomes = append(report.InvalidOutcomes, out)
		}
	}

	names := make([]string, 0, len(summaries))
	for name := range summaries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.PerCollection = append(report.PerCollection, *summaries[name])
	}

	return report
}
