// internal/engine/repair.go

package engine

import (
	"context"
	"strings"
	"time"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// typeMismatchReason is the outcome error the classifier and prober
// emit for the expected-video/detected-image case; repair keys the
// MEDIA_TYPE_CORRECTION kind off it.
const typeMismatchReason = "expected video but detected image"

// RepairFromReport replays the invalid outcomes of a persisted
// validation report against the document store. When urls is non-empty
// only outcomes whose URL is in the set are repaired. Re-running
// against an already-repaired report is idempotent: every action fails
// as stale and TotalSuccess is zero.
func (e *Engine) RepairFromReport(ctx context.Context, reportID string, urls ...string) (*media.RepairReport, error) {
	report, err := e.reports.GetValidationReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	outcomes := report.InvalidOutcomes
	if len(urls) > 0 {
		wanted := make(map[string]struct{}, len(urls))
		for _, u := range urls {
			wanted[u] = struct{}{}
		}
		filtered := outcomes[:0:0]
		for _, out := range outcomes {
			if _, ok := wanted[out.Reference.URL]; ok {
				filtered = append(filtered, out)
			}
		}
		outcomes = filtered
	}

	return e.repairOutcomes(ctx, outcomes, e.defaults.BaseURL)
}

// FixRelativeURLs scans for relative media references only and rewrites
// each to an absolute URL under baseURL.
func (e *Engine) FixRelativeURLs(ctx context.Context, baseURL string) (*media.RepairReport, error) {
	if baseURL == "" {
		return nil, utils.NewError(utils.ErrCodeInvalidConfig, "a base URL is required to fix relative references")
	}

	outcomes, err := e.scanInvalid(ctx, func(ref media.Reference) (string, bool) {
		if e.registry.IsPlaceholder(ref.URL) || !utils.IsRelativeURL(ref.URL) {
			return "", false
		}
		return "relative URL", true
	})
	if err != nil {
		return nil, err
	}

	return e.repairOutcomes(ctx, outcomes, baseURL)
}

// ResolveBlobURLs scans for blob-scheme references only and replaces
// each with the type-appropriate placeholder.
func (e *Engine) ResolveBlobURLs(ctx context.Context) (*media.RepairReport, error) {
	outcomes, err := e.scanInvalid(ctx, func(ref media.Reference) (string, bool) {
		if utils.URLScheme(ref.URL) != "blob" {
			return "", false
		}
		return "blob URL is an ephemeral session reference, unusable from the server", true
	})
	if err != nil {
		return nil, err
	}

	return e.repairOutcomes(ctx, outcomes, "")
}

// scanInvalid is the narrow repair-kind scan: it walks all collections
// without probing and keeps only references the match function flags.
func (e *Engine) scanInvalid(ctx context.Context, match func(media.Reference) (string, bool)) ([]media.Outcome, error) {
	refs, _, err := e.collectReferences(ctx, e.defaults)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeRunFatal, "failed to collect references")
	}

	var outcomes []media.Outcome
	for _, ref := range refs {
		if ref.Missing {
			continue
		}
		reason, ok := match(ref)
		if !ok {
			continue
		}
		outcomes = append(outcomes, media.Outcome{
			Reference:    ref,
			IsValid:      false,
			DetectedType: e.detectRepairType(ref),
			Error:        reason,
		})
	}
	return outcomes, nil
}

// documentKey identifies one document within a repair pass.
type documentKey struct {
	collection string
	id         string
}

// plannedAction pairs a repair action with the conditional write it
// needs, when any.
type plannedAction struct {
	action     media.RepairAction
	updates    map[string]interface{}
	conditions map[string]interface{}
}

// repairOutcomes plans one action per outcome, groups the writes per
// document, and applies each group as a single conditional update. A
// condition miss marks the group's actions as stale; a write failure on
// one document never blocks the others.
func (e *Engine) repairOutcomes(ctx context.Context, outcomes []media.Outcome, baseURL string) (*media.RepairReport, error) {
	perDoc := make(map[documentKey][]plannedAction)
	var docOrder []documentKey

	for _, out := range outcomes {
		planned := e.planRepair(out, baseURL)
		key := documentKey{out.Reference.Collection, out.Reference.DocumentID}
		if _, seen := perDoc[key]; !seen {
			docOrder = append(docOrder, key)
		}
		perDoc[key] = append(perDoc[key], planned)
	}

	report := &media.RepairReport{Timestamp: time.Now()}

	for _, key := range docOrder {
		group := perDoc[key]

		updates := make(map[string]interface{})
		conditions := make(map[string]interface{})
		writable := false
		for _, p := range group {
			if p.action.Error != "" {
				continue
			}
			for path, value := range p.updates {
				updates[path] = value
			}
			for path, value := range p.conditions {
				conditions[path] = value
			}
			writable = true
		}

		matched := false
		var writeErr error
		if writable {
			matched, writeErr = e.source.UpdateDocumentFieldsIf(ctx, key.collection, key.id, updates, conditions)
		}

		for _, p := range group {
			action := p.action
			switch {
			case action.Error != "":
				// Planning already failed this action.
			case writeErr != nil:
				action.Error = utils.WrapError(writeErr, utils.ErrCodeRepairWrite, "document update failed").Error()
			case !matched:
				action.Error = "stale reference: stored value no longer matches"
			default:
				action.Success = true
			}

			report.Actions = append(report.Actions, action)
			report.TotalAttempted++
			if action.Success {
				report.TotalSuccess++
				e.metrics.IncRepair(string(action.Kind), "success")
			} else {
				report.TotalFailed++
				e.metrics.IncRepair(string(action.Kind), "failed")
			}
		}
	}

	if _, err := e.reports.SaveRepairReport(ctx, report); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeStoreFailure, "failed to persist repair report")
	}
	e.metrics.IncReportPersisted("repair")

	e.log.WithFields(map[string]interface{}{
		"report":    report.ID,
		"attempted": report.TotalAttempted,
		"success":   report.TotalSuccess,
		"failed":    report.TotalFailed,
	}).Info("repair run finished")

	return report, nil
}

// planRepair selects the repair kind for one invalid outcome, first
// match wins, and prepares its conditional write.
func (e *Engine) planRepair(out media.Outcome, baseURL string) plannedAction {
	ref := out.Reference
	oldURL := ref.URL

	action := media.RepairAction{Reference: ref, OldURL: oldURL}

	switch {
	case utils.IsRelativeURL(oldURL):
		action.Kind = media.RepairRelativeURLFix
		if baseURL == "" {
			action.Error = "no base URL configured for relative repair"
			return plannedAction{action: action}
		}
		newURL, err := utils.ResolveRelativeURL(baseURL, oldURL)
		if err != nil {
			action.Error = "failed to resolve against base URL: " + err.Error()
			return plannedAction{action: action}
		}
		action.NewURL = newURL

	case utils.URLScheme(oldURL) == "blob":
		action.Kind = media.RepairBlobURLResolve
		kind := e.detectRepairType(ref)
		if out.DetectedType == media.TypeVideo {
			kind = media.TypeVideo
		}
		action.NewURL = e.registry.Get(kind)

	case strings.Contains(out.Error, typeMismatchReason):
		action.Kind = media.RepairMediaTypeCorrection
		// Correct the declared-type metadata when the extraction rule
		// exposes it; otherwise substitute the placeholder for the
		// detected type. Both writes are conditional, keeping the
		// second repair pass stale.
		if ref.TypeFieldPath != "" {
			action.NewURL = oldURL
			return plannedAction{
				action: action,
				updates: map[string]interface{}{
					ref.TypeFieldPath: string(out.DetectedType),
				},
				conditions: map[string]interface{}{
					ref.FieldPath:     oldURL,
					ref.TypeFieldPath: string(ref.DeclaredType),
				},
			}
		}
		action.NewURL = e.registry.Get(out.DetectedType)

	default:
		action.Kind = media.RepairPlaceholderInsertion
		action.NewURL = e.registry.Get(e.placeholderType(out))
	}

	return plannedAction{
		action:     action,
		updates:    map[string]interface{}{ref.FieldPath: action.NewURL},
		conditions: map[string]interface{}{ref.FieldPath: oldURL},
	}
}

// detectRepairType picks the placeholder type for a reference: video
// when the field name or detected/declared type indicates video, else
// image.
func (e *Engine) detectRepairType(ref media.Reference) media.Type {
	if ref.DeclaredType == media.TypeVideo {
		return media.TypeVideo
	}
	if strings.Contains(strings.ToLower(ref.FieldPath), "video") {
		return media.TypeVideo
	}
	return media.TypeImage
}

func (e *Engine) placeholderType(out media.Outcome) media.Type {
	if out.DetectedType != "" && out.DetectedType != media.TypeUnknown {
		return out.DetectedType
	}
	return e.detectRepairType(out.Reference)
}
