// internal/engine/scheduler.go

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// Start begins a validation run in the background. It is rejected while
// a run is already RUNNING. A PAUSED, COMPLETED, or FAILED engine may
// start a fresh run; doing so discards the previous run state.
func (e *Engine) Start(ctx context.Context, opts Options) error {
	resolved := e.resolveOptions(opts)

	e.mu.Lock()
	if e.progress.Status == StatusRunning {
		e.mu.Unlock()
		return utils.NewError(utils.ErrCodeInvalidState, "a validation run is already in progress")
	}

	e.runOpts = resolved
	e.pending = nil
	e.outcomes = nil
	e.docCounts = make(map[string]int)
	e.stopRequested = false
	e.runStart = time.Now()
	e.progress = Progress{
		Status:    StatusRunning,
		StartTime: e.runStart,
	}
	e.mu.Unlock()

	e.metrics.SetActiveRun(true)
	e.log.WithFields(map[string]interface{}{
		"batch_size":  resolved.BatchSize,
		"concurrency": resolved.Concurrency,
	}).Info("starting validation run")

	go e.run(ctx)
	return nil
}

// Stop requests a pause. The flag is checked only between batches: the
// in-flight batch always runs to completion, so the worst-case pause
// latency is one batch and resumed runs never re-process or skip a
// reference.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.progress.Status != StatusRunning {
		return utils.NewErrorf(utils.ErrCodeInvalidState, "cannot stop a run in state %s", e.progress.Status)
	}
	e.stopRequested = true
	return nil
}

// Resume continues a PAUSED run from the first unprocessed reference.
// It errors in any other state.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	if e.progress.Status != StatusPaused {
		status := e.progress.Status
		e.mu.Unlock()
		return utils.NewErrorf(utils.ErrCodeInvalidState, "cannot resume a run in state %s", status)
	}
	e.progress.Status = StatusRunning
	e.mu.Unlock()

	e.metrics.SetActiveRun(true)
	e.log.Info("resuming validation run")

	go e.runBatches(ctx)
	return nil
}

// run executes the collect phase followed by the batch loop. Any
// unexpected failure outside per-reference handling is a fatal run
// error: the status becomes FAILED and a best-effort partial report is
// still persisted.
func (e *Engine) run(ctx context.Context) {
	defer e.recoverRunPanic(ctx)

	refs, docCounts, err := e.collectReferences(ctx, e.runOpts)
	if err != nil {
		e.failRun(ctx, utils.WrapError(err, utils.ErrCodeRunFatal, "failed to collect references"))
		return
	}

	totalDocs := 0
	for _, n := range docCounts {
		totalDocs += n
	}

	e.mu.Lock()
	opts := e.runOpts
	e.pending = refs
	e.docCounts = docCounts
	e.progress.TotalItems = len(refs)
	e.progress.TotalBatches = (len(refs) + opts.BatchSize - 1) / opts.BatchSize
	e.mu.Unlock()

	e.metrics.SetProgress(0, len(refs))
	e.log.Infof("collected %d references across %d documents", len(refs), totalDocs)

	e.runBatches(ctx)
}

// runBatches drains the pending queue batch by batch. The cooperative
// stop flag is honored only here, between batches.
func (e *Engine) runBatches(ctx context.Context) {
	defer e.recoverRunPanic(ctx)

	for {
		if err := ctx.Err(); err != nil {
			e.failRun(ctx, utils.WrapError(err, utils.ErrCodeRunFatal, "run context canceled"))
			return
		}

		e.mu.Lock()
		if e.stopRequested {
			e.stopRequested = false
			e.progress.Status = StatusPaused
			remaining := len(e.pending)
			e.mu.Unlock()

			e.metrics.SetActiveRun(false)
			e.log.Infof("run paused at batch boundary, %d references remaining", remaining)
			return
		}

		if len(e.pending) == 0 {
			e.mu.Unlock()
			break
		}

		opts := e.runOpts
		n := opts.BatchSize
		if n > len(e.pending) {
			n = len(e.pending)
		}
		batch := e.pending[:n]
		e.pending = e.pending[n:]
		hasMore := len(e.pending) > 0
		e.mu.Unlock()

		batchStart := time.Now()
		outcomes := e.validateBatch(ctx, batch, opts)
		e.metrics.ObserveBatch(time.Since(batchStart))

		e.recordBatch(outcomes)

		if opts.BatchDelay > 0 && hasMore {
			select {
			case <-ctx.Done():
			case <-time.After(opts.BatchDelay):
			}
		}
	}

	e.completeRun(ctx)
}

// recordBatch folds a joined batch into the progress record. This is
// the only place progress mutates during a run.
func (e *Engine) recordBatch(outcomes []media.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.outcomes = append(e.outcomes, outcomes...)
	for _, out := range outcomes {
		switch {
		case out.Missing:
			e.progress.MissingCount++
		case out.IsValid:
			e.progress.ValidCount++
		default:
			e.progress.InvalidCount++
		}
		e.metrics.IncReference(out.Reference.Collection, outcomeLabel(out))
	}

	e.progress.ProcessedItems += len(outcomes)
	e.progress.CurrentBatch++
	e.progress.EstimatedTimeRemaining = estimateRemaining(
		time.Since(e.runStart), e.progress.ProcessedItems, e.progress.TotalItems)

	e.metrics.SetProgress(e.progress.ProcessedItems, e.progress.TotalItems)
}

// completeRun persists the final report and marks the run COMPLETED.
func (e *Engine) completeRun(ctx context.Context) {
	e.mu.Lock()
	outcomes := e.outcomes
	docCounts := e.docCounts
	start := e.runStart
	e.mu.Unlock()

	report := buildValidationReport(start, time.Now(), outcomes, docCounts)

	if _, err := e.reports.SaveValidationReport(ctx, report); err != nil {
		e.failRun(ctx, utils.WrapError(err, utils.ErrCodeRunFatal, "failed to persist validation report"))
		return
	}
	e.metrics.IncReportPersisted("validation")
	e.metrics.IncRunCompleted()
	e.metrics.SetActiveRun(false)

	e.mu.Lock()
	e.progress.Status = StatusCompleted
	e.progress.EstimatedTimeRemaining = 0
	e.lastReport = report
	e.mu.Unlock()

	e.log.WithFields(map[string]interface{}{
		"report":  report.ID,
		"total":   report.TotalFields,
		"valid":   report.ValidCount,
		"invalid": report.InvalidCount,
		"missing": report.MissingCount,
	}).Info("validation run completed")
}

// failRun marks the run FAILED and persists a best-effort partial
// report covering the outcomes gathered so far.
func (e *Engine) failRun(ctx context.Context, runErr error) {
	e.log.Errorf("validation run failed: %v", runErr)
	e.metrics.IncRunFailure()
	e.metrics.SetActiveRun(false)

	e.mu.Lock()
	outcomes := e.outcomes
	docCounts := e.docCounts
	start := e.runStart
	e.progress.Status = StatusFailed
	e.progress.Error = runErr.Error()
	e.mu.Unlock()

	report := buildValidationReport(start, time.Now(), outcomes, docCounts)
	report.Partial = true
	report.Error = runErr.Error()

	if _, err := e.reports.SaveValidationReport(ctx, report); err != nil {
		e.log.Errorf("failed to persist partial report: %v", err)
		return
	}
	e.metrics.IncReportPersisted("validation")

	e.mu.Lock()
	e.lastReport = report
	e.mu.Unlock()
}

func (e *Engine) recoverRunPanic(ctx context.Context) {
	if r := recover(); r != nil {
		e.failRun(ctx, utils.NewErrorf(utils.ErrCodeRunFatal, "panic in scheduler: %v", r))
	}
}

// collectReferences pages every document of the selected collections
// and extracts their media references in stable order.
func (e *Engine) collectReferences(ctx context.Context, opts Options) ([]media.Reference, map[string]int, error) {
	collections := opts.Collections
	if len(collections) == 0 {
		var err error
		collections, err = e.source.ListCollections(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list collections: %w", err)
		}
	}

	var refs []media.Reference
	docCounts := make(map[string]int, len(collections))

	for _, collection := range collections {
		cursor := ""
		for {
			ids, next, err := e.source.ListDocumentIDs(ctx, collection, opts.PageSize, cursor)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to page %s: %w", collection, err)
			}

			for _, id := range ids {
				doc, err := e.source.GetDocument(ctx, collection, id)
				if err != nil {
					if utils.IsCode(err, utils.ErrCodeNotFound) {
						// Deleted between paging and fetch; skip.
						continue
					}
					return nil, nil, fmt.Errorf("failed to fetch %s/%s: %w", collection, id, err)
				}
				docCounts[collection]++
				refs = append(refs, e.extractor.Extract(collection, id, doc)...)
			}

			if next == "" {
				break
			}
			cursor = next
		}
	}

	return refs, docCounts, nil
}

func outcomeLabel(out media.Outcome) string {
	switch {
	case out.Missing:
		return "missing"
	case out.IsValid:
		return "valid"
	default:
		return "invalid"
	}
}
