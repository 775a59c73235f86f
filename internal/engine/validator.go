// internal/engine/validator.go

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/monitoring"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// validateBatch runs one batch with bounded fan-out and joins before
// returning. Probe failures never surface as errors here; they are
// captured on the outcomes.
func (e *Engine) validateBatch(ctx context.Context, batch []media.Reference, opts Options) []media.Outcome {
	outcomes := make([]media.Outcome, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, ref := range batch {
		g.Go(func() error {
			outcomes[i] = e.validateReference(gctx, ref, opts)
			return nil
		})
	}
	g.Wait()

	return outcomes
}

// validateReference classifies one reference and, when the verdict
// depends on reachability, probes it.
func (e *Engine) validateReference(ctx context.Context, ref media.Reference, opts Options) media.Outcome {
	if ref.Missing {
		return media.Outcome{
			Reference: ref,
			Missing:   true,
			Error:     "missing or non-string media value",
		}
	}

	c := e.classifier.Classify(ref.URL, ref.DeclaredType, media.ClassifyOptions{BaseURL: opts.BaseURL})
	out := media.Outcome{
		Reference:    ref,
		IsValid:      c.Valid,
		DetectedType: c.Type,
		Flagged:      c.Flagged,
		Error:        c.Reason,
	}

	if !c.NeedsProbe {
		return out
	}

	probeURL := c.ResolvedURL
	if probeURL == "" {
		probeURL = ref.URL
	}
	return e.probeReference(ctx, out, probeURL)
}

// probeReference settles an outcome with a live reachability check.
func (e *Engine) probeReference(ctx context.Context, out media.Outcome, url string) media.Outcome {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			out.IsValid = false
			out.Error = fmt.Sprintf("probe aborted: %v", err)
			return out
		}
	}

	start := time.Now()
	result, err := e.prober.Probe(ctx, url)
	elapsed := time.Since(start)

	if err != nil {
		out.IsValid = false
		if errors.Is(err, context.DeadlineExceeded) {
			out.Error = fmt.Sprintf("probe timed out after %v", elapsed.Round(time.Millisecond))
			e.metrics.ObserveProbe(monitoring.ProbeResultTimeout, elapsed)
		} else {
			out.Error = fmt.Sprintf("probe transport failure: %v", err)
			e.metrics.ObserveProbe(monitoring.ProbeResultTransport, elapsed)
		}
		return out
	}

	out.HTTPStatus = result.StatusCode
	out.ContentType = result.ContentType

	if result.StatusCode >= 400 {
		out.IsValid = false
		out.Error = fmt.Sprintf("unreachable: HTTP %d", result.StatusCode)
		e.metrics.ObserveProbe(monitoring.ProbeResultStatus, elapsed)
		return out
	}
	e.metrics.ObserveProbe(monitoring.ProbeResultOK, elapsed)

	// Compare the served content-type category against the expected
	// type, with the legacy tolerance for video served where image was
	// expected. The inverse stays invalid.
	served := media.TypeFromContentType(result.ContentType)
	if served == media.TypeUnknown {
		return out
	}

	expected := out.DetectedType
	out.DetectedType = served
	switch {
	case expected == media.TypeImage && served == media.TypeVideo:
		out.Flagged = true
	case expected == media.TypeVideo && served == media.TypeImage:
		out.IsValid = false
		out.Error = "expected video but detected image"
	}

	return out
}

// ValidateCollection validates a single collection synchronously and
// persists the resulting report. It does not touch the background run's
// state machine.
func (e *Engine) ValidateCollection(ctx context.Context, collection string, opts Options) (*media.ValidationReport, error) {
	resolved := e.resolveOptions(opts)
	resolved.Collections = []string{collection}

	start := time.Now()
	refs, docCounts, err := e.collectReferences(ctx, resolved)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeRunFatal, "failed to collect references")
	}

	var outcomes []media.Outcome
	for begin := 0; begin < len(refs); begin += resolved.BatchSize {
		end := begin + resolved.BatchSize
		if end > len(refs) {
			end = len(refs)
		}
		outcomes = append(outcomes, e.validateBatch(ctx, refs[begin:end], resolved)...)
	}

	report := buildValidationReport(start, time.Now(), outcomes, docCounts)
	if _, err := e.reports.SaveValidationReport(ctx, report); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeStoreFailure, "failed to persist validation report")
	}
	e.metrics.IncReportPersisted("validation")

	return report, nil
}
