// internal/engine/repair_test.go
package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/store"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// TestRepairFromReportIdempotent repairs a report twice. The first pass
// rewrites the documents; on the second every conditional write misses
// because the stored values moved on, so no success is recorded.
func TestRepairFromReportIdempotent(t *testing.T) {
	src := store.NewMemoryStore()
	src.PutDocument("yachts", "blob-doc", map[string]interface{}{
		"media": []interface{}{
			map[string]interface{}{"url": "blob:https://app.example.com/4fa2", "type": "image"},
		},
	})
	src.PutDocument("yachts", "mismatch-doc", map[string]interface{}{
		"media": []interface{}{
			map[string]interface{}{"url": "https://cdn.example.com/frame.jpg", "type": "video"},
		},
	})

	ctx := context.Background()
	eng := newTestEngine(t, src, okImageProber(), Options{})

	report, err := eng.ValidateCollection(ctx, "yachts", Options{})
	if err != nil {
		t.Fatalf("ValidateCollection failed: %v", err)
	}
	if report.InvalidCount != 2 {
		t.Fatalf("InvalidCount = %d, want 2", report.InvalidCount)
	}

	first, err := eng.RepairFromReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("first repair failed: %v", err)
	}
	if first.TotalAttempted != 2 || first.TotalSuccess != 2 || first.TotalFailed != 0 {
		t.Fatalf("first repair: attempted=%d success=%d failed=%d, want 2/2/0",
			first.TotalAttempted, first.TotalSuccess, first.TotalFailed)
	}

	// The blob reference became the image placeholder.
	blobDoc, _ := src.GetDocument(ctx, "yachts", "blob-doc")
	if got, _ := utils.GetPath(blobDoc, "media[0].url"); got != testImagePlaceholder {
		t.Errorf("blob URL after repair = %v", got)
	}

	// The type mismatch corrected the declared type, not the URL.
	mismatchDoc, _ := src.GetDocument(ctx, "yachts", "mismatch-doc")
	if got, _ := utils.GetPath(mismatchDoc, "media[0].url"); got != "https://cdn.example.com/frame.jpg" {
		t.Errorf("mismatch URL changed unexpectedly: %v", got)
	}
	if got, _ := utils.GetPath(mismatchDoc, "media[0].type"); got != "image" {
		t.Errorf("declared type after repair = %v, want image", got)
	}

	second, err := eng.RepairFromReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("second repair failed: %v", err)
	}
	if second.TotalSuccess != 0 {
		t.Fatalf("second repair succeeded %d times, want 0", second.TotalSuccess)
	}
	if second.TotalFailed != 2 {
		t.Fatalf("second repair failed count = %d, want 2", second.TotalFailed)
	}
	for _, action := range second.Actions {
		if !strings.Contains(action.Error, "stale") {
			t.Errorf("action error = %q, want a stale marker", action.Error)
		}
	}
}

func TestRepairKinds(t *testing.T) {
	tests := []struct {
		name     string
		outcome  media.Outcome
		baseURL  string
		wantKind media.RepairKind
		wantURL  string
	}{
		{
			name: "relative URL fix",
			outcome: media.Outcome{
				Reference: media.Reference{
					Collection: "yachts", DocumentID: "y1",
					FieldPath: "coverImage", URL: "/img1.jpg",
					DeclaredType: media.TypeImage,
				},
				Error: "relative URL",
			},
			baseURL:  "https://cdn.example.com",
			wantKind: media.RepairRelativeURLFix,
			wantURL:  "https://cdn.example.com/img1.jpg",
		},
		{
			name: "blob resolution picks video placeholder for video fields",
			outcome: media.Outcome{
				Reference: media.Reference{
					Collection: "yachts", DocumentID: "y1",
					FieldPath: "videoUrl", URL: "blob:abc",
					DeclaredType: media.TypeVideo,
				},
				Error: "blob URL is an ephemeral session reference, unusable from the server",
			},
			wantKind: media.RepairBlobURLResolve,
			wantURL:  testVideoPlaceholder,
		},
		{
			name: "unreachable URL gets a placeholder",
			outcome: media.Outcome{
				Reference: media.Reference{
					Collection: "yachts", DocumentID: "y1",
					FieldPath: "coverImage", URL: "https://gone.example.com/x.jpg",
					DeclaredType: media.TypeImage,
				},
				DetectedType: media.TypeImage,
				Error:        "unreachable: HTTP 404",
			},
			wantKind: media.RepairPlaceholderInsertion,
			wantURL:  testImagePlaceholder,
		},
		{
			name: "type mismatch without type field substitutes placeholder",
			outcome: media.Outcome{
				Reference: media.Reference{
					Collection: "yachts", DocumentID: "y1",
					FieldPath: "videoUrl", URL: "https://cdn.example.com/frame.jpg",
					DeclaredType: media.TypeVideo,
				},
				DetectedType: media.TypeImage,
				Error:        "expected video but detected image",
			},
			wantKind: media.RepairMediaTypeCorrection,
			wantURL:  testImagePlaceholder,
		},
	}

	eng := newTestEngine(t, store.NewMemoryStore(), okImageProber(), Options{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planned := eng.planRepair(tt.outcome, tt.baseURL)
			if planned.action.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", planned.action.Kind, tt.wantKind)
			}
			if planned.action.Error != "" {
				t.Fatalf("planning failed: %s", planned.action.Error)
			}
			if planned.action.NewURL != tt.wantURL {
				t.Errorf("new URL = %q, want %q", planned.action.NewURL, tt.wantURL)
			}
			if planned.conditions[tt.outcome.Reference.FieldPath] != tt.outcome.Reference.URL {
				t.Errorf("conditions = %v, want old URL guard", planned.conditions)
			}
		})
	}
}

func TestRepairRelativeWithoutBaseFails(t *testing.T) {
	eng := newTestEngine(t, store.NewMemoryStore(), okImageProber(), Options{})

	planned := eng.planRepair(media.Outcome{
		Reference: media.Reference{
			Collection: "yachts", DocumentID: "y1",
			FieldPath: "coverImage", URL: "/img1.jpg",
		},
		Error: "relative URL",
	}, "")

	if planned.action.Kind != media.RepairRelativeURLFix {
		t.Errorf("kind = %s", planned.action.Kind)
	}
	if planned.action.Error == "" {
		t.Error("expected a planning error without a base URL")
	}
}

// TestFixRelativeURLs runs the narrow relative-only repair scan
// end to end.
func TestFixRelativeURLs(t *testing.T) {
	src := store.NewMemoryStore()
	src.PutDocument("yachts", "y1", map[string]interface{}{
		"media": []interface{}{
			map[string]interface{}{"url": "/img1.jpg", "type": "image"},
			map[string]interface{}{"url": "https://cdn.example.com/ok.jpg", "type": "image"},
		},
	})

	ctx := context.Background()
	eng := newTestEngine(t, src, okImageProber(), Options{})

	report, err := eng.FixRelativeURLs(ctx, "https://base.example.com")
	if err != nil {
		t.Fatalf("FixRelativeURLs failed: %v", err)
	}
	if report.TotalAttempted != 1 || report.TotalSuccess != 1 {
		t.Fatalf("attempted=%d success=%d, want 1/1", report.TotalAttempted, report.TotalSuccess)
	}

	doc, _ := src.GetDocument(ctx, "yachts", "y1")
	if got, _ := utils.GetPath(doc, "media[0].url"); got != "https://base.example.com/img1.jpg" {
		t.Errorf("media[0].url = %v", got)
	}
	if got, _ := utils.GetPath(doc, "media[1].url"); got != "https://cdn.example.com/ok.jpg" {
		t.Errorf("absolute URL was touched: %v", got)
	}
}

func TestFixRelativeURLsRequiresBase(t *testing.T) {
	eng := newTestEngine(t, store.NewMemoryStore(), okImageProber(), Options{})
	if _, err := eng.FixRelativeURLs(context.Background(), ""); !utils.IsCode(err, utils.ErrCodeInvalidConfig) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

// TestResolveBlobURLs replaces blob references with typed placeholders
// and leaves everything else alone.
func TestResolveBlobURLs(t *testing.T) {
	src := store.NewMemoryStore()
	src.PutDocument("yachts", "y1", map[string]interface{}{
		"media": []interface{}{
			map[string]interface{}{"url": "blob:https://app.example.com/4fa2", "type": "image"},
			map[string]interface{}{"url": "blob:https://app.example.com/9bc1", "type": "video"},
			map[string]interface{}{"url": "https://cdn.example.com/ok.jpg", "type": "image"},
		},
	})

	ctx := context.Background()
	eng := newTestEngine(t, src, okImageProber(), Options{})

	report, err := eng.ResolveBlobURLs(ctx)
	if err != nil {
		t.Fatalf("ResolveBlobURLs failed: %v", err)
	}
	if report.TotalAttempted != 2 || report.TotalSuccess != 2 {
		t.Fatalf("attempted=%d success=%d, want 2/2", report.TotalAttempted, report.TotalSuccess)
	}

	doc, _ := src.GetDocument(ctx, "yachts", "y1")
	if got, _ := utils.GetPath(doc, "media[0].url"); got != testImagePlaceholder {
		t.Errorf("media[0].url = %v", got)
	}
	if got, _ := utils.GetPath(doc, "media[1].url"); got != testVideoPlaceholder {
		t.Errorf("media[1].url = %v", got)
	}
	if got, _ := utils.GetPath(doc, "media[2].url"); got != "https://cdn.example.com/ok.jpg" {
		t.Errorf("media[2].url = %v", got)
	}
}

// TestRepairStaleReference validates, mutates the document externally,
// then repairs: the conditional write must miss.
func TestRepairStaleReference(t *testing.T) {
	src := store.NewMemoryStore()
	src.PutDocument("yachts", "y1", map[string]interface{}{
		"coverImage": "blob:https://app.example.com/4fa2",
	})

	ctx := context.Background()
	eng := newTestEngine(t, src, okImageProber(), Options{})

	report, err := eng.ValidateCollection(ctx, "yachts", Options{})
	if err != nil {
		t.Fatalf("ValidateCollection failed: %v", err)
	}
	if report.InvalidCount != 1 {
		t.Fatalf("InvalidCount = %d, want 1", report.InvalidCount)
	}

	// Another writer replaces the URL between validation and repair.
	if err := src.UpdateDocumentFields(ctx, "yachts", "y1", map[string]interface{}{
		"coverImage": "https://cdn.example.com/new.jpg",
	}); err != nil {
		t.Fatalf("external update failed: %v", err)
	}

	repair, err := eng.RepairFromReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("RepairFromReport failed: %v", err)
	}
	if repair.TotalSuccess != 0 || repair.TotalFailed != 1 {
		t.Fatalf("success=%d failed=%d, want 0/1", repair.TotalSuccess, repair.TotalFailed)
	}
	if !strings.Contains(repair.Actions[0].Error, "stale") {
		t.Errorf("action error = %q", repair.Actions[0].Error)
	}

	doc, _ := src.GetDocument(ctx, "yachts", "y1")
	if doc["coverImage"] != "https://cdn.example.com/new.jpg" {
		t.Errorf("external value was overwritten: %v", doc["coverImage"])
	}
}

// TestRepairFromReportURLFilter restricts the repair to an explicit URL
// set.
func TestRepairFromReportURLFilter(t *testing.T) {
	src := store.NewMemoryStore()
	src.PutDocument("yachts", "y1", map[string]interface{}{
		"media": []interface{}{
			map[string]interface{}{"url": "blob:one", "type": "image"},
			map[string]interface{}{"url": "blob:two", "type": "image"},
		},
	})

	ctx := context.Background()
	eng := newTestEngine(t, src, okImageProber(), Options{})

	report, err := eng.ValidateCollection(ctx, "yachts", Options{})
	if err != nil {
		t.Fatalf("ValidateCollection failed: %v", err)
	}

	repair, err := eng.RepairFromReport(ctx, report.ID, "blob:two")
	if err != nil {
		t.Fatalf("RepairFromReport failed: %v", err)
	}
	if repair.TotalAttempted != 1 {
		t.Fatalf("TotalAttempted = %d, want 1", repair.TotalAttempted)
	}

	doc, _ := src.GetDocument(ctx, "yachts", "y1")
	if got, _ := utils.GetPath(doc, "media[0].url"); got != "blob:one" {
		t.Errorf("unfiltered URL was repaired: %v", got)
	}
	if got, _ := utils.GetPath(doc, "media[1].url"); got != testImagePlaceholder {
		t.Errorf("filtered URL not repaired: %v", got)
	}
}

func TestRepairFromReportUnknownReport(t *testing.T) {
	eng := newTestEngine(t, store.NewMemoryStore(), okImageProber(), Options{})
	if _, err := eng.RepairFromReport(context.Background(), "missing"); !utils.IsCode(err, utils.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
