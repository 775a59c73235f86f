// internal/engine/validator_test.go
package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/probe"
	"github.com/etoile-yachts/MediaValidator/internal/store"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// TestValidateCollectionMixedDocument walks one document holding a
// relative URL, a blob URL, and a reachable video, and checks each
// verdict along with the report counts.
func TestValidateCollectionMixedDocument(t *testing.T) {
	src := store.NewMemoryStore()
	src.PutDocument("yachts", "y1", map[string]interface{}{
		"media": []interface{}{
			map[string]interface{}{"url": "/img1.jpg", "type": "image"},
			map[string]interface{}{"url": "blob:https://app.example.com/4fa2", "type": "image"},
			map[string]interface{}{"url": "https://cdn.example.com/vid.mp4", "type": "video"},
		},
	})

	prober := probe.Func(func(ctx context.Context, url string) (probe.Result, error) {
		return probe.Result{StatusCode: 200, ContentType: "video/mp4"}, nil
	})

	eng := newTestEngine(t, src, prober, Options{})
	report, err := eng.ValidateCollection(context.Background(), "yachts", Options{})
	if err != nil {
		t.Fatalf("ValidateCollection failed: %v", err)
	}

	if report.TotalDocuments != 1 {
		t.Errorf("TotalDocuments = %d, want 1", report.TotalDocuments)
	}
	if report.TotalFields != 3 {
		t.Fatalf("TotalFields = %d, want 3", report.TotalFields)
	}
	if report.ValidCount != 1 || report.InvalidCount != 2 || report.MissingCount != 0 {
		t.Fatalf("counts valid=%d invalid=%d missing=%d, want 1/2/0",
			report.ValidCount, report.InvalidCount, report.MissingCount)
	}
	if len(report.InvalidOutcomes) != 2 {
		t.Fatalf("got %d invalid outcomes, want 2", len(report.InvalidOutcomes))
	}

	byURL := make(map[string]media.Outcome)
	for _, out := range report.InvalidOutcomes {
		byURL[out.Reference.URL] = out
	}

	relative, ok := byURL["/img1.jpg"]
	if !ok || !strings.Contains(relative.Error, "relative URL") {
		t.Errorf("relative outcome = %+v", relative)
	}
	blob, ok := byURL["blob:https://app.example.com/4fa2"]
	if !ok || !strings.Contains(blob.Error, "blob") {
		t.Errorf("blob outcome = %+v", blob)
	}

	// The report is persisted and retrievable.
	stored, err := src.GetValidationReport(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("stored report not found: %v", err)
	}
	if stored.TotalFields != 3 {
		t.Errorf("stored TotalFields = %d", stored.TotalFields)
	}
}

// TestReportCountInvariant checks that valid + invalid + missing always
// equals the total field count, across mixed outcomes.
func TestReportCountInvariant(t *testing.T) {
	src := store.NewMemoryStore()
	src.PutDocument("yachts", "y1", map[string]interface{}{
		"coverImage": "https://cdn.example.com/ok.jpg",
		"media": []interface{}{
			map[string]interface{}{"url": nil, "type": "image"},
			map[string]interface{}{"url": "/broken.jpg", "type": "image"},
		},
	})
	src.PutDocument("promotions_and_offers", "p1", map[string]interface{}{
		"imageUrl":  "https://cdn.example.com/banner.jpg",
		"bannerUrl": "blob:dead",
	})

	eng := newTestEngine(t, src, okImageProber(), Options{})
	if err := eng.Start(context.Background(), Options{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForStatus(t, eng, StatusCompleted)

	report := eng.LastReport()
	if report == nil {
		t.Fatal("no report after completed run")
	}

	if report.TotalFields != 5 {
		t.Fatalf("TotalFields = %d, want 5", report.TotalFields)
	}
	if sum := report.ValidCount + report.InvalidCount + report.MissingCount; sum != report.TotalFields {
		t.Fatalf("count invariant broken: %d + %d + %d != %d",
			report.ValidCount, report.InvalidCount, report.MissingCount, report.TotalFields)
	}
	if report.MissingCount != 1 {
		t.Errorf("MissingCount = %d, want 1", report.MissingCount)
	}
	if report.InvalidCount != 2 {
		t.Errorf("InvalidCount = %d, want 2", report.InvalidCount)
	}

	for _, summary := range report.PerCollection {
		if sum := summary.ValidCount + summary.InvalidCount + summary.MissingCount; sum != summary.TotalFields {
			t.Errorf("per-collection invariant broken for %s", summary.Collection)
		}
	}
}

func TestProbeOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		result    probe.Result
		probeErr  error
		wantValid bool
		phrase    string
	}{
		{
			name:      "reachable image",
			result:    probe.Result{StatusCode: 200, ContentType: "image/jpeg"},
			wantValid: true,
		},
		{
			name:      "http 404",
			result:    probe.Result{StatusCode: 404, ContentType: "text/html"},
			wantValid: false,
			phrase:    "HTTP 404",
		},
		{
			name:      "timeout",
			probeErr:  context.DeadlineExceeded,
			wantValid: false,
			phrase:    "timed out",
		},
		{
			name:      "transport failure",
			probeErr:  utils.NewError(utils.ErrCodeProbeTransport, "connection refused"),
			wantValid: false,
			phrase:    "transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := store.NewMemoryStore()
			src.PutDocument("yachts", "y1", map[string]interface{}{
				"coverImage": "https://cdn.example.com/cover.jpg",
			})

			prober := probe.Func(func(ctx context.Context, url string) (probe.Result, error) {
				return tt.result, tt.probeErr
			})

			eng := newTestEngine(t, src, prober, Options{})
			report, err := eng.ValidateCollection(context.Background(), "yachts", Options{})
			if err != nil {
				t.Fatalf("ValidateCollection failed: %v", err)
			}
			if report.TotalFields != 1 {
				t.Fatalf("TotalFields = %d, want 1", report.TotalFields)
			}

			valid := report.ValidCount == 1
			if valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v", valid, tt.wantValid)
			}
			if !tt.wantValid {
				out := report.InvalidOutcomes[0]
				if !strings.Contains(out.Error, tt.phrase) {
					t.Errorf("error = %q, want it to mention %q", out.Error, tt.phrase)
				}
			}
		})
	}
}

// TestProbeContentTypeAsymmetry mirrors the classification tolerance at
// the probe layer: served video where an image was expected passes with
// a flag, served image where a video was expected fails.
func TestProbeContentTypeAsymmetry(t *testing.T) {
	t.Run("image field serving video is flagged valid", func(t *testing.T) {
		src := store.NewMemoryStore()
		src.PutDocument("yachts", "y1", map[string]interface{}{
			"coverImage": "https://cdn.example.com/cover",
		})

		prober := probe.Func(func(ctx context.Context, url string) (probe.Result, error) {
			return probe.Result{StatusCode: 200, ContentType: "video/mp4"}, nil
		})

		eng := newTestEngine(t, src, prober, Options{})
		report, err := eng.ValidateCollection(context.Background(), "yachts", Options{})
		if err != nil {
			t.Fatalf("ValidateCollection failed: %v", err)
		}
		if report.ValidCount != 1 {
			t.Fatalf("ValidCount = %d, want 1", report.ValidCount)
		}
	})

	t.Run("video field serving image is invalid", func(t *testing.T) {
		src := store.NewMemoryStore()
		src.PutDocument("yachts", "y1", map[string]interface{}{
			"media": []interface{}{
				map[string]interface{}{"url": "https://cdn.example.com/clip.mp4", "type": "video"},
			},
		})

		eng := newTestEngine(t, src, okImageProber(), Options{})
		report, err := eng.ValidateCollection(context.Background(), "yachts", Options{})
		if err != nil {
			t.Fatalf("ValidateCollection failed: %v", err)
		}
		if report.InvalidCount != 1 {
			t.Fatalf("InvalidCount = %d, want 1", report.InvalidCount)
		}
		out := report.InvalidOutcomes[0]
		if !strings.Contains(out.Error, "expected video but detected image") {
			t.Errorf("error = %q", out.Error)
		}
	})
}

// TestValidateWithBaseURL resolves relative references instead of
// rejecting them when a base URL is configured.
func TestValidateWithBaseURL(t *testing.T) {
	src := store.NewMemoryStore()
	src.PutDocument("yachts", "y1", map[string]interface{}{
		"coverImage": "/img1.jpg",
	})

	var probed []string
	prober := probe.Func(func(ctx context.Context, url string) (probe.Result, error) {
		probed = append(probed, url)
		return probe.Result{StatusCode: 200, ContentType: "image/jpeg"}, nil
	})

	eng := newTestEngine(t, src, prober, Options{BaseURL: "https://cdn.example.com"})
	report, err := eng.ValidateCollection(context.Background(), "yachts", Options{})
	if err != nil {
		t.Fatalf("ValidateCollection failed: %v", err)
	}
	if report.ValidCount != 1 {
		t.Fatalf("ValidCount = %d, want 1", report.ValidCount)
	}
	if len(probed) != 1 || probed[0] != "https://cdn.example.com/img1.jpg" {
		t.Errorf("probed = %v, want the resolved URL", probed)
	}
}
