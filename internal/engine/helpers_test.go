// internal/engine/helpers_test.go
package engine

import (
	"context"
	"testing"
	"time"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/probe"
	"github.com/etoile-yachts/MediaValidator/internal/store"
)

const (
	testImagePlaceholder = "https://storage.googleapis.com/etoile-yachts.firebasestorage.app/placeholders/yacht-placeholder.jpg"
	testVideoPlaceholder = "https://storage.googleapis.com/etoile-yachts.firebasestorage.app/placeholders/yacht-video-placeholder.mp4"
)

func testRegistry(t *testing.T) *media.Registry {
	t.Helper()
	r, err := media.NewRegistry(map[media.Type]string{
		media.TypeImage: testImagePlaceholder,
		media.TypeVideo: testVideoPlaceholder,
	})
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return r
}

// okImageProber answers every probe with HTTP 200 image/jpeg.
func okImageProber() probe.Prober {
	return probe.Func(func(ctx context.Context, url string) (probe.Result, error) {
		return probe.Result{StatusCode: 200, ContentType: "image/jpeg"}, nil
	})
}

func newTestEngine(t *testing.T, src *store.MemoryStore, prober probe.Prober, defaults Options) *Engine {
	t.Helper()

	registry := testRegistry(t)
	eng, err := New(Config{
		Source:     src,
		Reports:    src,
		Prober:     prober,
		Registry:   registry,
		Classifier: media.NewClassifier(registry, media.DefaultClassifierRules()),
		Extractor:  media.NewExtractor(media.DefaultExtractionRules()),
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return eng
}

// waitForStatus polls the engine until it reaches the wanted status or
// the deadline passes.
func waitForStatus(t *testing.T, e *Engine, want Status) Progress {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p := e.Progress()
		if p.Status == want {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("engine never reached %s, last status %s", want, e.Progress().Status)
	return Progress{}
}
