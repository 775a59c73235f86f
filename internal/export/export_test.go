// internal/export/export_test.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etoile-yachts/MediaValidator/internal/media"
)

func sampleReport() *media.ValidationReport {
	now := time.Now().Truncate(time.Second)
	return &media.ValidationReport{
		ID:             "report-123",
		StartTime:      now.Add(-time.Minute),
		EndTime:        now,
		TotalDocuments: 2,
		TotalFields:    4,
		ValidCount:     2,
		InvalidCount:   2,
		PerCollection: []media.CollectionSummary{
			{Collection: "yachts", Documents: 2, TotalFields: 4, ValidCount: 2, InvalidCount: 2},
		},
		InvalidOutcomes: []media.Outcome{
			{
				Reference: media.Reference{
					Collection: "yachts", DocumentID: "y1",
					FieldPath: "coverImage", URL: "/img1.jpg",
					DeclaredType: media.TypeImage,
				},
				DetectedType: media.TypeImage,
				Error:        "relative URL",
			},
			{
				Reference: media.Reference{
					Collection: "yachts", DocumentID: "y2",
					FieldPath: "media[0].url", URL: "https://gone.example.com/x.jpg",
					DeclaredType: media.TypeImage,
				},
				DetectedType: media.TypeImage,
				HTTPStatus:   404,
				Error:        "unreachable: HTTP 404",
			},
		},
	}
}

func TestManagerExportsAllFormats(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, []Format{FormatJSON, FormatCSV, FormatExcel})

	paths, err := m.ExportReport(sampleReport())
	if err != nil {
		t.Fatalf("ExportReport failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("wrote %d files, want 3", len(paths))
	}

	wantNames := map[string]bool{
		"validation-report-123.json": false,
		"validation-report-123.csv":  false,
		"validation-report-123.xlsx": false,
	}
	for _, p := range paths {
		name := filepath.Base(p)
		if _, ok := wantNames[name]; !ok {
			t.Errorf("unexpected file name %q", name)
			continue
		}
		wantNames[name] = true
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("stat %s: %v", p, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
	for name, seen := range wantNames {
		if !seen {
			t.Errorf("missing export %q", name)
		}
	}
}

func TestJSONExportRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	exporter := &JSONExporter{Indent: true}
	if err := exporter.Export(sampleReport(), path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var got media.ValidationReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("exported JSON does not parse: %v", err)
	}
	if got.ID != "report-123" || got.TotalFields != 4 {
		t.Errorf("round-tripped report = %+v", got)
	}
	if len(got.InvalidOutcomes) != 2 {
		t.Errorf("invalid outcomes = %d, want 2", len(got.InvalidOutcomes))
	}
}

func TestCSVExportRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")

	exporter := &CSVExporter{}
	if err := exporter.Export(sampleReport(), path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("CSV parse failed: %v", err)
	}

	// Header plus one row per invalid outcome.
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "collection" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][3] != "/img1.jpg" {
		t.Errorf("first data row = %v", rows[1])
	}
	if rows[2][6] != "404" {
		t.Errorf("second data row = %v", rows[2])
	}
}

func TestForFormatUnknown(t *testing.T) {
	if _, err := ForFormat(Format("parquet")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
