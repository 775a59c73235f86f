// internal/export/csv.go
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/etoile-yachts/MediaValidator/internal/media"
)

// CSVExporter writes the report's invalid outcomes as CSV rows, one
// per broken reference.
type CSVExporter struct{}

// Extension returns the file extension for CSV exports.
func (e *CSVExporter) Extension() string { return "csv" }

var csvHeader = []string{
	"collection", "document_id", "field_path", "url",
	"declared_type", "detected_type", "http_status", "error",
}

// Export writes the report to path.
func (e *CSVExporter) Export(report *media.ValidationReport, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, out := range report.InvalidOutcomes {
		status := ""
		if out.HTTPStatus != 0 {
			status = strconv.Itoa(out.HTTPStatus)
		}
		row := []string{
			out.Reference.Collection,
			out.Reference.DocumentID,
			out.Reference.FieldPath,
			out.Reference.URL,
			string(out.Reference.DeclaredType),
			string(out.DetectedType),
			status,
			out.Error,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
