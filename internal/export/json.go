// internal/export/json.go
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/etoile-yachts/MediaValidator/internal/media"
)

// JSONExporter writes the full report as JSON.
type JSONExporter struct {
	Indent bool
}

// Extension returns the file extension for JSON exports.
func (e *JSONExporter) Extension() string { return "json" }

// Export writes the report to path.
func (e *JSONExporter) Export(report *media.ValidationReport, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if e.Indent {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
