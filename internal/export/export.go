// Package export writes validation reports to files for offline
// review: JSON for tooling, CSV for spreadsheets, Excel for the ops
// team's workbook workflow.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

var exportLogger = utils.NewComponentLogger("export")

// Format identifies a report export format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ValidFormats returns all supported export formats.
func ValidFormats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatExcel}
}

// Exporter writes a validation report to one file.
type Exporter interface {
	Export(report *media.ValidationReport, path string) error
	Extension() string
}

// ForFormat returns the exporter for a format.
func ForFormat(format Format) (Exporter, error) {
	switch format {
	case FormatJSON:
		return &JSONExporter{Indent: true}, nil
	case FormatCSV:
		return &CSVExporter{}, nil
	case FormatExcel:
		return &ExcelExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// Manager exports a report into every configured format under one
// directory.
type Manager struct {
	directory string
	formats   []Format
}

// NewManager creates an export manager.
func NewManager(directory string, formats []Format) *Manager {
	return &Manager{directory: directory, formats: formats}
}

// ExportReport writes the report in all configured formats, named by
// report ID. It returns the written paths.
func (m *Manager) ExportReport(report *media.ValidationReport) ([]string, error) {
	if err := os.MkdirAll(m.directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	var paths []string
	for _, format := range m.formats {
		exporter, err := ForFormat(format)
		if err != nil {
			return paths, err
		}

		path := filepath.Join(m.directory, fmt.Sprintf("validation-%s.%s", report.ID, exporter.Extension()))
		if err := exporter.Export(report, path); err != nil {
			return paths, fmt.Errorf("failed to export %s: %w", format, err)
		}
		exportLogger.Infof("exported report %s to %s", report.ID, path)
		paths = append(paths, path)
	}
	return paths, nil
}
