// internal/export/excel.go
package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/etoile-yachts/MediaValidator/internal/media"
)

// ExcelExporter writes a two-sheet workbook: a per-collection summary
// and the invalid references.
type ExcelExporter struct{}

// Extension returns the file extension for Excel exports.
func (e *ExcelExporter) Extension() string { return "xlsx" }

const (
	summarySheet = "Summary"
	invalidSheet = "Invalid References"
)

// Export writes the report to path.
func (e *ExcelExporter) Export(report *media.ValidationReport, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), summarySheet)
	if _, err := f.NewSheet(invalidSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := e.writeSummary(f, report); err != nil {
		return err
	}
	if err := e.writeInvalid(f, report); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (e *ExcelExporter) writeSummary(f *excelize.File, report *media.ValidationReport) error {
	rows := [][]interface{}{
		{"Report ID", report.ID},
		{"Start", report.StartTime.Format("2006-01-02 15:04:05")},
		{"End", report.EndTime.Format("2006-01-02 15:04:05")},
		{"Documents", report.TotalDocuments},
		{"Fields", report.TotalFields},
		{"Valid", report.ValidCount},
		{"Invalid", report.InvalidCount},
		{"Missing", report.MissingCount},
		{},
		{"Collection", "Documents", "Fields", "Valid", "Invalid", "Missing"},
	}
	for _, summary := range report.PerCollection {
		rows = append(rows, []interface{}{
			summary.Collection, summary.Documents, summary.TotalFields,
			summary.ValidCount, summary.InvalidCount, summary.MissingCount,
		})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell := "A" + strconv.Itoa(i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func (e *ExcelExporter) writeInvalid(f *excelize.File, report *media.ValidationReport) error {
	header := []interface{}{
		"Collection", "Document", "Field Path", "URL",
		"Declared Type", "Detected Type", "HTTP Status", "Error",
	}
	if err := f.SetSheetRow(invalidSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, out := range report.InvalidOutcomes {
		status := ""
		if out.HTTPStatus != 0 {
			status = strconv.Itoa(out.HTTPStatus)
		}
		row := []interface{}{
			out.Reference.Collection,
			out.Reference.DocumentID,
			out.Reference.FieldPath,
			out.Reference.URL,
			string(out.Reference.DeclaredType),
			string(out.DetectedType),
			status,
			out.Error,
		}
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(invalidSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return nil
}
