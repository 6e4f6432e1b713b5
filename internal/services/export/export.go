// Package export renders metric responses as CSV or XLSX tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"intakedash/internal/models"
)

// Supported formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Content types per format
var ContentTypes = map[string]string{
	FormatCSV:  "text/csv",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Table is a header row plus data rows
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// TableFor flattens a metric response into a Table
func TableFor(v interface{}) (Table, error) {
	switch r := v.(type) {
	case models.VolumeResponse:
		t := Table{Columns: []string{"date", "count"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.Date, row.Count})
		}
		return t, nil

	case models.CategoryResponse:
		t := Table{Columns: []string{"category", "count", "percentage"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.Category, row.Count, row.Percentage})
		}
		return t, nil

	case models.PagesResponse:
		return Table{
			Columns: []string{"total_documents", "total_pages", "avg_pages_per_fax"},
			Rows:    [][]interface{}{{r.TotalDocuments, r.TotalPages, r.AvgPagesPerFax}},
		}, nil

	case models.TimeOfDayResponse:
		t := Table{Columns: []string{"timestamp", "supplier_id"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.Timestamp, row.SupplierID})
		}
		return t, nil

	case models.CycleTimeResponse:
		t := Table{Columns: []string{"date", "avg_minutes", "count"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.Date, row.AvgMinutes, row.Count})
		}
		return t, nil

	case models.StateResponse:
		t := Table{Columns: []string{"state", "label", "count", "percentage"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.State, row.Label, row.Count, row.Percentage})
		}
		return t, nil

	case models.ProductivityResponse:
		t := Table{Columns: []string{"user_id", "user_name", "total_processed", "avg_per_day", "median_minutes"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.UserID, row.UserName, row.TotalProcessed, row.AvgPerDay, row.MedianMinutes})
		}
		return t, nil

	case models.CategoryByIndividualResponse:
		t := Table{Columns: []string{"user_id", "user_name", "category", "count", "percentage"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.UserID, row.UserName, row.Category, row.Count, row.Percentage})
		}
		return t, nil

	case models.FieldAccuracyResponse:
		t := Table{Columns: []string{"record_type", "field_identifier", "total_docs", "accurate_docs", "accuracy_pct"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.RecordType, row.FieldIdentifier, row.TotalDocs, row.AccurateDocs, row.AccuracyPct})
		}
		return t, nil

	case models.DocumentAccuracyResponse:
		return Table{
			Columns: []string{"total_ai_docs", "docs_with_edits", "docs_no_edits", "accuracy_pct"},
			Rows:    [][]interface{}{{r.TotalAIDocs, r.DocsWithEdits, r.DocsNoEdits, r.AccuracyPct}},
		}, nil

	case models.AccuracyTrendResponse:
		t := Table{Columns: []string{"date", "accuracy_pct", "total_docs", "docs_with_changes"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.Date, row.AccuracyPct, row.TotalDocs, row.DocsWithChanges})
		}
		return t, nil

	case models.SupplierListResponse:
		t := Table{Columns: []string{"supplier_id", "name", "ai_intake_enabled"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.SupplierID, row.Name, row.AIIntakeEnabled})
		}
		return t, nil

	case models.OrganizationListResponse:
		t := Table{Columns: []string{"id", "name", "num_suppliers", "has_ai_intake"}}
		for _, row := range r.Data {
			t.Rows = append(t.Rows, []interface{}{row.ID, row.Name, row.NumSuppliers, row.HasAIIntake})
		}
		return t, nil

	case models.AIEnabledCountResponse:
		return Table{
			Columns: []string{"ai_enabled_count"},
			Rows:    [][]interface{}{{r.AIEnabledCount}},
		}, nil
	}
	return Table{}, fmt.Errorf("no table layout for %T", v)
}

// WriteCSV writes t as CSV
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteXLSX renders t as a single-sheet workbook
func WriteXLSX(t Table, sheetName string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range t.Rows {
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			switch v := val.(type) {
			case *float64:
				if v != nil {
					f.SetCellValue(sheetName, cell, *v)
				}
			default:
				f.SetCellValue(sheetName, cell, v)
			}
		}
	}

	for i := range t.Columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Filename names an export for a category and date window
func Filename(category string, filter models.FilterState, format string) string {
	return fmt.Sprintf("%s_%s_to_%s.%s", category, filter.StartISO(), filter.EndISO(), format)
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return fmt.Sprintf("%.2f", x)
	case *float64:
		if x == nil {
			return ""
		}
		return fmt.Sprintf("%.2f", *x)
	}
	return fmt.Sprintf("%v", v)
}
