package main

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const maxSheetNameLen = 31

// WriteTableCSV writes a table as CSV with a header row.
// The output starts with a UTF-8 BOM so Excel opens it cleanly.
func WriteTableCSV(w io.Writer, t *Table) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.StringRows() {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTableXLSX writes a table as a single-sheet workbook.
// Numeric cells stay numeric and the highlight column is filled yellow.
func WriteTableXLSX(w io.Writer, t *Table, highlight string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Name
	if sheet == "" {
		sheet = "Sheet1"
	}
	if len(sheet) > maxSheetNameLen {
		sheet = sheet[:maxSheetNameLen]
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return err
		}
	}

	header := make([]any, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cells := make([]any, len(t.Columns))
		for j := range t.Columns {
			if j < len(row) {
				cells[j] = xlsxCell(row[j])
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if len(t.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	if col := t.ColumnIndex(highlight); highlight != "" && col >= 0 && t.Len() > 0 {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"FFFF00"}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		top, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(col+1, t.Len()+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, top, bottom, style); err != nil {
			return fmt.Errorf("highlight %s: %w", highlight, err)
		}
	}

	_, err = f.WriteTo(w)
	return err
}

// xlsxCell converts a table cell into a value excelize writes natively
func xlsxCell(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if FormatCell(val) == "" {
			return nil
		}
		return val
	case int64, bool, string:
		return val
	default:
		return FormatCell(val)
	}
}
