package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownColumn is returned when a filter or lookup names a column the table lacks
var ErrUnknownColumn = errors.New("unknown column")

// Table is an in-memory columnar table loaded from a data file.
// Cells hold string, int64, float64, bool, time.Time or nil.
// Tables are never mutated after load; Filter returns a new table.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of a column, or -1 if absent
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has the named column
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Filter returns the rows whose column equals value.
// Cells are compared by their display string, so an int64 key 42 matches "42".
// No matching rows yields an empty table with the same columns.
func (t *Table) Filter(column, value string) (*Table, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("%w %q in table %s", ErrUnknownColumn, column, t.Name)
	}

	filtered := &Table{
		Name:    t.Name,
		Columns: t.Columns,
		Rows:    [][]any{},
	}
	for _, row := range t.Rows {
		if idx < len(row) && FormatCell(row[idx]) == value {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered, nil
}

// Distinct returns the non-empty values of a column in first-seen order
func (t *Table) Distinct(column string) ([]string, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("%w %q in table %s", ErrUnknownColumn, column, t.Name)
	}

	seen := make(map[string]bool)
	var values []string
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		v := FormatCell(row[idx])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values, nil
}

// Float returns a cell as a float64 (ok=false for empty or non-numeric cells)
func (t *Table) Float(row int, column string) (float64, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return 0, false
	}
	return cellFloat(t.Rows[row][idx])
}

// String returns a cell's display string ("" if out of range)
func (t *Table) String(row int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return FormatCell(t.Rows[row][idx])
}

// StringRows returns every row formatted for display
func (t *Table) StringRows() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for j := range t.Columns {
			if j < len(row) {
				cells[j] = FormatCell(row[j])
			}
		}
		out[i] = cells
	}
	return out
}

// FormatCell formats a cell value for display. nil and NaN render empty.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case float64:
		if math.IsNaN(val) {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		if math.IsNaN(float64(val)) {
			return ""
		}
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}

func cellFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val)
	case float32:
		return float64(val), !math.IsNaN(float64(val))
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

// parseCell types a text cell read from CSV or XLSX input
func parseCell(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	// Identifiers like "0123" stay text so they round-trip through Filter
	if len(trimmed) > 1 && trimmed[0] == '0' && trimmed[1] != '.' {
		return s
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	switch trimmed {
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	return s
}
