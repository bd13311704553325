package main

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func newTestTable() *Table {
	return &Table{
		Name:    "tlup",
		Columns: []string{"Name", "Tlup", "Height"},
		Rows: [][]any{
			{"A1094", 0.83, int64(120)},
			{"B200", 0.41, int64(95)},
			{"A1094", 0.79, nil},
		},
	}
}

// =============================================================================
// Filter / Distinct
// =============================================================================

func TestTable_FilterMatchingRows(t *testing.T) {
	tbl := newTestTable()

	filtered, err := tbl.Filter("Name", "A1094")
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if filtered.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", filtered.Len())
	}
	if !reflect.DeepEqual(filtered.Columns, tbl.Columns) {
		t.Errorf("columns changed: %v", filtered.Columns)
	}
	if tbl.Len() != 3 {
		t.Errorf("source table modified: %d rows", tbl.Len())
	}
}

func TestTable_FilterNoMatchKeepsColumns(t *testing.T) {
	filtered, err := newTestTable().Filter("Name", "C300")
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if filtered.Len() != 0 {
		t.Errorf("expected no rows, got %d", filtered.Len())
	}
	if len(filtered.Columns) != 3 {
		t.Errorf("expected 3 columns on empty result, got %d", len(filtered.Columns))
	}
	if filtered.Rows == nil {
		t.Error("empty result should have a non-nil row slice")
	}
}

func TestTable_FilterComparesDisplayStrings(t *testing.T) {
	tbl := &Table{
		Name:    "numbers",
		Columns: []string{"Site"},
		Rows:    [][]any{{int64(42)}, {int64(7)}},
	}
	filtered, err := tbl.Filter("Site", "42")
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if filtered.Len() != 1 {
		t.Errorf("int key 42 should match \"42\", got %d rows", filtered.Len())
	}
}

func TestTable_FilterUnknownColumn(t *testing.T) {
	_, err := newTestTable().Filter("Site", "A1094")
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestTable_DistinctFirstSeenOrder(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Name"},
		Rows:    [][]any{{"B200"}, {nil}, {"A1094"}, {"B200"}, {""}, {"C300"}},
	}
	got, err := tbl.Distinct("Name")
	if err != nil {
		t.Fatalf("Distinct failed: %v", err)
	}
	want := []string{"B200", "A1094", "C300"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Distinct = %v, want %v", got, want)
	}
}

// =============================================================================
// Cell access and formatting
// =============================================================================

func TestTable_FloatAndString(t *testing.T) {
	tbl := newTestTable()

	if v, ok := tbl.Float(0, "Tlup"); !ok || v != 0.83 {
		t.Errorf("Float(0, Tlup) = %v, %v", v, ok)
	}
	if v, ok := tbl.Float(1, "Height"); !ok || v != 95 {
		t.Errorf("Float(1, Height) = %v, %v", v, ok)
	}
	if _, ok := tbl.Float(2, "Height"); ok {
		t.Error("nil cell should not convert to float")
	}
	if _, ok := tbl.Float(9, "Tlup"); ok {
		t.Error("out of range row should not convert")
	}
	if got := tbl.String(1, "Name"); got != "B200" {
		t.Errorf("String(1, Name) = %q", got)
	}
	if got := tbl.String(0, "Missing"); got != "" {
		t.Errorf("String on missing column = %q", got)
	}
}

func TestTable_StringRowsPadsShortRows(t *testing.T) {
	tbl := &Table{
		Columns: []string{"A", "B", "C"},
		Rows:    [][]any{{"x"}, {int64(1), 2.5, true}},
	}
	got := tbl.StringRows()
	want := [][]string{{"x", "", ""}, {"1", "2.5", "true"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StringRows = %v, want %v", got, want)
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "A1094", "A1094"},
		{"int64", int64(-12), "-12"},
		{"float", 0.83, "0.83"},
		{"whole float", 120.0, "120"},
		{"NaN", math.NaN(), ""},
		{"bool", true, "true"},
		{"date", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), "2025-07-01"},
		{"timestamp", time.Date(2025, 7, 1, 13, 5, 0, 0, time.UTC), "2025-07-01 13:05:00"},
		{"bytes", []byte("raw"), "raw"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatCell(tc.in); got != tc.want {
				t.Errorf("FormatCell(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"   ", nil},
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"0.83", 0.83},
		{"0", int64(0)},
		{"0123", "0123"},
		{"TRUE", true},
		{"false", false},
		{"A1094", "A1094"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := parseCell(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("parseCell(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}
