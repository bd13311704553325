package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteTableCSV(t *testing.T) {
	tbl := &Table{
		Name:    "tlup",
		Columns: []string{"Name", "Note", "Tlup"},
		Rows: [][]any{
			{"A1094", "north, ridge", 0.83},
			{"B200", nil, nil},
		},
	}

	var buf bytes.Buffer
	if err := WriteTableCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteTableCSV failed: %v", err)
	}

	data := buf.Bytes()
	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("CSV should start with a UTF-8 BOM")
	}
	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[1][1] != "north, ridge" {
		t.Errorf("quoted field = %q", records[1][1])
	}
	if records[2][1] != "" || records[2][2] != "" {
		t.Errorf("nil cells should be empty, got %v", records[2])
	}
}

func TestWriteTableXLSX(t *testing.T) {
	tbl := newTestTable()

	var buf bytes.Buffer
	if err := WriteTableXLSX(&buf, tbl, "Tlup"); err != nil {
		t.Fatalf("WriteTableXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "tlup" {
		t.Errorf("sheets = %v", sheets)
	}

	value, err := f.GetCellValue("tlup", "B2")
	if err != nil || value != "0.83" {
		t.Errorf("B2 = %q, %v", value, err)
	}
	cellType, err := f.GetCellType("tlup", "B2")
	if err != nil {
		t.Fatal(err)
	}
	if cellType == excelize.CellTypeSharedString || cellType == excelize.CellTypeInlineString {
		t.Error("numeric cells should not be written as text")
	}

	styleID, err := f.GetCellStyle("tlup", "B2")
	if err != nil {
		t.Fatal(err)
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		t.Fatal(err)
	}
	if len(style.Fill.Color) == 0 || !strings.HasSuffix(strings.ToUpper(style.Fill.Color[0]), "FFFF00") {
		t.Errorf("highlight fill = %+v", style.Fill)
	}

	plain, err := f.GetCellStyle("tlup", "A2")
	if err != nil {
		t.Fatal(err)
	}
	if plain == styleID {
		t.Error("non-highlight cells should not share the highlight style")
	}
}

func TestWriteTableXLSX_LongSheetName(t *testing.T) {
	tbl := &Table{Name: strings.Repeat("x", 40), Columns: []string{"A"}}

	var buf bytes.Buffer
	if err := WriteTableXLSX(&buf, tbl, ""); err != nil {
		t.Fatalf("WriteTableXLSX failed: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets[0]) != maxSheetNameLen {
		t.Errorf("sheet name %q should be truncated to %d characters", sheets[0], maxSheetNameLen)
	}
}

func TestMarshalSiteLocationsCSV(t *testing.T) {
	data, err := MarshalSiteLocationsCSV(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "index,Name,Latitude,Longitude\n" {
		t.Errorf("empty output = %q", data)
	}

	data, err = MarshalSiteLocationsCSV([]SiteLocation{{Index: 2, Name: "A1094", Latitude: 42.5, Longitude: -70.25}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "2,A1094,42.5,-70.25") {
		t.Errorf("output = %q", data)
	}
}

func TestSiteLocationsFromTable(t *testing.T) {
	locations, err := SiteLocationsFromTable(surveyTables()[TableLocations], "Name")
	if err != nil {
		t.Fatal(err)
	}
	if len(locations) != 2 {
		t.Fatalf("expected rows with coordinates only, got %d", len(locations))
	}
	if locations[1].Index != 1 || locations[1].Popup() != "1: B200" {
		t.Errorf("second location = %+v", locations[1])
	}

	_, err = SiteLocationsFromTable(&Table{Columns: []string{"Name"}}, "Name")
	if err == nil {
		t.Error("expected an error for a table without coordinates")
	}
}

func TestGenerateSitePDFReport(t *testing.T) {
	d, _ := newTestDashboard(t, newMemSource(surveyTables()))

	data, err := GenerateSitePDFReport(context.Background(), d, "A1094")
	if err != nil {
		t.Fatalf("GenerateSitePDFReport failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}

func TestGenerateSitePDFReport_LoadError(t *testing.T) {
	src := newMemSource(surveyTables())
	src.setErr(TableATLUPSummary, context.DeadlineExceeded)
	d, _ := newTestDashboard(t, src)

	if _, err := GenerateSitePDFReport(context.Background(), d, "A1094"); err == nil {
		t.Error("expected the load error")
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much longer text", 10, "much lo..."},
		{"tiny", 2, "tiny"},
	}
	for _, tc := range tests {
		if got := truncateString(tc.in, tc.max); got != tc.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
