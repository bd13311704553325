package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestPrintPage_TLUP(t *testing.T) {
	d, config := newTestDashboard(t, newMemSource(surveyTables()))
	writeImages(t, config.Images.Dir, "x_y_A1094_1.jpg")

	page, err := d.Render(context.Background(), Selection{Site: "A1094", View: ViewTLUP})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	PrintHeader(&buf, config, page.Selection)
	PrintPage(&buf, page)
	out := buf.String()

	for _, want := range []string{
		"Site: A1094 | View: TLUP",
		"*0.83*",
		"*0.41*",
		"Range: 1 km",
		"x_y_A1094_1.jpg",
		"M2c data for A1094",
		"(2 rows)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "**A1094**") {
		t.Error("markdown emphasis should be stripped")
	}
}

func TestPrintPage_Error(t *testing.T) {
	page := &Page{Blocks: []Block{{Kind: BlockError, Text: "load table tlup: boom"}}}

	var buf bytes.Buffer
	PrintPage(&buf, page)
	if !strings.Contains(buf.String(), "ERROR: load table tlup: boom") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintTable_LimitsRows(t *testing.T) {
	tbl := &Table{Columns: []string{"N"}}
	for i := 0; i < 5; i++ {
		tbl.Rows = append(tbl.Rows, []any{int64(i)})
	}

	var buf bytes.Buffer
	PrintTable(&buf, NewTableView(tbl, "", 0, false), 3)
	out := buf.String()
	if !strings.Contains(out, "... 2 more rows") {
		t.Errorf("output = %q", out)
	}
	if strings.Count(out, "\n") != 6 {
		t.Errorf("expected header, 3 rows and 2 summary lines, got %q", out)
	}
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct{ in, want string }{
		{"**Locations**", "Locations"},
		{`**Site\_1**`, "Site_1"},
		{"plain text.", "plain text."},
		{`a\*b`, "a*b"},
	}
	for _, tc := range tests {
		if got := stripMarkdown(tc.in); got != tc.want {
			t.Errorf("stripMarkdown(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
