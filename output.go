package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	maxPrintRows     = 50
	maxPrintCellText = 24
)

// PrintHeader prints the dashboard banner and the current selection
func PrintHeader(w io.Writer, config *Config, sel Selection) {
	title := strings.ToUpper(config.PageTitle + " - " + config.Title)
	rule := strings.Repeat("═", len([]rune(title))+4)
	fmt.Fprintln(w, "╔"+rule+"╗")
	fmt.Fprintln(w, "║  "+title+"  ║")
	fmt.Fprintln(w, "╚"+rule+"╝")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Site: %s | View: %s\n", sel.Site, sel.View)
	fmt.Fprintln(w)
}

// PrintPage writes a rendered page as plain text.
// Highlighted cells are wrapped in asterisks.
func PrintPage(w io.Writer, page *Page) {
	for _, b := range page.Blocks {
		switch b.Kind {
		case BlockHeading:
			fmt.Fprintln(w, b.Text)
			underline := "─"
			if b.Level == 1 {
				underline = "═"
			}
			fmt.Fprintln(w, strings.Repeat(underline, len([]rune(b.Text))))
		case BlockMarkdown:
			fmt.Fprintln(w, stripMarkdown(b.Text))
		case BlockTable:
			PrintTable(w, b.Table, maxPrintRows)
		case BlockMap:
			fmt.Fprintf(w, "Map centred on %.4f, %.4f (zoom %d), %d sites\n",
				b.Map.Latitude, b.Map.Longitude, b.Map.Zoom, len(b.Map.Markers))
			for _, m := range b.Map.Markers {
				fmt.Fprintf(w, "  %-24s %9.5f %10.5f\n", m.Popup, m.Latitude, m.Longitude)
			}
		case BlockImage:
			name := b.Image.Path
			if name == "" {
				name = b.Image.URL
			}
			fmt.Fprintf(w, "[image] %s", name)
			if b.Image.Size != "" {
				fmt.Fprintf(w, " (%s)", b.Image.Size)
			}
			fmt.Fprintln(w)
			if b.Image.Caption != "" {
				fmt.Fprintf(w, "        %s\n", b.Image.Caption)
			}
		case BlockError:
			fmt.Fprintf(w, "ERROR: %s\n", b.Text)
		}
		fmt.Fprintln(w)
	}
}

// PrintTable writes a table with aligned columns, showing at most maxRows rows
func PrintTable(w io.Writer, tv *TableView, maxRows int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := make([]string, 0, len(tv.Columns)+1)
	header = append(header, "")
	for _, col := range tv.Columns {
		header = append(header, truncateString(col, maxPrintCellText))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for r, row := range tv.Rows {
		if maxRows > 0 && r >= maxRows {
			break
		}
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, fmt.Sprint(r))
		for c, cell := range row {
			cell = truncateString(cell, maxPrintCellText)
			if c == tv.Highlight {
				cell = "*" + cell + "*"
			}
			cells = append(cells, cell)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	if maxRows > 0 && len(tv.Rows) > maxRows {
		fmt.Fprintf(w, "... %d more rows\n", len(tv.Rows)-maxRows)
	}
	fmt.Fprintf(w, "(%s rows)\n", tv.RowCount)
}

// stripMarkdown removes the emphasis markers and escapes used in page text
func stripMarkdown(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
