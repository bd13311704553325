package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Page geometry (A4 landscape, mm)
const (
	pageWidth    = 297.0
	marginLeft   = 12.0
	marginRight  = 12.0
	marginTop    = 12.0
	marginBottom = 14.0
	contentWidth = pageWidth - marginLeft - marginRight

	maxPDFColumns  = 14
	minColumnWidth = 14.0
	pdfImageWidth  = 140.0
)

// PDFSiteReport renders every view of one site into a PDF
type PDFSiteReport struct {
	pdf  *fpdf.Fpdf
	tr   func(string) string
	d    *Dashboard
	site string
}

// GenerateSitePDFReport creates a PDF with the TLUP and ATLUP rows of a site
// followed by the site's survey images
func GenerateSitePDFReport(ctx context.Context, d *Dashboard, site string) ([]byte, error) {
	report := &PDFSiteReport{
		pdf:  fpdf.New("L", "mm", "A4", ""),
		d:    d,
		site: site,
	}
	report.tr = report.pdf.UnicodeTranslatorFromDescriptor("")

	report.pdf.SetMargins(marginLeft, marginTop, marginRight)
	report.pdf.SetAutoPageBreak(true, marginBottom)
	report.pdf.SetTitle(d.config.PageTitle+": "+site, true)
	report.pdf.SetFooterFunc(report.footer)

	report.addTitlePage()

	for _, view := range []View{ViewTLUP, ViewATLUPSummary, ViewATLUPStrength, ViewATLUPQuality} {
		if err := report.addViewSection(ctx, view); err != nil {
			return nil, err
		}
	}

	if err := report.addImages(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := report.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *PDFSiteReport) addTitlePage() {
	r.pdf.AddPage()

	r.pdf.SetFont("Arial", "B", 28)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.Ln(40)
	r.pdf.CellFormat(contentWidth, 15, r.tr(r.d.config.Title), "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "", 18)
	r.pdf.SetTextColor(80, 80, 80)
	r.pdf.Ln(6)
	r.pdf.CellFormat(contentWidth, 10, r.tr("Site "+r.site), "", 1, "C", false, 0, "")

	if r.d.config.Subtitle != "" {
		r.pdf.SetFont("Arial", "", 12)
		r.pdf.Ln(6)
		r.pdf.CellFormat(contentWidth, 8, r.tr(r.d.config.Subtitle), "", 1, "C", false, 0, "")
	}

	r.pdf.SetFont("Arial", "I", 11)
	r.pdf.Ln(12)
	r.pdf.CellFormat(contentWidth, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2 January 2006")), "", 1, "C", false, 0, "")
}

// addViewSection writes the filtered rows of the view's table
func (r *PDFSiteReport) addViewSection(ctx context.Context, view View) error {
	name := TableTLUP
	if av, ok := atlupViews[view]; ok {
		name = av.table
	}

	t, err := r.d.Table(ctx, name)
	if err != nil {
		return err
	}
	spec, _ := r.d.tables.Spec(name)
	filtered, err := t.Filter(spec.Key, r.site)
	if err != nil {
		return err
	}

	r.pdf.AddPage()
	r.drawSectionHeader(string(view))
	r.pdf.SetFont("Arial", "", 10)
	r.pdf.SetTextColor(80, 80, 80)
	r.pdf.CellFormat(contentWidth, 6, fmt.Sprintf("%d of %d rows match %s", filtered.Len(), t.Len(), r.site), "", 1, "L", false, 0, "")
	r.pdf.Ln(2)

	r.drawTable(filtered, spec.Highlight)
	return nil
}

// drawTable draws a table, splitting wide tables into column chunks
func (r *PDFSiteReport) drawTable(t *Table, highlight string) {
	if len(t.Columns) == 0 {
		return
	}
	rows := t.StringRows()
	hl := -1
	if highlight != "" {
		hl = t.ColumnIndex(highlight)
	}

	for start := 0; start < len(t.Columns); start += maxPDFColumns {
		end := start + maxPDFColumns
		if end > len(t.Columns) {
			end = len(t.Columns)
		}
		n := end - start
		width := contentWidth / float64(n)
		if width < minColumnWidth {
			width = minColumnWidth
		}
		maxChars := int(width / 1.7)

		widths := make([]float64, n)
		headers := make([]string, n)
		for i := range widths {
			widths[i] = width
			headers[i] = truncateString(t.Columns[start+i], maxChars)
		}
		r.drawTableHeader(headers, widths)

		if len(rows) == 0 {
			r.pdf.SetFont("Arial", "I", 9)
			r.pdf.SetTextColor(120, 120, 120)
			r.pdf.CellFormat(width*float64(n), 5, "No rows for this site", "1", 1, "C", false, 0, "")
		}
		for _, row := range rows {
			cells := make([]string, n)
			for i := range cells {
				cells[i] = truncateString(row[start+i], maxChars)
			}
			r.drawTableRow(cells, widths, hl-start)
		}
		r.pdf.Ln(4)
	}
}

// addImages adds one image per page section with its range heading
func (r *PDFSiteReport) addImages() error {
	images, err := r.d.Images().Locate(r.site)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}

	r.pdf.AddPage()
	r.drawSectionHeader("Survey Images")
	for i, img := range images {
		if !pdfImageSupported(img.Path) {
			continue
		}
		if i > 0 {
			r.pdf.AddPage()
		}
		r.pdf.SetFont("Arial", "B", 13)
		r.pdf.SetTextColor(0, 51, 102)
		r.pdf.CellFormat(contentWidth, 8, r.tr("Range: "+img.RangeToken+" km"), "", 1, "L", false, 0, "")
		r.pdf.ImageOptions(img.Path, marginLeft, r.pdf.GetY()+2, pdfImageWidth, 0, true,
			fpdf.ImageOptions{ReadDpi: true}, 0, "")
		r.pdf.SetFont("Arial", "I", 9)
		r.pdf.SetTextColor(120, 120, 120)
		r.pdf.CellFormat(contentWidth, 6, r.tr(r.d.config.ImageCaption(r.site)), "", 1, "L", false, 0, "")
	}
	return r.pdf.Error()
}

// pdfImageSupported reports whether fpdf can embed the file
func pdfImageSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif":
	default:
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func (r *PDFSiteReport) footer() {
	r.pdf.SetY(-10)
	r.pdf.SetFont("Arial", "I", 8)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.CellFormat(contentWidth/2, 5, r.tr(r.d.config.PageTitle+" - "+r.site), "", 0, "L", false, 0, "")
	r.pdf.CellFormat(contentWidth/2, 5, fmt.Sprintf("Page %d", r.pdf.PageNo()), "", 0, "R", false, 0, "")
}

// Helper functions

func (r *PDFSiteReport) drawSectionHeader(title string) {
	r.pdf.SetFont("Arial", "B", 16)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 10, r.tr(title), "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(5)
}

func (r *PDFSiteReport) drawTableHeader(headers []string, widths []float64) {
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Arial", "B", 8)

	for i, header := range headers {
		r.pdf.CellFormat(widths[i], 6, r.tr(header), "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)
}

// drawTableRow draws one row; the cell at highlight (if in range) is filled yellow
func (r *PDFSiteReport) drawTableRow(cells []string, widths []float64, highlight int) {
	r.pdf.SetTextColor(50, 50, 50)
	r.pdf.SetFont("Arial", "", 8)

	for i, cell := range cells {
		if i == highlight {
			r.pdf.SetFillColor(255, 255, 0)
		} else {
			r.pdf.SetFillColor(250, 250, 250)
		}
		align := "R"
		if i == 0 {
			align = "L"
		}
		r.pdf.CellFormat(widths[i], 5, r.tr(cell), "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}

func truncateString(s string, maxLen int) string {
	if maxLen < 4 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
