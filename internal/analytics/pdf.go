package analytics

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

const (
	pageWidth  = 180.0 // A4 minus 15mm margins
	rowHeight  = 8.0
	labelWidth = 70.0
)

// PDF writes the analytics report as a one-page A4 document with the same
// sections as [Summary.Report].
func (s Summary) PDF(w io.Writer, guidance string) error {
	return s.pdfDocument(guidance).Output(w)
}

func (s Summary) pdfDocument(guidance string) *fpdf.Fpdf {
	now := domain.Now()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.SetTitle("Air Quality Analytics Report", false)
	doc.SetCreator("Air Quality Analytics System", false)
	doc.SetCreationDate(now)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(pageWidth, 12, "Air Quality Analytics Report", "", 1, "C", false, 0, "")
	doc.Ln(4)

	pdfHeading(doc, "Summary")
	doc.SetFont("Helvetica", "", 11)
	for _, row := range s.summaryRows(now) {
		doc.SetFillColor(240, 240, 240)
		doc.CellFormat(labelWidth, rowHeight, row[0], "1", 0, "L", true, 0, "")
		fill := false
		if row[0] == "Predicted AQI Category" {
			if r, g, b, ok := hexColor(s.Color); ok {
				doc.SetFillColor(r, g, b)
				fill = true
			}
		}
		doc.CellFormat(pageWidth-labelWidth, rowHeight, tr(row[1]), "1", 1, "L", fill, 0, "")
	}
	doc.Ln(4)

	pdfHeading(doc, "Key Performance Indicators")
	pdfTable(doc, tr, s.kpiRows(), []float64{60, 60, 60})

	pdfHeading(doc, "Pollutant Breakdown")
	pdfTable(doc, tr, s.breakdownRows(), []float64{120, 60})

	pdfHeading(doc, "Classification Method")
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(pageWidth, 5, classificationMethod, "", "L", false)
	doc.Ln(4)

	if guidance = strings.TrimSpace(guidance); guidance != "" {
		pdfHeading(doc, "Advice")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(pageWidth, 5, tr(guidance), "", "L", false)
		doc.Ln(4)
	}

	doc.SetFont("Helvetica", "I", 8)
	doc.SetTextColor(110, 110, 110)
	doc.CellFormat(pageWidth, 6,
		fmt.Sprintf("Generated by Air Quality Analytics System on %s", now.Format(generatedLayout)),
		"", 1, "C", false, 0, "")
	return doc
}

func pdfHeading(doc *fpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 13)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(pageWidth, 9, title, "", 1, "L", false, 0, "")
}

// pdfTable draws rows with the first row as a shaded header.
func pdfTable(doc *fpdf.Fpdf, tr func(string) string, rows [][]string, widths []float64) {
	for i, row := range rows {
		if i == 0 {
			doc.SetFont("Helvetica", "B", 11)
			doc.SetFillColor(200, 200, 200)
		} else {
			doc.SetFont("Helvetica", "", 11)
		}
		for j, cell := range row {
			ln := 0
			if j == len(row)-1 {
				ln = 1
			}
			doc.CellFormat(widths[j], rowHeight, tr(cell), "1", ln, "C", i == 0, 0, "")
		}
	}
	doc.Ln(4)
}

// hexColor parses "#RRGGBB".
func hexColor(s string) (r, g, b int, ok bool) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, false
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0, false
	}
	return r, g, b, true
}
