package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFRenderer renders recaps into a tabular PDF. Recaps with more than
// six columns are laid out in landscape so attendance and subscription
// tables stay readable.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render creates a PDF document with a title banner, a generation
// timestamp and the recap table.
func (r *PDFRenderer) Render(recap Recap, generatedAt time.Time) ([]byte, error) {
	if len(recap.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}

	orientation := "P"
	pageWidth := 190.0
	if len(recap.Headers) > 6 {
		orientation = "L"
		pageWidth = 277.0
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if recap.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(recap.Title), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, "Dibuat "+generatedAt.Format("2 January 2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	colWidth := pageWidth / float64(len(recap.Headers))

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(51, 153, 219)
	pdf.SetTextColor(255, 255, 255)
	for _, header := range recap.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range recap.Rows {
		for i := range recap.Headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
