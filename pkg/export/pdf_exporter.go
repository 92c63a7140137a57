package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Document is a titled PDF made of sections of label/value rows.
type Document struct {
	Title    string
	Subtitle []string
	Notes    string
	Sections []Section
}

// Section is a headed block of rows. Rows with an empty Value still render.
type Section struct {
	Heading string
	Rows    []Row
}

// Row is one line inside a section.
type Row struct {
	Label string
	Value string
	Note  string
}

// PDFExporter renders documents into A4 portrait PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF bytes for doc.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	for _, line := range doc.Subtitle {
		pdf.CellFormat(0, 6, tr(line), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if doc.Notes != "" {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 6, "Notes", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(doc.Notes), "", "", false)
		pdf.Ln(3)
	}

	const labelWidth, valueWidth = 40.0, 100.0
	for _, section := range doc.Sections {
		pdf.SetFont("Arial", "B", 13)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(0, 8, tr(section.Heading), "", 1, "", true, 0, "")
		pdf.Ln(1)

		if len(section.Rows) == 0 {
			pdf.SetFont("Arial", "I", 10)
			pdf.CellFormat(0, 6, "No players assigned", "", 1, "", false, 0, "")
		}
		for _, row := range section.Rows {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(labelWidth, 7, tr(row.Label), "B", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(valueWidth, 7, tr(row.Value), "B", 0, "", false, 0, "")
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 7, tr(row.Note), "B", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
