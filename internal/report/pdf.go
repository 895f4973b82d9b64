package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// The core PDF fonts are cp1252; fold the Serbian letters it lacks.
var cp1252Fold = strings.NewReplacer(
	"č", "c", "ć", "c", "Č", "C", "Ć", "C",
	"đ", "dj", "Đ", "Dj",
)

// WritePDF renders the document as a single-column A4 PDF.
func (d Document) WritePDF(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Fixed metadata so the same report always produces the same file.
	stamp := time.Date(d.Month.Year, d.Month.Month, 1, 0, 0, 0, 0, time.UTC)
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(d.Title, true)
	pdf.SetAutoPageBreak(true, 15)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(cp1252Fold.Replace(s)) }

	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 20)
	pdf.CellFormat(0, 12, text(d.Title), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 16)
	pdf.MultiCell(0, 8, text(d.Income), "", "L", false)
	pdf.MultiCell(0, 8, text(d.Expense), "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "U", 14)
	pdf.CellFormat(0, 8, text(transactionsHeading), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	for _, l := range d.Lines {
		pdf.MultiCell(0, 7, text(l), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
