package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// renderPDF writes the title and one block of "campo: valor" lines per record, with page numbers.
func renderPDF(data exportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252
	pdf.SetTitle(data.title, true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(data.title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, tr(data.subtitle), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr("Generado: "+data.generatedAt.Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	if len(data.records) == 0 {
		pdf.SetFont("Arial", "I", 12)
		pdf.CellFormat(0, 10, tr(emptyMessage), "", 1, "C", false, 0, "")
	}

	for i, rec := range data.records {
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(229, 231, 235)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("Registro %d", i+1)), "", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, fld := range rec {
			pdf.MultiCell(0, 5, tr(fld.Name+": "+fld.Value), "", "L", false)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
