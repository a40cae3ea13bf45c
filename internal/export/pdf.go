package export

import (
	"context"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/gotabular/internal/table"
)

// PDF renders the table on landscape A4 pages with the header repeated on
// every page. Cell text that does not fit its column is cut with "...".
type PDF struct {
	W  io.Writer
	NA string
}

const (
	pdfLineHeight = 6.0
	pdfFontSize   = 9.0
)

func (p PDF) Export(_ context.Context, name string, t *table.Typed) error {
	na := p.NA
	if na == "" {
		na = DefaultNA
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", pdfFontSize)
	pdf.SetAutoPageBreak(false, 10)

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	usable := pageW - left - right
	colW := usable
	if len(t.Columns) > 0 {
		colW = usable / float64(len(t.Columns))
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		for _, c := range t.Columns {
			pdf.CellFormat(colW, pdfLineHeight, fit(pdf, tr, c.Name, colW), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", pdfFontSize)
	header()
	for _, row := range t.Rows {
		if pdf.GetY()+pdfLineHeight > pageH-bottom {
			pdf.AddPage()
			header()
		}
		for i, v := range row {
			align := "L"
			if t.Columns[i].Type == table.TypeInteger || t.Columns[i].Type == table.TypeReal {
				align = "R"
			}
			pdf.CellFormat(colW, pdfLineHeight, fit(pdf, tr, cellText(v, na), colW), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(p.W)
}

// fit translates s for the core fonts and shortens it until it fits width w
// with a little padding.
func fit(pdf *gofpdf.Fpdf, tr func(string) string, s string, w float64) string {
	const pad = 2.0
	if out := tr(s); pdf.GetStringWidth(out) <= w-pad {
		return out
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(tr(string(r)+"...")) > w-pad {
		r = r[:len(r)-1]
	}
	return tr(string(r) + "...")
}
