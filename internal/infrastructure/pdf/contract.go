// Package pdf renders stored contracts as A4 documents.
package pdf

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Document is the printable content of a contract.
type Document struct {
	Number   string
	Title    string
	Body     string
	IssuedAt time.Time
	Issuer   string
}

// Renderer writes documents as PDF.
type Renderer struct {
	font string
}

func NewRenderer() *Renderer {
	return &Renderer{font: "Helvetica"}
}

// Render writes doc to w. Lines of the body starting with "# " are set as
// section headings; blank lines separate paragraphs.
func (r *Renderer) Render(w io.Writer, doc Document) error {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetTitle(doc.Title, true)
	p.SetAuthor(doc.Issuer, true)
	p.SetMargins(20, 20, 20)
	p.SetAutoPageBreak(true, 20)
	tr := p.UnicodeTranslatorFromDescriptor("")

	p.SetFooterFunc(func() {
		p.SetY(-15)
		p.SetFont(r.font, "I", 8)
		p.CellFormat(0, 10, tr(fmt.Sprintf("%s  |  página %d/{nb}", doc.Number, p.PageNo())), "", 0, "C", false, 0, "")
	})
	p.AliasNbPages("")
	p.AddPage()

	p.SetFont(r.font, "B", 16)
	p.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	p.SetFont(r.font, "", 9)
	issued := doc.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	p.CellFormat(0, 6, tr(fmt.Sprintf("Contrato nº %s  -  emitido em %s", doc.Number, issued.Format("02/01/2006"))), "", 1, "C", false, 0, "")
	p.Ln(6)

	for _, block := range strings.Split(strings.ReplaceAll(doc.Body, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if strings.HasPrefix(block, "# ") {
			p.SetFont(r.font, "B", 12)
			p.MultiCell(0, 7, tr(strings.TrimPrefix(block, "# ")), "", "L", false)
			p.Ln(1)
			continue
		}
		p.SetFont(r.font, "", 10)
		p.MultiCell(0, 5, tr(block), "", "J", false)
		p.Ln(3)
	}

	if err := p.Error(); err != nil {
		return fmt.Errorf("failed to render contract %s: %w", doc.Number, err)
	}
	return p.Output(w)
}
