package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// WritePDF serialises a finalized document as PDF.
func WritePDF(doc *Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle(doc.productName+" Security Analysis Report", false)
	pdf.SetCreator(doc.productName, false)
	pdf.SetCreationDate(doc.generatedAt)

	// Core fonts use cp1252; the bullet glyph lives there.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range doc.pages {
		pdf.AddPage()
		for _, op := range page.Ops {
			switch o := op.(type) {
			case TextOp:
				pdf.SetFont(fontFamily, string(o.Style), o.Size)
				pdf.SetTextColor(int(o.Color.R), int(o.Color.G), int(o.Color.B))
				text := tr(o.Text)
				x := o.X
				switch o.Align {
				case AlignCenter:
					x -= pdf.GetStringWidth(text) / 2
				case AlignRight:
					x -= pdf.GetStringWidth(text)
				}
				pdf.Text(x, o.Y, text)

			case RectOp:
				style := ""
				if o.Fill != nil {
					pdf.SetFillColor(int(o.Fill.R), int(o.Fill.G), int(o.Fill.B))
					style += "F"
				}
				if o.Stroke != nil {
					pdf.SetDrawColor(int(o.Stroke.R), int(o.Stroke.G), int(o.Stroke.B))
					style += "D"
				}
				if style != "" {
					pdf.Rect(o.X, o.Y, o.W, o.H, style)
				}

			case ImageOp:
				opts := fpdf.ImageOptions{ImageType: "PNG"}
				pdf.RegisterImageOptionsReader(o.Name, opts, bytes.NewReader(o.Data))
				pdf.ImageOptions(o.Name, o.X, o.Y, o.W, o.H, false, opts, 0, "")
			}

			if err := pdf.Error(); err != nil {
				return fmt.Errorf("failed to render page %d: %w", page.Number, err)
			}
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// EncodePDF renders the whole document into memory so that nothing
// reaches a sink unless encoding succeeded.
func EncodePDF(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePDF(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
