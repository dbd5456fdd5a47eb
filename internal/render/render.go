// Package render fills the descargo template and renders it as a PDF.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

const descargoTemplate = `AL SR. JUEZ DE FALTAS:

En relación al acta de infracción, se presenta el siguiente descargo:

%s

Solicito el archivo de la causa.

Firma: ____________________

Fecha: ____________________`

// FillTemplate places body in the descargo template.
func FillTemplate(body string) string {
	return fmt.Sprintf(descargoTemplate, body)
}

// ToLatin1 encodes s as ISO-8859-1, replacing every rune the charset cannot
// represent with '?'. It never fails.
func ToLatin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		out = append(out, '?')
	}
	return out
}

// Renderer produces a document from a block of text.
type Renderer interface {
	Render(ctx context.Context, text string, w io.Writer) error
	// ContentType is the media type of rendered documents.
	ContentType() string
	// Extension is the file extension, without dot, appended to generated names.
	Extension() string
}

// Options configures the PDF renderer.
type Options struct {
	Compress bool
	Title    string
	// Now is used for the document creation date; defaults to time.Now.
	Now func() time.Time
}

// PDF renders single-column A4 documents with the Arial core font.
type PDF struct {
	opts Options
}

var _ Renderer = (*PDF)(nil)

// NewPDF returns a PDF renderer.
func NewPDF(opts Options) *PDF {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Title == "" {
		opts.Title = "Descargo"
	}
	return &PDF{opts: opts}
}

func (p *PDF) ContentType() string { return "application/pdf" }

func (p *PDF) Extension() string { return "pdf" }

// Render writes the whole document to w in a single call, so w only sees complete output.
func (p *PDF) Render(ctx context.Context, text string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(p.opts.Compress)
	now := p.opts.Now()
	doc.SetCreationDate(now)
	doc.SetModificationDate(now)
	doc.SetTitle(p.opts.Title, true)
	doc.SetCreator("impugnaya", true)
	doc.AddPage()
	doc.SetFont("Arial", "", 12)

	// Core fonts use a single-byte encoding; Latin-1 bytes map onto it unchanged.
	doc.MultiCell(0, 10, string(ToLatin1(text)), "", "", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Descargo fills the template with body and renders it.
func Descargo(ctx context.Context, r Renderer, body string, w io.Writer) error {
	return r.Render(ctx, FillTemplate(strings.TrimSpace(body)), w)
}
