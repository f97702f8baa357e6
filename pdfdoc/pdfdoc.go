// Package pdfdoc opens PDF bytes as a document.Document. The text layer is
// read with ledongthuc/pdf; pages are rasterized with MuPDF through go-fitz,
// opened lazily the first time a page is rendered.
package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/wudi/resumetext/document"
	"github.com/wudi/resumetext/observability"
)

// PointsPerInch maps a render scale to MuPDF's DPI parameter.
const PointsPerInch = 72.0

// Loader opens PDF documents.
type Loader struct {
	Logger observability.Logger
}

// NewLoader returns a Loader logging to l (nil for none).
func NewLoader(l observability.Logger) *Loader {
	if l == nil {
		l = observability.NopLogger{}
	}
	return &Loader{Logger: l}
}

// Open parses data. With document.ForRendering only the MuPDF handle is
// created; otherwise only the text reader is, and MuPDF is opened on demand.
func (l *Loader) Open(ctx context.Context, data []byte, opts ...document.OpenOption) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("open pdf: empty input")
	}
	o := document.ApplyOpenOptions(opts...)
	d := &Document{data: data, logger: l.logger()}
	if o.Rendering {
		if err := d.openRenderer(); err != nil {
			return nil, err
		}
		d.pages = d.fitz.NumPage()
		return d, nil
	}
	r, err := openReader(data)
	if err != nil {
		return nil, classifyOpenError(err)
	}
	d.reader = r
	d.pages = r.NumPage()
	return d, nil
}

func (l *Loader) logger() observability.Logger {
	if l == nil || l.Logger == nil {
		return observability.NopLogger{}
	}
	return l.Logger
}

// Document is an opened PDF.
type Document struct {
	data   []byte
	logger observability.Logger
	pages  int
	reader *pdf.Reader

	mu      sync.Mutex
	fitz    *fitz.Document
	fitzErr error
	closed  bool
}

func (d *Document) PageCount() int { return d.pages }

// Page returns page n (1-based).
func (d *Document) Page(ctx context.Context, n int) (document.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 1 || n > d.pages {
		return nil, fmt.Errorf("page %d out of range [1,%d]", n, d.pages)
	}
	return &Page{doc: d, number: n}, nil
}

// Close releases the MuPDF handle if one was opened.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.reader = nil
	if d.fitz != nil {
		err := d.fitz.Close()
		d.fitz = nil
		return err
	}
	return nil
}

func (d *Document) openRenderer() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("document closed")
	}
	if d.fitz != nil || d.fitzErr != nil {
		return d.fitzErr
	}
	f, err := fitz.NewFromMemory(d.data)
	if err != nil {
		d.fitzErr = classifyOpenError(err)
		return d.fitzErr
	}
	d.fitz = f
	return nil
}

// Page is one page of a Document.
type Page struct {
	doc    *Document
	number int
}

func (p *Page) Number() int { return p.number }

// TextRuns returns the positioned glyph runs of the page.
func (p *Page) TextRuns(ctx context.Context) (runs []document.TextRun, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := p.doc.reader
	if r == nil {
		return nil, errors.New("text layer not loaded")
	}
	defer func() {
		if rec := recover(); rec != nil {
			runs = nil
			err = fmt.Errorf("read page %d content: %v", p.number, rec)
		}
	}()
	pg := r.Page(p.number)
	if pg.V.IsNull() {
		return nil, fmt.Errorf("page %d has no page object", p.number)
	}
	content := pg.Content()
	runs = make([]document.TextRun, 0, len(content.Text))
	for _, t := range content.Text {
		runs = append(runs, document.TextRun{
			Text:     t.S,
			Font:     t.Font,
			FontSize: t.FontSize,
			X:        t.X,
			Y:        t.Y,
			Width:    t.W,
		})
	}
	return runs, nil
}

// Render rasterizes the page at scale (1.0 = 72 DPI).
func (p *Page) Render(ctx context.Context, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid render scale %v", scale)
	}
	if err := p.doc.openRenderer(); err != nil {
		return nil, err
	}
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	if p.doc.fitz == nil {
		return nil, errors.New("document closed")
	}
	img, err := p.doc.fitz.ImageDPI(p.number-1, scale*PointsPerInch)
	if err != nil {
		return nil, fmt.Errorf("render page %d at %.1fx: %w", p.number, scale, err)
	}
	return img, nil
}

func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// classifyOpenError marks encryption failures with document.ErrPasswordRequired.
func classifyOpenError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pdf.ErrInvalidPassword) || errors.Is(err, fitz.ErrNeedsPassword) ||
		strings.Contains(strings.ToLower(err.Error()), "password") {
		return fmt.Errorf("open pdf: %w: %w", document.ErrPasswordRequired, err)
	}
	return fmt.Errorf("open pdf: %w", err)
}
