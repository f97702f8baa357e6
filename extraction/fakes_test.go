package extraction

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"

	"github.com/wudi/resumetext/document"
	"github.com/wudi/resumetext/observability"
	"github.com/wudi/resumetext/ocr"
)

// fakePage serves canned text runs and renders blank canvases.
type fakePage struct {
	doc        *fakeDoc
	number     int
	text       string
	textErr    error
	textPanic  string
	renderErrs map[float64]error
}

func (p *fakePage) Number() int { return p.number }

func (p *fakePage) TextRuns(ctx context.Context) ([]document.TextRun, error) {
	p.doc.mu.Lock()
	p.doc.textCalls[p.number]++
	p.doc.mu.Unlock()
	if p.textPanic != "" {
		panic(p.textPanic)
	}
	if p.textErr != nil {
		return nil, p.textErr
	}
	if p.text == "" {
		return nil, nil
	}
	return []document.TextRun{{Text: p.text, FontSize: 12, X: 72, Y: 720, Width: 300}}, nil
}

func (p *fakePage) Render(ctx context.Context, scale float64) (image.Image, error) {
	p.doc.mu.Lock()
	p.doc.renderCalls[p.number] = append(p.doc.renderCalls[p.number], scale)
	p.doc.mu.Unlock()
	if err := p.renderErrs[scale]; err != nil {
		return nil, err
	}
	size := int(10 * scale)
	return image.NewRGBA(image.Rect(0, 0, size, size)), nil
}

type fakeDoc struct {
	pages []*fakePage

	mu          sync.Mutex
	textCalls   map[int]int
	renderCalls map[int][]float64
	closed      int
}

func newFakeDoc(pages ...*fakePage) *fakeDoc {
	d := &fakeDoc{pages: pages, textCalls: map[int]int{}, renderCalls: map[int][]float64{}}
	for i, p := range pages {
		p.doc = d
		p.number = i + 1
	}
	return d
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) Page(ctx context.Context, n int) (document.Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, errors.New("page out of range")
	}
	return d.pages[n-1], nil
}

func (d *fakeDoc) Close() error {
	d.mu.Lock()
	d.closed++
	d.mu.Unlock()
	return nil
}

// fakeLoader opens the same fakeDoc for text and rendering, with optional
// failures for each.
type fakeLoader struct {
	doc        *fakeDoc
	openErr    error
	renderErr  error
	opens      int
	renderOpen int
}

func (l *fakeLoader) Open(ctx context.Context, data []byte, opts ...document.OpenOption) (document.Document, error) {
	if document.ApplyOpenOptions(opts...).Rendering {
		l.renderOpen++
		if l.renderErr != nil {
			return nil, l.renderErr
		}
		return l.doc, nil
	}
	l.opens++
	if l.openErr != nil {
		return nil, l.openErr
	}
	return l.doc, nil
}

// fakeBackend answers by input ID ("page-N" or "image").
type fakeBackend struct {
	mu     sync.Mutex
	texts  map[string]string
	errs   map[string]error
	inputs []ocr.Input
	closed int
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inputs = append(b.inputs, in)
	if err := b.errs[in.ID]; err != nil {
		return ocr.Result{}, err
	}
	return ocr.Result{PlainText: b.texts[in.ID]}, nil
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	b.closed++
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) recognizedIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.inputs))
	for _, in := range b.inputs {
		ids = append(ids, in.ID)
	}
	return ids
}

type harness struct {
	loader    *fakeLoader
	backend   *fakeBackend
	worker    *ocr.Worker
	factories int
	x         *Extractor
}

func newHarness(doc *fakeDoc, opts ...Option) *harness {
	h := &harness{
		loader:  &fakeLoader{doc: doc},
		backend: &fakeBackend{texts: map[string]string{}, errs: map[string]error{}},
	}
	var mu sync.Mutex
	h.worker = ocr.NewWorker(func(ctx context.Context, lang string) (ocr.Backend, error) {
		mu.Lock()
		h.factories++
		mu.Unlock()
		return h.backend, nil
	})
	h.x = New(h.loader, h.worker, opts...)
	return h
}

const resumeText = "Jane Doe, software engineer with experience in Go and distributed systems."

var ocrText = strings.Repeat("Recognized résumé line ", 2)

func blankImage() image.Image { return image.NewRGBA(image.Rect(0, 0, 4, 4)) }

// recordingTracer keeps the name and tags of every span it starts.
type recordingTracer struct {
	mu    sync.Mutex
	spans []*recordedSpan
}

type recordedSpan struct {
	name     string
	tags     map[string]interface{}
	err      error
	finished bool
}

func (t *recordingTracer) StartSpan(ctx context.Context, name string) (context.Context, observability.Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &recordedSpan{name: name, tags: map[string]interface{}{}}
	t.spans = append(t.spans, s)
	return ctx, s
}

func (t *recordingTracer) find(name string) *recordedSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.spans {
		if s.name == name {
			return s
		}
	}
	return nil
}

func (s *recordedSpan) SetTag(key string, value interface{}) { s.tags[key] = value }
func (s *recordedSpan) SetError(err error)                   { s.err = err }
func (s *recordedSpan) Finish()                              { s.finished = true }
