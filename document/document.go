// Package document defines the input model of an extraction call and the
// paged-document contracts the pipeline reads from.
package document

import (
	"context"
	"errors"
	"image"
)

// ErrPasswordRequired is returned by Loader.Open when the document is
// encrypted and cannot be read without a password.
var ErrPasswordRequired = errors.New("document: password required")

// Source is one uploaded document. It is not modified during extraction.
type Source struct {
	Data []byte
	Kind Kind
	// Name is the original file name, used only for logging.
	Name string
}

// TextRun is one positioned piece of text as laid out on a page. Coordinates
// are in PDF user space (points, origin bottom-left).
type TextRun struct {
	Text     string
	Font     string
	FontSize float64
	X, Y     float64
	// Width is the horizontal advance of the run; zero when unknown.
	Width float64
}

// Page is a single page of an opened document.
type Page interface {
	// Number is the 1-based page ordinal.
	Number() int
	// TextRuns returns the page's text runs in content-stream order.
	TextRuns(ctx context.Context) ([]TextRun, error)
	// Render rasterizes the page with 1 unit of user space mapped to scale
	// pixels.
	Render(ctx context.Context, scale float64) (image.Image, error)
}

// Document is an opened paged document. Close releases native resources.
type Document interface {
	PageCount() int
	// Page returns page n, 1-based.
	Page(ctx context.Context, n int) (Page, error)
	Close() error
}

// Loader opens paged documents from raw bytes.
type Loader interface {
	Open(ctx context.Context, data []byte, opts ...OpenOption) (Document, error)
}

// OpenOptions collects the options passed to Loader.Open.
type OpenOptions struct {
	// Rendering asks for a document whose pages can be rasterized. Loaders may
	// skip text-layer setup when set.
	Rendering bool
}

// OpenOption mutates OpenOptions.
type OpenOption func(*OpenOptions)

// ForRendering requests a document opened for rasterization.
func ForRendering() OpenOption {
	return func(o *OpenOptions) { o.Rendering = true }
}

// ApplyOpenOptions folds opts into an OpenOptions value.
func ApplyOpenOptions(opts ...OpenOption) OpenOptions {
	var o OpenOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, data []byte, opts ...OpenOption) (Document, error)

func (f LoaderFunc) Open(ctx context.Context, data []byte, opts ...OpenOption) (Document, error) {
	return f(ctx, data, opts...)
}
