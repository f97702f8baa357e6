// Package extraction turns an uploaded PDF or image into plain text. PDFs are
// read from their text layer first; when that fails on fonts, yields nothing,
// or yields garbage, every page is rasterized and recognized instead.
package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/wudi/resumetext/classify"
	"github.com/wudi/resumetext/document"
	"github.com/wudi/resumetext/extractor"
	"github.com/wudi/resumetext/observability"
	"github.com/wudi/resumetext/ocr"
	"github.com/wudi/resumetext/raster"
	"github.com/wudi/resumetext/recovery"
)

const (
	// DefaultMinNativeChars is the shortest native text accepted without OCR.
	DefaultMinNativeChars = 50
	// DefaultMinOCRChars is the shortest OCR text accepted for a PDF.
	DefaultMinOCRChars = 20
)

// Extractor runs extraction calls. It is safe for concurrent use; calls share
// the OCR worker and queue on it.
type Extractor struct {
	loader     document.Loader
	worker     *ocr.Worker
	text       *extractor.Extractor
	rasterizer *raster.Rasterizer
	classifier classify.ErrorClassifier
	strategy   recovery.Strategy
	logger     observability.Logger
	tracer     observability.Tracer

	minNativeChars int
	minOCRChars    int
	maxImageDim    int
	maxPixels      int64
	inputOpts      []ocr.InputOption
}

// Option configures an Extractor.
type Option func(*Extractor)

func WithLogger(l observability.Logger) Option {
	return func(x *Extractor) {
		if l != nil {
			x.logger = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(x *Extractor) {
		if t != nil {
			x.tracer = t
		}
	}
}

// WithRasterizer replaces the page rasterizer (and its scale policy).
func WithRasterizer(r *raster.Rasterizer) Option {
	return func(x *Extractor) {
		if r != nil {
			x.rasterizer = r
		}
	}
}

// WithClassifier swaps the font-error classifier used for routing.
func WithClassifier(c classify.ErrorClassifier) Option {
	return func(x *Extractor) {
		if c != nil {
			x.classifier = c
		}
	}
}

// WithStrategy overrides the error policy. By default a
// recovery.FallbackStrategy over the configured classifier is used.
func WithStrategy(s recovery.Strategy) Option {
	return func(x *Extractor) { x.strategy = s }
}

func WithMinNativeChars(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.minNativeChars = n
		}
	}
}

func WithMinOCRChars(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.minOCRChars = n
		}
	}
}

// WithMaxImageDimension downscales uploaded pictures whose longer edge
// exceeds n pixels before recognition.
func WithMaxImageDimension(n int) Option {
	return func(x *Extractor) { x.maxImageDim = n }
}

// WithMaxImagePixels refuses uploaded pictures whose header declares more
// than n pixels. The default is raster.DefaultMaxPixels.
func WithMaxImagePixels(n int64) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.maxPixels = n
		}
	}
}

// WithInputOptions applies opts to every image sent for recognition, e.g.
// ocr.WithPageSegMode.
func WithInputOptions(opts ...ocr.InputOption) Option {
	return func(x *Extractor) { x.inputOpts = append(x.inputOpts, opts...) }
}

// New returns an Extractor reading PDFs through loader and recognizing
// images with worker. The caller owns worker; Cleanup shuts it down.
func New(loader document.Loader, worker *ocr.Worker, opts ...Option) *Extractor {
	x := &Extractor{
		loader:         loader,
		worker:         worker,
		text:           extractor.New(),
		classifier:     classify.FontErrorClassifier{},
		logger:         observability.NopLogger{},
		tracer:         observability.NopTracer(),
		minNativeChars: DefaultMinNativeChars,
		minOCRChars:    DefaultMinOCRChars,
		maxPixels:      raster.DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.rasterizer == nil {
		x.rasterizer = raster.New(x.logger)
	}
	if x.strategy == nil {
		x.strategy = recovery.NewFallbackStrategy(x.classifier)
	}
	return x
}

// ExtractText is the kind-dispatching entry point returning only the text.
func (x *Extractor) ExtractText(ctx context.Context, data []byte, kind document.Kind) (string, error) {
	res, err := x.Extract(ctx, document.Source{Data: data, Kind: kind})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Extract recovers the text of src. Terminal failures are *Error values
// matching one of the Err* sentinels; context errors are returned as is.
func (x *Extractor) Extract(ctx context.Context, src document.Source) (res *Result, err error) {
	ctx, span := x.tracer.StartSpan(ctx, observability.SpanExtract)
	defer span.Finish()
	fingerprint := document.Fingerprint(src.Data)
	span.SetTag(observability.TagKind, src.Kind.String())
	span.SetTag(observability.TagFingerprint, fingerprint)

	log := x.logger.With(
		observability.String("kind", src.Kind.String()),
		observability.String("name", src.Name),
		observability.String("fingerprint", fingerprint),
	)
	start := time.Now()
	defer func() {
		if err != nil {
			span.SetError(err)
			log.Warn("extraction failed",
				observability.String("error_kind", string(KindOf(err))),
				observability.Error("error", err),
				observability.Duration("took", time.Since(start)),
			)
			return
		}
		span.SetTag(observability.TagMethod, string(res.Method))
		span.SetTag(observability.TagPageCount, res.Pages)
		span.SetTag(observability.TagTextLength, len(res.Text))
		if res.Fallback != FallbackNone {
			span.SetTag(observability.TagFallback, string(res.Fallback))
		}
		log.Info("extraction complete",
			observability.String("method", string(res.Method)),
			observability.String("fallback", string(res.Fallback)),
			observability.Int("pages", res.Pages),
			observability.Int("chars", runeLen(res.Text)),
			observability.Duration("took", time.Since(start)),
		)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch src.Kind {
	case document.KindPDF:
		return x.extractPDF(ctx, src.Data, log)
	case document.KindImage:
		return x.extractImage(ctx, src.Data, log)
	default:
		return nil, newError(ErrUnsupportedType, fmt.Errorf("kind %q", string(src.Kind)))
	}
}

// Cleanup releases the OCR backend. It is safe to call repeatedly; a later
// extraction starts a fresh backend.
func (x *Extractor) Cleanup() error {
	if x.worker == nil {
		return nil
	}
	return x.worker.Shutdown()
}

func (x *Extractor) onError(ctx context.Context, err error, stage recovery.Stage, page int) recovery.Action {
	return x.strategy.OnError(ctx, err, recovery.Location{Stage: stage, Page: page, Component: "extraction"})
}
