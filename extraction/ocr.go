package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wudi/resumetext/classify"
	"github.com/wudi/resumetext/document"
	"github.com/wudi/resumetext/extractor"
	"github.com/wudi/resumetext/observability"
	"github.com/wudi/resumetext/ocr"
	"github.com/wudi/resumetext/raster"
	"github.com/wudi/resumetext/recovery"
)

var errNoWorker = errors.New("no OCR worker configured")

// ocrDocument rasterizes and recognizes every page of a PDF. Page failures
// contribute no text.
func (x *Extractor) ocrDocument(ctx context.Context, data []byte, log observability.Logger) (*Result, error) {
	ctx, span := x.tracer.StartSpan(ctx, observability.SpanOCR)
	defer span.Finish()

	doc, err := x.loader.Open(ctx, data, document.ForRendering())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, document.ErrPasswordRequired) {
			return nil, newError(ErrPasswordProtected, err)
		}
		return nil, newError(ErrUnreadableDocument, err)
	}
	defer doc.Close()

	pages := doc.PageCount()
	texts := make([]string, 0, pages)
	var empty int
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := x.ocrPage(ctx, doc, n)
		log.Debug("page attempt", out.attempt.fields()...)
		switch out.attempt.Outcome {
		case OutcomeText:
			texts = append(texts, out.text)
		case OutcomeEmpty:
			empty++
		case OutcomeError:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if out.action == recovery.ActionFail {
				return nil, newError(ErrUnreadableDocument, out.err)
			}
			log.Warn("ocr page failed", observability.Int("page", n), observability.Error("error", out.err))
		}
	}
	span.SetTag(observability.TagOCRPagesEmpty, empty)

	text := strings.TrimSpace(strings.Join(texts, "\n"))
	if n := runeLen(text); n < x.minOCRChars {
		return nil, newError(ErrUnreadableDocument, fmt.Errorf("ocr recovered %d characters from %d pages", n, pages))
	}
	return &Result{Text: text, Method: MethodOCR, Pages: pages}, nil
}

func (x *Extractor) ocrPage(ctx context.Context, doc document.Document, n int) pageOutcome {
	attempt := Attempt{Page: n, Strategy: MethodOCR, ErrorClass: classify.ClassNone}
	fail := func(stage recovery.Stage, err error) pageOutcome {
		attempt.Outcome = OutcomeError
		attempt.ErrorClass = x.classifier.Classify(err)
		return pageOutcome{attempt: attempt, err: err, action: x.onError(ctx, err, stage, n)}
	}

	page, err := doc.Page(ctx, n)
	if err != nil {
		return fail(recovery.StageRender, err)
	}
	img, scale, err := x.rasterizer.Rasterize(ctx, page)
	if err != nil {
		return fail(recovery.StageRender, err)
	}
	in, err := ocr.InputFromImage(img, n, x.inputOptions(ocr.WithDPI(int(scale*72)))...)
	if err != nil {
		return fail(recovery.StageRender, err)
	}
	text, err := x.recognize(ctx, in)
	if err != nil {
		return fail(recovery.StageRecognize, err)
	}
	if text == "" {
		attempt.Outcome = OutcomeEmpty
		return pageOutcome{attempt: attempt}
	}
	attempt.Outcome = OutcomeText
	return pageOutcome{attempt: attempt, text: text}
}

// extractImage recognizes a standalone picture.
func (x *Extractor) extractImage(ctx context.Context, data []byte, log observability.Logger) (*Result, error) {
	ctx, span := x.tracer.StartSpan(ctx, observability.SpanOCR)
	defer span.Finish()

	img, format, err := raster.Decode(data, x.maxPixels)
	if err != nil {
		return nil, newError(ErrImageExtraction, err)
	}
	flat := raster.Flatten(img, x.maxImageDim)
	in, err := ocr.InputFromImage(flat, 0, x.inputOptions()...)
	if err != nil {
		return nil, newError(ErrImageExtraction, err)
	}
	log.Debug("recognizing image",
		observability.String("format", format),
		observability.Int("width", flat.Bounds().Dx()),
		observability.Int("height", flat.Bounds().Dy()),
	)
	text, err := x.recognize(ctx, in)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newError(ErrImageExtraction, err)
	}
	if text == "" {
		return nil, newError(ErrNoTextInImage, nil)
	}
	return &Result{Text: text, Method: MethodOCR, Pages: 1}, nil
}

func (x *Extractor) inputOptions(extra ...ocr.InputOption) []ocr.InputOption {
	opts := make([]ocr.InputOption, 0, len(x.inputOpts)+len(extra))
	opts = append(opts, x.inputOpts...)
	return append(opts, extra...)
}

// recognize runs the worker and returns whitespace-collapsed text.
func (x *Extractor) recognize(ctx context.Context, in ocr.Input) (string, error) {
	if x.worker == nil {
		return "", &ocr.Error{Op: "recognize", InputID: in.ID, Err: errNoWorker}
	}
	res, err := x.worker.Recognize(ctx, in)
	if err != nil {
		return "", err
	}
	return extractor.Normalize(res.PlainText), nil
}
