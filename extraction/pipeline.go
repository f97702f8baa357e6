package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wudi/resumetext/classify"
	"github.com/wudi/resumetext/document"
	"github.com/wudi/resumetext/extractor"
	"github.com/wudi/resumetext/observability"
	"github.com/wudi/resumetext/recovery"
)

type state int

const (
	stateStart state = iota
	stateNativeAttempt
	stateSuccess
	stateFontFallback
	stateEmptyFallback
	stateCorruptFallback
	stateOCRAttempt
	stateDone
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateNativeAttempt:
		return "native_attempt"
	case stateSuccess:
		return "success"
	case stateFontFallback:
		return "font_fallback"
	case stateEmptyFallback:
		return "empty_fallback"
	case stateCorruptFallback:
		return "corrupt_fallback"
	case stateOCRAttempt:
		return "ocr_attempt"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// pageOutcome is the typed result of one page attempt.
type pageOutcome struct {
	attempt Attempt
	text    string
	err     error
	action  recovery.Action
}

// pdfRun carries the state of one PDF extraction through the state loop.
type pdfRun struct {
	x    *Extractor
	data []byte
	log  observability.Logger

	doc      document.Document
	pages    int
	text     string
	fallback Fallback
	result   *Result
}

func (x *Extractor) extractPDF(ctx context.Context, data []byte, log observability.Logger) (*Result, error) {
	run := &pdfRun{x: x, data: data, log: log}
	defer run.closeNative()

	st := stateStart
	for st != stateDone {
		next, err := run.step(ctx, st)
		if err != nil {
			return nil, err
		}
		log.Debug("extraction state", observability.String("from", st.String()), observability.String("to", next.String()))
		st = next
	}
	return run.result, nil
}

func (r *pdfRun) step(ctx context.Context, st state) (state, error) {
	switch st {
	case stateStart:
		return r.open(ctx)
	case stateNativeAttempt:
		return r.nativePhase(ctx)
	case stateSuccess:
		r.result = &Result{Text: r.text, Method: MethodNative, Pages: r.pages}
		return stateDone, nil
	case stateFontFallback:
		r.fallback = FallbackFont
		return stateOCRAttempt, nil
	case stateEmptyFallback:
		r.fallback = FallbackEmpty
		return stateOCRAttempt, nil
	case stateCorruptFallback:
		r.fallback = FallbackCorrupt
		return stateOCRAttempt, nil
	case stateOCRAttempt:
		// The text-layer handle is not needed while rendering.
		r.closeNative()
		res, err := r.x.ocrDocument(ctx, r.data, r.log.With(observability.String("fallback", string(r.fallback))))
		if err != nil {
			return stateDone, err
		}
		res.Fallback = r.fallback
		r.result = res
		return stateDone, nil
	default:
		return stateDone, fmt.Errorf("unexpected extraction state %s", st)
	}
}

func (r *pdfRun) open(ctx context.Context) (state, error) {
	doc, err := r.x.loader.Open(ctx, r.data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stateDone, ctxErr
		}
		if errors.Is(err, document.ErrPasswordRequired) {
			return stateDone, newError(ErrPasswordProtected, err)
		}
		if r.x.onError(ctx, err, recovery.StageOpen, 0) == recovery.ActionFallback {
			r.log.Info("document open failed on fonts, using OCR", observability.Error("error", err))
			return stateFontFallback, nil
		}
		return stateDone, newError(ErrInvalidDocument, err)
	}
	r.doc = doc
	r.pages = doc.PageCount()
	return stateNativeAttempt, nil
}

// nativePhase reads the text layer of every page under its own span.
func (r *pdfRun) nativePhase(ctx context.Context) (state, error) {
	ctx, span := r.x.tracer.StartSpan(ctx, observability.SpanNative)
	defer span.Finish()
	span.SetTag(observability.TagPageCount, r.pages)
	next, err := r.nativeAttempt(ctx)
	if err != nil {
		span.SetError(err)
	}
	span.SetTag(observability.TagNativeOutcome, next.String())
	return next, err
}

func (r *pdfRun) nativeAttempt(ctx context.Context) (next state, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		perr := fmt.Errorf("native extraction: %v", rec)
		if r.x.onError(ctx, perr, recovery.StageAggregate, 0) == recovery.ActionFallback {
			r.log.Warn("native extraction aborted on fonts, using OCR", observability.Error("error", perr))
			next, err = stateFontFallback, nil
			return
		}
		next, err = stateDone, newError(ErrInvalidDocument, perr)
	}()

	texts := make([]string, 0, r.pages)
	for n := 1; n <= r.pages; n++ {
		if err := ctx.Err(); err != nil {
			return stateDone, err
		}
		out := r.nativePage(ctx, n)
		r.log.Debug("page attempt", out.attempt.fields()...)
		switch out.attempt.Outcome {
		case OutcomeText:
			texts = append(texts, out.text)
		case OutcomeEmpty:
		case OutcomeError:
			if err := ctx.Err(); err != nil {
				return stateDone, err
			}
			switch out.action {
			case recovery.ActionFallback:
				// Pages after n are never read natively.
				r.log.Info("font error during native extraction, using OCR",
					observability.Int("page", n),
					observability.Error("error", out.err),
				)
				return stateFontFallback, nil
			case recovery.ActionSkip:
				r.log.Warn("skipping page", observability.Int("page", n), observability.Error("error", out.err))
			default:
				return stateDone, newError(ErrInvalidDocument, out.err)
			}
		}
	}

	if len(texts) == 0 {
		return stateEmptyFallback, nil
	}
	text := strings.TrimSpace(strings.Join(texts, "\n"))
	if runeLen(text) < r.x.minNativeChars || !classify.IsReadable(text) {
		r.log.Info("native text looks corrupted, using OCR",
			observability.Int("chars", runeLen(text)),
			observability.Float64("alnum_ratio", classify.AlphanumericRatio(text)),
		)
		return stateCorruptFallback, nil
	}
	r.text = text
	return stateSuccess, nil
}

func (r *pdfRun) nativePage(ctx context.Context, n int) pageOutcome {
	attempt := Attempt{Page: n, Strategy: MethodNative, ErrorClass: classify.ClassNone}
	page, err := r.doc.Page(ctx, n)
	var text string
	if err == nil {
		text, err = r.x.text.PageText(ctx, page)
	} else {
		err = &extractor.PageExtractionError{Page: n, Err: err}
	}
	if err != nil {
		attempt.Outcome = OutcomeError
		attempt.ErrorClass = r.x.classifier.Classify(err)
		return pageOutcome{
			attempt: attempt,
			err:     err,
			action:  r.x.onError(ctx, err, recovery.StageNative, n),
		}
	}
	if text == "" {
		attempt.Outcome = OutcomeEmpty
		return pageOutcome{attempt: attempt}
	}
	attempt.Outcome = OutcomeText
	return pageOutcome{attempt: attempt, text: text}
}

func (r *pdfRun) closeNative() {
	if r.doc == nil {
		return
	}
	if err := r.doc.Close(); err != nil {
		r.log.Debug("close document", observability.Error("error", err))
	}
	r.doc = nil
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
