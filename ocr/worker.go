package ocr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/wudi/resumetext/observability"
)

// DefaultLanguage is the language model loaded when none is configured.
const DefaultLanguage = "eng"

// Error wraps any failure raised while preparing or running recognition.
type Error struct {
	Op      string // "init" or "recognize"
	InputID string
	Err     error
}

func (e *Error) Error() string {
	if e.InputID != "" {
		return fmt.Sprintf("ocr %s %s: %v", e.Op, e.InputID, e.Err)
	}
	return fmt.Sprintf("ocr %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithLanguage selects the language model the backend is built for.
func WithLanguage(lang string) WorkerOption {
	return func(w *Worker) {
		if lang != "" {
			w.language = lang
		}
	}
}

// WithProgress installs a diagnostic progress callback.
func WithProgress(fn ProgressFunc) WorkerOption {
	return func(w *Worker) { w.progress = fn }
}

// WithLogger sets the worker logger.
func WithLogger(l observability.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// Worker owns a single recognition backend. The backend is created lazily on
// the first Recognize call and reused until Shutdown. At most one recognition
// runs at a time; concurrent callers queue.
type Worker struct {
	factory  Factory
	language string
	progress ProgressFunc
	logger   observability.Logger

	sem     *semaphore.Weighted
	mu      sync.Mutex
	backend Backend
	created int
}

// NewWorker returns a Worker that builds its backend with factory.
func NewWorker(factory Factory, opts ...WorkerOption) *Worker {
	w := &Worker{
		factory:  factory,
		language: DefaultLanguage,
		logger:   observability.NopLogger{},
		sem:      semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Language reports the configured language model.
func (w *Worker) Language() string { return w.language }

// Active reports whether a backend is currently held.
func (w *Worker) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.backend != nil
}

// Recognize runs recognition on in. Failures are returned as *Error without
// retry.
func (w *Worker) Recognize(ctx context.Context, in Input) (Result, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return Result{}, &Error{Op: "recognize", InputID: in.ID, Err: err}
	}
	defer w.sem.Release(1)

	backend, err := w.acquire(ctx)
	if err != nil {
		return Result{}, &Error{Op: "init", InputID: in.ID, Err: err}
	}

	w.report(Progress{Status: StatusRecognizing, InputID: in.ID})
	start := time.Now()
	res, err := backend.Recognize(ctx, in)
	if err != nil {
		return Result{}, &Error{Op: "recognize", InputID: in.ID, Err: err}
	}
	if res.InputID == "" {
		res.InputID = in.ID
	}
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	w.report(Progress{Status: StatusDone, InputID: in.ID, Fraction: 1})
	w.logger.Debug("ocr recognized",
		observability.String("input", in.ID),
		observability.Int("chars", len(res.PlainText)),
		observability.Float64("confidence", res.Confidence),
		observability.Duration("took", res.Duration),
	)
	return res, nil
}

func (w *Worker) acquire(ctx context.Context) (Backend, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.backend != nil {
		return w.backend, nil
	}
	if w.factory == nil {
		return nil, errors.New("no recognition backend configured")
	}
	w.report(Progress{Status: StatusInitializing})
	b, err := w.factory(ctx, w.language)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.New("factory returned nil backend")
	}
	w.backend = b
	w.created++
	w.logger.Info("ocr backend started",
		observability.String("engine", b.Name()),
		observability.String("language", w.language),
	)
	return b, nil
}

// Shutdown releases the backend. It is safe to call repeatedly and when no
// backend was ever created. A later Recognize builds a fresh backend.
func (w *Worker) Shutdown() error {
	w.mu.Lock()
	b := w.backend
	w.backend = nil
	w.mu.Unlock()
	if b == nil {
		return nil
	}
	// Wait for an in-flight recognition before closing the engine under it.
	if err := w.sem.Acquire(context.Background(), 1); err == nil {
		defer w.sem.Release(1)
	}
	if err := b.Close(); err != nil {
		return fmt.Errorf("close %s backend: %w", b.Name(), err)
	}
	w.logger.Info("ocr backend stopped", observability.String("engine", b.Name()))
	return nil
}

func (w *Worker) report(p Progress) {
	if w.progress != nil {
		w.progress(p)
	}
}
