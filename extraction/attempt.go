package extraction

import (
	"github.com/wudi/resumetext/classify"
	"github.com/wudi/resumetext/observability"
)

// Method is the strategy that produced a result.
type Method string

const (
	MethodNative Method = "native"
	MethodOCR    Method = "ocr"
)

// Outcome of a single page attempt.
type Outcome int

const (
	OutcomeText Outcome = iota
	OutcomeEmpty
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeText:
		return "text"
	case OutcomeEmpty:
		return "empty"
	default:
		return "error"
	}
}

// Attempt describes what happened to one page under one strategy. Attempts
// only drive control flow and logging.
type Attempt struct {
	Page       int
	Strategy   Method
	Outcome    Outcome
	ErrorClass classify.ErrorClass
}

func (a Attempt) fields() []observability.Field {
	return []observability.Field{
		observability.Int("page", a.Page),
		observability.String("strategy", string(a.Strategy)),
		observability.String("outcome", a.Outcome.String()),
		observability.String("error_class", a.ErrorClass.String()),
	}
}

// Fallback names why native extraction was abandoned.
type Fallback string

const (
	FallbackNone    Fallback = ""
	FallbackFont    Fallback = "font"
	FallbackEmpty   Fallback = "empty"
	FallbackCorrupt Fallback = "corrupt"
)

// Result is the text recovered from one document.
type Result struct {
	Text     string
	Method   Method
	Pages    int
	Fallback Fallback
}
