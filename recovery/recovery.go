// Package recovery decides how the extraction pipeline reacts to a failure at
// a given point.
package recovery

import "fmt"

type Strategy interface {
	OnError(ctx Context, err error, location Location) Action
}

// Stage names where in the pipeline an error surfaced.
type Stage string

const (
	StageOpen      Stage = "open"
	StageNative    Stage = "native"
	StageAggregate Stage = "aggregate"
	StageRender    Stage = "render"
	StageRecognize Stage = "recognize"
)

type Location struct {
	Stage Stage
	// Page is 1-based; zero when the error is not tied to a page.
	Page      int
	Component string
}

func (l Location) String() string {
	if l.Page > 0 {
		return fmt.Sprintf("%s page %d", l.Stage, l.Page)
	}
	return string(l.Stage)
}

type Action int

const (
	// ActionFail ends the call with an error.
	ActionFail Action = iota
	// ActionSkip drops the failing page and continues.
	ActionSkip
	// ActionFallback abandons native extraction in favour of OCR.
	ActionFallback
)

func (a Action) String() string {
	switch a {
	case ActionFail:
		return "fail"
	case ActionSkip:
		return "skip"
	case ActionFallback:
		return "fallback"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

type Context interface{ Done() <-chan struct{} }
