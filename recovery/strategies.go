package recovery

import "github.com/wudi/resumetext/classify"

// StrictStrategy fails on every error except font failures while reading
// the text layer, which still move the document to OCR.
type StrictStrategy struct {
	Classifier classify.ErrorClassifier
}

// NewStrictStrategy returns a StrictStrategy using c, or the default font
// vocabulary when c is nil.
func NewStrictStrategy(c classify.ErrorClassifier) *StrictStrategy {
	if c == nil {
		c = classify.FontErrorClassifier{}
	}
	return &StrictStrategy{Classifier: c}
}

func (s *StrictStrategy) OnError(ctx Context, err error, location Location) Action {
	switch location.Stage {
	case StageOpen, StageNative, StageAggregate:
		if err != nil && s.Classifier != nil && s.Classifier.Classify(err) == classify.ClassFont {
			return ActionFallback
		}
	}
	return ActionFail
}

// FallbackStrategy routes font failures to OCR and tolerates per-page
// failures everywhere else.
type FallbackStrategy struct {
	Classifier classify.ErrorClassifier
}

// NewFallbackStrategy returns a FallbackStrategy using c, or the default font
// vocabulary when c is nil.
func NewFallbackStrategy(c classify.ErrorClassifier) *FallbackStrategy {
	if c == nil {
		c = classify.FontErrorClassifier{}
	}
	return &FallbackStrategy{Classifier: c}
}

func (s *FallbackStrategy) OnError(ctx Context, err error, location Location) Action {
	if err == nil {
		return ActionSkip
	}
	font := s.classifier().Classify(err) == classify.ClassFont
	switch location.Stage {
	case StageOpen, StageAggregate:
		if font {
			return ActionFallback
		}
		return ActionFail
	case StageNative:
		if font {
			return ActionFallback
		}
		return ActionSkip
	case StageRender, StageRecognize:
		return ActionSkip
	default:
		return ActionFail
	}
}

func (s *FallbackStrategy) classifier() classify.ErrorClassifier {
	if s.Classifier == nil {
		return classify.FontErrorClassifier{}
	}
	return s.Classifier
}
