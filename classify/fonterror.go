package classify

import "strings"

// ErrorClass buckets a failure for routing decisions.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassFont
	ClassOther
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassFont:
		return "font"
	case ClassOther:
		return "other"
	default:
		return "unknown"
	}
}

// ErrorClassifier decides which class an error belongs to.
type ErrorClassifier interface {
	Classify(err error) ErrorClass
}

// FontTerms are the message fragments that mark a font or glyph decoding
// failure. Matching is case-insensitive.
var FontTerms = []string{
	"font",
	"offset mismatch",
	"fontinfo",
	"glyph",
	"cmap",
	"cidfontype",
	"formaterror",
	"missingdata",
}

// FontErrorClassifier matches error messages against FontTerms plus Extra.
type FontErrorClassifier struct {
	Extra []string
}

// NewFontErrorClassifier returns a classifier that also matches extra terms.
func NewFontErrorClassifier(extra ...string) FontErrorClassifier {
	terms := make([]string, 0, len(extra))
	for _, t := range extra {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, strings.ToLower(t))
		}
	}
	return FontErrorClassifier{Extra: terms}
}

func (c FontErrorClassifier) Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	msg := strings.ToLower(err.Error())
	for _, t := range FontTerms {
		if strings.Contains(msg, t) {
			return ClassFont
		}
	}
	for _, t := range c.Extra {
		if strings.Contains(msg, strings.ToLower(t)) {
			return ClassFont
		}
	}
	return ClassOther
}

// IsFontError reports whether err is classified as a font failure by the
// default vocabulary.
func IsFontError(err error) bool {
	return FontErrorClassifier{}.Classify(err) == ClassFont
}
