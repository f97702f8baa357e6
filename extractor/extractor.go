// Package extractor reads the native text layer of document pages.
package extractor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/wudi/resumetext/document"
)

// DefaultWordSpacing is the gap, as a fraction of the font size, above which
// two runs on the same baseline are treated as separate words.
const DefaultWordSpacing = 0.15

// PageExtractionError reports a failure to read one page's text.
type PageExtractionError struct {
	Page int
	Err  error
}

func (e *PageExtractionError) Error() string {
	return fmt.Sprintf("extract text from page %d: %v", e.Page, e.Err)
}

func (e *PageExtractionError) Unwrap() error { return e.Err }

// Extractor turns positioned text runs into normalized page text.
type Extractor struct {
	WordSpacing float64
}

// New returns an Extractor with default spacing.
func New() *Extractor {
	return &Extractor{WordSpacing: DefaultWordSpacing}
}

// PageText returns the page's text with glyph runs merged into words,
// NFKC-normalized and whitespace-collapsed. An empty string with a nil error
// means the page has no text layer.
func (e *Extractor) PageText(ctx context.Context, page document.Page) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	runs, err := page.TextRuns(ctx)
	if err != nil {
		return "", &PageExtractionError{Page: page.Number(), Err: err}
	}
	return Normalize(e.Join(runs)), nil
}

// Join concatenates runs in order, inserting a space between words on a line
// and a newline when the baseline changes.
func (e *Extractor) Join(runs []document.TextRun) string {
	spacing := e.WordSpacing
	if spacing <= 0 {
		spacing = DefaultWordSpacing
	}
	var sb strings.Builder
	var prev *document.TextRun
	for i := range runs {
		r := &runs[i]
		if r.Text == "" {
			continue
		}
		if prev != nil {
			switch sep := separator(prev, r, spacing); {
			case sep == '\n':
				sb.WriteByte('\n')
			case sep == ' ' && !endsWithSpace(prev.Text) && !startsWithSpace(r.Text):
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(r.Text)
		prev = r
	}
	return sb.String()
}

func separator(prev, cur *document.TextRun, spacing float64) byte {
	size := math.Max(prev.FontSize, cur.FontSize)
	if size <= 0 {
		size = 1
	}
	if math.Abs(cur.Y-prev.Y) > size*0.5 {
		return '\n'
	}
	gap := cur.X - (prev.X + prev.Width)
	if gap > size*spacing || gap < -size {
		return ' '
	}
	return 0
}

func endsWithSpace(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsSpace(r)
}

// Normalize applies NFKC (folding ligatures such as "ﬁ"), collapses every
// whitespace run to a single space and trims.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFKC.String(text)), " ")
}
