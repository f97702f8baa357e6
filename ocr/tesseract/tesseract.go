// Package tesseract provides an ocr.Backend backed by the Tesseract engine
// through gosseract.
package tesseract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/resumetext/ocr"
)

// Options tunes the engine instances built by Factory.
type Options struct {
	// TessdataPrefix points at the directory holding *.traineddata models.
	// Empty uses the library default (TESSDATA_PREFIX).
	TessdataPrefix string
}

// Engine is a long-lived Tesseract client bound to one language. It is not
// safe for concurrent use; ocr.Worker serializes calls.
type Engine struct {
	client   *gosseract.Client
	language string
	// keys set from the previous input's Metadata
	sticky map[string]bool
}

// variableDefaults restores per-input variables that a later input omits.
var variableDefaults = map[string]string{
	"user_defined_dpi":        "0",
	"tessedit_pageseg_mode":   "6",
	"tessedit_char_whitelist": "",
}

// Factory returns an ocr.Factory that builds Engines with opts.
func Factory(opts Options) ocr.Factory {
	return func(ctx context.Context, language string) (ocr.Backend, error) {
		return New(ctx, language, opts)
	}
}

// New starts a Tesseract client for language. Multiple models may be joined
// with "+" (e.g. "eng+fra").
func New(ctx context.Context, language string, opts Options) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if language == "" {
		language = ocr.DefaultLanguage
	}
	c := gosseract.NewClient()
	if opts.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			c.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(strings.Split(language, "+")...); err != nil {
		c.Close()
		return nil, fmt.Errorf("set language %s: %w", language, err)
	}
	return &Engine{client: c, language: language}, nil
}

func (e *Engine) Name() string { return "tesseract" }

// Version reports the linked Tesseract version.
func (e *Engine) Version() string { return e.client.Version() }

// Recognize performs OCR on a single image input. The DPI and the variables
// carried in in.Metadata (see ocr.WithPageSegMode) apply to this input only.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	if len(in.Image) == 0 {
		return ocr.Result{}, fmt.Errorf("empty image payload")
	}
	c := e.client
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	for k, v := range variablesFor(in, e.sticky) {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Result{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	e.sticky = make(map[string]bool, len(in.Metadata))
	for k := range in.Metadata {
		e.sticky[k] = true
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}

	words, avgConf := extractWords(c)
	return ocr.Result{
		InputID:    in.ID,
		PlainText:  strings.TrimSpace(text),
		Words:      words,
		Confidence: avgConf,
		Language:   e.language,
	}, nil
}

// Close releases the underlying Tesseract API handle.
func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

func extractWords(c *gosseract.Client) ([]ocr.TextWord, float64) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}
	words := make([]ocr.TextWord, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		conf := b.Confidence / 100.0
		sum += conf
		words = append(words, ocr.TextWord{
			Text:       b.Word,
			Bounds:     ocr.Region{X: float64(b.Box.Min.X), Y: float64(b.Box.Min.Y), Width: float64(b.Box.Dx()), Height: float64(b.Box.Dy())},
			Confidence: conf,
		})
	}
	if len(words) == 0 {
		return nil, 0
	}
	return words, sum / float64(len(words))
}

// variablesFor returns the tesseract variables to set before recognizing in.
// Keys left over from the previous input are reset to their defaults.
func variablesFor(in ocr.Input, previous map[string]bool) map[string]string {
	vars := map[string]string{"user_defined_dpi": variableDefaults["user_defined_dpi"]}
	if in.DPI > 0 {
		vars["user_defined_dpi"] = strconv.Itoa(in.DPI)
	}
	for k := range previous {
		if _, ok := in.Metadata[k]; ok {
			continue
		}
		if d, ok := variableDefaults[k]; ok {
			vars[k] = d
		}
	}
	for k, v := range in.Metadata {
		vars[k] = v
	}
	return vars
}
