package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// InputOption mutates an OCR input.
type InputOption func(*Input)

// WithID overrides the generated input identifier.
func WithID(id string) InputOption {
	return func(in *Input) { in.ID = id }
}

// WithDPI overrides the DPI value on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithMetadata sets provider-specific metadata for the input.
func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			in.Metadata = nil
			return
		}
		if in.Metadata == nil {
			in.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			in.Metadata[k] = v
		}
	}
}

// InputFromImage encodes img as PNG and wraps it into an OCR input. The
// generated ID is stable for the page ordinal so log lines and results can
// be correlated.
func InputFromImage(img image.Image, page int, opts ...InputOption) (Input, error) {
	if img == nil {
		return Input{}, fmt.Errorf("nil image for page %d", page)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Input{}, fmt.Errorf("encode page %d: %w", page, err)
	}
	in := Input{
		ID:     inputID(page),
		Image:  buf.Bytes(),
		Format: ImageFormatPNG,
		Page:   page,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}

func inputID(page int) string {
	if page <= 0 {
		return "image"
	}
	return fmt.Sprintf("page-%d", page)
}
