package ocr

import (
	"context"
	"time"
)

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
	ImageFormatTIFF ImageFormat = "image/tiff"
)

// Region describes a rectangular area in pixel coordinates with the origin in
// the upper-left corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input encapsulates a single image submitted for recognition.
type Input struct {
	// ID is echoed back in the corresponding Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type (e.g., image/png).
	Format ImageFormat
	// Page is the 1-based page ordinal the image was rendered from; zero for
	// standalone images.
	Page int
	// DPI carries the effective dots-per-inch for the image; zero means unknown.
	DPI int
	// Metadata passes engine-specific knobs (e.g. tesseract variables).
	Metadata map[string]string
}

// TextWord represents a single recognized token.
type TextWord struct {
	Text       string
	Bounds     Region
	Confidence float64
}

// Result captures recognition output for a single input image.
type Result struct {
	InputID   string
	PlainText string
	Words     []TextWord
	// Confidence is the mean word confidence in 0..1, zero when unknown.
	Confidence float64
	Language   string
	Duration   time.Duration
}

// Backend is a recognition engine instance bound to one language model. A
// Backend is not required to be safe for concurrent use; Worker serializes
// access to it.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
	Close() error
}

// Factory builds a Backend for the given language (e.g. "eng").
type Factory func(ctx context.Context, language string) (Backend, error)

// Progress reports recognition state for diagnostics only.
type Progress struct {
	Status   string
	InputID  string
	Fraction float64
}

// Recognition progress statuses.
const (
	StatusInitializing = "initializing engine"
	StatusRecognizing  = "recognizing text"
	StatusDone         = "done"
)

// ProgressFunc receives progress notifications. It must not block.
type ProgressFunc func(Progress)
