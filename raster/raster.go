// Package raster turns document pages and uploaded pictures into opaque
// images ready for recognition.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"

	"github.com/wudi/resumetext/document"
	"github.com/wudi/resumetext/observability"
)

// ScalePolicy is the ordered list of render scales tried for a page.
type ScalePolicy []float64

// DefaultScalePolicy renders at 2x first and retries once at 1x.
var DefaultScalePolicy = ScalePolicy{2.0, 1.0}

// Attempt records one failed render.
type Attempt struct {
	Scale float64
	Err   error
}

// RenderError is returned when every scale in the policy failed.
type RenderError struct {
	Page     int
	Attempts []Attempt
}

func (e *RenderError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%.1fx: %v", a.Scale, a.Err))
	}
	return fmt.Sprintf("render page %d failed (%s)", e.Page, strings.Join(parts, "; "))
}

// Unwrap exposes the individual attempt errors to errors.Is/As.
func (e *RenderError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Rasterizer renders pages with a retry policy.
type Rasterizer struct {
	Policy ScalePolicy
	// MaxDimension caps the longer edge of the output; zero disables it.
	MaxDimension int
	Logger       observability.Logger
}

// New returns a Rasterizer with the default policy.
func New(l observability.Logger) *Rasterizer {
	return &Rasterizer{Policy: DefaultScalePolicy, Logger: l}
}

// Rasterize renders page at each policy scale in turn and returns the first
// success composited over white, along with the scale that worked.
func (r *Rasterizer) Rasterize(ctx context.Context, page document.Page) (*image.RGBA, float64, error) {
	policy := r.Policy
	if len(policy) == 0 {
		policy = DefaultScalePolicy
	}
	rerr := &RenderError{Page: page.Number()}
	for _, scale := range policy {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		img, err := page.Render(ctx, scale)
		if err == nil && img == nil {
			err = errors.New("renderer returned no image")
		}
		if err == nil && img.Bounds().Empty() {
			err = errors.New("renderer returned an empty image")
		}
		if err != nil {
			rerr.Attempts = append(rerr.Attempts, Attempt{Scale: scale, Err: err})
			r.logger().Debug("page render failed",
				observability.Int("page", page.Number()),
				observability.Float64("scale", scale),
				observability.Error("error", err),
			)
			continue
		}
		return Flatten(img, r.MaxDimension), scale, nil
	}
	return nil, 0, rerr
}

func (r *Rasterizer) logger() observability.Logger {
	if r.Logger == nil {
		return observability.NopLogger{}
	}
	return r.Logger
}

// Flatten composites src over an opaque white canvas so transparent regions
// read as paper. When maxDim > 0 the result is downscaled to fit; src is
// scaled straight into the output canvas.
func Flatten(src image.Image, maxDim int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim > 0 && (w > maxDim || h > maxDim) {
		w, h = fit(w, h, maxDim)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func fit(w, h, maxDim int) (int, int) {
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
