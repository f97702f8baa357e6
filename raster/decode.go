package raster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels bounds the canvas an uploaded picture may decode to.
const DefaultMaxPixels = 40_000_000

// PixelLimitError is returned when an image header declares more pixels
// than allowed. Nothing is decoded in that case.
type PixelLimitError struct {
	Width, Height int
	Max           int64
}

func (e *PixelLimitError) Error() string {
	return fmt.Sprintf("image is %dx%d pixels, above the limit of %d", e.Width, e.Height, e.Max)
}

// Decode decodes an uploaded picture in any registered format (png, jpeg,
// gif, webp, tiff, bmp) and reports the format name. The header is read
// first and images over maxPixels are refused; maxPixels <= 0 means
// DefaultMaxPixels.
func Decode(data []byte, maxPixels int64) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("decode image: empty input")
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, "", &PixelLimitError{Width: cfg.Width, Height: cfg.Height, Max: maxPixels}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}
