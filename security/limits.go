package security

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wudi/resumetext/document"
)

// Limits defines the boundaries applied to uploads before extraction starts.
type Limits struct {
	// Maximum PDF upload size in bytes. Default: 10 MiB.
	MaxPDFSize int64

	// Maximum image upload size in bytes. Default: 5 MiB.
	MaxImageSize int64

	// Accepted MIME types, lower case.
	AcceptedTypes []string

	// Longer edge, in pixels, above which uploaded images are downscaled
	// before recognition. Zero disables downscaling. Default: 4000.
	MaxImageDimension int

	// Pixel count above which an uploaded image is refused without being
	// decoded. Default: 40 million.
	MaxImagePixels int64

	// Maximum wall time for one extraction call. Default: 2m.
	MaxExtractTime time.Duration
}

// DefaultLimits returns a Limits struct with safe default values.
func DefaultLimits() Limits {
	return Limits{
		MaxPDFSize:        10 * 1024 * 1024, // 10 MiB
		MaxImageSize:      5 * 1024 * 1024,  // 5 MiB
		AcceptedTypes:     []string{"application/pdf", "image/png", "image/jpeg", "image/jpg"},
		MaxImageDimension: 4000,
		MaxImagePixels:    40_000_000,
		MaxExtractTime:    2 * time.Minute,
	}
}

// Rejection reasons.
const (
	ReasonMissing = "missing"
	ReasonType    = "type"
	ReasonSize    = "size"
	ReasonEmpty   = "empty"
)

// ValidationError explains why an upload was refused. Message is shown to
// end users.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Accepts reports whether mime is an accepted upload type.
func (l Limits) Accepts(mime string) bool {
	mime = normalizeMIME(mime)
	for _, t := range l.AcceptedTypes {
		if strings.EqualFold(t, mime) {
			return true
		}
	}
	return false
}

// MaxSize returns the size cap for mime.
func (l Limits) MaxSize(mime string) int64 {
	if document.KindFromMIME(mime) == document.KindPDF {
		return l.MaxPDFSize
	}
	return l.MaxImageSize
}

// Check validates an upload of size bytes declared as mime. The type is
// checked first, then the size cap, then emptiness.
func (l Limits) Check(mime string, size int64) error {
	if size < 0 {
		return &ValidationError{Reason: ReasonMissing, Message: "No file selected"}
	}
	if !l.Accepts(mime) {
		return &ValidationError{
			Reason:  ReasonType,
			Message: "Unsupported file format. Please upload a PDF, PNG, JPG, or JPEG file.",
		}
	}
	if max := l.MaxSize(mime); max > 0 && size > max {
		return &ValidationError{
			Reason:  ReasonSize,
			Message: fmt.Sprintf("File size exceeds the maximum limit of %s. Please upload a smaller file.", limitLabel(max)),
		}
	}
	if size == 0 {
		return &ValidationError{
			Reason:  ReasonEmpty,
			Message: "The file appears to be empty. Please select a valid file.",
		}
	}
	return nil
}

// FormatSize renders a byte count with a binary unit, e.g. "1.5 KB".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}

// limitLabel writes a cap without the unit space, e.g. "10MB".
func limitLabel(bytes int64) string {
	return strings.Replace(FormatSize(bytes), " ", "", 1)
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}
