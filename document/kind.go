package document

import (
	"net/http"
	"path/filepath"
	"strings"
)

// Kind is the broad class of an uploaded document.
type Kind string

const (
	KindUnknown Kind = ""
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
)

func (k Kind) String() string {
	if k == KindUnknown {
		return "unknown"
	}
	return string(k)
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool { return k == KindPDF || k == KindImage }

// ParseKind maps "pdf" and "image" (any case) to a Kind.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return KindPDF
	case "image", "img":
		return KindImage
	default:
		return KindUnknown
	}
}

// KindFromMIME classifies a MIME type, ignoring parameters.
func KindFromMIME(mime string) Kind {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case mime == "application/pdf":
		return KindPDF
	case strings.HasPrefix(mime, "image/"):
		return KindImage
	default:
		return KindUnknown
	}
}

// KindFromName classifies a file name by extension.
func KindFromName(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".tif", ".tiff", ".bmp":
		return KindImage
	default:
		return KindUnknown
	}
}

// SniffMIME returns the MIME type detected from the leading bytes of data.
func SniffMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime
}

// DetectKind classifies an upload from its declared MIME type, its name and
// finally its content. The first source that yields a known kind wins.
func DetectKind(declaredMIME, name string, data []byte) Kind {
	if k := KindFromMIME(declaredMIME); k != KindUnknown {
		return k
	}
	if k := KindFromName(name); k != KindUnknown {
		return k
	}
	if len(data) == 0 {
		return KindUnknown
	}
	return KindFromMIME(SniffMIME(data))
}
