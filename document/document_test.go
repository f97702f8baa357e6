package document

import (
	"context"
	"testing"
)

func TestKindFromMIME(t *testing.T) {
	cases := map[string]Kind{
		"application/pdf":          KindPDF,
		"APPLICATION/PDF":          KindPDF,
		"image/png":                KindImage,
		"image/jpg":                KindImage,
		"image/jpeg; charset=x":    KindImage,
		"text/plain":               KindUnknown,
		"application/octet-stream": KindUnknown,
		"":                         KindUnknown,
	}
	for in, want := range cases {
		if got := KindFromMIME(in); got != want {
			t.Errorf("KindFromMIME(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestKindFromName(t *testing.T) {
	cases := map[string]Kind{
		"resume.pdf":   KindPDF,
		"Resume.PDF":   KindPDF,
		"scan.jpeg":    KindImage,
		"scan.JPG":     KindImage,
		"photo.png":    KindImage,
		"notes.docx":   KindUnknown,
		"no-extension": KindUnknown,
	}
	for in, want := range cases {
		if got := KindFromName(in); got != want {
			t.Errorf("KindFromName(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDetectKind(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	if got := DetectKind("", "", pdf); got != KindPDF {
		t.Fatalf("sniffed pdf = %v", got)
	}
	if got := DetectKind("application/octet-stream", "upload", png); got != KindImage {
		t.Fatalf("sniffed png = %v", got)
	}
	if got := DetectKind("", "cv.pdf", nil); got != KindPDF {
		t.Fatalf("extension = %v", got)
	}
	if got := DetectKind("image/png", "cv.pdf", pdf); got != KindImage {
		t.Fatalf("declared MIME should win, got %v", got)
	}
	if got := DetectKind("", "", []byte("hello world")); got != KindUnknown {
		t.Fatalf("plain text = %v", got)
	}
}

func TestParseKind(t *testing.T) {
	if ParseKind(" PDF ") != KindPDF || ParseKind("image") != KindImage || ParseKind("doc") != KindUnknown {
		t.Fatal("ParseKind mismatch")
	}
	if KindUnknown.Valid() || !KindPDF.Valid() {
		t.Fatal("Valid mismatch")
	}
	if KindUnknown.String() != "unknown" {
		t.Fatalf("String() = %q", KindUnknown.String())
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("resume"))
	if len(a) != 16 {
		t.Fatalf("fingerprint length %d", len(a))
	}
	if a != Fingerprint([]byte("resume")) {
		t.Fatal("fingerprint not stable")
	}
	if a == Fingerprint([]byte("resume2")) {
		t.Fatal("fingerprints should differ")
	}
}

func TestOpenOptions(t *testing.T) {
	if ApplyOpenOptions().Rendering {
		t.Fatal("rendering should default to false")
	}
	if !ApplyOpenOptions(nil, ForRendering()).Rendering {
		t.Fatal("ForRendering not applied")
	}
	var got OpenOptions
	l := LoaderFunc(func(ctx context.Context, data []byte, opts ...OpenOption) (Document, error) {
		got = ApplyOpenOptions(opts...)
		return nil, ErrPasswordRequired
	})
	if _, err := l.Open(context.Background(), nil, ForRendering()); err != ErrPasswordRequired {
		t.Fatalf("unexpected error %v", err)
	}
	if !got.Rendering {
		t.Fatal("LoaderFunc did not forward options")
	}
}
