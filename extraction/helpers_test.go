package extraction

import (
	"bytes"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, blankImage()); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}
