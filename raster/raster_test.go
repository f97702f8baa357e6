package raster

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/wudi/resumetext/document"
)

type fakePage struct {
	number int
	fail   map[float64]error
	calls  []float64
}

func (p *fakePage) Number() int { return p.number }

func (p *fakePage) TextRuns(ctx context.Context) ([]document.TextRun, error) { return nil, nil }

func (p *fakePage) Render(ctx context.Context, scale float64) (image.Image, error) {
	p.calls = append(p.calls, scale)
	if err := p.fail[scale]; err != nil {
		return nil, err
	}
	size := int(100 * scale)
	// Transparent canvas; Flatten must turn it white.
	return image.NewNRGBA(image.Rect(0, 0, size, size)), nil
}

func TestRasterizeFirstScale(t *testing.T) {
	p := &fakePage{number: 1}
	img, scale, err := New(nil).Rasterize(context.Background(), p)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if scale != 2 || len(p.calls) != 1 {
		t.Fatalf("scale = %v, calls = %v", scale, p.calls)
	}
	if img.Bounds().Dx() != 200 {
		t.Fatalf("width = %d, want 200", img.Bounds().Dx())
	}
	r, g, b, a := img.At(10, 10).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff || a != 0xffff {
		t.Fatalf("pixel not white: %v %v %v %v", r, g, b, a)
	}
}

func TestRasterizeRetriesLowerScale(t *testing.T) {
	p := &fakePage{number: 3, fail: map[float64]error{2: errors.New("out of memory")}}
	img, scale, err := New(nil).Rasterize(context.Background(), p)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if scale != 1 || img.Bounds().Dx() != 100 {
		t.Fatalf("scale = %v, width = %d", scale, img.Bounds().Dx())
	}
	if len(p.calls) != 2 || p.calls[0] != 2 || p.calls[1] != 1 {
		t.Fatalf("calls = %v", p.calls)
	}
}

func TestRasterizeAllFail(t *testing.T) {
	oom := errors.New("out of memory")
	p := &fakePage{number: 4, fail: map[float64]error{2: oom, 1: errors.New("bad stream")}}
	_, _, err := New(nil).Rasterize(context.Background(), p)
	var rerr *RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RenderError, got %v", err)
	}
	if rerr.Page != 4 || len(rerr.Attempts) != 2 {
		t.Fatalf("unexpected render error %+v", rerr)
	}
	if !errors.Is(err, oom) {
		t.Fatal("attempt errors should be reachable with errors.Is")
	}
	if !strings.Contains(err.Error(), "2.0x") || !strings.Contains(err.Error(), "1.0x") {
		t.Fatalf("message should list attempts: %q", err.Error())
	}
}

func TestRasterizeCustomPolicy(t *testing.T) {
	p := &fakePage{number: 1}
	r := &Rasterizer{Policy: ScalePolicy{3}}
	if _, scale, err := r.Rasterize(context.Background(), p); err != nil || scale != 3 {
		t.Fatalf("scale = %v, err = %v", scale, err)
	}
}

func TestRasterizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakePage{number: 1}
	if _, _, err := New(nil).Rasterize(ctx, p); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(p.calls) != 0 {
		t.Fatal("no render should run after cancel")
	}
}

func TestFlattenDownscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	out := Flatten(src, 100)
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 50 {
		t.Fatalf("downscaled to %v", out.Bounds())
	}
	tall := Flatten(image.NewRGBA(image.Rect(0, 0, 10, 1000)), 100)
	if tall.Bounds().Dx() != 1 || tall.Bounds().Dy() != 100 {
		t.Fatalf("tall image scaled to %v", tall.Bounds())
	}
	same := Flatten(src, 0)
	if same.Bounds().Dx() != 400 {
		t.Fatalf("maxDim 0 changed size: %v", same.Bounds())
	}
}

func TestFlattenKeepsOpaqueInk(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 15, 15))
	src.Set(5, 5, color.Black)
	out := Flatten(src, 0)
	if out.Bounds().Min != (image.Point{}) {
		t.Fatalf("output should be re-based at origin: %v", out.Bounds())
	}
	if r, _, _, _ := out.At(0, 0).RGBA(); r != 0 {
		t.Fatalf("ink lost, red = %v", r)
	}
	if r, _, _, _ := out.At(9, 9).RGBA(); r != 0xffff {
		t.Fatalf("background not white, red = %v", r)
	}
}

func TestDecodeFormats(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))

	var jb bytes.Buffer
	if err := jpeg.Encode(&jb, src, nil); err != nil {
		t.Fatal(err)
	}
	var bb bytes.Buffer
	if err := bmp.Encode(&bb, src); err != nil {
		t.Fatal(err)
	}
	var pb bytes.Buffer
	if err := png.Encode(&pb, src); err != nil {
		t.Fatal(err)
	}
	for want, data := range map[string][]byte{"jpeg": jb.Bytes(), "bmp": bb.Bytes(), "png": pb.Bytes()} {
		img, format, err := Decode(data, 0)
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", want, err)
		}
		if format != want || img.Bounds().Dx() != 8 {
			t.Fatalf("Decode(%s) = %s %v", want, format, img.Bounds())
		}
	}
	if _, _, err := Decode([]byte("not an image"), 0); err == nil {
		t.Fatal("expected decode error")
	}
	if _, _, err := Decode(nil, 0); err == nil {
		t.Fatal("expected error for empty input")
	}
}

// hugePNG returns a small PNG whose header claims w x h pixels.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	// IHDR: length at 8, type at 12, width/height at 16 and 20, CRC at 29.
	binary.BigEndian.PutUint32(data[16:], w)
	binary.BigEndian.PutUint32(data[20:], h)
	binary.BigEndian.PutUint32(data[29:], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	data := hugePNG(t, 40000, 40000)
	_, _, err := Decode(data, 0)
	var pe *PixelLimitError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PixelLimitError, got %v", err)
	}
	if pe.Width != 40000 || pe.Height != 40000 || pe.Max != DefaultMaxPixels {
		t.Fatalf("unexpected error %+v", pe)
	}
	if _, _, err := Decode(hugePNG(t, 8, 8), 16); !errors.As(err, &pe) {
		t.Fatalf("expected custom limit to apply, got %v", err)
	}
}

func TestFlattenDownscaleComposites(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 210, 110))
	for x := 10; x < 210; x++ {
		for y := 10; y < 60; y++ {
			src.Set(x, y, color.Black)
		}
	}
	out := Flatten(src, 100)
	if out.Bounds() != image.Rect(0, 0, 100, 50) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if r, _, _, a := out.At(50, 5).RGBA(); r != 0 || a != 0xffff {
		t.Fatalf("ink lost after scaling, r=%v a=%v", r, a)
	}
	if r, _, _, _ := out.At(50, 45).RGBA(); r != 0xffff {
		t.Fatalf("transparent area not white after scaling, r=%v", r)
	}
}
