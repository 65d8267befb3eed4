package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/agricagent/agricagent/internal/core/domain"
)

// makeJPEG renders a gradient of the given size so the encoder has real
// content to work with.
func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestCompress_BoundsLongestEdge(t *testing.T) {
	c := NewCompressor(1600, 82, testLogger())

	in := &domain.NormalizedMedia{
		Data:     makeJPEG(t, 3200, 1800),
		MimeType: "image/jpeg",
		Ext:      ".jpg",
	}

	out := c.Compress(in)
	if out.MimeType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", out.MimeType)
	}

	w, h := decodeDims(t, out.Data)
	if w > 1600 || h > 1600 {
		t.Errorf("dimensions %dx%d exceed the 1600px bound", w, h)
	}
	if w != 1600 {
		t.Errorf("expected longest edge scaled to 1600, got %d", w)
	}
}

func TestCompress_IdempotentInEffect(t *testing.T) {
	c := NewCompressor(1600, 82, testLogger())

	in := &domain.NormalizedMedia{
		Data:     makeJPEG(t, 800, 600),
		MimeType: "image/jpeg",
		Ext:      ".jpg",
	}

	once := c.Compress(in)
	twice := c.Compress(once)

	w1, h1 := decodeDims(t, once.Data)
	w2, h2 := decodeDims(t, twice.Data)
	if w1 != w2 || h1 != h2 {
		t.Errorf("recompression changed dimensions: %dx%d -> %dx%d", w1, h1, w2, h2)
	}
	if w2 != 800 || h2 != 600 {
		t.Errorf("in-bound image was resized to %dx%d", w2, h2)
	}
}

func TestCompress_PNGBecomesJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 40))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	c := NewCompressor(1600, 82, testLogger())
	out := c.Compress(&domain.NormalizedMedia{Data: buf.Bytes(), MimeType: "image/png", Ext: ".png"})

	if out.MimeType != "image/jpeg" {
		t.Errorf("expected canonical image/jpeg, got %q", out.MimeType)
	}
	if _, _, err := image.Decode(bytes.NewReader(out.Data)); err != nil {
		t.Errorf("output not decodable: %v", err)
	}
}

func TestCompress_UndecodableInputPassesThrough(t *testing.T) {
	c := NewCompressor(1600, 82, testLogger())

	raw := []byte("this is not an image at all")
	out := c.Compress(&domain.NormalizedMedia{Data: raw, MimeType: "image/jpeg", Ext: ".jpg"})

	if !bytes.Equal(out.Data, raw) {
		t.Error("undecodable input must pass through unchanged")
	}
	if out.MimeType == "" {
		t.Error("passthrough must carry a best-guess MIME type")
	}
}
