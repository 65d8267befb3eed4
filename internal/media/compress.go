package media

import (
	"bytes"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/agricagent/agricagent/internal/core/domain"
	"github.com/agricagent/agricagent/internal/logger"
)

// Compressor re-encodes images as bounded JPEG before they are sent to
// inference: the longest edge is capped and a fixed quality factor applied.
// It is a pure transformation with no side effects.
type Compressor struct {
	maxEdge int
	quality int
	log     logger.Logger
}

// NewCompressor creates a Compressor with the given longest-edge bound in
// pixels and JPEG quality factor.
func NewCompressor(maxEdge, quality int, log logger.Logger) *Compressor {
	if maxEdge <= 0 {
		maxEdge = 1600
	}
	if quality <= 0 || quality > 100 {
		quality = 82
	}
	return &Compressor{
		maxEdge: maxEdge,
		quality: quality,
		log:     log,
	}
}

// Compress returns m re-encoded as a bounded JPEG. Input that cannot be
// decoded, or any internal failure, never aborts the request: the original
// bytes pass through unchanged with a sniffed MIME type.
func (c *Compressor) Compress(m *domain.NormalizedMedia) *domain.NormalizedMedia {
	img, format, err := image.Decode(bytes.NewReader(m.Data))
	if err != nil {
		c.log.Warn("media not decodable, passing through uncompressed", "error", err, "declared_mime", m.MimeType)
		return &domain.NormalizedMedia{
			Data:     m.Data,
			MimeType: DetectMimeType(m.Data),
			Ext:      m.Ext,
		}
	}

	img = c.bound(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		c.log.Warn("jpeg encode failed, passing through uncompressed", "error", err, "format", format)
		return m
	}

	c.log.Debug("compressed media",
		"format", format,
		"in_bytes", len(m.Data),
		"out_bytes", buf.Len())

	return &domain.NormalizedMedia{
		Data:     buf.Bytes(),
		MimeType: "image/jpeg",
		Ext:      ".jpg",
	}
}

// bound scales img down so its longest edge is at most maxEdge pixels.
// Images already within the bound are returned as-is.
func (c *Compressor) bound(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	longest := w
	if h > longest {
		longest = h
	}
	if longest <= c.maxEdge {
		return img
	}

	scale := float64(c.maxEdge) / float64(longest)
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
