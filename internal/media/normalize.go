// Package media converts the three accepted media input shapes into one
// canonical byte+MIME form and bounds image payloads before inference.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/agricagent/agricagent/internal/core/domain"
	"github.com/agricagent/agricagent/internal/core/ports"
	"github.com/agricagent/agricagent/internal/logger"
)

// Normalizer resolves a MediaRef (multipart bytes, data URL or remote URL)
// into a NormalizedMedia, enforcing the image/* invariant and the size
// bound.
type Normalizer struct {
	fetcher  ports.MediaFetcherPort
	maxBytes int64
	log      logger.Logger
}

// NewNormalizer creates a Normalizer. fetcher may be nil when no carrier
// credentials are configured; remote references then degrade to a fetch
// failure.
func NewNormalizer(fetcher ports.MediaFetcherPort, maxBytes int64, log logger.Logger) *Normalizer {
	return &Normalizer{
		fetcher:  fetcher,
		maxBytes: maxBytes,
		log:      log,
	}
}

// Normalize converts ref into canonical form. It fails with
// domain.ErrUnsupportedMedia or domain.ErrImageTooLarge for caller input
// problems, and domain.ErrMediaFetchFailed when a remote URL cannot be
// retrieved.
func (n *Normalizer) Normalize(ctx context.Context, ref *domain.MediaRef) (*domain.NormalizedMedia, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: no media attached", domain.ErrUnsupportedMedia)
	}

	switch ref.Source {
	case domain.MediaSourceUpload:
		return n.fromUpload(ref)
	case domain.MediaSourceDataURL:
		return n.fromDataURL(ref.DataURL)
	case domain.MediaSourceRemote:
		return n.fromRemoteURL(ctx, ref.RemoteURL, ref.ContentType)
	default:
		return nil, fmt.Errorf("%w: unknown media source %q", domain.ErrUnsupportedMedia, ref.Source)
	}
}

// fromUpload normalizes a multipart file upload. The declared content type
// is trusted when it is an image type; otherwise the filename extension is
// used to guess one.
func (n *Normalizer) fromUpload(ref *domain.MediaRef) (*domain.NormalizedMedia, error) {
	mimeType := ref.ContentType
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = mime.TypeByExtension(filepath.Ext(ref.Filename))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %q is not an image", domain.ErrUnsupportedMedia, ref.Filename)
	}
	return n.build(ref.Data, mimeType)
}

// fromDataURL normalizes an inline data:<mime>;base64,<payload> string.
func (n *Normalizer) fromDataURL(s string) (*domain.NormalizedMedia, error) {
	data, mimeType, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	return n.build(data, mimeType)
}

// fromRemoteURL normalizes a carrier-hosted media URL. A data URL smuggled
// into the remote field (test doubles do this) is decoded locally; anything
// else goes through the authenticated fetcher. An absent or unrecognized
// content type header defaults to image/jpeg.
func (n *Normalizer) fromRemoteURL(ctx context.Context, url, contentTypeHint string) (*domain.NormalizedMedia, error) {
	if strings.HasPrefix(url, "data:") {
		return n.fromDataURL(url)
	}

	if n.fetcher == nil {
		return nil, fmt.Errorf("%w: no media fetcher configured", domain.ErrMediaFetchFailed)
	}

	data, contentType, err := n.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaFetchFailed, err)
	}
	n.log.Debug("fetched remote media", "bytes", len(data), "content_type", contentType)

	mimeType := firstImageType(contentType, contentTypeHint)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return n.build(data, mimeType)
}

// build applies the shared size checks and assembles the canonical form.
func (n *Normalizer) build(data []byte, mimeType string) (*domain.NormalizedMedia, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty media payload", domain.ErrUnsupportedMedia)
	}
	if n.maxBytes > 0 && int64(len(data)) > n.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", domain.ErrImageTooLarge, len(data), n.maxBytes)
	}

	// Drop any parameters like "; charset=..." from the declared type.
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	return &domain.NormalizedMedia{
		Data:     data,
		MimeType: mimeType,
		Ext:      extForMime(mimeType),
	}, nil
}

// ParseDataURL decodes a data:<mime>;base64,<payload> string into raw bytes
// and the declared MIME type.
func ParseDataURL(s string) ([]byte, string, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, "", fmt.Errorf("%w: missing data: prefix", domain.ErrUnsupportedMedia)
	}

	rest := s[len("data:"):]
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return nil, "", fmt.Errorf("%w: malformed data URL", domain.ErrUnsupportedMedia)
	}

	mimeType := rest[:sep]
	payload := rest[sep+len(";base64,"):]

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid base64 payload: %v", domain.ErrUnsupportedMedia, err)
	}
	return data, mimeType, nil
}

// firstImageType returns the first candidate that names an image type.
func firstImageType(candidates ...string) string {
	for _, c := range candidates {
		if strings.HasPrefix(c, "image/") {
			return c
		}
	}
	return ""
}

// extForMime maps the image types the pipeline sees in practice to a file
// extension for debug copies.
func extForMime(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			return exts[0]
		}
		return ".img"
	}
}

// DetectMimeType sniffs a best-guess MIME type from the payload header.
func DetectMimeType(data []byte) string {
	return http.DetectContentType(data)
}
