package ports

import "context"

// MediaFetcherPort fetches carrier-hosted media over HTTP with carrier
// credentials. It returns the raw bytes and the response content type,
// which may be empty when the carrier omits the header.
type MediaFetcherPort interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}
