package domain

import "errors"

// Sentinel errors for the advice pipeline. HTTP handlers map these to
// status codes with errors.Is; the webhook channel never surfaces them as
// HTTP errors and degrades to a textual reply instead.
var (
	// ErrUnsupportedMedia means the caller input could not be decoded into
	// an image.
	ErrUnsupportedMedia = errors.New("unsupported media")

	// ErrImageTooLarge means the media exceeds the configured size bound.
	ErrImageTooLarge = errors.New("image too large")

	// ErrMediaFetchFailed means a carrier-hosted media URL was unreachable.
	ErrMediaFetchFailed = errors.New("media fetch failed")
)
