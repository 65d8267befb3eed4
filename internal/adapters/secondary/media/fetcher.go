// Package media implements the authenticated fetch of carrier-hosted media
// URLs delivered by the webhook channel.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agricagent/agricagent/config"
	"github.com/agricagent/agricagent/internal/logger"
)

// CarrierFetcher fetches media URLs with carrier basic-auth credentials.
// Twilio-style carriers require account SID + auth token on media GETs.
type CarrierFetcher struct {
	accountSID string
	authToken  string
	maxBytes   int64
	client     *http.Client
	log        logger.Logger
}

// NewCarrierFetcher creates a fetcher with a bounded timeout from config.
func NewCarrierFetcher(cfg *config.CarrierConfig, maxBytes int64, log logger.Logger) *CarrierFetcher {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &CarrierFetcher{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		maxBytes:   maxBytes,
		client:     &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Fetch performs a single authenticated GET of the media URL and returns
// the bytes and the response content type. Non-2xx responses are errors;
// the caller degrades to "no media".
func (f *CarrierFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build media request: %w", err)
	}
	if f.accountSID != "" {
		req.SetBasicAuth(f.accountSID, f.authToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("media request returned %s", resp.Status)
	}

	limit := f.maxBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	f.log.Debug("fetched carrier media", "bytes", len(data), "content_type", contentType)
	return data, contentType, nil
}
