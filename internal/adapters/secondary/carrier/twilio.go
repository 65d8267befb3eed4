// Package carrier implements outbound WhatsApp message delivery through a
// Twilio-style REST API.
package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/agricagent/agricagent/config"
	"github.com/agricagent/agricagent/internal/logger"
)

// TwilioSender implements ports.CarrierPort. Sends are rate limited so a
// burst of notifications cannot trip the carrier's own limits.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	apiBase    string
	client     *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
}

// NewTwilioSender creates a sender from carrier config. It returns nil when
// the carrier credentials are absent; callers treat a nil sender as
// "outbound push not configured".
func NewTwilioSender(cfg *config.CarrierConfig, log logger.Logger) *TwilioSender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		log.Warn("carrier credentials not set, outbound push disabled")
		return nil
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	perSecond := cfg.SendsPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	return &TwilioSender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		apiBase:    strings.TrimSuffix(cfg.APIBase, "/"),
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		log:        log,
	}
}

// Send delivers one WhatsApp message and returns the carrier-assigned SID.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("From", FormatWhatsAppNumber(s.fromNumber))
	form.Set("To", FormatWhatsAppNumber(to))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.apiBase, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("carrier send failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read carrier response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("carrier returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse carrier response: %w", err)
	}

	s.log.Info("sent carrier message", "sid", parsed.SID)
	return parsed.SID, nil
}

// FormatWhatsAppNumber normalizes a phone number into the carrier's
// whatsapp:+<digits> address form. Already-prefixed numbers pass through
// unchanged.
func FormatWhatsAppNumber(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	if !strings.HasPrefix(number, "+") {
		number = "+" + strings.TrimLeft(number, "+")
	}
	return "whatsapp:" + number
}
