package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockflow/internal/types"
)

const twilioAPIBase = "https://api.twilio.com"

// WhatsAppSender delivers alerts through the Twilio WhatsApp Messages API.
type WhatsAppSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
}

func NewWhatsAppSender(accountSID, authToken, fromNumber string) *WhatsAppSender {
	return &WhatsAppSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    twilioAPIBase,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *WhatsAppSender) SendAlert(ctx context.Context, w types.Watcher, symbol, message string) error {
	body := fmt.Sprintf("🔔 *StockFlow Alert*\n\n*%s*\n\n%s\n\n_Powered by StockFlow_", symbol, message)

	form := url.Values{
		"From": {"whatsapp:" + s.fromNumber},
		"To":   {"whatsapp:+91" + w.PhoneNumber},
		"Body": {body},
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
