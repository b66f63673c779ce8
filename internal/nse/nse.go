/*
Package nse fetches corporate announcements from the NSE feed.

The feed is consumed defensively: any transport failure, non-2xx status or
unexpected payload shape produces an empty batch rather than an error, so a
bad poll never fails the surrounding cycle. The endpoint occasionally expires
the session cookies it hands out; the client re-primes its cookie jar against
the site root and retries exactly once.
*/
package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockflow/internal/types"
)

// Client fetches announcement batches from the NSE API.
type Client struct {
	feedURL string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient builds a feed client for the given announcements URL. The site
// root used for session priming is derived from the URL's host.
func NewClient(feedURL string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid announcements URL %q: %w", feedURL, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		feedURL: feedURL,
		baseURL: u.Scheme + "://" + u.Host,
		client:  &http.Client{Timeout: timeout, Jar: jar},
		log:     log.With().Str("component", "nse").Logger(),
	}, nil
}

// feedItem mirrors the wire shape of one announcement.
type feedItem struct {
	SeqID       flexInt64 `json:"seq_id"`
	Symbol      string    `json:"symbol"`
	Desc        string    `json:"desc"`
	Attachment  string    `json:"attchmntFile"`
	Date        string    `json:"an_dt"`
	CompanyName string    `json:"sm_name"`
}

// flexInt64 decodes a JSON number or a numeric string. The feed is not
// consistent about which one seq_id is.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("seq_id is neither number nor string: %s", string(data))
		}
		n = json.Number(strings.TrimSpace(s))
	}
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("seq_id %q is not an integer: %w", n.String(), err)
	}
	*f = flexInt64(v)
	return nil
}

// Fetch retrieves the current announcement batch. It never returns an error:
// every failure is logged and surfaces as an empty slice.
func (c *Client) Fetch(ctx context.Context) []types.Announcement {
	body, status, err := c.get(ctx, c.feedURL)
	if err != nil {
		c.log.Warn().Err(err).Msg("announcement fetch failed")
		return nil
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if err := c.prime(ctx); err != nil {
			c.log.Warn().Err(err).Msg("session re-prime failed")
			return nil
		}
		body, status, err = c.get(ctx, c.feedURL)
		if err != nil {
			c.log.Warn().Err(err).Msg("announcement fetch failed after re-prime")
			return nil
		}
	}

	if status != http.StatusOK {
		c.log.Warn().Int("status", status).Msg("announcement feed returned non-OK status")
		return nil
	}

	items := decodeFeed(body)
	if len(items) == 0 {
		c.log.Debug().Msg("announcement feed returned no items")
		return nil
	}

	anns := make([]types.Announcement, 0, len(items))
	for _, it := range items {
		anns = append(anns, types.Announcement{
			SeqID:         int64(it.SeqID),
			Symbol:        strings.TrimSpace(it.Symbol),
			Desc:          it.Desc,
			AttachmentURL: it.Attachment,
			Date:          it.Date,
			CompanyName:   it.CompanyName,
		})
	}
	c.log.Info().Int("count", len(anns)).Msg("fetched announcements")
	return anns
}

// decodeFeed tolerates a bare array or a wrapped {"data": [...]}; anything
// else is treated as empty.
func decodeFeed(body []byte) []feedItem {
	var items []feedItem
	if err := json.Unmarshal(body, &items); err == nil {
		return items
	}

	var wrapped struct {
		Data []feedItem `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		return wrapped.Data
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build feed request: %w", err)
	}
	for k, v := range feedHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read feed body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// prime visits the site root so the server sets the cookies the API checks.
func (c *Client) prime(ctx context.Context) error {
	_, status, err := c.get(ctx, c.baseURL)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("session priming returned status %d", status)
	}
	c.log.Debug().Msg("feed session primed")
	return nil
}

// The NSE API rejects requests without browser-like headers.
func feedHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://www.nseindia.com/",
	}
}
