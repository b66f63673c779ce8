/*
Package ai summarizes corporate announcements with the Gemini API.

Summarization is best-effort by design: callers are expected to fall back to
a templated message whenever Summarize returns an error, so no alert ever
depends on the provider being up.
*/
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const systemInstruction = `You are a financial analyst. Summarize corporate announcements for a retail investor.
Output requirements:
- exactly 3 short bullet points.
- If it mentions numbers, highlight them.
- Keep it under 50 words total.`

// Gemini generates announcement summaries via the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a summarizer. The API key is required; model and timeout
// fall back to sane defaults.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

// Summarize condenses the announcement text for a retail investor. Errors
// cover transport failures, quota and empty completions alike; the caller
// decides the fallback.
func (g *Gemini) Summarize(ctx context.Context, text, symbol, companyName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Company: %s (%s)\nAnnouncement: %s", companyName, symbol, text)

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		return "", fmt.Errorf("gemini returned an empty summary for %s", symbol)
	}
	return summary, nil
}
