/*
Package extract fetches announcement attachments and pulls readable text out
of them for AI summarization. PDFs go through pdfcpu, HTML through x/net;
anything else is treated as plain text.
*/
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

const (
	// maxChars caps the text handed to the summarizer. The leading portion
	// is kept: the decision-relevant content is typically on the first page.
	maxChars = 6000

	// minReadable guards against image-only or protected documents that
	// yield a few stray characters.
	minReadable = 200

	maxBodyBytes = 10 << 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Fetcher downloads attachments and extracts a text snippet from them.
type Fetcher struct {
	client  *http.Client
	tempDir string
	log     zerolog.Logger
}

func NewFetcher(timeout time.Duration, log zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	tempDir := filepath.Join(os.TempDir(), "stockflow-attachments")
	_ = os.MkdirAll(tempDir, 0o755)

	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		tempDir: tempDir,
		log:     log.With().Str("component", "extract").Logger(),
	}
}

// Snippet fetches the attachment at url and returns up to maxChars of
// whitespace-normalized text from it.
func (f *Fetcher) Snippet(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build attachment request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download attachment %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("attachment download returned status %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read attachment body: %w", err)
	}

	var text string
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		text, err = f.pdfText(data)
	case isHTML(resp.Header.Get("Content-Type"), data):
		text, err = htmlText(data)
	default:
		text = string(data)
	}
	if err != nil {
		return "", err
	}

	cleaned := normalize(text)
	if len(cleaned) < minReadable {
		return "", fmt.Errorf("attachment yielded only %d readable characters", len(cleaned))
	}

	if len(cleaned) > maxChars {
		// Back off to a rune boundary so the cap never splits a multi-byte
		// character.
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		f.log.Debug().Int("chars", cut).Int("total", len(cleaned)).Msg("attachment text trimmed")
		cleaned = cleaned[:cut]
	}
	return cleaned, nil
}

func isHTML(contentType string, data []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	head := bytes.ToLower(data[:min(len(data), 512)])
	return bytes.Contains(head, []byte("<html"))
}

// htmlText walks the document and collects text nodes, skipping script and
// style subtrees.
func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML attachment: %w", err)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String(), nil
}

// normalize collapses all runs of whitespace into single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
