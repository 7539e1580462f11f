package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability"
)

const (
	extractorTimeout = 30 * time.Second
	maxArticleBytes  = 2 << 20
)

// Extractor downloads an article page and pulls the readable text out of
// it, for sources whose feeds only carry teasers.
type Extractor struct {
	client    *http.Client
	userAgent string
}

func NewExtractor(userAgent string) *Extractor {
	return &Extractor{
		client:    &http.Client{Timeout: extractorTimeout},
		userAgent: userAgent,
	}
}

// Extract fetches the page and returns its main text content.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build article request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("article fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read article body: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(stripHTML(article.Content))
	if text == "" {
		return "", fmt.Errorf("no content extracted from %s", pageURL)
	}

	slog.Debug("Content extracted successfully",
		"url", pageURL, "content_length", len(text))

	return text, nil
}
