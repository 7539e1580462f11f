package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

const rendererTimeout = 60 * time.Second

// HTTPRenderer asks an external render service for a share card image of
// the content. The service receives the content as JSON and replies with
// raw image bytes.
type HTTPRenderer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPRenderer(endpoint string) *HTTPRenderer {
	return &HTTPRenderer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: rendererTimeout},
	}
}

type renderRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Hashtags  []string `json:"hashtags"`
	KeyPoints []string `json:"key_points"`
}

func (r *HTTPRenderer) Render(ctx context.Context, content *database.GeneratedContent) ([]byte, error) {
	body, err := json.Marshal(renderRequest{
		Title:     content.Title,
		Body:      content.Body,
		Hashtags:  content.Hashtags,
		KeyPoints: content.KeyPoints,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render service returned status %d", resp.StatusCode)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered image: %w", err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("render service returned an empty image")
	}

	return image, nil
}
