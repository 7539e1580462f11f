package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

const generatorTimeout = 120 * time.Second

// LLMGenerator produces content through an OpenAI compatible chat
// completions endpoint.
type LLMGenerator struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewLLMGenerator(endpoint, apiKey, model string) *LLMGenerator {
	return &LLMGenerator{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: generatorTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type generatedPayload struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Hashtags  []string `json:"hashtags"`
	KeyPoints []string `json:"key_points"`
}

// Generate asks the model for a structured piece of content about the
// topic and maps the reply onto a GeneratedContent record.
func (g *LLMGenerator) Generate(ctx context.Context, req GenerationRequest) (*database.GeneratedContent, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("generation endpoint error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("generation response has no choices")
	}

	var payload generatedPayload
	reply := stripCodeFences(chat.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(reply), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse generated content: %w", err)
	}
	if payload.Title == "" || payload.Content == "" {
		return nil, fmt.Errorf("generated content is missing title or body")
	}

	postIDs := make([]int64, len(req.Posts))
	for i, post := range req.Posts {
		postIDs[i] = post.ID
	}

	return &database.GeneratedContent{
		ID:                uuid.NewString(),
		Title:             payload.Title,
		Body:              payload.Content,
		Hashtags:          payload.Hashtags,
		KeyPoints:         payload.KeyPoints,
		WordCount:         len(strings.Fields(payload.Content)),
		SourceType:        req.Candidate.SourceType,
		SourceDescription: req.Candidate.Description,
		SourcePosts:       postIDs,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

func systemPrompt(req GenerationRequest) string {
	return fmt.Sprintf("You are a tech news editor writing a %s in a %s tone, in language %q. "+
		"Respond with a single JSON object with keys: title, content, hashtags (array), key_points (array). "+
		"No markdown, no commentary.", req.Format, req.Tone, req.Language)
}

func userPrompt(req GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nKeywords: %s\n\nSource posts:\n",
		req.Candidate.Description, strings.Join(req.Candidate.Keywords, ", "))

	for i, post := range req.Posts {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s\n", post.Source, post.Title)
		if post.Content != "" {
			excerpt := post.Content
			if len(excerpt) > 300 {
				excerpt = excerpt[:300]
			}
			fmt.Fprintf(&b, "  %s\n", strings.TrimSpace(excerpt))
		}
	}

	if len(req.Candidate.Snippets) > 0 {
		b.WriteString("\nContext snippets:\n")
		for _, snippet := range req.Candidate.Snippets {
			fmt.Fprintf(&b, "- %s\n", snippet)
		}
	}

	return b.String()
}

func stripCodeFences(reply string) string {
	reply = strings.TrimSpace(reply)
	if !strings.HasPrefix(reply, "```") {
		return reply
	}

	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	return strings.TrimSpace(reply)
}
