package automation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/analysis"
	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

func generationRequest() GenerationRequest {
	return GenerationRequest{
		Candidate: &analysis.Candidate{
			Keywords:    []string{"ai", "funding"},
			SourceType:  "topic",
			Description: "ai, funding",
		},
		Posts: []*database.Post{
			{ID: 1, Source: "hackernews", Title: "OpenAI raises billions", Content: "Funding round details.", CreatedAt: time.Now()},
		},
		Format:   "long_post",
		Tone:     "professional",
		Language: "en",
	}
}

func chatReply(content string) string {
	reply, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(reply)
}

func TestGenerate(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("unexpected model %s", req.Model)
		}

		w.Write([]byte(chatReply(`{"title":"AI funding wave","content":"Money is flowing into AI.","hashtags":["#ai"],"key_points":["billions raised"]}`)))
	}))
	defer server.Close()

	g := NewLLMGenerator(server.URL, "secret", "test-model")
	content, err := g.Generate(context.Background(), generationRequest())
	if err != nil {
		t.Fatalf("failed to generate: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if content.Title != "AI funding wave" {
		t.Errorf("unexpected title %q", content.Title)
	}
	if content.WordCount != 5 {
		t.Errorf("expected word count 5, got %d", content.WordCount)
	}
	if content.ID == "" {
		t.Error("expected generated content id")
	}
	if len(content.SourcePosts) != 1 || content.SourcePosts[0] != 1 {
		t.Errorf("unexpected source posts %v", content.SourcePosts)
	}
}

func TestGenerateStripsCodeFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("```json\n{\"title\":\"T\",\"content\":\"B\"}\n```")))
	}))
	defer server.Close()

	g := NewLLMGenerator(server.URL, "", "test-model")
	content, err := g.Generate(context.Background(), generationRequest())
	if err != nil {
		t.Fatalf("failed to generate: %v", err)
	}
	if content.Title != "T" || content.Body != "B" {
		t.Errorf("unexpected content %+v", content)
	}
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewLLMGenerator(server.URL, "", "test-model")
	if _, err := g.Generate(context.Background(), generationRequest()); err == nil {
		t.Error("expected error on server failure")
	}
}

func TestGenerateRejectsIncompleteReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`{"title":"only a title"}`)))
	}))
	defer server.Close()

	g := NewLLMGenerator(server.URL, "", "test-model")
	if _, err := g.Generate(context.Background(), generationRequest()); err == nil {
		t.Error("expected error for reply without body")
	}
}
