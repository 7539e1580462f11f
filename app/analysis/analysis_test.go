package analysis

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("The quick AI startup raises $20M for its c++ toolchain!")
	want := []string{"quick", "startup", "raises", "c++", "toolchain"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestVectorizerDeterminism(t *testing.T) {
	docs := [][]string{
		{"ai", "funding", "round"},
		{"ai", "model", "release"},
		{"kernel", "driver", "release"},
	}

	first := NewVectorizer(500).FitTransform(docs)
	second := NewVectorizer(500).FitTransform(docs)

	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical vectors on identical input")
	}
}

func TestVectorizerBoundsVocabulary(t *testing.T) {
	var docs [][]string
	for i := 0; i < 20; i++ {
		docs = append(docs, []string{fmt.Sprintf("term%d", i), "shared"})
	}

	v := NewVectorizer(5)
	vectors := v.FitTransform(docs)

	if v.VocabularySize() != 5 {
		t.Errorf("expected vocabulary capped at 5, got %d", v.VocabularySize())
	}
	if len(vectors[0]) != 5 {
		t.Errorf("expected 5-dimensional vectors, got %d", len(vectors[0]))
	}
}

func TestKMeansDeterminism(t *testing.T) {
	vectors := [][]float64{
		{1, 0, 0}, {0.9, 0.1, 0}, {0.95, 0, 0.05},
		{0, 1, 0}, {0, 0.9, 0.1}, {0.05, 0.95, 0},
	}

	km := NewKMeans(42)
	first, err := km.Fit(vectors, 2)
	if err != nil {
		t.Fatalf("failed to cluster: %v", err)
	}
	second, err := NewKMeans(42).Fit(vectors, 2)
	if err != nil {
		t.Fatalf("failed to cluster: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical clusters for the same seed")
	}

	for _, cluster := range first {
		if len(cluster.Members) != 3 {
			t.Errorf("expected balanced clusters of 3, got %d", len(cluster.Members))
		}
	}
}

func TestKMeansClampsK(t *testing.T) {
	vectors := [][]float64{{1, 0}, {0, 1}}

	clusters, err := NewKMeans(42).Fit(vectors, 5)
	if err != nil {
		t.Fatalf("failed to cluster: %v", err)
	}
	if len(clusters) != 2 {
		t.Errorf("expected k clamped to document count, got %d clusters", len(clusters))
	}
}

func makePost(id int64, source, title, content string, createdAt time.Time) *database.Post {
	return &database.Post{
		ID:        id,
		Source:    source,
		Title:     title,
		Content:   content,
		CreatedAt: createdAt,
	}
}

func TestTopicModelSeparatesThemes(t *testing.T) {
	now := time.Now().UTC()
	var posts []*database.Post
	for i := 0; i < 5; i++ {
		posts = append(posts, makePost(int64(i+1), "hackernews",
			"OpenAI funding round announcement",
			"Investors joined the funding round for the model maker.",
			now.Add(-time.Duration(i)*time.Hour)))
	}
	for i := 0; i < 5; i++ {
		posts = append(posts, makePost(int64(i+6), "techcrunch",
			"Linux kernel scheduler patch",
			"The kernel scheduler patch improves latency on large machines.",
			now.Add(-time.Duration(i)*time.Hour)))
	}

	model := NewTopicModel(NewKMeans(42))
	topics, err := model.Run(posts, 2, 10)
	if err != nil {
		t.Fatalf("failed to run topic model: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(topics))
	}

	for _, topic := range topics {
		if len(topic.PostIDs) != 5 {
			t.Errorf("expected 5 posts per topic, got %d", len(topic.PostIDs))
		}
		if topic.Confidence <= 0 || topic.Confidence > 100.5 {
			t.Errorf("expected confidence in (0, 100], got %v", topic.Confidence)
		}
		joined := strings.Join(topic.Keywords, " ")
		if !strings.Contains(joined, "funding") && !strings.Contains(joined, "kernel") {
			t.Errorf("expected theme keywords, got %v", topic.Keywords)
		}
	}
}

func TestTopicModelEmptyInput(t *testing.T) {
	model := NewTopicModel(NewKMeans(42))

	topics, err := model.Run(nil, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error for empty input: %v", err)
	}
	if topics != nil {
		t.Errorf("expected no topics, got %v", topics)
	}
}

func TestImportanceComponents(t *testing.T) {
	tests := []struct {
		name       string
		frequency  int
		growth     float64
		sources    int
		confidence float64
		want       float64
	}{
		{"small quiet topic", 3, 0, 1, 50, 6 + 0 + 10 + 5},
		{"negative growth adds nothing", 5, -0.5, 2, 0, 10 + 0 + 20},
		{"all components capped", 30, 5.0, 4, 100, 40 + 30 + 20 + 10},
		{"frequency capped at 40 points", 25, 0.8, 3, 100, 40 + 8 + 20 + 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := importance(tt.frequency, tt.growth, tt.sources, tt.confidence)
			if got != tt.want {
				t.Errorf("expected importance %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPriorityLadder(t *testing.T) {
	tests := []struct {
		importance float64
		frequency  int
		want       string
	}{
		{85, 12, PriorityCritical},
		{85, 8, PriorityHigh},
		{65, 6, PriorityHigh},
		{65, 3, PriorityMedium},
		{45, 2, PriorityMedium},
		{30, 20, PriorityLow},
	}

	for _, tt := range tests {
		got := priority(tt.importance, tt.frequency)
		if got != tt.want {
			t.Errorf("importance %v frequency %d: expected %s, got %s",
				tt.importance, tt.frequency, tt.want, got)
		}
	}
}

func TestGrowthRateSplitHalves(t *testing.T) {
	now := time.Now().UTC()

	// 2 posts in the first half of the span, 6 in the second.
	var posts []*database.Post
	posts = append(posts,
		makePost(1, "a", "t", "", now.Add(-40*time.Hour)),
		makePost(2, "a", "t", "", now.Add(-36*time.Hour)))
	for i := 0; i < 6; i++ {
		posts = append(posts, makePost(int64(i+3), "a", "t", "", now.Add(-time.Duration(i)*time.Hour)))
	}

	scorer := NewSignalScorer()
	sig := scorer.Score([]string{"t"}, posts, 0, now)

	if sig.GrowthRate != 2 {
		t.Errorf("expected growth rate 2, got %v", sig.GrowthRate)
	}
}

func TestTrendingRule(t *testing.T) {
	now := time.Now().UTC()
	scorer := NewSignalScorer()

	// Accelerating topic: 1 early post, 5 recent ones within a day.
	var posts []*database.Post
	posts = append(posts, makePost(1, "hackernews", "ai agents", "", now.Add(-20*time.Hour)))
	for i := 0; i < 5; i++ {
		posts = append(posts, makePost(int64(i+2), "techcrunch", "ai agents", "",
			now.Add(-time.Duration(i)*time.Hour)))
	}

	sig := scorer.Score([]string{"agents"}, posts, 0, now)
	if !sig.Trending {
		t.Errorf("expected trending topic, got growth=%v velocity=%v", sig.GrowthRate, sig.Velocity)
	}

	// Same shape but seen long ago: stale topics never trend.
	var old []*database.Post
	for _, p := range posts {
		aged := *p
		aged.CreatedAt = p.CreatedAt.Add(-10 * 24 * time.Hour)
		old = append(old, &aged)
	}
	sig = scorer.Score([]string{"agents"}, old, 0, now)
	if sig.Trending {
		t.Error("expected stale topic to not trend")
	}
}

func TestSnippets(t *testing.T) {
	now := time.Now().UTC()
	scorer := NewSignalScorer()

	long := strings.Repeat("padding ", 40) + "quantum breakthrough achieved " + strings.Repeat("padding ", 40)
	var posts []*database.Post
	for i := 0; i < 7; i++ {
		posts = append(posts, makePost(int64(i+1), "hackernews", "Science news", long, now))
	}

	sig := scorer.Score([]string{"quantum"}, posts, 0, now)

	if len(sig.Snippets) != 5 {
		t.Fatalf("expected 5 snippets, got %d", len(sig.Snippets))
	}
	for _, snippet := range sig.Snippets {
		if !strings.Contains(snippet, "quantum") {
			t.Errorf("expected snippet to contain keyword, got %q", snippet)
		}
		if !strings.HasPrefix(snippet, "...") || !strings.HasSuffix(snippet, "...") {
			t.Errorf("expected ellipses around mid-text snippet, got %q", snippet)
		}
	}
}

func TestSnippetsKeepRunesWhole(t *testing.T) {
	now := time.Now().UTC()
	scorer := NewSignalScorer()

	// Multi-byte text on both sides of the keyword: the byte window must
	// not cut a rune in half.
	body := strings.Repeat("é", 80) + " quantum " + strings.Repeat("日", 80)
	posts := []*database.Post{makePost(1, "hackernews", "Science news", body, now)}

	sig := scorer.Score([]string{"quantum"}, posts, 0, now)

	if len(sig.Snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(sig.Snippets))
	}
	if !utf8.ValidString(sig.Snippets[0]) {
		t.Errorf("expected valid UTF-8 snippet, got %q", sig.Snippets[0])
	}
	if !strings.Contains(sig.Snippets[0], "quantum") {
		t.Errorf("expected snippet to contain keyword, got %q", sig.Snippets[0])
	}
}

type stubPostRepo struct {
	database.PostRepository
	recent []*database.Post
}

func (s *stubPostRepo) GetRecentPosts(since time.Time, limit int) ([]*database.Post, error) {
	return s.recent, nil
}

func TestAdHocCandidatesGroupByKeyword(t *testing.T) {
	now := time.Now().UTC()

	analyzedAt := now.Add(-time.Hour)
	annotated := makePost(5, "reddit", "Kubernetes cluster upgrade notes", "", now.Add(-2*time.Hour))
	annotated.AIAnalyzedAt = &analyzedAt

	repo := &stubPostRepo{recent: []*database.Post{
		makePost(1, "hackernews", "Kubernetes security flaw discovered", "", now.Add(-4*time.Hour)),
		makePost(2, "techcrunch", "New kubernetes release announced", "", now.Add(-3*time.Hour)),
		makePost(3, "reddit", "Kubernetes operators guide published", "", now.Add(-2*time.Hour)),
		makePost(4, "hackernews", "Espresso machine teardown", "", now.Add(-time.Hour)),
		annotated,
	}}

	engine := NewEngine(repo, NewTopicModel(NewKMeans(42)), NewSignalScorer(), EngineOptions{
		LookbackDays:  7,
		TopicCount:    5,
		WordsPerTopic: 10,
		MinPosts:      3,
	})

	candidates, err := engine.AdHocCandidates(now)
	if err != nil {
		t.Fatalf("failed to build ad hoc candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	got := candidates[0]
	if got.Keywords[0] != "kubernetes" {
		t.Errorf("expected kubernetes seed keyword, got %v", got.Keywords)
	}
	if got.PostCount != 3 || len(got.PostIDs) != 3 {
		t.Errorf("expected 3 member posts, got count=%d ids=%v", got.PostCount, got.PostIDs)
	}
	if got.SourceType != "adhoc" {
		t.Errorf("expected adhoc source type, got %s", got.SourceType)
	}
	for _, id := range got.PostIDs {
		if id == annotated.ID {
			t.Error("expected annotated post to be excluded from ad hoc grouping")
		}
	}
}

func TestAdHocCandidatesRespectMinPosts(t *testing.T) {
	now := time.Now().UTC()
	repo := &stubPostRepo{recent: []*database.Post{
		makePost(1, "hackernews", "Quantum computing milestone", "", now.Add(-2*time.Hour)),
		makePost(2, "techcrunch", "Quantum startup funded", "", now.Add(-time.Hour)),
	}}

	engine := NewEngine(repo, NewTopicModel(NewKMeans(42)), NewSignalScorer(), EngineOptions{
		LookbackDays:  7,
		TopicCount:    5,
		WordsPerTopic: 10,
		MinPosts:      3,
	})

	candidates, err := engine.AdHocCandidates(now)
	if err != nil {
		t.Fatalf("failed to build ad hoc candidates: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates below the minimum post count, got %d", len(candidates))
	}
}
