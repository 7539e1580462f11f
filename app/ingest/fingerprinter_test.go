package ingest

import (
	"regexp"
	"testing"
	"time"
)

func TestHashIgnoresFormatting(t *testing.T) {
	f := NewFingerprinter()

	a := f.Hash("OpenAI Raises $6.6B!", "The funding round closed today.")
	b := f.Hash("openai raises 6 6b", "the   funding round closed today")

	if a != b {
		t.Errorf("expected identical hashes for formatting variants, got %s and %s", a, b)
	}

	c := f.Hash("A completely different story", "about something else")
	if a == c {
		t.Error("expected different hashes for different content")
	}
}

func TestNormalizeStripsDiacritics(t *testing.T) {
	f := NewFingerprinter()

	got := f.Normalize("Café Résumé, naïve!")
	want := "cafe resume naive"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestEngagementScore(t *testing.T) {
	f := NewFingerprinter()
	now := time.Now().UTC()

	tests := []struct {
		name     string
		score    int
		comments int
		age      time.Duration
		want     float64
	}{
		{"fresh post with modest signals", 100, 20, 0, 10 + 10 + 30},
		{"votes and comments cap out", 10000, 5000, 0, 40 + 30 + 30},
		{"recency decays by a point per day", 0, 0, 10 * 24 * time.Hour, 20},
		{"old posts have no recency left", 0, 0, 60 * 24 * time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.EngagementScore(tt.score, tt.comments, now.Add(-tt.age), now)
			if got != tt.want {
				t.Errorf("expected score %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEditorialScore(t *testing.T) {
	f := NewFingerprinter()
	focus := []*regexp.Regexp{
		regexp.MustCompile(`raise[sd]?\s+\$\d+`),
		regexp.MustCompile(`series\s+[abc]\b`),
	}

	got := f.EditorialScore(50, "Acme raises $20M Series B", focus, 20)
	if got != 70 {
		t.Errorf("expected focus bonus to apply once, got %v", got)
	}

	got = f.EditorialScore(50, "Acme ships a new widget", focus, 20)
	if got != 50 {
		t.Errorf("expected base score without focus match, got %v", got)
	}

	got = f.EditorialScore(95, "Acme raises $20M Series B", focus, 20)
	if got != 100 {
		t.Errorf("expected score clamped to 100, got %v", got)
	}
}
