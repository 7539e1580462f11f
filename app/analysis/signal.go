package analysis

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

const (
	snippetWindow    = 100
	maxSnippets      = 5
	trendingMaxAge   = 48 * time.Hour
	trendingGrowth   = 0.5
	trendingVelocity = 1.0
)

// Signal is the scored strength of a topic across its member posts.
type Signal struct {
	Frequency   int
	SourceCount int
	GrowthRate  float64
	Velocity    float64
	Importance  float64
	Priority    string
	Trending    bool
	FirstSeen   time.Time
	LastSeen    time.Time
	Snippets    []string
}

// SignalScorer turns a topic's posts into an importance score, a priority
// tier and a trending flag.
type SignalScorer struct{}

func NewSignalScorer() *SignalScorer {
	return &SignalScorer{}
}

// Score computes the signal for a set of posts belonging to one topic.
// Confidence is the topic model's 0-100 cohesion estimate.
func (s *SignalScorer) Score(keywords []string, posts []*database.Post, confidence float64, now time.Time) Signal {
	sig := Signal{Frequency: len(posts)}
	if len(posts) == 0 {
		sig.Priority = PriorityLow
		return sig
	}

	sorted := make([]*database.Post, len(posts))
	copy(sorted, posts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	sig.FirstSeen = sorted[0].CreatedAt
	sig.LastSeen = sorted[len(sorted)-1].CreatedAt

	sources := map[string]struct{}{}
	for _, post := range sorted {
		sources[post.Source] = struct{}{}
	}
	sig.SourceCount = len(sources)

	sig.GrowthRate = growthRate(sorted)

	spanDays := max(sig.LastSeen.Sub(sig.FirstSeen).Hours()/24, 1)
	sig.Velocity = sig.GrowthRate / spanDays

	sig.Importance = importance(sig.Frequency, sig.GrowthRate, sig.SourceCount, confidence)
	sig.Priority = priority(sig.Importance, sig.Frequency)
	sig.Trending = sig.GrowthRate > trendingGrowth &&
		sig.Velocity > trendingVelocity &&
		now.Sub(sig.LastSeen) < trendingMaxAge

	sig.Snippets = snippets(keywords, sorted)

	return sig
}

// growthRate splits the posts' time span in half and compares post counts
// between the halves. A topic with all posts in one instant has no growth.
func growthRate(sorted []*database.Post) float64 {
	first := sorted[0].CreatedAt
	last := sorted[len(sorted)-1].CreatedAt
	if !last.After(first) {
		return 0
	}

	mid := first.Add(last.Sub(first) / 2)
	var early, late int
	for _, post := range sorted {
		if post.CreatedAt.After(mid) {
			late++
		} else {
			early++
		}
	}

	if early == 0 {
		if late > 0 {
			return 1
		}
		return 0
	}
	return float64(late-early) / float64(early)
}

// importance combines frequency (up to 40 points), growth (up to 30),
// source spread (up to 20) and model confidence (up to 10).
func importance(frequency int, growth float64, sourceCount int, confidence float64) float64 {
	score := min(float64(frequency)*2, 40)
	if growth > 0 {
		score += min(growth*10, 30)
	}
	score += min(float64(sourceCount)*10, 20)
	score += confidence * 0.1

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func priority(importance float64, frequency int) string {
	switch {
	case importance >= 80 && frequency >= 10:
		return PriorityCritical
	case importance >= 60 && frequency >= 5:
		return PriorityHigh
	case importance >= 40:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// snippets extracts up to five context windows around the first keyword
// occurrence in each post.
func snippets(keywords []string, posts []*database.Post) []string {
	var result []string
	for _, post := range posts {
		if len(result) >= maxSnippets {
			break
		}
		snippet := extractSnippet(keywords, post.Title+" "+post.Content)
		if snippet != "" {
			result = append(result, snippet)
		}
	}
	return result
}

func extractSnippet(keywords []string, text string) string {
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		idx := strings.Index(lowered, strings.ToLower(keyword))
		if idx < 0 {
			continue
		}

		start := idx - snippetWindow/2
		end := idx + len(keyword) + snippetWindow/2

		prefix, suffix := "", ""
		if start < 0 {
			start = 0
		} else if start > 0 {
			prefix = "..."
		}
		if end >= len(text) {
			end = len(text)
		} else {
			suffix = "..."
		}

		// The window is in bytes, so pull both ends back to rune starts.
		for start > 0 && !utf8.RuneStart(text[start]) {
			start--
		}
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end--
		}

		return prefix + strings.TrimSpace(text[start:end]) + suffix
	}
	return ""
}
