package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

const (
	analysisPostLimit  = 2000
	adHocCandidateCap  = 10
	adHocConfidence    = 50
	descriptionKeyword = 5
)

// Candidate is a scored topic proposal ready for selection. SourceType is
// "topic" for clustered topics and "adhoc" for keyword grouped fallbacks.
type Candidate struct {
	Keywords    []string
	PostIDs     []int64
	PostCount   int
	Importance  float64
	Priority    string
	Trending    bool
	SourceType  string
	Description string
	Snippets    []string
}

// EngineOptions holds the analysis window tunables.
type EngineOptions struct {
	LookbackDays  int
	TopicCount    int
	WordsPerTopic int
	MinPosts      int
}

// Engine runs the topic model and signal scorer over the recent post
// window to produce selection candidates.
type Engine struct {
	posts  database.PostRepository
	model  *TopicModel
	scorer *SignalScorer
	opts   EngineOptions
}

func NewEngine(posts database.PostRepository, model *TopicModel, scorer *SignalScorer, opts EngineOptions) *Engine {
	return &Engine{posts: posts, model: model, scorer: scorer, opts: opts}
}

// Candidates clusters the lookback window into topics, drops topics below
// the minimum post count and returns the rest ordered by importance.
func (e *Engine) Candidates(now time.Time) ([]*Candidate, error) {
	since := now.AddDate(0, 0, -e.opts.LookbackDays)
	posts, err := e.posts.GetRecentPosts(since, analysisPostLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts for analysis: %w", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}

	topics, err := e.model.Run(posts, e.opts.TopicCount, e.opts.WordsPerTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to model topics: %w", err)
	}

	byID := make(map[int64]*database.Post, len(posts))
	for _, post := range posts {
		byID[post.ID] = post
	}

	var candidates []*Candidate
	for _, topic := range topics {
		if len(topic.PostIDs) < e.opts.MinPosts {
			continue
		}

		members := make([]*database.Post, 0, len(topic.PostIDs))
		for _, id := range topic.PostIDs {
			if post, ok := byID[id]; ok {
				members = append(members, post)
			}
		}

		signal := e.scorer.Score(topic.Keywords, members, topic.Confidence, now)
		candidates = append(candidates, &Candidate{
			Keywords:    topic.Keywords,
			PostIDs:     topic.PostIDs,
			PostCount:   len(topic.PostIDs),
			Importance:  signal.Importance,
			Priority:    signal.Priority,
			Trending:    signal.Trending,
			SourceType:  "topic",
			Description: describe(topic.Keywords),
			Snippets:    signal.Snippets,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Importance > candidates[j].Importance
	})

	return candidates, nil
}

// AdHocCandidates falls back to keyword frequency grouping when every
// clustered topic is spent: posts without prior AI annotation are grouped
// by shared title keywords into pseudo topics, which still have to clear
// the minimum post count.
func (e *Engine) AdHocCandidates(now time.Time) ([]*Candidate, error) {
	since := now.AddDate(0, 0, -e.opts.LookbackDays)
	posts, err := e.posts.GetRecentPosts(since, analysisPostLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts for analysis: %w", err)
	}

	members := make(map[string][]*database.Post)
	for _, post := range posts {
		if post.AIAnalyzedAt != nil {
			continue
		}
		seen := make(map[string]struct{})
		for _, token := range Tokenize(post.Title) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			members[token] = append(members[token], post)
		}
	}

	seeds := make([]string, 0, len(members))
	for keyword, group := range members {
		if len(group) < e.opts.MinPosts {
			continue
		}
		seeds = append(seeds, keyword)
	}
	sort.Slice(seeds, func(i, j int) bool {
		if len(members[seeds[i]]) != len(members[seeds[j]]) {
			return len(members[seeds[i]]) > len(members[seeds[j]])
		}
		return seeds[i] < seeds[j]
	})
	if len(seeds) > adHocCandidateCap {
		seeds = seeds[:adHocCandidateCap]
	}

	var candidates []*Candidate
	for _, seed := range seeds {
		group := members[seed]
		keywords := relatedKeywords(seed, group, e.opts.WordsPerTopic)

		ids := make([]int64, len(group))
		for i, post := range group {
			ids[i] = post.ID
		}

		signal := e.scorer.Score(keywords, group, adHocConfidence, now)
		candidates = append(candidates, &Candidate{
			Keywords:    keywords,
			PostIDs:     ids,
			PostCount:   len(group),
			Importance:  signal.Importance,
			Priority:    signal.Priority,
			Trending:    signal.Trending,
			SourceType:  "adhoc",
			Description: describe(keywords),
			Snippets:    signal.Snippets,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Importance > candidates[j].Importance
	})

	return candidates, nil
}

// relatedKeywords extends the seed keyword with the title tokens its
// member posts mention most often.
func relatedKeywords(seed string, posts []*database.Post, limit int) []string {
	counts := make(map[string]int)
	for _, post := range posts {
		seen := make(map[string]struct{})
		for _, token := range Tokenize(post.Title) {
			if token == seed {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			counts[token]++
		}
	}

	related := make([]string, 0, len(counts))
	for token := range counts {
		related = append(related, token)
	}
	sort.Slice(related, func(i, j int) bool {
		if counts[related[i]] != counts[related[j]] {
			return counts[related[i]] > counts[related[j]]
		}
		return related[i] < related[j]
	})

	keywords := append([]string{seed}, related...)
	if limit > 0 && len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}

func describe(keywords []string) string {
	if len(keywords) > descriptionKeyword {
		keywords = keywords[:descriptionKeyword]
	}
	return strings.Join(keywords, ", ")
}
