package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

const bodyCompareLength = 500

// LinkerOptions holds the tunables for cross source duplicate detection.
type LinkerOptions struct {
	Threshold   float64
	TitleWeight float64
	BodyWeight  float64
	TimeWeight  float64
	Window      time.Duration
}

// Linker finds posts from other sources that cover the same story and ties
// them together in a duplicate group.
type Linker struct {
	posts  database.PostRepository
	groups database.GroupRepository
	opts   LinkerOptions
}

func NewLinker(posts database.PostRepository, groups database.GroupRepository, opts LinkerOptions) *Linker {
	return &Linker{posts: posts, groups: groups, opts: opts}
}

// Link compares the post against candidates from other sources inside the
// recency window and attaches it to the highest scoring match above the
// threshold. Candidates arrive oldest first, so equal scores resolve to
// the earliest post and it stays canonical for its group.
func (l *Linker) Link(post *database.Post) error {
	if post.DuplicateGroupID != nil {
		return nil
	}

	from := post.CreatedAt.Add(-l.opts.Window)
	to := post.CreatedAt.Add(l.opts.Window)

	candidates, err := l.posts.GetLinkCandidates(post.Source, from, to)
	if err != nil {
		return fmt.Errorf("failed to load link candidates: %w", err)
	}

	var best *database.Post
	var bestScore float64
	for _, candidate := range candidates {
		score := l.Similarity(post, candidate)
		if score < l.opts.Threshold || score <= bestScore {
			continue
		}
		best = candidate
		bestScore = score
	}
	if best == nil {
		return nil
	}

	groupID, err := l.attach(post, best, bestScore)
	if err != nil {
		return err
	}

	slog.Debug("Linked duplicate post",
		"post_id", post.ID, "candidate_id", best.ID,
		"group_id", groupID, "similarity", bestScore)
	return nil
}

// Similarity combines title, body and time proximity into a single score
// between 0 and 1. Identical content hashes short-circuit to 1.
func (l *Linker) Similarity(a, b *database.Post) float64 {
	if a.ContentHash != "" && a.ContentHash == b.ContentHash {
		return 1
	}

	titleSim := titleSimilarity(a.Title, b.Title)
	bodySim := textSimilarity(truncate(a.Content, bodyCompareLength), truncate(b.Content, bodyCompareLength))

	diffHours := a.CreatedAt.Sub(b.CreatedAt).Hours()
	if diffHours < 0 {
		diffHours = -diffHours
	}
	timeSim := max(0, 1-diffHours/24)

	return titleSim*l.opts.TitleWeight + bodySim*l.opts.BodyWeight + timeSim*l.opts.TimeWeight
}

func (l *Linker) attach(post, candidate *database.Post, score float64) (string, error) {
	if candidate.DuplicateGroupID != nil {
		groupID := *candidate.DuplicateGroupID
		if err := l.posts.SetDuplicateGroup(post.ID, groupID); err != nil {
			return "", fmt.Errorf("failed to join duplicate group: %w", err)
		}
		post.DuplicateGroupID = &groupID
		return groupID, nil
	}

	canonical := candidate
	if post.CreatedAt.Before(candidate.CreatedAt) {
		canonical = post
	}

	group := &database.DuplicateGroup{
		ID:              uuid.NewString(),
		CanonicalPostID: canonical.ID,
		SimilarityScore: score,
		CreatedAt:       time.Now().UTC(),
	}
	if err := l.groups.CreateGroup(group); err != nil {
		return "", fmt.Errorf("failed to create duplicate group: %w", err)
	}

	for _, member := range []*database.Post{post, candidate} {
		if err := l.posts.SetDuplicateGroup(member.ID, group.ID); err != nil {
			return "", fmt.Errorf("failed to join duplicate group: %w", err)
		}
		member.DuplicateGroupID = &group.ID
	}

	return group.ID, nil
}

// titleSimilarity takes the higher of the edit distance ratio and the
// token Jaccard overlap, so reworded headlines with the same vocabulary
// still score high.
func titleSimilarity(a, b string) float64 {
	return max(textSimilarity(a, b), tokenJaccard(a, b))
}

func tokenJaccard(a, b string) float64 {
	tokensA := strings.Fields(strings.ToLower(a))
	tokensB := strings.Fields(strings.ToLower(b))
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, token := range tokensA {
		setA[token] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, token := range tokensB {
		setB[token] = struct{}{}
	}

	shared := 0
	for token := range setB {
		if _, ok := setA[token]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(setA)+len(setB)-shared)
}

// textSimilarity is a Levenshtein ratio over lowercased text. Either side
// being empty yields 0.
func textSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ra := []rune(a)
	rb := []rune(b)
	dist := levenshtein(ra, rb)
	longest := max(len(ra), len(rb))

	return 1 - float64(dist)/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
