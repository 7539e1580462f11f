package selection

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/analysis"
	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

// State describes how the selector arrived at its answer.
type State string

const (
	StateTopic     State = "topic"
	StateAdHoc     State = "adhoc"
	StateExhausted State = "exhausted"
)

// CandidateSource supplies scored topic candidates for selection.
type CandidateSource interface {
	Candidates(now time.Time) ([]*analysis.Candidate, error)
	AdHocCandidates(now time.Time) ([]*analysis.Candidate, error)
}

// SelectorOptions holds the selection tunables.
type SelectorOptions struct {
	ExcludeDays    int
	PreferTrending bool
}

// Selector picks the next topic to produce content for, skipping topics
// already used inside the exclusion window. When every clustered topic is
// excluded it falls back to keyword grouped ad hoc candidates, and reports
// exhaustion when those are spent too.
type Selector struct {
	source CandidateSource
	used   database.UsedTopicRepository
	opts   SelectorOptions
}

func NewSelector(source CandidateSource, used database.UsedTopicRepository, opts SelectorOptions) *Selector {
	return &Selector{source: source, used: used, opts: opts}
}

// Fingerprint identifies a topic by its keyword set, independent of
// keyword order, case and surrounding whitespace.
func Fingerprint(keywords []string) string {
	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		cleaned = append(cleaned, strings.ToLower(strings.TrimSpace(keyword)))
	}
	sort.Strings(cleaned)

	sum := sha256.Sum256([]byte(strings.Join(cleaned, "|||")))
	return hex.EncodeToString(sum[:])
}

// SelectNext returns the best unused candidate. The returned state tells
// the caller whether it came from a clustered topic, the ad hoc fallback,
// or nowhere at all.
func (s *Selector) SelectNext(now time.Time) (*analysis.Candidate, State, error) {
	candidates, err := s.source.Candidates(now)
	if err != nil {
		return nil, StateExhausted, fmt.Errorf("failed to load topic candidates: %w", err)
	}
	s.rank(candidates)

	candidate, err := s.firstUnused(candidates, now)
	if err != nil {
		return nil, StateExhausted, err
	}
	if candidate != nil {
		return candidate, StateTopic, nil
	}

	slog.Info("All clustered topics excluded, falling back to ad hoc candidates")

	adHoc, err := s.source.AdHocCandidates(now)
	if err != nil {
		return nil, StateExhausted, fmt.Errorf("failed to load ad hoc candidates: %w", err)
	}
	s.rank(adHoc)

	candidate, err = s.firstUnused(adHoc, now)
	if err != nil {
		return nil, StateExhausted, err
	}
	if candidate != nil {
		return candidate, StateAdHoc, nil
	}

	return nil, StateExhausted, nil
}

// MarkUsed records the candidate in the usage log so the exclusion window
// applies to future runs.
func (s *Selector) MarkUsed(candidate *analysis.Candidate, contentID string, now time.Time) error {
	topic := &database.UsedTopic{
		KeywordsHash: Fingerprint(candidate.Keywords),
		Keywords:     candidate.Keywords,
		ContentID:    contentID,
		PostCount:    candidate.PostCount,
		SourceType:   candidate.SourceType,
		UsedAt:       now,
	}
	if err := s.used.Append(topic); err != nil {
		return fmt.Errorf("failed to record used topic: %w", err)
	}
	return nil
}

// rank orders candidates the way selection walks them: widest coverage
// first, with trending candidates pulled ahead when preferred.
func (s *Selector) rank(candidates []*analysis.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PostCount > candidates[j].PostCount
	})
	if s.opts.PreferTrending {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Trending && !candidates[j].Trending
		})
	}
}

func (s *Selector) firstUnused(candidates []*analysis.Candidate, now time.Time) (*analysis.Candidate, error) {
	windowStart := now.AddDate(0, 0, -s.opts.ExcludeDays)

	for _, candidate := range candidates {
		used, err := s.used.IsUsedWithin(Fingerprint(candidate.Keywords), windowStart)
		if err != nil {
			return nil, fmt.Errorf("failed to check topic usage: %w", err)
		}
		if used {
			continue
		}
		return candidate, nil
	}
	return nil, nil
}
