package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonWordPattern = regexp.MustCompile(`[^a-z0-9\s]+`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// Fingerprinter produces stable content hashes and base importance scores
// for freshly fetched posts.
type Fingerprinter struct {
	normalizer transform.Transformer
}

func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{
		normalizer: transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}
}

// Hash returns the hex sha256 of the normalized title and body. Posts that
// differ only in case, diacritics, punctuation or whitespace hash the same.
func (f *Fingerprinter) Hash(title, body string) string {
	normalized := f.Normalize(title) + "\n" + f.Normalize(body)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Normalize lowercases, strips diacritics and punctuation, and collapses
// whitespace.
func (f *Fingerprinter) Normalize(text string) string {
	text = strings.ToLower(text)
	if stripped, _, err := transform.String(f.normalizer, text); err == nil {
		text = stripped
	}
	text = nonWordPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// EngagementScore derives a base importance from community signals. Votes
// cap at 40 points, comments at 30, and a recency component starts at 30
// and decays by one point per day of age.
func (f *Fingerprinter) EngagementScore(score, comments int, createdAt, now time.Time) float64 {
	voteScore := min(float64(score)/10, 40)
	commentScore := min(float64(comments)/2, 30)

	ageDays := now.Sub(createdAt).Hours() / 24
	recencyScore := max(0, 30-ageDays)

	return clampScore(voteScore + commentScore + recencyScore)
}

// EditorialScore derives a base importance for curated sources. The source
// contributes a fixed base, and a single bonus is added when any focus
// pattern matches the text.
func (f *Fingerprinter) EditorialScore(base float64, text string, focus []*regexp.Regexp, bonus float64) float64 {
	score := base
	lowered := strings.ToLower(text)
	for _, pattern := range focus {
		if pattern.MatchString(lowered) {
			score += bonus
			break
		}
	}
	return clampScore(score)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
