package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
	"github.com/ssss81511-cloud/news-insight-parser/app/ingest"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Fetcher pulls a source's feed and turns its items into posts with a
// content hash and base importance attached.
type Fetcher struct {
	parser        *gofeed.Parser
	fingerprinter *ingest.Fingerprinter
}

func NewFetcher(fingerprinter *ingest.Fingerprinter, userAgent string) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent

	return &Fetcher{parser: parser, fingerprinter: fingerprinter}
}

// Fetch downloads and parses the source feed. Items without a usable
// identity or title are dropped.
func (f *Fetcher) Fetch(ctx context.Context, config *Config) ([]*database.Post, error) {
	feed, err := f.parser.ParseURLWithContext(config.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed for %s: %w", config.ID, err)
	}

	now := time.Now().UTC()
	var posts []*database.Post
	for _, item := range feed.Items {
		if len(posts) >= config.MaxItems {
			break
		}

		post := f.normalizeItem(config, item, now)
		if post == nil {
			continue
		}
		posts = append(posts, post)
	}

	return posts, nil
}

func (f *Fetcher) normalizeItem(config *Config, item *gofeed.Item, now time.Time) *database.Post {
	sourceID := item.GUID
	if sourceID == "" {
		sourceID = item.Link
	}
	if sourceID == "" || strings.TrimSpace(item.Title) == "" {
		return nil
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}
	content = stripHTML(content)

	createdAt := now
	if item.PublishedParsed != nil {
		createdAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		createdAt = item.UpdatedParsed.UTC()
	}

	var author string
	if len(item.Authors) > 0 {
		author = item.Authors[0].Name
	}

	post := &database.Post{
		Source:      config.ID,
		SourceID:    sourceID,
		SourceURL:   item.Link,
		Title:       strings.TrimSpace(item.Title),
		Content:     content,
		Author:      author,
		PostType:    "article",
		CreatedAt:   createdAt,
		FetchedAt:   now,
		ContentHash: f.fingerprinter.Hash(item.Title, content),
	}
	post.ImportanceScore = f.scorePost(config, post, now)

	return post
}

// scorePost picks the scoring model for the source: curated feeds carry a
// configured base importance, community feeds are scored on engagement.
func (f *Fetcher) scorePost(config *Config, post *database.Post, now time.Time) float64 {
	if config.BaseImportance > 0 {
		return f.fingerprinter.EditorialScore(config.BaseImportance,
			post.Title+" "+post.Content, config.FocusRegexps(), config.FocusBonus)
	}
	return f.fingerprinter.EngagementScore(post.Score, post.CommentsCount, post.CreatedAt, now)
}

func stripHTML(text string) string {
	text = htmlTagPattern.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&#39;", "'")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
