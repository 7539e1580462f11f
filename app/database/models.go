package database

import "time"

// Post is a single item ingested from a configured source. Posts from
// different sources covering the same story share a DuplicateGroupID.
type Post struct {
	ID                 int64
	Source             string
	SourceID           string
	SourceURL          string
	Title              string
	Content            string
	Author             string
	Score              int
	CommentsCount      int
	PostType           string
	CreatedAt          time.Time
	FetchedAt          time.Time
	ContentHash        string
	ImportanceScore    float64
	DuplicateGroupID   *string
	ContentExtractedAt *time.Time
	AIAnalyzedAt       *time.Time
	Metadata           string
}

// DuplicateGroup ties together posts that describe the same story. The
// canonical post is the earliest one that seeded the group.
type DuplicateGroup struct {
	ID              string
	CanonicalPostID int64
	SimilarityScore float64
	CreatedAt       time.Time
}

// UsedTopic records a topic that already produced content, identified by
// the hash of its keyword set. SourceType is "topic" for clustered topics
// and "adhoc" for single-post fallbacks.
type UsedTopic struct {
	ID           int64
	KeywordsHash string
	Keywords     []string
	ContentID    string
	PostCount    int
	SourceType   string
	UsedAt       time.Time
}

// GeneratedContent is a finished piece of content produced by the pipeline.
type GeneratedContent struct {
	ID                string
	Title             string
	Body              string
	Hashtags          []string
	KeyPoints         []string
	WordCount         int
	SourceType        string
	SourceDescription string
	SourcePosts       []int64
	IsPublished       bool
	PublishedAt       *time.Time
	Platform          string
	MessageID         *int64
	CreatedAt         time.Time
}

// SourceRun tracks a single fetch cycle for one source.
type SourceRun struct {
	ID           int64
	Source       string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       string
	ItemsFetched int
	ErrorMessage string
}

// SourceStat aggregates per-source counters for the stats endpoint.
type SourceStat struct {
	Source       string
	PostCount    int
	LatestPostAt *time.Time
}
