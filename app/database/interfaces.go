package database

import "time"

// PostRepository manages ingested posts and their duplicate group links.
type PostRepository interface {
	UpsertPost(p *Post) (int64, bool, error)
	GetPost(id int64) (*Post, error)
	GetPostsByIDs(ids []int64) ([]*Post, error)
	GetRecentPosts(since time.Time, limit int) ([]*Post, error)
	GetLinkCandidates(excludeSource string, from, to time.Time) ([]*Post, error)
	SetDuplicateGroup(postID int64, groupID string) error
	GetPostsForEnrichment(source string, limit int) ([]*Post, error)
	UpdateContent(postID int64, content string, extractedAt time.Time) error
	UpdateImportance(postID int64, score float64) error
	CountPosts() (int, error)
	CountPostsSince(since time.Time) (int, error)
	GetSourceStats() ([]*SourceStat, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// GroupRepository manages duplicate groups.
type GroupRepository interface {
	CreateGroup(g *DuplicateGroup) error
	GetGroup(id string) (*DuplicateGroup, error)
	CountGroups() (int, error)
	DeleteOrphanGroups() (int64, error)
}

// UsedTopicRepository records topics that already produced content so the
// selector can skip them inside the exclusion window.
type UsedTopicRepository interface {
	Append(t *UsedTopic) error
	IsUsedWithin(keywordsHash string, since time.Time) (bool, error)
	Recent(limit int) ([]*UsedTopic, error)
	CountUsedSince(since time.Time) (int, error)
	LastUsedAt() (*time.Time, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// ContentRepository stores generated content and its publish status.
type ContentRepository interface {
	Create(c *GeneratedContent) error
	Get(id string) (*GeneratedContent, error)
	List(limit int) ([]*GeneratedContent, error)
	MarkPublished(id string, platform string, messageID int64, publishedAt time.Time) error
	CountContent() (int, error)
}

// RunRepository tracks fetch cycles per source.
type RunRepository interface {
	Start(source string, startedAt time.Time) (int64, error)
	Finish(id int64, status string, itemsFetched int, errorMessage string, finishedAt time.Time) error
	Recent(limit int) ([]*SourceRun, error)
}
