package api

import (
	"github.com/ssss81511-cloud/news-insight-parser/app/analysis"
	"github.com/ssss81511-cloud/news-insight-parser/app/automation"
	"github.com/ssss81511-cloud/news-insight-parser/app/database"
	"github.com/ssss81511-cloud/news-insight-parser/app/sources"
)

type Handler struct {
	sourceConfigs []*sources.Config
	postRepo      database.PostRepository
	groupRepo     database.GroupRepository
	usedTopicRepo database.UsedTopicRepository
	contentRepo   database.ContentRepository
	runRepo       database.RunRepository
	engine        *analysis.Engine
	orchestrator  *automation.Orchestrator
}

type topicResponse struct {
	Keywords    []string `json:"keywords"`
	Description string   `json:"description"`
	PostCount   int      `json:"post_count"`
	Importance  float64  `json:"importance"`
	Priority    string   `json:"priority"`
	Trending    bool     `json:"trending"`
	SourceType  string   `json:"source_type"`
	Snippets    []string `json:"snippets,omitempty"`
}

type contentResponse struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Body              string   `json:"body"`
	Hashtags          []string `json:"hashtags"`
	KeyPoints         []string `json:"key_points"`
	WordCount         int      `json:"word_count"`
	SourceType        string   `json:"source_type"`
	SourceDescription string   `json:"source_description"`
	SourcePosts       []int64  `json:"source_posts"`
	IsPublished       bool     `json:"is_published"`
	PublishedAt       string   `json:"published_at,omitempty"`
	Platform          string   `json:"platform,omitempty"`
	CreatedAt         string   `json:"created_at"`
}
