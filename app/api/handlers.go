package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ssss81511-cloud/news-insight-parser/app/analysis"
	"github.com/ssss81511-cloud/news-insight-parser/app/automation"
	"github.com/ssss81511-cloud/news-insight-parser/app/database"
	"github.com/ssss81511-cloud/news-insight-parser/app/sources"
)

const defaultListLimit = 20

func NewHandler(sourceConfigs []*sources.Config, postRepo database.PostRepository,
	groupRepo database.GroupRepository, usedTopicRepo database.UsedTopicRepository,
	contentRepo database.ContentRepository, runRepo database.RunRepository,
	engine *analysis.Engine, orchestrator *automation.Orchestrator) *Handler {
	return &Handler{
		sourceConfigs: sourceConfigs,
		postRepo:      postRepo,
		groupRepo:     groupRepo,
		usedTopicRepo: usedTopicRepo,
		contentRepo:   contentRepo,
		runRepo:       runRepo,
		engine:        engine,
		orchestrator:  orchestrator,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   len(h.sourceConfigs),
	}

	if postCount, err := h.postRepo.CountPosts(); err == nil {
		health["posts"] = postCount
	}
	if contentCount, err := h.contentRepo.CountContent(); err == nil {
		health["generated_content"] = contentCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if total, err := h.postRepo.CountPosts(); err == nil {
		stats["posts_total"] = total
	}
	if recent, err := h.postRepo.CountPostsSince(time.Now().UTC().Add(-24 * time.Hour)); err == nil {
		stats["posts_24h"] = recent
	}
	if groups, err := h.groupRepo.CountGroups(); err == nil {
		stats["duplicate_groups"] = groups
	}
	if contents, err := h.contentRepo.CountContent(); err == nil {
		stats["generated_content"] = contents
	}

	sourceStats, err := h.postRepo.GetSourceStats()
	if err != nil {
		slog.Error("Database error", "operation", "source_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	perSource := make([]map[string]interface{}, 0, len(sourceStats))
	for _, stat := range sourceStats {
		entry := map[string]interface{}{
			"source":     stat.Source,
			"post_count": stat.PostCount,
		}
		if stat.LatestPostAt != nil {
			entry["latest_post_at"] = stat.LatestPostAt.Format(time.RFC3339)
		}
		perSource = append(perSource, entry)
	}
	stats["sources"] = perSource

	usage := map[string]interface{}{}
	if used, err := h.usedTopicRepo.CountUsedSince(time.Now().UTC().AddDate(0, 0, -7)); err == nil {
		usage["topics_used_7d"] = used
	}
	if lastUsed, err := h.usedTopicRepo.LastUsedAt(); err == nil && lastUsed != nil {
		usage["last_topic_used_at"] = lastUsed.Format(time.RFC3339)
	}
	stats["topic_usage"] = usage

	c.JSON(http.StatusOK, stats)
}

// GetSignals lists only the trending topic candidates, the subset that
// satisfies the growth, velocity and freshness thresholds.
func (h *Handler) GetSignals(c *gin.Context) {
	candidates, err := h.engine.Candidates(time.Now().UTC())
	if err != nil {
		slog.Error("Topic analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Topic analysis failed"})
		return
	}

	signals := make([]topicResponse, 0)
	for _, candidate := range candidates {
		if !candidate.Trending {
			continue
		}
		signals = append(signals, topicResponse{
			Keywords:    candidate.Keywords,
			Description: candidate.Description,
			PostCount:   candidate.PostCount,
			Importance:  candidate.Importance,
			Priority:    candidate.Priority,
			Trending:    candidate.Trending,
			SourceType:  candidate.SourceType,
			Snippets:    candidate.Snippets,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"signals": signals,
		"total":   len(signals),
	})
}

func (h *Handler) GetTopics(c *gin.Context) {
	candidates, err := h.engine.Candidates(time.Now().UTC())
	if err != nil {
		slog.Error("Topic analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Topic analysis failed"})
		return
	}

	topics := make([]topicResponse, 0, len(candidates))
	for _, candidate := range candidates {
		topics = append(topics, topicResponse{
			Keywords:    candidate.Keywords,
			Description: candidate.Description,
			PostCount:   candidate.PostCount,
			Importance:  candidate.Importance,
			Priority:    candidate.Priority,
			Trending:    candidate.Trending,
			SourceType:  candidate.SourceType,
			Snippets:    candidate.Snippets,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"topics": topics,
		"total":  len(topics),
	})
}

func (h *Handler) APIListContent(c *gin.Context) {
	contents, err := h.contentRepo.List(defaultListLimit)
	if err != nil {
		slog.Error("Database error", "operation", "list_content", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]contentResponse, 0, len(contents))
	for _, content := range contents {
		items = append(items, toContentResponse(content))
	}

	c.JSON(http.StatusOK, gin.H{
		"content": items,
		"total":   len(items),
	})
}

func (h *Handler) APIGetContent(c *gin.Context) {
	id := c.Param("id")

	content, err := h.contentRepo.Get(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_content", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if content == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
		return
	}

	c.JSON(http.StatusOK, toContentResponse(content))
}

func (h *Handler) APIListRuns(c *gin.Context) {
	runs, err := h.runRepo.Recent(defaultListLimit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		entry := map[string]interface{}{
			"id":            run.ID,
			"source":        run.Source,
			"status":        run.Status,
			"items_fetched": run.ItemsFetched,
			"started_at":    run.StartedAt.Format(time.RFC3339),
		}
		if run.FinishedAt != nil {
			entry["finished_at"] = run.FinishedAt.Format(time.RFC3339)
		}
		if run.ErrorMessage != "" {
			entry["error"] = run.ErrorMessage
		}
		items = append(items, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  items,
		"total": len(items),
	})
}

func (h *Handler) APIRunPipeline(c *gin.Context) {
	result, err := h.orchestrator.Run(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, automation.ErrRunInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": "Pipeline run already in progress"})
		case errors.Is(err, automation.ErrNoTopicAvailable):
			c.JSON(http.StatusOK, gin.H{
				"state":   string(result.State),
				"success": false,
				"message": "No topic available for content generation",
			})
		default:
			slog.Error("Pipeline run failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	steps := make([]map[string]interface{}, 0, len(result.Steps))
	for _, step := range result.Steps {
		entry := map[string]interface{}{
			"name":   step.Name,
			"status": step.Status,
		}
		if step.Err != nil {
			entry["error"] = step.Err.Error()
		}
		steps = append(steps, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"state":      string(result.State),
		"success":    result.Success,
		"published":  result.Published,
		"content_id": result.ContentID,
		"steps":      steps,
	})
}

func toContentResponse(content *database.GeneratedContent) contentResponse {
	resp := contentResponse{
		ID:                content.ID,
		Title:             content.Title,
		Body:              content.Body,
		Hashtags:          content.Hashtags,
		KeyPoints:         content.KeyPoints,
		WordCount:         content.WordCount,
		SourceType:        content.SourceType,
		SourceDescription: content.SourceDescription,
		SourcePosts:       content.SourcePosts,
		IsPublished:       content.IsPublished,
		Platform:          content.Platform,
		CreatedAt:         content.CreatedAt.Format(time.RFC3339),
	}
	if content.PublishedAt != nil {
		resp.PublishedAt = content.PublishedAt.Format(time.RFC3339)
	}
	return resp
}
