package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
	"github.com/ssss81511-cloud/news-insight-parser/app/sources"
)

const enrichBatchSize = 10

type EnrichContentTask struct {
	Task
	SourceConfig *sources.Config
	extractor    *sources.Extractor
	postRepo     database.PostRepository
}

func NewEnrichContentTask(sourceConfig *sources.Config, extractor *sources.Extractor,
	postRepo database.PostRepository) *EnrichContentTask {
	return &EnrichContentTask{
		Task:         NewTask(TaskTypeEnrichContent, sourceConfig.ID),
		SourceConfig: sourceConfig,
		extractor:    extractor,
		postRepo:     postRepo,
	}
}

func (t *EnrichContentTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.ExtractContent {
		slog.Debug("Content extraction disabled for source", "source", t.Source)
		return nil
	}

	posts, err := t.postRepo.GetPostsForEnrichment(t.Source, enrichBatchSize)
	if err != nil {
		return fmt.Errorf("failed to load posts for enrichment: %w", err)
	}
	if len(posts) == 0 {
		return nil
	}

	enriched := 0
	for _, post := range posts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		content, err := t.extractor.Extract(ctx, post.SourceURL)
		if err != nil {
			slog.Debug("Content extraction failed", "source", t.Source,
				"post_id", post.ID, "url", post.SourceURL, "error", err)
			continue
		}

		if err := t.postRepo.UpdateContent(post.ID, content, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to store extracted content: %w", err)
		}
		enriched++
	}

	slog.Info("Content enrichment finished", "source", t.Source,
		"candidates", len(posts), "enriched", enriched, "duration", t.GetDuration().String())

	return nil
}
