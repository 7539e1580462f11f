package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
	"github.com/ssss81511-cloud/news-insight-parser/app/ingest"
	"github.com/ssss81511-cloud/news-insight-parser/app/sources"
)

type FetchSourceTask struct {
	Task
	SourceConfig *sources.Config
	fetcher      *sources.Fetcher
	linker       *ingest.Linker
	postRepo     database.PostRepository
	runRepo      database.RunRepository
}

func NewFetchSourceTask(sourceConfig *sources.Config, fetcher *sources.Fetcher,
	linker *ingest.Linker, postRepo database.PostRepository,
	runRepo database.RunRepository) *FetchSourceTask {
	return &FetchSourceTask{
		Task:         NewTask(TaskTypeFetchSource, sourceConfig.ID),
		SourceConfig: sourceConfig,
		fetcher:      fetcher,
		linker:       linker,
		postRepo:     postRepo,
		runRepo:      runRepo,
	}
}

func (t *FetchSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	runID, err := t.runRepo.Start(t.Source, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record source run: %w", err)
	}

	posts, err := t.fetcher.Fetch(ctx, t.SourceConfig)
	if err != nil {
		t.finishRun(runID, "error", 0, err)
		return fmt.Errorf("failed to fetch source: %w", err)
	}

	newCount := 0
	linkedCount := 0
	for _, post := range posts {
		id, created, err := t.postRepo.UpsertPost(post)
		if err != nil {
			t.finishRun(runID, "error", newCount, err)
			return fmt.Errorf("failed to store post: %w", err)
		}
		post.ID = id
		if !created {
			continue
		}
		newCount++

		if err := t.linker.Link(post); err != nil {
			slog.Warn("Duplicate linking failed", "source", t.Source, "post_id", post.ID, "error", err)
			continue
		}
		if post.DuplicateGroupID != nil {
			linkedCount++
		}
	}

	t.finishRun(runID, "success", newCount, nil)

	slog.Info("Source fetched", "source", t.Source, "items", len(posts),
		"new", newCount, "linked", linkedCount, "duration", t.GetDuration().String())

	return nil
}

func (t *FetchSourceTask) finishRun(runID int64, status string, items int, cause error) {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	if err := t.runRepo.Finish(runID, status, items, message, time.Now().UTC()); err != nil {
		slog.Warn("Failed to finalize source run", "source", t.Source, "error", err)
	}
}
