package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

type CleanupTask struct {
	Task
	postRepo           database.PostRepository
	groupRepo          database.GroupRepository
	usedTopicRepo      database.UsedTopicRepository
	postRetention      time.Duration
	usedTopicRetention time.Duration
}

func NewCleanupTask(postRepo database.PostRepository, groupRepo database.GroupRepository,
	usedTopicRepo database.UsedTopicRepository, postRetentionDays, usedTopicRetentionDays int) *CleanupTask {
	return &CleanupTask{
		Task:               NewTask(TaskTypeCleanup, ""),
		postRepo:           postRepo,
		groupRepo:          groupRepo,
		usedTopicRepo:      usedTopicRepo,
		postRetention:      time.Duration(postRetentionDays) * 24 * time.Hour,
		usedTopicRetention: time.Duration(usedTopicRetentionDays) * 24 * time.Hour,
	}
}

func (t *CleanupTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := time.Now().UTC()

	deletedPosts, err := t.postRepo.DeleteOlderThan(now.Add(-t.postRetention))
	if err != nil {
		return fmt.Errorf("failed to delete old posts: %w", err)
	}

	deletedGroups, err := t.groupRepo.DeleteOrphanGroups()
	if err != nil {
		return fmt.Errorf("failed to delete orphan groups: %w", err)
	}

	deletedTopics, err := t.usedTopicRepo.DeleteOlderThan(now.Add(-t.usedTopicRetention))
	if err != nil {
		return fmt.Errorf("failed to delete old used topics: %w", err)
	}

	slog.Info("Retention cleanup finished", "deleted_posts", deletedPosts,
		"deleted_groups", deletedGroups, "deleted_used_topics", deletedTopics,
		"duration", t.GetDuration().String())

	return nil
}
