package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ssss81511-cloud/news-insight-parser/app/automation"
)

type RunPipelineTask struct {
	Task
	orchestrator *automation.Orchestrator
}

func NewRunPipelineTask(orchestrator *automation.Orchestrator) *RunPipelineTask {
	return &RunPipelineTask{
		Task:         NewTask(TaskTypeRunPipeline, ""),
		orchestrator: orchestrator,
	}
}

func (t *RunPipelineTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.orchestrator.Run(ctx)
	if err != nil {
		// A run in flight or an exhausted topic pool is not a task
		// failure worth retrying.
		if errors.Is(err, automation.ErrRunInProgress) {
			slog.Debug("Pipeline run skipped, another run in progress")
			return nil
		}
		if errors.Is(err, automation.ErrNoTopicAvailable) {
			slog.Info("Pipeline run skipped, no topic available")
			return nil
		}
		return fmt.Errorf("failed to run pipeline: %w", err)
	}

	slog.Info("Pipeline task finished", "content_id", result.ContentID,
		"state", string(result.State), "published", result.Published,
		"duration", t.GetDuration().String())

	return nil
}
